package ports

import (
	"context"

	"github.com/kirillkom/irrrl-engine/internal/core/domain"
)

// ApplicationRepository persists the application aggregate.
type ApplicationRepository interface {
	Create(ctx context.Context, app *domain.Application) error
	GetByID(ctx context.Context, id string) (*domain.Application, error)
	// Save stores the aggregate and appends records in one transaction. It fails with
	// domain.ErrConcurrentModification when app.Version no longer matches the stored row.
	Save(ctx context.Context, app *domain.Application, appended []domain.StatusTransitionRecord) error
	ListByStatus(ctx context.Context, status domain.ApplicationStatus, limit int) ([]domain.ApplicationSummary, error)
}

// EventPublisher delivers fire-and-forget notifications.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event) error
}

// EventSubscriber consumes submitted-application events for background analysis.
type EventSubscriber interface {
	SubscribeSubmitted(ctx context.Context, handler func(context.Context, domain.Event) error) error
}

// DocumentChecklist supplies the documents an application must provide.
type DocumentChecklist interface {
	RequiredDocuments(app *domain.Application) []domain.DocumentType
}

// ApplicationLocker serializes writers per application.
type ApplicationLocker interface {
	Lock(ctx context.Context, applicationID string) (unlock func(), err error)
}

// WorksheetRenderer renders the NTB worksheet for loan officers.
type WorksheetRenderer interface {
	RenderNTBWorksheet(app *domain.Application) ([]byte, error)
}

// DecisionRecorder observes decision outcomes.
type DecisionRecorder interface {
	RecordNTB(passed bool)
	RecordEligibility(eligible bool)
	RecordTransition(target domain.ApplicationStatus, accepted bool)
}
