package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/irrrl-engine/internal/core/domain"
	"github.com/kirillkom/irrrl-engine/internal/core/ports"
)

// ApplicationStore runs every aggregate write as lock, load, apply, save, publish.
type ApplicationStore struct {
	repo      ports.ApplicationRepository
	locker    ports.ApplicationLocker
	publisher ports.EventPublisher
	now       func() time.Time
}

func NewApplicationStore(
	repo ports.ApplicationRepository,
	locker ports.ApplicationLocker,
	publisher ports.EventPublisher,
	now func() time.Time,
) *ApplicationStore {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &ApplicationStore{
		repo:      repo,
		locker:    locker,
		publisher: publisher,
		now:       now,
	}
}

func (s *ApplicationStore) load(ctx context.Context, id string) (*domain.Application, error) {
	if id == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "load application", errors.New("application id is required"))
	}
	app, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetch application by id: %w", err)
	}
	return app, nil
}

// mutate calls apply under the application lock. When apply reports a change, the aggregate is
// saved together with the history records apply appended.
func (s *ApplicationStore) mutate(
	ctx context.Context,
	id string,
	apply func(app *domain.Application) (bool, error),
) (*domain.Application, []domain.StatusTransitionRecord, error) {
	unlock, err := s.locker.Lock(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("lock application: %w", err)
	}
	defer unlock()

	app, err := s.load(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	before := len(app.History)
	changed, err := apply(app)
	if err != nil {
		return nil, nil, err
	}
	if !changed {
		return app, nil, nil
	}

	appended := slices.Clone(app.History[before:])
	if err := s.repo.Save(ctx, app, appended); err != nil {
		return nil, nil, fmt.Errorf("save application: %w", err)
	}
	return app, appended, nil
}

// publish is fire-and-forget. Delivery failures are logged and never returned.
func (s *ApplicationStore) publish(ctx context.Context, event domain.Event) {
	if s.publisher == nil {
		return
	}
	event.ID = uuid.NewString()
	if event.OccurredAt.IsZero() {
		event.OccurredAt = s.now()
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		slog.Warn("event_publish_failed",
			"kind", event.Kind,
			"application_id", event.ApplicationID,
			"error", err,
		)
	}
}

func (s *ApplicationStore) publishTransitions(ctx context.Context, app *domain.Application, records []domain.StatusTransitionRecord) {
	for _, record := range records {
		s.publish(ctx, domain.Event{
			Kind:           domain.EventStatusChanged,
			ApplicationID:  app.ID,
			OccurredAt:     record.At,
			Status:         record.To,
			PreviousStatus: record.From,
			Actor:          record.Actor,
			Summary:        record.Note,
		})
	}
}

type noopRecorder struct{}

func (noopRecorder) RecordNTB(bool) {}
func (noopRecorder) RecordEligibility(bool) {}
func (noopRecorder) RecordTransition(domain.ApplicationStatus, bool) {}

func recorderOrNoop(r ports.DecisionRecorder) ports.DecisionRecorder {
	if r == nil {
		return noopRecorder{}
	}
	return r
}
