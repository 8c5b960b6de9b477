package ports

import (
	"context"

	"github.com/kirillkom/irrrl-engine/internal/core/domain"
	"github.com/kirillkom/irrrl-engine/internal/core/workflow"
)

// ApplicationIntake is the inbound contract for new applications.
type ApplicationIntake interface {
	Submit(ctx context.Context, in domain.SubmitApplicationInput) (*domain.Application, error)
}

// ApplicationReader is the inbound read model for dashboards and queues.
type ApplicationReader interface {
	Get(ctx context.Context, id string) (*domain.Application, error)
	ListByStatus(ctx context.Context, status domain.ApplicationStatus, limit int) ([]domain.ApplicationSummary, error)
}

// DecisionService runs the NTB calculation and eligibility verification.
type DecisionService interface {
	CalculateNTB(ctx context.Context, id string) (domain.NetTangibleBenefitResult, error)
	VerifyEligibility(ctx context.Context, id string) (domain.EligibilityReport, error)
	Evaluate(ctx context.Context, id string) (*domain.Application, domain.EligibilityReport, error)
	Worksheet(ctx context.Context, id string) ([]byte, error)
}

// WorkflowService applies status transitions.
type WorkflowService interface {
	Transition(ctx context.Context, id string, target domain.ApplicationStatus, actor, note string) (workflow.Outcome, error)
	AllowedTransitions(ctx context.Context, id string) ([]domain.ApplicationStatus, error)
	RunAction(ctx context.Context, id string, action workflow.Action) ([]workflow.Outcome, error)
	Checklist(ctx context.Context, id string) ([]domain.DocumentType, error)
}

// SubmittedAnalyzer is the inbound contract for asynchronous analysis of new applications.
type SubmittedAnalyzer interface {
	AnalyzeSubmitted(ctx context.Context, id string) error
}
