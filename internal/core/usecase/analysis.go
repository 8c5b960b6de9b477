package usecase

import (
	"context"
	"log/slog"

	"github.com/kirillkom/irrrl-engine/internal/core/domain"
	"github.com/kirillkom/irrrl-engine/internal/core/workflow"
)

// AnalysisUseCase is the background pipeline for newly submitted applications.
type AnalysisUseCase struct {
	store    *ApplicationStore
	decision *DecisionUseCase
	workflow *WorkflowUseCase
}

func NewAnalysisUseCase(store *ApplicationStore, decision *DecisionUseCase, wf *WorkflowUseCase) *AnalysisUseCase {
	return &AnalysisUseCase{store: store, decision: decision, workflow: wf}
}

// AnalyzeSubmitted evaluates a submitted application and routes it. Rate-and-term applications
// advance to document gathering when eligible and are declined otherwise; cash-out
// applications stop in pending approval. Applications no longer in submitted are skipped so
// a redelivered event is harmless.
func (uc *AnalysisUseCase) AnalyzeSubmitted(ctx context.Context, id string) error {
	var (
		report     domain.EligibilityReport
		calculated bool
		skipped    bool
	)
	machine := uc.workflow.machine

	app, records, err := uc.store.mutate(ctx, id, func(app *domain.Application) (bool, error) {
		if app.Status != domain.StatusSubmitted {
			skipped = true
			return false, nil
		}

		var err error
		calculated, report, err = uc.decision.evaluate(app)
		if err != nil {
			return false, err
		}

		outcome := machine.StartAIAnalysis(app)
		uc.workflow.observe(app.ID, outcome)
		if !outcome.Accepted || app.Status != domain.StatusAIAnalyzing {
			return true, nil
		}

		if report.IsEligible {
			outcome = machine.CompleteAIAnalysis(app)
		} else {
			outcome = machine.RequestTransition(app, domain.StatusDeclined, workflow.SystemActor, report.Summary)
		}
		uc.workflow.observe(app.ID, outcome)
		return true, nil
	})
	if err != nil {
		return err
	}
	if skipped {
		slog.Info("analysis_skipped", "application_id", id, "status", app.Status)
		return nil
	}

	if calculated {
		uc.decision.publishNTB(ctx, app)
	}
	uc.decision.publishEligibility(ctx, app, report)
	uc.store.publishTransitions(ctx, app, records)

	slog.Info("analysis_completed",
		"application_id", app.ID,
		"status", app.Status,
		"eligible", report.IsEligible,
	)
	return nil
}
