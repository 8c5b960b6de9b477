package usecase

import (
	"context"
	"log/slog"

	"github.com/kirillkom/irrrl-engine/internal/core/domain"
	"github.com/kirillkom/irrrl-engine/internal/core/ports"
	"github.com/kirillkom/irrrl-engine/internal/core/workflow"
)

type WorkflowUseCase struct {
	store     *ApplicationStore
	machine   *workflow.Machine
	checklist ports.DocumentChecklist
	recorder  ports.DecisionRecorder
}

func NewWorkflowUseCase(
	store *ApplicationStore,
	machine *workflow.Machine,
	checklist ports.DocumentChecklist,
	recorder ports.DecisionRecorder,
) *WorkflowUseCase {
	return &WorkflowUseCase{
		store:     store,
		machine:   machine,
		checklist: checklist,
		recorder:  recorderOrNoop(recorder),
	}
}

// Transition requests a single status change. A rejected request is reported in the outcome
// and leaves the stored application unchanged.
func (uc *WorkflowUseCase) Transition(
	ctx context.Context,
	id string,
	target domain.ApplicationStatus,
	actor, note string,
) (workflow.Outcome, error) {
	var outcome workflow.Outcome
	app, records, err := uc.store.mutate(ctx, id, func(app *domain.Application) (bool, error) {
		outcome = uc.machine.RequestTransition(app, target, actor, note)
		uc.observe(app.ID, outcome)
		return outcome.Accepted, nil
	})
	if err != nil {
		return workflow.Outcome{}, err
	}
	uc.store.publishTransitions(ctx, app, records)
	return outcome, nil
}

func (uc *WorkflowUseCase) AllowedTransitions(ctx context.Context, id string) ([]domain.ApplicationStatus, error) {
	app, err := uc.store.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return uc.machine.Allowed(app), nil
}

// RunAction applies a workflow helper. Multi-step actions run under one lock so no other
// transition interleaves.
func (uc *WorkflowUseCase) RunAction(ctx context.Context, id string, action workflow.Action) ([]workflow.Outcome, error) {
	var outcomes []workflow.Outcome
	app, records, err := uc.store.mutate(ctx, id, func(app *domain.Application) (bool, error) {
		var err error
		outcomes, err = uc.machine.Run(app, action)
		if err != nil {
			return false, err
		}
		accepted := false
		for _, outcome := range outcomes {
			uc.observe(app.ID, outcome)
			accepted = accepted || outcome.Accepted
		}
		return accepted, nil
	})
	if err != nil {
		return nil, err
	}
	uc.store.publishTransitions(ctx, app, records)
	return outcomes, nil
}

func (uc *WorkflowUseCase) StartAIAnalysis(ctx context.Context, id string) ([]workflow.Outcome, error) {
	return uc.RunAction(ctx, id, workflow.ActionStartAnalysis)
}

func (uc *WorkflowUseCase) CompleteAIAnalysis(ctx context.Context, id string) ([]workflow.Outcome, error) {
	return uc.RunAction(ctx, id, workflow.ActionCompleteAnalysis)
}

func (uc *WorkflowUseCase) StartDocumentGathering(ctx context.Context, id string) ([]workflow.Outcome, error) {
	return uc.RunAction(ctx, id, workflow.ActionStartDocumentGathering)
}

func (uc *WorkflowUseCase) CompleteDocumentGathering(ctx context.Context, id string) ([]workflow.Outcome, error) {
	return uc.RunAction(ctx, id, workflow.ActionCompleteDocumentGathering)
}

func (uc *WorkflowUseCase) PrepareForUnderwriter(ctx context.Context, id string) ([]workflow.Outcome, error) {
	return uc.RunAction(ctx, id, workflow.ActionPrepareForUnderwriter)
}

// Checklist lists the documents the application must provide.
func (uc *WorkflowUseCase) Checklist(ctx context.Context, id string) ([]domain.DocumentType, error) {
	app, err := uc.store.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return uc.checklist.RequiredDocuments(app), nil
}

func (uc *WorkflowUseCase) observe(applicationID string, outcome workflow.Outcome) {
	uc.recorder.RecordTransition(outcome.To, outcome.Accepted)
	if !outcome.Accepted {
		slog.Info("transition_rejected",
			"application_id", applicationID,
			"from", outcome.From,
			"to", outcome.To,
			"reason", outcome.Reason,
		)
	}
}
