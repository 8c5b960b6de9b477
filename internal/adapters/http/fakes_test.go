package httpadapter

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/kirillkom/irrrl-engine/internal/config"
	"github.com/kirillkom/irrrl-engine/internal/core/domain"
	"github.com/kirillkom/irrrl-engine/internal/core/workflow"
)

var fixedNow = time.Date(2025, time.May, 20, 14, 0, 0, 0, time.UTC)

type intakeFake struct {
	got domain.SubmitApplicationInput
	err error
}

func (f *intakeFake) Submit(_ context.Context, in domain.SubmitApplicationInput) (*domain.Application, error) {
	f.got = in
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Application{ID: "app-1", Number: "IRRRL-2025-ABCDEF12", Type: in.Type, Status: domain.StatusSubmitted}, nil
}

type readerFake struct {
	app       *domain.Application
	err       error
	gotStatus domain.ApplicationStatus
	gotLimit  int
}

func (f *readerFake) Get(_ context.Context, id string) (*domain.Application, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.app == nil || f.app.ID != id {
		return nil, domain.WrapError(domain.ErrApplicationNotFound, "get application", errors.New("id="+id))
	}
	return f.app, nil
}

func (f *readerFake) ListByStatus(_ context.Context, status domain.ApplicationStatus, limit int) ([]domain.ApplicationSummary, error) {
	f.gotStatus, f.gotLimit = status, limit
	if f.err != nil {
		return nil, f.err
	}
	return []domain.ApplicationSummary{{ID: "app-1", Status: domain.StatusUnderwriterReady, BorrowerName: "Dana Reyes"}}, nil
}

type decisionFake struct {
	ntb       domain.NetTangibleBenefitResult
	report    domain.EligibilityReport
	worksheet []byte
	err       error
}

func (f *decisionFake) CalculateNTB(context.Context, string) (domain.NetTangibleBenefitResult, error) {
	return f.ntb, f.err
}

func (f *decisionFake) VerifyEligibility(context.Context, string) (domain.EligibilityReport, error) {
	return f.report, f.err
}

func (f *decisionFake) Evaluate(context.Context, string) (*domain.Application, domain.EligibilityReport, error) {
	return nil, f.report, f.err
}

func (f *decisionFake) Worksheet(context.Context, string) ([]byte, error) {
	return f.worksheet, f.err
}

type workflowFake struct {
	outcome   workflow.Outcome
	outcomes  []workflow.Outcome
	allowed   []domain.ApplicationStatus
	docs      []domain.DocumentType
	err       error
	gotTarget domain.ApplicationStatus
	gotActor  string
	gotNote   string
	gotAction workflow.Action
}

func (f *workflowFake) Transition(_ context.Context, _ string, target domain.ApplicationStatus, actor, note string) (workflow.Outcome, error) {
	f.gotTarget, f.gotActor, f.gotNote = target, actor, note
	return f.outcome, f.err
}

func (f *workflowFake) AllowedTransitions(context.Context, string) ([]domain.ApplicationStatus, error) {
	return f.allowed, f.err
}

func (f *workflowFake) RunAction(_ context.Context, _ string, action workflow.Action) ([]workflow.Outcome, error) {
	f.gotAction = action
	return f.outcomes, f.err
}

func (f *workflowFake) Checklist(context.Context, string) ([]domain.DocumentType, error) {
	return f.docs, f.err
}

type testDeps struct {
	intake    *intakeFake
	reader    *readerFake
	decisions *decisionFake
	workflow  *workflowFake
}

func newTestDeps() *testDeps {
	return &testDeps{
		intake:    &intakeFake{},
		reader:    &readerFake{app: &domain.Application{ID: "app-1", Status: domain.StatusSubmitted, History: []domain.StatusTransitionRecord{}}},
		decisions: &decisionFake{},
		workflow:  &workflowFake{},
	}
}

func (d *testDeps) handler(cfg config.Config) http.Handler {
	return NewRouter(cfg, d.intake, d.reader, d.decisions, d.workflow).Handler()
}
