package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kirillkom/irrrl-engine/internal/core/domain"
	"github.com/kirillkom/irrrl-engine/internal/core/eligibility"
	"github.com/kirillkom/irrrl-engine/internal/core/ntb"
	"github.com/kirillkom/irrrl-engine/internal/core/policy"
	"github.com/kirillkom/irrrl-engine/internal/core/workflow"
)

var fixedNow = time.Date(2025, time.May, 20, 14, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type saveCall struct {
	id       string
	status   domain.ApplicationStatus
	appended []domain.StatusTransitionRecord
}

type repoFake struct {
	mu      sync.Mutex
	apps    map[string]*domain.Application
	created []string
	saves   []saveCall
	saveErr error
}

func newRepoFake(apps ...*domain.Application) *repoFake {
	f := &repoFake{apps: map[string]*domain.Application{}}
	for _, app := range apps {
		f.apps[app.ID] = cloneApp(app)
	}
	return f
}

func cloneApp(app *domain.Application) *domain.Application {
	raw, err := json.Marshal(app)
	if err != nil {
		panic(err)
	}
	var out domain.Application
	if err := json.Unmarshal(raw, &out); err != nil {
		panic(err)
	}
	return &out
}

func (f *repoFake) Create(_ context.Context, app *domain.Application) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	app.Version = 1
	f.apps[app.ID] = cloneApp(app)
	f.created = append(f.created, app.ID)
	return nil
}

func (f *repoFake) GetByID(_ context.Context, id string) (*domain.Application, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	app, ok := f.apps[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrApplicationNotFound, "get application", fmt.Errorf("id %s", id))
	}
	return cloneApp(app), nil
}

func (f *repoFake) Save(_ context.Context, app *domain.Application, appended []domain.StatusTransitionRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	app.Version++
	f.apps[app.ID] = cloneApp(app)
	f.saves = append(f.saves, saveCall{id: app.ID, status: app.Status, appended: appended})
	return nil
}

func (f *repoFake) ListByStatus(_ context.Context, status domain.ApplicationStatus, limit int) ([]domain.ApplicationSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []domain.ApplicationSummary{}
	for _, app := range f.apps {
		if status != "" && app.Status != status {
			continue
		}
		if len(out) == limit {
			break
		}
		out = append(out, app.Summary())
	}
	return out, nil
}

func (f *repoFake) stored(t *testing.T, id string) *domain.Application {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	app, ok := f.apps[id]
	if !ok {
		t.Fatalf("expected stored application %s", id)
	}
	return app
}

type lockerFake struct {
	mu      sync.Mutex
	locks   int
	unlocks int
	err     error
}

func (f *lockerFake) Lock(context.Context, string) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.locks++
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.unlocks++
	}, nil
}

type publisherFake struct {
	mu     sync.Mutex
	events []domain.Event
	err    error
}

func (f *publisherFake) Publish(_ context.Context, event domain.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}

func (f *publisherFake) kinds() []domain.EventKind {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.EventKind, 0, len(f.events))
	for _, event := range f.events {
		out = append(out, event.Kind)
	}
	return out
}

type checklistFake struct {
	docs []domain.DocumentType
}

func (f checklistFake) RequiredDocuments(*domain.Application) []domain.DocumentType {
	return f.docs
}

type rendererFake struct {
	rendered *domain.Application
	err      error
}

func (f *rendererFake) RenderNTBWorksheet(app *domain.Application) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.rendered = app
	return []byte("xlsx"), nil
}

type recorderFake struct {
	ntb         []bool
	eligibility []bool
	transitions map[domain.ApplicationStatus][]bool
}

func (f *recorderFake) RecordNTB(passed bool) { f.ntb = append(f.ntb, passed) }

func (f *recorderFake) RecordEligibility(eligible bool) {
	f.eligibility = append(f.eligibility, eligible)
}

func (f *recorderFake) RecordTransition(target domain.ApplicationStatus, accepted bool) {
	if f.transitions == nil {
		f.transitions = map[domain.ApplicationStatus][]bool{}
	}
	f.transitions[target] = append(f.transitions[target], accepted)
}

type harness struct {
	repo      *repoFake
	locker    *lockerFake
	publisher *publisherFake
	renderer  *rendererFake
	recorder  *recorderFake
	store     *ApplicationStore
	machine   *workflow.Machine
	intake    *IntakeUseCase
	decision  *DecisionUseCase
	workflow  *WorkflowUseCase
	analysis  *AnalysisUseCase
	reader    *ApplicationReader
}

func newHarness(apps ...*domain.Application) *harness {
	h := &harness{
		repo:      newRepoFake(apps...),
		locker:    &lockerFake{},
		publisher: &publisherFake{},
		renderer:  &rendererFake{},
		recorder:  &recorderFake{},
		machine:   workflow.NewMachine(clock),
	}
	p := policy.Default()
	checklist := checklistFake{docs: []domain.DocumentType{domain.DocVALoanStatement, domain.DocPhotoID}}

	h.store = NewApplicationStore(h.repo, h.locker, h.publisher, clock)
	h.intake = NewIntakeUseCase(h.store, h.machine)
	h.decision = NewDecisionUseCase(
		h.store,
		ntb.NewCalculator(p),
		eligibility.NewVerifier(p, eligibility.WithClock(clock), eligibility.WithChecklist(checklist)),
		h.renderer,
		h.recorder,
	)
	h.workflow = NewWorkflowUseCase(h.store, h.machine, checklist, h.recorder)
	h.analysis = NewAnalysisUseCase(h.store, h.decision, h.workflow)
	h.reader = NewApplicationReader(h.store)
	return h
}

// eligibleApplication is a fixed-to-fixed refinance from 6.5% to 6.0% that passes every check.
func eligibleApplication(id string, status domain.ApplicationStatus) *domain.Application {
	return &domain.Application{
		ID:       id,
		Number:   "IRRRL-2025-" + id,
		Type:     domain.TypeRateAndTerm,
		Status:   status,
		Borrower: domain.Borrower{FirstName: "Dana", LastName: "Reyes"},
		Property: &domain.Property{CurrentlyOccupied: true},
		CurrentLoan: &domain.CurrentLoanSnapshot{
			Terms: domain.LoanTerms{
				Principal:         d("275000"),
				AnnualRatePercent: d("6.500"),
				TermMonths:        360,
				Kind:              domain.LoanFixedRate,
			},
			CurrentBalance:      d("250000"),
			RemainingTermMonths: 300,
			Payment:             domain.MonthlyPayment{PrincipalAndInterest: d("1688.02")},
			History:             domain.PaymentHistory{CurrentOnPayments: true},
			IsVALoan:            true,
		},
		Requested: domain.RequestedLoan{Terms: domain.LoanTerms{
			Principal:         d("250000"),
			AnnualRatePercent: d("6.000"),
			TermMonths:        300,
			Kind:              domain.LoanFixedRate,
		}},
		TotalLoanCosts: d("2500"),
		History:        []domain.StatusTransitionRecord{},
		Version:        1,
	}
}

var errBoom = errors.New("boom")
