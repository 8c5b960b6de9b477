package usecase

import (
	"context"
	"testing"

	"github.com/kirillkom/irrrl-engine/internal/core/domain"
	"github.com/kirillkom/irrrl-engine/internal/core/workflow"
)

func TestAnalyzeSubmittedAdvancesEligibleApplication(t *testing.T) {
	h := newHarness(eligibleApplication("app-1", domain.StatusSubmitted))

	if err := h.analysis.AnalyzeSubmitted(context.Background(), "app-1"); err != nil {
		t.Fatalf("AnalyzeSubmitted() error = %v", err)
	}

	stored := h.repo.stored(t, "app-1")
	if stored.Status != domain.StatusDocumentGathering {
		t.Fatalf("expected document_gathering, got %s", stored.Status)
	}
	if stored.NTB == nil || !stored.EligibilityVerified {
		t.Fatalf("expected evaluation results on aggregate")
	}
	if len(h.repo.saves) != 1 || len(h.repo.saves[0].appended) != 2 {
		t.Fatalf("expected one save with two records, got %+v", h.repo.saves)
	}
	if err := workflow.ValidateHistory(stored); err != nil {
		t.Fatalf("ValidateHistory() error = %v", err)
	}

	kinds := h.publisher.kinds()
	want := []domain.EventKind{
		domain.EventNTBCalculated,
		domain.EventEligibilityVerified,
		domain.EventStatusChanged,
		domain.EventStatusChanged,
	}
	if len(kinds) != len(want) {
		t.Fatalf("expected events %v, got %v", want, kinds)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("expected events %v, got %v", want, kinds)
		}
	}
}

func TestAnalyzeSubmittedDeclinesIneligibleRateAndTerm(t *testing.T) {
	app := eligibleApplication("app-1", domain.StatusSubmitted)
	app.CurrentLoan.Payment.PrincipalAndInterest = d("1600.00")
	h := newHarness(app)

	if err := h.analysis.AnalyzeSubmitted(context.Background(), "app-1"); err != nil {
		t.Fatalf("AnalyzeSubmitted() error = %v", err)
	}

	stored := h.repo.stored(t, "app-1")
	if stored.Status != domain.StatusDeclined {
		t.Fatalf("expected declined, got %s", stored.Status)
	}
	if stored.Dates.DeclineReason != stored.EligibilityNotes || stored.Dates.DeclineReason == "" {
		t.Fatalf("expected decline reason from report summary, got %q", stored.Dates.DeclineReason)
	}
	last := stored.History[len(stored.History)-1]
	if last.Actor != workflow.SystemActor || last.To != domain.StatusDeclined {
		t.Fatalf("unexpected final record %+v", last)
	}
}

func TestAnalyzeSubmittedStopsCashOutForReview(t *testing.T) {
	app := eligibleApplication("app-1", domain.StatusSubmitted)
	app.Type = domain.TypeCashOut
	app.Requested.CashOut = &domain.CashOut{Amount: d("20000")}
	h := newHarness(app)

	if err := h.analysis.AnalyzeSubmitted(context.Background(), "app-1"); err != nil {
		t.Fatalf("AnalyzeSubmitted() error = %v", err)
	}
	stored := h.repo.stored(t, "app-1")
	if stored.Status != domain.StatusPendingApproval || len(stored.History) != 1 {
		t.Fatalf("expected pending_approval with one record, got %s with %d", stored.Status, len(stored.History))
	}
}

func TestAnalyzeSubmittedSkipsProcessedApplication(t *testing.T) {
	h := newHarness(eligibleApplication("app-1", domain.StatusDocumentGathering))

	if err := h.analysis.AnalyzeSubmitted(context.Background(), "app-1"); err != nil {
		t.Fatalf("AnalyzeSubmitted() error = %v", err)
	}
	if len(h.repo.saves) != 0 || len(h.publisher.events) != 0 {
		t.Fatalf("expected redelivery to be a no-op")
	}
}

func TestReaderListByStatus(t *testing.T) {
	h := newHarness(
		eligibleApplication("app-1", domain.StatusUnderwriterReady),
		eligibleApplication("app-2", domain.StatusSubmitted),
	)

	items, err := h.reader.ListByStatus(context.Background(), domain.StatusUnderwriterReady, 0)
	if err != nil {
		t.Fatalf("ListByStatus() error = %v", err)
	}
	if len(items) != 1 || items[0].ID != "app-1" {
		t.Fatalf("unexpected items %+v", items)
	}

	if _, err := h.reader.ListByStatus(context.Background(), "funded", 10); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}

	app, err := h.reader.Get(context.Background(), "app-2")
	if err != nil || app.Status != domain.StatusSubmitted {
		t.Fatalf("Get() = %v, %v", app, err)
	}
	if _, err := h.reader.Get(context.Background(), ""); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty id, got %v", err)
	}
}
