package memory

import (
	"context"
	"testing"
	"time"

	"github.com/kirillkom/irrrl-engine/internal/core/domain"
)

func newApplication(id string, status domain.ApplicationStatus, updated time.Time) *domain.Application {
	return &domain.Application{
		ID:        id,
		Number:    "IRRRL-2025-" + id,
		Type:      domain.TypeRateAndTerm,
		Status:    status,
		Borrower:  domain.Borrower{FirstName: "Dana", LastName: "Reyes"},
		History:   []domain.StatusTransitionRecord{},
		UpdatedAt: updated,
	}
}

func TestCreateGetSaveRoundTrip(t *testing.T) {
	repo := NewApplicationRepository()
	ctx := context.Background()
	app := newApplication("a", domain.StatusSubmitted, time.Now().UTC())

	if err := repo.Create(ctx, app); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := repo.Create(ctx, app); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected duplicate create to fail, got %v", err)
	}

	loaded, err := repo.GetByID(ctx, "a")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	loaded.Status = domain.StatusAIAnalyzing
	loaded.History = append(loaded.History, domain.StatusTransitionRecord{From: domain.StatusSubmitted, To: domain.StatusAIAnalyzing})
	if err := repo.Save(ctx, loaded, loaded.History); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if loaded.Version != 2 {
		t.Fatalf("expected version 2, got %d", loaded.Version)
	}

	again, err := repo.GetByID(ctx, "a")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if again.Status != domain.StatusAIAnalyzing || len(again.History) != 1 {
		t.Fatalf("unexpected stored state %+v", again)
	}
}

func TestSaveDetectsStaleVersion(t *testing.T) {
	repo := NewApplicationRepository()
	ctx := context.Background()
	if err := repo.Create(ctx, newApplication("a", domain.StatusSubmitted, time.Now().UTC())); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	first, _ := repo.GetByID(ctx, "a")
	second, _ := repo.GetByID(ctx, "a")
	if err := repo.Save(ctx, first, nil); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := repo.Save(ctx, second, nil); !domain.IsKind(err, domain.ErrConcurrentModification) {
		t.Fatalf("expected ErrConcurrentModification, got %v", err)
	}
	if err := repo.Save(ctx, newApplication("zzz", domain.StatusSubmitted, time.Now()), nil); !domain.IsKind(err, domain.ErrApplicationNotFound) {
		t.Fatalf("expected ErrApplicationNotFound, got %v", err)
	}
}

func TestGetByIDReturnsIsolatedCopies(t *testing.T) {
	repo := NewApplicationRepository()
	ctx := context.Background()
	if err := repo.Create(ctx, newApplication("a", domain.StatusSubmitted, time.Now().UTC())); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	loaded, _ := repo.GetByID(ctx, "a")
	loaded.Borrower.FirstName = "changed"

	again, _ := repo.GetByID(ctx, "a")
	if again.Borrower.FirstName != "Dana" {
		t.Fatalf("expected stored copy to be unaffected")
	}
}

func TestListByStatusOrdersByUpdate(t *testing.T) {
	repo := NewApplicationRepository()
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		if err := repo.Create(ctx, newApplication(id, domain.StatusUnderwriterReady, base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}
	if err := repo.Create(ctx, newApplication("d", domain.StatusSubmitted, base)); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	items, err := repo.ListByStatus(ctx, domain.StatusUnderwriterReady, 2)
	if err != nil {
		t.Fatalf("ListByStatus() error = %v", err)
	}
	if len(items) != 2 || items[0].ID != "c" || items[1].ID != "b" {
		t.Fatalf("unexpected order %+v", items)
	}

	all, _ := repo.ListByStatus(ctx, "", 0)
	if len(all) != 4 {
		t.Fatalf("expected all applications, got %d", len(all))
	}
}
