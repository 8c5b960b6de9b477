package usecase

import (
	"context"
	"fmt"

	"github.com/kirillkom/irrrl-engine/internal/core/domain"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

type ApplicationReader struct {
	store *ApplicationStore
}

func NewApplicationReader(store *ApplicationStore) *ApplicationReader {
	return &ApplicationReader{store: store}
}

func (r *ApplicationReader) Get(ctx context.Context, id string) (*domain.Application, error) {
	return r.store.load(ctx, id)
}

// ListByStatus backs the loan-officer dashboard and the underwriter queue.
func (r *ApplicationReader) ListByStatus(ctx context.Context, status domain.ApplicationStatus, limit int) ([]domain.ApplicationSummary, error) {
	if status != "" && !status.Valid() {
		return nil, domain.WrapError(domain.ErrInvalidInput, "list applications", fmt.Errorf("unknown status %q", status))
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	items, err := r.store.repo.ListByStatus(ctx, status, limit)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	return items, nil
}
