// Package memory is the in-process application repository used when no database is configured.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/kirillkom/irrrl-engine/internal/core/domain"
)

type ApplicationRepository struct {
	mu   sync.RWMutex
	apps map[string][]byte
}

func NewApplicationRepository() *ApplicationRepository {
	return &ApplicationRepository{apps: make(map[string][]byte)}
}

// Stored copies are encoded so callers never share slices or pointers with the store.
func encode(app *domain.Application) ([]byte, error) {
	raw, err := json.Marshal(app)
	if err != nil {
		return nil, fmt.Errorf("encode application: %w", err)
	}
	return raw, nil
}

func decode(raw []byte) (*domain.Application, error) {
	var app domain.Application
	if err := json.Unmarshal(raw, &app); err != nil {
		return nil, fmt.Errorf("decode application: %w", err)
	}
	return &app, nil
}

func (r *ApplicationRepository) Create(_ context.Context, app *domain.Application) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.apps[app.ID]; exists {
		return domain.WrapError(domain.ErrInvalidInput, "create application", fmt.Errorf("duplicate id=%s", app.ID))
	}
	stored := *app
	stored.Version = 1
	raw, err := encode(&stored)
	if err != nil {
		return err
	}
	r.apps[app.ID] = raw
	app.Version = 1
	return nil
}

func (r *ApplicationRepository) GetByID(_ context.Context, id string) (*domain.Application, error) {
	r.mu.RLock()
	raw, ok := r.apps[id]
	r.mu.RUnlock()
	if !ok {
		return nil, domain.WrapError(domain.ErrApplicationNotFound, "get application", fmt.Errorf("id=%s", id))
	}
	return decode(raw)
}

// Save replaces the stored aggregate when the version matches. The history is taken from app,
// which already carries the appended records.
func (r *ApplicationRepository) Save(_ context.Context, app *domain.Application, _ []domain.StatusTransitionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	raw, ok := r.apps[app.ID]
	if !ok {
		return domain.WrapError(domain.ErrApplicationNotFound, "save application", fmt.Errorf("id=%s", app.ID))
	}
	current, err := decode(raw)
	if err != nil {
		return err
	}
	if current.Version != app.Version {
		return domain.WrapError(
			domain.ErrConcurrentModification,
			"save application",
			fmt.Errorf("id=%s expected version %d, stored %d", app.ID, app.Version, current.Version),
		)
	}

	next := *app
	next.Version = app.Version + 1
	encoded, err := encode(&next)
	if err != nil {
		return err
	}
	r.apps[app.ID] = encoded
	app.Version = next.Version
	return nil
}

func (r *ApplicationRepository) ListByStatus(_ context.Context, status domain.ApplicationStatus, limit int) ([]domain.ApplicationSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.ApplicationSummary, 0)
	for _, raw := range r.apps {
		app, err := decode(raw)
		if err != nil {
			return nil, err
		}
		if status != "" && app.Status != status {
			continue
		}
		out = append(out, app.Summary())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
