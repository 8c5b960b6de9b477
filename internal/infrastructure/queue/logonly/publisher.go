// Package logonly records events in the service log when no message broker is configured.
package logonly

import (
	"context"
	"log/slog"

	"github.com/kirillkom/irrrl-engine/internal/core/domain"
)

type Publisher struct{}

func (Publisher) Publish(_ context.Context, event domain.Event) error {
	slog.Info("event_published",
		"event_id", event.ID,
		"kind", string(event.Kind),
		"application_id", event.ApplicationID,
		"status", string(event.Status),
		"previous_status", string(event.PreviousStatus),
		"actor", event.Actor,
	)
	return nil
}
