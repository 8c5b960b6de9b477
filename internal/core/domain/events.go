package domain

import "time"

type EventKind string

const (
	EventApplicationSubmitted EventKind = "application.submitted"
	EventStatusChanged        EventKind = "application.status_changed"
	EventNTBCalculated        EventKind = "application.ntb_calculated"
	EventEligibilityVerified  EventKind = "application.eligibility_verified"
)

// Event is a fire-and-forget notification emitted after a successful change.
type Event struct {
	ID             string            `json:"id"`
	Kind           EventKind         `json:"kind"`
	ApplicationID  string            `json:"application_id"`
	OccurredAt     time.Time         `json:"occurred_at"`
	Status         ApplicationStatus `json:"status,omitempty"`
	PreviousStatus ApplicationStatus `json:"previous_status,omitempty"`
	Actor          string            `json:"actor,omitempty"`
	Passed         *bool             `json:"passed,omitempty"`
	Summary        string            `json:"summary,omitempty"`
}
