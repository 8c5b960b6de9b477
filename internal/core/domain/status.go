package domain

import (
	"fmt"
	"strings"
	"time"
)

type ApplicationStatus string

const (
	StatusSubmitted         ApplicationStatus = "submitted"
	StatusAIAnalyzing       ApplicationStatus = "ai_analyzing"
	StatusPendingApproval   ApplicationStatus = "pending_approval"
	StatusDocumentGathering ApplicationStatus = "document_gathering"
	StatusAIProcessing      ApplicationStatus = "ai_processing"
	StatusFilePreparation   ApplicationStatus = "file_preparation"
	StatusUnderwriterReady  ApplicationStatus = "underwriter_ready"
	StatusInUnderwriting    ApplicationStatus = "in_underwriting"
	StatusApproved          ApplicationStatus = "approved"
	StatusDeclined          ApplicationStatus = "declined"
	StatusCancelled         ApplicationStatus = "cancelled"
	StatusClosed            ApplicationStatus = "closed"
)

var orderedStatuses = [...]ApplicationStatus{
	StatusSubmitted,
	StatusAIAnalyzing,
	StatusPendingApproval,
	StatusDocumentGathering,
	StatusAIProcessing,
	StatusFilePreparation,
	StatusUnderwriterReady,
	StatusInUnderwriting,
	StatusApproved,
	StatusDeclined,
	StatusCancelled,
	StatusClosed,
}

// Statuses returns every status in workflow order.
func Statuses() []ApplicationStatus {
	out := make([]ApplicationStatus, len(orderedStatuses))
	copy(out, orderedStatuses[:])
	return out
}

func (s ApplicationStatus) Valid() bool {
	for _, known := range orderedStatuses {
		if s == known {
			return true
		}
	}
	return false
}

func ParseApplicationStatus(raw string) (ApplicationStatus, error) {
	status := ApplicationStatus(strings.ToLower(strings.TrimSpace(raw)))
	if !status.Valid() {
		return "", WrapError(ErrInvalidInput, "parse status", fmt.Errorf("unknown status %q", raw))
	}
	return status, nil
}

type ApplicationType string

const (
	TypeRateAndTerm ApplicationType = "rate_and_term"
	TypeCashOut     ApplicationType = "cash_out"
)

func (t ApplicationType) Valid() bool {
	return t == TypeRateAndTerm || t == TypeCashOut
}

// StatusTransitionRecord is an append-only audit entry for one accepted transition.
type StatusTransitionRecord struct {
	From  ApplicationStatus `json:"from"`
	To    ApplicationStatus `json:"to"`
	At    time.Time         `json:"at"`
	Actor string            `json:"actor"`
	Note  string            `json:"note,omitempty"`
}
