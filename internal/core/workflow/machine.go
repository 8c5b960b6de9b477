// Package workflow holds the application status state machine.
//
// The transition table is fixed policy. Callers serialize transitions per application; the
// machine itself keeps no state beyond its clock.
package workflow

import (
	"fmt"
	"slices"
	"time"

	"github.com/kirillkom/irrrl-engine/internal/core/domain"
)

// SystemActor is recorded for transitions driven by the workflow helpers.
const SystemActor = "system"

var transitions = map[domain.ApplicationStatus][]domain.ApplicationStatus{
	domain.StatusSubmitted:         {domain.StatusAIAnalyzing, domain.StatusPendingApproval, domain.StatusCancelled},
	domain.StatusAIAnalyzing:       {domain.StatusDocumentGathering, domain.StatusDeclined, domain.StatusCancelled},
	domain.StatusPendingApproval:   {domain.StatusAIAnalyzing, domain.StatusDeclined, domain.StatusCancelled},
	domain.StatusDocumentGathering: {domain.StatusAIProcessing, domain.StatusCancelled},
	domain.StatusAIProcessing:      {domain.StatusFilePreparation, domain.StatusDocumentGathering, domain.StatusCancelled},
	domain.StatusFilePreparation:   {domain.StatusUnderwriterReady, domain.StatusDocumentGathering, domain.StatusCancelled},
	domain.StatusUnderwriterReady:  {domain.StatusInUnderwriting, domain.StatusCancelled},
	domain.StatusInUnderwriting:    {domain.StatusApproved, domain.StatusDeclined, domain.StatusDocumentGathering, domain.StatusCancelled},
	domain.StatusApproved:          {domain.StatusClosed},
	domain.StatusDeclined:          {},
	domain.StatusCancelled:         {},
	domain.StatusClosed:            {},
}

// CanTransition reports whether the table allows from → to.
func CanTransition(from, to domain.ApplicationStatus) bool {
	return slices.Contains(transitions[from], to)
}

// AllowedTransitions returns a copy of the allowed targets for status.
func AllowedTransitions(status domain.ApplicationStatus) []domain.ApplicationStatus {
	return slices.Clone(transitions[status])
}

func IsTerminal(status domain.ApplicationStatus) bool {
	next, ok := transitions[status]
	return ok && len(next) == 0
}

// Outcome reports the result of a transition request. A rejected outcome leaves the
// application untouched.
type Outcome struct {
	Accepted bool                           `json:"accepted"`
	From     domain.ApplicationStatus       `json:"from"`
	To       domain.ApplicationStatus       `json:"to"`
	Record   *domain.StatusTransitionRecord `json:"record,omitempty"`
	Reason   string                         `json:"reason,omitempty"`
}

type Machine struct {
	now func() time.Time
}

func NewMachine(now func() time.Time) *Machine {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Machine{now: now}
}

// allowedFor extends the table with type-dependent guards.
func allowedFor(app *domain.Application, target domain.ApplicationStatus) (bool, string) {
	if !CanTransition(app.Status, target) {
		if IsTerminal(app.Status) {
			return false, fmt.Sprintf("status %s is terminal", app.Status)
		}
		return false, fmt.Sprintf("transition %s -> %s is not allowed", app.Status, target)
	}
	if app.Type == domain.TypeCashOut && app.Status == domain.StatusSubmitted && target == domain.StatusAIAnalyzing {
		return false, "cash-out applications must pass through pending_approval before ai_analyzing"
	}
	return true, ""
}

// Allowed returns the targets this application may move to, guards included.
func (m *Machine) Allowed(app *domain.Application) []domain.ApplicationStatus {
	if app == nil {
		return []domain.ApplicationStatus{}
	}
	out := make([]domain.ApplicationStatus, 0, len(transitions[app.Status]))
	for _, target := range transitions[app.Status] {
		if ok, _ := allowedFor(app, target); ok {
			out = append(out, target)
		}
	}
	return out
}

// RequestTransition moves app to target when allowed, appending one history record and firing
// the side effects of the target status.
func (m *Machine) RequestTransition(app *domain.Application, target domain.ApplicationStatus, actor, note string) Outcome {
	if app == nil {
		return Outcome{To: target, Reason: "application is required"}
	}
	outcome := Outcome{From: app.Status, To: target}
	if !target.Valid() {
		outcome.Reason = fmt.Sprintf("unknown status %q", target)
		return outcome
	}
	if ok, reason := allowedFor(app, target); !ok {
		outcome.Reason = reason
		return outcome
	}

	at := m.now()
	record := domain.StatusTransitionRecord{
		From:  app.Status,
		To:    target,
		At:    at,
		Actor: actor,
		Note:  note,
	}
	app.Status = target
	app.History = append(app.History, record)
	app.UpdatedAt = at
	applySideEffects(app, target, actor, note, at)

	outcome.Accepted = true
	outcome.Record = &record
	return outcome
}

// MarkSubmitted stamps a new application as submitted. Intake is the entry point of the
// table, so no history record is appended.
func (m *Machine) MarkSubmitted(app *domain.Application, actor string) {
	at := m.now()
	app.Status = domain.StatusSubmitted
	app.UpdatedAt = at
	applySideEffects(app, domain.StatusSubmitted, actor, "", at)
}

func applySideEffects(app *domain.Application, target domain.ApplicationStatus, actor, note string, at time.Time) {
	switch target {
	case domain.StatusSubmitted:
		app.Dates.SubmittedAt = &at
	case domain.StatusApproved:
		app.Dates.ApprovedAt = &at
		app.Dates.ApprovedBy = actor
	case domain.StatusDeclined:
		app.Dates.DeclineReason = note
	case domain.StatusClosed:
		app.Dates.CompletedAt = &at
		closing := at
		app.Dates.ActualClosingAt = &closing
	}
}

// StartAIAnalysis routes cash-out applications to manual review and everything else to analysis.
func (m *Machine) StartAIAnalysis(app *domain.Application) Outcome {
	if app != nil && app.Type == domain.TypeCashOut {
		return m.RequestTransition(app, domain.StatusPendingApproval, SystemActor,
			"Cash-out application flagged for manual review")
	}
	return m.RequestTransition(app, domain.StatusAIAnalyzing, SystemActor,
		"Starting AI analysis for rate-and-term refinance")
}

func (m *Machine) CompleteAIAnalysis(app *domain.Application) Outcome {
	return m.RequestTransition(app, domain.StatusDocumentGathering, SystemActor,
		"AI analysis complete. Action items generated for loan officer.")
}

func (m *Machine) StartDocumentGathering(app *domain.Application) Outcome {
	return m.RequestTransition(app, domain.StatusDocumentGathering, SystemActor,
		"Document gathering phase started")
}

func (m *Machine) CompleteDocumentGathering(app *domain.Application) Outcome {
	return m.RequestTransition(app, domain.StatusAIProcessing, SystemActor,
		"All required documents received. Starting AI processing.")
}

// PrepareForUnderwriter runs file_preparation then underwriter_ready. The second step is not
// attempted when the first is rejected.
func (m *Machine) PrepareForUnderwriter(app *domain.Application) []Outcome {
	first := m.RequestTransition(app, domain.StatusFilePreparation, SystemActor,
		"Preparing final file package for underwriter")
	if !first.Accepted {
		return []Outcome{first}
	}
	second := m.RequestTransition(app, domain.StatusUnderwriterReady, SystemActor,
		"File package complete and ready for underwriting")
	return []Outcome{first, second}
}

// ValidateHistory replays the recorded transitions from submitted and confirms the chain ends
// at the current status.
func ValidateHistory(app *domain.Application) error {
	if app == nil {
		return domain.WrapError(domain.ErrInconsistentState, "validate history", fmt.Errorf("application is required"))
	}
	replay := &domain.Application{Type: app.Type, Status: domain.StatusSubmitted}
	for i, record := range app.History {
		if record.From != replay.Status {
			return domain.WrapError(domain.ErrInconsistentState, "validate history",
				fmt.Errorf("record %d starts at %s, expected %s", i, record.From, replay.Status))
		}
		if ok, reason := allowedFor(replay, record.To); !ok {
			return domain.WrapError(domain.ErrInconsistentState, "validate history",
				fmt.Errorf("record %d: %s", i, reason))
		}
		replay.Status = record.To
	}
	if replay.Status != app.Status {
		return domain.WrapError(domain.ErrInconsistentState, "validate history",
			fmt.Errorf("history ends at %s but status is %s", replay.Status, app.Status))
	}
	return nil
}

// Action names a workflow helper invocable by external callers.
type Action string

const (
	ActionStartAnalysis             Action = "start-analysis"
	ActionCompleteAnalysis          Action = "complete-analysis"
	ActionStartDocumentGathering    Action = "start-document-gathering"
	ActionCompleteDocumentGathering Action = "complete-document-gathering"
	ActionPrepareForUnderwriter     Action = "prepare-for-underwriter"
)

func ParseAction(raw string) (Action, error) {
	switch action := Action(raw); action {
	case ActionStartAnalysis, ActionCompleteAnalysis, ActionStartDocumentGathering,
		ActionCompleteDocumentGathering, ActionPrepareForUnderwriter:
		return action, nil
	}
	return "", domain.WrapError(domain.ErrInvalidInput, "parse action", fmt.Errorf("unknown workflow action %q", raw))
}

// Run dispatches action to its helper. Every action yields at least one outcome.
func (m *Machine) Run(app *domain.Application, action Action) ([]Outcome, error) {
	switch action {
	case ActionStartAnalysis:
		return []Outcome{m.StartAIAnalysis(app)}, nil
	case ActionCompleteAnalysis:
		return []Outcome{m.CompleteAIAnalysis(app)}, nil
	case ActionStartDocumentGathering:
		return []Outcome{m.StartDocumentGathering(app)}, nil
	case ActionCompleteDocumentGathering:
		return []Outcome{m.CompleteDocumentGathering(app)}, nil
	case ActionPrepareForUnderwriter:
		return m.PrepareForUnderwriter(app), nil
	}
	return nil, domain.WrapError(domain.ErrInvalidInput, "run action", fmt.Errorf("unknown workflow action %q", action))
}
