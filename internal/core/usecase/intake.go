package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/kirillkom/irrrl-engine/internal/core/domain"
	"github.com/kirillkom/irrrl-engine/internal/core/workflow"
)

type IntakeUseCase struct {
	store   *ApplicationStore
	machine *workflow.Machine
}

func NewIntakeUseCase(store *ApplicationStore, machine *workflow.Machine) *IntakeUseCase {
	return &IntakeUseCase{store: store, machine: machine}
}

func (uc *IntakeUseCase) Submit(ctx context.Context, in domain.SubmitApplicationInput) (*domain.Application, error) {
	if err := validateSubmission(in); err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "submit application", err)
	}

	id := uuid.NewString()
	now := uc.store.now()
	app := &domain.Application{
		ID:                id,
		Number:            fmt.Sprintf("IRRRL-%d-%s", now.Year(), strings.ToUpper(id[:8])),
		Type:              in.Type,
		Borrower:          in.Borrower,
		Property:          in.Property,
		CurrentLoan:       in.CurrentLoan,
		Requested:         in.Requested,
		TotalClosingCosts: in.TotalClosingCosts,
		TotalLoanCosts:    in.TotalLoanCosts,
		History:           []domain.StatusTransitionRecord{},
		CreatedAt:         now,
	}
	app.Dates.EstimatedClosingAt = in.EstimatedClosingAt
	if app.Requested.Terms.Kind == "" {
		app.Requested.Terms.Kind = domain.LoanFixedRate
	}
	uc.machine.MarkSubmitted(app, in.SubmittedBy)

	if err := uc.store.repo.Create(ctx, app); err != nil {
		return nil, fmt.Errorf("create application: %w", err)
	}

	uc.store.publish(ctx, domain.Event{
		Kind:          domain.EventApplicationSubmitted,
		ApplicationID: app.ID,
		Status:        app.Status,
		Actor:         in.SubmittedBy,
	})
	return app, nil
}

func validateSubmission(in domain.SubmitApplicationInput) error {
	var problems []string
	if !in.Type.Valid() {
		problems = append(problems, fmt.Sprintf("unknown application type %q", in.Type))
	}
	if strings.TrimSpace(in.Borrower.FirstName) == "" || strings.TrimSpace(in.Borrower.LastName) == "" {
		problems = append(problems, "borrower first and last name are required")
	}
	if in.Borrower.DisabilityPercentage < 0 || in.Borrower.DisabilityPercentage > 100 {
		problems = append(problems, "disability percentage must be between 0 and 100")
	}

	terms := in.Requested.Terms
	if !terms.Principal.IsPositive() {
		problems = append(problems, "requested principal must be positive")
	}
	if !terms.AnnualRatePercent.IsPositive() {
		problems = append(problems, "requested rate must be positive")
	}
	if terms.TermMonths <= 0 {
		problems = append(problems, "requested term must be positive")
	} else if terms.TermMonths > domain.MaxTermMonths {
		problems = append(problems, fmt.Sprintf("requested term cannot exceed %d months", domain.MaxTermMonths))
	}
	if terms.Kind != "" && !terms.Kind.Valid() {
		problems = append(problems, fmt.Sprintf("unknown requested loan kind %q", terms.Kind))
	}

	if loan := in.CurrentLoan; loan != nil {
		if !loan.Terms.Kind.Valid() {
			problems = append(problems, fmt.Sprintf("unknown current loan kind %q", loan.Terms.Kind))
		}
		if loan.CurrentBalance.IsNegative() || loan.RemainingTermMonths < 0 {
			problems = append(problems, "current loan balance and remaining term cannot be negative")
		}
	}

	if in.TotalLoanCosts.IsNegative() || in.TotalClosingCosts.IsNegative() {
		problems = append(problems, "costs cannot be negative")
	}
	if in.Type == domain.TypeCashOut && !in.Requested.CashOutAmount().IsPositive() {
		problems = append(problems, "cash-out applications require a positive cash-out amount")
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}
