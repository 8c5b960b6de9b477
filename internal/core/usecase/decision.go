package usecase

import (
	"context"
	"fmt"

	"github.com/kirillkom/irrrl-engine/internal/core/domain"
	"github.com/kirillkom/irrrl-engine/internal/core/eligibility"
	"github.com/kirillkom/irrrl-engine/internal/core/ntb"
	"github.com/kirillkom/irrrl-engine/internal/core/ports"
)

type DecisionUseCase struct {
	store      *ApplicationStore
	calculator *ntb.Calculator
	verifier   *eligibility.Verifier
	renderer   ports.WorksheetRenderer
	recorder   ports.DecisionRecorder
}

func NewDecisionUseCase(
	store *ApplicationStore,
	calculator *ntb.Calculator,
	verifier *eligibility.Verifier,
	renderer ports.WorksheetRenderer,
	recorder ports.DecisionRecorder,
) *DecisionUseCase {
	return &DecisionUseCase{
		store:      store,
		calculator: calculator,
		verifier:   verifier,
		renderer:   renderer,
		recorder:   recorderOrNoop(recorder),
	}
}

// CalculateNTB recomputes and stores the NTB result, replacing any earlier one.
func (uc *DecisionUseCase) CalculateNTB(ctx context.Context, id string) (domain.NetTangibleBenefitResult, error) {
	var result domain.NetTangibleBenefitResult
	app, _, err := uc.store.mutate(ctx, id, func(app *domain.Application) (bool, error) {
		res, err := uc.applyNTB(app)
		if err != nil {
			return false, err
		}
		result = res
		return true, nil
	})
	if err != nil {
		return domain.NetTangibleBenefitResult{}, err
	}
	uc.publishNTB(ctx, app)
	return result, nil
}

// VerifyEligibility runs the checks against the stored NTB result and records the verdict.
func (uc *DecisionUseCase) VerifyEligibility(ctx context.Context, id string) (domain.EligibilityReport, error) {
	var report domain.EligibilityReport
	app, _, err := uc.store.mutate(ctx, id, func(app *domain.Application) (bool, error) {
		report = uc.applyEligibility(app)
		return true, nil
	})
	if err != nil {
		return domain.EligibilityReport{}, err
	}
	uc.publishEligibility(ctx, app, report)
	return report, nil
}

// Evaluate calculates NTB when the current loan is known, then verifies eligibility.
func (uc *DecisionUseCase) Evaluate(ctx context.Context, id string) (*domain.Application, domain.EligibilityReport, error) {
	var (
		report     domain.EligibilityReport
		calculated bool
	)
	app, _, err := uc.store.mutate(ctx, id, func(app *domain.Application) (bool, error) {
		var err error
		calculated, report, err = uc.evaluate(app)
		return true, err
	})
	if err != nil {
		return nil, domain.EligibilityReport{}, err
	}
	if calculated {
		uc.publishNTB(ctx, app)
	}
	uc.publishEligibility(ctx, app, report)
	return app, report, nil
}

// Worksheet renders the NTB worksheet. A missing result is computed for the worksheet only.
func (uc *DecisionUseCase) Worksheet(ctx context.Context, id string) ([]byte, error) {
	app, err := uc.store.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if app.NTB == nil {
		res, err := uc.calculator.Calculate(app)
		if err != nil {
			return nil, err
		}
		app.NTB = &res
	}
	data, err := uc.renderer.RenderNTBWorksheet(app)
	if err != nil {
		return nil, fmt.Errorf("render ntb worksheet: %w", err)
	}
	return data, nil
}

// evaluate mutates app in place and reports whether the NTB result was refreshed.
func (uc *DecisionUseCase) evaluate(app *domain.Application) (bool, domain.EligibilityReport, error) {
	calculated := false
	if app.CurrentLoan != nil {
		if _, err := uc.applyNTB(app); err != nil {
			return false, domain.EligibilityReport{}, err
		}
		calculated = true
	}
	return calculated, uc.applyEligibility(app), nil
}

func (uc *DecisionUseCase) applyNTB(app *domain.Application) (domain.NetTangibleBenefitResult, error) {
	res, err := uc.calculator.Calculate(app)
	if err != nil {
		return domain.NetTangibleBenefitResult{}, err
	}
	now := uc.store.now()
	app.NTB = &res
	app.NTBCalculatedAt = &now
	app.UpdatedAt = now
	uc.recorder.RecordNTB(res.PassesNTB)
	return res, nil
}

func (uc *DecisionUseCase) applyEligibility(app *domain.Application) domain.EligibilityReport {
	report := uc.verifier.Verify(app)
	app.EligibilityVerified = report.IsEligible
	app.EligibilityNotes = report.Summary
	app.UpdatedAt = uc.store.now()
	uc.recorder.RecordEligibility(report.IsEligible)
	return report
}

func (uc *DecisionUseCase) publishNTB(ctx context.Context, app *domain.Application) {
	if app.NTB == nil {
		return
	}
	passed := app.NTB.PassesNTB
	uc.store.publish(ctx, domain.Event{
		Kind:          domain.EventNTBCalculated,
		ApplicationID: app.ID,
		Status:        app.Status,
		Passed:        &passed,
	})
}

func (uc *DecisionUseCase) publishEligibility(ctx context.Context, app *domain.Application, report domain.EligibilityReport) {
	eligible := report.IsEligible
	uc.store.publish(ctx, domain.Event{
		Kind:          domain.EventEligibilityVerified,
		ApplicationID: app.ID,
		Status:        app.Status,
		Passed:        &eligible,
		Summary:       report.Summary,
	})
}
