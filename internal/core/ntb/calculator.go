// Package ntb computes the VA Net Tangible Benefit test for an IRRRL application.
package ntb

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/kirillkom/irrrl-engine/internal/core/amortization"
	"github.com/kirillkom/irrrl-engine/internal/core/domain"
	"github.com/kirillkom/irrrl-engine/internal/core/policy"
)

type Calculator struct {
	policy policy.Policy
}

func NewCalculator(p policy.Policy) *Calculator {
	return &Calculator{policy: p}
}

// Calculate derives a complete result from the application's current inputs. It is pure:
// identical inputs always yield identical results.
func (c *Calculator) Calculate(app *domain.Application) (domain.NetTangibleBenefitResult, error) {
	if app == nil || app.CurrentLoan == nil {
		return domain.NetTangibleBenefitResult{}, domain.WrapError(
			domain.ErrMissingPrerequisiteData,
			"calculate ntb",
			errors.New("current loan information is required"),
		)
	}

	current := app.CurrentLoan
	requested := app.Requested.Terms

	newPayment := amortization.MonthlyPayment(requested.Principal, requested.AnnualRatePercent, requested.TermMonths)
	currentPayment := current.Payment.PrincipalAndInterest

	savings := currentPayment.Sub(newPayment)
	rateReduction := current.Terms.AnnualRatePercent.Sub(requested.AnnualRatePercent)
	recoupment := amortization.RecoupmentPeriod(app.TotalLoanCosts, savings)

	currentInterest := amortization.TotalInterest(current.CurrentBalance, currentPayment, current.RemainingTermMonths)
	newInterest := amortization.TotalInterest(requested.Principal, newPayment, requested.TermMonths)

	comparisonTerm := min(current.RemainingTermMonths, requested.TermMonths)
	lifetimeSavings := savings.Mul(decimal.NewFromInt(int64(comparisonTerm)))

	// Both principal portions use the current balance so only the rate effect remains.
	equity := amortization.FirstMonthPrincipal(current.CurrentBalance, requested.AnnualRatePercent, newPayment).
		Sub(amortization.FirstMonthPrincipal(current.CurrentBalance, current.Terms.AnnualRatePercent, currentPayment)).
		Round(2)

	armToFixed := current.Terms.Kind == domain.LoanAdjustable && requested.Kind == domain.LoanFixedRate

	result := domain.NetTangibleBenefitResult{
		CurrentRatePercent:         current.Terms.AnnualRatePercent,
		NewRatePercent:             requested.AnnualRatePercent,
		CurrentMonthlyPayment:      currentPayment,
		NewMonthlyPayment:          newPayment,
		CurrentRemainingTermMonths: current.RemainingTermMonths,
		NewTermMonths:              requested.TermMonths,
		RateReduction:              rateReduction,
		MonthlySavings:             savings,
		TotalLoanCosts:             app.TotalLoanCosts,
		Recoupment:                 recoupment,
		BreakEvenMonths:            amortization.BreakEvenMonths(app.TotalLoanCosts, savings),
		LifetimeSavings:            lifetimeSavings,
		TotalInterestSavings:       currentInterest.Sub(newInterest),
		TermReductionMonths:        current.RemainingTermMonths - requested.TermMonths,
		EquityAcceleration:         equity,
		MeetsRecoupment:            recoupment.Within(c.policy.MaxRecoupmentMonths),
		MeetsRateReduction:         c.meetsRateReduction(current.Terms.Kind, requested.Kind, rateReduction),
		MeetsPaymentReduction:      savings.IsPositive() || (armToFixed && c.policy.ARMToFixedWaivesPaymentReduction),
	}
	result.PassesNTB = result.MeetsRecoupment && result.MeetsRateReduction && result.MeetsPaymentReduction
	return result, nil
}

func (c *Calculator) meetsRateReduction(current, requested domain.LoanKind, reduction decimal.Decimal) bool {
	switch {
	case current == domain.LoanFixedRate && requested == domain.LoanFixedRate:
		return reduction.GreaterThanOrEqual(c.policy.MinFixedRateReduction)
	case current == domain.LoanAdjustable && requested == domain.LoanFixedRate:
		// Stability is the benefit; the rate need not drop.
		return true
	default:
		return reduction.IsPositive()
	}
}
