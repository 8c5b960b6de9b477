// Package amortization implements fixed-rate loan formulas. All functions are pure.
//
// Degenerate inputs (non-positive principal, term or savings) are valid real-world values and
// produce documented fallbacks instead of errors.
package amortization

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/kirillkom/irrrl-engine/internal/core/domain"
)

const centPlaces = 2

var (
	hundred = decimal.NewFromInt(100)
	twelve  = decimal.NewFromInt(12)
)

// MonthlyRate converts an annual percentage rate into a monthly fraction.
func MonthlyRate(annualRatePercent decimal.Decimal) decimal.Decimal {
	return annualRatePercent.Div(hundred).Div(twelve)
}

// MonthlyPayment returns the amortizing payment P·r(1+r)^n / ((1+r)^n − 1), rounded to cents.
// It returns 0 when principal or term is not positive and principal/term when the rate is 0.
// When (1+r)^n overflows float64 the payment converges to the interest-only amount P·r.
func MonthlyPayment(principal, annualRatePercent decimal.Decimal, termMonths int) decimal.Decimal {
	if !principal.IsPositive() || termMonths <= 0 {
		return decimal.Zero
	}
	if annualRatePercent.IsZero() {
		return principal.Div(decimal.NewFromInt(int64(termMonths))).Round(centPlaces)
	}

	monthly := MonthlyRate(annualRatePercent)
	r := monthly.InexactFloat64()
	p := principal.InexactFloat64()
	powered := math.Pow(1+r, float64(termMonths))
	if math.IsInf(powered, 0) {
		return principal.Mul(monthly).Round(centPlaces)
	}
	payment := p * (r * powered) / (powered - 1)
	if math.IsNaN(payment) || math.IsInf(payment, 0) {
		return decimal.Zero
	}

	return decimal.NewFromFloat(payment).Round(centPlaces)
}

// TotalInterest returns payment·n − principal, never negative. Any non-positive input yields 0.
func TotalInterest(principal, monthlyPayment decimal.Decimal, termMonths int) decimal.Decimal {
	if !principal.IsPositive() || !monthlyPayment.IsPositive() || termMonths <= 0 {
		return decimal.Zero
	}
	interest := monthlyPayment.Mul(decimal.NewFromInt(int64(termMonths))).Sub(principal)
	if interest.IsNegative() {
		return decimal.Zero
	}
	return interest
}

// RecoupmentPeriod returns ceil(costs/savings) months, or NeverRecoups when either is not positive.
func RecoupmentPeriod(totalCosts, monthlySavings decimal.Decimal) domain.Recoupment {
	if !monthlySavings.IsPositive() || !totalCosts.IsPositive() {
		return domain.NeverRecoups()
	}
	months := totalCosts.Div(monthlySavings).Ceil()
	return domain.Recoups(int(months.IntPart()))
}

// BreakEvenMonths is the unrounded counterpart of RecoupmentPeriod, reported to 2 places.
// It returns 0 when there are no savings.
func BreakEvenMonths(totalCosts, monthlySavings decimal.Decimal) decimal.Decimal {
	if !monthlySavings.IsPositive() {
		return decimal.Zero
	}
	return totalCosts.Div(monthlySavings).Round(centPlaces)
}

// FirstMonthPrincipal is the principal portion of the first payment against balance.
func FirstMonthPrincipal(balance, annualRatePercent, monthlyPayment decimal.Decimal) decimal.Decimal {
	interest := balance.Mul(MonthlyRate(annualRatePercent))
	return monthlyPayment.Sub(interest)
}
