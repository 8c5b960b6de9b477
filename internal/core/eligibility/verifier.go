// Package eligibility verifies the VA IRRRL eligibility rules and produces an itemized report.
package eligibility

import (
	"fmt"
	"strings"
	"time"

	"github.com/kirillkom/irrrl-engine/internal/core/domain"
	"github.com/kirillkom/irrrl-engine/internal/core/policy"
)

// Checklist supplies the documents a given application must provide.
type Checklist interface {
	RequiredDocuments(app *domain.Application) []domain.DocumentType
}

type Verifier struct {
	policy    policy.Policy
	checklist Checklist
	now       func() time.Time
}

type Option func(*Verifier)

func WithChecklist(c Checklist) Option {
	return func(v *Verifier) { v.checklist = c }
}

func WithClock(now func() time.Time) Option {
	return func(v *Verifier) { v.now = now }
}

func NewVerifier(p policy.Policy, opts ...Option) *Verifier {
	v := &Verifier{
		policy: p,
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// report accumulates check outcomes in evaluation order.
type report struct {
	passed   []string
	failed   []string
	warnings []string
}

func (r *report) pass(format string, args ...any) { r.passed = append(r.passed, fmt.Sprintf(format, args...)) }
func (r *report) fail(format string, args ...any) { r.failed = append(r.failed, fmt.Sprintf(format, args...)) }
func (r *report) warn(format string, args ...any) {
	r.warnings = append(r.warnings, fmt.Sprintf(format, args...))
}

// Verify runs every check independently. Missing data becomes a failed check or a warning.
func (v *Verifier) Verify(app *domain.Application) domain.EligibilityReport {
	r := &report{}
	if app == nil {
		app = &domain.Application{}
	}

	v.checkVALoan(r, app)
	v.checkPaymentCurrency(r, app)
	v.checkOccupancy(r, app)
	v.checkNetTangibleBenefit(r, app)
	v.checkCashOut(r, app)
	v.checkFundingFeeWaiver(r, app)

	out := domain.EligibilityReport{
		IsEligible:   len(r.failed) == 0,
		PassedChecks: nonNil(r.passed),
		FailedChecks: nonNil(r.failed),
		Warnings:     nonNil(r.warnings),
	}
	if out.IsEligible {
		out.Summary = "Application meets all VA IRRRL eligibility requirements."
	} else {
		out.Summary = fmt.Sprintf("Application has %d eligibility issue(s) that must be addressed.", len(r.failed))
	}
	return out
}

func (v *Verifier) checkVALoan(r *report, app *domain.Application) {
	if app.CurrentLoan != nil && app.CurrentLoan.IsVALoan {
		r.pass("Has existing VA loan")
		return
	}
	r.fail("No existing VA loan found - IRRRL requires refinancing an existing VA loan")
}

func (v *Verifier) checkPaymentCurrency(r *report, app *domain.Application) {
	if app.CurrentLoan == nil {
		r.fail("Current loan information not provided")
		return
	}
	history := app.CurrentLoan.History

	var issues []string
	if !history.CurrentOnPayments {
		issues = append(issues, "not current on mortgage payments")
	}
	if history.LastLatePaymentAt != nil {
		cutoff := v.now().AddDate(0, -v.policy.RecentLatePaymentMonths, 0)
		if history.LastLatePaymentAt.After(cutoff) {
			issues = append(issues, fmt.Sprintf("late payment within the last %d months (%s)",
				v.policy.RecentLatePaymentMonths, history.LastLatePaymentAt.Format("2006-01-02")))
		}
	}
	if history.LatePayments30DaysLast12Months > v.policy.MaxLatePayments30Days {
		issues = append(issues, fmt.Sprintf("%d payment(s) over 30 days late in the last 12 months (maximum %d)",
			history.LatePayments30DaysLast12Months, v.policy.MaxLatePayments30Days))
	}

	if len(issues) == 0 {
		r.pass("Current on mortgage payments")
		return
	}
	r.fail("Payment history issues: %s; %d late payment(s) in last 12 months, %d over 30 days late",
		strings.Join(issues, ", "), history.LatePaymentsLast12Months, history.LatePayments30DaysLast12Months)
}

func (v *Verifier) checkOccupancy(r *report, app *domain.Application) {
	if app.Property != nil && (app.Property.CurrentlyOccupied || app.Property.PreviouslyOccupied) {
		r.pass("Meets occupancy requirements (previously or currently occupied)")
		return
	}
	r.fail("Property must have been previously or currently occupied by the veteran")
}

func (v *Verifier) checkNetTangibleBenefit(r *report, app *domain.Application) {
	ntb := app.NTB
	if ntb == nil {
		r.warn("Net Tangible Benefit calculation not yet performed")
		return
	}

	if ntb.PassesNTB {
		r.pass("Meets Net Tangible Benefit requirements")
		r.pass("  - Monthly savings: $%s", ntb.MonthlySavings.StringFixed(2))
		r.pass("  - Interest rate reduction: %s%%", ntb.RateReduction.StringFixed(3))
		r.pass("  - Recoupment period: %s (must be <=%d)", ntb.Recoupment, v.policy.MaxRecoupmentMonths)
		return
	}

	r.fail("Does not meet Net Tangible Benefit requirements")
	if !ntb.MeetsRecoupment {
		r.fail("  - Recoupment period of %s exceeds %d-month maximum", ntb.Recoupment, v.policy.MaxRecoupmentMonths)
	}
	if !ntb.MeetsRateReduction {
		r.fail("  - Interest rate reduction of %s%% is less than required %s%% for fixed-to-fixed",
			ntb.RateReduction.StringFixed(3), v.policy.MinFixedRateReduction.StringFixed(1))
	}
	if !ntb.MeetsPaymentReduction {
		r.fail("  - No monthly payment reduction (savings $%s) or stability benefit", ntb.MonthlySavings.StringFixed(2))
	}
}

func (v *Verifier) checkCashOut(r *report, app *domain.Application) {
	if app.Type != domain.TypeCashOut {
		return
	}
	r.warn("Cash-out refinance requires manual review and full income documentation")

	amount := app.Requested.CashOutAmount()
	if amount.GreaterThan(v.policy.MaxCashOutWithoutFullDocs) {
		r.warn("Cash-out amount of $%s exceeds $%s - full documentation required",
			amount.StringFixed(2), v.policy.MaxCashOutWithoutFullDocs.StringFixed(2))
	}

	if v.checklist == nil {
		return
	}
	var labels []string
	for _, doc := range v.checklist.RequiredDocuments(app) {
		labels = append(labels, doc.Label())
	}
	if len(labels) > 0 {
		r.warn("Required documents: %s", strings.Join(labels, "; "))
	}
}

func (v *Verifier) checkFundingFeeWaiver(r *report, app *domain.Application) {
	b := app.Borrower
	if b.HasDisabilityRating && b.DisabilityPercentage >= v.policy.FundingFeeWaiverMinRating {
		r.pass("Funding fee waived due to %d%% disability rating", b.DisabilityPercentage)
	}
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
