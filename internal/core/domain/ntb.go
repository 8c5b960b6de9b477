package domain

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

// Recoupment is either a whole number of months or "never recoups". The zero value never recoups.
type Recoupment struct {
	months  int
	recoups bool
}

func Recoups(months int) Recoupment {
	if months < 0 {
		months = 0
	}
	return Recoupment{months: months, recoups: true}
}

func NeverRecoups() Recoupment {
	return Recoupment{}
}

// Months reports the period and whether the costs are ever recouped.
func (r Recoupment) Months() (int, bool) {
	return r.months, r.recoups
}

func (r Recoupment) Recouped() bool {
	return r.recoups
}

// Within reports whether the costs are recouped in at most max months.
func (r Recoupment) Within(max int) bool {
	return r.recoups && r.months <= max
}

func (r Recoupment) String() string {
	if !r.recoups {
		return "never"
	}
	return strconv.Itoa(r.months) + " months"
}

type recoupmentJSON struct {
	Recoups bool `json:"recoups"`
	Months  *int `json:"months,omitempty"`
}

func (r Recoupment) MarshalJSON() ([]byte, error) {
	out := recoupmentJSON{Recoups: r.recoups}
	if r.recoups {
		months := r.months
		out.Months = &months
	}
	return json.Marshal(out)
}

func (r *Recoupment) UnmarshalJSON(data []byte) error {
	var in recoupmentJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	if !in.Recoups {
		*r = NeverRecoups()
		return nil
	}
	if in.Months == nil {
		return fmt.Errorf("recoupment: months required when recoups is true")
	}
	*r = Recoups(*in.Months)
	return nil
}

// NetTangibleBenefitResult is computed fresh from current inputs; a recalculation
// replaces the previous result entirely.
type NetTangibleBenefitResult struct {
	CurrentRatePercent         decimal.Decimal `json:"current_rate_percent"`
	NewRatePercent             decimal.Decimal `json:"new_rate_percent"`
	CurrentMonthlyPayment      decimal.Decimal `json:"current_monthly_payment"`
	NewMonthlyPayment          decimal.Decimal `json:"new_monthly_payment"`
	CurrentRemainingTermMonths int             `json:"current_remaining_term_months"`
	NewTermMonths              int             `json:"new_term_months"`

	RateReduction         decimal.Decimal `json:"rate_reduction"`
	MonthlySavings        decimal.Decimal `json:"monthly_savings"`
	TotalLoanCosts        decimal.Decimal `json:"total_loan_costs"`
	Recoupment            Recoupment      `json:"recoupment"`
	BreakEvenMonths       decimal.Decimal `json:"break_even_months"`
	LifetimeSavings       decimal.Decimal `json:"lifetime_savings"`
	TotalInterestSavings  decimal.Decimal `json:"total_interest_savings"`
	TermReductionMonths   int             `json:"term_reduction_months"`
	EquityAcceleration    decimal.Decimal `json:"equity_acceleration"`
	MeetsRecoupment       bool            `json:"meets_recoupment"`
	MeetsRateReduction    bool            `json:"meets_rate_reduction"`
	MeetsPaymentReduction bool            `json:"meets_payment_reduction"`
	PassesNTB             bool            `json:"passes_ntb"`
}

type EligibilityReport struct {
	IsEligible   bool     `json:"is_eligible"`
	PassedChecks []string `json:"passed_checks"`
	FailedChecks []string `json:"failed_checks"`
	Warnings     []string `json:"warnings"`
	Summary      string   `json:"summary"`
}
