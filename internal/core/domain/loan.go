package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type LoanKind string

const (
	LoanFixedRate  LoanKind = "fixed_rate"
	LoanAdjustable LoanKind = "adjustable"
	LoanOther      LoanKind = "other"
)

func (k LoanKind) Valid() bool {
	return k == LoanFixedRate || k == LoanAdjustable || k == LoanOther
}

// MaxTermMonths is the longest requested term accepted at intake (40 years).
const MaxTermMonths = 480

// LoanTerms are immutable once a calculation has been run against them.
type LoanTerms struct {
	Principal         decimal.Decimal `json:"principal"`
	AnnualRatePercent decimal.Decimal `json:"annual_rate_percent"`
	TermMonths        int             `json:"term_months"`
	Kind              LoanKind        `json:"kind"`
}

type MonthlyPayment struct {
	PrincipalAndInterest decimal.Decimal `json:"principal_and_interest"`
	PropertyTax          decimal.Decimal `json:"property_tax"`
	Insurance            decimal.Decimal `json:"insurance"`
	PMI                  decimal.Decimal `json:"pmi"`
}

func (p MonthlyPayment) Total() decimal.Decimal {
	return p.PrincipalAndInterest.Add(p.PropertyTax).Add(p.Insurance).Add(p.PMI)
}

type PaymentHistory struct {
	CurrentOnPayments              bool       `json:"current_on_payments"`
	LatePaymentsLast12Months       int        `json:"late_payments_last_12_months"`
	LatePayments30DaysLast12Months int        `json:"late_payments_30_days_last_12_months"`
	LastLatePaymentAt              *time.Time `json:"last_late_payment_at,omitempty"`
}

// CurrentLoanSnapshot is captured at intake and never modified afterwards.
type CurrentLoanSnapshot struct {
	LoanNumber          string          `json:"loan_number,omitempty"`
	Lender              string          `json:"lender,omitempty"`
	Terms               LoanTerms       `json:"terms"`
	CurrentBalance      decimal.Decimal `json:"current_balance"`
	RemainingTermMonths int             `json:"remaining_term_months"`
	Payment             MonthlyPayment  `json:"payment"`
	History             PaymentHistory  `json:"history"`
	IsVALoan            bool            `json:"is_va_loan"`
}

type CashOut struct {
	Amount  decimal.Decimal `json:"amount"`
	Purpose string          `json:"purpose,omitempty"`
}

type RequestedLoan struct {
	Terms   LoanTerms `json:"terms"`
	CashOut *CashOut  `json:"cash_out,omitempty"`
}

// CashOutAmount is zero when no cash-out was requested.
func (r RequestedLoan) CashOutAmount() decimal.Decimal {
	if r.CashOut == nil {
		return decimal.Zero
	}
	return r.CashOut.Amount
}
