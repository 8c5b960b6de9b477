// Package policy holds the VA IRRRL thresholds the decision engine tests against.
package policy

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type Policy struct {
	// MaxRecoupmentMonths is the longest allowed recoupment of refinance costs.
	MaxRecoupmentMonths int `yaml:"max_recoupment_months"`
	// MinFixedRateReduction is in percentage points and applies to fixed-to-fixed refinances.
	MinFixedRateReduction decimal.Decimal `yaml:"min_fixed_rate_reduction"`
	// MaxCashOutWithoutFullDocs is the energy-improvement ceiling.
	MaxCashOutWithoutFullDocs decimal.Decimal `yaml:"max_cash_out_without_full_docs"`
	MaxLatePayments30Days     int             `yaml:"max_late_payments_30_days"`
	RecentLatePaymentMonths   int             `yaml:"recent_late_payment_months"`
	FundingFeeWaiverMinRating int             `yaml:"funding_fee_waiver_min_rating"`
	// ARMToFixedWaivesPaymentReduction lets an adjustable-to-fixed refinance satisfy the
	// payment-reduction test without a lower payment. The legacy calculator behaved as true.
	ARMToFixedWaivesPaymentReduction bool `yaml:"arm_to_fixed_waives_payment_reduction"`
	// CashOutTaxReturnThreshold adds tax returns to the cash-out checklist above this amount.
	CashOutTaxReturnThreshold decimal.Decimal `yaml:"cash_out_tax_return_threshold"`
}

func Default() Policy {
	return Policy{
		MaxRecoupmentMonths:       36,
		MinFixedRateReduction:     decimal.RequireFromString("0.5"),
		MaxCashOutWithoutFullDocs: decimal.NewFromInt(6000),
		MaxLatePayments30Days:     0,
		RecentLatePaymentMonths:   6,
		FundingFeeWaiverMinRating: 10,
		CashOutTaxReturnThreshold: decimal.NewFromInt(50000),
	}
}

// Load reads a YAML policy file. Keys that are absent keep their default value.
func Load(path string) (Policy, error) {
	if path == "" {
		return Default(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("read policy file: %w", err)
	}
	return Parse(raw)
}

func Parse(raw []byte) (Policy, error) {
	p := Default()
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil && !errors.Is(err, io.EOF) {
		return Policy{}, fmt.Errorf("decode policy: %w", err)
	}
	if err := p.Validate(); err != nil {
		return Policy{}, err
	}
	return p, nil
}

func (p Policy) Validate() error {
	switch {
	case p.MaxRecoupmentMonths <= 0:
		return fmt.Errorf("policy: max_recoupment_months must be positive")
	case p.MinFixedRateReduction.IsNegative():
		return fmt.Errorf("policy: min_fixed_rate_reduction must not be negative")
	case p.MaxCashOutWithoutFullDocs.IsNegative():
		return fmt.Errorf("policy: max_cash_out_without_full_docs must not be negative")
	case p.MaxLatePayments30Days < 0:
		return fmt.Errorf("policy: max_late_payments_30_days must not be negative")
	case p.RecentLatePaymentMonths < 0:
		return fmt.Errorf("policy: recent_late_payment_months must not be negative")
	case p.FundingFeeWaiverMinRating < 0 || p.FundingFeeWaiverMinRating > 100:
		return fmt.Errorf("policy: funding_fee_waiver_min_rating must be within 0..100")
	}
	return nil
}
