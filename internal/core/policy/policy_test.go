package policy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseKeepsDefaultsForMissingKeys(t *testing.T) {
	p, err := Parse([]byte("max_cash_out_without_full_docs: \"7500\"\n"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if !p.MaxCashOutWithoutFullDocs.Equal(decimal.NewFromInt(7500)) {
		t.Fatalf("expected cash-out ceiling 7500, got %s", p.MaxCashOutWithoutFullDocs)
	}
	if p.MaxRecoupmentMonths != 36 {
		t.Fatalf("expected default recoupment 36, got %d", p.MaxRecoupmentMonths)
	}
	if !p.MinFixedRateReduction.Equal(decimal.RequireFromString("0.5")) {
		t.Fatalf("expected default rate reduction 0.5, got %s", p.MinFixedRateReduction)
	}
}

func TestParseEmptyDocumentReturnsDefaults(t *testing.T) {
	p, err := Parse(nil)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if p.RecentLatePaymentMonths != 6 || p.FundingFeeWaiverMinRating != 10 {
		t.Fatalf("unexpected defaults: %+v", p)
	}
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	if _, err := Parse([]byte("max_recoupment: 12\n")); err == nil {
		t.Fatalf("expected unknown key error")
	}
}

func TestParseRejectsInvalidValues(t *testing.T) {
	if _, err := Parse([]byte("max_recoupment_months: 0\n")); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestLoadReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	if err := os.WriteFile(path, []byte("max_recoupment_months: 24\nmax_late_payments_30_days: 1\n"), 0o600); err != nil {
		t.Fatalf("write policy: %v", err)
	}
	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if p.MaxRecoupmentMonths != 24 || p.MaxLatePayments30Days != 1 {
		t.Fatalf("unexpected policy: %+v", p)
	}
}

func TestLoadWithoutPathReturnsDefaults(t *testing.T) {
	p, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if p.MaxRecoupmentMonths != Default().MaxRecoupmentMonths {
		t.Fatalf("expected defaults")
	}
}
