// Package worksheet renders the NTB comparison as a spreadsheet for the underwriter file.
package worksheet

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/irrrl-engine/internal/core/domain"
)

const SheetName = "NTB Worksheet"

type ExcelRenderer struct{}

func NewExcelRenderer() ExcelRenderer {
	return ExcelRenderer{}
}

type row struct {
	label string
	value any
}

func (ExcelRenderer) RenderNTBWorksheet(app *domain.Application) ([]byte, error) {
	if app == nil || app.NTB == nil {
		return nil, domain.WrapError(domain.ErrMissingPrerequisiteData, "render ntb worksheet", fmt.Errorf("ntb result not available"))
	}
	r := app.NTB

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	rows := []row{
		{"Application", app.Number},
		{"Borrower", app.Borrower.FirstName + " " + app.Borrower.LastName},
		{"Type", string(app.Type)},
		{"", nil},
		{"Current rate (%)", money(r.CurrentRatePercent, 3)},
		{"New rate (%)", money(r.NewRatePercent, 3)},
		{"Rate reduction (pp)", money(r.RateReduction, 3)},
		{"Current monthly payment", money(r.CurrentMonthlyPayment, 2)},
		{"New monthly payment", money(r.NewMonthlyPayment, 2)},
		{"Monthly savings", money(r.MonthlySavings, 2)},
		{"Remaining term (months)", r.CurrentRemainingTermMonths},
		{"New term (months)", r.NewTermMonths},
		{"Term reduction (months)", r.TermReductionMonths},
		{"Total loan costs", money(r.TotalLoanCosts, 2)},
		{"Recoupment", r.Recoupment.String()},
		{"Lifetime savings", money(r.LifetimeSavings, 2)},
		{"Total interest savings", money(r.TotalInterestSavings, 2)},
		{"Equity acceleration", money(r.EquityAcceleration, 2)},
		{"", nil},
		{"Meets recoupment", verdict(r.MeetsRecoupment)},
		{"Meets rate reduction", verdict(r.MeetsRateReduction)},
		{"Meets payment reduction", verdict(r.MeetsPaymentReduction)},
		{"Passes NTB", verdict(r.PassesNTB)},
	}

	if err := f.SetSheetRow(SheetName, "A1", &[]any{"Item", "Value"}); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	for i, item := range rows {
		if item.label == "" {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(SheetName, cell, &[]any{item.label, item.value}); err != nil {
			return nil, fmt.Errorf("write row %q: %w", item.label, err)
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("create style: %w", err)
	}
	if err := f.SetCellStyle(SheetName, "A1", "B1", bold); err != nil {
		return nil, fmt.Errorf("style header: %w", err)
	}
	if err := f.SetColWidth(SheetName, "A", "A", 28); err != nil {
		return nil, fmt.Errorf("set column width: %w", err)
	}
	if err := f.SetColWidth(SheetName, "B", "B", 22); err != nil {
		return nil, fmt.Errorf("set column width: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// money writes amounts as fixed-point text.
func money(value decimal.Decimal, places int32) string {
	return value.StringFixed(places)
}

func verdict(ok bool) string {
	if ok {
		return "Yes"
	}
	return "No"
}
