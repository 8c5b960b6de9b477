package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Borrower struct {
	FirstName            string `json:"first_name"`
	LastName             string `json:"last_name"`
	Email                string `json:"email,omitempty"`
	HasDisabilityRating  bool   `json:"has_disability_rating"`
	DisabilityPercentage int    `json:"disability_percentage,omitempty"`
}

type Property struct {
	StreetAddress      string          `json:"street_address,omitempty"`
	City               string          `json:"city,omitempty"`
	State              string          `json:"state,omitempty"`
	ZipCode            string          `json:"zip_code,omitempty"`
	CurrentlyOccupied  bool            `json:"currently_occupied"`
	PreviouslyOccupied bool            `json:"previously_occupied"`
	EstimatedValue     decimal.Decimal `json:"estimated_value"`
}

type KeyDates struct {
	SubmittedAt        *time.Time `json:"submitted_at,omitempty"`
	ApprovedAt         *time.Time `json:"approved_at,omitempty"`
	ApprovedBy         string     `json:"approved_by,omitempty"`
	DeclineReason      string     `json:"decline_reason,omitempty"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
	EstimatedClosingAt *time.Time `json:"estimated_closing_at,omitempty"`
	ActualClosingAt    *time.Time `json:"actual_closing_at,omitempty"`
}

// Application is the aggregate root of an IRRRL refinance request.
type Application struct {
	ID     string            `json:"id"`
	Number string            `json:"number"`
	Type   ApplicationType   `json:"type"`
	Status ApplicationStatus `json:"status"`

	Borrower    Borrower             `json:"borrower"`
	Property    *Property            `json:"property,omitempty"`
	CurrentLoan *CurrentLoanSnapshot `json:"current_loan,omitempty"`
	Requested   RequestedLoan        `json:"requested"`

	TotalClosingCosts decimal.Decimal `json:"total_closing_costs"`
	TotalLoanCosts    decimal.Decimal `json:"total_loan_costs"`

	NTB             *NetTangibleBenefitResult `json:"ntb,omitempty"`
	NTBCalculatedAt *time.Time                `json:"ntb_calculated_at,omitempty"`

	EligibilityVerified bool   `json:"eligibility_verified"`
	EligibilityNotes    string `json:"eligibility_notes,omitempty"`

	History []StatusTransitionRecord `json:"history"`
	Dates   KeyDates                 `json:"dates"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int       `json:"version"`
}

// ApplicationSummary is the list projection used by dashboards and queues.
type ApplicationSummary struct {
	ID           string            `json:"id"`
	Number       string            `json:"number"`
	Type         ApplicationType   `json:"type"`
	Status       ApplicationStatus `json:"status"`
	BorrowerName string            `json:"borrower_name"`
	PassesNTB    *bool             `json:"passes_ntb,omitempty"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

func (a *Application) Summary() ApplicationSummary {
	out := ApplicationSummary{
		ID:           a.ID,
		Number:       a.Number,
		Type:         a.Type,
		Status:       a.Status,
		BorrowerName: a.Borrower.FirstName + " " + a.Borrower.LastName,
		UpdatedAt:    a.UpdatedAt,
	}
	if a.NTB != nil {
		passes := a.NTB.PassesNTB
		out.PassesNTB = &passes
	}
	return out
}

// SubmitApplicationInput is the intake payload before identity and status are assigned.
type SubmitApplicationInput struct {
	Type               ApplicationType      `json:"type"`
	Borrower           Borrower             `json:"borrower"`
	Property           *Property            `json:"property,omitempty"`
	CurrentLoan        *CurrentLoanSnapshot `json:"current_loan,omitempty"`
	Requested          RequestedLoan        `json:"requested"`
	TotalClosingCosts  decimal.Decimal      `json:"total_closing_costs"`
	TotalLoanCosts     decimal.Decimal      `json:"total_loan_costs"`
	EstimatedClosingAt *time.Time           `json:"estimated_closing_at,omitempty"`
	SubmittedBy        string               `json:"-"`
}

type DocumentType string

const (
	DocVALoanStatement          DocumentType = "va_loan_statement"
	DocCertificateOfEligibility DocumentType = "certificate_of_eligibility"
	DocPhotoID                  DocumentType = "photo_id"
	DocHomeownersInsurance      DocumentType = "homeowners_insurance"
	DocPropertyTaxInfo          DocumentType = "property_tax_info"
	DocPayStub                  DocumentType = "pay_stub"
	DocW2                       DocumentType = "w2"
	DocTaxReturn                DocumentType = "tax_return"
	DocBankStatement            DocumentType = "bank_statement"
	DocAppraisal                DocumentType = "appraisal"
)

var documentLabels = map[DocumentType]string{
	DocVALoanStatement:          "Current VA Loan Statement",
	DocCertificateOfEligibility: "Certificate of Eligibility (COE)",
	DocPhotoID:                  "Photo ID",
	DocHomeownersInsurance:      "Homeowners Insurance Policy",
	DocPropertyTaxInfo:          "Property Tax Information",
	DocPayStub:                  "Recent Pay Stubs (Last 30 days)",
	DocW2:                       "W-2 Forms (Last 2 years)",
	DocTaxReturn:                "Tax Returns (Last 2 years)",
	DocBankStatement:            "Bank Statements (Last 2 months)",
	DocAppraisal:                "Property Appraisal",
}

func (d DocumentType) Label() string {
	if label, ok := documentLabels[d]; ok {
		return label
	}
	return string(d)
}
