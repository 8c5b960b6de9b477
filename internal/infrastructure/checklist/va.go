// Package checklist lists the documents a loan officer must collect for an IRRRL file.
package checklist

import (
	"github.com/shopspring/decimal"

	"github.com/kirillkom/irrrl-engine/internal/core/domain"
)

var baseDocuments = []domain.DocumentType{
	domain.DocVALoanStatement,
	domain.DocCertificateOfEligibility,
	domain.DocPhotoID,
	domain.DocHomeownersInsurance,
	domain.DocPropertyTaxInfo,
}

var cashOutDocuments = []domain.DocumentType{
	domain.DocPayStub,
	domain.DocW2,
	domain.DocBankStatement,
}

// VAChecklist is the static VA document list. Cash-out files need income documentation, and
// tax returns once the cash-out amount passes TaxReturnThreshold.
type VAChecklist struct {
	TaxReturnThreshold decimal.Decimal
}

func NewVAChecklist(taxReturnThreshold decimal.Decimal) VAChecklist {
	return VAChecklist{TaxReturnThreshold: taxReturnThreshold}
}

func (c VAChecklist) RequiredDocuments(app *domain.Application) []domain.DocumentType {
	docs := make([]domain.DocumentType, 0, len(baseDocuments)+len(cashOutDocuments)+1)
	docs = append(docs, baseDocuments...)
	if app == nil || app.Type != domain.TypeCashOut {
		return docs
	}
	docs = append(docs, cashOutDocuments...)
	if app.Requested.CashOutAmount().GreaterThan(c.TaxReturnThreshold) {
		docs = append(docs, domain.DocTaxReturn)
	}
	return docs
}
