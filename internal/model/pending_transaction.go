package model

import "github.com/shopspring/decimal"

// TransactionStatus tracks a pending transaction through human review.
type TransactionStatus string

// Pending transaction status constants.
const (
	StatusSuggested TransactionStatus = "suggested"
	StatusConfirmed TransactionStatus = "confirmed"
	StatusRejected  TransactionStatus = "rejected"
)

// PendingTransaction is the unit of review work: one extracted transaction
// plus its current suggestion and confirmation state. It is owned
// exclusively by its parent review job.
type PendingTransaction struct {
	ID          string
	JobID       string
	EntityID    string
	Transaction Transaction
	Suggestion  Suggestion
	Status      TransactionStatus

	// Populated once a reviewer accepts or overrides the suggestion.
	ConfirmedAccountCode string
	ConfirmedTaxType     TaxType
	GSTAmount            decimal.Decimal
	NetAmount            decimal.Decimal
}

var gstDivisor = decimal.NewFromInt(11)

// CalculateGST computes the GST component for the confirmed tax type.
// Australian GST is 1/11 of the gross amount for GST-applicable items;
// everything else carries no GST component.
func (p *PendingTransaction) CalculateGST(taxType TaxType, gstRegistered bool) {
	gross := p.Transaction.Amount.Abs()
	if !gstRegistered || !taxType.GSTApplies() {
		p.GSTAmount = decimal.Zero.Round(2)
		p.NetAmount = gross
		return
	}
	p.GSTAmount = gross.Div(gstDivisor).Round(2)
	p.NetAmount = gross.Sub(p.GSTAmount)
}
