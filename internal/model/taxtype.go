package model

// TaxType is the BAS reporting classification applied to a transaction.
// The set mirrors the Australian GST tax types used on activity statements.
type TaxType string

// Recognized tax types.
const (
	TaxGSTOnIncome     TaxType = "GST on Income"
	TaxGSTOnExpenses   TaxType = "GST on Expenses"
	TaxGSTFreeIncome   TaxType = "GST Free Income"
	TaxGSTFreeExpenses TaxType = "GST Free Expenses"
	TaxInputTaxed      TaxType = "Input Taxed"
	TaxBASExcluded     TaxType = "BAS Excluded"
	TaxNotReportable   TaxType = "N-T"
)

// AllTaxTypes lists every recognized tax type in display order.
func AllTaxTypes() []TaxType {
	return []TaxType{
		TaxGSTOnIncome,
		TaxGSTOnExpenses,
		TaxGSTFreeIncome,
		TaxGSTFreeExpenses,
		TaxInputTaxed,
		TaxBASExcluded,
		TaxNotReportable,
	}
}

// Valid reports whether t is a recognized tax type.
func (t TaxType) Valid() bool {
	switch t {
	case TaxGSTOnIncome, TaxGSTOnExpenses, TaxGSTFreeIncome,
		TaxGSTFreeExpenses, TaxInputTaxed, TaxBASExcluded, TaxNotReportable:
		return true
	}
	return false
}

// GSTApplies reports whether a GST component should be calculated for t.
func (t TaxType) GSTApplies() bool {
	return t == TaxGSTOnIncome || t == TaxGSTOnExpenses
}

// DefaultTaxType picks a sensible tax type when neither the learning store
// nor the classifier produced one.
func DefaultTaxType(amountPositive, gstRegistered bool) TaxType {
	if !gstRegistered {
		return TaxBASExcluded
	}
	if amountPositive {
		return TaxGSTOnIncome
	}
	return TaxGSTOnExpenses
}
