package model

// Account is one entry in an entity's chart of accounts. Charts are
// entity-scoped: the same code can mean different things for different
// businesses.
type Account struct {
	EntityID string
	Code     string
	Name     string
	Section  string  // e.g. Revenue, Expenses, Assets
	TaxCode  TaxType // default tax type hint, may be empty
	IsActive bool
}
