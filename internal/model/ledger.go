package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// LedgerEntry is a committed financial record materialized from a
// confirmed pending transaction.
type LedgerEntry struct {
	Date          time.Time
	CreatedAt     time.Time
	EntityID      string
	JobID         string
	TransactionID string
	Description   string
	AccountCode   string
	TaxType       TaxType
	Amount        decimal.Decimal
	GSTAmount     decimal.Decimal
	NetAmount     decimal.Decimal
	ID            int64
}

// CommitResult summarizes a successful commit.
type CommitResult struct {
	LedgerEntriesWritten int
	PatternsUpdated      int
}
