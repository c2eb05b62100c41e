package model

import (
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is a single normalized line extracted from a bank statement.
// Amounts follow a fixed sign convention: positive = credit/inflow,
// negative = debit/outflow, regardless of the source layout.
type Transaction struct {
	Date        time.Time
	Description string
	Hash        string
	Amount      decimal.Decimal
	Balance     *decimal.Decimal // running balance where the statement prints one
	LineIndex   int              // position in the source document
}

// GenerateHash creates a deterministic identity for duplicate detection.
// Re-uploads of the same statement produce identical hashes.
func (t *Transaction) GenerateHash() string {
	data := fmt.Sprintf("%s:%s:%s:%d",
		t.Date.Format("2006-01-02"),
		t.Description,
		t.Amount.StringFixed(2),
		t.LineIndex)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}
