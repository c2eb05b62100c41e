package parser

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCSVWithHeader(t *testing.T) {
	content := []byte("Date,Description,Amount,Balance\n" +
		"14/03/2025,EFTPOS WOOLWORTHS,-45.67,454.33\n" +
		"15/03/2025,DIRECT CREDIT STRIPE,300.00,754.33\n")

	result, err := parseCSV(context.Background(), content)
	require.NoError(t, err)
	require.Len(t, result.Transactions, 2)

	first := result.Transactions[0]
	assert.Equal(t, time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC), first.Date)
	assert.Equal(t, "EFTPOS WOOLWORTHS", first.Description)
	assert.Equal(t, "-45.67", first.Amount.StringFixed(2))
	require.NotNil(t, first.Balance)
	assert.Equal(t, "454.33", first.Balance.StringFixed(2))

	assert.Equal(t, "300.00", result.Transactions[1].Amount.StringFixed(2))
}

func TestParseCSVDebitCreditColumns(t *testing.T) {
	content := []byte("Date,Narrative,Debit,Credit\n" +
		"14/03/2025,EFTPOS WOOLWORTHS,45.67,\n" +
		"15/03/2025,DIRECT CREDIT STRIPE,,300.00\n")

	result, err := parseCSV(context.Background(), content)
	require.NoError(t, err)
	require.Len(t, result.Transactions, 2)

	assert.Equal(t, "-45.67", result.Transactions[0].Amount.StringFixed(2),
		"debit column values come back negative")
	assert.Equal(t, "300.00", result.Transactions[1].Amount.StringFixed(2))
	assert.Equal(t, "EFTPOS WOOLWORTHS", result.Transactions[0].Description)
}

func TestParseCSVHeaderless(t *testing.T) {
	content := []byte("14/03/2025,-45.67,EFTPOS WOOLWORTHS\n" +
		"15/03/2025,300.00,DIRECT CREDIT STRIPE\n")

	result, err := parseCSV(context.Background(), content)
	require.NoError(t, err)
	require.Len(t, result.Transactions, 2)

	assert.Equal(t, "EFTPOS WOOLWORTHS", result.Transactions[0].Description)
	assert.Equal(t, "-45.67", result.Transactions[0].Amount.StringFixed(2))
}

func TestParseCSVSkipsMalformedRows(t *testing.T) {
	content := []byte("Date,Description,Amount\n" +
		"not a date,MYSTERY ROW,-10.00\n" +
		"14/03/2025,GOOD ROW,-20.00\n" +
		"15/03/2025,NO AMOUNT,\n")

	result, err := parseCSV(context.Background(), content)
	require.NoError(t, err)
	require.Len(t, result.Transactions, 1)
	assert.Equal(t, "GOOD ROW", result.Transactions[0].Description)
	assert.Len(t, result.Diagnostics, 2, "each skipped row leaves a diagnostic")
}

func TestParseCSVAlternateHeaderNames(t *testing.T) {
	content := []byte("Transaction Date,Transaction Details,Withdrawal,Deposit,Running Balance\n" +
		"14/03/2025,ATM WITHDRAWAL,200.00,,254.33\n")

	result, err := parseCSV(context.Background(), content)
	require.NoError(t, err)
	require.Len(t, result.Transactions, 1)

	txn := result.Transactions[0]
	assert.Equal(t, "ATM WITHDRAWAL", txn.Description)
	assert.Equal(t, "-200.00", txn.Amount.StringFixed(2))
	require.NotNil(t, txn.Balance)
}

func TestParseCSVCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := parseCSV(ctx, []byte("Date,Description,Amount\n"))
	assert.Error(t, err)
}

func TestMapCSVHeader(t *testing.T) {
	t.Run("not a header", func(t *testing.T) {
		_, ok := mapCSVHeader([]string{"14/03/2025", "-45.67", "EFTPOS"})
		assert.False(t, ok)
	})

	t.Run("date but no amount columns", func(t *testing.T) {
		_, ok := mapCSVHeader([]string{"Date", "Description", "Notes"})
		assert.False(t, ok)
	})

	t.Run("case insensitive", func(t *testing.T) {
		cols, ok := mapCSVHeader([]string{"DATE", "DESCRIPTION", "AMOUNT"})
		require.True(t, ok)
		assert.Equal(t, 0, cols.date)
		assert.Equal(t, 1, cols.description)
		assert.Equal(t, 2, cols.amount)
	})
}
