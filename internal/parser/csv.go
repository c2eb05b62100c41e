package parser

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/faceless-truth/mcs-platform/internal/common"
	"github.com/faceless-truth/mcs-platform/internal/model"
)

// csvColumns maps the header row to column positions. Either a single
// signed amount column or a debit/credit pair is accepted.
type csvColumns struct {
	date        int
	description int
	amount      int
	debit       int
	credit      int
	balance     int
}

// parseCSV parses a bank CSV export. Exports with a header row are mapped
// by column name; headerless exports fall back to the common
// date,amount,description ordering.
func parseCSV(ctx context.Context, content []byte) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	reader := csv.NewReader(bytes.NewReader(content))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	result := &Result{Bank: "csv"}
	cols := csvColumns{date: -1, description: -1, amount: -1, debit: -1, credit: -1, balance: -1}
	headerSeen := false
	rowNum := 0

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: malformed CSV: %v", common.ErrUnsupportedFormat, err)
		}
		rowNum++
		if len(record) < 3 {
			continue
		}

		if !headerSeen {
			headerSeen = true
			if mapped, ok := mapCSVHeader(record); ok {
				cols = mapped
				continue
			}
			// Headerless export: assume date, amount, description order.
			cols = csvColumns{date: 0, amount: 1, description: 2, debit: -1, credit: -1, balance: -1}
		}

		txn, ok := csvRecordToTransaction(record, cols)
		if !ok {
			result.Diagnostics = append(result.Diagnostics,
				fmt.Sprintf("row %d skipped: unparseable date or amount", rowNum))
			continue
		}
		result.Transactions = append(result.Transactions, txn)
	}

	return result, nil
}

// mapCSVHeader recognizes a header row and maps its columns. Returns false
// when the row does not look like a header.
func mapCSVHeader(record []string) (csvColumns, bool) {
	cols := csvColumns{date: -1, description: -1, amount: -1, debit: -1, credit: -1, balance: -1}
	matched := false

	for i, field := range record {
		switch name := strings.ToLower(strings.TrimSpace(field)); {
		case name == "date" || name == "transaction date" || name == "value date":
			cols.date = i
			matched = true
		case name == "description" || name == "narrative" || name == "details" || name == "transaction details":
			cols.description = i
			matched = true
		case name == "amount":
			cols.amount = i
			matched = true
		case name == "debit" || name == "debit amount" || name == "withdrawal":
			cols.debit = i
			matched = true
		case name == "credit" || name == "credit amount" || name == "deposit":
			cols.credit = i
			matched = true
		case name == "balance" || name == "running balance":
			cols.balance = i
			matched = true
		}
	}

	if !matched || cols.date < 0 {
		return cols, false
	}
	if cols.amount < 0 && cols.debit < 0 && cols.credit < 0 {
		return cols, false
	}
	return cols, true
}

func csvRecordToTransaction(record []string, cols csvColumns) (model.Transaction, bool) {
	var txn model.Transaction

	field := func(idx int) string {
		if idx < 0 || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	date, err := parseFullDate(field(cols.date))
	if err != nil {
		return txn, false
	}

	amount, ok := csvAmount(field(cols.amount), field(cols.debit), field(cols.credit))
	if !ok {
		return txn, false
	}

	txn.Date = date
	txn.Amount = amount
	txn.Description = field(cols.description)

	if bal := field(cols.balance); bal != "" {
		if d, err := parseAmount(bal); err == nil {
			txn.Balance = &d
		}
	}

	return txn, true
}

// csvAmount resolves the signed amount from either a single column or a
// debit/credit pair. Debit columns hold unsigned magnitudes and come back
// negative.
func csvAmount(amount, debit, credit string) (decimal.Decimal, bool) {
	if amount != "" {
		d, err := parseAmount(amount)
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	}
	if debit != "" {
		d, err := parseAmount(debit)
		if err != nil {
			return decimal.Zero, false
		}
		return d.Abs().Neg(), true
	}
	if credit != "" {
		d, err := parseAmount(credit)
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	}
	return decimal.Zero, false
}
