package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/faceless-truth/mcs-platform/internal/model"
)

// SaveLedgerEntry writes one committed ledger entry. The unique
// transaction_id constraint rejects double-commits of the same
// pending transaction.
func (s *SQLiteStorage) SaveLedgerEntry(ctx context.Context, entry *model.LedgerEntry) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateLedgerEntry(entry); err != nil {
		return err
	}
	return s.saveLedgerEntryTx(ctx, s.db, entry)
}

func (s *SQLiteStorage) saveLedgerEntryTx(ctx context.Context, q queryable, entry *model.LedgerEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	result, err := q.ExecContext(ctx, `
		INSERT INTO ledger_entries (
			entity_id, job_id, transaction_id, entry_date, description,
			account_code, tax_type, amount, gst_amount, net_amount, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		entry.EntityID, entry.JobID, entry.TransactionID, entry.Date, entry.Description,
		entry.AccountCode, entry.TaxType, entry.Amount.String(),
		entry.GSTAmount.String(), entry.NetAmount.String(), entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save ledger entry: %w", err)
	}

	if id, err := result.LastInsertId(); err == nil {
		entry.ID = id
	}
	return nil
}

// GetLedgerEntriesByJob returns all ledger entries written for a job.
func (s *SQLiteStorage) GetLedgerEntriesByJob(ctx context.Context, jobID string) ([]model.LedgerEntry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(jobID, "jobID"); err != nil {
		return nil, err
	}
	return s.getLedgerEntriesByJobTx(ctx, s.db, jobID)
}

func (s *SQLiteStorage) getLedgerEntriesByJobTx(ctx context.Context, q queryable, jobID string) ([]model.LedgerEntry, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, entity_id, job_id, transaction_id, entry_date, description,
			account_code, tax_type, amount, gst_amount, net_amount, created_at
		FROM ledger_entries
		WHERE job_id = ?
		ORDER BY id
	`, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []model.LedgerEntry
	for rows.Next() {
		var e model.LedgerEntry
		var amount, gst, net string

		if err := rows.Scan(
			&e.ID, &e.EntityID, &e.JobID, &e.TransactionID, &e.Date, &e.Description,
			&e.AccountCode, &e.TaxType, &amount, &gst, &net, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}

		if e.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("invalid ledger amount: %w", err)
		}
		if e.GSTAmount, err = decimal.NewFromString(gst); err != nil {
			return nil, fmt.Errorf("invalid ledger gst amount: %w", err)
		}
		if e.NetAmount, err = decimal.NewFromString(net); err != nil {
			return nil, fmt.Errorf("invalid ledger net amount: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
