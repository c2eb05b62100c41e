package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/faceless-truth/mcs-platform/internal/common"
	"github.com/faceless-truth/mcs-platform/internal/model"
)

// SavePendingTransactions inserts a batch of pending transactions.
func (s *SQLiteStorage) SavePendingTransactions(ctx context.Context, txns []model.PendingTransaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	for i := range txns {
		if err := validatePendingTransaction(&txns[i]); err != nil {
			return err
		}
	}
	return s.savePendingTransactionsTx(ctx, s.db, txns)
}

func (s *SQLiteStorage) savePendingTransactionsTx(ctx context.Context, q queryable, txns []model.PendingTransaction) error {
	for i := range txns {
		txn := &txns[i]
		var balance any
		if txn.Transaction.Balance != nil {
			balance = txn.Transaction.Balance.String()
		}

		_, err := q.ExecContext(ctx, `
			INSERT INTO pending_transactions (
				id, job_id, entity_id, txn_date, description, amount, balance, line_index, hash,
				status, suggested_code, suggested_name, suggested_tax_type,
				suggestion_source, confidence, rationale,
				confirmed_code, confirmed_tax_type, gst_amount, net_amount
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			txn.ID, txn.JobID, txn.EntityID, txn.Transaction.Date, txn.Transaction.Description,
			txn.Transaction.Amount.String(), balance, txn.Transaction.LineIndex, txn.Transaction.Hash,
			txn.Status, txn.Suggestion.AccountCode, txn.Suggestion.AccountName, txn.Suggestion.TaxType,
			txn.Suggestion.Source, txn.Suggestion.Confidence, txn.Suggestion.Rationale,
			txn.ConfirmedAccountCode, txn.ConfirmedTaxType,
			txn.GSTAmount.String(), txn.NetAmount.String(),
		)
		if err != nil {
			return fmt.Errorf("failed to save pending transaction %s: %w", txn.ID, err)
		}
	}
	return nil
}

const pendingColumns = `
	pt.id, pt.job_id, j.entity_id, pt.txn_date, pt.description, pt.amount, pt.balance,
	pt.line_index, pt.hash, pt.status,
	pt.suggested_code, pt.suggested_name, pt.suggested_tax_type,
	pt.suggestion_source, pt.confidence, pt.rationale,
	pt.confirmed_code, pt.confirmed_tax_type, pt.gst_amount, pt.net_amount`

// GetPendingTransaction retrieves a single pending transaction by ID.
func (s *SQLiteStorage) GetPendingTransaction(ctx context.Context, id string) (*model.PendingTransaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}
	return s.getPendingTransactionTx(ctx, s.db, id)
}

func (s *SQLiteStorage) getPendingTransactionTx(ctx context.Context, q queryable, id string) (*model.PendingTransaction, error) {
	row := q.QueryRowContext(ctx, `
		SELECT`+pendingColumns+`
		FROM pending_transactions pt
		JOIN review_jobs j ON j.id = pt.job_id
		WHERE pt.id = ?
	`, id)

	txn, err := scanPendingTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pending transaction: %w", err)
	}
	return txn, nil
}

func scanPendingTransaction(row rowScanner) (*model.PendingTransaction, error) {
	var txn model.PendingTransaction
	var amount string
	var balance sql.NullString
	var gst, net string

	err := row.Scan(
		&txn.ID, &txn.JobID, &txn.EntityID, &txn.Transaction.Date, &txn.Transaction.Description,
		&amount, &balance, &txn.Transaction.LineIndex, &txn.Transaction.Hash, &txn.Status,
		&txn.Suggestion.AccountCode, &txn.Suggestion.AccountName, &txn.Suggestion.TaxType,
		&txn.Suggestion.Source, &txn.Suggestion.Confidence, &txn.Suggestion.Rationale,
		&txn.ConfirmedAccountCode, &txn.ConfirmedTaxType, &gst, &net,
	)
	if err != nil {
		return nil, err
	}

	if txn.Transaction.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("invalid amount: %w", err)
	}
	if balance.Valid {
		b, err := decimal.NewFromString(balance.String)
		if err != nil {
			return nil, fmt.Errorf("invalid balance: %w", err)
		}
		txn.Transaction.Balance = &b
	}
	if txn.GSTAmount, err = decimal.NewFromString(gst); err != nil {
		return nil, fmt.Errorf("invalid gst amount: %w", err)
	}
	if txn.NetAmount, err = decimal.NewFromString(net); err != nil {
		return nil, fmt.Errorf("invalid net amount: %w", err)
	}
	return &txn, nil
}

// GetJobTransactions returns all pending transactions for a job in
// document order.
func (s *SQLiteStorage) GetJobTransactions(ctx context.Context, jobID string) ([]model.PendingTransaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(jobID, "jobID"); err != nil {
		return nil, err
	}
	return s.getJobTransactionsTx(ctx, s.db, jobID)
}

func (s *SQLiteStorage) getJobTransactionsTx(ctx context.Context, q queryable, jobID string) ([]model.PendingTransaction, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT`+pendingColumns+`
		FROM pending_transactions pt
		JOIN review_jobs j ON j.id = pt.job_id
		WHERE pt.job_id = ?
		ORDER BY pt.line_index
	`, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to query job transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var txns []model.PendingTransaction
	for rows.Next() {
		txn, err := scanPendingTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pending transaction: %w", err)
		}
		txns = append(txns, *txn)
	}
	return txns, rows.Err()
}

// UpdateSuggestion attaches a fresh classification suggestion.
func (s *SQLiteStorage) UpdateSuggestion(ctx context.Context, id string, suggestion model.Suggestion) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}
	return s.updateSuggestionTx(ctx, s.db, id, suggestion)
}

func (s *SQLiteStorage) updateSuggestionTx(ctx context.Context, q queryable, id string, suggestion model.Suggestion) error {
	result, err := q.ExecContext(ctx, `
		UPDATE pending_transactions
		SET suggested_code = ?, suggested_name = ?, suggested_tax_type = ?,
			suggestion_source = ?, confidence = ?, rationale = ?
		WHERE id = ?
	`,
		suggestion.AccountCode, suggestion.AccountName, suggestion.TaxType,
		suggestion.Source, suggestion.Confidence, suggestion.Rationale, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update suggestion: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return common.ErrNotFound
	}
	return nil
}

// UpdateTransactionStatus records a confirmation or rejection.
func (s *SQLiteStorage) UpdateTransactionStatus(ctx context.Context, id string, status model.TransactionStatus,
	accountCode string, taxType model.TaxType, gst, net decimal.Decimal) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}
	return s.updateTransactionStatusTx(ctx, s.db, id, status, accountCode, taxType, gst, net)
}

func (s *SQLiteStorage) updateTransactionStatusTx(ctx context.Context, q queryable, id string, status model.TransactionStatus,
	accountCode string, taxType model.TaxType, gst, net decimal.Decimal) error {
	result, err := q.ExecContext(ctx, `
		UPDATE pending_transactions
		SET status = ?, confirmed_code = ?, confirmed_tax_type = ?, gst_amount = ?, net_amount = ?
		WHERE id = ?
	`, status, accountCode, taxType, gst.String(), net.String(), id)
	if err != nil {
		return fmt.Errorf("failed to update transaction status: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return common.ErrNotFound
	}
	return nil
}

// FindExistingHashes reports which of the given transaction hashes already
// exist for the entity, for duplicate statement detection. Hashes held
// only by failed or abandoned jobs do not count: nothing was committed,
// so the statement must stay re-ingestable. A single indexed query
// regardless of batch size.
func (s *SQLiteStorage) FindExistingHashes(ctx context.Context, entityID string, hashes []string) (map[string]bool, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(entityID, "entityID"); err != nil {
		return nil, err
	}
	return s.findExistingHashesTx(ctx, s.db, entityID, hashes)
}

func (s *SQLiteStorage) findExistingHashesTx(ctx context.Context, q queryable, entityID string, hashes []string) (map[string]bool, error) {
	found := make(map[string]bool, len(hashes))
	if len(hashes) == 0 {
		return found, nil
	}

	placeholders := strings.Repeat("?,", len(hashes))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]any, 0, len(hashes)+2)
	args = append(args, entityID, model.JobFailed)
	for _, h := range hashes {
		args = append(args, h)
	}

	rows, err := q.QueryContext(ctx, `
		SELECT pt.hash
		FROM pending_transactions pt
		JOIN review_jobs j ON j.id = pt.job_id
		WHERE pt.entity_id = ? AND j.status != ? AND pt.hash IN (`+placeholders+`)
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query hashes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, fmt.Errorf("failed to scan hash: %w", err)
		}
		found[h] = true
	}
	return found, rows.Err()
}
