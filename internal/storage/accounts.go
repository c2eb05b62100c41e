package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/faceless-truth/mcs-platform/internal/common"
	"github.com/faceless-truth/mcs-platform/internal/model"
)

// GetAccounts returns the active chart of accounts for an entity.
func (s *SQLiteStorage) GetAccounts(ctx context.Context, entityID string) ([]model.Account, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(entityID, "entityID"); err != nil {
		return nil, err
	}
	return s.getAccountsTx(ctx, s.db, entityID)
}

func (s *SQLiteStorage) getAccountsTx(ctx context.Context, q queryable, entityID string) ([]model.Account, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT entity_id, code, name, section, tax_code, is_active
		FROM accounts
		WHERE entity_id = ? AND is_active = 1
		ORDER BY code
	`, entityID)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var accounts []model.Account
	for rows.Next() {
		var a model.Account
		if err := rows.Scan(&a.EntityID, &a.Code, &a.Name, &a.Section, &a.TaxCode, &a.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// GetAccount retrieves one account by entity and code.
func (s *SQLiteStorage) GetAccount(ctx context.Context, entityID, code string) (*model.Account, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(entityID, "entityID"); err != nil {
		return nil, err
	}
	if err := validateString(code, "code"); err != nil {
		return nil, err
	}
	return s.getAccountTx(ctx, s.db, entityID, code)
}

func (s *SQLiteStorage) getAccountTx(ctx context.Context, q queryable, entityID, code string) (*model.Account, error) {
	var a model.Account

	err := q.QueryRowContext(ctx, `
		SELECT entity_id, code, name, section, tax_code, is_active
		FROM accounts
		WHERE entity_id = ? AND code = ? AND is_active = 1
	`, entityID, code).Scan(&a.EntityID, &a.Code, &a.Name, &a.Section, &a.TaxCode, &a.IsActive)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &a, nil
}

// SaveAccount creates or updates a chart of accounts entry.
func (s *SQLiteStorage) SaveAccount(ctx context.Context, account *model.Account) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if account == nil {
		return fmt.Errorf("account cannot be nil")
	}
	if err := validateString(account.EntityID, "account.EntityID"); err != nil {
		return err
	}
	if err := validateString(account.Code, "account.Code"); err != nil {
		return err
	}
	return s.saveAccountTx(ctx, s.db, account)
}

func (s *SQLiteStorage) saveAccountTx(ctx context.Context, q queryable, account *model.Account) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO accounts (entity_id, code, name, section, tax_code, is_active)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(entity_id, code) DO UPDATE SET
			name = excluded.name,
			section = excluded.section,
			tax_code = excluded.tax_code,
			is_active = excluded.is_active
	`, account.EntityID, account.Code, account.Name, account.Section, account.TaxCode, account.IsActive)
	if err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}
	return nil
}
