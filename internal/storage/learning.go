package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/faceless-truth/mcs-platform/internal/common"
	"github.com/faceless-truth/mcs-platform/internal/model"
)

// GetLearningPattern looks up a confirmed pattern by its entity-scoped
// key. The primary key makes this an indexed point lookup however large
// the entity's history grows.
func (s *SQLiteStorage) GetLearningPattern(ctx context.Context, entityID, pattern string) (*model.LearningPattern, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(entityID, "entityID"); err != nil {
		return nil, err
	}
	if err := validateString(pattern, "pattern"); err != nil {
		return nil, err
	}
	return s.getLearningPatternTx(ctx, s.db, entityID, pattern)
}

func (s *SQLiteStorage) getLearningPatternTx(ctx context.Context, q queryable, entityID, pattern string) (*model.LearningPattern, error) {
	var p model.LearningPattern

	err := q.QueryRowContext(ctx, `
		SELECT entity_id, description_pattern, account_code, account_name,
			tax_type, confirmation_count, last_confirmed_at
		FROM learning_patterns
		WHERE entity_id = ? AND description_pattern = ?
	`, entityID, pattern).Scan(
		&p.EntityID, &p.DescriptionPattern, &p.AccountCode, &p.AccountName,
		&p.TaxType, &p.ConfirmationCount, &p.LastConfirmedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get learning pattern: %w", err)
	}
	return &p, nil
}

// UpsertLearningPattern creates a pattern or increments its confirmation
// count when the key already exists.
func (s *SQLiteStorage) UpsertLearningPattern(ctx context.Context, p *model.LearningPattern) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateLearningPattern(p); err != nil {
		return err
	}
	return s.upsertLearningPatternTx(ctx, s.db, p)
}

func (s *SQLiteStorage) upsertLearningPatternTx(ctx context.Context, q queryable, p *model.LearningPattern) error {
	if p.LastConfirmedAt.IsZero() {
		p.LastConfirmedAt = time.Now()
	}
	if p.ConfirmationCount <= 0 {
		p.ConfirmationCount = 1
	}

	_, err := q.ExecContext(ctx, `
		INSERT INTO learning_patterns (
			entity_id, description_pattern, account_code, account_name,
			tax_type, confirmation_count, last_confirmed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(entity_id, description_pattern) DO UPDATE SET
			account_code = excluded.account_code,
			account_name = excluded.account_name,
			tax_type = excluded.tax_type,
			confirmation_count = learning_patterns.confirmation_count + 1,
			last_confirmed_at = excluded.last_confirmed_at
	`,
		p.EntityID, p.DescriptionPattern, p.AccountCode, p.AccountName,
		p.TaxType, p.ConfirmationCount, p.LastConfirmedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert learning pattern: %w", err)
	}
	return nil
}

// GetTopLearningPatterns returns the most-confirmed patterns for an entity.
func (s *SQLiteStorage) GetTopLearningPatterns(ctx context.Context, entityID string, limit int) ([]model.LearningPattern, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(entityID, "entityID"); err != nil {
		return nil, err
	}
	return s.getTopLearningPatternsTx(ctx, s.db, entityID, limit)
}

func (s *SQLiteStorage) getTopLearningPatternsTx(ctx context.Context, q queryable, entityID string, limit int) ([]model.LearningPattern, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := q.QueryContext(ctx, `
		SELECT entity_id, description_pattern, account_code, account_name,
			tax_type, confirmation_count, last_confirmed_at
		FROM learning_patterns
		WHERE entity_id = ?
		ORDER BY confirmation_count DESC, last_confirmed_at DESC
		LIMIT ?
	`, entityID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query learning patterns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var patterns []model.LearningPattern
	for rows.Next() {
		var p model.LearningPattern
		if err := rows.Scan(
			&p.EntityID, &p.DescriptionPattern, &p.AccountCode, &p.AccountName,
			&p.TaxType, &p.ConfirmationCount, &p.LastConfirmedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan learning pattern: %w", err)
		}
		patterns = append(patterns, p)
	}
	return patterns, rows.Err()
}
