package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS review_jobs (
					id TEXT PRIMARY KEY,
					entity_id TEXT NOT NULL,
					status TEXT NOT NULL,
					source_reference TEXT NOT NULL DEFAULT '',
					file_name TEXT NOT NULL DEFAULT '',
					failure_reason TEXT NOT NULL DEFAULT '',
					total_transactions INTEGER NOT NULL DEFAULT 0,
					confirmed_count INTEGER NOT NULL DEFAULT 0,
					rejected_count INTEGER NOT NULL DEFAULT 0,
					received_at DATETIME NOT NULL,
					completed_at DATETIME
				)`,
				`CREATE INDEX idx_review_jobs_entity ON review_jobs(entity_id)`,
				`CREATE INDEX idx_review_jobs_status ON review_jobs(status)`,

				`CREATE TABLE IF NOT EXISTS pending_transactions (
					id TEXT PRIMARY KEY,
					job_id TEXT NOT NULL,
					entity_id TEXT NOT NULL,
					txn_date DATETIME NOT NULL,
					description TEXT NOT NULL,
					amount TEXT NOT NULL,
					balance TEXT,
					line_index INTEGER NOT NULL DEFAULT 0,
					hash TEXT NOT NULL,
					status TEXT NOT NULL DEFAULT 'suggested',
					suggested_code TEXT NOT NULL DEFAULT '',
					suggested_name TEXT NOT NULL DEFAULT '',
					suggested_tax_type TEXT NOT NULL DEFAULT '',
					suggestion_source TEXT NOT NULL DEFAULT 'none',
					confidence REAL NOT NULL DEFAULT 0,
					rationale TEXT NOT NULL DEFAULT '',
					confirmed_code TEXT NOT NULL DEFAULT '',
					confirmed_tax_type TEXT NOT NULL DEFAULT '',
					gst_amount TEXT NOT NULL DEFAULT '0',
					net_amount TEXT NOT NULL DEFAULT '0',
					FOREIGN KEY (job_id) REFERENCES review_jobs(id)
				)`,
				`CREATE INDEX idx_pending_transactions_job ON pending_transactions(job_id)`,
				`CREATE INDEX idx_pending_transactions_hash ON pending_transactions(entity_id, hash)`,

				`CREATE TABLE IF NOT EXISTS learning_patterns (
					entity_id TEXT NOT NULL,
					description_pattern TEXT NOT NULL,
					account_code TEXT NOT NULL,
					account_name TEXT NOT NULL DEFAULT '',
					tax_type TEXT NOT NULL DEFAULT '',
					confirmation_count INTEGER NOT NULL DEFAULT 1,
					last_confirmed_at DATETIME NOT NULL,
					PRIMARY KEY (entity_id, description_pattern)
				)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Chart of accounts",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS accounts (
					entity_id TEXT NOT NULL,
					code TEXT NOT NULL,
					name TEXT NOT NULL,
					section TEXT NOT NULL DEFAULT '',
					tax_code TEXT NOT NULL DEFAULT '',
					is_active INTEGER NOT NULL DEFAULT 1,
					PRIMARY KEY (entity_id, code)
				)
			`)
			return err
		},
	},
	{
		Version:     3,
		Description: "Ledger entries and statement metadata",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS ledger_entries (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					entity_id TEXT NOT NULL,
					job_id TEXT NOT NULL,
					transaction_id TEXT NOT NULL UNIQUE,
					entry_date DATETIME NOT NULL,
					description TEXT NOT NULL,
					account_code TEXT NOT NULL,
					tax_type TEXT NOT NULL,
					amount TEXT NOT NULL,
					gst_amount TEXT NOT NULL DEFAULT '0',
					net_amount TEXT NOT NULL DEFAULT '0',
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_ledger_entries_job ON ledger_entries(job_id)`,
				`CREATE INDEX idx_ledger_entries_entity ON ledger_entries(entity_id)`,
				`ALTER TABLE review_jobs ADD COLUMN account_name TEXT NOT NULL DEFAULT ''`,
				`ALTER TABLE review_jobs ADD COLUMN bsb TEXT NOT NULL DEFAULT ''`,
				`ALTER TABLE review_jobs ADD COLUMN account_number TEXT NOT NULL DEFAULT ''`,
				`ALTER TABLE review_jobs ADD COLUMN period_start TEXT NOT NULL DEFAULT ''`,
				`ALTER TABLE review_jobs ADD COLUMN period_end TEXT NOT NULL DEFAULT ''`,
				`ALTER TABLE review_jobs ADD COLUMN opening_balance TEXT NOT NULL DEFAULT '0'`,
				`ALTER TABLE review_jobs ADD COLUMN closing_balance TEXT NOT NULL DEFAULT '0'`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query '%s': %w", query, err)
				}
			}
			return nil
		},
	},
}

// Migrate runs all pending migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	var currentVersion int
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`,
	).Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin migration transaction: %w", err)
		}

		if err := migration.Up(tx); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d (%s) failed: %w", migration.Version, migration.Description, err)
		}

		if _, err := tx.Exec(
			`INSERT INTO schema_migrations (version, description) VALUES (?, ?)`,
			migration.Version, migration.Description,
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	return nil
}
