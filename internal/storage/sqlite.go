// Package storage implements the persistence layer on SQLite.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"

	"github.com/faceless-truth/mcs-platform/internal/model"
	"github.com/faceless-truth/mcs-platform/internal/service"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// queryable abstracts over *sql.DB and *sql.Tx so the same query helpers
// run inside or outside a transaction.
type queryable interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// SQLiteStorage implements the service.Storage interface using SQLite.
type SQLiteStorage struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStorage creates a new SQLite storage instance.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if err := validateString(dbPath, "dbPath"); err != nil {
		return nil, err
	}

	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't benefit from multiple connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteStorage{db: db, dbPath: dbPath}, nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// BeginTx starts a new database transaction.
func (s *SQLiteStorage) BeginTx(ctx context.Context) (service.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	return &sqliteTransaction{tx: tx, storage: s}, nil
}

// sqliteTransaction wraps sql.Tx to implement service.Transaction.
type sqliteTransaction struct {
	tx      *sql.Tx
	storage *SQLiteStorage
}

func (t *sqliteTransaction) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTransaction) Rollback() error {
	return t.tx.Rollback()
}

// Transaction methods delegate to the main storage with the transaction.

func (t *sqliteTransaction) CreateJob(ctx context.Context, job *model.ReviewJob) error {
	return t.storage.createJobTx(ctx, t.tx, job)
}

func (t *sqliteTransaction) GetJob(ctx context.Context, id string) (*model.ReviewJob, error) {
	return t.storage.getJobTx(ctx, t.tx, id)
}

func (t *sqliteTransaction) ListJobs(ctx context.Context, entityID string, limit int) ([]model.ReviewJob, error) {
	return t.storage.listJobsTx(ctx, t.tx, entityID, limit)
}

func (t *sqliteTransaction) UpdateJobStatus(ctx context.Context, id string, status model.JobStatus, failureReason string) error {
	return t.storage.updateJobStatusTx(ctx, t.tx, id, status, failureReason)
}

func (t *sqliteTransaction) UpdateJobStatement(ctx context.Context, id string, info model.StatementInfo, totalTransactions int) error {
	return t.storage.updateJobStatementTx(ctx, t.tx, id, info, totalTransactions)
}

func (t *sqliteTransaction) RefreshJobCounts(ctx context.Context, jobID string) (*model.ReviewJob, error) {
	return t.storage.refreshJobCountsTx(ctx, t.tx, jobID)
}

func (t *sqliteTransaction) SavePendingTransactions(ctx context.Context, txns []model.PendingTransaction) error {
	return t.storage.savePendingTransactionsTx(ctx, t.tx, txns)
}

func (t *sqliteTransaction) GetPendingTransaction(ctx context.Context, id string) (*model.PendingTransaction, error) {
	return t.storage.getPendingTransactionTx(ctx, t.tx, id)
}

func (t *sqliteTransaction) GetJobTransactions(ctx context.Context, jobID string) ([]model.PendingTransaction, error) {
	return t.storage.getJobTransactionsTx(ctx, t.tx, jobID)
}

func (t *sqliteTransaction) UpdateSuggestion(ctx context.Context, id string, suggestion model.Suggestion) error {
	return t.storage.updateSuggestionTx(ctx, t.tx, id, suggestion)
}

func (t *sqliteTransaction) UpdateTransactionStatus(ctx context.Context, id string, status model.TransactionStatus,
	accountCode string, taxType model.TaxType, gst, net decimal.Decimal) error {
	return t.storage.updateTransactionStatusTx(ctx, t.tx, id, status, accountCode, taxType, gst, net)
}

func (t *sqliteTransaction) FindExistingHashes(ctx context.Context, entityID string, hashes []string) (map[string]bool, error) {
	return t.storage.findExistingHashesTx(ctx, t.tx, entityID, hashes)
}

func (t *sqliteTransaction) GetLearningPattern(ctx context.Context, entityID, pattern string) (*model.LearningPattern, error) {
	return t.storage.getLearningPatternTx(ctx, t.tx, entityID, pattern)
}

func (t *sqliteTransaction) UpsertLearningPattern(ctx context.Context, p *model.LearningPattern) error {
	return t.storage.upsertLearningPatternTx(ctx, t.tx, p)
}

func (t *sqliteTransaction) GetTopLearningPatterns(ctx context.Context, entityID string, limit int) ([]model.LearningPattern, error) {
	return t.storage.getTopLearningPatternsTx(ctx, t.tx, entityID, limit)
}

func (t *sqliteTransaction) GetAccounts(ctx context.Context, entityID string) ([]model.Account, error) {
	return t.storage.getAccountsTx(ctx, t.tx, entityID)
}

func (t *sqliteTransaction) GetAccount(ctx context.Context, entityID, code string) (*model.Account, error) {
	return t.storage.getAccountTx(ctx, t.tx, entityID, code)
}

func (t *sqliteTransaction) SaveAccount(ctx context.Context, account *model.Account) error {
	return t.storage.saveAccountTx(ctx, t.tx, account)
}

func (t *sqliteTransaction) SaveLedgerEntry(ctx context.Context, entry *model.LedgerEntry) error {
	return t.storage.saveLedgerEntryTx(ctx, t.tx, entry)
}

func (t *sqliteTransaction) GetLedgerEntriesByJob(ctx context.Context, jobID string) ([]model.LedgerEntry, error) {
	return t.storage.getLedgerEntriesByJobTx(ctx, t.tx, jobID)
}

func (t *sqliteTransaction) Migrate(_ context.Context) error {
	// Migrations should not be run within a transaction
	return fmt.Errorf("migrations cannot be run within a transaction")
}

func (t *sqliteTransaction) BeginTx(_ context.Context) (service.Transaction, error) {
	// Nested transactions not supported
	return nil, fmt.Errorf("nested transactions not supported")
}

func (t *sqliteTransaction) Close() error {
	// Transactions should be committed or rolled back, not closed
	return fmt.Errorf("transactions must be committed or rolled back, not closed")
}
