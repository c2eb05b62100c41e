// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/faceless-truth/mcs-platform/internal/model"
)

// Storage defines the contract for our persistence layer.
type Storage interface {
	// Review job operations
	CreateJob(ctx context.Context, job *model.ReviewJob) error
	GetJob(ctx context.Context, id string) (*model.ReviewJob, error)
	ListJobs(ctx context.Context, entityID string, limit int) ([]model.ReviewJob, error)
	UpdateJobStatus(ctx context.Context, id string, status model.JobStatus, failureReason string) error
	UpdateJobStatement(ctx context.Context, id string, info model.StatementInfo, totalTransactions int) error
	RefreshJobCounts(ctx context.Context, jobID string) (*model.ReviewJob, error)

	// Pending transaction operations
	SavePendingTransactions(ctx context.Context, txns []model.PendingTransaction) error
	GetPendingTransaction(ctx context.Context, id string) (*model.PendingTransaction, error)
	GetJobTransactions(ctx context.Context, jobID string) ([]model.PendingTransaction, error)
	UpdateSuggestion(ctx context.Context, id string, suggestion model.Suggestion) error
	UpdateTransactionStatus(ctx context.Context, id string, status model.TransactionStatus,
		accountCode string, taxType model.TaxType, gst, net decimal.Decimal) error
	FindExistingHashes(ctx context.Context, entityID string, hashes []string) (map[string]bool, error)

	// Learning pattern operations
	GetLearningPattern(ctx context.Context, entityID, pattern string) (*model.LearningPattern, error)
	UpsertLearningPattern(ctx context.Context, p *model.LearningPattern) error
	GetTopLearningPatterns(ctx context.Context, entityID string, limit int) ([]model.LearningPattern, error)

	// Chart of accounts operations
	GetAccounts(ctx context.Context, entityID string) ([]model.Account, error)
	GetAccount(ctx context.Context, entityID, code string) (*model.Account, error)
	SaveAccount(ctx context.Context, account *model.Account) error

	// Ledger operations
	SaveLedgerEntry(ctx context.Context, entry *model.LedgerEntry) error
	GetLedgerEntriesByJob(ctx context.Context, jobID string) ([]model.LedgerEntry, error)

	// Database management
	Migrate(ctx context.Context) error
	BeginTx(ctx context.Context) (Transaction, error)
	Close() error
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit() error
	Rollback() error
	// Include all Storage methods for use within transaction
	Storage
}

// ClassifyRequest is the input sent to the external AI classifier for one
// transaction. Accounts and tax types give the model the entity's
// vocabulary so it cannot invent codes.
type ClassifyRequest struct {
	Description string
	Amount      decimal.Decimal
	Accounts    []model.Account
	TaxTypes    []model.TaxType
}

// ClassifyResponse is the sanitized classifier output.
type ClassifyResponse struct {
	AccountCode string
	AccountName string
	TaxType     model.TaxType
	Rationale   string
	Confidence  float64
}

// Classifier is the external AI classification boundary.
type Classifier interface {
	Classify(ctx context.Context, req ClassifyRequest) (*ClassifyResponse, error)
	Close() error
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// PatternStats is the learning store read model surfaced by the CLI.
type PatternStats struct {
	TopPatterns        []model.LearningPattern
	TotalPatterns      int
	TotalConfirmations int
}
