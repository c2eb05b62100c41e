// Package job drives review jobs through their lifecycle, from statement
// extraction to the commit handoff.
package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/faceless-truth/mcs-platform/internal/commit"
	"github.com/faceless-truth/mcs-platform/internal/common"
	"github.com/faceless-truth/mcs-platform/internal/config"
	"github.com/faceless-truth/mcs-platform/internal/engine"
	"github.com/faceless-truth/mcs-platform/internal/model"
	"github.com/faceless-truth/mcs-platform/internal/parser"
	"github.com/faceless-truth/mcs-platform/internal/service"
)

// Manager owns review job lifecycle operations. A per-job mutex
// serializes mutations so concurrent reviewers cannot race a finalize.
type Manager struct {
	storage    service.Storage
	engine     *engine.Engine
	committer  *commit.Engine
	logger     *slog.Logger
	cfg        *config.Config
	jobLocks   map[string]*sync.Mutex
	jobLocksMu sync.Mutex
}

// NewManager creates a review job manager.
func NewManager(storage service.Storage, eng *engine.Engine, committer *commit.Engine, cfg *config.Config, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		storage:   storage,
		engine:    eng,
		committer: committer,
		logger:    logger,
		cfg:       cfg,
		jobLocks:  make(map[string]*sync.Mutex),
	}
}

// lockJob returns the mutex for a job, creating it on first use.
func (m *Manager) lockJob(jobID string) *sync.Mutex {
	m.jobLocksMu.Lock()
	defer m.jobLocksMu.Unlock()

	mu, ok := m.jobLocks[jobID]
	if !ok {
		mu = &sync.Mutex{}
		m.jobLocks[jobID] = mu
	}
	return mu
}

// CreateJob registers a new review job in the created state.
func (m *Manager) CreateJob(ctx context.Context, entityID, sourceReference, fileName string) (*model.ReviewJob, error) {
	job := &model.ReviewJob{
		ID:              uuid.New().String(),
		EntityID:        entityID,
		SourceReference: sourceReference,
		FileName:        fileName,
		Status:          model.JobCreated,
		ReceivedAt:      time.Now(),
	}
	if err := m.storage.CreateJob(ctx, job); err != nil {
		return nil, err
	}

	m.logger.Info("review job created",
		"job_id", job.ID,
		"entity_id", entityID,
		"file", fileName)

	return job, nil
}

// Run executes the ingestion pipeline for a created job: extract the
// document, drop duplicates, classify, and park the job in
// awaiting_review. A parse failure lands the job in failed with a
// caller-safe reason. The declared format is the uploader's hint and is
// forwarded to the parser.
func (m *Manager) Run(ctx context.Context, jobID string, content []byte, declared parser.Format, progress func(done, total int)) error {
	mu := m.lockJob(jobID)
	mu.Lock()
	defer mu.Unlock()

	job, err := m.storage.GetJob(ctx, jobID)
	if err != nil {
		return err
	}

	if err := m.storage.UpdateJobStatus(ctx, jobID, model.JobExtracting, ""); err != nil {
		return err
	}

	result, err := parser.Parse(ctx, content, job.FileName, declared)
	if err != nil {
		return m.fail(ctx, jobID, common.NewUserError("the statement could not be parsed", err))
	}

	pending, err := m.buildPending(ctx, job, result)
	if err != nil {
		return m.fail(ctx, jobID, err)
	}
	if len(pending) == 0 {
		return m.fail(ctx, jobID, common.NewUserError(
			"every transaction in this statement was already ingested",
			common.ErrDuplicateEntry))
	}

	if err := m.storage.UpdateJobStatement(ctx, jobID, result.Statement, len(pending)); err != nil {
		return m.fail(ctx, jobID, err)
	}
	if err := m.storage.SavePendingTransactions(ctx, pending); err != nil {
		return m.fail(ctx, jobID, err)
	}

	if err := m.storage.UpdateJobStatus(ctx, jobID, model.JobClassifying, ""); err != nil {
		return err
	}

	accounts, err := m.storage.GetAccounts(ctx, job.EntityID)
	if err != nil {
		return m.fail(ctx, jobID, err)
	}

	txns := make([]model.Transaction, len(pending))
	for i := range pending {
		txns[i] = pending[i].Transaction
	}

	suggestions := m.engine.ClassifyAll(ctx, job.EntityID, txns, accounts, progress)
	for i := range pending {
		if err := m.storage.UpdateSuggestion(ctx, pending[i].ID, suggestions[i]); err != nil {
			return m.fail(ctx, jobID, err)
		}
	}

	if err := m.storage.UpdateJobStatus(ctx, jobID, model.JobAwaitingReview, ""); err != nil {
		return err
	}

	m.logger.Info("job ready for review",
		"job_id", jobID,
		"transactions", len(pending))

	return nil
}

// buildPending converts parsed transactions into pending rows, dropping
// any hash the entity has already ingested and anything outside the
// declared statement period.
func (m *Manager) buildPending(ctx context.Context, job *model.ReviewJob, result *parser.Result) ([]model.PendingTransaction, error) {
	txns := filterPeriod(result, m.logger)

	hashes := make([]string, len(txns))
	for i := range txns {
		hashes[i] = txns[i].Hash
	}
	existing, err := m.storage.FindExistingHashes(ctx, job.EntityID, hashes)
	if err != nil {
		return nil, err
	}

	var pending []model.PendingTransaction
	for _, txn := range txns {
		if existing[txn.Hash] {
			m.logger.Debug("skipping duplicate transaction",
				"job_id", job.ID,
				"hash", txn.Hash)
			continue
		}
		pending = append(pending, model.PendingTransaction{
			ID:          uuid.New().String(),
			JobID:       job.ID,
			EntityID:    job.EntityID,
			Transaction: txn,
			Suggestion:  model.None(),
			Status:      model.StatusSuggested,
		})
	}
	return pending, nil
}

// filterPeriod excludes transactions dated outside the statement period
// when the parser captured one. Bad dates in the header disable the
// filter rather than dropping everything.
func filterPeriod(result *parser.Result, logger *slog.Logger) []model.Transaction {
	start, errS := parser.ParsePeriodDate(result.Statement.PeriodStart)
	end, errE := parser.ParsePeriodDate(result.Statement.PeriodEnd)
	if errS != nil || errE != nil {
		return result.Transactions
	}
	end = end.AddDate(0, 0, 1)

	var kept []model.Transaction
	for _, txn := range result.Transactions {
		if txn.Date.Before(start) || !txn.Date.Before(end) {
			logger.Warn("excluding transaction outside statement period",
				"date", txn.Date.Format("2006-01-02"),
				"description", common.ScrubPII(txn.Description))
			continue
		}
		kept = append(kept, txn)
	}
	return kept
}

// Confirm records a reviewer's decision for one pending transaction. The
// account code and tax type are validated before anything changes; an
// invalid decision leaves the transaction untouched.
func (m *Manager) Confirm(ctx context.Context, txnID, accountCode string, taxType model.TaxType) error {
	txn, err := m.storage.GetPendingTransaction(ctx, txnID)
	if err != nil {
		return err
	}

	mu := m.lockJob(txn.JobID)
	mu.Lock()
	defer mu.Unlock()

	if err := m.requireReviewable(ctx, txn.JobID); err != nil {
		return err
	}

	if !taxType.Valid() {
		return common.NewUserError(fmt.Sprintf("unknown tax type %q", taxType), common.ErrInvalidConfig)
	}
	if _, err := m.storage.GetAccount(ctx, txn.EntityID, accountCode); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.NewUserError(fmt.Sprintf("account %q is not in the chart of accounts", accountCode), err)
		}
		return err
	}

	txn.CalculateGST(taxType, m.cfg.GSTRegistered)

	return m.storage.UpdateTransactionStatus(ctx, txnID, model.StatusConfirmed,
		accountCode, taxType, txn.GSTAmount, txn.NetAmount)
}

// Reject marks a pending transaction as excluded from the commit.
func (m *Manager) Reject(ctx context.Context, txnID string) error {
	txn, err := m.storage.GetPendingTransaction(ctx, txnID)
	if err != nil {
		return err
	}

	mu := m.lockJob(txn.JobID)
	mu.Lock()
	defer mu.Unlock()

	if err := m.requireReviewable(ctx, txn.JobID); err != nil {
		return err
	}

	return m.storage.UpdateTransactionStatus(ctx, txnID, model.StatusRejected,
		"", "", decimal.Zero, decimal.Zero)
}

// AcceptAll confirms every still-suggested transaction that carries a
// usable suggestion. Transactions without a suggested account are left
// for manual review. Returns the number confirmed.
func (m *Manager) AcceptAll(ctx context.Context, jobID string) (int, error) {
	mu := m.lockJob(jobID)
	mu.Lock()
	defer mu.Unlock()

	if err := m.requireReviewable(ctx, jobID); err != nil {
		return 0, err
	}

	txns, err := m.storage.GetJobTransactions(ctx, jobID)
	if err != nil {
		return 0, err
	}

	confirmed := 0
	for i := range txns {
		txn := &txns[i]
		if txn.Status != model.StatusSuggested || txn.Suggestion.AccountCode == "" {
			continue
		}
		if !txn.Suggestion.TaxType.Valid() {
			continue
		}

		txn.CalculateGST(txn.Suggestion.TaxType, m.cfg.GSTRegistered)
		if err := m.storage.UpdateTransactionStatus(ctx, txn.ID, model.StatusConfirmed,
			txn.Suggestion.AccountCode, txn.Suggestion.TaxType, txn.GSTAmount, txn.NetAmount); err != nil {
			return confirmed, err
		}
		confirmed++
	}
	return confirmed, nil
}

// Finalize commits a fully reviewed job. Every non-rejected transaction
// must be confirmed first.
func (m *Manager) Finalize(ctx context.Context, jobID string) (*model.CommitResult, error) {
	mu := m.lockJob(jobID)
	mu.Lock()
	defer mu.Unlock()

	job, err := m.storage.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status == model.JobCommitted {
		return nil, common.ErrAlreadyCommitted
	}
	if job.Status != model.JobAwaitingReview {
		return nil, fmt.Errorf("%w: job is %s", common.ErrJobNotReviewable, job.Status)
	}

	txns, err := m.storage.GetJobTransactions(ctx, jobID)
	if err != nil {
		return nil, err
	}
	for i := range txns {
		if txns[i].Status == model.StatusSuggested {
			return nil, common.NewUserError(
				fmt.Sprintf("%d transactions are still unreviewed", countSuggested(txns)),
				common.ErrJobNotReviewable)
		}
	}

	if err := m.storage.UpdateJobStatus(ctx, jobID, model.JobCommitting, ""); err != nil {
		return nil, err
	}

	return m.committer.CommitJob(ctx, jobID)
}

// Abandon moves an awaiting_review job to failed without committing.
func (m *Manager) Abandon(ctx context.Context, jobID, reason string) error {
	mu := m.lockJob(jobID)
	mu.Lock()
	defer mu.Unlock()

	if err := m.requireReviewable(ctx, jobID); err != nil {
		return err
	}
	if reason == "" {
		reason = "abandoned by reviewer"
	}
	return m.storage.UpdateJobStatus(ctx, jobID, model.JobFailed, reason)
}

// Progress returns the job with refreshed review counts.
func (m *Manager) Progress(ctx context.Context, jobID string) (*model.ReviewJob, error) {
	return m.storage.RefreshJobCounts(ctx, jobID)
}

func (m *Manager) requireReviewable(ctx context.Context, jobID string) error {
	job, err := m.storage.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status != model.JobAwaitingReview {
		return fmt.Errorf("%w: job is %s", common.ErrJobNotReviewable, job.Status)
	}
	return nil
}

// fail moves the job to failed with a caller-safe reason and returns the
// original error.
func (m *Manager) fail(ctx context.Context, jobID string, cause error) error {
	if err := m.storage.UpdateJobStatus(ctx, jobID, model.JobFailed, common.UserMessage(cause)); err != nil {
		m.logger.Error("failed to mark job failed",
			"job_id", jobID,
			"error", err)
	}
	return cause
}

func countSuggested(txns []model.PendingTransaction) int {
	n := 0
	for i := range txns {
		if txns[i].Status == model.StatusSuggested {
			n++
		}
	}
	return n
}
