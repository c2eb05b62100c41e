// Package commit implements the atomic ledger commit: all ledger entries,
// learning updates, and the job's terminal status land in one database
// transaction or none of them do.
package commit

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/faceless-truth/mcs-platform/internal/common"
	"github.com/faceless-truth/mcs-platform/internal/learning"
	"github.com/faceless-truth/mcs-platform/internal/model"
	"github.com/faceless-truth/mcs-platform/internal/service"
)

// Engine writes committed jobs to the ledger.
type Engine struct {
	storage  service.Storage
	learning *learning.Store
	logger   *slog.Logger
}

// NewEngine creates a commit engine.
func NewEngine(storage service.Storage, store *learning.Store, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{storage: storage, learning: store, logger: logger}
}

// CommitJob writes every confirmed transaction of the job to the ledger,
// records the confirmed mappings as learning patterns, and marks the job
// committed. The whole operation runs inside one transaction; any failure
// rolls everything back and the job moves to failed instead.
func (e *Engine) CommitJob(ctx context.Context, jobID string) (*model.CommitResult, error) {
	job, err := e.storage.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	if job.Status == model.JobCommitted {
		return nil, common.ErrAlreadyCommitted
	}
	if job.Status != model.JobCommitting {
		return nil, fmt.Errorf("%w: job %s is %s", common.ErrInvalidTransition, jobID, job.Status)
	}

	txns, err := e.storage.GetJobTransactions(ctx, jobID)
	if err != nil {
		return nil, err
	}

	result, err := e.commitInTx(ctx, job, txns)
	if err != nil {
		// Best effort: surface the failure on the job itself. The original
		// error is what callers act on.
		if statusErr := e.storage.UpdateJobStatus(ctx, jobID, model.JobFailed, common.UserMessage(err)); statusErr != nil {
			e.logger.Error("failed to mark job failed after commit error",
				"job_id", jobID,
				"error", statusErr)
		}
		return nil, err
	}

	e.logger.Info("job committed",
		"job_id", jobID,
		"entity_id", job.EntityID,
		"ledger_entries", result.LedgerEntriesWritten,
		"patterns_updated", result.PatternsUpdated)

	return result, nil
}

func (e *Engine) commitInTx(ctx context.Context, job *model.ReviewJob, txns []model.PendingTransaction) (*model.CommitResult, error) {
	tx, err := e.storage.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin commit transaction: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(); rbErr != nil {
				e.logger.Error("rollback failed", "job_id", job.ID, "error", rbErr)
			}
		}
	}()

	result := &model.CommitResult{}

	for i := range txns {
		txn := &txns[i]
		if txn.Status != model.StatusConfirmed {
			continue
		}

		entry := &model.LedgerEntry{
			EntityID:      job.EntityID,
			JobID:         job.ID,
			TransactionID: txn.ID,
			Date:          txn.Transaction.Date,
			Description:   txn.Transaction.Description,
			AccountCode:   txn.ConfirmedAccountCode,
			TaxType:       txn.ConfirmedTaxType,
			Amount:        txn.Transaction.Amount,
			GSTAmount:     txn.GSTAmount,
			NetAmount:     txn.NetAmount,
		}
		if err := tx.SaveLedgerEntry(ctx, entry); err != nil {
			return nil, fmt.Errorf("failed to write ledger entry for transaction %s: %w", txn.ID, err)
		}
		result.LedgerEntriesWritten++

		account, err := tx.GetAccount(ctx, job.EntityID, txn.ConfirmedAccountCode)
		if err != nil {
			return nil, fmt.Errorf("failed to load account %s: %w", txn.ConfirmedAccountCode, err)
		}

		if err := e.learning.Record(ctx, tx, job.EntityID, txn.Transaction.Description,
			account.Code, account.Name, txn.ConfirmedTaxType); err != nil {
			return nil, fmt.Errorf("failed to record learning pattern: %w", err)
		}
		result.PatternsUpdated++
	}

	if err := tx.UpdateJobStatus(ctx, job.ID, model.JobCommitted, ""); err != nil {
		return nil, fmt.Errorf("failed to mark job committed: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	committed = true

	return result, nil
}
