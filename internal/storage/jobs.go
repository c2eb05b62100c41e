package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/faceless-truth/mcs-platform/internal/common"
	"github.com/faceless-truth/mcs-platform/internal/model"
)

// CreateJob persists a new review job.
func (s *SQLiteStorage) CreateJob(ctx context.Context, job *model.ReviewJob) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateJob(job); err != nil {
		return err
	}
	return s.createJobTx(ctx, s.db, job)
}

func (s *SQLiteStorage) createJobTx(ctx context.Context, q queryable, job *model.ReviewJob) error {
	if job.ReceivedAt.IsZero() {
		job.ReceivedAt = time.Now()
	}

	_, err := q.ExecContext(ctx, `
		INSERT INTO review_jobs (
			id, entity_id, status, source_reference, file_name, failure_reason,
			total_transactions, confirmed_count, rejected_count,
			account_name, bsb, account_number, period_start, period_end,
			opening_balance, closing_balance, received_at, completed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		job.ID, job.EntityID, job.Status, job.SourceReference, job.FileName, job.FailureReason,
		job.TotalTransactions, job.ConfirmedCount, job.RejectedCount,
		job.Statement.AccountName, job.Statement.BSB, job.Statement.AccountNumber,
		job.Statement.PeriodStart, job.Statement.PeriodEnd,
		job.Statement.OpeningBalance.String(), job.Statement.ClosingBalance.String(),
		job.ReceivedAt, job.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

// GetJob retrieves a review job by ID.
func (s *SQLiteStorage) GetJob(ctx context.Context, id string) (*model.ReviewJob, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}
	return s.getJobTx(ctx, s.db, id)
}

const jobColumns = `
	id, entity_id, status, source_reference, file_name, failure_reason,
	total_transactions, confirmed_count, rejected_count,
	account_name, bsb, account_number, period_start, period_end,
	opening_balance, closing_balance, received_at, completed_at`

func (s *SQLiteStorage) getJobTx(ctx context.Context, q queryable, id string) (*model.ReviewJob, error) {
	row := q.QueryRowContext(ctx, `SELECT`+jobColumns+` FROM review_jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return job, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*model.ReviewJob, error) {
	var job model.ReviewJob
	var opening, closing string
	var completedAt sql.NullTime

	err := row.Scan(
		&job.ID, &job.EntityID, &job.Status, &job.SourceReference, &job.FileName, &job.FailureReason,
		&job.TotalTransactions, &job.ConfirmedCount, &job.RejectedCount,
		&job.Statement.AccountName, &job.Statement.BSB, &job.Statement.AccountNumber,
		&job.Statement.PeriodStart, &job.Statement.PeriodEnd,
		&opening, &closing, &job.ReceivedAt, &completedAt,
	)
	if err != nil {
		return nil, err
	}

	if job.Statement.OpeningBalance, err = decimal.NewFromString(opening); err != nil {
		return nil, fmt.Errorf("invalid opening balance: %w", err)
	}
	if job.Statement.ClosingBalance, err = decimal.NewFromString(closing); err != nil {
		return nil, fmt.Errorf("invalid closing balance: %w", err)
	}
	if completedAt.Valid {
		job.CompletedAt = &completedAt.Time
	}
	return &job, nil
}

// ListJobs returns the most recent jobs, optionally filtered by entity.
func (s *SQLiteStorage) ListJobs(ctx context.Context, entityID string, limit int) ([]model.ReviewJob, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.listJobsTx(ctx, s.db, entityID, limit)
}

func (s *SQLiteStorage) listJobsTx(ctx context.Context, q queryable, entityID string, limit int) ([]model.ReviewJob, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT` + jobColumns + ` FROM review_jobs`
	args := []any{}
	if entityID != "" {
		query += ` WHERE entity_id = ?`
		args = append(args, entityID)
	}
	query += ` ORDER BY received_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query jobs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var jobs []model.ReviewJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

// UpdateJobStatus transitions a job, enforcing the state machine. Moving a
// terminal job or skipping states fails without mutating anything.
func (s *SQLiteStorage) UpdateJobStatus(ctx context.Context, id string, status model.JobStatus, failureReason string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}
	return s.updateJobStatusTx(ctx, s.db, id, status, failureReason)
}

func (s *SQLiteStorage) updateJobStatusTx(ctx context.Context, q queryable, id string, status model.JobStatus, failureReason string) error {
	job, err := s.getJobTx(ctx, q, id)
	if err != nil {
		return err
	}

	if !job.Status.CanTransitionTo(status) {
		return fmt.Errorf("%w: %s -> %s", common.ErrInvalidTransition, job.Status, status)
	}

	var completedAt any
	if status.Terminal() {
		completedAt = time.Now()
	}

	_, err = q.ExecContext(ctx, `
		UPDATE review_jobs
		SET status = ?, failure_reason = ?, completed_at = COALESCE(?, completed_at)
		WHERE id = ?
	`, status, failureReason, completedAt, id)
	if err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}
	return nil
}

// UpdateJobStatement records parsed statement metadata and the transaction count.
func (s *SQLiteStorage) UpdateJobStatement(ctx context.Context, id string, info model.StatementInfo, totalTransactions int) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}
	return s.updateJobStatementTx(ctx, s.db, id, info, totalTransactions)
}

func (s *SQLiteStorage) updateJobStatementTx(ctx context.Context, q queryable, id string, info model.StatementInfo, totalTransactions int) error {
	result, err := q.ExecContext(ctx, `
		UPDATE review_jobs
		SET account_name = ?, bsb = ?, account_number = ?,
			period_start = ?, period_end = ?,
			opening_balance = ?, closing_balance = ?,
			total_transactions = ?
		WHERE id = ?
	`,
		info.AccountName, info.BSB, info.AccountNumber,
		info.PeriodStart, info.PeriodEnd,
		info.OpeningBalance.String(), info.ClosingBalance.String(),
		totalTransactions, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update job statement: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return common.ErrNotFound
	}
	return nil
}

// RefreshJobCounts recounts confirmed/rejected transactions from their
// rows and writes the derived counts back, returning the fresh job.
// Counting from rows keeps the counters from drifting out of range.
func (s *SQLiteStorage) RefreshJobCounts(ctx context.Context, jobID string) (*model.ReviewJob, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(jobID, "jobID"); err != nil {
		return nil, err
	}
	return s.refreshJobCountsTx(ctx, s.db, jobID)
}

func (s *SQLiteStorage) refreshJobCountsTx(ctx context.Context, q queryable, jobID string) (*model.ReviewJob, error) {
	_, err := q.ExecContext(ctx, `
		UPDATE review_jobs
		SET confirmed_count = (
				SELECT COUNT(*) FROM pending_transactions
				WHERE job_id = ? AND status = ?
			),
			rejected_count = (
				SELECT COUNT(*) FROM pending_transactions
				WHERE job_id = ? AND status = ?
			)
		WHERE id = ?
	`, jobID, model.StatusConfirmed, jobID, model.StatusRejected, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to refresh job counts: %w", err)
	}
	return s.getJobTx(ctx, q, jobID)
}
