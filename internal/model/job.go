package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// JobStatus is the review job lifecycle state.
type JobStatus string

// Review job status constants.
const (
	JobCreated        JobStatus = "created"
	JobExtracting     JobStatus = "extracting"
	JobClassifying    JobStatus = "classifying"
	JobAwaitingReview JobStatus = "awaiting_review"
	JobCommitting     JobStatus = "committing"
	JobCommitted      JobStatus = "committed"
	JobFailed         JobStatus = "failed"
)

// Terminal reports whether the status permits no further transitions.
func (s JobStatus) Terminal() bool {
	return s == JobCommitted || s == JobFailed
}

// jobTransitions is the closed set of legal state transitions.
var jobTransitions = map[JobStatus][]JobStatus{
	JobCreated:        {JobExtracting, JobFailed},
	JobExtracting:     {JobClassifying, JobFailed},
	JobClassifying:    {JobAwaitingReview, JobFailed},
	JobAwaitingReview: {JobCommitting, JobFailed},
	JobCommitting:     {JobCommitted, JobFailed},
}

// CanTransitionTo reports whether moving from s to next is legal.
func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	for _, allowed := range jobTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// StatementInfo carries bank statement metadata captured during parsing.
type StatementInfo struct {
	AccountName    string
	BSB            string
	AccountNumber  string
	PeriodStart    string
	PeriodEnd      string
	OpeningBalance decimal.Decimal
	ClosingBalance decimal.Decimal
}

// ReviewJob aggregates the pending transactions for one statement upload.
// Terminal jobs are immutable.
type ReviewJob struct {
	ReceivedAt        time.Time
	CompletedAt       *time.Time
	ID                string
	EntityID          string
	SourceReference   string
	FileName          string
	FailureReason     string
	Statement         StatementInfo
	Status            JobStatus
	TotalTransactions int
	ConfirmedCount    int
	RejectedCount     int
}

// ProgressPercent derives review progress from its inputs; it is never
// stored, which keeps it inside [0,100] by construction. A job with no
// transactions reports 0.
func (j *ReviewJob) ProgressPercent() int {
	if j.TotalTransactions <= 0 {
		return 0
	}
	done := j.ConfirmedCount
	if done > j.TotalTransactions {
		done = j.TotalTransactions
	}
	return done * 100 / j.TotalTransactions
}
