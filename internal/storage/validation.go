package storage

import (
	"context"
	"fmt"

	"github.com/faceless-truth/mcs-platform/internal/model"
)

func validateContext(ctx context.Context) error {
	if ctx == nil {
		return fmt.Errorf("context cannot be nil")
	}
	return ctx.Err()
}

func validateString(value, name string) error {
	if value == "" {
		return fmt.Errorf("%s cannot be empty", name)
	}
	return nil
}

func validateJob(job *model.ReviewJob) error {
	if job == nil {
		return fmt.Errorf("job cannot be nil")
	}
	if err := validateString(job.ID, "job.ID"); err != nil {
		return err
	}
	if err := validateString(job.EntityID, "job.EntityID"); err != nil {
		return err
	}
	if job.Status == "" {
		return fmt.Errorf("job.Status cannot be empty")
	}
	return nil
}

func validatePendingTransaction(txn *model.PendingTransaction) error {
	if txn == nil {
		return fmt.Errorf("pending transaction cannot be nil")
	}
	if err := validateString(txn.ID, "transaction.ID"); err != nil {
		return err
	}
	if err := validateString(txn.JobID, "transaction.JobID"); err != nil {
		return err
	}
	if txn.Transaction.Hash == "" {
		return fmt.Errorf("transaction.Hash cannot be empty")
	}
	return nil
}

func validateLearningPattern(p *model.LearningPattern) error {
	if p == nil {
		return fmt.Errorf("learning pattern cannot be nil")
	}
	if err := validateString(p.EntityID, "pattern.EntityID"); err != nil {
		return err
	}
	if err := validateString(p.DescriptionPattern, "pattern.DescriptionPattern"); err != nil {
		return err
	}
	if err := validateString(p.AccountCode, "pattern.AccountCode"); err != nil {
		return err
	}
	return nil
}

func validateLedgerEntry(e *model.LedgerEntry) error {
	if e == nil {
		return fmt.Errorf("ledger entry cannot be nil")
	}
	if err := validateString(e.EntityID, "entry.EntityID"); err != nil {
		return err
	}
	if err := validateString(e.JobID, "entry.JobID"); err != nil {
		return err
	}
	if err := validateString(e.TransactionID, "entry.TransactionID"); err != nil {
		return err
	}
	if err := validateString(e.AccountCode, "entry.AccountCode"); err != nil {
		return err
	}
	return nil
}
