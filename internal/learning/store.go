package learning

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/faceless-truth/mcs-platform/internal/common"
	"github.com/faceless-truth/mcs-platform/internal/model"
	"github.com/faceless-truth/mcs-platform/internal/service"
)

// Store reads and writes confirmed classification patterns. Reads happen
// on every classification attempt; writes happen only through the commit
// engine's feedback loop.
type Store struct {
	storage        service.Storage
	trustThreshold int
}

// NewStore creates a learning store. trustThreshold is the confirmation
// count at which a pattern is trusted enough to approach full confidence.
func NewStore(storage service.Storage, trustThreshold int) *Store {
	if trustThreshold <= 0 {
		trustThreshold = 5
	}
	return &Store{storage: storage, trustThreshold: trustThreshold}
}

// Lookup finds a previously confirmed classification for the description.
// Returns nil when no pattern matches.
func (s *Store) Lookup(ctx context.Context, entityID, description string) (*model.Suggestion, error) {
	pattern := Normalize(description)
	if pattern == "" {
		return nil, nil
	}

	p, err := s.storage.GetLearningPattern(ctx, entityID, pattern)
	if errors.Is(err, common.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("learning lookup failed: %w", err)
	}

	return &model.Suggestion{
		AccountCode: p.AccountCode,
		AccountName: p.AccountName,
		TaxType:     p.TaxType,
		Source:      model.SourceLearned,
		Confidence:  s.confidenceFor(p.ConfirmationCount),
		Rationale:   fmt.Sprintf("matched learned pattern (confirmed %dx)", p.ConfirmationCount),
	}, nil
}

// Record stores a confirmed mapping, incrementing the confirmation count
// for an existing pattern. The storage argument lets the commit engine
// pass its open transaction so learning updates share its atomicity.
func (s *Store) Record(ctx context.Context, storage service.Storage, entityID, description, accountCode, accountName string, taxType model.TaxType) error {
	pattern := Normalize(description)
	if pattern == "" || accountCode == "" {
		return nil
	}

	return storage.UpsertLearningPattern(ctx, &model.LearningPattern{
		EntityID:           entityID,
		DescriptionPattern: pattern,
		AccountCode:        accountCode,
		AccountName:        accountName,
		TaxType:            taxType,
		ConfirmationCount:  1,
		LastConfirmedAt:    time.Now(),
	})
}

// Stats summarizes the entity's learning history.
func (s *Store) Stats(ctx context.Context, entityID string, topN int) (*service.PatternStats, error) {
	patterns, err := s.storage.GetTopLearningPatterns(ctx, entityID, topN)
	if err != nil {
		return nil, err
	}

	stats := &service.PatternStats{TopPatterns: patterns}
	stats.TotalPatterns = len(patterns)
	for _, p := range patterns {
		stats.TotalConfirmations += p.ConfirmationCount
	}
	return stats, nil
}

// confidenceFor maps a confirmation count to a confidence score. The
// curve rises monotonically and saturates below 1.0 so a learned hit
// never fully bypasses human review until the pattern crosses the trust
// threshold.
func (s *Store) confidenceFor(confirmations int) float64 {
	if confirmations >= s.trustThreshold {
		return 0.98
	}
	steps := confirmations
	if steps > 4 {
		steps = 4
	}
	if steps < 1 {
		steps = 1
	}
	return 0.5 + 0.1*float64(steps)
}
