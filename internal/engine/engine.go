// Package engine produces classification suggestions for pending
// transactions, combining the learning store with the external AI
// classifier.
package engine

import (
	"context"
	"log/slog"
	"sync"

	"github.com/faceless-truth/mcs-platform/internal/common"
	"github.com/faceless-truth/mcs-platform/internal/config"
	"github.com/faceless-truth/mcs-platform/internal/learning"
	"github.com/faceless-truth/mcs-platform/internal/model"
	"github.com/faceless-truth/mcs-platform/internal/service"
)

// Engine implements the classification decision flow: learned patterns
// first, the AI classifier second, graceful degradation always. Classify
// never returns an error; a failed attempt produces the none suggestion
// and the transaction reaches human review regardless.
type Engine struct {
	learning   *learning.Store
	classifier service.Classifier
	logger     *slog.Logger
	cfg        config.Classification
}

// New creates a classification engine. The classifier may be nil, in
// which case only learned patterns produce suggestions.
func New(store *learning.Store, classifier service.Classifier, cfg config.Classification, logger *slog.Logger) *Engine {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = 5
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		learning:   store,
		classifier: classifier,
		logger:     logger,
		cfg:        cfg,
	}
}

// Classify produces a suggestion for one transaction. A learned pattern
// at or above the auto-accept threshold short-circuits the AI call.
func (e *Engine) Classify(ctx context.Context, entityID string, txn model.Transaction, accounts []model.Account) model.Suggestion {
	learned := e.lookupLearned(ctx, entityID, txn)
	if learned != nil && learned.Confidence >= e.cfg.AutoAcceptThreshold {
		return *learned
	}

	if ai := e.classifyAI(ctx, txn, accounts); ai != nil {
		// Keep the learned candidate when the AI result is weaker.
		if learned != nil && learned.Confidence > ai.Confidence {
			return *learned
		}
		return *ai
	}

	if learned != nil {
		return *learned
	}
	return model.None()
}

func (e *Engine) lookupLearned(ctx context.Context, entityID string, txn model.Transaction) *model.Suggestion {
	suggestion, err := e.learning.Lookup(ctx, entityID, txn.Description)
	if err != nil {
		e.logger.Warn("learning lookup failed",
			"description", common.ScrubPII(txn.Description),
			"error", err)
		return nil
	}
	return suggestion
}

// classifyAI calls the external classifier under the configured timeout.
// Returns nil on any failure.
func (e *Engine) classifyAI(ctx context.Context, txn model.Transaction, accounts []model.Account) *model.Suggestion {
	if e.classifier == nil || len(accounts) == 0 {
		return nil
	}

	aiCtx := ctx
	if e.cfg.AITimeout > 0 {
		var cancel context.CancelFunc
		aiCtx, cancel = context.WithTimeout(ctx, e.cfg.AITimeout)
		defer cancel()
	}

	resp, err := e.classifier.Classify(aiCtx, service.ClassifyRequest{
		Description: txn.Description,
		Amount:      txn.Amount,
		Accounts:    accounts,
		TaxTypes:    model.AllTaxTypes(),
	})
	if err != nil {
		e.logger.Warn("AI classification failed, degrading",
			"description", common.ScrubPII(txn.Description),
			"error", err)
		return nil
	}

	return &model.Suggestion{
		AccountCode: resp.AccountCode,
		AccountName: resp.AccountName,
		TaxType:     resp.TaxType,
		Rationale:   resp.Rationale,
		Source:      model.SourceAI,
		Confidence:  resp.Confidence,
	}
}

// ClassifyAll classifies transactions concurrently with a bounded worker
// pool. Results align with the input by index. The progress callback, if
// set, is invoked once per completed transaction.
func (e *Engine) ClassifyAll(ctx context.Context, entityID string, txns []model.Transaction, accounts []model.Account, progress func(done, total int)) []model.Suggestion {
	suggestions := make([]model.Suggestion, len(txns))

	sem := make(chan struct{}, e.cfg.MaxWorkers)
	var wg sync.WaitGroup
	var mu sync.Mutex
	done := 0

	for i, txn := range txns {
		wg.Add(1)
		go func(idx int, transaction model.Transaction) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				suggestions[idx] = model.None()
				return
			}

			suggestions[idx] = e.Classify(ctx, entityID, transaction, accounts)

			if progress != nil {
				mu.Lock()
				done++
				progress(done, len(txns))
				mu.Unlock()
			}
		}(i, txn)
	}

	wg.Wait()
	return suggestions
}
