// Package model defines the core domain models used throughout the application.
package model

// SuggestionSource indicates where a classification suggestion came from.
type SuggestionSource string

// Suggestion source constants.
const (
	// SourceLearned indicates the suggestion matched a confirmed learning pattern.
	SourceLearned SuggestionSource = "learned"
	// SourceAI indicates the suggestion came from the external AI classifier.
	SourceAI SuggestionSource = "ai"
	// SourceNone indicates no suggestion could be produced; the transaction
	// always reaches human review.
	SourceNone SuggestionSource = "none"
)

// Suggestion is a proposed classification for a single transaction.
// Suggestions are produced fresh per classification attempt and never
// mutated, only superseded.
type Suggestion struct {
	AccountCode string // empty when no confident match exists
	AccountName string
	TaxType     TaxType
	Rationale   string
	Source      SuggestionSource
	Confidence  float64 // in [0,1]
}

// None returns the degraded suggestion used when classification fails.
func None() Suggestion {
	return Suggestion{Source: SourceNone, Confidence: 0}
}

// NeedsReview reports whether the suggestion falls below the review
// threshold. This is distinct from having no suggestion at all: a
// populated account code with low confidence still needs review.
func (s Suggestion) NeedsReview(reviewThreshold float64) bool {
	return s.AccountCode == "" || s.Confidence < reviewThreshold
}
