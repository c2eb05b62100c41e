// Package llm implements the external AI classifier boundary with
// pluggable providers.
package llm

import (
	"context"
)

// Client defines the interface for LLM providers.
type Client interface {
	Classify(ctx context.Context, prompt string) (ClassificationResponse, error)
}

// ClassificationResponse contains the raw provider classification result.
// All free-text fields are untrusted until sanitized.
type ClassificationResponse struct {
	AccountCode string  `json:"accountCode"`
	AccountName string  `json:"accountName"`
	TaxType     string  `json:"taxType"`
	Rationale   string  `json:"reasoning"`
	Confidence  float64 `json:"confidence"`
}
