package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNone(t *testing.T) {
	s := None()
	assert.Equal(t, SourceNone, s.Source)
	assert.Empty(t, s.AccountCode)
	assert.Zero(t, s.Confidence)
}

func TestNeedsReview(t *testing.T) {
	tests := []struct {
		name       string
		suggestion Suggestion
		want       bool
	}{
		{"no account code", Suggestion{Confidence: 0.99}, true},
		{"below threshold", Suggestion{AccountCode: "420", Confidence: 0.40}, true},
		{"at threshold", Suggestion{AccountCode: "420", Confidence: 0.60}, false},
		{"above threshold", Suggestion{AccountCode: "420", Confidence: 0.95}, false},
		{"none suggestion", None(), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.suggestion.NeedsReview(0.60))
		})
	}
}
