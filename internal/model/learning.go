package model

import "time"

// LearningPattern is a confirmed description→classification mapping.
// Patterns are keyed by (entity, description pattern) and only ever
// created or updated by the commit engine.
type LearningPattern struct {
	LastConfirmedAt    time.Time
	EntityID           string
	DescriptionPattern string
	AccountCode        string
	AccountName        string
	TaxType            TaxType
	ConfirmationCount  int
}
