package learning

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faceless-truth/mcs-platform/internal/model"
	"github.com/faceless-truth/mcs-platform/internal/testutil"
)

func TestLookupMiss(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := NewStore(db.Storage, 5)

	suggestion, err := store.Lookup(context.Background(), testutil.TestEntityID, "NEVER SEEN BEFORE")
	require.NoError(t, err)
	assert.Nil(t, suggestion)
}

func TestLookupEmptyPattern(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := NewStore(db.Storage, 5)

	// A description that normalizes to nothing never hits storage.
	suggestion, err := store.Lookup(context.Background(), testutil.TestEntityID, "20394810394")
	require.NoError(t, err)
	assert.Nil(t, suggestion)
}

func TestRecordThenLookup(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := NewStore(db.Storage, 5)
	ctx := context.Background()

	err := store.Record(ctx, db.Storage, testutil.TestEntityID,
		"OFFICEWORKS 14/03/25 SYDNEY", "420", "Office Expenses", model.TaxGSTOnExpenses)
	require.NoError(t, err)

	// Same merchant on a different day matches the learned pattern.
	suggestion, err := store.Lookup(ctx, testutil.TestEntityID, "OFFICEWORKS 02/04/25 SYDNEY")
	require.NoError(t, err)
	require.NotNil(t, suggestion)

	assert.Equal(t, "420", suggestion.AccountCode)
	assert.Equal(t, "Office Expenses", suggestion.AccountName)
	assert.Equal(t, model.TaxGSTOnExpenses, suggestion.TaxType)
	assert.Equal(t, model.SourceLearned, suggestion.Source)
	assert.InDelta(t, 0.6, suggestion.Confidence, 0.001)
}

func TestLookupScopedToEntity(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := NewStore(db.Storage, 5)
	ctx := context.Background()

	err := store.Record(ctx, db.Storage, testutil.TestEntityID,
		"RENT PAYMENT", "469", "Rent", model.TaxGSTOnExpenses)
	require.NoError(t, err)

	suggestion, err := store.Lookup(ctx, "entity-other", "RENT PAYMENT")
	require.NoError(t, err)
	assert.Nil(t, suggestion, "patterns must never leak across entities")
}

func TestConfidenceRisesWithConfirmations(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := NewStore(db.Storage, 5)
	ctx := context.Background()

	var previous float64
	for i := 1; i <= 6; i++ {
		err := store.Record(ctx, db.Storage, testutil.TestEntityID,
			"GITHUB SUBSCRIPTION", "420", "Office Expenses", model.TaxGSTOnExpenses)
		require.NoError(t, err)

		suggestion, err := store.Lookup(ctx, testutil.TestEntityID, "GITHUB SUBSCRIPTION")
		require.NoError(t, err)
		require.NotNil(t, suggestion)

		assert.GreaterOrEqual(t, suggestion.Confidence, previous,
			"confidence must be monotonic in confirmations")
		previous = suggestion.Confidence
	}

	// Past the trust threshold the pattern approaches, but never reaches,
	// full confidence.
	assert.InDelta(t, 0.98, previous, 0.001)
	assert.Less(t, previous, 1.0)
}

func TestRecordOverridesPriorClassification(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := NewStore(db.Storage, 5)
	ctx := context.Background()

	require.NoError(t, store.Record(ctx, db.Storage, testutil.TestEntityID,
		"AMAZON MARKETPLACE", "420", "Office Expenses", model.TaxGSTOnExpenses))
	require.NoError(t, store.Record(ctx, db.Storage, testutil.TestEntityID,
		"AMAZON MARKETPLACE", "800", "Owner Drawings", model.TaxBASExcluded))

	suggestion, err := store.Lookup(ctx, testutil.TestEntityID, "AMAZON MARKETPLACE")
	require.NoError(t, err)
	require.NotNil(t, suggestion)

	// Latest confirmation wins; the count keeps accumulating.
	assert.Equal(t, "800", suggestion.AccountCode)
	assert.Equal(t, model.TaxBASExcluded, suggestion.TaxType)
	assert.InDelta(t, 0.7, suggestion.Confidence, 0.001)
}

func TestRecordIgnoresEmptyInputs(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := NewStore(db.Storage, 5)
	ctx := context.Background()

	require.NoError(t, store.Record(ctx, db.Storage, testutil.TestEntityID,
		"", "420", "Office Expenses", model.TaxGSTOnExpenses))
	require.NoError(t, store.Record(ctx, db.Storage, testutil.TestEntityID,
		"SOMETHING", "", "", model.TaxGSTOnExpenses))

	stats, err := store.Stats(ctx, testutil.TestEntityID, 10)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalPatterns)
}

func TestStats(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := NewStore(db.Storage, 5)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, store.Record(ctx, db.Storage, testutil.TestEntityID,
			"SPOTIFY", "420", "Office Expenses", model.TaxGSTOnExpenses))
	}
	require.NoError(t, store.Record(ctx, db.Storage, testutil.TestEntityID,
		"INTEREST CREDIT", "260", "Interest Income", model.TaxGSTFreeIncome))

	stats, err := store.Stats(ctx, testutil.TestEntityID, 10)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.TotalPatterns)
	assert.Equal(t, 4, stats.TotalConfirmations)
	require.NotEmpty(t, stats.TopPatterns)
	assert.Equal(t, "SPOTIFY", stats.TopPatterns[0].DescriptionPattern,
		"most confirmed pattern sorts first")
}
