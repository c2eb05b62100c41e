// Package testutil provides shared helpers for package tests: in-memory
// databases and chart-of-accounts seeding.
package testutil

import (
	"context"
	"testing"

	"github.com/faceless-truth/mcs-platform/internal/model"
	"github.com/faceless-truth/mcs-platform/internal/service"
	"github.com/faceless-truth/mcs-platform/internal/storage"
)

// TestEntityID is the entity used by seeded test data.
const TestEntityID = "entity-test"

// TestDB wraps an in-memory database for one test.
type TestDB struct {
	Storage  service.Storage
	Accounts []model.Account
	t        *testing.T
}

// SetupTestDB creates a migrated in-memory database and registers its
// cleanup with the test.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return &TestDB{Storage: store, t: t}
}

// SeedAccounts loads a small realistic chart of accounts for TestEntityID.
func (db *TestDB) SeedAccounts() *TestDB {
	db.t.Helper()

	accounts := []model.Account{
		{EntityID: TestEntityID, Code: "200", Name: "Sales", Section: "Income", TaxCode: model.TaxGSTOnIncome, IsActive: true},
		{EntityID: TestEntityID, Code: "260", Name: "Interest Income", Section: "Income", TaxCode: model.TaxGSTFreeIncome, IsActive: true},
		{EntityID: TestEntityID, Code: "404", Name: "Bank Fees", Section: "Expenses", TaxCode: model.TaxGSTFreeExpenses, IsActive: true},
		{EntityID: TestEntityID, Code: "420", Name: "Office Expenses", Section: "Expenses", TaxCode: model.TaxGSTOnExpenses, IsActive: true},
		{EntityID: TestEntityID, Code: "469", Name: "Rent", Section: "Expenses", TaxCode: model.TaxGSTOnExpenses, IsActive: true},
		{EntityID: TestEntityID, Code: "800", Name: "Owner Drawings", Section: "Equity", TaxCode: model.TaxBASExcluded, IsActive: true},
	}

	ctx := context.Background()
	for i := range accounts {
		if err := db.Storage.SaveAccount(ctx, &accounts[i]); err != nil {
			db.t.Fatalf("failed to seed account %s: %v", accounts[i].Code, err)
		}
	}

	db.Accounts = accounts
	return db
}
