// Package testutil provides test utilities for transco: a migrated
// in-memory run history and fluent builders for ledgers, reference charts
// and recorded runs.
package testutil

import (
	"context"
	"testing"

	"github.com/Veraticus/transco/internal/service"
	"github.com/Veraticus/transco/internal/storage"
)

// TestDB represents a test database with associated test utilities.
type TestDB struct {
	Storage *storage.SQLiteStorage
	t       *testing.T
}

// SetupTestDB creates a new in-memory test database seeded with runs.
// It automatically handles migrations and cleanup.
//
// Example:
//
//	db := testutil.SetupTestDB(t,
//		testutil.NewRunBuilder("run-1").WithBasicClasses().Build(),
//	)
func SetupTestDB(t *testing.T, runs ...*service.RunRecord) *TestDB {
	t.Helper()
	return SetupTestDBWithOptions(t, TestDBOptions{Runs: runs})
}

// TestDBOptions provides configuration options for test database setup.
type TestDBOptions struct {
	CustomSetup    func(context.Context, service.RunStore) error
	Path           string // defaults to an in-memory database
	Runs           []*service.RunRecord
	SkipMigrations bool
}

// SetupTestDBWithOptions creates a test database with custom options.
func SetupTestDBWithOptions(t *testing.T, opts TestDBOptions) *TestDB {
	t.Helper()

	path := opts.Path
	if path == "" {
		path = storage.MemoryPath
	}

	store, err := storage.NewSQLiteStorage(path)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	ctx := context.Background()

	if !opts.SkipMigrations {
		if err := store.Migrate(ctx); err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}
	}

	db := &TestDB{Storage: store, t: t}
	for _, run := range opts.Runs {
		db.MustSaveRun(run)
	}

	if opts.CustomSetup != nil {
		if err := opts.CustomSetup(ctx, store); err != nil {
			t.Fatalf("custom setup failed: %v", err)
		}
	}

	return db
}

// MustSaveRun stores run or fails the test.
func (db *TestDB) MustSaveRun(run *service.RunRecord) {
	db.t.Helper()
	if err := db.Storage.SaveRun(context.Background(), run); err != nil {
		db.t.Fatalf("failed to seed run %q: %v", run.ID, err)
	}
}

// MustGetRun loads a run or fails the test.
func (db *TestDB) MustGetRun(id string) *service.RunRecord {
	db.t.Helper()
	run, err := db.Storage.GetRun(context.Background(), id)
	if err != nil {
		db.t.Fatalf("failed to load run %q: %v", id, err)
	}
	return run
}
