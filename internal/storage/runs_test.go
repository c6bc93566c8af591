package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/Veraticus/transco/internal/common"
	"github.com/Veraticus/transco/internal/model"
	"github.com/Veraticus/transco/internal/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createTestStorage opens a migrated in-memory database.
func createTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()

	store, err := NewSQLiteStorage(MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Migrate(context.Background()))
	return store
}

func sampleRun(id string, started time.Time) *service.RunRecord {
	return &service.RunRecord{
		ID:         id,
		InputPath:  "/tmp/ledger.xlsx",
		Provider:   "openai",
		Model:      "gpt-4o",
		StartedAt:  started,
		FinishedAt: started.Add(90 * time.Second),
		Cost:       decimal.RequireFromString("0.0425"),
		Usage:      model.TokenUsage{PromptTokens: 1200, CompletionTokens: 340},
		Classes: []service.ClassRecord{
			{
				Class:      model.ClassPL,
				State:      "DONE",
				Total:      1,
				Resolved:   1,
				Rounds:     1,
				RetryCount: 0,
				Rows: []model.ResolvedRow{{
					Record: model.AccountRecord{Number: "601000", Label: "Purchases", Class: model.ClassPL, Position: 2},
					Match: model.MatchResult{
						AccountNumber: "601000",
						Label:         "Purchases of goods",
						COACode:       "601",
						COALabel:      "Purchases",
						Justification: "Same nature",
					},
				}},
			},
			{
				Class:      model.ClassBS,
				State:      "GAP_REPORTED",
				Total:      2,
				Resolved:   1,
				Rounds:     4,
				RetryCount: 3,
				Rows: []model.ResolvedRow{{
					Record: model.AccountRecord{Number: "401000", Label: "Suppliers", Class: model.ClassBS, Position: 0},
					Match:  model.MatchResult{AccountNumber: "401000", Label: "Suppliers", COACode: "401", COALabel: "Trade payables"},
				}},
				Unresolved: []model.AccountRecord{
					{Number: "512000", Label: "Bank", Class: model.ClassBS, Position: 1},
				},
			},
		},
	}
}

func TestNewSQLiteStorage(t *testing.T) {
	t.Run("empty path", func(t *testing.T) {
		_, err := NewSQLiteStorage("  ")
		require.ErrorIs(t, err, ErrEmptyString)
	})

	t.Run("creates parent directory", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "dir", "history.db")
		store, err := NewSQLiteStorage(path)
		require.NoError(t, err)
		defer func() { _ = store.Close() }()

		assert.Equal(t, path, store.Path())
		require.NoError(t, store.Migrate(context.Background()))
	})
}

func TestMigrate(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	version, err := store.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, ExpectedSchemaVersion, version)

	// Running again is a no-op.
	require.NoError(t, store.Migrate(ctx))

	for _, table := range []string{"runs", "run_classes", "match_results", "gaps"} {
		var count int
		err := store.db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&count)
		require.NoError(t, err)
		assert.Equal(t, 1, count, "table %s", table)
	}

	//nolint:staticcheck // nil context is the case under test
	assert.ErrorIs(t, store.Migrate(nil), ErrNilContext)
}

func TestSaveAndGetRun(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()
	started := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

	run := sampleRun("run-1", started)
	require.NoError(t, store.SaveRun(ctx, run))

	got, err := store.GetRun(ctx, "run-1")
	require.NoError(t, err)

	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, run.InputPath, got.InputPath)
	assert.Equal(t, run.Provider, got.Provider)
	assert.Equal(t, run.Model, got.Model)
	assert.True(t, run.StartedAt.Equal(got.StartedAt))
	assert.True(t, run.FinishedAt.Equal(got.FinishedAt))
	assert.True(t, run.Cost.Equal(got.Cost), "cost %s", got.Cost)
	assert.Equal(t, run.Usage, got.Usage)
	assert.Equal(t, 3, got.Total())
	assert.Equal(t, 2, got.Resolved())

	require.Len(t, got.Classes, 2)
	// BS is always listed first regardless of save order.
	bs, pl := got.Classes[0], got.Classes[1]
	assert.Equal(t, model.ClassBS, bs.Class)
	assert.Equal(t, "GAP_REPORTED", bs.State)
	assert.Equal(t, 3, bs.RetryCount)
	assert.Equal(t, 4, bs.Rounds)
	require.Len(t, bs.Rows, 1)
	assert.Equal(t, "401", bs.Rows[0].Match.COACode)
	require.Len(t, bs.Unresolved, 1)
	assert.Equal(t, model.AccountRecord{Number: "512000", Label: "Bank", Class: model.ClassBS, Position: 1}, bs.Unresolved[0])

	assert.Equal(t, model.ClassPL, pl.Class)
	require.Len(t, pl.Rows, 1)
	assert.Equal(t, run.Classes[0].Rows[0], pl.Rows[0])
	assert.Empty(t, pl.Unresolved)
}

func TestSaveRunReplaces(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()
	started := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

	require.NoError(t, store.SaveRun(ctx, sampleRun("run-1", started)))

	updated := sampleRun("run-1", started)
	updated.Classes = updated.Classes[:1]
	updated.Model = "gpt-4o-mini"
	require.NoError(t, store.SaveRun(ctx, updated))

	got, err := store.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", got.Model)
	require.Len(t, got.Classes, 1)
	assert.Equal(t, model.ClassPL, got.Classes[0].Class)

	var gaps int
	require.NoError(t, store.db.QueryRow(`SELECT COUNT(*) FROM gaps WHERE run_id = ?`, "run-1").Scan(&gaps))
	assert.Zero(t, gaps)
}

func TestSaveRunValidation(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()
	started := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		run     *service.RunRecord
		wantErr error
		name    string
	}{
		{name: "nil run", run: nil, wantErr: ErrNilParameter},
		{
			name: "missing id",
			run: func() *service.RunRecord {
				r := sampleRun("", started)
				return r
			}(),
			wantErr: ErrInvalidRun,
		},
		{
			name: "missing start",
			run: func() *service.RunRecord {
				r := sampleRun("run-x", started)
				r.StartedAt = time.Time{}
				return r
			}(),
			wantErr: ErrInvalidRun,
		},
		{
			name: "finished before start",
			run: func() *service.RunRecord {
				r := sampleRun("run-x", started)
				r.FinishedAt = started.Add(-time.Minute)
				return r
			}(),
			wantErr: ErrInvalidRun,
		},
		{
			name: "unknown class",
			run: func() *service.RunRecord {
				r := sampleRun("run-x", started)
				r.Classes[0].Class = "equity"
				return r
			}(),
			wantErr: ErrInvalidRun,
		},
		{
			name: "duplicate class",
			run: func() *service.RunRecord {
				r := sampleRun("run-x", started)
				r.Classes[1].Class = model.ClassPL
				return r
			}(),
			wantErr: ErrInvalidRun,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := store.SaveRun(ctx, tt.run)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestGetRunNotFound(t *testing.T) {
	store := createTestStorage(t)

	_, err := store.GetRun(context.Background(), "missing")
	require.ErrorIs(t, err, common.ErrNotFound)

	_, err = store.GetRun(context.Background(), "")
	require.ErrorIs(t, err, ErrEmptyString)
}

func TestListRuns(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		require.NoError(t, store.SaveRun(ctx, sampleRun(fmt.Sprintf("run-%d", i), base.Add(time.Duration(i)*time.Hour))))
	}

	runs, err := store.ListRuns(ctx, 3)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "run-4", runs[0].ID)
	assert.Equal(t, "run-3", runs[1].ID)
	assert.Equal(t, "run-2", runs[2].ID)

	// Summaries carry class counts but not rows.
	require.Len(t, runs[0].Classes, 2)
	assert.Equal(t, 3, runs[0].Total())
	assert.Empty(t, runs[0].Classes[0].Rows)

	all, err := store.ListRuns(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestListRunsEmpty(t *testing.T) {
	store := createTestStorage(t)

	runs, err := store.ListRuns(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, runs)
}
