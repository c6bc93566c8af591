package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/Veraticus/transco/internal/common"
	"github.com/Veraticus/transco/internal/config"
	"github.com/Veraticus/transco/internal/service"
	"github.com/Veraticus/transco/internal/storage"
	"github.com/Veraticus/transco/internal/tabular"
	"github.com/Veraticus/transco/internal/testutil"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	v      *viper.Viper
	dir    string
	ledger string
	output string
	db     string
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()

	env := testEnv{
		v:      viper.New(),
		dir:    dir,
		ledger: filepath.Join(dir, "ledger.csv"),
		output: filepath.Join(dir, "mapping.csv"),
		db:     filepath.Join(dir, "history.db"),
	}
	reference := testutil.NewChartBuilder(t).WithBasicEntries().Write(dir, "coa.csv")
	testutil.NewLedgerBuilder(t).
		WithAccount("512000", "Bank", "BS").
		WithAccount("601000", "Purchases", "PL").
		WithAccount("401100", "Suppliers", "Bilan").
		WithAccount("999999", "Suspense", "other").
		Write(dir, "ledger.csv")

	config.SetDefaults(env.v)
	env.v.Set(config.KeyReferencePath, reference)
	env.v.Set(config.KeyOutput, env.output)
	env.v.Set(config.KeyDatabasePath, env.db)
	env.v.Set(config.KeyCooldown, time.Duration(0))
	env.v.Set(config.KeyOpenAIKey, "")
	return env
}

func TestRunMatchMock(t *testing.T) {
	for _, mode := range []string{"schema", "freetext"} {
		t.Run(mode, func(t *testing.T) {
			env := newTestEnv(t)
			env.v.Set(config.KeyResponseMode, mode)

			var stdout, stderr bytes.Buffer
			err := runMatch(context.Background(), env.v, matchOptions{InputPath: env.ledger, Mock: true}, &stdout, &stderr)
			require.NoError(t, err)

			rows, err := tabular.ReadFile(env.output)
			require.NoError(t, err)
			require.Len(t, rows, 4, "header plus three classified accounts")
			assert.Equal(t, []string{"Account Number", "Label", "Account Type", "COA code", "COA label", "Justification"}, rows[0])

			// Balance sheet first, each class in input order.
			assert.Equal(t, "512000", rows[1][0])
			assert.Equal(t, "BS", rows[1][2])
			assert.Equal(t, "401100", rows[2][0])
			assert.Equal(t, "BS", rows[2][2])
			assert.Equal(t, "601000", rows[3][0])
			assert.Equal(t, "Purchases", rows[3][1])
			assert.Equal(t, "P&L", rows[3][2])
			for _, row := range rows[1:] {
				assert.NotEmpty(t, row[3], "COA code of %s", row[0])
			}

			store, err := storage.NewSQLiteStorage(env.db)
			require.NoError(t, err)
			defer func() { _ = store.Close() }()

			runs, err := store.ListRuns(context.Background(), 10)
			require.NoError(t, err)
			require.Len(t, runs, 1)
			assert.Equal(t, "mock", runs[0].Provider)
			assert.Equal(t, 3, runs[0].Total())
			assert.Equal(t, 3, runs[0].Resolved())
		})
	}
}

func TestRunMatchNoHistory(t *testing.T) {
	env := newTestEnv(t)

	var stdout, stderr bytes.Buffer
	err := runMatch(context.Background(), env.v, matchOptions{InputPath: env.ledger, Mock: true, NoHistory: true}, &stdout, &stderr)
	require.NoError(t, err)

	assert.FileExists(t, env.output)
	assert.NoFileExists(t, env.db)
}

func TestRunMatchErrors(t *testing.T) {
	tests := []struct {
		setup   func(t *testing.T, env testEnv) matchOptions
		wantErr error
		name    string
	}{
		{
			name: "missing reference",
			setup: func(t *testing.T, env testEnv) matchOptions {
				env.v.Set(config.KeyReferencePath, filepath.Join(env.dir, "absent.csv"))
				return matchOptions{InputPath: env.ledger, Mock: true}
			},
			wantErr: common.ErrReferenceUnavailable,
		},
		{
			name: "unsupported input",
			setup: func(t *testing.T, env testEnv) matchOptions {
				t.Helper()
				path := testutil.NewLedgerBuilder(t).WithAccount("512000", "Bank", "BS").Write(env.dir, "ledger.txt")
				return matchOptions{InputPath: path, Mock: true}
			},
			wantErr: common.ErrInvalidInput,
		},
		{
			name: "missing API key",
			setup: func(t *testing.T, env testEnv) matchOptions {
				t.Setenv("OPENAI_API_KEY", "")
				return matchOptions{InputPath: env.ledger}
			},
			wantErr: common.ErrMissingConfig,
		},
		{
			name: "invalid response mode",
			setup: func(t *testing.T, env testEnv) matchOptions {
				env.v.Set(config.KeyResponseMode, "xml")
				return matchOptions{InputPath: env.ledger, Mock: true}
			},
			wantErr: common.ErrInvalidConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			opts := tt.setup(t, env)

			var stdout, stderr bytes.Buffer
			err := runMatch(context.Background(), env.v, opts, &stdout, &stderr)
			require.ErrorIs(t, err, tt.wantErr)
			assert.NoFileExists(t, env.output)
		})
	}
}

func TestRunMatchCanceled(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var stdout, stderr bytes.Buffer
	err := runMatch(ctx, env.v, matchOptions{InputPath: env.ledger, Mock: true}, &stdout, &stderr)
	require.ErrorIs(t, err, context.Canceled)

	// Nothing was resolved, but the report and history are still written.
	rows, readErr := tabular.ReadFile(env.output)
	require.NoError(t, readErr)
	assert.Len(t, rows, 1)
	assert.FileExists(t, env.db)
}

func TestRunEstimate(t *testing.T) {
	env := newTestEnv(t)

	var stdout bytes.Buffer
	require.NoError(t, runEstimate(env.v, env.ledger, &stdout))

	out := stdout.String()
	assert.Contains(t, out, "Balance Sheet")
	assert.Contains(t, out, "1 accounts have an unknown class")
	assert.NoFileExists(t, env.output)
}

func TestRunReference(t *testing.T) {
	env := newTestEnv(t)

	var stdout bytes.Buffer
	require.NoError(t, runReference(env.v, 1, &stdout))

	out := stdout.String()
	assert.Contains(t, out, "101000 - Capital - BS")
	assert.NotContains(t, out, "401000 - Trade payables - BS")
	assert.Contains(t, out, "1 more")
	assert.Contains(t, out, "607000 - Purchases of goods - P&L")
}

func TestHistoryCommands(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	var stdout, stderr bytes.Buffer
	require.NoError(t, runMatch(ctx, env.v, matchOptions{InputPath: env.ledger, Mock: true}, &stdout, &stderr))

	store, err := storage.NewSQLiteStorage(env.db)
	require.NoError(t, err)
	runs, err := store.ListRuns(ctx, 1)
	require.NoError(t, err)
	require.NoError(t, store.Close())
	require.Len(t, runs, 1)
	id := runs[0].ID

	var list bytes.Buffer
	require.NoError(t, runHistoryList(ctx, env.v, 5, &list))
	assert.Contains(t, list.String(), id[:8])

	export := filepath.Join(env.dir, "export.csv")
	var show bytes.Buffer
	require.NoError(t, runHistoryShow(ctx, env.v, id, export, &show))

	original, err := tabular.ReadFile(env.output)
	require.NoError(t, err)
	exported, err := tabular.ReadFile(export)
	require.NoError(t, err)
	assert.Equal(t, original, exported)

	err = runHistoryShow(ctx, env.v, "missing", "", &show)
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestRunHistoryShowGaps(t *testing.T) {
	env := newTestEnv(t)
	testutil.SetupTestDBWithOptions(t, testutil.TestDBOptions{
		Path: env.db,
		Runs: []*service.RunRecord{testutil.NewRunBuilder("run-gaps").WithBasicClasses().Build()},
	})

	var out bytes.Buffer
	require.NoError(t, runHistoryShow(context.Background(), env.v, "run-gaps", "", &out))
	assert.Contains(t, out.String(), "1 unresolved accounts")
	assert.Contains(t, out.String(), "512000")
}
