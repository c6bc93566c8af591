package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 2

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial run history schema",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS runs (
					id TEXT PRIMARY KEY,
					input_path TEXT NOT NULL,
					provider TEXT NOT NULL,
					model TEXT NOT NULL,
					started_at DATETIME NOT NULL,
					finished_at DATETIME NOT NULL,
					prompt_tokens INTEGER NOT NULL DEFAULT 0,
					completion_tokens INTEGER NOT NULL DEFAULT 0,
					cost TEXT NOT NULL DEFAULT '0'
				)`,
				`CREATE INDEX idx_runs_started_at ON runs(started_at)`,
				`CREATE TABLE IF NOT EXISTS run_classes (
					run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
					class TEXT NOT NULL,
					state TEXT NOT NULL,
					total INTEGER NOT NULL,
					resolved INTEGER NOT NULL,
					retry_count INTEGER NOT NULL DEFAULT 0,
					rounds INTEGER NOT NULL DEFAULT 0,
					PRIMARY KEY (run_id, class)
				)`,
				`CREATE TABLE IF NOT EXISTS match_results (
					run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
					class TEXT NOT NULL,
					position INTEGER NOT NULL,
					account_number TEXT NOT NULL,
					label TEXT NOT NULL,
					coa_code TEXT NOT NULL,
					coa_label TEXT NOT NULL,
					justification TEXT NOT NULL DEFAULT ''
				)`,
				`CREATE INDEX idx_match_results_run ON match_results(run_id, class, position)`,
			}
			for _, q := range queries {
				if _, err := tx.Exec(q); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Record unresolved accounts and the model-reported label",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`ALTER TABLE match_results ADD COLUMN model_label TEXT NOT NULL DEFAULT ''`,
				`CREATE TABLE IF NOT EXISTS gaps (
					run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
					class TEXT NOT NULL,
					position INTEGER NOT NULL,
					account_number TEXT NOT NULL,
					label TEXT NOT NULL
				)`,
				`CREATE INDEX idx_gaps_run ON gaps(run_id, class, position)`,
			}
			for _, q := range queries {
				if _, err := tx.Exec(q); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
}

// Migrate applies all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	var currentVersion int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Debug("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	var finalVersion int
	err = s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}

// SchemaVersion reports the database's current user_version.
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}
