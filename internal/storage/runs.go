package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/transco/internal/common"
	"github.com/Veraticus/transco/internal/model"
	"github.com/Veraticus/transco/internal/service"
	"github.com/shopspring/decimal"
)

// DefaultListLimit bounds ListRuns when the caller passes a non-positive limit.
const DefaultListLimit = 20

// SaveRun persists a run with its per-class outcomes. Saving an existing ID
// replaces the previous record.
func (s *SQLiteStorage) SaveRun(ctx context.Context, run *service.RunRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRun(run); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		// Cascades to run_classes, match_results and gaps.
		if _, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, run.ID); err != nil {
			return fmt.Errorf("failed to clear previous run: %w", err)
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO runs (id, input_path, provider, model, started_at, finished_at,
				prompt_tokens, completion_tokens, cost)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, run.InputPath, run.Provider, run.Model,
			run.StartedAt.UTC(), run.FinishedAt.UTC(),
			run.Usage.PromptTokens, run.Usage.CompletionTokens, run.Cost.String())
		if err != nil {
			return fmt.Errorf("failed to save run: %w", err)
		}

		for _, class := range run.Classes {
			if err := saveClassTx(ctx, tx, run.ID, class); err != nil {
				return err
			}
		}
		return nil
	})
}

func saveClassTx(ctx context.Context, tx *sql.Tx, runID string, class service.ClassRecord) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO run_classes (run_id, class, state, total, resolved, retry_count, rounds)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		runID, string(class.Class), class.State, class.Total, class.Resolved, class.RetryCount, class.Rounds)
	if err != nil {
		return fmt.Errorf("failed to save class %s: %w", class.Class, err)
	}

	resultStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO match_results (run_id, class, position, account_number, label,
			model_label, coa_code, coa_label, justification)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare result statement: %w", err)
	}
	defer func() { _ = resultStmt.Close() }()

	for _, row := range class.Rows {
		if _, err := resultStmt.ExecContext(ctx, runID, string(class.Class), row.Record.Position,
			row.Record.Number, row.Record.Label, row.Match.Label,
			row.Match.COACode, row.Match.COALabel, row.Match.Justification); err != nil {
			return fmt.Errorf("failed to save result for %s: %w", row.Record.Number, err)
		}
	}

	gapStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO gaps (run_id, class, position, account_number, label)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare gap statement: %w", err)
	}
	defer func() { _ = gapStmt.Close() }()

	for _, rec := range class.Unresolved {
		if _, err := gapStmt.ExecContext(ctx, runID, string(class.Class), rec.Position, rec.Number, rec.Label); err != nil {
			return fmt.Errorf("failed to save gap for %s: %w", rec.Number, err)
		}
	}
	return nil
}

// GetRun loads a run with its rows and unresolved accounts.
// It returns common.ErrNotFound when no run has the given ID.
func (s *SQLiteStorage) GetRun(ctx context.Context, id string) (*service.RunRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, input_path, provider, model, started_at, finished_at,
			prompt_tokens, completion_tokens, cost
		FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	if err := s.loadClasses(ctx, run); err != nil {
		return nil, err
	}
	for i := range run.Classes {
		if err := s.loadRows(ctx, run.ID, &run.Classes[i]); err != nil {
			return nil, err
		}
	}
	return run, nil
}

// ListRuns returns the most recent runs first, with per-class counts but
// without rows.
func (s *SQLiteStorage) ListRuns(ctx context.Context, limit int) ([]service.RunRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, input_path, provider, model, started_at, finished_at,
			prompt_tokens, completion_tokens, cost
		FROM runs
		ORDER BY started_at DESC, id
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []service.RunRecord
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}
	// Close before issuing more queries on the single connection.
	_ = rows.Close()

	for i := range runs {
		if err := s.loadClasses(ctx, &runs[i]); err != nil {
			return nil, err
		}
	}
	return runs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*service.RunRecord, error) {
	var (
		run        service.RunRecord
		startedAt  time.Time
		finishedAt time.Time
		cost       string
	)
	err := sc.Scan(&run.ID, &run.InputPath, &run.Provider, &run.Model, &startedAt, &finishedAt,
		&run.Usage.PromptTokens, &run.Usage.CompletionTokens, &cost)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	run.StartedAt = startedAt.UTC()
	run.FinishedAt = finishedAt.UTC()
	run.Cost, err = decimal.NewFromString(cost)
	if err != nil {
		return nil, fmt.Errorf("run %s has invalid cost %q: %w", run.ID, cost, err)
	}
	return &run, nil
}

func (s *SQLiteStorage) loadClasses(ctx context.Context, run *service.RunRecord) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT class, state, total, resolved, retry_count, rounds
		FROM run_classes WHERE run_id = ?
		ORDER BY CASE class WHEN ? THEN 0 WHEN ? THEN 1 ELSE 2 END, class`,
		run.ID, string(model.ClassBS), string(model.ClassPL))
	if err != nil {
		return fmt.Errorf("failed to query classes for run %s: %w", run.ID, err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			c     service.ClassRecord
			class string
		)
		if err := rows.Scan(&class, &c.State, &c.Total, &c.Resolved, &c.RetryCount, &c.Rounds); err != nil {
			return fmt.Errorf("failed to scan class: %w", err)
		}
		c.Class = model.AccountClass(class)
		run.Classes = append(run.Classes, c)
	}
	return rows.Err()
}

func (s *SQLiteStorage) loadRows(ctx context.Context, runID string, c *service.ClassRecord) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT position, account_number, label, model_label, coa_code, coa_label, justification
		FROM match_results WHERE run_id = ? AND class = ?
		ORDER BY position`, runID, string(c.Class))
	if err != nil {
		return fmt.Errorf("failed to query results: %w", err)
	}
	for rows.Next() {
		r := model.ResolvedRow{Record: model.AccountRecord{Class: c.Class}}
		if err := rows.Scan(&r.Record.Position, &r.Record.Number, &r.Record.Label, &r.Match.Label,
			&r.Match.COACode, &r.Match.COALabel, &r.Match.Justification); err != nil {
			_ = rows.Close()
			return fmt.Errorf("failed to scan result: %w", err)
		}
		r.Match.AccountNumber = r.Record.Number
		c.Rows = append(c.Rows, r)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return fmt.Errorf("failed to iterate results: %w", err)
	}
	_ = rows.Close()

	gaps, err := s.db.QueryContext(ctx, `
		SELECT position, account_number, label
		FROM gaps WHERE run_id = ? AND class = ?
		ORDER BY position`, runID, string(c.Class))
	if err != nil {
		return fmt.Errorf("failed to query gaps: %w", err)
	}
	defer func() { _ = gaps.Close() }()

	for gaps.Next() {
		rec := model.AccountRecord{Class: c.Class}
		if err := gaps.Scan(&rec.Position, &rec.Number, &rec.Label); err != nil {
			return fmt.Errorf("failed to scan gap: %w", err)
		}
		c.Unresolved = append(c.Unresolved, rec)
	}
	return gaps.Err()
}

var _ service.RunStore = (*SQLiteStorage)(nil)
