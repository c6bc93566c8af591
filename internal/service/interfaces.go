// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/transco/internal/model"
	"github.com/shopspring/decimal"
)

// RunStore defines the contract for the run history persistence layer.
type RunStore interface {
	SaveRun(ctx context.Context, run *RunRecord) error
	GetRun(ctx context.Context, id string) (*RunRecord, error)
	ListRuns(ctx context.Context, limit int) ([]RunRecord, error)

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// ReportWriter publishes an assembled mapping table somewhere.
type ReportWriter interface {
	Write(ctx context.Context, header []string, rows [][]string, run *RunRecord) error
}

// RunRecord is the persisted shape of one reconciliation run.
type RunRecord struct {
	StartedAt  time.Time
	FinishedAt time.Time
	Cost       decimal.Decimal
	ID         string
	InputPath  string
	Provider   string
	Model      string
	Classes    []ClassRecord
	Usage      model.TokenUsage
}

// Total returns the number of accounts submitted across classes.
func (r *RunRecord) Total() int {
	total := 0
	for _, c := range r.Classes {
		total += c.Total
	}
	return total
}

// Resolved returns the number of resolved accounts across classes.
func (r *RunRecord) Resolved() int {
	resolved := 0
	for _, c := range r.Classes {
		resolved += c.Resolved
	}
	return resolved
}

// ClassRecord is the persisted outcome of one account class.
type ClassRecord struct {
	Class      model.AccountClass
	State      string
	Rows       []model.ResolvedRow
	Unresolved []model.AccountRecord
	Total      int
	Resolved   int
	RetryCount int
	Rounds     int
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	// Sleep waits between attempts; nil means a real, context-aware sleep.
	Sleep        func(ctx context.Context, d time.Duration) error
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
