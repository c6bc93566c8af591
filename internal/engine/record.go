package engine

import (
	"github.com/Veraticus/transco/internal/service"
	"github.com/shopspring/decimal"
)

// RunInfo describes a run for the history store.
type RunInfo struct {
	ID        string
	InputPath string
	Provider  string
	Model     string
	Cost      decimal.Decimal
}

// Record converts the report into its persisted shape.
func (r *RunReport) Record(info RunInfo) *service.RunRecord {
	rec := &service.RunRecord{
		ID:         info.ID,
		InputPath:  info.InputPath,
		Provider:   info.Provider,
		Model:      info.Model,
		Cost:       info.Cost,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Usage:      r.Usage,
		Classes:    make([]service.ClassRecord, 0, len(r.Outcomes)),
	}

	for _, o := range r.Outcomes {
		rec.Classes = append(rec.Classes, service.ClassRecord{
			Class:      o.Class,
			State:      o.State.String(),
			Rows:       o.Rows,
			Unresolved: o.Unresolved,
			Total:      o.Total,
			Resolved:   o.Resolved(),
			RetryCount: o.RetryCount,
			Rounds:     o.Rounds,
		})
	}

	return rec
}
