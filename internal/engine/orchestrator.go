package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/Veraticus/transco/internal/ledger"
	"github.com/Veraticus/transco/internal/model"
	"golang.org/x/sync/errgroup"
)

// Orchestrator runs the reconciliation of every account class of a ledger.
type Orchestrator struct {
	reconciler *Reconciler
	logger     *slog.Logger
	sequential bool
}

// NewOrchestrator creates an orchestrator. Classes are reconciled
// concurrently unless sequential is set; they share no mutable state.
func NewOrchestrator(reconciler *Reconciler, sequential bool, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{reconciler: reconciler, sequential: sequential, logger: logger}
}

// RunReport gathers the outcomes of one run.
type RunReport struct {
	StartedAt  time.Time
	FinishedAt time.Time
	Outcomes   []*Outcome            // in model.Classes order
	Unknown    []model.AccountRecord // input rows of an unknown class, never submitted
	Usage      model.TokenUsage
}

// Total returns the number of submitted accounts.
func (r *RunReport) Total() int {
	n := 0
	for _, o := range r.Outcomes {
		n += o.Total
	}
	return n
}

// Resolved returns the number of resolved accounts.
func (r *RunReport) Resolved() int {
	n := 0
	for _, o := range r.Outcomes {
		n += o.Resolved()
	}
	return n
}

// Complete reports whether every submitted account was resolved.
func (r *RunReport) Complete() bool {
	return r.Resolved() == r.Total()
}

// Run reconciles every class of l. On cancellation the partial outcomes
// gathered so far are returned alongside the error.
func (o *Orchestrator) Run(ctx context.Context, l *ledger.Ledger) (*RunReport, error) {
	report := &RunReport{
		StartedAt: time.Now(),
		Outcomes:  make([]*Outcome, len(model.Classes)),
		Unknown:   l.Unknown,
	}

	if len(l.Unknown) > 0 {
		o.logger.Warn("Skipping accounts with an unknown class", "count", len(l.Unknown))
	}

	var err error
	if o.sequential {
		for i, class := range model.Classes {
			report.Outcomes[i], err = o.reconciler.Reconcile(ctx, class, l.Records(class))
			if err != nil {
				break
			}
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		for i, class := range model.Classes {
			i, class := i, class
			g.Go(func() error {
				out, rerr := o.reconciler.Reconcile(gctx, class, l.Records(class))
				report.Outcomes[i] = out
				return rerr
			})
		}
		err = g.Wait()
	}

	outcomes := report.Outcomes[:0]
	for _, out := range report.Outcomes {
		if out != nil {
			outcomes = append(outcomes, out)
			report.Usage.Add(out.Usage)
		}
	}
	report.Outcomes = outcomes
	report.FinishedAt = time.Now()

	o.logger.Info("Run finished",
		"resolved", report.Resolved(),
		"total", report.Total(),
		"duration", report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond),
		"prompt_tokens", report.Usage.PromptTokens,
		"completion_tokens", report.Usage.CompletionTokens)

	return report, err
}
