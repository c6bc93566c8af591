// Package engine reconciles LLM answers against the ledger: it batches
// pending accounts, submits them, merges the parsed matches and re-submits
// whatever is still missing until every account is resolved or the retry
// ceiling is reached.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/transco/internal/batch"
	"github.com/Veraticus/transco/internal/common"
	"github.com/Veraticus/transco/internal/llm"
	"github.com/Veraticus/transco/internal/model"
	"github.com/Veraticus/transco/internal/prompt"
	"github.com/Veraticus/transco/internal/reference"
)

// Config holds the reconciliation settings.
type Config struct {
	Mode         model.ResponseMode
	Language     string
	RetryCeiling int           // extra rounds after the first
	Cooldown     time.Duration // wait between rounds
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Mode:         model.ModeSchema,
		RetryCeiling: 3,
		Cooldown:     2 * time.Second,
	}
}

// Reconciler drives the reconciliation loop. It holds only read-only
// collaborators, so one instance may reconcile several classes at once.
type Reconciler struct {
	client    llm.Client
	parser    llm.ResponseParser
	builder   PromptBuilder
	planner   *batch.Planner
	tokenizer batch.Tokenizer
	reference *reference.Set
	progress  Progress
	usage     UsageRecorder
	sleep     Sleeper
	logger    *slog.Logger
	config    Config
}

// Option customizes a Reconciler.
type Option func(*Reconciler)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reconciler) { r.logger = logger }
}

// WithSleeper replaces the wait between rounds.
func WithSleeper(sleep Sleeper) Option {
	return func(r *Reconciler) { r.sleep = sleep }
}

// WithProgress reports progress to p.
func WithProgress(p Progress) Option {
	return func(r *Reconciler) { r.progress = p }
}

// WithUsageRecorder reports per-batch token usage to rec.
func WithUsageRecorder(rec UsageRecorder) Option {
	return func(r *Reconciler) { r.usage = rec }
}

// WithTokenizer sets the tokenizer used to estimate usage when the
// provider reports none.
func WithTokenizer(t batch.Tokenizer) Option {
	return func(r *Reconciler) { r.tokenizer = t }
}

// NewReconciler creates a reconciler with the given dependencies.
func NewReconciler(
	client llm.Client,
	parser llm.ResponseParser,
	builder PromptBuilder,
	planner *batch.Planner,
	ref *reference.Set,
	config Config,
	opts ...Option,
) *Reconciler {
	r := &Reconciler{
		client:    client,
		parser:    parser,
		builder:   builder,
		planner:   planner,
		reference: ref,
		config:    config,
		progress:  nopProgress{},
		usage:     nopRecorder{},
		sleep:     common.SleepContext,
		logger:    slog.Default(),
		tokenizer: batch.ApproxCounter{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reconcile resolves records of one class. Every round plans and submits
// batches over the pending records strictly one at a time, merging each
// answer before the next batch is planned. A failed or unreadable batch
// merges nothing and its accounts stay pending for the next round.
//
// The returned outcome is never nil. The error is non-nil only when the
// prompt cannot be rendered or ctx is canceled; a shortfall is reported in
// the outcome, not as an error.
func (r *Reconciler) Reconcile(ctx context.Context, class model.AccountClass, records []model.AccountRecord) (*Outcome, error) {
	state := newRunState(class, records)
	logger := r.logger.With("class", class)

	r.progress.Start(class, len(records))
	defer func() { r.progress.Finish(class, state.outcome()) }()

	if len(records) == 0 {
		state.State = StateDone
		return state.outcome(), nil
	}

	input := prompt.Input{
		Class:     class,
		Mode:      r.config.Mode,
		Language:  r.config.Language,
		Reference: r.reference.Lines(class),
	}
	base, err := r.builder.Base(input)
	if err != nil {
		state.State = StateGapReported
		return state.outcome(), fmt.Errorf("failed to render %s prompt: %w", class, err)
	}

	known := make(map[string]int, len(records))
	for _, rec := range records {
		known[rec.Number]++
	}

	logger.Info("Starting reconciliation", "accounts", len(records), "retry_ceiling", r.config.RetryCeiling)

	for {
		state.Rounds++
		if err := r.round(ctx, state, input, base, known, logger); err != nil {
			state.State = StateGapReported
			return state.outcome(), err
		}

		pending := state.Pending()
		if len(pending) == 0 {
			state.State = StateDone
			break
		}

		if state.RetryCount >= r.config.RetryCeiling {
			state.State = StateGapReported
			break
		}

		logger.Info("Accounts still pending, retrying",
			"pending", len(pending),
			"round", state.Rounds,
			"cooldown", r.config.Cooldown)

		if err := r.sleep(ctx, r.config.Cooldown); err != nil {
			state.State = StateGapReported
			return state.outcome(), fmt.Errorf("reconciliation of %s interrupted: %w", class, err)
		}
		state.RetryCount++
	}

	out := state.outcome()
	if out.State == StateGapReported {
		logger.Warn("Accounts left unresolved after retry ceiling",
			"resolved", fmt.Sprintf("%d/%d", out.Resolved(), out.Total),
			"rounds", out.Rounds,
			"noise", out.Noise,
			"dropped", out.Dropped)
	} else {
		logger.Info("All accounts resolved",
			"accounts", out.Total,
			"rounds", out.Rounds,
			"noise", out.Noise,
			"dropped", out.Dropped)
	}

	return out, nil
}

// round makes one pass over the pending records.
func (r *Reconciler) round(
	ctx context.Context,
	state *RunState,
	input prompt.Input,
	base string,
	known map[string]int,
	logger *slog.Logger,
) error {
	pending := state.Pending()
	lines := make([]string, len(pending))
	for i, rec := range pending {
		lines[i] = rec.Line()
	}

	for batchNo := 1; len(lines) > 0; batchNo++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("reconciliation of %s interrupted: %w", state.Class, err)
		}

		state.State = StateBatching
		plan := r.planner.Plan(base, lines)
		lines = plan.Remaining

		input.Lines = plan.Included
		text, err := r.builder.Build(input)
		if err != nil {
			return fmt.Errorf("failed to render %s prompt: %w", state.Class, err)
		}

		state.State = StateAwaitingResponse
		resp, err := r.client.Submit(ctx, text)
		if err != nil {
			state.Failed++
			if ctxErr := ctx.Err(); ctxErr != nil {
				return fmt.Errorf("reconciliation of %s interrupted: %w", state.Class, ctxErr)
			}
			logger.Warn("Batch failed, accounts stay pending",
				"round", state.Rounds,
				"batch", batchNo,
				"accounts", len(plan.Included),
				"error", err)
			continue
		}
		used := r.batchUsage(resp, plan.Tokens)
		state.Usage.Add(used)
		r.usage.Add(used)

		state.State = StateMerging
		parsed, err := r.parser.Parse(resp.Content)
		if err != nil {
			state.Failed++
			logger.Warn("Unreadable answer, accounts stay pending",
				"round", state.Rounds,
				"batch", batchNo,
				"accounts", len(plan.Included),
				"error", err)
			continue
		}
		state.Dropped += parsed.Dropped

		resolved := state.merge(parsed.Results, known)
		r.progress.Advance(state.Class, resolved)

		logger.Debug("Batch merged",
			"round", state.Rounds,
			"batch", batchNo,
			"sent", len(plan.Included),
			"results", len(parsed.Results),
			"resolved", resolved,
			"dropped", parsed.Dropped)
	}

	return nil
}

// batchUsage prefers provider-reported counts and falls back to estimates.
func (r *Reconciler) batchUsage(resp llm.Response, promptTokens int) model.TokenUsage {
	if resp.Usage.Total() > 0 {
		return resp.Usage
	}
	return model.TokenUsage{
		PromptTokens:     promptTokens,
		CompletionTokens: r.tokenizer.Count(resp.Content),
	}
}

// IsInterrupted reports whether err comes from cancellation.
func IsInterrupted(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
