package main

import (
	"fmt"
	"log/slog"

	"github.com/Veraticus/transco/internal/batch"
	"github.com/Veraticus/transco/internal/cli"
	"github.com/Veraticus/transco/internal/config"
	"github.com/Veraticus/transco/internal/cost"
	"github.com/Veraticus/transco/internal/engine"
	"github.com/Veraticus/transco/internal/ledger"
	"github.com/Veraticus/transco/internal/llm"
	"github.com/Veraticus/transco/internal/model"
	"github.com/Veraticus/transco/internal/prompt"
	"github.com/Veraticus/transco/internal/reference"
	"github.com/spf13/viper"
)

// pipeline holds the components every matching command is built from.
type pipeline struct {
	reference  *reference.Set
	builder    *prompt.Builder
	planner    *batch.Planner
	tokenizer  batch.Tokenizer
	logger     *slog.Logger
	ledgerOpts ledger.Options
	reconcile  engine.Config
	rates      cost.Rates
	llm        llm.Config
	outputPer  int
}

// newPipeline reads the configuration and loads the reference chart. A
// reference that cannot be loaded is fatal.
func newPipeline(v *viper.Viper, requireKey bool, logger *slog.Logger) (*pipeline, error) {
	llmCfg, err := config.LLM(v, requireKey)
	if err != nil {
		return nil, err
	}
	reconcileCfg, err := config.Reconcile(v)
	if err != nil {
		return nil, err
	}
	limits, err := config.BatchLimits(v)
	if err != nil {
		return nil, err
	}
	rates, err := config.Rates(v)
	if err != nil {
		return nil, err
	}
	ledgerOpts, err := config.LedgerOptions(v)
	if err != nil {
		return nil, err
	}

	ref, err := reference.Load(config.Path(v, config.KeyReferencePath), ledgerOpts.Classifier)
	if err != nil {
		return nil, err
	}
	logger.Info("Loaded reference chart",
		"path", ref.Path(),
		"bs", len(ref.Entries(model.ClassBS)),
		"pl", len(ref.Entries(model.ClassPL)),
		"skipped", ref.Skipped())

	builder, err := newBuilder(config.Path(v, config.KeyPromptsPath))
	if err != nil {
		return nil, err
	}
	llmCfg.System = builder.System()

	tokenizer := newTokenizer(llmCfg.Model, logger)

	return &pipeline{
		reference:  ref,
		builder:    builder,
		planner:    batch.NewPlanner(tokenizer, limits, logger),
		tokenizer:  tokenizer,
		logger:     logger,
		ledgerOpts: ledgerOpts,
		reconcile:  reconcileCfg,
		rates:      rates,
		llm:        llmCfg,
		outputPer:  v.GetInt(config.KeyOutputPerAcct),
	}, nil
}

func newBuilder(path string) (*prompt.Builder, error) {
	if path == "" {
		return prompt.NewDefaultBuilder()
	}
	templates, err := prompt.LoadTemplates(path)
	if err != nil {
		return nil, err
	}
	return prompt.NewBuilder(templates)
}

// newTokenizer prefers the model's BPE encoding and falls back to a
// rune-based estimate when none can be loaded.
func newTokenizer(modelName string, logger *slog.Logger) batch.Tokenizer {
	counter, err := batch.NewTiktoken(modelName)
	if err != nil {
		logger.Warn("Falling back to approximate token counts", "error", err)
		return batch.ApproxCounter{}
	}
	logger.Debug("Token counter ready", "model", modelName, "encoding", counter.Encoding())
	return counter
}

func (p *pipeline) loadLedger(path string) (*ledger.Ledger, error) {
	l, err := ledger.Load(path, p.ledgerOpts)
	if err != nil {
		return nil, err
	}
	p.logger.Info("Loaded ledger",
		"path", path,
		"rows", l.Rows,
		"accounts", l.Count(),
		"duplicates", l.Duplicates,
		"unknown_class", len(l.Unknown))
	return l, nil
}

// estimate prices one round over every class of l.
func (p *pipeline) estimate(l *ledger.Ledger) ([]cli.ClassEstimate, error) {
	estimator := cost.NewEstimator(p.planner, p.builder, p.rates, p.outputPer)

	estimates := make([]cli.ClassEstimate, 0, len(model.Classes))
	for _, class := range model.Classes {
		est, err := estimator.Estimate(p.input(class), l.Records(class))
		if err != nil {
			return nil, err
		}
		estimates = append(estimates, cli.ClassEstimate{Class: class, Estimate: est})
	}
	return estimates, nil
}

func (p *pipeline) input(class model.AccountClass) prompt.Input {
	return prompt.Input{
		Class:     class,
		Mode:      p.reconcile.Mode,
		Language:  p.reconcile.Language,
		Reference: p.reference.Lines(class),
	}
}

// client returns the provider client, or the offline mock when mock is set.
func (p *pipeline) client(mock bool) (llm.Client, error) {
	if mock {
		p.logger.Warn("Using the offline mock model; results are placeholders")
		return engine.NewMockClient(p.reconcile.Mode), nil
	}
	client, err := llm.New(p.llm, p.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	return client, nil
}

func (p *pipeline) reconciler(client llm.Client, opts ...engine.Option) (*engine.Reconciler, error) {
	parser, err := llm.NewParser(p.reconcile.Mode)
	if err != nil {
		return nil, err
	}
	opts = append([]engine.Option{
		engine.WithLogger(p.logger),
		engine.WithTokenizer(p.tokenizer),
	}, opts...)
	return engine.NewReconciler(client, parser, p.builder, p.planner, p.reference, p.reconcile, opts...), nil
}
