package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/Veraticus/transco/internal/cli"
	"github.com/Veraticus/transco/internal/config"
	"github.com/Veraticus/transco/internal/cost"
	"github.com/Veraticus/transco/internal/engine"
	"github.com/Veraticus/transco/internal/report"
	"github.com/Veraticus/transco/internal/service"
	"github.com/Veraticus/transco/internal/sheets"
	"github.com/Veraticus/transco/internal/storage"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func matchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "match <ledger.xlsx|ledger.csv>",
		Short: "Match ledger accounts to the reference chart",
		Long: `Match every account of a ledger export to the reference chart of accounts.

The ledger needs a header row and at least three columns: account number,
label and a BS / P&L indicator. Balance sheet and P&L accounts are matched
concurrently, each against its own half of the reference chart.

Examples:
  transco match ledger.xlsx
  transco match ledger.csv --output mapping.csv --reference coa.xlsx
  transco match ledger.xlsx --sheets           # also export to Google Sheets
  transco match ledger.xlsx --mock             # offline dry run, no API calls`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v := viper.GetViper()
			if err := bindFlags(cmd, v, map[string]string{
				"output":     config.KeyOutput,
				"reference":  config.KeyReferencePath,
				"sequential": config.KeySequential,
				"mode":       config.KeyResponseMode,
				"provider":   config.KeyProvider,
				"model":      config.KeyModel,
			}); err != nil {
				return err
			}

			opts := matchOptions{InputPath: args[0]}
			opts.Mock, _ = cmd.Flags().GetBool("mock")
			opts.Sheets, _ = cmd.Flags().GetBool("sheets")
			opts.NoHistory, _ = cmd.Flags().GetBool("no-history")
			opts.Sheets = opts.Sheets || v.GetBool("sheets.enabled")

			return runMatch(cmd.Context(), v, opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringP("output", "o", "", "output file (.xlsx or .csv)")
	cmd.Flags().StringP("reference", "r", "", "reference chart of accounts (.xlsx or .csv)")
	cmd.Flags().Bool("sequential", false, "match BS then P&L instead of concurrently")
	cmd.Flags().String("mode", "", "response mode (schema, freetext)")
	cmd.Flags().String("provider", "", "LLM provider (openai, anthropic)")
	cmd.Flags().String("model", "", "LLM model")
	cmd.Flags().Bool("mock", false, "use the offline mock model instead of a provider")
	cmd.Flags().Bool("sheets", false, "also export the mapping to Google Sheets")
	cmd.Flags().Bool("no-history", false, "do not record the run in the history database")

	return cmd
}

type matchOptions struct {
	InputPath string
	Mock      bool
	Sheets    bool
	NoHistory bool
}

// runMatch loads the inputs, shows the estimate, reconciles every class and
// writes whatever was resolved. An interrupted run still writes and records
// its partial results before returning the interruption.
func runMatch(ctx context.Context, v *viper.Viper, opts matchOptions, stdout, stderr io.Writer) error {
	logger := slog.Default()

	p, err := newPipeline(v, !opts.Mock, logger)
	if err != nil {
		return err
	}

	l, err := p.loadLedger(opts.InputPath)
	if err != nil {
		return err
	}

	estimates, err := p.estimate(l)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, cli.RenderEstimate(estimates))

	writers, destinations, err := reportWriters(ctx, v, opts, logger)
	if err != nil {
		return err
	}

	client, err := p.client(opts.Mock)
	if err != nil {
		return err
	}

	meter := cost.NewMeter(p.rates)
	progress := cli.NewProgressReporter(stderr, meter)
	progress.Expect(l.Count())

	reconciler, err := p.reconciler(client,
		engine.WithProgress(progress),
		engine.WithUsageRecorder(meter))
	if err != nil {
		return err
	}

	handler := cli.NewInterruptHandler(stderr)
	runCtx, release := handler.HandleInterrupts(ctx, destinations[0])
	defer release()

	orchestrator := engine.NewOrchestrator(reconciler, v.GetBool(config.KeySequential), logger)
	rep, runErr := orchestrator.Run(runCtx, l)
	if runErr != nil && !engine.IsInterrupted(runErr) {
		return fmt.Errorf("matching failed: %w", runErr)
	}

	// Partial results are still written after an interrupt.
	writeCtx := context.WithoutCancel(ctx)

	table := report.Assemble(rep.Outcomes...)
	record := rep.Record(engine.RunInfo{
		ID:        uuid.NewString(),
		InputPath: opts.InputPath,
		Provider:  providerName(p, opts.Mock),
		Model:     p.llm.Model,
		Cost:      meter.Cost(),
	})

	var writeErrs []error
	for _, w := range writers {
		if err := w.Write(writeCtx, table.Header, table.Rows, record); err != nil {
			writeErrs = append(writeErrs, err)
		}
	}

	if !opts.NoHistory {
		if err := saveHistory(writeCtx, config.Path(v, config.KeyDatabasePath), record); err != nil {
			// History is an audit trail; losing it must not lose the report.
			logger.Warn("Failed to record run history", "error", err)
		}
	}

	fmt.Fprintln(stdout, cli.RenderRunSummary(rep, meter.Cost(), destinations))

	if err := errors.Join(writeErrs...); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	if runErr != nil {
		return fmt.Errorf("matching interrupted after %s: %w", time.Since(rep.StartedAt).Round(time.Second), runErr)
	}
	return nil
}

// reportWriters returns the file writer plus the Sheets writer when
// enabled, and a description of each destination.
func reportWriters(ctx context.Context, v *viper.Viper, opts matchOptions, logger *slog.Logger) ([]service.ReportWriter, []string, error) {
	output := config.Path(v, config.KeyOutput)
	fileWriter, err := report.NewFileWriter(output, logger)
	if err != nil {
		return nil, nil, err
	}
	writers := []service.ReportWriter{fileWriter}
	destinations := []string{fileWriter.Path()}

	if opts.Sheets {
		sheetsCfg, err := config.LoadSheetsConfig(v)
		if err != nil {
			return nil, nil, fmt.Errorf("google sheets export: %w", err)
		}
		sheetsWriter, err := sheets.NewWriter(ctx, *sheetsCfg, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("google sheets export: %w", err)
		}
		writers = append(writers, sheetsWriter)
		destinations = append(destinations, "Google Sheets "+sheetsCfg.SpreadsheetName)
	}

	return writers, destinations, nil
}

func saveHistory(ctx context.Context, dbPath string, record *service.RunRecord) error {
	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := store.Migrate(ctx); err != nil {
		return err
	}
	return store.SaveRun(ctx, record)
}

func providerName(p *pipeline, mock bool) string {
	if mock {
		return "mock"
	}
	return p.llm.Provider
}
