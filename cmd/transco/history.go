package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/Veraticus/transco/internal/cli"
	"github.com/Veraticus/transco/internal/common"
	"github.com/Veraticus/transco/internal/config"
	"github.com/Veraticus/transco/internal/report"
	"github.com/Veraticus/transco/internal/service"
	"github.com/Veraticus/transco/internal/storage"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "List past runs or show one run",
		Long: `Without arguments, list the most recent runs. With a run ID, show that
run's unresolved accounts, and with --export write its mapping table again.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			export, _ := cmd.Flags().GetString("export")

			v := viper.GetViper()
			if len(args) == 0 {
				return runHistoryList(cmd.Context(), v, limit, cmd.OutOrStdout())
			}
			return runHistoryShow(cmd.Context(), v, args[0], export, cmd.OutOrStdout())
		},
	}

	cmd.Flags().IntP("limit", "n", 20, "number of runs to list")
	cmd.Flags().String("export", "", "write the run's mapping table to this .xlsx or .csv file")

	return cmd
}

func openHistory(ctx context.Context, v *viper.Viper) (*storage.SQLiteStorage, error) {
	store, err := storage.NewSQLiteStorage(config.Path(v, config.KeyDatabasePath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return store, nil
}

func runHistoryList(ctx context.Context, v *viper.Viper, limit int, stdout io.Writer) error {
	store, err := openHistory(ctx, v)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	runs, err := store.ListRuns(ctx, limit)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, cli.RenderHistory(runs))
	return nil
}

func runHistoryShow(ctx context.Context, v *viper.Viper, id, export string, stdout io.Writer) error {
	store, err := openHistory(ctx, v)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	run, err := store.GetRun(ctx, id)
	if errors.Is(err, common.ErrNotFound) {
		return common.NewUserError(fmt.Sprintf("no run with ID %s", id), err)
	}
	if err != nil {
		return err
	}

	fmt.Fprintln(stdout, cli.RenderHistory([]service.RunRecord{*run}))

	var gaps [][]string
	for _, c := range run.Classes {
		for _, rec := range c.Unresolved {
			gaps = append(gaps, []string{string(c.Class), rec.Number, rec.Label})
		}
	}
	if len(gaps) > 0 {
		fmt.Fprintln(stdout)
		fmt.Fprintln(stdout, cli.FormatWarning(fmt.Sprintf("%d unresolved accounts", len(gaps))))
		fmt.Fprintln(stdout, cli.RenderTable([]string{"Class", "Account Number", "Label"}, gaps))
	}

	if export == "" {
		return nil
	}
	w, err := report.NewFileWriter(config.ExpandPath(export), nil)
	if err != nil {
		return err
	}
	table := report.FromRecord(run)
	if err := w.Write(ctx, table.Header, table.Rows, run); err != nil {
		return err
	}
	fmt.Fprintln(stdout, cli.FormatSuccess("Mapping written to "+w.Path()))
	return nil
}
