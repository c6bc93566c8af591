package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/Veraticus/transco/internal/cli"
	"github.com/Veraticus/transco/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func estimateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "estimate <ledger.xlsx|ledger.csv>",
		Short: "Estimate the cost of matching a ledger",
		Long: `Plan the batches for a ledger without calling any model and price them.

The estimate assumes every account is answered in the first round; accounts
that need resubmission add to the real cost.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v := viper.GetViper()
			if err := bindFlags(cmd, v, map[string]string{
				"reference": config.KeyReferencePath,
				"model":     config.KeyModel,
			}); err != nil {
				return err
			}
			return runEstimate(v, args[0], cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringP("reference", "r", "", "reference chart of accounts (.xlsx or .csv)")
	cmd.Flags().String("model", "", "model whose tokenizer sizes the batches")

	return cmd
}

func runEstimate(v *viper.Viper, inputPath string, stdout io.Writer) error {
	p, err := newPipeline(v, false, slog.Default())
	if err != nil {
		return err
	}

	l, err := p.loadLedger(inputPath)
	if err != nil {
		return err
	}

	estimates, err := p.estimate(l)
	if err != nil {
		return err
	}

	fmt.Fprintln(stdout, cli.RenderEstimate(estimates))
	if len(l.Unknown) > 0 {
		fmt.Fprintln(stdout, cli.FormatWarning(fmt.Sprintf("%d accounts have an unknown class and will be skipped", len(l.Unknown))))
	}
	return nil
}
