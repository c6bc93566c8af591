package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/Veraticus/transco/internal/cli"
	"github.com/Veraticus/transco/internal/config"
	"github.com/Veraticus/transco/internal/model"
	"github.com/Veraticus/transco/internal/reference"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func referenceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reference",
		Short: "Check the reference chart of accounts",
		Long: `Load the reference chart the same way a match run does and summarize it.

Use this to confirm the header columns are recognized and that entries are
split into balance sheet and P&L as expected.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			v := viper.GetViper()
			if err := bindFlags(cmd, v, map[string]string{"reference": config.KeyReferencePath}); err != nil {
				return err
			}
			limit, _ := cmd.Flags().GetInt("show")
			return runReference(v, limit, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringP("reference", "r", "", "reference chart of accounts (.xlsx or .csv)")
	cmd.Flags().Int("show", 5, "entries to list per class")

	return cmd
}

func runReference(v *viper.Viper, limit int, stdout io.Writer) error {
	classifier, err := config.Classifier(v)
	if err != nil {
		return err
	}
	set, err := reference.Load(config.Path(v, config.KeyReferencePath), classifier)
	if err != nil {
		return err
	}

	fmt.Fprintln(stdout, cli.FormatTitle("Reference chart "+set.Path()))

	counts := make([][]string, 0, len(model.Classes)+1)
	for _, class := range model.Classes {
		counts = append(counts, []string{class.Label(), strconv.Itoa(len(set.Entries(class)))})
	}
	counts = append(counts, []string{"Skipped (unknown class)", strconv.Itoa(set.Skipped())})
	fmt.Fprintln(stdout, cli.RenderTable([]string{"Class", "Entries"}, counts))

	for _, class := range model.Classes {
		lines := set.Lines(class)
		if len(lines) == 0 {
			fmt.Fprintln(stdout, cli.FormatWarning("No "+class.Label()+" entries; those accounts cannot be matched"))
			continue
		}
		fmt.Fprintln(stdout)
		fmt.Fprintln(stdout, cli.ClassStyle(class).Bold(true).Render(class.Label()))
		for i, line := range lines {
			if limit >= 0 && i >= limit {
				fmt.Fprintln(stdout, cli.SubtleStyle.Render(fmt.Sprintf("  … %d more", len(lines)-limit)))
				break
			}
			fmt.Fprintln(stdout, "  "+line)
		}
	}
	return nil
}
