// Package report assembles the final mapping table and writes it out.
package report

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Veraticus/transco/internal/engine"
	"github.com/Veraticus/transco/internal/model"
	"github.com/Veraticus/transco/internal/normalize"
	"github.com/Veraticus/transco/internal/service"
	"github.com/Veraticus/transco/internal/tabular"
)

// Header is the column set of the mapping table.
var Header = []string{"Account Number", "Label", "Account Type", "COA code", "COA label", "Justification"}

// Table is the assembled mapping table.
type Table struct {
	Header     []string
	Rows       [][]string
	Unresolved int // accounts omitted because they were never matched
}

// Assemble merges outcomes in the order given, each in input order.
// Markdown bold markers are stripped from every field and codes are
// normalized again so the output never depends on how the model wrote them.
func Assemble(outcomes ...*engine.Outcome) Table {
	t := Table{Header: Header}
	for _, o := range outcomes {
		if o == nil {
			continue
		}
		t.Unresolved += len(o.Unresolved)
		for _, row := range o.Rows {
			t.Rows = append(t.Rows, tableRow(o.Class, row))
		}
	}
	return t
}

// FromRecord rebuilds the table of a stored run.
func FromRecord(run *service.RunRecord) Table {
	t := Table{Header: Header}
	if run == nil {
		return t
	}
	for _, c := range run.Classes {
		t.Unresolved += len(c.Unresolved)
		for _, row := range c.Rows {
			t.Rows = append(t.Rows, tableRow(c.Class, row))
		}
	}
	return t
}

func tableRow(class model.AccountClass, row model.ResolvedRow) []string {
	label := row.Record.Label
	if label == "" {
		label = row.Match.Label
	}
	return []string{
		normalize.Number(normalize.StripBold(row.Record.Number)),
		normalize.Text(label),
		string(class),
		normalize.Number(normalize.StripBold(row.Match.COACode)),
		normalize.Text(row.Match.COALabel),
		normalize.Text(row.Match.Justification),
	}
}

// FileWriter writes the table to an xlsx or csv file chosen by extension.
type FileWriter struct {
	logger *slog.Logger
	path   string
}

var _ service.ReportWriter = (*FileWriter)(nil)

// NewFileWriter creates a writer for path.
func NewFileWriter(path string, logger *slog.Logger) (*FileWriter, error) {
	switch tabular.Ext(path) {
	case tabular.ExtXLSX, tabular.ExtCSV:
	default:
		return nil, fmt.Errorf("%w: output must be .xlsx or .csv, got %q", tabular.ErrUnsupportedFormat, path)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FileWriter{path: path, logger: logger}, nil
}

// Path returns the output file path.
func (w *FileWriter) Path() string {
	return w.path
}

// Write implements service.ReportWriter.
func (w *FileWriter) Write(ctx context.Context, header []string, rows [][]string, run *service.RunRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := tabular.WriteFile(w.path, header, rows); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	attrs := []any{"path", w.path, "rows", len(rows)}
	if run != nil {
		attrs = append(attrs, "run_id", run.ID, "unresolved", run.Total()-run.Resolved())
	}
	w.logger.Info("Report written", attrs...)

	return nil
}
