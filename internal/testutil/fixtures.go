package testutil

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/Veraticus/transco/internal/model"
	"github.com/Veraticus/transco/internal/service"
	"github.com/Veraticus/transco/internal/tabular"
	"github.com/shopspring/decimal"
)

// Basic reference entries used across tests, two per class.
var BasicChart = []model.ReferenceEntry{
	{Code: "101000", Name: "Capital", Class: model.ClassBS},
	{Code: "401000", Name: "Trade payables", Class: model.ClassBS},
	{Code: "607000", Name: "Purchases of goods", Class: model.ClassPL},
	{Code: "706000", Name: "Services rendered", Class: model.ClassPL},
}

// ChartBuilder builds a reference chart of accounts file.
type ChartBuilder struct {
	t       *testing.T
	entries []model.ReferenceEntry
}

// NewChartBuilder starts an empty chart.
func NewChartBuilder(t *testing.T) *ChartBuilder {
	t.Helper()
	return &ChartBuilder{t: t}
}

// WithBasicEntries adds BasicChart.
func (b *ChartBuilder) WithBasicEntries() *ChartBuilder {
	b.entries = append(b.entries, BasicChart...)
	return b
}

// WithEntry adds one entry.
func (b *ChartBuilder) WithEntry(code, name string, class model.AccountClass) *ChartBuilder {
	b.entries = append(b.entries, model.ReferenceEntry{Code: code, Name: name, Class: class})
	return b
}

// Entries returns the entries added so far.
func (b *ChartBuilder) Entries() []model.ReferenceEntry {
	return b.entries
}

// Write saves the chart under dir as name (.xlsx or .csv) and returns the path.
func (b *ChartBuilder) Write(dir, name string) string {
	b.t.Helper()

	rows := make([][]string, len(b.entries))
	for i, e := range b.entries {
		rows[i] = []string{e.Code, e.Name, string(e.Class)}
	}
	return writeTable(b.t, dir, name, []string{"GL account", "Account Name", "BS / P&L"}, rows)
}

// LedgerBuilder builds a foreign ledger file.
type LedgerBuilder struct {
	t    *testing.T
	rows [][]string
}

// NewLedgerBuilder starts an empty ledger.
func NewLedgerBuilder(t *testing.T) *LedgerBuilder {
	t.Helper()
	return &LedgerBuilder{t: t}
}

// WithAccount adds a row; indicator is written as is, so unknown or
// unusual class spellings can be tested.
func (b *LedgerBuilder) WithAccount(number, label, indicator string) *LedgerBuilder {
	b.rows = append(b.rows, []string{number, label, indicator})
	return b
}

// WithGeneratedAccounts adds n numbered accounts of class, starting at first.
func (b *LedgerBuilder) WithGeneratedAccounts(n, first int, class model.AccountClass) *LedgerBuilder {
	for i := 0; i < n; i++ {
		number := strconv.Itoa(first + i)
		b.rows = append(b.rows, []string{number, "Account " + number, string(class)})
	}
	return b
}

// Write saves the ledger under dir as name (.xlsx or .csv) and returns the path.
func (b *LedgerBuilder) Write(dir, name string) string {
	b.t.Helper()
	return writeTable(b.t, dir, name, []string{"Account", "Label", "Class"}, b.rows)
}

func writeTable(t *testing.T, dir, name string, header []string, rows [][]string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if tabular.Ext(name) != tabular.ExtXLSX {
		// Comma-separated text whatever the extension, so tests can also
		// cover rejected file types.
		var sb strings.Builder
		for _, row := range append([][]string{header}, rows...) {
			sb.WriteString(strings.Join(row, ","))
			sb.WriteString("\n")
		}
		if err := os.WriteFile(path, []byte(sb.String()), 0o600); err != nil {
			t.Fatalf("failed to write %s: %v", path, err)
		}
		return path
	}

	if err := tabular.WriteFile(path, header, rows); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}

// RunBuilder builds a recorded run.
type RunBuilder struct {
	run service.RunRecord
}

// NewRunBuilder starts a run with id, started at a fixed time.
func NewRunBuilder(id string) *RunBuilder {
	started := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	return &RunBuilder{run: service.RunRecord{
		ID:         id,
		InputPath:  "/tmp/ledger.xlsx",
		Provider:   "openai",
		Model:      "gpt-4o",
		StartedAt:  started,
		FinishedAt: started.Add(90 * time.Second),
		Cost:       decimal.RequireFromString("0.0425"),
		Usage:      model.TokenUsage{PromptTokens: 1200, CompletionTokens: 340},
	}}
}

// StartedAt moves the run, keeping its duration.
func (b *RunBuilder) StartedAt(at time.Time) *RunBuilder {
	d := b.run.FinishedAt.Sub(b.run.StartedAt)
	b.run.StartedAt = at
	b.run.FinishedAt = at.Add(d)
	return b
}

// WithClass adds a class outcome: resolved rows map each record onto
// code, unresolved records are reported as gaps.
func (b *RunBuilder) WithClass(class model.AccountClass, code string, resolved, unresolved []model.AccountRecord) *RunBuilder {
	c := service.ClassRecord{
		Class:      class,
		State:      "DONE",
		Total:      len(resolved) + len(unresolved),
		Resolved:   len(resolved),
		Rounds:     1,
		Unresolved: unresolved,
	}
	if len(unresolved) > 0 {
		c.State = "GAP_REPORTED"
	}
	for _, rec := range resolved {
		c.Rows = append(c.Rows, model.ResolvedRow{
			Record: rec,
			Match: model.MatchResult{
				AccountNumber: rec.Number,
				Label:         rec.Label,
				COACode:       code,
				COALabel:      "Mapped",
				Justification: "closest entry",
			},
		})
	}
	b.run.Classes = append(b.run.Classes, c)
	return b
}

// WithBasicClasses adds one resolved and one unresolved BS account and one
// resolved P&L account.
func (b *RunBuilder) WithBasicClasses() *RunBuilder {
	return b.
		WithClass(model.ClassBS, "401000",
			[]model.AccountRecord{{Number: "401100", Label: "Suppliers", Class: model.ClassBS, Position: 0}},
			[]model.AccountRecord{{Number: "512000", Label: "Bank", Class: model.ClassBS, Position: 1}}).
		WithClass(model.ClassPL, "607000",
			[]model.AccountRecord{{Number: "601000", Label: "Purchases", Class: model.ClassPL, Position: 2}},
			nil)
}

// Build returns a copy of the run.
func (b *RunBuilder) Build() *service.RunRecord {
	run := b.run
	run.Classes = append([]service.ClassRecord(nil), b.run.Classes...)
	return &run
}
