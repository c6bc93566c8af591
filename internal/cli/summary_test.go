package cli

import (
	"testing"
	"time"

	"github.com/Veraticus/transco/internal/cost"
	"github.com/Veraticus/transco/internal/engine"
	"github.com/Veraticus/transco/internal/model"
	"github.com/Veraticus/transco/internal/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestRenderRunSummary(t *testing.T) {
	started := time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC)
	report := &engine.RunReport{
		StartedAt:  started,
		FinishedAt: started.Add(42 * time.Second),
		Usage:      model.TokenUsage{PromptTokens: 1500, CompletionTokens: 300},
		Outcomes: []*engine.Outcome{
			{
				Class: model.ClassBS,
				Total: 2,
				State: engine.StateGapReported,
				Rows:  []model.ResolvedRow{{Record: model.AccountRecord{Number: "401000"}}},
				Unresolved: []model.AccountRecord{
					{Number: "512000", Label: "Bank"},
				},
				RetryCount: 3,
			},
			{Class: model.ClassPL, Total: 1, State: engine.StateDone, Rows: []model.ResolvedRow{{}}},
		},
		Unknown: []model.AccountRecord{{Number: "999"}},
	}

	out := RenderRunSummary(report, decimal.RequireFromString("0.0123"), []string{"mapping.xlsx"})

	assert.Contains(t, out, "Unresolved")
	assert.Contains(t, out, "Balance Sheet")
	assert.Contains(t, out, "GAP_REPORTED")
	assert.Contains(t, out, "512000")
	assert.Contains(t, out, "$0.0123")
	assert.Contains(t, out, "42s")
	assert.Contains(t, out, "Skipped (unknown class): 1")
	assert.Contains(t, out, "mapping.xlsx")
}

func TestRenderRunSummaryComplete(t *testing.T) {
	report := &engine.RunReport{
		Outcomes: []*engine.Outcome{
			{Class: model.ClassPL, Total: 1, State: engine.StateDone, Rows: []model.ResolvedRow{{}}},
		},
	}

	out := RenderRunSummary(report, decimal.Zero, nil)
	assert.Contains(t, out, "Matching Complete")
	assert.NotContains(t, out, "Skipped")
}

func TestRenderEstimate(t *testing.T) {
	out := RenderEstimate([]ClassEstimate{
		{Class: model.ClassBS, Estimate: cost.Estimate{Accounts: 3, Batches: 1, Cost: decimal.RequireFromString("0.01")}},
		{Class: model.ClassPL, Estimate: cost.Estimate{Accounts: 2, Batches: 1, Cost: decimal.RequireFromString("0.02")}},
	})

	assert.Contains(t, out, "Estimated Cost")
	assert.Contains(t, out, "Profit & Loss")
	assert.Contains(t, out, "Total")
	assert.Contains(t, out, "$0.0300")
}

func TestRenderHistory(t *testing.T) {
	assert.Contains(t, RenderHistory(nil), "No runs recorded yet")

	out := RenderHistory([]service.RunRecord{{
		ID:        "abc",
		Provider:  "openai",
		Model:     "gpt-4o",
		InputPath: "ledger.csv",
		StartedAt: time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC),
		Cost:      decimal.RequireFromString("1.5"),
		Classes:   []service.ClassRecord{{Total: 4, Resolved: 3}},
	}})
	assert.Contains(t, out, "openai/gpt-4o")
	assert.Contains(t, out, "3/4")
	assert.Contains(t, out, "$1.5000")
}

func TestRenderTablePadsColumns(t *testing.T) {
	out := RenderTable([]string{"A", "B"}, [][]string{{"long value", "x"}, {"y"}})
	assert.Contains(t, out, "long value")
	assert.Contains(t, out, "y")
}

func TestClassStyle(t *testing.T) {
	assert.Contains(t, ClassStyle(model.ClassBS).Render("Balance Sheet"), "Balance Sheet")
	assert.Contains(t, ClassStyle(model.ClassPL).Render("Profit & Loss"), "Profit & Loss")
	assert.Equal(t, SubtleStyle.Render("x"), ClassStyle("equity").Render("x"))
}
