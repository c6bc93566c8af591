package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/transco/internal/cost"
	"github.com/Veraticus/transco/internal/engine"
	"github.com/Veraticus/transco/internal/model"
	"github.com/Veraticus/transco/internal/service"
	"github.com/shopspring/decimal"
)

// FormatCost renders an amount of money with four decimals.
func FormatCost(amount decimal.Decimal) string {
	return "$" + amount.StringFixed(4)
}

// RenderRunSummary describes a finished run: per-class outcome, token usage
// and cost, and where the table went.
func RenderRunSummary(report *engine.RunReport, spent decimal.Decimal, destinations []string) string {
	var b strings.Builder

	rows := make([][]string, 0, len(report.Outcomes))
	for _, o := range report.Outcomes {
		rows = append(rows, []string{
			ClassStyle(o.Class).Render(o.Class.Label()),
			strconv.Itoa(o.Total),
			strconv.Itoa(o.Resolved()),
			strconv.Itoa(len(o.Unresolved)),
			strconv.Itoa(o.RetryCount),
			o.State.String(),
		})
	}
	b.WriteString(RenderTable([]string{"Class", "Accounts", "Resolved", "Unresolved", "Retries", "State"}, rows))
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "  • Tokens: %d prompt, %d completion\n", report.Usage.PromptTokens, report.Usage.CompletionTokens)
	fmt.Fprintf(&b, "  • Cost: %s %s\n", FormatCost(spent), CoinIcon)
	fmt.Fprintf(&b, "  • Time taken: %s\n", report.FinishedAt.Sub(report.StartedAt).Round(time.Second))
	if len(report.Unknown) > 0 {
		fmt.Fprintf(&b, "  • Skipped (unknown class): %d\n", len(report.Unknown))
	}
	for _, d := range destinations {
		fmt.Fprintf(&b, "  • Written to: %s\n", d)
	}

	title := "Matching Complete"
	if !report.Complete() {
		title = fmt.Sprintf("Matching Finished With %d Unresolved", report.Total()-report.Resolved())
		for _, o := range report.Outcomes {
			for _, rec := range o.Unresolved {
				fmt.Fprintf(&b, "\n%s", SubtleStyle.Render(fmt.Sprintf("  %s  %s  %s", o.Class, rec.Number, rec.Label)))
			}
		}
	}

	return RenderBox(title, strings.TrimRight(b.String(), "\n"))
}

// ClassEstimate pairs a class with its dry-run estimate.
type ClassEstimate struct {
	Class    model.AccountClass
	Estimate cost.Estimate
}

// RenderEstimate shows the pre-run cost estimate per class and in total.
func RenderEstimate(estimates []ClassEstimate) string {
	rows := make([][]string, 0, len(estimates)+1)
	parts := make([]cost.Estimate, 0, len(estimates))
	for _, e := range estimates {
		rows = append(rows, estimateRow(ClassStyle(e.Class).Render(e.Class.Label()), e.Estimate))
		parts = append(parts, e.Estimate)
	}
	rows = append(rows, estimateRow("Total", cost.Sum(parts...)))

	return RenderBox(CoinIcon+" Estimated Cost",
		RenderTable([]string{"Class", "Accounts", "Batches", "Prompt tokens", "Completion tokens", "Cost"}, rows))
}

func estimateRow(name string, e cost.Estimate) []string {
	return []string{
		name,
		strconv.Itoa(e.Accounts),
		strconv.Itoa(e.Batches),
		strconv.Itoa(e.Usage.PromptTokens),
		strconv.Itoa(e.Usage.CompletionTokens),
		FormatCost(e.Cost),
	}
}

// RenderHistory lists past runs, newest first.
func RenderHistory(runs []service.RunRecord) string {
	if len(runs) == 0 {
		return FormatInfo("No runs recorded yet")
	}

	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, []string{
			r.ID,
			r.StartedAt.Local().Format("2006-01-02 15:04"),
			r.Provider + "/" + r.Model,
			fmt.Sprintf("%d/%d", r.Resolved(), r.Total()),
			FormatCost(r.Cost),
			r.InputPath,
		})
	}
	return RenderTable([]string{"Run", "Started", "Model", "Resolved", "Cost", "Input"}, rows)
}
