// Package cost converts token usage into money and estimates the cost of a
// run before any request is sent.
package cost

import (
	"fmt"
	"sync"

	"github.com/Veraticus/transco/internal/batch"
	"github.com/Veraticus/transco/internal/model"
	"github.com/Veraticus/transco/internal/prompt"
	"github.com/shopspring/decimal"
)

var thousand = decimal.NewFromInt(1000)

// Rates are prices per thousand tokens.
type Rates struct {
	PromptPer1K     decimal.Decimal
	CompletionPer1K decimal.Decimal
}

// DefaultRates returns the default pricing.
func DefaultRates() Rates {
	return Rates{
		PromptPer1K:     decimal.RequireFromString("0.0025"),
		CompletionPer1K: decimal.RequireFromString("0.01"),
	}
}

// Price returns the cost of usage.
func (r Rates) Price(usage model.TokenUsage) decimal.Decimal {
	prompt := decimal.NewFromInt(int64(usage.PromptTokens)).Div(thousand).Mul(r.PromptPer1K)
	completion := decimal.NewFromInt(int64(usage.CompletionTokens)).Div(thousand).Mul(r.CompletionPer1K)
	return prompt.Add(completion)
}

// Meter accumulates usage across concurrent reconciliations.
type Meter struct {
	rates Rates
	usage model.TokenUsage
	mu    sync.Mutex
}

// NewMeter creates a meter pricing usage at rates.
func NewMeter(rates Rates) *Meter {
	return &Meter{rates: rates}
}

// Add records usage.
func (m *Meter) Add(usage model.TokenUsage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.usage.Add(usage)
}

// Usage returns the accumulated usage.
func (m *Meter) Usage() model.TokenUsage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.usage
}

// Cost returns the price of the accumulated usage.
func (m *Meter) Cost() decimal.Decimal {
	return m.rates.Price(m.Usage())
}

// Estimate is the expected size and price of a run.
type Estimate struct {
	Cost     decimal.Decimal
	Usage    model.TokenUsage
	Batches  int
	Accounts int
}

// Estimator plans batches without sending them.
type Estimator struct {
	planner          *batch.Planner
	builder          *prompt.Builder
	rates            Rates
	outputPerAccount int
}

// NewEstimator creates an estimator. outputPerAccount is the number of
// completion tokens assumed for each account answer.
func NewEstimator(planner *batch.Planner, builder *prompt.Builder, rates Rates, outputPerAccount int) *Estimator {
	return &Estimator{planner: planner, builder: builder, rates: rates, outputPerAccount: outputPerAccount}
}

// Estimate prices a single round over records, assuming every account is
// answered the first time.
func (e *Estimator) Estimate(in prompt.Input, records []model.AccountRecord) (Estimate, error) {
	est := Estimate{Accounts: len(records)}
	if len(records) == 0 {
		est.Cost = decimal.Zero
		return est, nil
	}

	in.Lines = nil
	base, err := e.builder.Base(in)
	if err != nil {
		return Estimate{}, fmt.Errorf("failed to render %s prompt: %w", in.Class, err)
	}

	lines := make([]string, len(records))
	for i, r := range records {
		lines[i] = r.Line()
	}

	for _, plan := range e.planner.Partition(base, lines) {
		est.Batches++
		est.Usage.PromptTokens += plan.Tokens
	}
	est.Usage.CompletionTokens = len(records) * e.outputPerAccount
	est.Cost = e.rates.Price(est.Usage)

	return est, nil
}

// Sum adds estimates together.
func Sum(estimates ...Estimate) Estimate {
	total := Estimate{Cost: decimal.Zero}
	for _, e := range estimates {
		total.Cost = total.Cost.Add(e.Cost)
		total.Usage.Add(e.Usage)
		total.Batches += e.Batches
		total.Accounts += e.Accounts
	}
	return total
}
