// Package batch partitions pending account lines into LLM-sized batches.
package batch

import "log/slog"

// Delimiter separates account lines inside a prompt.
const Delimiter = "\n---\n"

// Limits bounds a single batch. A zero value disables that ceiling.
type Limits struct {
	MaxRows   int
	MaxTokens int
}

// Plan is the result of planning one batch.
type Plan struct {
	Included  []string // lines sent in this batch, in input order
	Remaining []string // lines left for the next batch, in input order
	Tokens    int      // estimated prompt tokens including the base prompt
}

// Planner greedily fills a batch from the front of the pending lines.
type Planner struct {
	tokenizer Tokenizer
	logger    *slog.Logger
	limits    Limits
}

// NewPlanner creates a planner. A nil logger uses slog.Default().
func NewPlanner(tokenizer Tokenizer, limits Limits, logger *slog.Logger) *Planner {
	if tokenizer == nil {
		tokenizer = ApproxCounter{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Planner{tokenizer: tokenizer, limits: limits, logger: logger}
}

// Limits returns the configured ceilings.
func (p *Planner) Limits() Limits {
	return p.limits
}

// Plan takes lines from the front of pending until the next one would
// exceed a ceiling. Accumulation stops at the first such line and every
// later line is left in Remaining, so input order is never rearranged.
// The first line is always included, even when it alone exceeds the token
// ceiling, so repeated planning over Remaining always terminates.
func (p *Planner) Plan(basePrompt string, pending []string) Plan {
	plan := Plan{Tokens: p.tokenizer.Count(basePrompt)}
	if len(pending) == 0 {
		return plan
	}

	cut := len(pending)
	for i, line := range pending {
		chunk := line + Delimiter
		cost := p.tokenizer.Count(chunk)

		if i > 0 && p.exceeds(i+1, plan.Tokens+cost) {
			cut = i
			break
		}
		if i == 0 && p.limits.MaxTokens > 0 && plan.Tokens+cost > p.limits.MaxTokens {
			p.logger.Warn("Single account line exceeds token ceiling, sending it alone",
				"tokens", plan.Tokens+cost,
				"max_tokens", p.limits.MaxTokens)
		}

		plan.Tokens += cost
	}

	plan.Included = pending[:cut:cut]
	plan.Remaining = pending[cut:]

	return plan
}

// Partition plans batches until nothing remains. It is used for estimates;
// the reconciliation loop plans one batch at a time so it can interleave
// submission and merging.
func (p *Planner) Partition(basePrompt string, pending []string) []Plan {
	var plans []Plan
	for len(pending) > 0 {
		plan := p.Plan(basePrompt, pending)
		plans = append(plans, plan)
		pending = plan.Remaining
	}
	return plans
}

func (p *Planner) exceeds(rows, tokens int) bool {
	if p.limits.MaxRows > 0 && rows > p.limits.MaxRows {
		return true
	}
	return p.limits.MaxTokens > 0 && tokens > p.limits.MaxTokens
}
