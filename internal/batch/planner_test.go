package batch

import (
	"fmt"
	"strings"
	"testing"

	"github.com/Veraticus/transco/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runeCounter charges one token per rune so tests can reason about budgets.
type runeCounter struct{}

func (runeCounter) Count(text string) int { return len([]rune(text)) }

func lines(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%d,Account %d,BS", 100+i, i)
	}
	return out
}

func newPlanner(limits Limits) *Planner {
	return NewPlanner(runeCounter{}, limits, common.DiscardLogger())
}

func TestPlanEmptyInput(t *testing.T) {
	plan := newPlanner(Limits{MaxRows: 5}).Plan("base", nil)

	assert.Empty(t, plan.Included)
	assert.Empty(t, plan.Remaining)
	assert.Equal(t, 4, plan.Tokens)
}

func TestPlanRowCeiling(t *testing.T) {
	pending := lines(7)
	plan := newPlanner(Limits{MaxRows: 3}).Plan("", pending)

	assert.Equal(t, pending[:3], plan.Included)
	assert.Equal(t, pending[3:], plan.Remaining)
	assert.Equal(t, runeCounter{}.Count(strings.Join(pending[:3], Delimiter)+Delimiter), plan.Tokens)
}

func TestPlanTokenCeilingIsSeededByBasePrompt(t *testing.T) {
	// each line plus delimiter costs 5 + 5 = 10 tokens
	pending := []string{"aaaaa", "bbbbb", "ccccc"}

	plan := newPlanner(Limits{MaxTokens: 25}).Plan("", pending)
	assert.Equal(t, []string{"aaaaa", "bbbbb"}, plan.Included)
	assert.Equal(t, 20, plan.Tokens)

	plan = newPlanner(Limits{MaxTokens: 25}).Plan("0123456789", pending)
	assert.Equal(t, []string{"aaaaa"}, plan.Included)
	assert.Equal(t, []string{"bbbbb", "ccccc"}, plan.Remaining)
	assert.Equal(t, 20, plan.Tokens)
}

func TestPlanStopsAtFirstOverflow(t *testing.T) {
	// "b" would fit after the long line is skipped, but planning never looks ahead.
	pending := []string{"aaaaa", strings.Repeat("x", 50), "b"}
	plan := newPlanner(Limits{MaxTokens: 30}).Plan("", pending)

	assert.Equal(t, []string{"aaaaa"}, plan.Included)
	assert.Equal(t, pending[1:], plan.Remaining)
}

func TestPlanAlwaysIncludesFirstLine(t *testing.T) {
	pending := []string{strings.Repeat("x", 100), "a"}
	plan := newPlanner(Limits{MaxTokens: 10}).Plan("base", pending)

	assert.Equal(t, pending[:1], plan.Included)
	assert.Equal(t, pending[1:], plan.Remaining)
	assert.Greater(t, plan.Tokens, 10)
}

func TestPlanNoCeilings(t *testing.T) {
	pending := lines(40)
	plan := newPlanner(Limits{}).Plan("base", pending)

	assert.Equal(t, pending, plan.Included)
	assert.Empty(t, plan.Remaining)
}

func TestPartitionCoversInputInOrder(t *testing.T) {
	tests := []struct {
		name   string
		limits Limits
		n      int
	}{
		{name: "rows", limits: Limits{MaxRows: 4}, n: 17},
		{name: "tokens", limits: Limits{MaxTokens: 60}, n: 23},
		{name: "both", limits: Limits{MaxRows: 3, MaxTokens: 45}, n: 11},
		{name: "tiny token budget", limits: Limits{MaxTokens: 1}, n: 5},
		{name: "single line", limits: Limits{MaxRows: 1}, n: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pending := lines(tt.n)
			plans := newPlanner(tt.limits).Partition("prompt:", pending)

			var joined []string
			for _, plan := range plans {
				require.NotEmpty(t, plan.Included, "every batch makes progress")
				if tt.limits.MaxRows > 0 {
					assert.LessOrEqual(t, len(plan.Included), tt.limits.MaxRows)
				}
				joined = append(joined, plan.Included...)
			}
			assert.Equal(t, pending, joined)
			assert.LessOrEqual(t, len(plans), tt.n)
		})
	}
}

func TestPartitionEmpty(t *testing.T) {
	assert.Empty(t, newPlanner(Limits{MaxRows: 2}).Partition("p", nil))
}

func TestApproxCounter(t *testing.T) {
	assert.Equal(t, 0, ApproxCounter{}.Count(""))
	assert.Equal(t, 1, ApproxCounter{}.Count("abc"))
	assert.Equal(t, 2, ApproxCounter{}.Count("abcde"))
	assert.Equal(t, 3, ApproxCounter{RunesPerToken: 1}.Count("été"))
}
