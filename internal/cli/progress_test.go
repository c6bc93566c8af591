package cli

import (
	"strings"
	"testing"

	"github.com/Veraticus/transco/internal/cost"
	"github.com/Veraticus/transco/internal/engine"
	"github.com/Veraticus/transco/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestProgressReporter(t *testing.T) {
	out := &syncBuffer{}
	meter := cost.NewMeter(cost.DefaultRates())
	p := NewProgressReporter(out, meter)

	p.Start(model.ClassBS, 3)
	p.Start(model.ClassPL, 2)

	meter.Add(model.TokenUsage{PromptTokens: 1000, CompletionTokens: 100})
	p.Advance(model.ClassBS, 2)
	p.Advance(model.ClassPL, 2)
	p.Advance(model.ClassBS, 1)

	assert.Equal(t, 3, p.Resolved(model.ClassBS))
	assert.Equal(t, 2, p.Resolved(model.ClassPL))

	p.Finish(model.ClassBS, &engine.Outcome{Class: model.ClassBS, Total: 3})
	p.Finish(model.ClassPL, &engine.Outcome{Class: model.ClassPL, Total: 2})

	rendered := out.String()
	assert.Contains(t, rendered, "Matching accounts")
	assert.Contains(t, rendered, "5/5")
	assert.Contains(t, rendered, "$0.0035")
}

func TestProgressReporterExpect(t *testing.T) {
	out := &syncBuffer{}
	p := NewProgressReporter(out, nil)
	p.Expect(4)

	// Sequential classes: the first finishing must not end the bar.
	p.Start(model.ClassBS, 2)
	p.Advance(model.ClassBS, 2)
	p.Finish(model.ClassBS, &engine.Outcome{Class: model.ClassBS})
	assert.NotContains(t, out.String(), "4/4")

	p.Start(model.ClassPL, 2)
	p.Advance(model.ClassPL, 1)
	p.Finish(model.ClassPL, &engine.Outcome{
		Class:      model.ClassPL,
		Unresolved: []model.AccountRecord{{Number: "1"}},
	})

	rendered := out.String()
	assert.Contains(t, rendered, "3/4")
	assert.True(t, strings.HasSuffix(rendered, "\n"), "a trailing newline follows an unfinished bar")
}

func TestProgressReporterWithoutStart(t *testing.T) {
	p := NewProgressReporter(&syncBuffer{}, nil)
	p.Advance(model.ClassBS, 1)
	p.Finish(model.ClassBS, nil)
	assert.Equal(t, 1, p.Resolved(model.ClassBS))
}
