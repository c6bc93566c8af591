package engine

import (
	"context"
	"time"

	"github.com/Veraticus/transco/internal/model"
	"github.com/Veraticus/transco/internal/prompt"
)

// PromptBuilder renders batch prompts. *prompt.Builder implements it.
type PromptBuilder interface {
	Base(in prompt.Input) (string, error)
	Build(in prompt.Input) (string, error)
}

// Sleeper waits between rounds; it must return early when ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Progress receives per-class progress updates. Implementations must be
// safe for concurrent use since classes run in parallel.
type Progress interface {
	Start(class model.AccountClass, total int)
	Advance(class model.AccountClass, resolved int)
	Finish(class model.AccountClass, outcome *Outcome)
}

type nopProgress struct{}

func (nopProgress) Start(model.AccountClass, int)       {}
func (nopProgress) Advance(model.AccountClass, int)     {}
func (nopProgress) Finish(model.AccountClass, *Outcome) {}

// UsageRecorder observes token usage as each batch completes.
// *cost.Meter implements it.
type UsageRecorder interface {
	Add(usage model.TokenUsage)
}

type nopRecorder struct{}

func (nopRecorder) Add(model.TokenUsage) {}
