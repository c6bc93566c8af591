package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/Veraticus/transco/internal/cost"
	"github.com/Veraticus/transco/internal/engine"
	"github.com/Veraticus/transco/internal/model"
	"github.com/schollz/progressbar/v3"
)

// ProgressReporter drives a single progress bar shared by all classes and
// shows the running cost next to it.
type ProgressReporter struct {
	writer   io.Writer
	bar      *progressbar.ProgressBar
	meter    *cost.Meter
	started  map[model.AccountClass]int
	resolved map[model.AccountClass]int
	finished int
	total    int
	expected bool
	mu       sync.Mutex
}

var _ engine.Progress = (*ProgressReporter)(nil)

// NewProgressReporter creates a reporter writing to w. meter may be nil.
func NewProgressReporter(w io.Writer, meter *cost.Meter) *ProgressReporter {
	if w == nil {
		w = os.Stderr
	}
	return &ProgressReporter{
		writer:   w,
		meter:    meter,
		started:  make(map[model.AccountClass]int),
		resolved: make(map[model.AccountClass]int),
	}
}

// Expect fixes the bar size up front so a class finishing early does not
// complete the bar before the others start.
func (p *ProgressReporter) Expect(total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.total = total
	p.expected = true
	if p.bar == nil {
		p.initProgressBar()
	}
}

// Start implements engine.Progress.
func (p *ProgressReporter) Start(class model.AccountClass, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.started[class] = total
	if p.expected {
		return
	}
	p.total += total
	if p.bar == nil {
		p.initProgressBar()
		return
	}
	p.bar.ChangeMax(p.total)
}

// Advance implements engine.Progress.
func (p *ProgressReporter) Advance(class model.AccountClass, resolved int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.resolved[class] += resolved
	if p.bar == nil {
		return
	}
	p.bar.Describe(p.description())
	if err := p.bar.Add(resolved); err != nil {
		slog.Warn("Failed to update progress bar", "error", err)
	}
}

// Finish implements engine.Progress.
func (p *ProgressReporter) Finish(class model.AccountClass, outcome *engine.Outcome) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.finished++
	if outcome != nil && !outcome.Complete() {
		slog.Debug("Class finished with gaps", "class", class, "unresolved", len(outcome.Unresolved))
	}
	if p.bar == nil || p.finished < len(p.started) || p.startedTotal() < p.total {
		return
	}
	// A complete bar already printed its newline.
	if !p.bar.IsFinished() {
		if _, err := fmt.Fprintln(p.writer); err != nil {
			slog.Warn("Failed to write newline after progress bar", "error", err)
		}
	}
}

// Resolved returns how many accounts of class have been reported resolved.
func (p *ProgressReporter) Resolved(class model.AccountClass) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.resolved[class]
}

func (p *ProgressReporter) startedTotal() int {
	n := 0
	for _, total := range p.started {
		n += total
	}
	return n
}

func (p *ProgressReporter) description() string {
	if p.meter == nil {
		return "[cyan][bold]Matching accounts...[reset]"
	}
	return fmt.Sprintf("[cyan][bold]Matching accounts[reset] (%s)", FormatCost(p.meter.Cost()))
}

func (p *ProgressReporter) initProgressBar() {
	p.bar = progressbar.NewOptions(p.total,
		progressbar.OptionSetWriter(p.writer),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription(p.description()),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			if _, err := fmt.Fprintln(p.writer); err != nil {
				slog.Warn("Failed to write newline after progress bar", "error", err)
			}
		}),
	)
}
