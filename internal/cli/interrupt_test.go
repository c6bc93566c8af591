package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syncBuffer provides thread-safe access to a bytes.Buffer.
type syncBuffer struct {
	buf bytes.Buffer
	mu  sync.Mutex
}

func (s *syncBuffer) Write(p []byte) (n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

// fakeSignals captures the channel passed to notify so tests can deliver
// signals without touching the process.
type fakeSignals struct {
	ch      chan<- os.Signal
	stopped bool
	mu      sync.Mutex
}

func (f *fakeSignals) install(h *InterruptHandler) {
	h.notify = func(c chan<- os.Signal, _ ...os.Signal) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.ch = c
	}
	h.stop = func(chan<- os.Signal) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.stopped = true
	}
}

func (f *fakeSignals) send() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ch <- os.Interrupt
}

func TestNewInterruptHandler(t *testing.T) {
	tests := []struct {
		writer io.Writer
		name   string
	}{
		{name: "with custom writer", writer: &bytes.Buffer{}},
		{name: "with nil writer", writer: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewInterruptHandler(tt.writer)
			assert.NotNil(t, handler.writer)
			assert.False(t, handler.WasInterrupted())
		})
	}
}

func TestHandleInterrupts(t *testing.T) {
	output := &syncBuffer{}
	handler := NewInterruptHandler(output)
	sigs := &fakeSignals{}
	sigs.install(handler)

	ctx, release := handler.HandleInterrupts(context.Background(), "out.xlsx")
	defer release()

	select {
	case <-ctx.Done():
		t.Fatal("context should not be canceled initially")
	default:
	}

	sigs.send()

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context was not canceled after interrupt")
	}

	require.Eventually(t, handler.WasInterrupted, time.Second, 5*time.Millisecond)
	out := output.String()
	assert.Equal(t, 1, strings.Count(out, "Matching interrupted!"))
	assert.Contains(t, out, "written to out.xlsx")
}

func TestHandleInterruptsRelease(t *testing.T) {
	output := &syncBuffer{}
	handler := NewInterruptHandler(output)
	sigs := &fakeSignals{}
	sigs.install(handler)

	ctx, release := handler.HandleInterrupts(context.Background(), "")
	release()
	release() // idempotent

	<-ctx.Done()
	assert.False(t, handler.WasInterrupted())
	assert.Empty(t, output.String())
	sigs.mu.Lock()
	assert.True(t, sigs.stopped)
	sigs.mu.Unlock()
}

func TestShowInterruptMessage(t *testing.T) {
	tests := []struct {
		name        string
		partialPath string
		expected    []string
		notExpected []string
	}{
		{
			name:        "with output path",
			partialPath: "mapping.csv",
			expected:    []string{"Matching interrupted!", "written to mapping.csv", "reported as unresolved"},
		},
		{
			name:        "without output path",
			expected:    []string{"Matching interrupted!", "reported as unresolved"},
			notExpected: []string{"written to"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var output bytes.Buffer
			handler := &InterruptHandler{writer: &output, partialPath: tt.partialPath}

			handler.showInterruptMessage()

			out := output.String()
			for _, expected := range tt.expected {
				assert.Contains(t, out, expected)
			}
			for _, notExpected := range tt.notExpected {
				assert.NotContains(t, out, notExpected)
			}
		})
	}
}
