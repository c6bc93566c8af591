package llm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Veraticus/transco/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedClient returns its errors in order, then succeeds.
type scriptedClient struct {
	errs  []error
	calls int
	mu    sync.Mutex
}

func (s *scriptedClient) Submit(_ context.Context, prompt string) (Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++
	if s.calls <= len(s.errs) {
		return Response{}, s.errs[s.calls-1]
	}
	return Response{Content: "ok: " + prompt}, nil
}

func noSleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

func newTestRetryingClient(inner Client, attempts int) *RetryingClient {
	return NewRetryingClient(inner, Config{MaxRetries: attempts, RetryDelay: time.Second, RateLimit: 6000}, common.DiscardLogger()).
		WithSleep(noSleep)
}

func TestRetryingClientRetriesTransientErrors(t *testing.T) {
	inner := &scriptedClient{errs: []error{
		&TransientError{Err: errors.New("overloaded"), StatusCode: 503},
		&TransientError{Err: errors.New("timeout")},
	}}

	resp, err := newTestRetryingClient(inner, 3).Submit(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "ok: p", resp.Content)
	assert.Equal(t, 3, inner.calls)
}

func TestRetryingClientGivesUpAfterMaxAttempts(t *testing.T) {
	transient := &TransientError{Err: errors.New("overloaded"), StatusCode: 503}
	inner := &scriptedClient{errs: []error{transient, transient, transient, transient}}

	_, err := newTestRetryingClient(inner, 3).Submit(context.Background(), "p")
	require.Error(t, err)

	var fatal *FatalError
	require.ErrorAs(t, err, &fatal)
	assert.ErrorIs(t, err, common.ErrMaxRetries)
	assert.Equal(t, 3, inner.calls)
}

func TestRetryingClientDoesNotRetryFatalErrors(t *testing.T) {
	inner := &scriptedClient{errs: []error{errors.New("invalid api key")}}

	_, err := newTestRetryingClient(inner, 3).Submit(context.Background(), "p")

	var fatal *FatalError
	require.ErrorAs(t, err, &fatal)
	assert.NotErrorIs(t, err, common.ErrMaxRetries)
	assert.Equal(t, 1, inner.calls)
}

func TestRetryingClientUsesFixedDelay(t *testing.T) {
	transient := &TransientError{Err: errors.New("busy")}
	inner := &scriptedClient{errs: []error{transient, transient, transient}}

	var delays []time.Duration
	client := NewRetryingClient(inner, Config{MaxRetries: 4, RetryDelay: 2 * time.Second}, common.DiscardLogger()).
		WithSleep(func(_ context.Context, d time.Duration) error {
			delays = append(delays, d)
			return nil
		})

	_, err := client.Submit(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second, 2 * time.Second}, delays)
}

func TestRetryingClientWaitsLongerWhenThrottled(t *testing.T) {
	throttled := &TransientError{Err: fmt.Errorf("%w: slow down", common.ErrRateLimit), StatusCode: 429}
	busy := &TransientError{Err: errors.New("busy"), StatusCode: 503}
	inner := &scriptedClient{errs: []error{busy, throttled}}

	var delays []time.Duration
	client := NewRetryingClient(inner, Config{MaxRetries: 3, RetryDelay: 2 * time.Second}, common.DiscardLogger()).
		WithSleep(func(_ context.Context, d time.Duration) error {
			delays = append(delays, d)
			return nil
		})

	_, err := client.Submit(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{2 * time.Second, RateLimitDelay}, delays)
}

func TestRetryingClientStopsOnCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	inner := &scriptedClient{errs: []error{&TransientError{Err: context.Canceled}}}
	_, err := newTestRetryingClient(inner, 3).Submit(ctx, "p")

	var fatal *FatalError
	require.ErrorAs(t, err, &fatal)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClassifyError(t *testing.T) {
	assert.True(t, IsTransient(classifyError(context.DeadlineExceeded)))
	assert.False(t, IsTransient(classifyError(errors.New("boom"))))
	assert.NoError(t, classifyError(nil))
	assert.True(t, transientStatus(408))
	assert.True(t, transientStatus(409))
	assert.False(t, transientStatus(404))

	throttled := transientError(errors.New("slow down"), 429)
	assert.True(t, IsTransient(throttled))
	assert.ErrorIs(t, throttled, common.ErrRateLimit)
	assert.NotErrorIs(t, transientError(errors.New("down"), 503), common.ErrRateLimit)
}
