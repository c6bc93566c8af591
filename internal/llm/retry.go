package llm

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Veraticus/transco/internal/common"
	"github.com/Veraticus/transco/internal/service"
)

// RetryingClient wraps a provider with rate limiting and a bounded,
// fixed-delay retry of transient failures. Throttled requests wait at least
// RateLimitDelay. Every error it returns is a
// *FatalError; re-submitting the batch later is up to the caller.
type RetryingClient struct {
	inner       Client
	limiter     *rateLimiter
	logger      *slog.Logger
	retryOpts   service.RetryOptions
	description string
}

// RateLimitDelay is the least a throttled request waits before its retry.
const RateLimitDelay = 20 * time.Second

// NewRetryingClient wraps inner using the retry and rate settings of cfg.
func NewRetryingClient(inner Client, cfg Config, logger *slog.Logger) *RetryingClient {
	if logger == nil {
		logger = slog.Default()
	}

	attempts := cfg.MaxRetries
	if attempts <= 0 {
		attempts = 3
	}

	return &RetryingClient{
		inner:   inner,
		limiter: newRateLimiter(cfg.RateLimit),
		logger:  logger,
		retryOpts: service.RetryOptions{
			MaxAttempts:  attempts,
			InitialDelay: cfg.RetryDelay,
			MaxDelay:     max(cfg.RetryDelay, RateLimitDelay),
			Multiplier:   1,
		},
		description: cfg.Provider + "/" + cfg.Model,
	}
}

// WithSleep replaces the wait between attempts, for tests.
func (c *RetryingClient) WithSleep(sleep func(ctx context.Context, d time.Duration) error) *RetryingClient {
	c.retryOpts.Sleep = sleep
	return c
}

// Submit implements Client.
func (c *RetryingClient) Submit(ctx context.Context, prompt string) (Response, error) {
	var resp Response

	err := common.WithRetry(ctx, func() error {
		if err := c.limiter.wait(ctx); err != nil {
			return &common.RetryableError{Err: err, Retryable: false}
		}

		r, err := c.inner.Submit(ctx, prompt)
		if err != nil {
			return &common.RetryableError{Err: err, Retryable: IsTransient(err)}
		}

		resp = r
		return nil
	}, c.retryOpts)

	if err != nil {
		c.logger.Warn("LLM request abandoned",
			"client", c.description,
			"transient", IsTransient(err),
			"max_retries_exceeded", errors.Is(err, common.ErrMaxRetries),
			"error", err)
		return Response{}, &FatalError{Err: err}
	}

	return resp, nil
}
