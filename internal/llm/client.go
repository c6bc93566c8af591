package llm

import (
	"context"
	"time"

	"github.com/Veraticus/transco/internal/model"
)

// Client submits one prompt and returns the raw answer.
type Client interface {
	Submit(ctx context.Context, prompt string) (Response, error)
}

// Response is the raw answer of the model to one prompt.
type Response struct {
	Content string
	Model   string
	Usage   model.TokenUsage
}

// Config configures a provider client.
type Config struct {
	Provider    string
	APIKey      string
	Model       string
	BaseURL     string
	System      string
	Mode        model.ResponseMode
	MaxRetries  int
	RetryDelay  time.Duration
	Timeout     time.Duration
	RateLimit   int // requests per minute
	Temperature float64
	MaxTokens   int
}

// Provider names.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// DefaultTemperature is the configured default; a zero Temperature is sent as-is.
const DefaultTemperature = 0.2

// Defaults applied when a Config field is zero.
const (
	DefaultMaxTokens = 16000
	DefaultTimeout   = 5 * time.Minute
)

func (c Config) withDefaults() Config {
	if c.MaxTokens == 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Mode == "" {
		c.Mode = model.ModeSchema
	}
	return c
}
