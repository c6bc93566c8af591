package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/Veraticus/transco/internal/model"
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// DefaultAnthropicModel is used when no model is configured.
const DefaultAnthropicModel = "claude-sonnet-4-5"

// anthropicClient implements Client for the Anthropic messages API.
// Structured output is requested through the prompt's format instructions.
type anthropicClient struct {
	client      anthropic.Client
	model       string
	system      string
	temperature float64
	maxTokens   int64
}

// newAnthropicClient creates a new Anthropic API client. SDK retries are
// disabled; RetryingClient owns the retry policy.
func newAnthropicClient(cfg Config) (*anthropicClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Anthropic API key is required")
	}
	cfg = cfg.withDefaults()

	modelName := cfg.Model
	if modelName == "" {
		modelName = DefaultAnthropicModel
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
		option.WithRequestTimeout(cfg.Timeout),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &anthropicClient{
		client:      anthropic.NewClient(opts...),
		model:       modelName,
		system:      cfg.System,
		temperature: cfg.Temperature,
		maxTokens:   int64(cfg.MaxTokens),
	}, nil
}

// Submit sends prompt as a single user message.
func (c *anthropicClient) Submit(ctx context.Context, prompt string) (Response, error) {
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   c.maxTokens,
		Temperature: anthropic.Float(c.temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if c.system != "" {
		params.System = []anthropic.TextBlockParam{{Text: c.system}}
	}

	message, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return Response{}, classifyError(err)
	}

	var content strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}
	if content.Len() == 0 {
		return Response{}, fmt.Errorf("%w: no text content in Anthropic response", ErrMalformedResponse)
	}

	return Response{
		Content: content.String(),
		Model:   string(message.Model),
		Usage: model.TokenUsage{
			PromptTokens:     int(message.Usage.InputTokens),
			CompletionTokens: int(message.Usage.OutputTokens),
		},
	}, nil
}
