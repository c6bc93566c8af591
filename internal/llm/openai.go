package llm

import (
	"context"
	"fmt"
	"math"
	"net/http"

	"github.com/Veraticus/transco/internal/model"
	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
)

// SchemaName names the structured response format sent in schema mode.
const SchemaName = "account_matching_response"

// DefaultOpenAIModel is used when no model is configured.
const DefaultOpenAIModel = "gpt-4o"

// chatCompleter is the subset of *openai.Client used here.
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

var _ chatCompleter = (*openai.Client)(nil)

// openAIClient implements Client for the OpenAI chat completions API.
type openAIClient struct {
	api         chatCompleter
	model       string
	system      string
	mode        model.ResponseMode
	temperature float32
	maxTokens   int
}

// newOpenAIClient creates a new OpenAI API client.
func newOpenAIClient(cfg Config) (*openAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	cfg = cfg.withDefaults()

	modelName := cfg.Model
	if modelName == "" {
		modelName = DefaultOpenAIModel
	}

	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}
	apiCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &openAIClient{
		api:         openai.NewClientWithConfig(apiCfg),
		model:       modelName,
		system:      cfg.System,
		mode:        cfg.Mode,
		temperature: openAITemperature(cfg.Temperature),
		maxTokens:   cfg.MaxTokens,
	}, nil
}

// openAITemperature keeps a zero temperature on the wire, since the request
// field is dropped by omitempty when it is exactly zero.
func openAITemperature(t float64) float32 {
	if t == 0 {
		return math.SmallestNonzeroFloat32
	}
	return float32(t)
}

// Submit sends prompt as a single user message.
func (c *openAIClient) Submit(ctx context.Context, prompt string) (Response, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if c.system != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: c.system,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})

	req := openai.ChatCompletionRequest{
		Model:               c.model,
		Messages:            messages,
		Temperature:         c.temperature,
		MaxCompletionTokens: c.maxTokens,
	}
	if c.mode == model.ModeSchema {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   SchemaName,
				Schema: matchingSchema(),
				Strict: true,
			},
		}
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return Response{}, classifyError(err)
	}
	if len(resp.Choices) == 0 {
		return Response{}, fmt.Errorf("%w: no completion choices returned", ErrMalformedResponse)
	}

	return Response{
		Content: resp.Choices[0].Message.Content,
		Model:   resp.Model,
		Usage: model.TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
		},
	}, nil
}

// matchingSchema describes {"final_answer": [MatchResult...]} from the
// shared field table.
func matchingSchema() *jsonschema.Definition {
	props := make(map[string]jsonschema.Definition, len(model.MatchFields))
	required := make([]string, 0, len(model.MatchFields))
	for _, f := range model.MatchFields {
		props[f.Key] = jsonschema.Definition{Type: jsonschema.String, Description: f.Description}
		required = append(required, f.Key)
	}

	return &jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			finalAnswerKey: {
				Type: jsonschema.Array,
				Items: &jsonschema.Definition{
					Type:                 jsonschema.Object,
					Properties:           props,
					Required:             required,
					AdditionalProperties: false,
				},
			},
		},
		Required:             []string{finalAnswerKey},
		AdditionalProperties: false,
	}
}
