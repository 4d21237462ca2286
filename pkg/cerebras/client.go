// Package cerebras talks to the Cerebras inference cloud through its
// OpenAI-compatible chat completions API.
package cerebras

import (
	"context"
	"net/http"

	"github.com/rotisserie/eris"
	openai "github.com/sashabaranov/go-openai"
)

const (
	defaultBaseURL = "https://api.cerebras.ai/v1"
	defaultModel   = "qwen-3-235b-a22b-instruct-2507"

	defaultMaxTokens   = 20000
	defaultTemperature = 0.7
	defaultTopP        = 0.8
)

// Client generates a JSON completion for a single prompt.
type Client interface {
	GenerateJSON(ctx context.Context, prompt string) (string, error)
	Model() string
}

// Option configures the client.
type Option func(*apiClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *apiClient) {
		if url != "" {
			c.baseURL = url
		}
	}
}

// WithModel overrides the default model.
func WithModel(model string) Option {
	return func(c *apiClient) {
		if model != "" {
			c.model = model
		}
	}
}

// WithMaxTokens overrides the completion token budget.
func WithMaxTokens(n int) Option {
	return func(c *apiClient) {
		if n > 0 {
			c.maxTokens = n
		}
	}
}

// WithSampling overrides temperature and top_p.
func WithSampling(temperature, topP float32) Option {
	return func(c *apiClient) {
		c.temperature = temperature
		c.topP = topP
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *apiClient) {
		c.http = hc
	}
}

type apiClient struct {
	cli         *openai.Client
	apiKey      string
	baseURL     string
	model       string
	maxTokens   int
	temperature float32
	topP        float32
	http        *http.Client
}

// NewClient creates a Cerebras API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &apiClient{
		apiKey:      apiKey,
		baseURL:     defaultBaseURL,
		model:       defaultModel,
		maxTokens:   defaultMaxTokens,
		temperature: defaultTemperature,
		topP:        defaultTopP,
	}
	for _, o := range opts {
		o(c)
	}

	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = c.baseURL
	if c.http != nil {
		cfg.HTTPClient = c.http
	}
	c.cli = openai.NewClientWithConfig(cfg)
	return c
}

func (c *apiClient) Model() string { return c.model }

// GenerateJSON sends the prompt as a single user message with the JSON object
// response format and returns the raw completion text.
func (c *apiClient) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	resp, err := c.cli.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		TopP:        c.topP,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", eris.New("cerebras: empty response")
	}
	return resp.Choices[0].Message.Content, nil
}
