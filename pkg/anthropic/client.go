// Package anthropic wraps the official anthropic-sdk-go client behind the
// single generation call the engine needs.
package anthropic

import (
	"context"
	"net/http"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
)

const (
	defaultModel     = "claude-sonnet-4-5"
	defaultMaxTokens = 8192
)

// systemText pins the response contract for every analysis call.
const systemText = "You are a pragmatic viability analyst. Respond with only a valid JSON object matching the requested schema. No code fences, no prose outside the object."

// Client generates a JSON completion for a single prompt.
type Client interface {
	GenerateJSON(ctx context.Context, prompt string) (string, error)
	Model() string
}

// Option configures the client.
type Option func(*sdkClient)

// WithModel overrides the default model.
func WithModel(model string) Option {
	return func(c *sdkClient) {
		if model != "" {
			c.model = model
		}
	}
}

// WithMaxTokens overrides the completion token budget.
func WithMaxTokens(n int64) Option {
	return func(c *sdkClient) {
		if n > 0 {
			c.maxTokens = n
		}
	}
}

// WithBaseURL overrides the API base URL (used by tests).
func WithBaseURL(url string) Option {
	return func(c *sdkClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *sdkClient) {
		c.http = hc
	}
}

type sdkClient struct {
	client    sdk.Client
	model     string
	maxTokens int64
	baseURL   string
	http      *http.Client
}

// NewClient creates an Anthropic client backed by the official SDK.
func NewClient(apiKey string, opts ...Option) Client {
	c := &sdkClient{
		model:     defaultModel,
		maxTokens: defaultMaxTokens,
	}
	for _, o := range opts {
		o(c)
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if c.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(c.baseURL))
	}
	if c.http != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(c.http))
	}
	c.client = sdk.NewClient(reqOpts...)
	return c
}

func (c *sdkClient) Model() string { return c.model }

// GenerateJSON sends the prompt as a single user message and returns the
// concatenated text blocks of the response.
func (c *sdkClient) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	msg, err := c.client.Messages.New(ctx, sdk.MessageNewParams{
		Model:     sdk.Model(c.model),
		MaxTokens: c.maxTokens,
		System:    []sdk.TextBlockParam{{Text: systemText}},
		Messages:  []sdk.MessageParam{sdk.NewUserMessage(sdk.NewTextBlock(prompt))},
	})
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if b.Len() == 0 {
		return "", eris.New("anthropic: empty response")
	}
	return b.String(), nil
}
