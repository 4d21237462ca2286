// Package gemini wraps the official google.golang.org/genai SDK behind the
// single generation call the engine needs.
package gemini

import (
	"context"
	"net/http"

	"github.com/rotisserie/eris"
	genai "google.golang.org/genai"
)

const defaultModel = "gemini-2.5-flash"

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

// WithHTTPClient overrides the http.Client used by the SDK.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *sdkClient) {
		c.http = hc
	}
}

// WithBaseURL overrides the API base URL (used by tests).
func WithBaseURL(url string) Option {
	return func(c *sdkClient) {
		c.baseURL = url
	}
}

type sdkClient struct {
	cli     *genai.Client
	model   string
	http    *http.Client
	baseURL string
}

// NewClient creates a Gemini API client.
func NewClient(ctx context.Context, apiKey string, opts ...Option) (Client, error) {
	c := &sdkClient{model: defaultModel}
	for _, o := range opts {
		o(c)
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if c.http != nil {
		cfg.HTTPClient = c.http
	}
	if c.baseURL != "" {
		cfg.HTTPOptions.BaseURL = c.baseURL
	}

	cli, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "gemini: create client")
	}
	c.cli = cli
	return c, nil
}

func (c *sdkClient) Model() string { return c.model }

// GenerateJSON sends the prompt and asks for an application/json response.
// The returned string is the raw model output, unparsed.
func (c *sdkClient) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	resp, err := c.cli.Models.GenerateContent(ctx, c.model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: prompt}}}},
		&genai.GenerateContentConfig{ResponseMIMEType: "application/json"},
	)
	if err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", eris.New("gemini: empty response")
	}
	return resp.Candidates[0].Content.Parts[0].Text, nil
}
