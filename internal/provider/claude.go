package provider

import (
	"context"
	"errors"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"golang.org/x/time/rate"

	"github.com/feasai/viability-engine/internal/model"
	"github.com/feasai/viability-engine/pkg/anthropic"
)

// ClaudeAdapter drives the Anthropic Claude backend.
type ClaudeAdapter struct {
	client  anthropic.Client
	timeout time.Duration
	limiter *rate.Limiter
}

// NewClaude wraps an Anthropic client with per-attempt timeout and
// client-side rate limiting.
func NewClaude(client anthropic.Client, timeout time.Duration, rps float64) *ClaudeAdapter {
	return &ClaudeAdapter{
		client:  client,
		timeout: timeout,
		limiter: newLimiter(rps),
	}
}

func (a *ClaudeAdapter) Kind() model.ProviderKind { return model.ProviderClaude }
func (a *ClaudeAdapter) Model() string            { return a.client.Model() }

func (a *ClaudeAdapter) Invoke(ctx context.Context, prompt string) (*RawResponse, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, wrapError(model.ProviderClaude, err, 0)
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	start := time.Now()
	text, err := a.client.GenerateJSON(ctx, prompt)
	if err != nil {
		return nil, wrapError(model.ProviderClaude, err, anthropicStatus(err))
	}

	return &RawResponse{
		Provider: model.ProviderClaude,
		Model:    a.client.Model(),
		Text:     text,
		Latency:  time.Since(start),
	}, nil
}

// anthropicStatus extracts the HTTP status from an anthropic-sdk-go error, or 0.
func anthropicStatus(err error) int {
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
