package provider

import (
	"context"
	"errors"
	"time"

	"golang.org/x/time/rate"
	genai "google.golang.org/genai"

	"github.com/feasai/viability-engine/internal/model"
	"github.com/feasai/viability-engine/pkg/gemini"
)

// GeminiAdapter drives the Google Gemini backend.
type GeminiAdapter struct {
	client  gemini.Client
	timeout time.Duration
	limiter *rate.Limiter
}

// NewGemini wraps a Gemini client with per-attempt timeout and client-side
// rate limiting.
func NewGemini(client gemini.Client, timeout time.Duration, rps float64) *GeminiAdapter {
	return &GeminiAdapter{
		client:  client,
		timeout: timeout,
		limiter: newLimiter(rps),
	}
}

func (a *GeminiAdapter) Kind() model.ProviderKind { return model.ProviderGemini }
func (a *GeminiAdapter) Model() string            { return a.client.Model() }

func (a *GeminiAdapter) Invoke(ctx context.Context, prompt string) (*RawResponse, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, wrapError(model.ProviderGemini, err, 0)
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	start := time.Now()
	text, err := a.client.GenerateJSON(ctx, prompt)
	if err != nil {
		return nil, wrapError(model.ProviderGemini, err, geminiStatus(err))
	}

	return &RawResponse{
		Provider: model.ProviderGemini,
		Model:    a.client.Model(),
		Text:     text,
		Latency:  time.Since(start),
	}, nil
}

// geminiStatus extracts the HTTP status from a genai SDK error, or 0.
func geminiStatus(err error) int {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return 0
}

// newLimiter builds the client-side limiter; non-positive rps disables it.
func newLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(rps), 1)
}
