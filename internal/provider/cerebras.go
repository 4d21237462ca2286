package provider

import (
	"context"
	"errors"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/feasai/viability-engine/internal/model"
	"github.com/feasai/viability-engine/pkg/cerebras"
)

// CerebrasAdapter drives the Cerebras inference backend.
type CerebrasAdapter struct {
	client  cerebras.Client
	timeout time.Duration
	limiter *rate.Limiter
}

// NewCerebras wraps a Cerebras client with per-attempt timeout and
// client-side rate limiting.
func NewCerebras(client cerebras.Client, timeout time.Duration, rps float64) *CerebrasAdapter {
	return &CerebrasAdapter{
		client:  client,
		timeout: timeout,
		limiter: newLimiter(rps),
	}
}

func (a *CerebrasAdapter) Kind() model.ProviderKind { return model.ProviderCerebras }
func (a *CerebrasAdapter) Model() string            { return a.client.Model() }

func (a *CerebrasAdapter) Invoke(ctx context.Context, prompt string) (*RawResponse, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, wrapError(model.ProviderCerebras, err, 0)
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	start := time.Now()
	text, err := a.client.GenerateJSON(ctx, prompt)
	if err != nil {
		return nil, wrapError(model.ProviderCerebras, err, openaiStatus(err))
	}

	return &RawResponse{
		Provider: model.ProviderCerebras,
		Model:    a.client.Model(),
		Text:     text,
		Latency:  time.Since(start),
	}, nil
}

// openaiStatus extracts the HTTP status from a go-openai error, or 0.
func openaiStatus(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}
