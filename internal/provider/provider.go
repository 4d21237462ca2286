// Package provider defines the uniform adapter interface over the LLM
// backends and the typed failure kinds the selector's retry and fallback
// policies act on.
package provider

import (
	"context"
	"time"

	"github.com/feasai/viability-engine/internal/model"
)

// RawResponse is the unparsed outcome of one successful provider invocation.
// Ephemeral: only provider and model survive into the stored record.
type RawResponse struct {
	Provider model.ProviderKind
	Model    string
	Text     string
	Latency  time.Duration
}

// Adapter submits a payload to one LLM backend. Implementations never leak
// backend SDK error types: every failure resolves to a *Error carrying an
// ErrorKind.
type Adapter interface {
	Kind() model.ProviderKind
	Model() string
	Invoke(ctx context.Context, prompt string) (*RawResponse, error)
}
