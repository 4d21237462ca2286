package engine

import (
	"fmt"
	"strings"

	"github.com/feasai/viability-engine/internal/model"
	"github.com/feasai/viability-engine/internal/provider"
)

// ConfigurationError is bad or missing setup: empty factor set, too-short
// description, no available provider. Fatal, never retried.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "engine: configuration: " + e.Reason
}

// ValidationError is malformed model output that failed schema validation.
// Reported upward so the selector falls back to the next provider; never
// retried against the provider that produced it.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "engine: invalid model output: " + e.Reason
}

// ProviderFailure is one entry in the exhaustion diagnostic trail.
type ProviderFailure struct {
	Provider model.ProviderKind `json:"provider"`
	Attempts int                `json:"attempts"`
	Kind     string             `json:"kind"`
	Message  string             `json:"message"`
}

// failureKindValidation marks trail entries caused by schema validation, as
// opposed to the provider error kinds.
const failureKindValidation = "validation"

// AllProvidersExhaustedError is the terminal failure after every candidate
// provider was tried. The trail holds one entry per candidate, in the order
// they were attempted, with enough structure for a user-facing message.
type AllProvidersExhaustedError struct {
	Trail []ProviderFailure
}

func (e *AllProvidersExhaustedError) Error() string {
	parts := make([]string, len(e.Trail))
	for i, f := range e.Trail {
		parts[i] = fmt.Sprintf("%s (%s after %d attempt(s))", f.Provider, f.Kind, f.Attempts)
	}
	return "engine: all providers exhausted: " + strings.Join(parts, "; ")
}

// RateLimited reports whether every candidate failed on rate limiting, so
// callers can surface a 429 instead of a generic upstream failure.
func (e *AllProvidersExhaustedError) RateLimited() bool {
	if len(e.Trail) == 0 {
		return false
	}
	for _, f := range e.Trail {
		if f.Kind != string(provider.KindRateLimit) {
			return false
		}
	}
	return true
}
