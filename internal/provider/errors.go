package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/feasai/viability-engine/internal/model"
	"github.com/feasai/viability-engine/internal/resilience"
)

// ErrorKind classifies a provider failure for retry/fallback decisions.
type ErrorKind string

const (
	// KindTransport covers network failures and 5xx backend errors. Retried.
	KindTransport ErrorKind = "transport"
	// KindTimeout is a per-attempt deadline expiry. Retried.
	KindTimeout ErrorKind = "timeout"
	// KindRateLimit is a 429 or quota rejection. Retried.
	KindRateLimit ErrorKind = "rate_limit"
	// KindAuth is a credential rejection. Never retried, immediate fallback.
	KindAuth ErrorKind = "auth"
	// KindBadRequest is a malformed-request rejection by the backend.
	// Never retried, immediate fallback.
	KindBadRequest ErrorKind = "bad_request"
)

// Error is the single failure type adapters return. It wraps the backend
// error so logs keep the original message while the selector only inspects
// the kind.
type Error struct {
	Provider model.ProviderKind
	Kind     ErrorKind
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Transient reports whether the failure is safe to retry against the same
// provider.
func (e *Error) Transient() bool {
	switch e.Kind {
	case KindTransport, KindTimeout, KindRateLimit:
		return true
	default:
		return false
	}
}

// classifyStatus maps an HTTP status code to an ErrorKind. Zero means the
// backend error carried no status.
func classifyStatus(status int) (ErrorKind, bool) {
	switch {
	case status == 0:
		return "", false
	case status == 401 || status == 403:
		return KindAuth, true
	case status == 429:
		return KindRateLimit, true
	case status == 408 || status == 504:
		return KindTimeout, true
	case status >= 400 && status < 500:
		return KindBadRequest, true
	case resilience.IsTransientHTTPStatus(status):
		return KindTransport, true
	default:
		return KindTransport, true
	}
}

// wrapError builds the adapter error for a backend failure. status is the
// HTTP status extracted from the backend SDK error, or 0 when unknown.
func wrapError(p model.ProviderKind, err error, status int) *Error {
	if kind, ok := classifyStatus(status); ok {
		return &Error{Provider: p, Kind: kind, Err: err}
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &Error{Provider: p, Kind: KindTimeout, Err: err}
	case errors.Is(err, context.Canceled):
		return &Error{Provider: p, Kind: KindTransport, Err: err}
	case resilience.IsTransient(err):
		return &Error{Provider: p, Kind: KindTransport, Err: err}
	default:
		// Unknown failures count as transport so one retry and fallback
		// still happen rather than aborting the whole analysis.
		return &Error{Provider: p, Kind: KindTransport, Err: err}
	}
}
