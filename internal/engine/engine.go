// Package engine is the analysis core: it builds the deterministic prompt,
// selects providers with bounded retries and fallback, validates model
// output against the scoring schema, and aggregates the overall score.
package engine

import (
	"context"
	"errors"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/feasai/viability-engine/internal/model"
	"github.com/feasai/viability-engine/internal/prompt"
	"github.com/feasai/viability-engine/internal/provider"
	"github.com/feasai/viability-engine/internal/resilience"
	"github.com/feasai/viability-engine/internal/scoring"
)

const (
	defaultMaxAttempts       = 2
	defaultMinDescriptionLen = 10
)

// Config is the engine's immutable configuration, loaded once and passed in
// explicitly so behavior is fully determined by inputs.
type Config struct {
	// ProviderOrder is the system default preference order. Defaults to
	// model.KnownProviders.
	ProviderOrder []model.ProviderKind

	// DefaultFactors is applied when a request names no factors.
	DefaultFactors []model.FactorKind

	// Attempts bounds total invocations per provider (first try included).
	// Missing providers default to 2.
	Attempts map[model.ProviderKind]int

	// MinDescriptionLen rejects descriptions shorter than this after
	// trimming. Defaults to 10.
	MinDescriptionLen int

	// Backoff paces retries against the same provider.
	Backoff resilience.BackoffConfig

	// CacheSize enables the payload-keyed response cache when > 0.
	CacheSize int
}

// Engine runs one analysis end-to-end. Safe for concurrent use: all state
// is read-only after construction except the LRU cache, which locks
// internally.
type Engine struct {
	cfg      Config
	adapters map[model.ProviderKind]provider.Adapter
	agg      *scoring.Aggregator
	cache    *lru.Cache[string, model.AnalysisResult]
}

// New builds an engine over the available adapters. Adapters for providers
// without credentials are simply not passed in.
func New(cfg Config, agg *scoring.Aggregator, adapters ...provider.Adapter) (*Engine, error) {
	if len(cfg.ProviderOrder) == 0 {
		cfg.ProviderOrder = model.KnownProviders
	}
	if len(cfg.DefaultFactors) == 0 {
		cfg.DefaultFactors = model.DefaultFactors
	}
	if cfg.MinDescriptionLen <= 0 {
		cfg.MinDescriptionLen = defaultMinDescriptionLen
	}

	e := &Engine{
		cfg:      cfg,
		adapters: make(map[model.ProviderKind]provider.Adapter, len(adapters)),
		agg:      agg,
	}
	for _, a := range adapters {
		e.adapters[a.Kind()] = a
	}

	if cfg.CacheSize > 0 {
		cache, err := lru.New[string, model.AnalysisResult](cfg.CacheSize)
		if err != nil {
			return nil, eris.Wrap(err, "engine: create response cache")
		}
		e.cache = cache
	}

	return e, nil
}

// Available lists the providers the engine can reach, in preference order.
func (e *Engine) Available() []model.ProviderKind {
	var out []model.ProviderKind
	for _, k := range e.cfg.ProviderOrder {
		if _, ok := e.adapters[k]; ok {
			out = append(out, k)
		}
	}
	return out
}

// Analyze runs one AnalysisRequest to completion. It returns the validated
// result, or *ConfigurationError / *AllProvidersExhaustedError; transient
// and validation failures never reach the caller while any candidate
// provider can still succeed.
func (e *Engine) Analyze(ctx context.Context, req model.AnalysisRequest) (*model.AnalysisResult, error) {
	desc := strings.TrimSpace(req.Description)
	if len(desc) < e.cfg.MinDescriptionLen {
		return nil, &ConfigurationError{Reason: "project description too short"}
	}
	req.Description = desc

	if len(req.Factors) == 0 {
		req.Factors = e.cfg.DefaultFactors
	}
	if len(req.Factors) == 0 {
		return nil, &ConfigurationError{Reason: "no analysis factors requested"}
	}

	candidates := e.candidates(req.PreferredProvider)
	if len(candidates) == 0 {
		return nil, &ConfigurationError{Reason: "no provider available (missing credentials?)"}
	}

	payload, err := prompt.Build(req)
	if err != nil {
		return nil, &ConfigurationError{Reason: err.Error()}
	}

	if e.cache != nil {
		if cached, ok := e.cache.Get(payload.Hash()); ok {
			zap.L().Debug("engine: response cache hit", zap.String("user", req.User))
			cached.CreatedAt = time.Now().UTC()
			return &cached, nil
		}
	}

	var trail []ProviderFailure

	for _, kind := range candidates {
		adapter := e.adapters[kind]
		maxAttempts := e.maxAttempts(kind)

		var attempts int
		var lastKind, lastMsg string

	attemptLoop:
		for attempts = 1; attempts <= maxAttempts; attempts++ {
			if err := ctx.Err(); err != nil {
				return nil, eris.Wrap(err, "engine: analysis canceled")
			}
			if attempts > 1 {
				if err := e.pause(ctx, attempts-2); err != nil {
					return nil, eris.Wrap(err, "engine: analysis canceled")
				}
			}

			raw, err := adapter.Invoke(ctx, payload.Text)
			if err != nil {
				var pe *provider.Error
				if !errors.As(err, &pe) {
					pe = &provider.Error{Provider: kind, Kind: provider.KindTransport, Err: err}
				}
				lastKind, lastMsg = string(pe.Kind), pe.Err.Error()
				zap.L().Warn("engine: provider attempt failed",
					zap.String("provider", string(kind)),
					zap.Int("attempt", attempts),
					zap.String("kind", lastKind),
					zap.Error(pe.Err),
				)
				if pe.Transient() {
					continue attemptLoop
				}
				break attemptLoop
			}

			parsed, perr := Parse(raw.Text, req.Factors)
			if perr != nil {
				// Invalid content counts as a provider failure: fall back,
				// never retry the provider that produced it.
				lastKind, lastMsg = failureKindValidation, perr.Error()
				zap.L().Warn("engine: provider output failed validation",
					zap.String("provider", string(kind)),
					zap.Error(perr),
				)
				break attemptLoop
			}

			result := e.assemble(req, raw, parsed)
			if e.cache != nil {
				e.cache.Add(payload.Hash(), *result)
			}
			zap.L().Info("engine: analysis complete",
				zap.String("provider", string(kind)),
				zap.String("model", raw.Model),
				zap.Float64("overall_score", result.OverallScore),
				zap.Duration("latency", raw.Latency),
			)
			return result, nil
		}
		if attempts > maxAttempts {
			attempts = maxAttempts
		}

		trail = append(trail, ProviderFailure{
			Provider: kind,
			Attempts: attempts,
			Kind:     lastKind,
			Message:  lastMsg,
		})
	}

	return nil, &AllProvidersExhaustedError{Trail: trail}
}

// candidates orders available providers: caller preference first, then the
// system default order, deduplicated. An unknown or unavailable preference
// is ignored with a warning, not an error.
func (e *Engine) candidates(preferred model.ProviderKind) []model.ProviderKind {
	var out []model.ProviderKind
	seen := make(map[model.ProviderKind]bool)

	if preferred != "" {
		if _, ok := e.adapters[preferred]; ok {
			out = append(out, preferred)
			seen[preferred] = true
		} else {
			zap.L().Warn("engine: preferred provider unknown or unavailable, using default order",
				zap.String("preferred", string(preferred)),
			)
		}
	}

	for _, k := range e.cfg.ProviderOrder {
		if seen[k] {
			continue
		}
		if _, ok := e.adapters[k]; ok {
			out = append(out, k)
			seen[k] = true
		}
	}
	return out
}

func (e *Engine) maxAttempts(kind model.ProviderKind) int {
	if n, ok := e.cfg.Attempts[kind]; ok && n > 0 {
		return n
	}
	return defaultMaxAttempts
}

// pause sleeps the backoff delay for the given retry, aborting on
// cancellation so no further attempt starts after the caller gives up.
func (e *Engine) pause(ctx context.Context, retry int) error {
	timer := time.NewTimer(e.cfg.Backoff.Delay(retry))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (e *Engine) assemble(req model.AnalysisRequest, raw *provider.RawResponse, parsed *Parsed) *model.AnalysisResult {
	overall := 0.0
	if parsed.Overall != nil {
		overall = *parsed.Overall
	} else {
		overall = e.agg.Overall(parsed.Scores)
	}

	return &model.AnalysisResult{
		OverallScore:    overall,
		FactorScores:    parsed.Scores,
		ProviderUsed:    raw.Provider,
		Model:           raw.Model,
		Verdict:         parsed.Verdict,
		Title:           parsed.Title,
		Summary:         parsed.Summary,
		Recommendations: parsed.Recommendations,
		Radar:           parsed.Radar,
		CreatedAt:       time.Now().UTC(),
	}
}
