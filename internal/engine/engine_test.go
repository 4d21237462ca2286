package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feasai/viability-engine/internal/model"
	"github.com/feasai/viability-engine/internal/provider"
	"github.com/feasai/viability-engine/internal/resilience"
	"github.com/feasai/viability-engine/internal/scoring"
)

// stubAdapter is a scripted provider.Adapter: each Invoke consumes the next
// outcome, the last one repeating forever.
type stubAdapter struct {
	kind     model.ProviderKind
	outcomes []stubOutcome
	calls    int
}

type stubOutcome struct {
	text string
	err  *provider.Error
}

func (s *stubAdapter) Kind() model.ProviderKind { return s.kind }
func (s *stubAdapter) Model() string            { return "stub-" + string(s.kind) }

func (s *stubAdapter) Invoke(ctx context.Context, prompt string) (*provider.RawResponse, error) {
	i := s.calls
	if i >= len(s.outcomes) {
		i = len(s.outcomes) - 1
	}
	s.calls++
	o := s.outcomes[i]
	if o.err != nil {
		return nil, o.err
	}
	return &provider.RawResponse{
		Provider: s.kind,
		Model:    s.Model(),
		Text:     o.text,
		Latency:  time.Millisecond,
	}, nil
}

func ok(text string) stubOutcome { return stubOutcome{text: text} }

func fail(p model.ProviderKind, kind provider.ErrorKind) stubOutcome {
	return stubOutcome{err: &provider.Error{Provider: p, Kind: kind, Err: errors.New(string(kind))}}
}

const goodOutput = `{
	"verdict": "highly viable",
	"factors": {
		"technical": {"score": 80, "justification": "solid"},
		"market": {"score": 50, "justification": "fine"}
	}
}`

var testRequest = model.AnalysisRequest{
	User:        "alice",
	Description: "A long enough project description for testing",
	Factors:     []model.FactorKind{model.FactorTechnical, model.FactorMarket},
}

func fastBackoff() resilience.BackoffConfig {
	return resilience.BackoffConfig{Initial: time.Millisecond, Max: 2 * time.Millisecond, Multiplier: 1, JitterFraction: 0}
}

func newTestEngine(t *testing.T, cfg Config, adapters ...provider.Adapter) *Engine {
	t.Helper()
	if cfg.Backoff.Initial == 0 {
		cfg.Backoff = fastBackoff()
	}
	agg := scoring.New(map[string]float64{"technical": 0.6, "market": 0.4})
	e, err := New(cfg, agg, adapters...)
	require.NoError(t, err)
	return e
}

func TestAnalyze_Success(t *testing.T) {
	a := &stubAdapter{kind: model.ProviderGemini, outcomes: []stubOutcome{ok(goodOutput)}}
	e := newTestEngine(t, Config{}, a)

	res, err := e.Analyze(context.Background(), testRequest)
	require.NoError(t, err)

	assert.Equal(t, model.ProviderGemini, res.ProviderUsed)
	require.Len(t, res.FactorScores, 2)
	assert.Equal(t, model.FactorTechnical, res.FactorScores[0].Factor)
	// No provider overall: aggregator computes round(80*0.6 + 50*0.4) = 68.
	assert.Equal(t, float64(68), res.OverallScore)
	assert.Equal(t, model.VerdictHighlyViable, res.Verdict)
	assert.False(t, res.CreatedAt.IsZero())
}

func TestAnalyze_ProviderOverallWins(t *testing.T) {
	withOverall := `{"factors": {
		"technical": {"score": 80, "justification": "x"},
		"market": {"score": 50, "justification": "y"}
	}, "overall_score": 75}`
	a := &stubAdapter{kind: model.ProviderGemini, outcomes: []stubOutcome{ok(withOverall)}}
	e := newTestEngine(t, Config{}, a)

	res, err := e.Analyze(context.Background(), testRequest)
	require.NoError(t, err)
	assert.Equal(t, float64(75), res.OverallScore)
}

func TestAnalyze_ShortDescription(t *testing.T) {
	e := newTestEngine(t, Config{}, &stubAdapter{kind: model.ProviderGemini, outcomes: []stubOutcome{ok(goodOutput)}})

	_, err := e.Analyze(context.Background(), model.AnalysisRequest{Description: "too short"})
	var ce *ConfigurationError
	require.ErrorAs(t, err, &ce)
}

func TestAnalyze_NoProviders(t *testing.T) {
	e := newTestEngine(t, Config{})

	_, err := e.Analyze(context.Background(), testRequest)
	var ce *ConfigurationError
	require.ErrorAs(t, err, &ce)
}

func TestAnalyze_DefaultFactorsApplied(t *testing.T) {
	fourFactors := `{"factors": {
		"technical": {"score": 80, "justification": "a"},
		"economic": {"score": 70, "justification": "b"},
		"market": {"score": 60, "justification": "c"},
		"risk": {"score": 50, "justification": "d"}
	}, "overall_score": 65}`
	a := &stubAdapter{kind: model.ProviderGemini, outcomes: []stubOutcome{ok(fourFactors)}}
	e := newTestEngine(t, Config{}, a)

	req := testRequest
	req.Factors = nil
	res, err := e.Analyze(context.Background(), req)
	require.NoError(t, err)
	assert.Len(t, res.FactorScores, len(model.DefaultFactors))
}

func TestAnalyze_AuthFailureSkipsRetry(t *testing.T) {
	a := &stubAdapter{kind: model.ProviderGemini, outcomes: []stubOutcome{fail(model.ProviderGemini, provider.KindAuth)}}
	b := &stubAdapter{kind: model.ProviderCerebras, outcomes: []stubOutcome{ok(goodOutput)}}
	e := newTestEngine(t, Config{}, a, b)

	res, err := e.Analyze(context.Background(), testRequest)
	require.NoError(t, err)
	assert.Equal(t, model.ProviderCerebras, res.ProviderUsed)
	assert.Equal(t, 1, a.calls, "auth failure must not be retried")
}

func TestAnalyze_TransientRetriedUpToBound(t *testing.T) {
	a := &stubAdapter{kind: model.ProviderGemini, outcomes: []stubOutcome{fail(model.ProviderGemini, provider.KindTransport)}}
	b := &stubAdapter{kind: model.ProviderCerebras, outcomes: []stubOutcome{ok(goodOutput)}}
	e := newTestEngine(t, Config{
		Attempts: map[model.ProviderKind]int{model.ProviderGemini: 3},
	}, a, b)

	res, err := e.Analyze(context.Background(), testRequest)
	require.NoError(t, err)
	assert.Equal(t, model.ProviderCerebras, res.ProviderUsed)
	assert.Equal(t, 3, a.calls, "transient failure retried exactly the configured bound")
}

func TestAnalyze_RetryThenSucceedSameProvider(t *testing.T) {
	a := &stubAdapter{kind: model.ProviderGemini, outcomes: []stubOutcome{
		fail(model.ProviderGemini, provider.KindRateLimit),
		ok(goodOutput),
	}}
	e := newTestEngine(t, Config{}, a)

	res, err := e.Analyze(context.Background(), testRequest)
	require.NoError(t, err)
	assert.Equal(t, model.ProviderGemini, res.ProviderUsed)
	assert.Equal(t, 2, a.calls)
}

func TestAnalyze_ValidationFailureTriggersFallback(t *testing.T) {
	a := &stubAdapter{kind: model.ProviderGemini, outcomes: []stubOutcome{
		ok(`{"factors": {"technical": {"score": "excellent", "justification": "x"}, "market": {"score": 50, "justification": "y"}}}`),
	}}
	b := &stubAdapter{kind: model.ProviderCerebras, outcomes: []stubOutcome{ok(goodOutput)}}
	e := newTestEngine(t, Config{}, a, b)

	res, err := e.Analyze(context.Background(), testRequest)
	require.NoError(t, err)
	assert.Equal(t, model.ProviderCerebras, res.ProviderUsed)
	assert.Equal(t, 1, a.calls, "invalid content must not be retried on the same provider")
}

func TestAnalyze_Exhaustion(t *testing.T) {
	a := &stubAdapter{kind: model.ProviderGemini, outcomes: []stubOutcome{fail(model.ProviderGemini, provider.KindAuth)}}
	b := &stubAdapter{kind: model.ProviderCerebras, outcomes: []stubOutcome{fail(model.ProviderCerebras, provider.KindTransport)}}
	c := &stubAdapter{kind: model.ProviderClaude, outcomes: []stubOutcome{
		ok("not json at all"),
	}}
	e := newTestEngine(t, Config{}, a, b, c)

	_, err := e.Analyze(context.Background(), testRequest)
	var ex *AllProvidersExhaustedError
	require.ErrorAs(t, err, &ex)

	require.Len(t, ex.Trail, 3)
	assert.Equal(t, model.ProviderGemini, ex.Trail[0].Provider)
	assert.Equal(t, string(provider.KindAuth), ex.Trail[0].Kind)
	assert.Equal(t, 1, ex.Trail[0].Attempts)
	assert.Equal(t, model.ProviderCerebras, ex.Trail[1].Provider)
	assert.Equal(t, 2, ex.Trail[1].Attempts)
	assert.Equal(t, model.ProviderClaude, ex.Trail[2].Provider)
	assert.Equal(t, failureKindValidation, ex.Trail[2].Kind)
}

func TestAnalyze_ExhaustionRateLimited(t *testing.T) {
	a := &stubAdapter{kind: model.ProviderGemini, outcomes: []stubOutcome{fail(model.ProviderGemini, provider.KindRateLimit)}}
	e := newTestEngine(t, Config{}, a)

	_, err := e.Analyze(context.Background(), testRequest)
	var ex *AllProvidersExhaustedError
	require.ErrorAs(t, err, &ex)
	assert.True(t, ex.RateLimited())
}

func TestAnalyze_PreferredProviderFirst(t *testing.T) {
	a := &stubAdapter{kind: model.ProviderGemini, outcomes: []stubOutcome{ok(goodOutput)}}
	b := &stubAdapter{kind: model.ProviderCerebras, outcomes: []stubOutcome{ok(goodOutput)}}
	e := newTestEngine(t, Config{}, a, b)

	req := testRequest
	req.PreferredProvider = model.ProviderCerebras
	res, err := e.Analyze(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, model.ProviderCerebras, res.ProviderUsed)
	assert.Equal(t, 0, a.calls)
}

func TestAnalyze_UnknownPreferredIgnored(t *testing.T) {
	a := &stubAdapter{kind: model.ProviderGemini, outcomes: []stubOutcome{ok(goodOutput)}}
	e := newTestEngine(t, Config{}, a)

	req := testRequest
	req.PreferredProvider = model.ProviderKind("grok")
	res, err := e.Analyze(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, model.ProviderGemini, res.ProviderUsed)
}

func TestAnalyze_CancelledBeforeNextAttempt(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a := &stubAdapter{kind: model.ProviderGemini, outcomes: []stubOutcome{ok(goodOutput)}}
	e := newTestEngine(t, Config{}, a)

	_, err := e.Analyze(ctx, testRequest)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, a.calls)
}

func TestAnalyze_CacheReplaysResult(t *testing.T) {
	a := &stubAdapter{kind: model.ProviderGemini, outcomes: []stubOutcome{ok(goodOutput)}}
	e := newTestEngine(t, Config{CacheSize: 8}, a)

	first, err := e.Analyze(context.Background(), testRequest)
	require.NoError(t, err)
	second, err := e.Analyze(context.Background(), testRequest)
	require.NoError(t, err)

	assert.Equal(t, 1, a.calls, "second analysis must be served from cache")
	assert.Equal(t, first.OverallScore, second.OverallScore)
	assert.Equal(t, first.FactorScores, second.FactorScores)
}

func TestAvailable_FollowsConfiguredOrder(t *testing.T) {
	a := &stubAdapter{kind: model.ProviderGemini}
	b := &stubAdapter{kind: model.ProviderClaude}
	e := newTestEngine(t, Config{
		ProviderOrder: []model.ProviderKind{model.ProviderClaude, model.ProviderCerebras, model.ProviderGemini},
	}, a, b)

	assert.Equal(t, []model.ProviderKind{model.ProviderClaude, model.ProviderGemini}, e.Available())
}
