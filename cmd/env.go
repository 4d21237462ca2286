package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/feasai/viability-engine/internal/classify"
	"github.com/feasai/viability-engine/internal/engine"
	"github.com/feasai/viability-engine/internal/model"
	"github.com/feasai/viability-engine/internal/provider"
	"github.com/feasai/viability-engine/internal/resilience"
	"github.com/feasai/viability-engine/internal/scoring"
	"github.com/feasai/viability-engine/internal/store"
	anthropicpkg "github.com/feasai/viability-engine/pkg/anthropic"
	"github.com/feasai/viability-engine/pkg/cerebras"
	"github.com/feasai/viability-engine/pkg/gemini"
)

// env bundles the long-lived collaborators a command needs.
type env struct {
	Store      store.Store
	Engine     *engine.Engine
	Classifier *classify.Classifier
}

func (e *env) Close() {
	if e.Store != nil {
		if err := e.Store.Close(); err != nil {
			zap.L().Warn("close store", zap.Error(err))
		}
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "viability.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.Pool.MaxConns,
			MinConns: cfg.Store.Pool.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func initClassifier() (*classify.Classifier, error) {
	if cfg.Classify.RulesPath != "" {
		return classify.NewFromFile(cfg.Classify.RulesPath)
	}
	return classify.New()
}

// initAdapters builds one adapter per credentialed provider. Providers
// without a key are simply absent from the fallback chain.
func initAdapters(ctx context.Context) ([]provider.Adapter, error) {
	var adapters []provider.Adapter

	if cfg.Gemini.Key != "" {
		cli, err := gemini.NewClient(ctx, cfg.Gemini.Key, gemini.WithModel(cfg.Gemini.Model))
		if err != nil {
			return nil, eris.Wrap(err, "init gemini client")
		}
		adapters = append(adapters, provider.NewGemini(cli,
			time.Duration(cfg.Gemini.TimeoutSecs)*time.Second, cfg.Gemini.RPS))
	}

	if cfg.Cerebras.Key != "" {
		cli := cerebras.NewClient(cfg.Cerebras.Key,
			cerebras.WithBaseURL(cfg.Cerebras.BaseURL),
			cerebras.WithModel(cfg.Cerebras.Model),
			cerebras.WithMaxTokens(cfg.Cerebras.MaxTokens),
			cerebras.WithSampling(cfg.Cerebras.Temperature, cfg.Cerebras.TopP),
		)
		adapters = append(adapters, provider.NewCerebras(cli,
			time.Duration(cfg.Cerebras.TimeoutSecs)*time.Second, cfg.Cerebras.RPS))
	}

	if cfg.Claude.Key != "" {
		cli := anthropicpkg.NewClient(cfg.Claude.Key,
			anthropicpkg.WithModel(cfg.Claude.Model),
			anthropicpkg.WithMaxTokens(int64(cfg.Claude.MaxTokens)),
		)
		adapters = append(adapters, provider.NewClaude(cli,
			time.Duration(cfg.Claude.TimeoutSecs)*time.Second, cfg.Claude.RPS))
	}

	return adapters, nil
}

func initEngine(ctx context.Context) (*engine.Engine, error) {
	adapters, err := initAdapters(ctx)
	if err != nil {
		return nil, err
	}
	if len(adapters) == 0 {
		return nil, eris.New("no provider configured: set gemini.key, cerebras.key or claude.key")
	}

	var order []model.ProviderKind
	for _, name := range cfg.Engine.ProviderOrder {
		p, ok := model.ParseProvider(name)
		if !ok {
			return nil, eris.Errorf("unknown provider in engine.provider_order: %s", name)
		}
		order = append(order, p)
	}

	var factors []model.FactorKind
	for _, name := range cfg.Engine.Factors {
		f, ok := model.ParseFactor(name)
		if !ok {
			return nil, eris.Errorf("unknown factor in engine.factors: %s", name)
		}
		factors = append(factors, f)
	}

	cacheSize := 0
	if cfg.Engine.Cache.Enabled {
		cacheSize = cfg.Engine.Cache.Size
	}

	ecfg := engine.Config{
		ProviderOrder:     order,
		DefaultFactors:    factors,
		MinDescriptionLen: cfg.Engine.MinDescriptionLen,
		Attempts: map[model.ProviderKind]int{
			model.ProviderGemini:   cfg.Gemini.MaxAttempts,
			model.ProviderCerebras: cfg.Cerebras.MaxAttempts,
			model.ProviderClaude:   cfg.Claude.MaxAttempts,
		},
		Backoff:   resilience.DefaultBackoff(),
		CacheSize: cacheSize,
	}

	return engine.New(ecfg, scoring.New(cfg.Scoring.Weights), adapters...)
}

// initEnv wires store, engine and classifier for commands that run analyses.
func initEnv(ctx context.Context, mode string) (*env, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	cls, err := initClassifier()
	if err != nil {
		st.Close()
		return nil, err
	}

	e := &env{Store: st, Classifier: cls}
	if mode != "stats" {
		eng, err := initEngine(ctx)
		if err != nil {
			st.Close()
			return nil, err
		}
		e.Engine = eng
	}
	return e, nil
}
