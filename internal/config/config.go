package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Engine   EngineConfig   `yaml:"engine" mapstructure:"engine"`
	Gemini   GeminiConfig   `yaml:"gemini" mapstructure:"gemini"`
	Cerebras CerebrasConfig `yaml:"cerebras" mapstructure:"cerebras"`
	Claude   ClaudeConfig   `yaml:"claude" mapstructure:"claude"`
	Scoring  ScoringConfig  `yaml:"scoring" mapstructure:"scoring"`
	Classify ClassifyConfig `yaml:"classify" mapstructure:"classify"`
	Batch    BatchConfig    `yaml:"batch" mapstructure:"batch"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string     `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string     `yaml:"database_url" mapstructure:"database_url"`
	Pool        PoolConfig `yaml:"pool" mapstructure:"pool"`
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// EngineConfig configures provider selection and fallback.
type EngineConfig struct {
	ProviderOrder     []string    `yaml:"provider_order" mapstructure:"provider_order"`
	Factors           []string    `yaml:"factors" mapstructure:"factors"`
	MinDescriptionLen int         `yaml:"min_description_len" mapstructure:"min_description_len"`
	Cache             CacheConfig `yaml:"cache" mapstructure:"cache"`
}

// CacheConfig configures the in-process response cache.
type CacheConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	Size    int  `yaml:"size" mapstructure:"size"`
}

// GeminiConfig holds Google Gemini API settings.
type GeminiConfig struct {
	Key         string  `yaml:"key" mapstructure:"key"`
	Model       string  `yaml:"model" mapstructure:"model"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxAttempts int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	RPS         float64 `yaml:"rps" mapstructure:"rps"`
}

// CerebrasConfig holds Cerebras inference API settings.
type CerebrasConfig struct {
	Key         string  `yaml:"key" mapstructure:"key"`
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	Model       string  `yaml:"model" mapstructure:"model"`
	MaxTokens   int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float32 `yaml:"temperature" mapstructure:"temperature"`
	TopP        float32 `yaml:"top_p" mapstructure:"top_p"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxAttempts int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	RPS         float64 `yaml:"rps" mapstructure:"rps"`
}

// ClaudeConfig holds Anthropic API settings.
type ClaudeConfig struct {
	Key         string  `yaml:"key" mapstructure:"key"`
	Model       string  `yaml:"model" mapstructure:"model"`
	MaxTokens   int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxAttempts int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	RPS         float64 `yaml:"rps" mapstructure:"rps"`
}

// ScoringConfig holds per-factor aggregation weights.
type ScoringConfig struct {
	Weights map[string]float64 `yaml:"weights" mapstructure:"weights"`
}

// ClassifyConfig configures the request classifier.
type ClassifyConfig struct {
	RulesPath string `yaml:"rules_path" mapstructure:"rules_path"`
}

// BatchConfig configures batch processing.
type BatchConfig struct {
	MaxConcurrent int `yaml:"max_concurrent" mapstructure:"max_concurrent"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("VIABILITY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "viability.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("batch.max_concurrent", 4)
	v.SetDefault("engine.provider_order", []string{"gemini", "cerebras", "claude"})
	v.SetDefault("engine.factors", []string{"technical", "economic", "market", "risk"})
	v.SetDefault("engine.min_description_len", 10)
	v.SetDefault("engine.cache.enabled", false)
	v.SetDefault("engine.cache.size", 256)
	v.SetDefault("gemini.model", "gemini-2.5-flash")
	v.SetDefault("gemini.timeout_secs", 60)
	v.SetDefault("gemini.max_attempts", 2)
	v.SetDefault("gemini.rps", 1)
	v.SetDefault("cerebras.base_url", "https://api.cerebras.ai/v1")
	v.SetDefault("cerebras.model", "qwen-3-235b-a22b-instruct-2507")
	v.SetDefault("cerebras.max_tokens", 20000)
	v.SetDefault("cerebras.temperature", 0.7)
	v.SetDefault("cerebras.top_p", 0.8)
	v.SetDefault("cerebras.timeout_secs", 60)
	v.SetDefault("cerebras.max_attempts", 2)
	v.SetDefault("cerebras.rps", 1)
	v.SetDefault("claude.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("claude.max_tokens", 8192)
	v.SetDefault("claude.timeout_secs", 60)
	v.SetDefault("claude.max_attempts", 2)
	v.SetDefault("claude.rps", 1)
	v.SetDefault("scoring.weights", map[string]float64{
		"technical": 0.25,
		"economic":  0.25,
		"market":    0.25,
		"risk":      0.25,
	})

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// HasProviderKey reports whether at least one provider credential is set.
func (c *Config) HasProviderKey() bool {
	return c.Gemini.Key != "" || c.Cerebras.Key != "" || c.Claude.Key != ""
}

// Validate checks the configuration needed for the given mode. Modes:
// "analyze", "batch", "serve", "stats". Returns an error listing every
// missing or out-of-range value.
func (c *Config) Validate(mode string) error {
	var problems []string

	switch mode {
	case "analyze", "batch", "serve":
		if !c.HasProviderKey() {
			problems = append(problems, "at least one provider key is required (gemini.key, cerebras.key or claude.key)")
		}
	case "stats":
		// Read-only against the store; no provider needed.
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Store.Driver != "sqlite" && c.Store.Driver != "postgres" {
		problems = append(problems, "store.driver must be sqlite or postgres")
	}
	if c.Store.DatabaseURL == "" {
		problems = append(problems, "store.database_url is required")
	}
	if mode == "serve" && c.Server.Port <= 0 {
		problems = append(problems, "server.port must be > 0")
	}
	if c.Batch.MaxConcurrent < 1 || c.Batch.MaxConcurrent > 32 {
		problems = append(problems, "batch.max_concurrent must be between 1 and 32")
	}
	for factor, w := range c.Scoring.Weights {
		if w < 0 {
			problems = append(problems, "scoring.weights."+factor+" must be >= 0")
		}
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
