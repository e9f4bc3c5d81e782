package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds runtime configuration shared by the CLI, API and worker.
type Config struct {
	// Server
	Port     int    `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// LLM
	LLMProvider   string        `env:"LLM_PROVIDER" envDefault:"openai"` // "openai" (only supported provider)
	OpenAIKey     string        `env:"OPENAI_API_KEY"`
	OpenAIBaseURL string        `env:"OPENAI_BASE_URL"`
	LLMModel      string        `env:"LLM_MODEL" envDefault:"gpt-4o"`
	LLMTimeout    time.Duration `env:"LLM_TIMEOUT" envDefault:"60s"`

	// Output-token ceilings per stage
	OutlineMaxTokens int64 `env:"OUTLINE_MAX_TOKENS" envDefault:"300"`
	SummaryMaxTokens int64 `env:"SUMMARY_MAX_TOKENS" envDefault:"120"`
	AnswerMaxTokens  int64 `env:"ANSWER_MAX_TOKENS" envDefault:"200"`

	// Answer cache; disabled when CACHE_ADDR is empty
	CacheAddr     string `env:"CACHE_ADDR"`
	CachePassword string `env:"CACHE_PASSWORD"`
	CacheTTL      int    `env:"CACHE_TTL" envDefault:"3600"` // seconds

	// Store
	StoreProvider string `env:"STORE_PROVIDER" envDefault:"none"` // "none" or "postgres"
	DBURL         string `env:"DB_URL"`

	// Queue
	QueueProvider string `env:"QUEUE_PROVIDER" envDefault:"nats"` // "nats" (required by api and worker)
	QueueURL      string `env:"QUEUE_URL"`
}

// CacheTTLDuration returns CacheTTL as a duration.
func (c Config) CacheTTLDuration() time.Duration {
	return time.Duration(c.CacheTTL) * time.Second
}

// Validate checks settings env parsing cannot. The summary ceiling must stay
// below the outline ceiling.
func (c Config) Validate() error {
	if c.OutlineMaxTokens <= 0 || c.SummaryMaxTokens <= 0 || c.AnswerMaxTokens <= 0 {
		return fmt.Errorf("token limits must be positive (outline=%d summary=%d answer=%d)",
			c.OutlineMaxTokens, c.SummaryMaxTokens, c.AnswerMaxTokens)
	}
	if c.SummaryMaxTokens >= c.OutlineMaxTokens {
		return fmt.Errorf("SUMMARY_MAX_TOKENS (%d) must be lower than OUTLINE_MAX_TOKENS (%d)",
			c.SummaryMaxTokens, c.OutlineMaxTokens)
	}
	return nil
}

// Load reads configuration from environment variables with defaults.
func Load() Config {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		slog.Warn("failed to parse env; using defaults where set", "err", err)
	}
	return cfg
}
