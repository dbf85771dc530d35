package config

import (
	"fmt"
	"time"
)

// Config holds trainset configuration.
// Stored at: {home}/config.yaml
type Config struct {
	LLMProviders map[string]LLMProviderCfg `mapstructure:"llm_providers" yaml:"llm_providers"`
	Defaults     DefaultsCfg               `mapstructure:"defaults" yaml:"defaults"`
	Paths        PathsCfg                  `mapstructure:"paths" yaml:"paths"`
	Chunking     ChunkingCfg               `mapstructure:"chunking" yaml:"chunking"`
	Generation   GenerationCfg             `mapstructure:"generation" yaml:"generation"`
	Metrics      MetricsCfg                `mapstructure:"metrics" yaml:"metrics"`
}

// LLMProviderCfg configures a generation provider.
type LLMProviderCfg struct {
	Type             string `mapstructure:"type" yaml:"type"`                           // "groq", "openai", "openrouter", "mock"
	Model            string `mapstructure:"model" yaml:"model"`                         // Model name
	APIKey           string `mapstructure:"api_key" yaml:"api_key"`                     // API key (supports ${ENV_VAR} syntax)
	BaseURL          string `mapstructure:"base_url" yaml:"base_url,omitempty"`         // Override for OpenAI-compatible endpoints
	RateLimit        int    `mapstructure:"rate_limit" yaml:"rate_limit"`               // Requests per minute, 0 disables pacing
	TimeoutSeconds   int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`     // Per-request timeout
	TransportRetries int    `mapstructure:"transport_retries" yaml:"transport_retries"` // Retries below the orchestrator
	Enabled          bool   `mapstructure:"enabled" yaml:"enabled"`
}

// DefaultsCfg specifies default provider selections.
type DefaultsCfg struct {
	LLMProvider string `mapstructure:"llm_provider" yaml:"llm_provider"`
}

// PathsCfg locates source documents and generated datasets.
// Empty values resolve against the home directory.
type PathsCfg struct {
	Source string `mapstructure:"source" yaml:"source"`
	Output string `mapstructure:"output" yaml:"output"`
}

// ChunkingCfg tunes the chunker.
type ChunkingCfg struct {
	MaxChunkSize int `mapstructure:"max_chunk_size" yaml:"max_chunk_size"`
	MinLength    int `mapstructure:"min_length" yaml:"min_length"`
}

// GenerationCfg tunes requests and the retry policy.
type GenerationCfg struct {
	Temperature             float64 `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens               int     `mapstructure:"max_tokens" yaml:"max_tokens"`
	MaxAttempts             int     `mapstructure:"max_attempts" yaml:"max_attempts"`
	RateLimitBackoffSeconds int     `mapstructure:"rate_limit_backoff_seconds" yaml:"rate_limit_backoff_seconds"`
	ErrorBackoffSeconds     int     `mapstructure:"error_backoff_seconds" yaml:"error_backoff_seconds"`
	BookPrefix              string  `mapstructure:"book_prefix" yaml:"book_prefix"`
}

// RateLimitBackoff returns the base wait after a rate-limit rejection.
func (g GenerationCfg) RateLimitBackoff() time.Duration {
	return time.Duration(g.RateLimitBackoffSeconds) * time.Second
}

// ErrorBackoff returns the base wait after any other failure.
func (g GenerationCfg) ErrorBackoff() time.Duration {
	return time.Duration(g.ErrorBackoffSeconds) * time.Second
}

// MetricsCfg controls Prometheus output.
type MetricsCfg struct {
	// Textfile is a node-exporter textfile path written after each document.
	// Empty disables it.
	Textfile string `mapstructure:"textfile" yaml:"textfile"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		LLMProviders: map[string]LLMProviderCfg{
			"groq": {
				Type:           "groq",
				Model:          "meta-llama/llama-4-scout-17b-16e-instruct",
				APIKey:         "${GROQ_API_KEY}",
				TimeoutSeconds: 120,
				Enabled:        true,
			},
			"openrouter": {
				Type:             "openrouter",
				Model:            "meta-llama/llama-4-scout",
				APIKey:           "${OPENROUTER_API_KEY}",
				TimeoutSeconds:   120,
				TransportRetries: 3,
				Enabled:          false,
			},
		},
		Defaults: DefaultsCfg{
			LLMProvider: "groq",
		},
		Chunking: ChunkingCfg{
			MaxChunkSize: 4000,
			MinLength:    100,
		},
		Generation: GenerationCfg{
			Temperature:             0.7,
			MaxTokens:               1000,
			MaxAttempts:             3,
			RateLimitBackoffSeconds: 60,
			ErrorBackoffSeconds:     5,
			BookPrefix:              "NCTB",
		},
	}
}

// GetLLMProvider returns an LLM provider config by name.
func (c *Config) GetLLMProvider(name string) (LLMProviderCfg, bool) {
	cfg, ok := c.LLMProviders[name]
	return cfg, ok
}

// EnabledLLMProviders returns all enabled LLM providers.
func (c *Config) EnabledLLMProviders() map[string]LLMProviderCfg {
	result := make(map[string]LLMProviderCfg)
	for name, cfg := range c.LLMProviders {
		if cfg.Enabled {
			result[name] = cfg
		}
	}
	return result
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	name := c.Defaults.LLMProvider
	if name == "" {
		return fmt.Errorf("defaults.llm_provider is not set")
	}
	p, ok := c.LLMProviders[name]
	if !ok {
		return fmt.Errorf("default llm provider %q is not configured", name)
	}
	if !p.Enabled {
		return fmt.Errorf("default llm provider %q is disabled", name)
	}
	if c.Chunking.MaxChunkSize < 0 || c.Chunking.MinLength < 0 {
		return fmt.Errorf("chunking sizes must not be negative")
	}
	if c.Generation.MaxAttempts < 1 {
		return fmt.Errorf("generation.max_attempts must be at least 1, got %d", c.Generation.MaxAttempts)
	}
	if c.Generation.RateLimitBackoffSeconds < 0 || c.Generation.ErrorBackoffSeconds < 0 {
		return fmt.Errorf("generation backoff must not be negative")
	}
	return nil
}
