package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"

	"github.com/TheCaptainCodes/amar-ai/internal/providers"
)

// EnvPrefix prefixes environment overrides, e.g. TRAINSET_PATHS_OUTPUT.
const EnvPrefix = "TRAINSET"

var envVarRe = regexp.MustCompile(`\$\{([^}]+)\}`)

// Manager handles loading and hot-reloading configuration.
type Manager struct {
	mu        sync.RWMutex
	v         *viper.Viper
	config    *Config
	callbacks []func(*Config)
	logger    *slog.Logger
}

// NewManager creates a new config manager and loads initial config.
// searchDir is an extra directory searched for config.yaml when cfgFile is empty.
func NewManager(cfgFile, searchDir string) (*Manager, error) {
	cm := &Manager{
		v:         viper.New(),
		callbacks: make([]func(*Config), 0),
		logger:    slog.Default(),
	}

	if err := cm.initViper(cfgFile, searchDir); err != nil {
		return nil, err
	}

	cfg, err := cm.load()
	if err != nil {
		return nil, err
	}
	cm.config = cfg

	return cm, nil
}

// SetLogger sets the logger used for reload diagnostics.
func (cm *Manager) SetLogger(logger *slog.Logger) {
	if logger == nil {
		return
	}
	cm.mu.Lock()
	cm.logger = logger
	cm.mu.Unlock()
}

// initViper sets up viper with defaults and config file.
func (cm *Manager) initViper(cfgFile, searchDir string) error {
	v := cm.v
	defaults := DefaultConfig()

	// Leaf defaults keep every key visible to AutomaticEnv.
	for name, p := range defaults.LLMProviders {
		prefix := "llm_providers." + name + "."
		v.SetDefault(prefix+"type", p.Type)
		v.SetDefault(prefix+"model", p.Model)
		v.SetDefault(prefix+"api_key", p.APIKey)
		v.SetDefault(prefix+"base_url", p.BaseURL)
		v.SetDefault(prefix+"rate_limit", p.RateLimit)
		v.SetDefault(prefix+"timeout_seconds", p.TimeoutSeconds)
		v.SetDefault(prefix+"transport_retries", p.TransportRetries)
		v.SetDefault(prefix+"enabled", p.Enabled)
	}
	v.SetDefault("defaults.llm_provider", defaults.Defaults.LLMProvider)
	v.SetDefault("paths.source", defaults.Paths.Source)
	v.SetDefault("paths.output", defaults.Paths.Output)
	v.SetDefault("chunking.max_chunk_size", defaults.Chunking.MaxChunkSize)
	v.SetDefault("chunking.min_length", defaults.Chunking.MinLength)
	v.SetDefault("generation.temperature", defaults.Generation.Temperature)
	v.SetDefault("generation.max_tokens", defaults.Generation.MaxTokens)
	v.SetDefault("generation.max_attempts", defaults.Generation.MaxAttempts)
	v.SetDefault("generation.rate_limit_backoff_seconds", defaults.Generation.RateLimitBackoffSeconds)
	v.SetDefault("generation.error_backoff_seconds", defaults.Generation.ErrorBackoffSeconds)
	v.SetDefault("generation.book_prefix", defaults.Generation.BookPrefix)
	v.SetDefault("metrics.textfile", defaults.Metrics.Textfile)

	// Environment variables with TRAINSET_ prefix
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if searchDir != "" {
			v.AddConfigPath(searchDir)
		}
		v.AddConfigPath("$HOME/.trainset")
	}

	// Try to read config file (not required)
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	return nil
}

// load parses the current viper state into a Config struct.
func (cm *Manager) load() (*Config, error) {
	var cfg Config
	if err := cm.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Get returns the current configuration (thread-safe).
func (cm *Manager) Get() *Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.config
}

// FileUsed returns the config file that was read, or "" when running on defaults.
func (cm *Manager) FileUsed() string {
	return cm.v.ConfigFileUsed()
}

// OnChange registers a callback for config changes.
func (cm *Manager) OnChange(fn func(*Config)) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.callbacks = append(cm.callbacks, fn)
}

// WatchConfig enables hot-reloading of configuration.
// A reloaded config that fails to decode or validate is ignored.
func (cm *Manager) WatchConfig() {
	cm.v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := cm.load()
		if err == nil {
			err = cfg.Validate()
		}

		cm.mu.Lock()
		logger := cm.logger
		if err != nil {
			cm.mu.Unlock()
			logger.Warn("ignoring config change", "file", e.Name, "error", err)
			return
		}
		cm.config = cfg
		callbacks := make([]func(*Config), len(cm.callbacks))
		copy(callbacks, cm.callbacks)
		cm.mu.Unlock()

		logger.Info("config reloaded", "file", e.Name)
		for _, fn := range callbacks {
			fn(cfg)
		}
	})
	cm.v.WatchConfig()
}

// ResolveEnvVars expands ${ENV_VAR} references in a string.
func ResolveEnvVars(value string) string {
	if value == "" {
		return value
	}
	return envVarRe.ReplaceAllStringFunc(value, func(match string) string {
		varName := match[2 : len(match)-1]
		return os.Getenv(varName)
	})
}

// ToProviderRegistryConfig converts the config to a format suitable for providers.Registry.
// It resolves all ${ENV_VAR} references in API keys.
func (c *Config) ToProviderRegistryConfig() providers.RegistryConfig {
	cfg := providers.RegistryConfig{
		LLMProviders: make(map[string]providers.LLMProviderConfig),
	}

	for name, llm := range c.LLMProviders {
		cfg.LLMProviders[name] = providers.LLMProviderConfig{
			Type:             llm.Type,
			Model:            llm.Model,
			APIKey:           ResolveEnvVars(llm.APIKey),
			BaseURL:          ResolveEnvVars(llm.BaseURL),
			RateLimit:        llm.RateLimit,
			TimeoutSeconds:   llm.TimeoutSeconds,
			TransportRetries: llm.TransportRetries,
			Enabled:          llm.Enabled,
		}
	}

	return cfg
}

// DefaultModel returns the model of the default provider.
func (c *Config) DefaultModel() string {
	if p, ok := c.LLMProviders[c.Defaults.LLMProvider]; ok {
		return p.Model
	}
	return ""
}

// WriteDefault writes the default configuration to the specified path.
func WriteDefault(path string) error {
	cfg := DefaultConfig()
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# trainset configuration
# API keys use ${ENV_VAR} syntax to reference environment variables
# Set these in your shell: export GROQ_API_KEY=xxx OPENROUTER_API_KEY=xxx
# Any key can be overridden with TRAINSET_<SECTION>_<KEY>, e.g. TRAINSET_PATHS_OUTPUT

`)
	return os.WriteFile(path, append(header, data...), 0o644)
}
