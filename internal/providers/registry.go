package providers

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Provider types accepted in configuration.
const (
	TypeOpenAI     = "openai"
	TypeGroq       = "groq"
	TypeOpenRouter = "openrouter"
	TypeMock       = "mock"
)

// LLMProviderConfig matches config.LLMProviderCfg with resolved API key.
type LLMProviderConfig struct {
	Type             string // "groq", "openai", "openrouter", "mock"
	Model            string
	APIKey           string
	BaseURL          string
	RateLimit        int // Requests per minute; 0 disables pacing
	TimeoutSeconds   int
	TransportRetries int
	Enabled          bool
}

// RegistryConfig defines the providers to instantiate from config.
type RegistryConfig struct {
	LLMProviders map[string]LLMProviderConfig
}

type llmEntry struct {
	client LLMClient
	cfg    LLMProviderConfig
}

// Registry holds LLM clients by name. It supports config-driven instantiation
// and hot-reload with thread-safe access.
type Registry struct {
	mu         sync.RWMutex
	llmClients map[string]llmEntry
	logger     *slog.Logger
}

// NewRegistry creates a new empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		llmClients: make(map[string]llmEntry),
		logger:     slog.Default(),
	}
}

// NewRegistryFromConfig creates a registry with every enabled, usable provider.
func NewRegistryFromConfig(cfg RegistryConfig, logger *slog.Logger) *Registry {
	r := NewRegistry()
	if logger != nil {
		r.logger = logger
	}
	r.Reload(cfg)
	return r
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger = logger
}

// RegisterLLM registers an LLM client by name.
func (r *Registry) RegisterLLM(name string, client LLMClient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.llmClients[name] = llmEntry{client: client}
	if r.logger != nil {
		r.logger.Info("registered LLM client", "name", name)
	}
}

// GetLLM returns an LLM client by name.
func (r *Registry) GetLLM(name string) (LLMClient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.llmClients[name]
	if !ok {
		return nil, fmt.Errorf("LLM client not found: %s", name)
	}
	return entry.client, nil
}

// Named returns a client that looks name up on every call, so a Reload
// takes effect for callers holding it.
func (r *Registry) Named(name string) LLMClient {
	return &namedClient{registry: r, name: name}
}

type namedClient struct {
	registry *Registry
	name     string
}

func (c *namedClient) Name() string { return c.name }

func (c *namedClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	client, err := c.registry.GetLLM(c.name)
	if err != nil {
		return nil, err
	}
	return client.Chat(ctx, req)
}

// HasLLM checks if an LLM client is registered.
func (r *Registry) HasLLM(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.llmClients[name]
	return ok
}

// ListLLM returns all registered LLM client names, sorted.
func (r *Registry) ListLLM() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.llmClients))
	for name := range r.llmClients {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Reload updates the registry based on new configuration.
// Providers that are no longer configured are unregistered and providers with
// changed settings are recreated.
func (r *Registry) Reload(cfg RegistryConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	want := make(map[string]bool)
	for name, provCfg := range cfg.LLMProviders {
		if !usable(provCfg) {
			continue
		}
		want[name] = true

		existing, hasExisting := r.llmClients[name]
		if hasExisting && existing.cfg == provCfg {
			continue
		}
		client, err := createLLMClient(name, provCfg)
		if err != nil {
			r.logger.Warn("skipping LLM provider", "name", name, "error", err)
			delete(want, name)
			continue
		}
		r.llmClients[name] = llmEntry{client: client, cfg: provCfg}
		if hasExisting {
			r.logger.Info("updated LLM client", "name", name, "type", provCfg.Type)
		} else {
			r.logger.Info("registered LLM client", "name", name, "type", provCfg.Type)
		}
	}

	for name := range r.llmClients {
		if !want[name] {
			delete(r.llmClients, name)
			r.logger.Info("unregistered LLM client", "name", name)
		}
	}
}

func usable(cfg LLMProviderConfig) bool {
	if !cfg.Enabled {
		return false
	}
	return cfg.Type == TypeMock || cfg.APIKey != ""
}

// createLLMClient creates an LLM client based on provider type.
func createLLMClient(name string, cfg LLMProviderConfig) (LLMClient, error) {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second

	var client LLMClient
	switch cfg.Type {
	case TypeGroq, TypeOpenAI:
		baseURL := cfg.BaseURL
		if baseURL == "" && cfg.Type == TypeOpenAI {
			baseURL = "https://api.openai.com/v1"
		}
		client = NewOpenAIClient(OpenAIConfig{
			Name:         name,
			APIKey:       cfg.APIKey,
			BaseURL:      baseURL,
			DefaultModel: cfg.Model,
			Timeout:      timeout,
			MaxRetries:   cfg.TransportRetries,
		})
	case TypeOpenRouter:
		client = NewOpenRouterClient(OpenRouterConfig{
			APIKey:       cfg.APIKey,
			BaseURL:      cfg.BaseURL,
			DefaultModel: cfg.Model,
			Timeout:      timeout,
			MaxRetries:   cfg.TransportRetries,
		})
	case TypeMock:
		client = NewMockClient()
	default:
		return nil, fmt.Errorf("unknown provider type %q", cfg.Type)
	}

	if cfg.RateLimit > 0 {
		client = NewPacedClient(client, cfg.RateLimit)
	}
	return client, nil
}
