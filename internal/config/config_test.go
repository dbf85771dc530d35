package config

import (
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Defaults.LLMProvider != "groq" {
		t.Errorf("expected groq default provider, got %s", cfg.Defaults.LLMProvider)
	}
	groq, ok := cfg.GetLLMProvider("groq")
	if !ok {
		t.Fatal("expected groq provider")
	}
	if groq.APIKey != "${GROQ_API_KEY}" {
		t.Errorf("expected groq API key placeholder, got %s", groq.APIKey)
	}
	if cfg.Generation.RateLimitBackoff() != time.Minute {
		t.Errorf("expected 1m rate limit backoff, got %v", cfg.Generation.RateLimitBackoff())
	}
	if cfg.Generation.ErrorBackoff() != 5*time.Second {
		t.Errorf("expected 5s error backoff, got %v", cfg.Generation.ErrorBackoff())
	}
	if cfg.DefaultModel() != groq.Model {
		t.Errorf("DefaultModel() = %s, want %s", cfg.DefaultModel(), groq.Model)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
	if _, ok := cfg.EnabledLLMProviders()["openrouter"]; ok {
		t.Error("openrouter should be disabled by default")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		substr string
	}{
		{"no default provider", func(c *Config) { c.Defaults.LLMProvider = "" }, "not set"},
		{"unknown default provider", func(c *Config) { c.Defaults.LLMProvider = "nope" }, "not configured"},
		{"disabled default provider", func(c *Config) { c.Defaults.LLMProvider = "openrouter" }, "disabled"},
		{"zero attempts", func(c *Config) { c.Generation.MaxAttempts = 0 }, "max_attempts"},
		{"negative chunk size", func(c *Config) { c.Chunking.MaxChunkSize = -1 }, "chunking"},
		{"negative backoff", func(c *Config) { c.Generation.ErrorBackoffSeconds = -5 }, "backoff"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.substr) {
				t.Errorf("error %q should mention %q", err, tt.substr)
			}
		})
	}
}

func TestResolveEnvVars(t *testing.T) {
	t.Run("resolves environment variable", func(t *testing.T) {
		t.Setenv("TEST_API_KEY", "secret123")

		result := ResolveEnvVars("${TEST_API_KEY}")
		if result != "secret123" {
			t.Errorf("expected secret123, got %s", result)
		}
	})

	t.Run("resolves inside a longer string", func(t *testing.T) {
		t.Setenv("TEST_HOST", "localhost")

		result := ResolveEnvVars("http://${TEST_HOST}:8080/v1")
		if result != "http://localhost:8080/v1" {
			t.Errorf("unexpected result %s", result)
		}
	})

	t.Run("returns empty for missing env var", func(t *testing.T) {
		result := ResolveEnvVars("${DEFINITELY_NOT_SET_12345}")
		if result != "" {
			t.Errorf("expected empty string, got %s", result)
		}
	})

	t.Run("leaves literal values unchanged", func(t *testing.T) {
		result := ResolveEnvVars("literal-value")
		if result != "literal-value" {
			t.Errorf("expected literal-value, got %s", result)
		}
	})
}

func TestNewManager(t *testing.T) {
	t.Run("loads from config file", func(t *testing.T) {
		configFile := writeConfig(t, t.TempDir(), `
llm_providers:
  local:
    type: openai
    model: llama3
    base_url: http://localhost:11434/v1
    api_key: unused
    enabled: true
defaults:
  llm_provider: local
paths:
  output: /data/out
generation:
  temperature: 0.2
`)

		mgr, err := NewManager(configFile, "")
		if err != nil {
			t.Fatalf("failed to create manager: %v", err)
		}

		cfg := mgr.Get()
		if cfg.Paths.Output != "/data/out" {
			t.Errorf("expected /data/out, got %s", cfg.Paths.Output)
		}
		if cfg.Generation.Temperature != 0.2 {
			t.Errorf("expected temperature 0.2, got %v", cfg.Generation.Temperature)
		}
		if cfg.Generation.MaxAttempts != 3 {
			t.Errorf("expected default max_attempts 3, got %d", cfg.Generation.MaxAttempts)
		}
		local, ok := cfg.GetLLMProvider("local")
		if !ok || local.BaseURL != "http://localhost:11434/v1" || !local.Enabled {
			t.Errorf("unexpected local provider: %+v", local)
		}
		if _, ok := cfg.GetLLMProvider("groq"); !ok {
			t.Error("default groq provider should survive a partial file")
		}
		if cfg.DefaultModel() != "llama3" {
			t.Errorf("DefaultModel() = %s", cfg.DefaultModel())
		}
		if mgr.FileUsed() != configFile {
			t.Errorf("FileUsed() = %s, want %s", mgr.FileUsed(), configFile)
		}
	})

	t.Run("finds config in search dir", func(t *testing.T) {
		dir := t.TempDir()
		configFile := writeConfig(t, dir, "chunking:\n  max_chunk_size: 1234\n")

		mgr, err := NewManager("", dir)
		if err != nil {
			t.Fatalf("failed to create manager: %v", err)
		}
		if mgr.Get().Chunking.MaxChunkSize != 1234 {
			t.Errorf("expected 1234, got %d", mgr.Get().Chunking.MaxChunkSize)
		}
		if mgr.FileUsed() != configFile {
			t.Errorf("FileUsed() = %s, want %s", mgr.FileUsed(), configFile)
		}
	})

	t.Run("environment overrides file", func(t *testing.T) {
		configFile := writeConfig(t, t.TempDir(), "paths:\n  output: /from/file\n")
		t.Setenv("TRAINSET_PATHS_OUTPUT", "/from/env")
		t.Setenv("TRAINSET_GENERATION_MAX_ATTEMPTS", "5")

		mgr, err := NewManager(configFile, "")
		if err != nil {
			t.Fatalf("failed to create manager: %v", err)
		}
		cfg := mgr.Get()
		if cfg.Paths.Output != "/from/env" {
			t.Errorf("expected /from/env, got %s", cfg.Paths.Output)
		}
		if cfg.Generation.MaxAttempts != 5 {
			t.Errorf("expected 5 attempts, got %d", cfg.Generation.MaxAttempts)
		}
	})

	t.Run("malformed file", func(t *testing.T) {
		configFile := writeConfig(t, t.TempDir(), "paths: [unterminated\n")
		if _, err := NewManager(configFile, ""); err == nil {
			t.Error("expected error for malformed config")
		}
	})
}

func TestConfig_ToProviderRegistryConfig(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "gsk-test")

	cfg := DefaultConfig()
	cfg.LLMProviders["groq"] = LLMProviderCfg{
		Type:           "groq",
		Model:          "m",
		APIKey:         "${GROQ_API_KEY}",
		RateLimit:      30,
		TimeoutSeconds: 10,
		Enabled:        true,
	}

	reg := cfg.ToProviderRegistryConfig()
	groq, ok := reg.LLMProviders["groq"]
	if !ok {
		t.Fatal("groq missing from registry config")
	}
	if groq.APIKey != "gsk-test" {
		t.Errorf("expected resolved key, got %s", groq.APIKey)
	}
	if groq.RateLimit != 30 || groq.TimeoutSeconds != 10 || groq.Type != "groq" {
		t.Errorf("fields not carried over: %+v", groq)
	}
	if len(reg.LLMProviders) != len(cfg.LLMProviders) {
		t.Errorf("expected %d providers, got %d", len(cfg.LLMProviders), len(reg.LLMProviders))
	}
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := WriteDefault(path); err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "# trainset configuration") {
		t.Error("expected header comment")
	}
	if !strings.Contains(string(data), "${GROQ_API_KEY}") {
		t.Error("API key placeholder should be written unresolved")
	}

	mgr, err := NewManager(path, "")
	if err != nil {
		t.Fatalf("written config should load: %v", err)
	}
	cfg := mgr.Get()
	want := DefaultConfig()
	if cfg.Generation != want.Generation || cfg.Chunking != want.Chunking || cfg.Defaults != want.Defaults {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", cfg, want)
	}
	if cfg.LLMProviders["groq"] != want.LLMProviders["groq"] {
		t.Errorf("groq mismatch: %+v", cfg.LLMProviders["groq"])
	}
}

func TestManager_OnChange_Multiple(t *testing.T) {
	mgr, err := NewManager(writeConfig(t, t.TempDir(), "paths:\n  output: out\n"), "")
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	mgr.OnChange(func(cfg *Config) {})
	mgr.OnChange(func(cfg *Config) {})
	mgr.OnChange(func(cfg *Config) {})

	mgr.mu.RLock()
	if len(mgr.callbacks) != 3 {
		t.Errorf("expected 3 callbacks, got %d", len(mgr.callbacks))
	}
	mgr.mu.RUnlock()
}

func TestManager_Get_ThreadSafe(t *testing.T) {
	mgr, err := NewManager(writeConfig(t, t.TempDir(), "paths:\n  output: out\n"), "")
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				_ = mgr.Get().Paths.Output
			}
			done <- struct{}{}
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}
}

func TestManager_WatchConfig(t *testing.T) {
	configFile := writeConfig(t, t.TempDir(), "generation:\n  temperature: 0.5\n")

	mgr, err := NewManager(configFile, "")
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}
	if got := mgr.Get().Generation.Temperature; got != 0.5 {
		t.Fatalf("initial temperature = %v", got)
	}

	var callbackCount atomic.Int32
	var lastValue atomic.Value

	mgr.OnChange(func(cfg *Config) {
		callbackCount.Add(1)
		lastValue.Store(cfg.Generation.Temperature)
	})

	mgr.WatchConfig()

	// Give fsnotify time to set up the watcher
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(configFile, []byte("generation:\n  temperature: 0.1\n"), 0o644); err != nil {
		t.Fatalf("failed to write updated config file: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if callbackCount.Load() > 0 && mgr.Get().Generation.Temperature == 0.1 {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	if callbackCount.Load() == 0 {
		t.Fatal("callback was not invoked after config file change")
	}
	if got := mgr.Get().Generation.Temperature; got != 0.1 {
		t.Errorf("config not updated: temperature = %v", got)
	}
	if v := lastValue.Load(); v != 0.1 {
		t.Errorf("callback received wrong value: %v", v)
	}
}
