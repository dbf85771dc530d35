package prompts

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"text/template"
)

// FileExt is the extension of override files.
const FileExt = ".tmpl"

// Resolver resolves prompts with file overrides.
// Resolution order: override file > embedded default
type Resolver struct {
	dir      string
	embedded map[string]EmbeddedPrompt
	mu       sync.RWMutex
	logger   *slog.Logger
}

// NewResolver creates a resolver that looks for overrides in dir.
// An empty dir disables overrides.
func NewResolver(dir string, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		dir:      dir,
		embedded: make(map[string]EmbeddedPrompt),
		logger:   logger,
	}
}

// Dir returns the override directory.
func (r *Resolver) Dir() string {
	return r.dir
}

// Register registers an embedded default. It panics if the text does not
// parse, since embedded prompts are fixed at build time.
func (r *Resolver) Register(prompt EmbeddedPrompt) {
	template.Must(template.New(prompt.Key).Parse(prompt.Text))

	if prompt.Hash == "" {
		prompt.Hash = HashText(prompt.Text)
	}
	if prompt.Variables == nil {
		prompt.Variables = ExtractVariables(prompt.Text)
	}

	r.mu.Lock()
	r.embedded[prompt.Key] = prompt
	r.mu.Unlock()
	r.logger.Debug("registered embedded prompt", "key", prompt.Key, "vars", prompt.Variables)
}

// OverridePath returns where an override for key would live.
func (r *Resolver) OverridePath(key string) string {
	if r.dir == "" {
		return ""
	}
	return filepath.Join(r.dir, key+FileExt)
}

// Resolve returns the override for key if one exists and parses, otherwise
// the embedded default. An override that fails to parse is logged and
// ignored.
func (r *Resolver) Resolve(key string) (ResolvedPrompt, error) {
	if path := r.OverridePath(key); path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			text := string(data)
			if _, perr := template.New(key).Parse(text); perr != nil {
				r.logger.Warn("ignoring invalid prompt override", "key", key, "path", path, "error", perr)
				break
			}
			return ResolvedPrompt{
				Key:        key,
				Text:       text,
				Variables:  ExtractVariables(text),
				Hash:       HashText(text),
				IsOverride: true,
				Source:     path,
			}, nil
		case !errors.Is(err, os.ErrNotExist):
			r.logger.Warn("failed to read prompt override", "key", key, "path", path, "error", err)
		}
	}

	r.mu.RLock()
	embedded, ok := r.embedded[key]
	r.mu.RUnlock()
	if !ok {
		return ResolvedPrompt{}, fmt.Errorf("prompt not found: %s", key)
	}
	return ResolvedPrompt{
		Key:       key,
		Text:      embedded.Text,
		Variables: embedded.Variables,
		Hash:      embedded.Hash,
	}, nil
}

// GetEmbedded returns the embedded default for a key, ignoring overrides.
func (r *Resolver) GetEmbedded(key string) (EmbeddedPrompt, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.embedded[key]
	return p, ok
}

// Keys returns the registered keys in sorted order.
func (r *Resolver) Keys() []string {
	r.mu.RLock()
	keys := make([]string, 0, len(r.embedded))
	for k := range r.embedded {
		keys = append(keys, k)
	}
	r.mu.RUnlock()
	sort.Strings(keys)
	return keys
}

// ResolveAll resolves every registered key.
func (r *Resolver) ResolveAll() ([]ResolvedPrompt, error) {
	keys := r.Keys()
	out := make([]ResolvedPrompt, 0, len(keys))
	for _, k := range keys {
		p, err := r.Resolve(k)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// WriteDefaults writes every embedded default into the override directory,
// skipping files that already exist. It returns the paths written.
func (r *Resolver) WriteDefaults() ([]string, error) {
	if r.dir == "" {
		return nil, errors.New("no prompt override directory configured")
	}
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create prompt directory: %w", err)
	}

	var written []string
	for _, k := range r.Keys() {
		p, _ := r.GetEmbedded(k)
		path := r.OverridePath(k)
		if _, err := os.Stat(path); err == nil {
			continue
		}
		if err := os.WriteFile(path, []byte(p.Text), 0o644); err != nil {
			return written, fmt.Errorf("failed to write %s: %w", path, err)
		}
		written = append(written, path)
	}
	return written, nil
}
