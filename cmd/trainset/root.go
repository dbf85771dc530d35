package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/TheCaptainCodes/amar-ai/internal/api"
	"github.com/TheCaptainCodes/amar-ai/internal/chunker"
	"github.com/TheCaptainCodes/amar-ai/internal/config"
	"github.com/TheCaptainCodes/amar-ai/internal/generate"
	"github.com/TheCaptainCodes/amar-ai/internal/home"
	"github.com/TheCaptainCodes/amar-ai/internal/llmcall"
	"github.com/TheCaptainCodes/amar-ai/internal/metrics"
	"github.com/TheCaptainCodes/amar-ai/internal/pipeline"
	"github.com/TheCaptainCodes/amar-ai/internal/progress"
	"github.com/TheCaptainCodes/amar-ai/internal/providers"
	"github.com/TheCaptainCodes/amar-ai/version"
)

var (
	cfgFile      string
	homeDir      string
	outputFormat string
	logLevel     string
)

var rootCmd = &cobra.Command{
	Use:   "trainset",
	Short: "Turn textbooks into an instruction-tuning dataset",
	Long: `trainset converts plain-text textbooks into question/answer training data.

Each book under <source>/<class>/<Subject>.txt is split into chunks, labelled
with chapter and topic metadata and sent to an LLM that writes 2-3 question
and answer pairs per chunk. Results are appended to <output>/<subject>.json.

Runs are resumable: finished chunks are tracked in a .progress sidecar next to
each dataset, and books that are already complete are skipped.`,
	Version:       version.GitRelease,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.trainset/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "trainset home directory (default: ~/.trainset)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "text", "output format: text, yaml or json",
	)
	rootCmd.PersistentFlags().StringVar(
		&logLevel, "log-level", "info", "log level: debug, info, warn or error",
	)

	// Set output format before any command runs
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		api.SetOutputFormat(outputFormat)
	}

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(chunksCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(promptsCmd)
	rootCmd.AddCommand(versionCmd)
}

// app bundles what every command needs after flags are parsed.
type app struct {
	home   *home.Dir
	config *config.Manager
	logger *slog.Logger
}

func newLogger(level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	// Logs go to stderr so stdout stays parseable with -o json.
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: lvl,
	})), nil
}

func loadApp() (*app, error) {
	logger, err := newLogger(logLevel)
	if err != nil {
		return nil, err
	}

	h, err := home.New(homeDir)
	if err != nil {
		return nil, err
	}

	mgr, err := config.NewManager(cfgFile, h.Path())
	if err != nil {
		return nil, err
	}
	mgr.SetLogger(logger)

	cfg := mgr.Get()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if used := mgr.FileUsed(); used != "" {
		logger.Debug("loaded config", "file", used)
	}

	return &app{
		home:   h.WithPaths(cfg.Paths.Source, cfg.Paths.Output),
		config: mgr,
		logger: logger,
	}, nil
}

func settingsFrom(cfg *config.Config) generate.Settings {
	s := generate.DefaultSettings()
	s.Model = cfg.DefaultModel()
	s.Temperature = cfg.Generation.Temperature
	s.MaxTokens = cfg.Generation.MaxTokens
	s.MaxAttempts = cfg.Generation.MaxAttempts
	s.RateLimitBackoff = cfg.Generation.RateLimitBackoff()
	s.ErrorBackoff = cfg.Generation.ErrorBackoff()
	return s
}

func chunkOptions(cfg *config.Config) chunker.Options {
	return chunker.Options{
		MaxChunkSize: cfg.Chunking.MaxChunkSize,
		MinLength:    cfg.Chunking.MinLength,
	}
}

// inspector builds a runner that never calls a provider.
func (a *app) inspector() *pipeline.Runner {
	cfg := a.config.Get()
	return &pipeline.Runner{
		Home:       a.home,
		Progress:   progress.NewStore(a.logger),
		Chunking:   chunkOptions(cfg),
		BookPrefix: cfg.Generation.BookPrefix,
		Logger:     a.logger,
	}
}

// runner wires the full generation stack for the default provider.
func (a *app) runner() (*pipeline.Runner, *providers.Registry, error) {
	cfg := a.config.Get()

	registry := providers.NewRegistryFromConfig(cfg.ToProviderRegistryConfig(), a.logger)
	name := cfg.Defaults.LLMProvider
	if !registry.HasLLM(name) {
		p, _ := cfg.GetLLMProvider(name)
		return nil, nil, fmt.Errorf("llm provider %q is not usable: check that its api_key (%s) resolves", name, apiKeyHint(p.APIKey))
	}

	orch := generate.New(registry.Named(name), a.logger)
	orch.Settings = settingsFrom(cfg)
	orch.Recorder = llmcall.NewRecorder(filepath.Join(a.home.OutputPath(), llmcall.FileName), a.logger)
	orch.Metrics = metrics.NewRecorder()
	orch.Prompts = generate.NewPrompts(a.home.PromptsPath(), a.logger)

	r := pipeline.NewRunner(a.home, orch, a.logger)
	r.Chunking = chunkOptions(cfg)
	r.BookPrefix = cfg.Generation.BookPrefix
	r.MetricsTextfile = cfg.Metrics.Textfile
	return r, registry, nil
}

var envRefRe = regexp.MustCompile(`\$\{([^}]+)\}`)

// apiKeyHint describes a configured api_key without revealing a literal secret.
func apiKeyHint(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return "empty"
	}
	refs := envRefRe.FindAllString(raw, -1)
	if len(refs) == 0 {
		return "literal value set"
	}
	return strings.Join(refs, ", ")
}
