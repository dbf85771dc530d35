package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/TheCaptainCodes/amar-ai/internal/api"
	"github.com/TheCaptainCodes/amar-ai/internal/config"
	"github.com/TheCaptainCodes/amar-ai/internal/pipeline"
)

var (
	genSubject  string
	genReset    bool
	genWatch    bool
	genDebounce time.Duration
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate training data for every textbook that is not complete",
	Long: `Generate walks the source tree, skips books whose datasets are already
complete and resumes the rest from their progress sidecars.

With --watch the command keeps running after the first pass. New or rewritten
books are processed after writes settle, and edits to the config file are
applied before the next book starts.`,
	Example: `  trainset generate
  trainset generate --subject physics
  trainset generate --subject physics --reset
  trainset generate --watch`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := loadApp()
		if err != nil {
			return err
		}
		if err := a.home.EnsureExists(); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}

		runner, registry, err := a.runner()
		if err != nil {
			return err
		}
		opts := pipeline.Options{Subject: genSubject, Reset: genReset}

		if genWatch {
			a.config.OnChange(func(cfg *config.Config) {
				registry.Reload(cfg.ToProviderRegistryConfig())
				runner.UpdateSettings(settingsFrom(cfg))
				a.logger.Info("applied config change", "provider", cfg.Defaults.LLMProvider, "model", cfg.DefaultModel())
			})
			a.config.WatchConfig()
			// The first pass runs with the initial options; a reset is
			// never repeated for later changes.
			return runner.Watch(ctx, opts, genDebounce)
		}

		summary, err := runner.Run(ctx, opts)
		if err != nil {
			return err
		}
		a.logger.Info("run finished", "documents", len(summary.Documents), "records", summary.Records())
		return api.Output(summary)
	},
}

func init() {
	generateCmd.Flags().StringVar(&genSubject, "subject", "", "only process books with this subject")
	generateCmd.Flags().BoolVar(&genReset, "reset", false, "delete the selected datasets and progress before running")
	generateCmd.Flags().BoolVar(&genWatch, "watch", false, "keep running and process changed books")
	generateCmd.Flags().DurationVar(&genDebounce, "debounce", pipeline.DefaultDebounce, "how long to wait for writes to settle in watch mode")
}
