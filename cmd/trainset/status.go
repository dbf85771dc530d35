package main

import (
	"io"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/TheCaptainCodes/amar-ai/internal/api"
	"github.com/TheCaptainCodes/amar-ai/internal/llmcall"
	"github.com/TheCaptainCodes/amar-ai/internal/pipeline"
	"github.com/TheCaptainCodes/amar-ai/internal/progress"
)

// statusOutput adds call log totals to the dataset scan.
type statusOutput struct {
	pipeline.StatusReport `yaml:",inline"`
	Calls                 map[string]llmcall.Summary `json:"calls,omitempty" yaml:"calls,omitempty"`
}

func (s statusOutput) RenderText(w io.Writer) error {
	if err := s.StatusReport.RenderText(w); err != nil {
		return err
	}
	if len(s.Calls) == 0 {
		return nil
	}

	datasets := make([]string, 0, len(s.Calls))
	for d := range s.Calls {
		datasets = append(datasets, d)
	}
	sort.Strings(datasets)

	rows := make([][]string, 0, len(datasets))
	for _, d := range datasets {
		sum := s.Calls[d]
		rows = append(rows, []string{
			filepath.Base(d),
			api.FormatNumber(sum.Calls),
			api.FormatNumber(sum.Failures),
			api.FormatNumber(sum.InputTokens),
			api.FormatNumber(sum.OutputTokens),
		})
	}
	api.Table{
		Title:   "LLM calls",
		Headers: []string{"DATASET", "CALLS", "FAILED", "IN TOKENS", "OUT TOKENS"},
		Rows:    rows,
	}.Render(w)
	return nil
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which textbooks are new, partial or complete",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}

		report, err := pipeline.Scan(a.home, progress.NewStore(a.logger))
		if err != nil {
			return err
		}

		calls, err := llmcall.List(filepath.Join(a.home.OutputPath(), llmcall.FileName), llmcall.QueryFilter{})
		if err != nil {
			a.logger.Warn("failed to read call log", "error", err)
		}

		return api.Output(statusOutput{
			StatusReport: report,
			Calls:        llmcall.Summarize(calls),
		})
	},
}
