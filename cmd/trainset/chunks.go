package main

import (
	"github.com/spf13/cobra"

	"github.com/TheCaptainCodes/amar-ai/internal/api"
)

var chunksCmd = &cobra.Command{
	Use:   "chunks <file>",
	Short: "Show how a textbook would be chunked, without calling the LLM",
	Long: `Chunks splits a source file with the configured chunking options and shows
the metadata each request would carry, the prompt template chosen for every
chunk and whether the chunk is already recorded as done.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		report, err := a.inspector().Inspect(args[0])
		if err != nil {
			return err
		}
		return api.Output(report)
	},
}
