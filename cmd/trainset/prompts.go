package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/TheCaptainCodes/amar-ai/internal/api"
	"github.com/TheCaptainCodes/amar-ai/internal/generate"
	"github.com/TheCaptainCodes/amar-ai/internal/home"
	"github.com/TheCaptainCodes/amar-ai/internal/prompts"
)

// promptList is the output of "prompts list".
type promptList struct {
	Dir     string                   `json:"dir" yaml:"dir"`
	Prompts []prompts.ResolvedPrompt `json:"prompts" yaml:"prompts"`
}

func (l promptList) RenderText(w io.Writer) error {
	rows := make([][]string, 0, len(l.Prompts))
	for _, p := range l.Prompts {
		source := api.Dim("embedded")
		if p.IsOverride {
			source = api.Warn(p.Source)
		}
		rows = append(rows, []string{p.Key, p.Hash, strings.Join(p.Variables, ", "), source})
	}
	api.Table{
		Title:   "Prompts (overrides in " + l.Dir + ")",
		Headers: []string{"KEY", "HASH", "VARIABLES", "SOURCE"},
		Rows:    rows,
	}.Render(w)
	return nil
}

var promptsCmd = &cobra.Command{
	Use:   "prompts",
	Short: "Inspect and customise the generation prompts",
	Long: `Generation prompts are Go templates compiled into the binary. A file named
<key>.tmpl in the prompts directory of the trainset home replaces the
embedded template for that key. Overrides are re-read for every request.`,
}

var promptsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List prompt keys and where each one resolves from",
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := home.New(homeDir)
		if err != nil {
			return err
		}
		r := generate.NewPrompts(h.PromptsPath(), nil)
		all, err := r.ResolveAll()
		if err != nil {
			return err
		}
		return api.Output(promptList{Dir: r.Dir(), Prompts: all})
	},
}

var promptsInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Copy the embedded prompts into the prompts directory for editing",
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := home.New(homeDir)
		if err != nil {
			return err
		}
		written, err := generate.NewPrompts(h.PromptsPath(), nil).WriteDefaults()
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		if len(written) == 0 {
			fmt.Fprintln(w, api.Dim("all prompts already have override files"))
			return nil
		}
		for _, path := range written {
			fmt.Fprintf(w, "%s %s\n", api.Success("wrote"), path)
		}
		return nil
	},
}

func init() {
	promptsCmd.AddCommand(promptsListCmd)
	promptsCmd.AddCommand(promptsInitCmd)
}
