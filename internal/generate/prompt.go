package generate

import (
	_ "embed"
	"log/slog"
	"regexp"
	"strings"

	"github.com/TheCaptainCodes/amar-ai/internal/dataset"
	"github.com/TheCaptainCodes/amar-ai/internal/prompts"
)

//go:embed system.tmpl
var systemPrompt string

//go:embed user.tmpl
var userPromptTmpl string

// Template keys; override files are named <key>.tmpl.
const (
	SystemPromptKey = "generate.system"
	UserPromptKey   = "generate.user"
)

// Prompt variants recorded in the call log.
const (
	PromptKey         = "qa_pairs"
	ExercisePromptKey = "qa_pairs_exercise"
)

var exerciseRe = regexp.MustCompile(`(?i)(?:Example|Exercise|Problem|Question)\s+\d+`)

// HasExercises reports whether text contains a numbered example, exercise,
// problem or question.
func HasExercises(text string) bool {
	return exerciseRe.MatchString(text)
}

// RegisterPrompts adds the embedded generation prompts to r.
func RegisterPrompts(r *prompts.Resolver) {
	r.Register(prompts.EmbeddedPrompt{
		Key:         SystemPromptKey,
		Text:        systemPrompt,
		Description: "System instruction sent with every chunk",
	})
	r.Register(prompts.EmbeddedPrompt{
		Key:         UserPromptKey,
		Text:        userPromptTmpl,
		Description: "Per-chunk request; receives .Text, .Metadata and .HasExercises",
	})
}

// NewPrompts returns a resolver with the generation prompts registered.
// dir holds optional overrides and may be empty.
func NewPrompts(dir string, logger *slog.Logger) *prompts.Resolver {
	r := prompts.NewResolver(dir, logger)
	RegisterPrompts(r)
	return r
}

var defaultPrompts = NewPrompts("", slog.Default())

type promptData struct {
	Text         string
	Metadata     dataset.Metadata
	HasExercises bool
}

// renderedPrompts is the message pair for one chunk.
type renderedPrompts struct {
	System string
	User   string
	Hash   string // combined hash of both templates
}

func renderPrompts(r *prompts.Resolver, text string, md dataset.Metadata) (renderedPrompts, error) {
	sys, err := r.Resolve(SystemPromptKey)
	if err != nil {
		return renderedPrompts{}, err
	}
	user, err := r.Resolve(UserPromptKey)
	if err != nil {
		return renderedPrompts{}, err
	}
	body, err := prompts.Render(UserPromptKey, user.Text, promptData{
		Text:         text,
		Metadata:     md,
		HasExercises: HasExercises(text),
	})
	if err != nil {
		return renderedPrompts{}, err
	}
	return renderedPrompts{
		System: strings.TrimSpace(sys.Text),
		User:   body,
		Hash:   prompts.HashText(sys.Hash + user.Hash),
	}, nil
}

// SystemPrompt returns the embedded system instruction.
func SystemPrompt() string {
	return strings.TrimSpace(systemPrompt)
}

// UserPrompt renders the embedded user prompt for one chunk.
func UserPrompt(text string, md dataset.Metadata) string {
	p, err := renderPrompts(defaultPrompts, text, md)
	if err != nil {
		return userPromptTmpl + "\n" + text
	}
	return p.User
}

// promptKey names the prompt variant used for text.
func promptKey(text string) string {
	if HasExercises(text) {
		return ExercisePromptKey
	}
	return PromptKey
}
