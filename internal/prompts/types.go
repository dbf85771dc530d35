// Package prompts resolves prompt templates from embedded defaults and
// optional file overrides.
//
// Resolution order for a key:
//  1. <override dir>/<key>.tmpl, if present
//  2. the embedded default registered under key
//
// Override files are read on every Resolve, so edits apply to the next
// request without a restart. Every resolved prompt carries a content hash
// that the call log records for traceability.
package prompts

// EmbeddedPrompt is a default prompt compiled into the binary.
type EmbeddedPrompt struct {
	Key         string   // e.g. "generate.user"
	Text        string   // Go template text
	Description string   // Human-readable description
	Variables   []string // Extracted template variables
	Hash        string   // Content hash of Text
}

// ResolvedPrompt is the prompt text chosen for a key.
type ResolvedPrompt struct {
	Key        string   `json:"key" yaml:"key"`
	Text       string   `json:"text" yaml:"text"`
	Variables  []string `json:"variables,omitempty" yaml:"variables,omitempty"`
	Hash       string   `json:"hash" yaml:"hash"`
	IsOverride bool     `json:"is_override" yaml:"is_override"`
	Source     string   `json:"source,omitempty" yaml:"source,omitempty"` // override file path
}
