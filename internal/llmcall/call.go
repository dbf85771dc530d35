// Package llmcall records every generation call for traceability.
// Calls are appended as JSON lines next to the datasets they produced.
package llmcall

import (
	"time"

	"github.com/google/uuid"

	"github.com/TheCaptainCodes/amar-ai/internal/providers"
)

// Call represents a recorded LLM API call.
type Call struct {
	ID string `json:"id"`

	Timestamp time.Time `json:"timestamp"`
	LatencyMs int       `json:"latency_ms"`

	// Context references
	Dataset    string `json:"dataset,omitempty"`
	ChunkIndex int    `json:"chunk_index,omitempty"`
	Attempt    int    `json:"attempt,omitempty"`

	// Prompt traceability
	PromptKey  string `json:"prompt_key"`
	PromptHash string `json:"prompt_hash,omitempty"` // identifies the template version used

	Provider    string   `json:"provider"`
	Model       string   `json:"model"`
	Temperature *float64 `json:"temperature,omitempty"`

	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`

	Response string `json:"response"`

	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// RecordOptions provides context for recording an LLM call.
type RecordOptions struct {
	Dataset    string
	ChunkIndex int
	Attempt    int

	PromptKey  string
	PromptHash string

	// Pointer to distinguish "not set" from "set to 0"
	Temperature *float64
}

// FromChatResult creates a Call from a ChatResult.
// A nil result (the client failed before producing one) records err only.
func FromChatResult(result *providers.ChatResult, err error, opts RecordOptions) *Call {
	call := &Call{
		ID:          uuid.New().String(),
		Timestamp:   time.Now(),
		Dataset:     opts.Dataset,
		ChunkIndex:  opts.ChunkIndex,
		Attempt:     opts.Attempt,
		PromptKey:   opts.PromptKey,
		PromptHash:  opts.PromptHash,
		Temperature: opts.Temperature,
	}

	if result != nil {
		call.LatencyMs = int(result.ExecutionTime.Milliseconds())
		call.Provider = result.Provider
		call.Model = result.ModelUsed
		call.InputTokens = result.PromptTokens
		call.OutputTokens = result.CompletionTokens
		call.Response = result.Content
		call.Success = result.Success
		if !result.Success {
			call.Error = result.ErrorMessage
		}
	}
	if err != nil {
		call.Success = false
		call.Error = err.Error()
	}
	return call
}
