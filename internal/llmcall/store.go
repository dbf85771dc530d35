package llmcall

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"
)

// QueryFilter specifies filters for listing LLM calls.
type QueryFilter struct {
	Dataset   string
	PromptKey string
	Success   *bool
	After     *time.Time
	Limit     int
}

func (f QueryFilter) match(c *Call) bool {
	if f.Dataset != "" && c.Dataset != f.Dataset {
		return false
	}
	if f.PromptKey != "" && c.PromptKey != f.PromptKey {
		return false
	}
	if f.Success != nil && c.Success != *f.Success {
		return false
	}
	if f.After != nil && !c.Timestamp.After(*f.After) {
		return false
	}
	return true
}

// List reads the call log at path and returns matching calls in log order.
// A missing log is empty. Lines that do not decode are skipped.
func List(path string, filter QueryFilter) ([]Call, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open call log: %w", err)
	}
	defer f.Close()

	var calls []Call
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		var c Call
		if err := json.Unmarshal(scanner.Bytes(), &c); err != nil {
			continue
		}
		if !filter.match(&c) {
			continue
		}
		calls = append(calls, c)
		if filter.Limit > 0 && len(calls) >= filter.Limit {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return calls, fmt.Errorf("failed to read call log: %w", err)
	}
	return calls, nil
}

// Summary aggregates calls per dataset.
type Summary struct {
	Calls        int `json:"calls" yaml:"calls"`
	Failures     int `json:"failures" yaml:"failures"`
	InputTokens  int `json:"input_tokens" yaml:"input_tokens"`
	OutputTokens int `json:"output_tokens" yaml:"output_tokens"`
}

// Summarize groups calls by dataset.
func Summarize(calls []Call) map[string]Summary {
	out := make(map[string]Summary)
	for _, c := range calls {
		s := out[c.Dataset]
		s.Calls++
		if !c.Success {
			s.Failures++
		}
		s.InputTokens += c.InputTokens
		s.OutputTokens += c.OutputTokens
		out[c.Dataset] = s
	}
	return out
}
