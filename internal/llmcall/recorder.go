package llmcall

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/TheCaptainCodes/amar-ai/internal/providers"
)

// FileName is the call log written into the output directory.
const FileName = "calls.jsonl"

// Recorder appends calls to a JSONL file. A nil Recorder discards calls.
type Recorder struct {
	mu     sync.Mutex
	path   string
	logger *slog.Logger
}

// NewRecorder creates a recorder writing to path.
func NewRecorder(path string, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{path: path, logger: logger}
}

// Path returns the log file location.
func (r *Recorder) Path() string {
	if r == nil {
		return ""
	}
	return r.path
}

// Record captures a call. Failures are logged, never returned: losing a trace
// line must not stop generation.
func (r *Recorder) Record(result *providers.ChatResult, err error, opts RecordOptions) {
	if r == nil {
		return
	}
	r.RecordCall(FromChatResult(result, err, opts))
}

// RecordCall appends an already-constructed Call.
func (r *Recorder) RecordCall(call *Call) {
	if r == nil || call == nil {
		return
	}
	if err := r.append(call); err != nil {
		r.logger.Warn("failed to record LLM call", "path", r.path, "error", err)
	}
}

func (r *Recorder) append(call *Call) error {
	line, err := json.Marshal(call)
	if err != nil {
		return fmt.Errorf("failed to marshal call: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("failed to create call log dir: %w", err)
	}
	f, err := os.OpenFile(r.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open call log: %w", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		f.Close()
		return fmt.Errorf("failed to write call log: %w", err)
	}
	return f.Close()
}
