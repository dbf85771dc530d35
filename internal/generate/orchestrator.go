// Package generate turns chunks into dataset records by calling an LLM.
//
// Each chunk runs through a small state machine:
//
//	pending -> requested -> succeeded    -> saved | unsaved
//	                     -> malformed
//	                     -> rate limited -> pending (sleep) | aborted
//	                     -> failed       -> pending (sleep) | abandoned
//
// Attempts are counted per chunk across both error kinds. The backoff base
// follows the kind of the error just seen and grows linearly with the attempt
// number. Records are appended to the dataset before the chunk is marked in
// the progress sidecar, so a crash in between replays the chunk.
package generate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/TheCaptainCodes/amar-ai/internal/chunker"
	"github.com/TheCaptainCodes/amar-ai/internal/dataset"
	"github.com/TheCaptainCodes/amar-ai/internal/llmcall"
	"github.com/TheCaptainCodes/amar-ai/internal/metrics"
	"github.com/TheCaptainCodes/amar-ai/internal/progress"
	"github.com/TheCaptainCodes/amar-ai/internal/prompts"
	"github.com/TheCaptainCodes/amar-ai/internal/providers"
)

// ErrRateLimitExhausted stops a document after a chunk hit the rate limit on
// every attempt. Progress is saved first.
var ErrRateLimitExhausted = errors.New("rate limit retries exhausted")

// Outcome is the terminal result of one chunk.
type Outcome string

const (
	OutcomeSkipped   Outcome = "skipped"   // already in the progress set
	OutcomeSaved     Outcome = "saved"     // records appended and chunk marked
	OutcomeMalformed Outcome = "malformed" // response had no usable JSON array
	OutcomeUnsaved   Outcome = "unsaved"   // dataset append failed, chunk not marked
	OutcomeAbandoned Outcome = "abandoned" // non-rate-limit errors on every attempt
	OutcomeAborted   Outcome = "aborted"   // rate limited on every attempt
)

type state int

const (
	statePending state = iota
	stateRequested
	stateSucceeded
	stateRateLimited
	stateFailed
)

// Settings controls requests and backoff.
type Settings struct {
	Model            string
	Temperature      float64
	MaxTokens        int
	MaxAttempts      int
	RateLimitBackoff time.Duration
	ErrorBackoff     time.Duration
	PreviewChars     int
}

// DefaultSettings returns the generation defaults.
func DefaultSettings() Settings {
	return Settings{
		Temperature:      0.7,
		MaxTokens:        1000,
		MaxAttempts:      3,
		RateLimitBackoff: 60 * time.Second,
		ErrorBackoff:     5 * time.Second,
		PreviewChars:     200,
	}
}

func (s Settings) withDefaults() Settings {
	d := DefaultSettings()
	if s.MaxAttempts <= 0 {
		s.MaxAttempts = d.MaxAttempts
	}
	if s.RateLimitBackoff <= 0 {
		s.RateLimitBackoff = d.RateLimitBackoff
	}
	if s.ErrorBackoff <= 0 {
		s.ErrorBackoff = d.ErrorBackoff
	}
	if s.PreviewChars <= 0 {
		s.PreviewChars = d.PreviewChars
	}
	return s
}

// Sleeper waits between attempts.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// SleeperFunc adapts a function to Sleeper.
type SleeperFunc func(ctx context.Context, d time.Duration) error

// Sleep calls f.
func (f SleeperFunc) Sleep(ctx context.Context, d time.Duration) error {
	return f(ctx, d)
}

// ContextSleeper sleeps for d or until ctx is done.
var ContextSleeper Sleeper = SleeperFunc(func(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
})

// Job is one document's worth of chunks bound for one dataset file.
type Job struct {
	Target   string
	Chunks   []chunker.Chunk
	Metadata dataset.Metadata
}

// Report summarises a Run.
type Report struct {
	Target   string          `json:"target" yaml:"target"`
	Total    int             `json:"total" yaml:"total"`
	Records  int             `json:"records" yaml:"records"`
	Outcomes map[int]Outcome `json:"outcomes" yaml:"outcomes"`
}

// Count returns how many chunks ended with outcome o.
func (r Report) Count(o Outcome) int {
	n := 0
	for _, got := range r.Outcomes {
		if got == o {
			n++
		}
	}
	return n
}

// Orchestrator drives chunks through generation and persistence.
type Orchestrator struct {
	Client   providers.LLMClient
	Writer   *dataset.Writer
	Progress *progress.Store
	Sleeper  Sleeper
	Logger   *slog.Logger
	Recorder *llmcall.Recorder
	Metrics  *metrics.Recorder
	Prompts  *prompts.Resolver
	Settings Settings
}

// New creates an orchestrator with default collaborators around client.
func New(client providers.LLMClient, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		Client:   client,
		Writer:   dataset.NewWriter(logger),
		Progress: progress.NewStore(logger),
		Sleeper:  ContextSleeper,
		Logger:   logger,
		Prompts:  NewPrompts("", logger),
		Settings: DefaultSettings(),
	}
}

func (o *Orchestrator) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

func (o *Orchestrator) sleeper() Sleeper {
	if o.Sleeper == nil {
		return ContextSleeper
	}
	return o.Sleeper
}

// Run processes every chunk of job not already recorded in the progress
// sidecar. It returns ErrRateLimitExhausted when a chunk stays rate limited,
// or the context error when cancelled; the Report covers the chunks handled.
func (o *Orchestrator) Run(ctx context.Context, job Job) (Report, error) {
	if o.Client == nil {
		return Report{}, errors.New("no LLM client configured")
	}
	if o.Writer == nil {
		o.Writer = dataset.NewWriter(o.Logger)
	}
	if o.Progress == nil {
		o.Progress = progress.NewStore(o.Logger)
	}
	settings := o.Settings.withDefaults()
	logger := o.logger().With("dataset", job.Target)

	report := Report{
		Target:   job.Target,
		Total:    len(job.Chunks),
		Outcomes: make(map[int]Outcome, len(job.Chunks)),
	}

	done := o.Progress.Load(job.Target)
	logger.Info("loaded progress", "processed_chunks", len(done))

	for _, chunk := range job.Chunks {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if done.Has(chunk.Index) {
			logger.Info("skipping already processed chunk", "chunk", chunk.Index, "of", len(job.Chunks))
			o.finish(&report, job.Target, chunk.Index, OutcomeSkipped)
			continue
		}

		outcome, added, err := o.processChunk(ctx, logger, settings, job, chunk, done)
		if err != nil {
			return report, err
		}
		report.Records += added
		o.finish(&report, job.Target, chunk.Index, outcome)

		if outcome == OutcomeAborted {
			logger.Warn("max retries reached for rate limit, saving progress and stopping", "chunk", chunk.Index)
			if err := o.Progress.Save(job.Target, done); err != nil {
				logger.Error("failed to save progress", "error", err)
			}
			return report, ErrRateLimitExhausted
		}
	}

	logger.Info("finished document",
		"chunks", report.Total,
		"saved", report.Count(OutcomeSaved),
		"skipped", report.Count(OutcomeSkipped),
		"records", report.Records)
	return report, nil
}

func (o *Orchestrator) finish(report *Report, target string, index int, outcome Outcome) {
	report.Outcomes[index] = outcome
	o.Metrics.RecordChunk(target, string(outcome))
}

// processChunk runs one chunk to a terminal outcome. It only returns an error
// when ctx is cancelled.
func (o *Orchestrator) processChunk(
	ctx context.Context,
	logger *slog.Logger,
	settings Settings,
	job Job,
	chunk chunker.Chunk,
	done progress.Set,
) (Outcome, int, error) {
	logger = logger.With("chunk", chunk.Index, "of", len(job.Chunks))
	logger.Info("processing chunk", "size", chunk.Len(), "preview", Preview(chunk.Text, settings.PreviewChars))

	msgs := o.messages(logger, chunk.Text, job.Metadata)
	req := &providers.ChatRequest{
		Messages: []providers.Message{
			providers.SystemMessage(msgs.System),
			providers.UserMessage(msgs.User),
		},
		Model:       settings.Model,
		Temperature: settings.Temperature,
		MaxTokens:   settings.MaxTokens,
	}
	key := promptKey(chunk.Text)

	var (
		st      = statePending
		attempt int
		lastErr error
		records []dataset.Record
	)
	for {
		switch st {
		case statePending:
			attempt++
			st = stateRequested

		case stateRequested:
			req.RequestID = uuid.New().String()
			logger.Info("sending request", "attempt", attempt, "provider", o.Client.Name())
			result, err := o.call(ctx, req, llmcall.RecordOptions{
				Dataset:     job.Target,
				ChunkIndex:  chunk.Index,
				Attempt:     attempt,
				PromptKey:   key,
				PromptHash:  msgs.Hash,
				Temperature: &settings.Temperature,
			})
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return "", 0, ctxErr
				}
				lastErr = err
				logger.Warn("error generating questions", "attempt", attempt, "error", err)
				if providers.IsRateLimited(err) {
					st = stateRateLimited
				} else {
					st = stateFailed
				}
				continue
			}

			logger.Info("received response", "preview", Preview(result.Content, settings.PreviewChars))
			parsed, err := ParseResponse(result.Content, job.Metadata)
			if err != nil {
				logger.Warn("discarding malformed response", "error", err)
				return OutcomeMalformed, 0, nil
			}
			records = parsed
			logger.Info("generated questions", "count", len(records))
			st = stateSucceeded

		case stateSucceeded:
			if err := o.Writer.Append(job.Target, records); err != nil {
				logger.Error("failed to save questions", "error", err)
				return OutcomeUnsaved, 0, nil
			}
			o.Metrics.RecordRecords(job.Target, len(records))
			done.Add(chunk.Index)
			if err := o.Progress.Save(job.Target, done); err != nil {
				logger.Error("failed to save progress", "error", err)
			}
			return OutcomeSaved, len(records), nil

		case stateRateLimited:
			if attempt >= settings.MaxAttempts {
				return OutcomeAborted, 0, nil
			}
			wait := settings.RateLimitBackoff * time.Duration(attempt)
			if rl, ok := providers.IsRateLimitError(lastErr); ok && rl.RetryAfter > wait {
				wait = rl.RetryAfter
			}
			logger.Warn("rate limit reached, waiting before retry", "wait", wait)
			if err := o.backoff(ctx, "rate_limit", wait); err != nil {
				return "", 0, err
			}
			st = statePending

		case stateFailed:
			if attempt >= settings.MaxAttempts {
				logger.Warn("max retries reached, moving to next chunk", "error", lastErr)
				return OutcomeAbandoned, 0, nil
			}
			wait := settings.ErrorBackoff * time.Duration(attempt)
			logger.Warn("error occurred, waiting before retry", "wait", wait)
			if err := o.backoff(ctx, "error", wait); err != nil {
				return "", 0, err
			}
			st = statePending

		default:
			return "", 0, fmt.Errorf("unknown chunk state %d", st)
		}
	}
}

// messages renders the prompts for one chunk, falling back to the embedded
// templates when an override does not render.
func (o *Orchestrator) messages(logger *slog.Logger, text string, md dataset.Metadata) renderedPrompts {
	r := o.Prompts
	if r == nil {
		r = defaultPrompts
	}
	msgs, err := renderPrompts(r, text, md)
	if err == nil {
		return msgs
	}
	logger.Warn("prompt override failed, using embedded prompt", "error", err)
	msgs, err = renderPrompts(defaultPrompts, text, md)
	if err != nil {
		return renderedPrompts{System: SystemPrompt(), User: userPromptTmpl + "\n" + text}
	}
	return msgs
}

func (o *Orchestrator) call(ctx context.Context, req *providers.ChatRequest, opts llmcall.RecordOptions) (*providers.ChatResult, error) {
	result, err := o.Client.Chat(ctx, req)
	o.Recorder.Record(result, err, opts)
	o.Metrics.RecordLLMCall(o.Client.Name(), result, err)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, errors.New("empty result from LLM client")
	}
	return result, nil
}

func (o *Orchestrator) backoff(ctx context.Context, reason string, d time.Duration) error {
	o.Metrics.RecordBackoff(reason, d)
	return o.sleeper().Sleep(ctx, d)
}

// Preview returns at most n characters of s.
func Preview(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "..."
}
