package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/TheCaptainCodes/amar-ai/internal/api"
	"github.com/TheCaptainCodes/amar-ai/internal/chunker"
	"github.com/TheCaptainCodes/amar-ai/internal/dataset"
	"github.com/TheCaptainCodes/amar-ai/internal/generate"
	"github.com/TheCaptainCodes/amar-ai/internal/home"
	"github.com/TheCaptainCodes/amar-ai/internal/metadata"
	"github.com/TheCaptainCodes/amar-ai/internal/metrics"
	"github.com/TheCaptainCodes/amar-ai/internal/progress"
)

// Document result states.
const (
	ResultSkipped   = "skipped"   // already complete
	ResultProcessed = "processed" // every chunk reached a terminal outcome
	ResultAborted   = "aborted"   // stopped by rate limiting, resumable
	ResultFailed    = "failed"    // could not be read or prepared
)

// Options selects what Run processes.
type Options struct {
	// Subject limits the run to sources with this subject (case-insensitive).
	Subject string
	// Reset deletes the selected datasets and their progress before running.
	Reset bool
}

// DocumentResult describes one document of a run.
type DocumentResult struct {
	Source  string        `json:"source" yaml:"source"`
	Subject string        `json:"subject" yaml:"subject"`
	Dataset string        `json:"dataset" yaml:"dataset"`
	Result  string        `json:"result" yaml:"result"`
	Chunks  int           `json:"chunks" yaml:"chunks"`
	Saved   int           `json:"saved" yaml:"saved"`
	Skipped int           `json:"skipped" yaml:"skipped"`
	Failed  int           `json:"failed" yaml:"failed"`
	Records int           `json:"records" yaml:"records"`
	Elapsed time.Duration `json:"elapsed" yaml:"elapsed"`
	Error   string        `json:"error,omitempty" yaml:"error,omitempty"`
}

// Summary is the result of Run.
type Summary struct {
	Documents []DocumentResult `json:"documents" yaml:"documents"`
}

// Records returns the number of records added across documents.
func (s Summary) Records() int {
	n := 0
	for _, d := range s.Documents {
		n += d.Records
	}
	return n
}

// RenderText implements api.TextRenderer.
func (s Summary) RenderText(w io.Writer) error {
	rows := make([][]string, 0, len(s.Documents))
	for _, d := range s.Documents {
		result := d.Result
		switch d.Result {
		case ResultProcessed:
			result = api.Success(result)
		case ResultAborted:
			result = api.Warn(result)
		case ResultFailed:
			result = api.Error(result)
		}
		rows = append(rows, []string{
			d.Subject,
			result,
			strconv.Itoa(d.Chunks),
			strconv.Itoa(d.Saved),
			strconv.Itoa(d.Skipped),
			strconv.Itoa(d.Failed),
			api.FormatNumber(d.Records),
			d.Error,
		})
	}
	api.Table{
		Title:   "Generation run",
		Headers: []string{"SUBJECT", "RESULT", "CHUNKS", "SAVED", "SKIPPED", "FAILED", "RECORDS", "ERROR"},
		Rows:    rows,
		Empty:   "nothing to process",
	}.Render(w)
	fmt.Fprintln(w, api.Dim("records added: "+api.FormatNumber(s.Records())))
	return nil
}

// Runner processes source documents sequentially.
type Runner struct {
	Home         *home.Dir
	Orchestrator *generate.Orchestrator
	Writer       *dataset.Writer
	Progress     *progress.Store
	Chunking     chunker.Options
	BookPrefix   string
	Metrics      *metrics.Recorder
	// MetricsTextfile, when set, receives a metrics snapshot after each document.
	MetricsTextfile string
	Logger          *slog.Logger

	pending    atomic.Pointer[generate.Settings]
	watchReady func()
}

// NewRunner wires a Runner around an orchestrator, sharing its writer and
// progress store.
func NewRunner(dir *home.Dir, orch *generate.Orchestrator, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if orch.Writer == nil {
		orch.Writer = dataset.NewWriter(logger)
	}
	if orch.Progress == nil {
		orch.Progress = progress.NewStore(logger)
	}
	return &Runner{
		Home:         dir,
		Orchestrator: orch,
		Writer:       orch.Writer,
		Progress:     orch.Progress,
		BookPrefix:   DefaultBookPrefix,
		Metrics:      orch.Metrics,
		Logger:       logger,
	}
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}

// UpdateSettings replaces the generation settings before the next document.
// It is safe to call from another goroutine, e.g. a config reload callback.
func (r *Runner) UpdateSettings(s generate.Settings) {
	r.pending.Store(&s)
}

func (r *Runner) applyPendingSettings() {
	if s := r.pending.Swap(nil); s != nil {
		r.Orchestrator.Settings = *s
		r.logger().Info("applied updated generation settings",
			"model", s.Model, "temperature", s.Temperature, "max_tokens", s.MaxTokens)
	}
}

// Select filters sources by subject. An empty subject selects everything.
func Select(sources []string, subject string) []string {
	if subject == "" {
		return sources
	}
	var out []string
	for _, src := range sources {
		if strings.EqualFold(SubjectOf(src), subject) {
			out = append(out, src)
		}
	}
	return out
}

// Reset deletes the dataset and progress sidecar of subject.
func (r *Runner) Reset(subject string) error {
	target := r.Home.DatasetPath(subject)
	if err := removeIfExists(target); err != nil {
		return fmt.Errorf("failed to remove dataset: %w", err)
	}
	if err := r.Progress.Remove(target); err != nil {
		return err
	}
	r.logger().Info("reset subject", "subject", subject, "dataset", target)
	return nil
}

// Run scans the source root and processes every document that is not
// already complete. Per-document failures are logged and reported; only
// setup errors and context cancellation are returned.
func (r *Runner) Run(ctx context.Context, opts Options) (Summary, error) {
	var summary Summary
	logger := r.logger()

	if !r.Home.SourceExists() {
		return summary, fmt.Errorf("source directory %s does not exist", r.Home.SourcePath())
	}
	if err := r.Home.EnsureExists(); err != nil {
		return summary, err
	}
	logger.Info("starting training data generation", "source", r.Home.SourcePath(), "output", r.Home.OutputPath())

	sources, err := Discover(r.Home.SourcePath())
	if err != nil {
		return summary, err
	}
	sources = Select(sources, opts.Subject)
	if opts.Subject != "" && len(sources) == 0 {
		return summary, fmt.Errorf("no source documents for subject %q", opts.Subject)
	}

	if opts.Reset {
		seen := make(map[string]bool)
		for _, src := range sources {
			subject := strings.ToLower(SubjectOf(src))
			if seen[subject] {
				continue
			}
			seen[subject] = true
			if err := r.Reset(subject); err != nil {
				return summary, err
			}
		}
	}

	scan := r.scan(sources)
	logger.Info("scanned sources",
		"total", len(sources),
		"complete", scan.Count(StateComplete),
		"partial", scan.Count(StatePartial))
	for _, s := range scan.Subjects {
		if s.State == StatePartial {
			logger.Info("found partially processed file", "source", s.Source, "reason", s.Reason)
		}
	}

	for i, src := range sources {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if st, ok := scan.Lookup(src); ok && st.State == StateComplete {
			logger.Info("skipping completely processed file", "file", i+1, "of", len(sources), "source", src)
			summary.Documents = append(summary.Documents, DocumentResult{
				Source:  src,
				Subject: SubjectOf(src),
				Dataset: st.Dataset,
				Result:  ResultSkipped,
			})
			continue
		}

		logger.Info("processing file", "file", i+1, "of", len(sources), "source", src)
		res, err := r.ProcessFile(ctx, src)
		summary.Documents = append(summary.Documents, res)
		if err != nil && ctx.Err() != nil {
			return summary, ctx.Err()
		}
	}

	logger.Info("training data generation completed", "documents", len(summary.Documents), "records", summary.Records())
	return summary, nil
}

func (r *Runner) scan(sources []string) StatusReport {
	report := StatusReport{SourceRoot: r.Home.SourcePath(), OutputDir: r.Home.OutputPath()}
	for _, src := range sources {
		report.Subjects = append(report.Subjects, Classify(src, r.Home.DatasetPath(SubjectOf(src)), r.Progress))
	}
	return report
}

// Prepare reads a document and derives its generation job without calling
// the generation service.
func (r *Runner) Prepare(path string) (Document, generate.Job, error) {
	doc, err := ReadDocument(path, r.BookPrefix)
	if err != nil {
		return Document{}, generate.Job{}, err
	}
	md := doc.Metadata(metadata.Extract(doc.Text))
	job := generate.Job{
		Target:   r.Home.DatasetPath(doc.Subject),
		Chunks:   chunker.Split(doc.Text, r.Chunking),
		Metadata: md,
	}
	return doc, job, nil
}

// ProcessFile runs one document through generation. The returned error is
// also recorded in the result.
func (r *Runner) ProcessFile(ctx context.Context, path string) (DocumentResult, error) {
	start := time.Now()
	logger := r.logger().With("source", path)
	res := DocumentResult{
		Source:  path,
		Subject: SubjectOf(path),
		Dataset: r.Home.DatasetPath(SubjectOf(path)),
	}

	r.applyPendingSettings()
	defer r.writeMetrics()

	doc, job, err := r.Prepare(path)
	if err != nil {
		logger.Error("failed to read file", "error", err)
		res.Result, res.Error = ResultFailed, err.Error()
		return res, err
	}
	logger.Info("read document",
		"subject", doc.Subject,
		"class", doc.Class,
		"characters", len([]rune(doc.Text)),
		"chunks", len(job.Chunks),
		"chapter", job.Metadata.Chapter,
		"topic", job.Metadata.Topic)

	existing, err := r.Writer.LoadOrRecover(job.Target)
	if err != nil {
		logger.Error("failed to prepare dataset", "dataset", job.Target, "error", err)
		res.Result, res.Error = ResultFailed, err.Error()
		return res, err
	}
	if len(existing) > 0 {
		logger.Info("loaded existing records", "dataset", job.Target, "records", len(existing))
	}

	report, err := r.Orchestrator.Run(ctx, job)
	res.Chunks = report.Total
	res.Saved = report.Count(generate.OutcomeSaved)
	res.Skipped = report.Count(generate.OutcomeSkipped)
	res.Failed = report.Count(generate.OutcomeMalformed) +
		report.Count(generate.OutcomeUnsaved) +
		report.Count(generate.OutcomeAbandoned) +
		report.Count(generate.OutcomeAborted)
	res.Records = report.Records
	res.Elapsed = time.Since(start).Round(time.Millisecond)

	switch {
	case err == nil:
		res.Result = ResultProcessed
	case errors.Is(err, generate.ErrRateLimitExhausted):
		logger.Warn("stopping document after repeated rate limits, moving on", "error", err)
		res.Result, res.Error = ResultAborted, err.Error()
	default:
		logger.Error("document failed", "error", err)
		res.Result, res.Error = ResultFailed, err.Error()
	}
	return res, err
}

func (r *Runner) writeMetrics() {
	if r.MetricsTextfile == "" || r.Metrics == nil {
		return
	}
	if err := r.Metrics.WriteTextfile(r.MetricsTextfile); err != nil {
		r.logger().Warn("failed to write metrics textfile", "path", r.MetricsTextfile, "error", err)
	}
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
