// Package metrics counts generation calls, chunk outcomes and backoff time.
//
// Counters live in a private Prometheus registry and can be written in the
// node-exporter textfile format at the end of a run.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/TheCaptainCodes/amar-ai/internal/providers"
)

const namespace = "trainset"

// Recorder holds the run's collectors. A nil Recorder ignores every call.
type Recorder struct {
	registry *prometheus.Registry

	calls    *prometheus.CounterVec
	tokens   *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	chunks   *prometheus.CounterVec
	records  *prometheus.CounterVec
	backoffs *prometheus.CounterVec
}

// NewRecorder creates a recorder with its own registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_calls_total",
			Help:      "Generation calls by provider and status.",
		}, []string{"provider", "status"}),
		tokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_tokens_total",
			Help:      "Tokens consumed by provider and kind.",
		}, []string{"provider", "kind"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_call_seconds",
			Help:      "Generation call latency.",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 8),
		}, []string{"provider"}),
		chunks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_total",
			Help:      "Chunk outcomes by dataset.",
		}, []string{"dataset", "outcome"}),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_written_total",
			Help:      "Records appended to each dataset.",
		}, []string{"dataset"}),
		backoffs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backoff_seconds_total",
			Help:      "Time spent sleeping between attempts, by reason.",
		}, []string{"reason"}),
	}
	r.registry.MustRegister(r.calls, r.tokens, r.latency, r.chunks, r.records, r.backoffs)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// RecordLLMCall counts one call. result may be nil when the client failed early.
func (r *Recorder) RecordLLMCall(provider string, result *providers.ChatResult, err error) {
	if r == nil {
		return
	}
	status := "success"
	switch {
	case providers.IsRateLimited(err):
		status = "rate_limited"
	case err != nil:
		status = "error"
	}
	r.calls.WithLabelValues(provider, status).Inc()

	if result == nil {
		return
	}
	r.tokens.WithLabelValues(provider, "prompt").Add(float64(result.PromptTokens))
	r.tokens.WithLabelValues(provider, "completion").Add(float64(result.CompletionTokens))
	r.latency.WithLabelValues(provider).Observe(result.ExecutionTime.Seconds())
}

// RecordChunk counts a chunk reaching a terminal outcome.
func (r *Recorder) RecordChunk(dataset, outcome string) {
	if r == nil {
		return
	}
	r.chunks.WithLabelValues(dataset, outcome).Inc()
}

// RecordRecords counts records appended to dataset.
func (r *Recorder) RecordRecords(dataset string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.records.WithLabelValues(dataset).Add(float64(n))
}

// RecordBackoff adds a sleep to the backoff total.
func (r *Recorder) RecordBackoff(reason string, d time.Duration) {
	if r == nil {
		return
	}
	r.backoffs.WithLabelValues(reason).Add(d.Seconds())
}

// WriteTextfile writes all collectors to path in the text exposition format.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
