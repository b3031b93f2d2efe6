// Package metrics provides the process-wide Prometheus registry. The
// registry is constructed once at startup and injected into the components
// that record into it; nothing here registers against a package-level
// default.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every instrument this service records. A nil *Metrics is a
// valid no-op, so unit tests can pass nil instead of wiring a registry.
type Metrics struct {
	registry *prometheus.Registry

	memoryUpserts prometheus.Counter
	memoryChunks  prometheus.Counter
	searches      prometheus.Counter
	generations   *prometheus.CounterVec
	llmRetries    prometheus.Counter
	llmDuration   prometheus.Histogram
}

// New creates a registry with process collectors plus this service's
// instruments.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		memoryUpserts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "triagekit_memory_upserts_total",
			Help: "Number of memory source upserts.",
		}),
		memoryChunks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "triagekit_memory_chunks_total",
			Help: "Number of chunks written to the memory store.",
		}),
		searches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "triagekit_memory_searches_total",
			Help: "Number of similarity searches executed.",
		}),
		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "triagekit_generations_total",
			Help: "Grounded generation requests by outcome.",
		}, []string{"kind", "outcome"}),
		llmRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "triagekit_llm_retries_total",
			Help: "LLM call attempts beyond the first.",
		}),
		llmDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "triagekit_llm_duration_seconds",
			Help:    "Wall time of LLM completion calls.",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
		}),
	}

	reg.MustRegister(
		m.memoryUpserts,
		m.memoryChunks,
		m.searches,
		m.generations,
		m.llmRetries,
		m.llmDuration,
	)
	return m
}

// Handler returns the HTTP handler serving this registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveUpsert records one source upsert producing the given chunk count.
func (m *Metrics) ObserveUpsert(chunks int) {
	if m == nil {
		return
	}
	m.memoryUpserts.Inc()
	m.memoryChunks.Add(float64(chunks))
}

// ObserveSearch records one similarity search.
func (m *Metrics) ObserveSearch() {
	if m == nil {
		return
	}
	m.searches.Inc()
}

// ObserveGeneration records one grounded generation request outcome.
// kind is "suggestion" or "sop_draft"; outcome is "success", "raw",
// "no_evidence" or "failed".
func (m *Metrics) ObserveGeneration(kind, outcome string) {
	if m == nil {
		return
	}
	m.generations.WithLabelValues(kind, outcome).Inc()
}

// ObserveLLMRetry records one retried LLM attempt.
func (m *Metrics) ObserveLLMRetry() {
	if m == nil {
		return
	}
	m.llmRetries.Inc()
}

// ObserveLLMDuration records the wall time of one LLM completion call.
func (m *Metrics) ObserveLLMDuration(seconds float64) {
	if m == nil {
		return
	}
	m.llmDuration.Observe(seconds)
}
