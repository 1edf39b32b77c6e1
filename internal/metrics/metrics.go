package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the analysis instruments on a private registry, so tests
// and repeated constructions never collide on global registration.
type Metrics struct {
	registry *prometheus.Registry

	MessagesScored    prometheus.Counter
	MessagesKept      prometheus.Counter
	MessagesExcluded  prometheus.Counter
	ChunksBuilt       prometheus.Counter
	ChunksOversized   prometheus.Counter
	ReportsWritten    prometheus.Counter
	CitationsResolved *prometheus.CounterVec
	LLMRequests       *prometheus.CounterVec
	LLMDuration       prometheus.Histogram
}

func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.MessagesScored = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "intv_messages_scored_total",
		Help: "Messages run through the relevance scorer",
	})
	m.MessagesKept = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "intv_messages_kept_total",
		Help: "Messages kept by the relevance filter",
	})
	m.MessagesExcluded = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "intv_messages_excluded_total",
		Help: "Messages excluded by the relevance filter",
	})
	m.ChunksBuilt = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "intv_chunks_built_total",
		Help: "Chunks produced by the splitter",
	})
	m.ChunksOversized = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "intv_chunks_oversized_total",
		Help: "Single-message chunks over the token bound",
	})
	m.ReportsWritten = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "intv_reports_written_total",
		Help: "Report documents written to the output directory",
	})
	m.CitationsResolved = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "intv_citations_resolved_total",
		Help: "Citation resolutions by result (resolved or fallback)",
	}, []string{"result"})
	m.LLMRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "intv_llm_requests_total",
		Help: "Chat completion calls by status (ok or error)",
	}, []string{"status"})
	m.LLMDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "intv_llm_request_seconds",
		Help:    "Chat completion latency in seconds",
		Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
	})

	m.registry.MustRegister(
		m.MessagesScored,
		m.MessagesKept,
		m.MessagesExcluded,
		m.ChunksBuilt,
		m.ChunksOversized,
		m.ReportsWritten,
		m.CitationsResolved,
		m.LLMRequests,
		m.LLMDuration,
	)
	return m
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
