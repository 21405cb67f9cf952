// Package telemetry exposes the pipeline's prometheus instruments.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the pipeline counters. A nil *Metrics is valid and records nothing.
type Metrics struct {
	searchCalls *prometheus.CounterVec
	fetches     *prometheus.CounterVec
	llmCalls    *prometheus.CounterVec
	llmLatency  *prometheus.HistogramVec
	records     *prometheus.CounterVec
	catalogSize prometheus.Gauge
	runDuration *prometheus.HistogramVec
}

// New creates the instruments and registers them on reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		searchCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pathfinder_search_calls_total",
			Help: "Search backend calls by outcome.",
		}, []string{"outcome"}),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pathfinder_fetches_total",
			Help: "Page fetches by render mode and outcome (ok, gated, empty, error).",
		}, []string{"mode", "outcome"}),
		llmCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pathfinder_llm_calls_total",
			Help: "Language model calls by pipeline stage and outcome.",
		}, []string{"stage", "outcome"}),
		llmLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pathfinder_llm_call_seconds",
			Help:    "Language model call latency by stage.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 80},
		}, []string{"stage"}),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pathfinder_records_total",
			Help: "Event records leaving each pipeline stage.",
		}, []string{"stage"}),
		catalogSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pathfinder_catalog_events",
			Help: "Events in the catalog after the last persist.",
		}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pathfinder_run_seconds",
			Help:    "Duration of discovery and extraction runs.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}, []string{"operation", "status"}),
	}
	for _, c := range []prometheus.Collector{
		m.searchCalls, m.fetches, m.llmCalls, m.llmLatency, m.records, m.catalogSize, m.runDuration,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) SearchCall(outcome string) {
	if m == nil {
		return
	}
	m.searchCalls.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Fetch(mode, outcome string) {
	if m == nil {
		return
	}
	m.fetches.WithLabelValues(mode, outcome).Inc()
}

func (m *Metrics) LLMCall(stage, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.llmCalls.WithLabelValues(stage, outcome).Inc()
	m.llmLatency.WithLabelValues(stage).Observe(elapsed.Seconds())
}

func (m *Metrics) Records(stage string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.records.WithLabelValues(stage).Add(float64(n))
}

func (m *Metrics) CatalogSize(n int) {
	if m == nil {
		return
	}
	m.catalogSize.Set(float64(n))
}

func (m *Metrics) Run(operation, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.runDuration.WithLabelValues(operation, status).Observe(elapsed.Seconds())
}
