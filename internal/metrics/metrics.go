// Package metrics exposes Prometheus collectors for searches and tool calls.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ifs_mcp"

// Metrics holds the collectors registered on one registry.
type Metrics struct {
	registry       *prometheus.Registry
	searches       *prometheus.CounterVec
	searchDuration *prometheus.HistogramVec
	toolCalls      *prometheus.CounterVec
}

// New creates a registry with the search and tool collectors plus the
// standard Go and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_total",
			Help:      "Total number of searches by mode and cache outcome.",
		}, []string{"mode", "cache"}),
		searchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Search latency by mode.",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"mode"}),
		toolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_calls_total",
			Help:      "Total number of MCP tool calls by tool and status.",
		}, []string{"tool", "status"}),
	}

	m.registry.MustRegister(
		m.searches,
		m.searchDuration,
		m.toolCalls,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Default is the process-wide metrics instance.
var Default = New()

// ObserveSearch records one search.
func (m *Metrics) ObserveSearch(mode string, cacheHit bool, d time.Duration) {
	if m == nil {
		return
	}
	cache := "miss"
	if cacheHit {
		cache = "hit"
	}
	m.searches.WithLabelValues(mode, cache).Inc()
	m.searchDuration.WithLabelValues(mode).Observe(d.Seconds())
}

// ToolCall records one tool invocation.
func (m *Metrics) ToolCall(tool string, ok bool) {
	if m == nil {
		return
	}
	m.toolCalls.WithLabelValues(tool, status(ok)).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func status(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}
