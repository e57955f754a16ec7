// Package metrics implements the observability hooks with Prometheus.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matzehuels/depscope/pkg/observability"
)

const namespace = "depscope"

// Registry bundles a Prometheus registry with the hooks that write to it.
type Registry struct {
	reg *prometheus.Registry

	Analysis *AnalysisHooks
	Cache    *CacheHooks
	HTTP     *HTTPHooks
}

// New creates a registry with Go and process collectors and all hooks.
func New() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &Registry{
		reg:      reg,
		Analysis: NewAnalysisHooks(reg),
		Cache:    NewCacheHooks(reg),
		HTTP:     NewHTTPHooks(reg),
	}
}

// Install registers the hooks with the observability package.
func (r *Registry) Install() {
	observability.SetAnalysisHooks(r.Analysis)
	observability.SetCacheHooks(r.Cache)
	observability.SetHTTPHooks(r.HTTP)
}

// Handler serves the registry in the Prometheus text format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}

// Gatherer exposes the underlying registry.
func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }

// =============================================================================
// Analysis
// =============================================================================

// AnalysisHooks records phase durations, failures and output sizes.
type AnalysisHooks struct {
	inflight *prometheus.GaugeVec
	duration *prometheus.HistogramVec
	failures *prometheus.CounterVec
	items    *prometheus.HistogramVec
}

// NewAnalysisHooks registers the analysis metrics with reg.
func NewAnalysisHooks(reg prometheus.Registerer) *AnalysisHooks {
	f := promauto.With(reg)
	return &AnalysisHooks{
		inflight: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "phase_inflight",
			Help:      "Analysis phases currently running",
		}, []string{"phase"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "phase_duration_seconds",
			Help:      "Time spent in each analysis phase",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		}, []string{"phase"}),
		failures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "phase_failures_total",
			Help:      "Analysis phases that returned an error",
		}, []string{"phase"}),
		items: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "phase_items",
			Help:      "Packages or nodes produced by each phase",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}, []string{"phase"}),
	}
}

func (h *AnalysisHooks) OnPhaseStart(_ context.Context, p observability.Phase) {
	h.inflight.WithLabelValues(string(p)).Inc()
}

func (h *AnalysisHooks) OnPhaseComplete(_ context.Context, p observability.Phase, items int, d time.Duration, err error) {
	phase := string(p)
	h.inflight.WithLabelValues(phase).Dec()
	h.duration.WithLabelValues(phase).Observe(d.Seconds())
	if err != nil {
		h.failures.WithLabelValues(phase).Inc()
		return
	}
	h.items.WithLabelValues(phase).Observe(float64(items))
}

// =============================================================================
// Cache
// =============================================================================

// CacheHooks counts cache lookups and written bytes per backend.
type CacheHooks struct {
	lookups *prometheus.CounterVec
	written *prometheus.CounterVec
}

// NewCacheHooks registers the cache metrics with reg.
func NewCacheHooks(reg prometheus.Registerer) *CacheHooks {
	f := promauto.With(reg)
	return &CacheHooks{
		lookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Cache lookups by backend and result",
		}, []string{"backend", "result"}),
		written: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_written_bytes_total",
			Help:      "Bytes written to the cache",
		}, []string{"backend"}),
	}
}

func (h *CacheHooks) OnCacheHit(_ context.Context, backend string) {
	h.lookups.WithLabelValues(backend, "hit").Inc()
}

func (h *CacheHooks) OnCacheMiss(_ context.Context, backend string) {
	h.lookups.WithLabelValues(backend, "miss").Inc()
}

func (h *CacheHooks) OnCacheSet(_ context.Context, backend string, size int) {
	h.written.WithLabelValues(backend).Add(float64(size))
}

// =============================================================================
// HTTP
// =============================================================================

// HTTPHooks records request counts and latencies per route.
type HTTPHooks struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// NewHTTPHooks registers the HTTP metrics with reg.
func NewHTTPHooks(reg prometheus.Registerer) *HTTPHooks {
	f := promauto.With(reg)
	return &HTTPHooks{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status",
		}, []string{"method", "route", "status"}),
		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

func (h *HTTPHooks) OnRequest(context.Context, string, string) {}

func (h *HTTPHooks) OnResponse(_ context.Context, method, route string, status int, d time.Duration) {
	h.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	h.latency.WithLabelValues(method, route).Observe(d.Seconds())
}

var (
	_ observability.AnalysisHooks = (*AnalysisHooks)(nil)
	_ observability.CacheHooks    = (*CacheHooks)(nil)
	_ observability.HTTPHooks     = (*HTTPHooks)(nil)
)
