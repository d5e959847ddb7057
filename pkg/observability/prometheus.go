package observability

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus implements every hook interface on top of client_golang
// collectors. It also carries the inbound HTTP request metrics used by the
// API server middleware.
type Prometheus struct {
	generations *prometheus.CounterVec
	genDuration *prometheus.HistogramVec
	snapshots   *prometheus.CounterVec
	layouts     *prometheus.HistogramVec
	cacheEvents *prometheus.CounterVec
	cacheBytes  *prometheus.CounterVec
	upstream    *prometheus.HistogramVec
	upstreamErr *prometheus.CounterVec
	requests    *prometheus.CounterVec
	reqDuration *prometheus.HistogramVec
}

var (
	_ PipelineHooks = (*Prometheus)(nil)
	_ CacheHooks    = (*Prometheus)(nil)
	_ HTTPHooks     = (*Prometheus)(nil)
)

// NewPrometheus creates the collectors and registers them with reg.
// It panics if registration fails, like [prometheus.MustRegister].
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	p := &Prometheus{
		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scribe_generations_total",
			Help: "Model generations by kind, provider and outcome.",
		}, []string{"kind", "provider", "outcome"}),
		genDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "scribe_generation_duration_seconds",
			Help:    "Wall time of model generations.",
			Buckets: []float64{1, 2.5, 5, 10, 20, 40, 80, 160},
		}, []string{"kind", "provider"}),
		snapshots: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scribe_snapshots_total",
			Help: "Partial snapshots emitted while streaming.",
		}, []string{"kind"}),
		layouts: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "scribe_layout_duration_seconds",
			Help:    "Time spent computing or arranging layouts.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		}, []string{"op"}),
		cacheEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scribe_cache_events_total",
			Help: "Cache hits, misses and writes by key type.",
		}, []string{"key_type", "event"}),
		cacheBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scribe_cache_written_bytes_total",
			Help: "Bytes written to the cache.",
		}, []string{"key_type"}),
		upstream: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "scribe_upstream_response_seconds",
			Help:    "Time to response headers from model APIs.",
			Buckets: prometheus.DefBuckets,
		}, []string{"host", "status"}),
		upstreamErr: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scribe_upstream_errors_total",
			Help: "Model API requests that failed before a response.",
		}, []string{"host"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scribe_http_requests_total",
			Help: "API requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		reqDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "scribe_http_request_duration_seconds",
			Help:    "API request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}
	reg.MustRegister(
		p.generations, p.genDuration, p.snapshots, p.layouts,
		p.cacheEvents, p.cacheBytes, p.upstream, p.upstreamErr,
		p.requests, p.reqDuration,
	)
	return p
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (p *Prometheus) OnGenerateStart(context.Context, string, string) {}

func (p *Prometheus) OnSnapshot(_ context.Context, kind string, _, _ int) {
	p.snapshots.WithLabelValues(kind).Inc()
}

func (p *Prometheus) OnGenerateComplete(_ context.Context, kind, provider string, _ int, d time.Duration, err error) {
	p.generations.WithLabelValues(kind, provider, outcome(err)).Inc()
	p.genDuration.WithLabelValues(kind, provider).Observe(d.Seconds())
}

func (p *Prometheus) OnLayoutComplete(_ context.Context, op string, _ int, d time.Duration, _ error) {
	p.layouts.WithLabelValues(op).Observe(d.Seconds())
}

func (p *Prometheus) OnCacheHit(_ context.Context, keyType string) {
	p.cacheEvents.WithLabelValues(keyType, "hit").Inc()
}

func (p *Prometheus) OnCacheMiss(_ context.Context, keyType string) {
	p.cacheEvents.WithLabelValues(keyType, "miss").Inc()
}

func (p *Prometheus) OnCacheSet(_ context.Context, keyType string, size int) {
	p.cacheEvents.WithLabelValues(keyType, "set").Inc()
	p.cacheBytes.WithLabelValues(keyType).Add(float64(size))
}

func (p *Prometheus) OnRequest(context.Context, string, string, string) {}

func (p *Prometheus) OnResponse(_ context.Context, _, host, _ string, status int, d time.Duration) {
	p.upstream.WithLabelValues(host, statusClass(status)).Observe(d.Seconds())
}

func (p *Prometheus) OnError(_ context.Context, _, host, _ string, _ error) {
	p.upstreamErr.WithLabelValues(host).Inc()
}

// ObserveRequest records one inbound API request.
func (p *Prometheus) ObserveRequest(route, method string, status int, d time.Duration) {
	p.requests.WithLabelValues(route, method, statusClass(status)).Inc()
	p.reqDuration.WithLabelValues(route, method).Observe(d.Seconds())
}

func statusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
