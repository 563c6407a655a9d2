package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for the transcript service.
type Metrics struct {
	registry              *prometheus.Registry
	requestsTotal         prometheus.Counter
	transcriptsServed     prometheus.Counter
	cacheHitsTotal        prometheus.Counter
	cacheMissesTotal      prometheus.Counter
	upstreamRequestsTotal prometheus.Counter
	errorsTotal           *prometheus.CounterVec
	cacheEntries          prometheus.Gauge
}

// New creates and registers Prometheus metrics for the transcript service.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ytt_requests_total",
		Help: "Total number of HTTP requests received",
	})
	transcriptsServed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ytt_transcripts_served_total",
		Help: "Total number of transcripts successfully returned",
	})
	cacheHitsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ytt_cache_hits_total",
		Help: "Total number of transcript cache hits",
	})
	cacheMissesTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ytt_cache_misses_total",
		Help: "Total number of transcript cache misses",
	})
	upstreamRequestsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ytt_upstream_requests_total",
		Help: "Total number of pipeline computations issued against the upstream",
	})
	errorsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ytt_errors_total",
		Help: "Total number of failed transcript requests by error kind",
	}, []string{"kind"})
	cacheEntries := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ytt_cache_entries",
		Help: "Number of transcripts currently held in the cache",
	})

	registry.MustRegister(
		requestsTotal,
		transcriptsServed,
		cacheHitsTotal,
		cacheMissesTotal,
		upstreamRequestsTotal,
		errorsTotal,
		cacheEntries,
	)

	return &Metrics{
		registry:              registry,
		requestsTotal:         requestsTotal,
		transcriptsServed:     transcriptsServed,
		cacheHitsTotal:        cacheHitsTotal,
		cacheMissesTotal:      cacheMissesTotal,
		upstreamRequestsTotal: upstreamRequestsTotal,
		errorsTotal:           errorsTotal,
		cacheEntries:          cacheEntries,
	}
}

// IncRequests increments the total request counter.
func (m *Metrics) IncRequests() {
	m.requestsTotal.Inc()
}

// IncTranscriptsServed increments the served transcript counter.
func (m *Metrics) IncTranscriptsServed() {
	m.transcriptsServed.Inc()
}

// IncCacheHit increments the cache hit counter.
func (m *Metrics) IncCacheHit() {
	m.cacheHitsTotal.Inc()
}

// IncCacheMiss increments the cache miss counter.
func (m *Metrics) IncCacheMiss() {
	m.cacheMissesTotal.Inc()
}

// IncUpstreamRequest increments the upstream computation counter.
func (m *Metrics) IncUpstreamRequest() {
	m.upstreamRequestsTotal.Inc()
}

// IncError increments the error counter for the given error kind
// (e.g. "not_found", "rate_limited").
func (m *Metrics) IncError(kind string) {
	m.errorsTotal.WithLabelValues(kind).Inc()
}

// SetCacheEntries sets the cache size gauge.
func (m *Metrics) SetCacheEntries(n int) {
	m.cacheEntries.Set(float64(n))
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values
// (e.g. current cache size).
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}
