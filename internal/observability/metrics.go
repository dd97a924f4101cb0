package observability

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics stores Prometheus collectors used by the gateway and poller flows.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	cacheHitsTotal      *prometheus.CounterVec
	cacheMissesTotal    *prometheus.CounterVec
	cacheFallbacksTotal *prometheus.CounterVec
	revalidationsTotal  *prometheus.CounterVec
	offlinePagesTotal   prometheus.Counter
	pollCyclesTotal     *prometheus.CounterVec
	unreadNotifications prometheus.Gauge
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "invoice_edge",
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "invoice_edge",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds by method and path.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		cacheHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "invoice_edge",
				Name:      "cache_hits_total",
				Help:      "Total number of requests answered from a cache partition.",
			},
			[]string{"partition"},
		),
		cacheMissesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "invoice_edge",
				Name:      "cache_misses_total",
				Help:      "Total number of cache lookups that found no stored entry.",
			},
			[]string{"partition"},
		),
		cacheFallbacksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "invoice_edge",
				Name:      "cache_fallbacks_total",
				Help:      "Total number of network-first requests served from cache after a network failure.",
			},
			[]string{"partition"},
		),
		revalidationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "invoice_edge",
				Name:      "revalidations_total",
				Help:      "Total number of background cache revalidations grouped by result.",
			},
			[]string{"partition", "result"},
		),
		offlinePagesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "invoice_edge",
				Name:      "offline_pages_total",
				Help:      "Total number of navigations answered with the offline fallback document.",
			},
		),
		pollCyclesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "invoice_edge",
				Name:      "poll_cycles_total",
				Help:      "Total number of unread-count poll cycles grouped by result.",
			},
			[]string{"result"},
		),
		unreadNotifications: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "invoice_edge",
				Name:      "unread_notifications",
				Help:      "Current unread notification count as last reported by the backend.",
			},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.cacheHitsTotal,
		m.cacheMissesTotal,
		m.cacheFallbacksTotal,
		m.revalidationsTotal,
		m.offlinePagesTotal,
		m.pollCyclesTotal,
		m.unreadNotifications,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) HTTPMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		path := routePath(c)
		// Avoid self-scrape noise for request counters.
		if path == "/metrics" {
			return err
		}

		m.recordHTTPRequest(c.Method(), path, statusFromResult(c, err), time.Since(start))
		return err
	}
}

func (m *Metrics) IncCacheHit(partition string) {
	if m == nil {
		return
	}
	m.cacheHitsTotal.WithLabelValues(normalizePartition(partition)).Inc()
}

func (m *Metrics) IncCacheMiss(partition string) {
	if m == nil {
		return
	}
	m.cacheMissesTotal.WithLabelValues(normalizePartition(partition)).Inc()
}

func (m *Metrics) IncCacheFallback(partition string) {
	if m == nil {
		return
	}
	m.cacheFallbacksTotal.WithLabelValues(normalizePartition(partition)).Inc()
}

func (m *Metrics) IncRevalidation(partition string, result string) {
	if m == nil {
		return
	}
	resultLabel := strings.TrimSpace(strings.ToLower(result))
	if resultLabel == "" {
		resultLabel = "unknown"
	}
	m.revalidationsTotal.WithLabelValues(normalizePartition(partition), resultLabel).Inc()
}

func (m *Metrics) IncOfflinePage() {
	if m == nil {
		return
	}
	m.offlinePagesTotal.Inc()
}

func (m *Metrics) IncPollCycle(result string) {
	if m == nil {
		return
	}
	resultLabel := strings.TrimSpace(strings.ToLower(result))
	if resultLabel == "" {
		resultLabel = "unknown"
	}
	m.pollCyclesTotal.WithLabelValues(resultLabel).Inc()
}

func (m *Metrics) SetUnread(count int) {
	if m == nil {
		return
	}
	if count < 0 {
		count = 0
	}
	m.unreadNotifications.Set(float64(count))
}

func (m *Metrics) recordHTTPRequest(method string, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}

	methodLabel := strings.ToUpper(strings.TrimSpace(method))
	if methodLabel == "" {
		methodLabel = "UNKNOWN"
	}
	pathLabel := strings.TrimSpace(path)
	if pathLabel == "" {
		pathLabel = "unmatched"
	}

	m.httpRequestsTotal.WithLabelValues(methodLabel, pathLabel, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(methodLabel, pathLabel).Observe(duration.Seconds())
}

func routePath(c *fiber.Ctx) string {
	if c == nil {
		return "unmatched"
	}

	if route := c.Route(); route != nil {
		if path := strings.TrimSpace(route.Path); path != "" {
			return path
		}
	}
	return "unmatched"
}

func statusFromResult(c *fiber.Ctx, err error) int {
	if err != nil {
		if fiberErr, ok := err.(*fiber.Error); ok {
			return fiberErr.Code
		}
		return fiber.StatusInternalServerError
	}

	if c == nil {
		return fiber.StatusOK
	}

	status := c.Response().StatusCode()
	if status == 0 {
		return fiber.StatusOK
	}
	return status
}

func normalizePartition(partition string) string {
	normalized := strings.ToLower(strings.TrimSpace(partition))
	if normalized == "" {
		return "unknown"
	}
	return normalized
}
