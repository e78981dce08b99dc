package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "snapmap",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "snapmap",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	// Map session metrics
	ProximityEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "snapmap",
		Subsystem: "map",
		Name:      "proximity_events_total",
		Help:      "Entered/exited events seen by annotation synchronizers, by outcome",
	}, []string{"event", "outcome"})

	QueryReplacements = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "snapmap",
		Subsystem: "map",
		Name:      "query_replacements_total",
		Help:      "Total proximity queries installed by viewport changes",
	})

	SubscribeErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "snapmap",
		Subsystem: "map",
		Name:      "subscribe_errors_total",
		Help:      "Proximity subscriptions that failed to open",
	})

	ActiveSubscriptions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "snapmap",
		Subsystem: "map",
		Name:      "active_subscriptions",
		Help:      "Currently open proximity subscriptions",
	})

	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "snapmap",
		Subsystem: "ws",
		Name:      "active_connections",
		Help:      "Current number of active map sessions",
	})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "snapmap",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total cache hits",
	}, []string{"operation"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "snapmap",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total cache misses",
	}, []string{"operation"})

	PostEventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "snapmap",
		Subsystem: "posts",
		Name:      "events_published_total",
		Help:      "Post feed events published",
	}, []string{"type"})
)

// Middleware records request metrics.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Response().StatusCode())
		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		method := c.Method()

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(duration)

		return err
	}
}

// Handler returns a Fiber handler serving Prometheus /metrics endpoint.
func Handler() fiber.Handler {
	handler := promhttp.Handler()
	return func(c *fiber.Ctx) error {
		fasthttpadaptor.NewFastHTTPHandler(handler)(c.Context())
		return nil
	}
}
