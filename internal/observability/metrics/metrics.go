package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the prometheus instruments exposed on /metrics.
type Metrics struct {
	HTTPDuration *prometheus.HistogramVec
	Commits      *prometheus.CounterVec
	Queries      *prometheus.CounterVec
	Deletes      prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		HTTPDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "core",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		Commits: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "core",
			Subsystem: "events",
			Name:      "commits_total",
			Help:      "Event commits by schema and resulting action.",
		}, []string{"schema", "action"}),
		Queries: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "core",
			Subsystem: "events",
			Name:      "queries_total",
			Help:      "Event queries by schema.",
		}, []string{"schema"}),
		Deletes: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "core",
			Subsystem: "events",
			Name:      "deletes_total",
			Help:      "Soft deletes.",
		}),
	}
}

// GinMiddleware records request duration per route.
func GinMiddleware(m *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.HTTPDuration.WithLabelValues(
			c.Request.Method,
			route,
			strconv.Itoa(c.Writer.Status()),
		).Observe(time.Since(start).Seconds())
	}
}
