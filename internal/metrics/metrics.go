// Package metrics registers the portal's Prometheus collectors.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Transitions counts persisted status transitions
	Transitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_verification_transitions_total",
			Help: "Persisted verification status transitions",
		},
		[]string{"from", "to", "action"},
	)

	// Refusals counts actions refused by the transition gate
	Refusals = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_verification_refusals_total",
			Help: "Verification actions refused, by action and reason",
		},
		[]string{"action", "reason"},
	)

	// StaleSaves counts optimistic version conflicts that forced a re-evaluation
	StaleSaves = promauto.NewCounter(prometheus.CounterOpts{
		Name: "portal_verification_stale_saves_total",
		Help: "Record saves retried after a concurrent modification",
	})

	// SweptAnalyses counts analyses handled by the stalled-analysis sweeper
	SweptAnalyses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_verification_swept_analyses_total",
			Help: "Stalled analyses failed or rejected by the sweeper",
		},
		[]string{"outcome"},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_http_requests_total",
			Help: "HTTP requests served by the portal API",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "portal_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// Middleware records request counts and latency. Paths are labelled by
// route template so ids do not explode cardinality.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		httpRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// Handler exposes the default registry
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
