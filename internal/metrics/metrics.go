package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "endpoint", "status"})
	HTTPLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})
	EventsPublished = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "events_published_total",
		Help: "Total number of events published to the queue",
	})
	EventsConsumed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "events_consumed_total",
		Help: "Total number of messages consumed from the queue",
	})
	EventsPersisted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "events_persisted_total",
		Help: "Total number of events persisted to the reporting table",
	})
	MessagesDeadLettered = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "messages_dead_lettered_total",
		Help: "Total number of undecodable messages parked in the dead-letter list",
	})
	DBLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "db_write_duration_seconds",
		Help:    "Reporting table write latency",
		Buckets: prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(
		HTTPRequests,
		HTTPLatency,
		EventsPublished,
		EventsConsumed,
		EventsPersisted,
		MessagesDeadLettered,
		DBLatency,
	)
}

// Handler exposes the prometheus scrape endpoint as a gin handler.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// Middleware records request counts and latency per endpoint.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = c.Request.URL.Path
		}
		HTTPRequests.WithLabelValues(
			c.Request.Method,
			endpoint,
			strconv.Itoa(c.Writer.Status()),
		).Inc()
		HTTPLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}
}
