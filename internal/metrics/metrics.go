package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

const namespace = "marketplace"

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "route"},
	)

	donationsRecorded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "donations",
			Name:      "recorded_total",
			Help:      "Donations recorded, by origin.",
		},
		[]string{"source"},
	)

	donationAmount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "donations",
			Name:      "amount_total",
			Help:      "Sum of recorded donation amounts in major currency units.",
		},
		[]string{"source"},
	)

	paymentIntents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "payments",
			Name:      "intents_total",
			Help:      "Payment intents requested from the gateway, by result.",
		},
		[]string{"result"},
	)

	webhookEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "payments",
			Name:      "webhook_events_total",
			Help:      "Gateway webhook deliveries, by event type and outcome.",
		},
		[]string{"type", "result"},
	)

	sseClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sse",
			Name:      "active_clients",
			Help:      "Number of connected donation event subscribers.",
		},
	)

	queueAsync = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "async_enabled",
			Help:      "Whether the Redis-backed task queue is active (1=yes, 0=no).",
		},
	)

	statsReconciled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stats",
			Name:      "reconcile_runs_total",
			Help:      "User stats reconciliation runs, by outcome.",
		},
		[]string{"success"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		donationsRecorded,
		donationAmount,
		paymentIntents,
		webhookEvents,
		sseClients,
		queueAsync,
		statsReconciled,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// GinMiddleware records request counts and latency keyed by route template.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()
		httpInFlight.Inc()
		defer httpInFlight.Dec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// RecordDonation counts a booked donation. source is "api" or "webhook".
func RecordDonation(source string, amount decimal.Decimal) {
	donationsRecorded.WithLabelValues(source).Inc()
	donationAmount.WithLabelValues(source).Add(amount.InexactFloat64())
}

func RecordPaymentIntent(success bool) {
	result := "error"
	if success {
		result = "created"
	}
	paymentIntents.WithLabelValues(result).Inc()
}

// RecordWebhookEvent counts a webhook delivery. result is one of
// "processed", "duplicate", "ignored", "rejected" or "failed".
func RecordWebhookEvent(eventType, result string) {
	if eventType == "" {
		eventType = "unknown"
	}
	webhookEvents.WithLabelValues(eventType, result).Inc()
}

func SetSSEClients(n int) {
	sseClients.Set(float64(n))
}

func SetQueueAsync(async bool) {
	if async {
		queueAsync.Set(1)
		return
	}
	queueAsync.Set(0)
}

func RecordReconcile(success bool) {
	statsReconciled.WithLabelValues(strconv.FormatBool(success)).Inc()
}
