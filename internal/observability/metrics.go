// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Generator metrics
	EventsGenerated   *prometheus.CounterVec
	TickFailures      *prometheus.CounterVec
	MarketSentiment   prometheus.Gauge
	MarketVolatility  prometheus.Gauge
	MarketShocks      prometheus.Counter
	GeneratedQuantity prometheus.Histogram

	// Bus metrics
	BusPublished   *prometheus.CounterVec
	BusDropped     *prometheus.CounterVec
	BusSubscribers *prometheus.GaugeVec

	// Stream metrics
	StreamConnections *prometheus.GaugeVec
	StreamFrames      *prometheus.CounterVec

	// Cache metrics
	CacheRequests *prometheus.CounterVec

	// Alert metrics
	DetectorRuns    *prometheus.CounterVec
	AlertsGenerated *prometheus.CounterVec
	AlertsPublished prometheus.Counter

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance registered on the default registry.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "retail_stream"
	}

	return &Metrics{
		EventsGenerated: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "generator",
			Name:      "events_generated_total",
			Help:      "Total number of sales events generated by transaction category",
		}, []string{"category"}),
		TickFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "generator",
			Name:      "tick_failures_total",
			Help:      "Total number of generator ticks that failed by stage",
		}, []string{"stage"}),
		MarketSentiment: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "generator",
			Name:      "market_sentiment",
			Help:      "Current market sentiment multiplier",
		}),
		MarketVolatility: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "generator",
			Name:      "market_volatility",
			Help:      "Current market volatility multiplier",
		}),
		MarketShocks: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "generator",
			Name:      "market_shocks_total",
			Help:      "Total number of market shock events",
		}),
		GeneratedQuantity: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "generator",
			Name:      "event_quantity_abs",
			Help:      "Absolute quantity of generated events",
			Buckets:   []float64{1, 5, 10, 20, 40, 80, 120, 200},
		}),

		BusPublished: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bus",
			Name:      "messages_published_total",
			Help:      "Total number of messages published by channel",
		}, []string{"channel"}),
		BusDropped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bus",
			Name:      "messages_dropped_total",
			Help:      "Messages evicted from full subscriber buffers by channel",
		}, []string{"channel"}),
		BusSubscribers: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "bus",
			Name:      "subscribers",
			Help:      "Current number of subscriptions by channel",
		}, []string{"channel"}),

		StreamConnections: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "connections",
			Help:      "Open stream connections by transport",
		}, []string{"transport"}),
		StreamFrames: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "frames_sent_total",
			Help:      "Frames written to stream clients by event name",
		}, []string{"event"}),

		CacheRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "requests_total",
			Help:      "Cache lookups by operation and result (hit, miss, unavailable)",
		}, []string{"operation", "result"}),

		DetectorRuns: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "detector_runs_total",
			Help:      "Detector runs by detector and status",
		}, []string{"detector", "status"}),
		AlertsGenerated: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "generated_total",
			Help:      "Alerts produced by severity",
		}, []string{"severity"}),
		AlertsPublished: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "published_total",
			Help:      "New alerts pushed to the alerts channel",
		}),

		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "query_duration_seconds",
			Help:      "Database query latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "query_errors_total",
			Help:      "Database query errors",
		}, []string{"database", "operation"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordEventGenerated counts one generated event.
func RecordEventGenerated(category string, quantity int) {
	DefaultMetrics.EventsGenerated.WithLabelValues(category).Inc()
	if quantity < 0 {
		quantity = -quantity
	}
	DefaultMetrics.GeneratedQuantity.Observe(float64(quantity))
}

// RecordTickFailure counts a failed generator tick.
func RecordTickFailure(stage string) {
	DefaultMetrics.TickFailures.WithLabelValues(stage).Inc()
}

// UpdateMarket sets the market gauges.
func UpdateMarket(sentiment, volatility float64, shock bool) {
	DefaultMetrics.MarketSentiment.Set(sentiment)
	DefaultMetrics.MarketVolatility.Set(volatility)
	if shock {
		DefaultMetrics.MarketShocks.Inc()
	}
}

// RecordPublish counts a bus publish and the messages it evicted.
func RecordPublish(channel string, dropped int) {
	DefaultMetrics.BusPublished.WithLabelValues(channel).Inc()
	if dropped > 0 {
		DefaultMetrics.BusDropped.WithLabelValues(channel).Add(float64(dropped))
	}
}

// SetSubscribers updates the subscription gauge for a channel.
func SetSubscribers(channel string, n int) {
	DefaultMetrics.BusSubscribers.WithLabelValues(channel).Set(float64(n))
}

// StreamOpened increments the open connection gauge and returns its inverse.
func StreamOpened(transport string) func() {
	g := DefaultMetrics.StreamConnections.WithLabelValues(transport)
	g.Inc()
	return g.Dec
}

// RecordFrame counts a frame written to a stream client.
func RecordFrame(event string) {
	DefaultMetrics.StreamFrames.WithLabelValues(event).Inc()
}

// RecordCache counts a cache lookup result.
func RecordCache(operation, result string) {
	DefaultMetrics.CacheRequests.WithLabelValues(operation, result).Inc()
}

// RecordDetectorRun records a detector run.
func RecordDetectorRun(detector string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	DefaultMetrics.DetectorRuns.WithLabelValues(detector, status).Inc()
}

// RecordAlert counts a generated alert.
func RecordAlert(severity string) {
	DefaultMetrics.AlertsGenerated.WithLabelValues(severity).Inc()
}

// RecordAlertPublished counts an alert pushed to subscribers.
func RecordAlertPublished() {
	DefaultMetrics.AlertsPublished.Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, elapsed time.Duration, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(elapsed.Seconds())
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
