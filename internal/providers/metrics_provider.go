package providers

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"snoozed/internal/structures"
)

type MetricsProviderInterface interface {
	IncRequestsTotal(endpoint string, status int)
	ObserveRequestDuration(endpoint string, duration time.Duration)
	IncCacheHits()
	IncCacheMisses()
	ObservePersistenceDuration(duration time.Duration)
	SetSnoozedItems(count int)
	IncWakeScans(result string)
	IncNotifications(response string)
	IncStoreRepairs(kind string)
}

type MetricsProvider struct {
	requestsTotal       *prometheus.CounterVec
	requestDuration     *prometheus.HistogramVec
	cacheHits           prometheus.Counter
	cacheMisses         prometheus.Counter
	persistenceDuration prometheus.Histogram
	snoozedItems        prometheus.Gauge
	wakeScans           *prometheus.CounterVec
	notifications       *prometheus.CounterVec
	storeRepairs        *prometheus.CounterVec
}

func (m *MetricsProvider) IncRequestsTotal(endpoint string, status int) {
	m.requestsTotal.WithLabelValues(endpoint, httpStatusBucket(status)).Inc()
}

func (m *MetricsProvider) ObserveRequestDuration(endpoint string, duration time.Duration) {
	m.requestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func (m *MetricsProvider) IncCacheHits() {
	m.cacheHits.Inc()
}

func (m *MetricsProvider) IncCacheMisses() {
	m.cacheMisses.Inc()
}

func (m *MetricsProvider) ObservePersistenceDuration(duration time.Duration) {
	m.persistenceDuration.Observe(duration.Seconds())
}

func (m *MetricsProvider) SetSnoozedItems(count int) {
	m.snoozedItems.Set(float64(count))
}

func (m *MetricsProvider) IncWakeScans(result string) {
	m.wakeScans.WithLabelValues(result).Inc()
}

func (m *MetricsProvider) IncNotifications(response string) {
	m.notifications.WithLabelValues(response).Inc()
}

func (m *MetricsProvider) IncStoreRepairs(kind string) {
	m.storeRepairs.WithLabelValues(kind).Inc()
}

func httpStatusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

func NewMetricsProvider(conf *structures.Config) MetricsProviderInterface {
	if !conf.Metrics.Enabled {
		return &noopMetrics{}
	}

	return &MetricsProvider{
		requestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "snoozed_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"endpoint", "status"}),

		requestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "snoozed_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),

		cacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "snoozed_cache_hits_total",
			Help: "Total number of cache hits",
		}),

		cacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "snoozed_cache_misses_total",
			Help: "Total number of cache misses",
		}),

		persistenceDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "snoozed_persistence_duration_seconds",
			Help:    "Duration of store writes in seconds",
			Buckets: prometheus.DefBuckets,
		}),

		snoozedItems: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "snoozed_items",
			Help: "Number of items currently snoozed",
		}),

		wakeScans: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "snoozed_wake_scans_total",
			Help: "Wake scans by outcome",
		}, []string{"result"}),

		notifications: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "snoozed_notification_responses_total",
			Help: "Notification responses by kind",
		}, []string{"response"}),

		storeRepairs: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "snoozed_store_repairs_total",
			Help: "Store documents repaired or reset on load",
		}, []string{"kind"}),
	}
}

// noopMetrics is a no-op implementation for when metrics are disabled.
type noopMetrics struct{}

func (n *noopMetrics) IncRequestsTotal(_ string, _ int)                 {}
func (n *noopMetrics) ObserveRequestDuration(_ string, _ time.Duration) {}
func (n *noopMetrics) IncCacheHits()                                    {}
func (n *noopMetrics) IncCacheMisses()                                  {}
func (n *noopMetrics) ObservePersistenceDuration(_ time.Duration)       {}
func (n *noopMetrics) SetSnoozedItems(_ int)                            {}
func (n *noopMetrics) IncWakeScans(_ string)                            {}
func (n *noopMetrics) IncNotifications(_ string)                        {}
func (n *noopMetrics) IncStoreRepairs(_ string)                         {}
