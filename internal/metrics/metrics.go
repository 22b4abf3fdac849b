package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const metricPrefix = "grillstream_"

var (
	registerOnce sync.Once

	readingsTotal    *prometheus.CounterVec
	pollErrorsTotal  *prometheus.CounterVec
	cacheHitsTotal   *prometheus.CounterVec
	cacheMissesTotal *prometheus.CounterVec
	cacheEvictions   *prometheus.CounterVec
	subscriberGauge  prometheus.Gauge
	droppedUpdates   prometheus.Counter
	alertTransitions *prometheus.CounterVec
)

// MustRegister registers all engine collectors on the given registry.
// Safe to call more than once; registration happens exactly once.
func MustRegister(reg prometheus.Registerer) {
	registerOnce.Do(func() {
		readingsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metricPrefix + "readings_total",
			Help: "Readings produced per device.",
		}, []string{"device"})

		pollErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metricPrefix + "poll_errors_total",
			Help: "Device adapter poll failures per device.",
		}, []string{"device"})

		cacheHitsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metricPrefix + "cache_hits_total",
			Help: "Cache hits per namespace.",
		}, []string{"namespace"})

		cacheMissesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metricPrefix + "cache_misses_total",
			Help: "Cache misses per namespace.",
		}, []string{"namespace"})

		cacheEvictions = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metricPrefix + "cache_evictions_total",
			Help: "Expired entries evicted per namespace.",
		}, []string{"namespace"})

		subscriberGauge = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "stream_subscribers",
			Help: "Currently connected stream subscribers.",
		})

		droppedUpdates = prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "stream_dropped_updates_total",
			Help: "Updates dropped for slow subscribers.",
		})

		alertTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metricPrefix + "alert_transitions_total",
			Help: "Observable alert transitions by kind and state.",
		}, []string{"kind", "state"})

		reg.MustRegister(
			readingsTotal, pollErrorsTotal,
			cacheHitsTotal, cacheMissesTotal, cacheEvictions,
			subscriberGauge, droppedUpdates, alertTransitions,
		)
	})
}

func ReadingProduced(deviceID string) {
	if readingsTotal != nil {
		readingsTotal.WithLabelValues(deviceID).Inc()
	}
}

func PollError(deviceID string) {
	if pollErrorsTotal != nil {
		pollErrorsTotal.WithLabelValues(deviceID).Inc()
	}
}

func SubscriberConnected() {
	if subscriberGauge != nil {
		subscriberGauge.Inc()
	}
}

func SubscriberDisconnected() {
	if subscriberGauge != nil {
		subscriberGauge.Dec()
	}
}

func UpdateDropped() {
	if droppedUpdates != nil {
		droppedUpdates.Inc()
	}
}

func AlertTransition(kind, state string) {
	if alertTransitions != nil {
		alertTransitions.WithLabelValues(kind, state).Inc()
	}
}

// CacheObserver satisfies the cache.Observer interface.
type CacheObserver struct{}

func (CacheObserver) Hit(ns string) {
	if cacheHitsTotal != nil {
		cacheHitsTotal.WithLabelValues(ns).Inc()
	}
}

func (CacheObserver) Miss(ns string) {
	if cacheMissesTotal != nil {
		cacheMissesTotal.WithLabelValues(ns).Inc()
	}
}

func (CacheObserver) Evict(ns string, n int) {
	if cacheEvictions != nil {
		cacheEvictions.WithLabelValues(ns).Add(float64(n))
	}
}
