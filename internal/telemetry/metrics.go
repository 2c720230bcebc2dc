package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors for the sensor feed.
type Metrics struct {
	readings  *prometheus.CounterVec
	anomalies *prometheus.CounterVec
	failures  *prometheus.CounterVec
	dropped   prometheus.Counter
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// NewMetrics registers the telemetry metrics against the provided
// registerer. When the registerer is nil the default Prometheus registerer
// is used.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		defaultOnce.Do(func() {
			defaultMetrics = buildMetrics(prometheus.DefaultRegisterer)
		})
		return defaultMetrics
	}
	return buildMetrics(registerer)
}

func buildMetrics(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		readings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nextfactory_sensor_readings_total",
			Help: "Synthetic sensor readings emitted per sensor.",
		}, []string{"sensor"}),
		anomalies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nextfactory_sensor_anomalies_total",
			Help: "Readings outside their threshold band per sensor.",
		}, []string{"sensor"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nextfactory_sensor_consumer_failures_total",
			Help: "Consumer errors or panics while delivering a reading.",
		}, []string{"sensor"}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nextfactory_sensor_hub_dropped_total",
			Help: "Readings dropped because a subscriber buffer was full.",
		}),
	}
	registerer.MustRegister(m.readings, m.anomalies, m.failures, m.dropped)
	return m
}

// Observe counts an emitted reading.
func (m *Metrics) Observe(r Reading) {
	if m == nil {
		return
	}
	m.readings.WithLabelValues(r.Sensor).Inc()
	if r.IsAnomaly {
		m.anomalies.WithLabelValues(r.Sensor).Inc()
	}
}

// ConsumerFailed counts a failed delivery.
func (m *Metrics) ConsumerFailed(sensor string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(sensor).Inc()
}

// Dropped counts readings a subscriber missed.
func (m *Metrics) Dropped(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.dropped.Add(float64(n))
}
