// Package metrics exposes controller activity as Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sweeney/plant-light/internal/control"
)

const metricPrefix = "plantlight_"

// Sensor reading results.
const (
	ResultAccepted = "accepted"
	ResultRejected = "rejected"
	ResultError    = "error"
)

// Metrics holds the collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	decisions       *prometheus.CounterVec
	relayChanges    prometheus.Counter
	relayRejections prometheus.Counter
	sensorReadings  *prometheus.CounterVec
	timeSyncErrors  prometheus.Counter

	averageLux    prometheus.Gauge
	relayOn       prometheus.Gauge
	timeValid     prometheus.Gauge
	sensorHealthy prometheus.Gauge
	automatic     prometheus.Gauge
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		decisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "decisions_total",
				Help: "Control ticks executed by decision and reason",
			},
			[]string{"decision", "reason"},
		),
		relayChanges: prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "relay_changes_total",
			Help: "Committed relay transitions",
		}),
		relayRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "relay_rejections_total",
			Help: "Relay requests refused by the dwell interlock or failed writes",
		}),
		sensorReadings: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "sensor_readings_total",
				Help: "Light sensor readings by result",
			},
			[]string{"result"},
		),
		timeSyncErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "time_sync_errors_total",
			Help: "Failed time synchronization attempts",
		}),
		averageLux: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "average_lux",
			Help: "Smoothed ambient light level",
		}),
		relayOn: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "relay_energized",
			Help: "1 when the lamp relay is energized",
		}),
		timeValid: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "time_valid",
			Help: "1 when wall-clock time is synchronized",
		}),
		sensorHealthy: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "sensor_healthy",
			Help: "1 when the light sensor has reported recently",
		}),
		automatic: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "automatic_control",
			Help: "1 when automatic control is enabled",
		}),
	}

	m.registry.MustRegister(
		m.decisions,
		m.relayChanges,
		m.relayRejections,
		m.sensorReadings,
		m.timeSyncErrors,
		m.averageLux,
		m.relayOn,
		m.timeValid,
		m.sensorHealthy,
		m.automatic,
	)
	return m
}

// ObserveOutcome records an executed control tick.
func (m *Metrics) ObserveOutcome(o control.Outcome) {
	m.decisions.WithLabelValues(string(o.Decision()), string(o.Reason())).Inc()
	if o.Committed {
		m.relayChanges.Inc()
	}
	if o.Rejected {
		m.relayRejections.Inc()
	}
}

// ObserveReading records a sensor read with one of the Result constants.
func (m *Metrics) ObserveReading(result string) {
	m.sensorReadings.WithLabelValues(result).Inc()
}

// ObserveSyncError records a failed time sync.
func (m *Metrics) ObserveSyncError() {
	m.timeSyncErrors.Inc()
}

// State is the per-tick gauge input.
type State struct {
	AverageLux    float64
	RelayOn       bool
	TimeValid     bool
	SensorHealthy bool
	Automatic     bool
}

// SetState updates the gauges.
func (m *Metrics) SetState(s State) {
	m.averageLux.Set(s.AverageLux)
	m.relayOn.Set(boolToFloat(s.RelayOn))
	m.timeValid.Set(boolToFloat(s.TimeValid))
	m.sensorHealthy.Set(boolToFloat(s.SensorHealthy))
	m.automatic.Set(boolToFloat(s.Automatic))
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
