// Package metrics exposes registration counters and per-event capacity as
// Prometheus metrics.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ms-registration/internal/models"
)

const namespace = "campus_registration"

type Metrics struct {
	registry      *prometheus.Registry
	registrations *prometheus.CounterVec
	slots         *prometheus.GaugeVec
}

// New registers the service collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registrations_total",
			Help:      "Registration attempts by outcome.",
		}, []string{"outcome"}),
		slots: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "event_slots_remaining",
			Help:      "Remaining capacity per event.",
		}, []string{"event_id", "event_name"}),
	}
	m.registry.MustRegister(
		m.registrations,
		m.slots,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) ObserveRegistration(outcome string) {
	m.registrations.WithLabelValues(outcome).Inc()
}

func (m *Metrics) SetSlotsRemaining(event models.Event) {
	m.slots.WithLabelValues(strconv.Itoa(event.ID), event.Name).Set(float64(event.Slots))
}

// Reset drops all per-event gauges, used after the store is wiped.
func (m *Metrics) Reset() {
	m.slots.Reset()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
