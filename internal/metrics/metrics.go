// Package metrics holds the Prometheus instruments for zbday.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the bot.
type Metrics struct {
	Registry *prometheus.Registry

	Commands          *prometheus.CounterVec
	Authorizations    *prometheus.CounterVec
	Deliveries        *prometheus.CounterVec
	BroadcastDuration *prometheus.HistogramVec
	Sessions          prometheus.Gauge
}

// New creates and registers all metrics on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		Commands: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "zbday_commands_total",
			Help: "Chat commands handled, by command",
		}, []string{"command"}),
		Authorizations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "zbday_authorizations_total",
			Help: "Code submissions, by outcome (ok, invalid, error)",
		}, []string{"outcome"}),
		Deliveries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "zbday_deliveries_total",
			Help: "Scheduled reminder sends, by kind and outcome",
		}, []string{"kind", "outcome"}),
		BroadcastDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "zbday_broadcast_duration_seconds",
			Help:    "Duration of a scheduled broadcast run",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
		}, []string{"kind"}),
		Sessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "zbday_sessions",
			Help: "Active chat sessions",
		}),
	}
}

// IncrementCommand records one handled command.
func (m *Metrics) IncrementCommand(name string) {
	m.Commands.WithLabelValues(name).Inc()
}

// IncrementAuthorization records one code submission outcome.
func (m *Metrics) IncrementAuthorization(outcome string) {
	m.Authorizations.WithLabelValues(outcome).Inc()
}

// IncrementDelivery records one scheduled send outcome.
func (m *Metrics) IncrementDelivery(kind, outcome string) {
	m.Deliveries.WithLabelValues(kind, outcome).Inc()
}

// ObserveBroadcast records the duration of a broadcast.
// Call with time.Now() at the start of the run.
func (m *Metrics) ObserveBroadcast(kind string, start time.Time) {
	m.BroadcastDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}

// SetSessions records the current session count.
func (m *Metrics) SetSessions(n int) {
	m.Sessions.Set(float64(n))
}
