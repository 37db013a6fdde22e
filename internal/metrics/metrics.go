// Package metrics exposes Prometheus counters for the bot.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "smokebot"

// Metrics holds the bot's collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	EventsRecorded  prometheus.Counter
	QuitDateCapped  prometheus.Counter
	SettingsUpdated *prometheus.CounterVec
	RemindersSent   prometheus.Counter
	RemindersFailed prometheus.Counter
	CommandErrors   *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		EventsRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_recorded_total",
			Help:      "Total number of habit events logged",
		}),
		QuitDateCapped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quit_projection_capped_total",
			Help:      "Quit-date projections that hit the simulation horizon",
		}),
		SettingsUpdated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settings_updates_total",
			Help:      "Profile settings updates by field",
		}, []string{"field"}),
		RemindersSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "reminders_sent_total",
			Help:      "Reminders delivered to users",
		}),
		RemindersFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "reminders_failed_total",
			Help:      "Reminders that could not be delivered",
		}),
		CommandErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "telegram",
			Name:      "command_errors_total",
			Help:      "Chat commands that failed, by command",
		}, []string{"command"}),
	}

	m.registry.MustRegister(
		m.EventsRecorded,
		m.QuitDateCapped,
		m.SettingsUpdated,
		m.RemindersSent,
		m.RemindersFailed,
		m.CommandErrors,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
