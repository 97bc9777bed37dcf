package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MrSnakeDoc/pinboard/internal/domain"
)

const namespace = "pinboard"

// Metrics holds the Prometheus collectors for bookmark and reminder lifecycle events.
type Metrics struct {
	registry *prometheus.Registry

	bookmarksCreated   *prometheus.CounterVec
	bookmarksDestroyed prometheus.Counter
	remindersEnqueued  prometheus.Counter
	remindersCancelled prometheus.Counter
	remindersFired     *prometheus.CounterVec
	validationFailures *prometheus.CounterVec
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		bookmarksCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bookmarks_created_total",
			Help:      "Bookmarks created, by reminder type.",
		}, []string{"reminder_type"}),
		bookmarksDestroyed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bookmarks_destroyed_total",
			Help:      "Bookmarks destroyed.",
		}),
		remindersEnqueued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminders_enqueued_total",
			Help:      "Reminder jobs enqueued.",
		}),
		remindersCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminders_cancelled_total",
			Help:      "Reminder jobs cancelled on bookmark removal.",
		}),
		remindersFired: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminders_fired_total",
			Help:      "Reminder jobs run by the dispatcher, by outcome.",
		}, []string{"outcome"}),
		validationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bookmark_validation_failures_total",
			Help:      "Rejected bookmark creations, by error code.",
		}, []string{"code"}),
	}

	reg.MustRegister(
		m.bookmarksCreated,
		m.bookmarksDestroyed,
		m.remindersEnqueued,
		m.remindersCancelled,
		m.remindersFired,
		m.validationFailures,
	)

	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry (tests).
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) BookmarkCreated(rt domain.ReminderType) {
	m.bookmarksCreated.WithLabelValues(rt.String()).Inc()
}

func (m *Metrics) BookmarkDestroyed() { m.bookmarksDestroyed.Inc() }
func (m *Metrics) ReminderEnqueued()  { m.remindersEnqueued.Inc() }
func (m *Metrics) ReminderCancelled() { m.remindersCancelled.Inc() }

func (m *Metrics) ValidationFailed(code domain.ValidationCode) {
	m.validationFailures.WithLabelValues(string(code)).Inc()
}

// ReminderFired counts dispatcher outcomes: "delivered", "dropped" or "retried".
func (m *Metrics) ReminderFired(outcome string) {
	m.remindersFired.WithLabelValues(outcome).Inc()
}
