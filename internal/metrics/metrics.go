// Package metrics exposes prometheus collectors for the geofencing loop.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "georeminder"

type Metrics struct {
	registry *prometheus.Registry

	Fixes                   prometheus.Counter
	AcquisitionErrors       *prometheus.CounterVec
	RemindersTriggered      prometheus.Counter
	NotificationsSent       prometheus.Counter
	NotificationsSuppressed prometheus.Counter
	NotificationErrors      prometheus.Counter
	EvaluationSeconds       prometheus.Histogram
	Reminders               prometheus.Gauge
}

// New registers all collectors on a fresh registry, plus the Go and process
// collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		Fixes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fixes_total",
			Help:      "Position fixes received from the geolocation source.",
		}),
		AcquisitionErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "acquisition_errors_total",
			Help:      "Position acquisition failures by error code.",
		}, []string{"code"}),
		RemindersTriggered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminders_triggered_total",
			Help:      "Reminders that entered their geofence.",
		}),
		NotificationsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_sent_total",
			Help:      "Notifications handed to the notification platform.",
		}),
		NotificationsSuppressed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_suppressed_total",
			Help:      "Triggered reminders not shown because permission was not granted.",
		}),
		NotificationErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_errors_total",
			Help:      "Notifications the platform failed to show.",
		}),
		EvaluationSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "evaluation_seconds",
			Help:      "Time spent evaluating reminders against one position.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		}),
		Reminders: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "reminders",
			Help:      "Reminders in the current snapshot.",
		}),
	}
	reg.MustRegister(
		m.Fixes, m.AcquisitionErrors, m.RemindersTriggered, m.NotificationsSent,
		m.NotificationsSuppressed, m.NotificationErrors, m.EvaluationSeconds, m.Reminders,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
