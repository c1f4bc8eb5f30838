// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	Scans               *prometheus.CounterVec
	VisitorsSwept       prometheus.Counter
	NotificationsFailed *prometheus.CounterVec
	HTTPDuration        *prometheus.HistogramVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Scans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "huellas",
			Name:      "scans_total",
			Help:      "Card scans by resulting access kind.",
		}, []string{"tipo"}),
		VisitorsSwept: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "huellas",
			Name:      "visitors_swept_total",
			Help:      "Expired visitor records deleted by the sweeper.",
		}),
		NotificationsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "huellas",
			Name:      "notifications_failed_total",
			Help:      "Notification deliveries that returned an error.",
		}, []string{"kind"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "huellas",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
	reg.MustRegister(m.Scans, m.VisitorsSwept, m.NotificationsFailed, m.HTTPDuration)
	return m
}
