// Package metrics collects and exposes Prometheus metrics for the
// monitoring runtime.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector implements the monitor.Recorder surface on top of Prometheus.
type Collector struct {
	polls         *prometheus.CounterVec
	notifications *prometheus.CounterVec
	sessions      prometheus.Gauge
	handles       prometheus.Gauge
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "silentwatch_ceremony_polls_total",
			Help: "Ceremony backend calls by endpoint and result.",
		}, []string{"call", "result"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "silentwatch_notifications_total",
			Help: "Outbound status notifications by delivery result.",
		}, []string{"result"}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "silentwatch_active_sessions",
			Help: "Users with an active monitoring session.",
		}),
		handles: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "silentwatch_active_handles",
			Help: "Live per-token polling loops.",
		}),
	}

	reg.MustRegister(c.polls, c.notifications, c.sessions, c.handles)
	return c
}

func result(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}

// RecordPoll counts one ceremony call ("ping" or "position").
func (c *Collector) RecordPoll(call string, ok bool) {
	c.polls.WithLabelValues(call, result(ok)).Inc()
}

// RecordNotify counts one outbound notification attempt.
func (c *Collector) RecordNotify(ok bool) {
	c.notifications.WithLabelValues(result(ok)).Inc()
}

// SessionStarted bumps the active session gauge.
func (c *Collector) SessionStarted() { c.sessions.Inc() }

// SessionStopped drops the active session gauge.
func (c *Collector) SessionStopped() { c.sessions.Dec() }

// HandleStarted bumps the live polling loop gauge.
func (c *Collector) HandleStarted() { c.handles.Inc() }

// HandleExited drops the live polling loop gauge.
func (c *Collector) HandleExited() { c.handles.Dec() }
