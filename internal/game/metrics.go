// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GridQuest Contributors

package game

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/gridquest/gridquest/internal/action"
)

// Result labels for action metrics.
const (
	ResultSuccess  = "success"
	ResultRejected = "rejected"
	ResultError    = "error"
)

// Metrics records action processing counters. A nil *Metrics records nothing.
type Metrics struct {
	actions  *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics creates the action metrics and registers them with reg.
// Panics if registration fails (following prometheus convention).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		actions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gridquest_actions_total",
				Help: "Total number of processed actions",
			},
			[]string{"action", "result"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gridquest_action_duration_seconds",
				Help:    "Action processing duration in seconds, including persistence",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"action"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.actions, m.duration)
	}
	return m
}

// Actions returns the action counter.
func (m *Metrics) Actions() *prometheus.CounterVec { return m.actions }

func (m *Metrics) record(t action.Type, result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	label := actionLabel(t)
	m.actions.WithLabelValues(label, result).Inc()
	m.duration.WithLabelValues(label).Observe(elapsed.Seconds())
}

// actionLabel bounds label cardinality to the known action types.
func actionLabel(t action.Type) string {
	if action.Known(t) {
		return string(t)
	}
	return "unknown"
}
