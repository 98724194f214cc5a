// Package monitoring exposes Prometheus metrics for the blocking engine.
package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Signal results recorded by the foreground monitor.
const (
	SignalProcessed = "processed"
	SignalDropped   = "dropped"
	SignalIgnored   = "ignored"
	SignalStale     = "stale"
)

// Metrics holds all engine metrics.
type Metrics struct {
	Signals           *prometheus.CounterVec
	OverlayShows      prometheus.Counter
	OverlayHides      prometheus.Counter
	EnforcementActive prometheus.Gauge
	Overrides         prometheus.Counter
	UnlockAttempts    *prometheus.CounterVec
	StoreRefreshes    *prometheus.CounterVec
	StoreErrors       *prometheus.CounterVec
	RulesCached       prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics registers engine metrics on a fresh registry.
func NewMetrics() *Metrics {
	return NewMetricsWithRegistry(prometheus.NewRegistry())
}

// NewMetricsWithRegistry registers engine metrics on reg.
func NewMetricsWithRegistry(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		Signals: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "appblock_foreground_signals_total",
				Help: "Foreground-change signals by outcome",
			},
			[]string{"result"},
		),
		OverlayShows: f.NewCounter(prometheus.CounterOpts{
			Name: "appblock_overlay_shows_total",
			Help: "Times the overlay was put on screen",
		}),
		OverlayHides: f.NewCounter(prometheus.CounterOpts{
			Name: "appblock_overlay_hides_total",
			Help: "Times the overlay was removed",
		}),
		EnforcementActive: f.NewGauge(prometheus.GaugeOpts{
			Name: "appblock_enforcement_active",
			Help: "1 while an enforcement session exists",
		}),
		Overrides: f.NewCounter(prometheus.CounterOpts{
			Name: "appblock_overrides_total",
			Help: "Temporary overrides granted",
		}),
		UnlockAttempts: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "appblock_unlock_attempts_total",
				Help: "Unlock attempts by result",
			},
			[]string{"result"},
		),
		StoreRefreshes: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "appblock_store_refreshes_total",
				Help: "Schedule store refreshes by result",
			},
			[]string{"result"},
		),
		StoreErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "appblock_store_errors_total",
				Help: "Durable storage failures by operation",
			},
			[]string{"op"},
		),
		RulesCached: f.NewGauge(prometheus.GaugeOpts{
			Name: "appblock_rules_cached",
			Help: "Rules currently held in the schedule cache",
		}),
	}
}

// Registry returns the registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordSignal counts one foreground signal outcome.
func (m *Metrics) RecordSignal(result string) {
	m.Signals.WithLabelValues(result).Inc()
}

// RecordUnlock counts one unlock attempt.
func (m *Metrics) RecordUnlock(ok bool) {
	result := "rejected"
	if ok {
		result = "accepted"
	}
	m.UnlockAttempts.WithLabelValues(result).Inc()
}

// RecordRefresh counts one store refresh.
func (m *Metrics) RecordRefresh(err error, rules int) {
	if err != nil {
		m.StoreRefreshes.WithLabelValues("error").Inc()
		return
	}
	m.StoreRefreshes.WithLabelValues("ok").Inc()
	m.RulesCached.Set(float64(rules))
}

// RecordStoreError counts one storage failure.
func (m *Metrics) RecordStoreError(op string) {
	m.StoreErrors.WithLabelValues(op).Inc()
}
