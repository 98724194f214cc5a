package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/app_block/internal/domain"
	"github.com/eliteGoblin/focusd/app_block/internal/monitoring"
	"github.com/eliteGoblin/focusd/app_block/internal/policy"
)

// DefaultMinReblockInterval is how long an app stays unblocked after its
// overlay was hidden, to dampen flicker from signal bursts.
const DefaultMinReblockInterval = 1500 * time.Millisecond

const recheckRetryInterval = 50 * time.Millisecond

// MonitorConfig holds foreground monitor configuration.
type MonitorConfig struct {
	MinReblockInterval time.Duration
}

// DefaultMonitorConfig returns default monitor configuration.
func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{MinReblockInterval: DefaultMinReblockInterval}
}

// ForegroundMonitor turns foreground-change signals into enforcement
// decisions. Only one signal is processed at a time; a signal that arrives
// while another is in flight is dropped, never queued.
type ForegroundMonitor struct {
	config     MonitorConfig
	foreground *ForegroundState
	exempt     *policy.ExemptRegistry
	decider    blockDecider
	loop       *EnforcementLoop
	clock      domain.Clock
	metrics    *monitoring.Metrics
	logger     *zap.Logger

	processing atomic.Bool

	// Only touched while processing is held.
	lastEventAt time.Time

	recheckMu sync.Mutex
	recheck   domain.Timer
}

// NewForegroundMonitor creates a monitor.
func NewForegroundMonitor(
	config MonitorConfig,
	foreground *ForegroundState,
	exempt *policy.ExemptRegistry,
	decider blockDecider,
	loop *EnforcementLoop,
	clock domain.Clock,
	metrics *monitoring.Metrics,
	logger *zap.Logger,
) *ForegroundMonitor {
	if config.MinReblockInterval < 0 {
		config.MinReblockInterval = 0
	}
	return &ForegroundMonitor{
		config:     config,
		foreground: foreground,
		exempt:     exempt,
		decider:    decider,
		loop:       loop,
		clock:      clock,
		metrics:    metrics,
		logger:     logger,
	}
}

// OnForegroundChanged handles one signal. A zero timestamp means "now" and a
// timestamp ahead of the clock is treated as "now".
// Returns true if the signal was processed, false if it was ignored,
// stale or dropped because another signal was in flight.
func (m *ForegroundMonitor) OnForegroundChanged(ctx context.Context, appID string, at time.Time) bool {
	appID = strings.TrimSpace(appID)
	if appID == "" || m.exempt.IsSelf(appID) {
		m.metrics.RecordSignal(monitoring.SignalIgnored)
		return false
	}

	if !m.processing.CompareAndSwap(false, true) {
		m.logger.Debug("signal dropped, transition in flight", zap.String("app", appID))
		m.metrics.RecordSignal(monitoring.SignalDropped)
		return false
	}
	defer m.processing.Store(false)

	now := m.clock.Now()
	if at.After(now) {
		m.logger.Debug("future signal timestamp clamped",
			zap.String("app", appID), zap.Time("at", at), zap.Time("now", now))
		at = now
	}
	if at.IsZero() {
		at = now
	}
	if at.Before(m.lastEventAt) {
		m.logger.Debug("stale signal dropped",
			zap.String("app", appID),
			zap.Time("at", at),
			zap.Time("last", m.lastEventAt))
		m.metrics.RecordSignal(monitoring.SignalStale)
		return false
	}
	m.lastEventAt = at

	if err := m.transition(ctx, appID, at); err != nil {
		m.logger.Error("foreground transition failed", zap.String("app", appID), zap.Error(err))
	}
	m.metrics.RecordSignal(monitoring.SignalProcessed)
	return true
}

// transition runs with processing held.
func (m *ForegroundMonitor) transition(ctx context.Context, appID string, at time.Time) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in transition: %v", r)
		}
	}()

	previous := m.foreground.Current()

	if m.exempt.IsLauncher(appID) {
		m.foreground.set(appID, at)
		if ended := m.loop.Stop("switched to launcher"); ended != nil {
			m.logger.Debug("left blocked app for launcher", zap.String("app", ended.TargetAppID))
		}
		m.loop.HideIdle()
		return nil
	}

	if appID == previous {
		if m.loop.Enforcing(appID) {
			return nil
		}
		if m.shouldStart(ctx, appID) {
			m.loop.Start(appID)
			return nil
		}
		m.loop.StopFor(appID, "no longer blocked")
		m.loop.HideIdle()
		return nil
	}

	m.foreground.set(appID, at)
	m.logger.Debug("foreground changed", zap.String("from", previous), zap.String("to", appID))

	if m.shouldStart(ctx, appID) {
		m.loop.Start(appID)
		return nil
	}
	if target, ok := m.loop.Target(); ok {
		reason := "switched away"
		if target == appID {
			reason = "no longer blocked"
		}
		m.loop.Stop(reason)
	}
	m.loop.HideIdle()
	return nil
}

// shouldStart reports whether appID must be blocked now. An app whose
// overlay was hidden within MinReblockInterval is left alone and re-checked
// once the interval has passed.
func (m *ForegroundMonitor) shouldStart(ctx context.Context, appID string) bool {
	if !m.decider.ShouldBlock(ctx, appID) {
		return false
	}
	hidden, hiddenAt := m.loop.LastHidden()
	if hidden != appID || m.config.MinReblockInterval == 0 {
		return true
	}
	remaining := m.config.MinReblockInterval - m.clock.Now().Sub(hiddenAt)
	if remaining <= 0 {
		return true
	}
	m.logger.Debug("re-block suppressed",
		zap.String("app", appID), zap.Duration("retry_in", remaining))
	m.scheduleRecheck(appID, remaining)
	return false
}

// scheduleRecheck replaces any pending deferred check. Only the foreground
// app can need one, so a single slot is enough.
func (m *ForegroundMonitor) scheduleRecheck(appID string, after time.Duration) {
	m.recheckMu.Lock()
	defer m.recheckMu.Unlock()
	if m.recheck != nil {
		m.recheck.Stop()
	}
	m.recheck = m.clock.AfterFunc(after, func() {
		m.Recheck(appID)
	})
}

// Recheck re-evaluates appID outside of a signal, for example when its
// override expires. It takes the same single-flight guard as signals; if a
// signal is in flight the check is retried shortly after.
func (m *ForegroundMonitor) Recheck(appID string) {
	if m.foreground.Current() != appID {
		return
	}
	if !m.processing.CompareAndSwap(false, true) {
		m.scheduleRecheck(appID, recheckRetryInterval)
		return
	}
	defer m.processing.Store(false)

	if m.foreground.Current() != appID || m.loop.Enforcing(appID) {
		return
	}
	if m.shouldStart(context.Background(), appID) {
		m.logger.Debug("enforcement resumed", zap.String("app", appID))
		m.loop.Start(appID)
	}
}

// Stop cancels any pending deferred check.
func (m *ForegroundMonitor) Stop() {
	m.recheckMu.Lock()
	defer m.recheckMu.Unlock()
	if m.recheck != nil {
		m.recheck.Stop()
		m.recheck = nil
	}
}
