package usecase

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/app_block/internal/domain"
	"github.com/eliteGoblin/focusd/app_block/internal/monitoring"
	"github.com/eliteGoblin/focusd/app_block/internal/policy"
)

// EngineConfig holds engine configuration.
type EngineConfig struct {
	Loop    LoopConfig
	Monitor MonitorConfig

	// SelfAppID is the identifier of the blocker itself; signals for it are
	// ignored.
	SelfAppID string

	// ExemptApps are extra launcher/shell identifiers on top of
	// policy.DefaultLaunchers.
	ExemptApps []string
}

// DefaultEngineConfig returns default engine configuration.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Loop:      DefaultLoopConfig(),
		Monitor:   DefaultMonitorConfig(),
		SelfAppID: "appblock",
	}
}

// EngineDeps are the collaborators the engine is built on.
type EngineDeps struct {
	Repository domain.RuleRepository
	Overlay    domain.OverlaySurface
	Clock      domain.Clock
	Metrics    *monitoring.Metrics
	Logger     *zap.Logger
}

// Engine wires the schedule store, evaluator, monitor, enforcement loop and
// override controller together. Build one per process.
type Engine struct {
	store      *ScheduleStore
	decider    *Decider
	exempt     *policy.ExemptRegistry
	foreground *ForegroundState
	overlay    *OverlayGuard
	loop       *EnforcementLoop
	monitor    *ForegroundMonitor
	overrides  *OverrideController
	metrics    *monitoring.Metrics
	logger     *zap.Logger

	shutdownOnce sync.Once
}

// NewEngine builds an engine. Repository, Overlay and Clock are required; a
// nil Logger means no logging and nil Metrics a private registry.
func NewEngine(config EngineConfig, deps EngineDeps) *Engine {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := deps.Metrics
	if metrics == nil {
		metrics = monitoring.NewMetrics()
	}

	exempt := policy.NewExemptRegistry(config.SelfAppID)
	for _, id := range config.ExemptApps {
		exempt.Register(id)
	}

	foreground := &ForegroundState{}
	table := NewOverrideTable()
	store := NewScheduleStore(deps.Repository, deps.Clock, metrics, logger.Named("store"))
	decider := NewDecider(store, policy.NewEvaluator(logger.Named("policy")), table, deps.Clock)
	overlay := NewOverlayGuard(deps.Overlay, metrics, logger.Named("overlay"))
	loop := NewEnforcementLoop(config.Loop, decider, overlay, foreground, deps.Clock, metrics, logger.Named("loop"))
	monitor := NewForegroundMonitor(config.Monitor, foreground, exempt, decider, loop, deps.Clock, metrics, logger.Named("monitor"))
	overrides := NewOverrideController(store, table, loop, monitor, deps.Clock, metrics, logger.Named("override"))

	return &Engine{
		store:      store,
		decider:    decider,
		exempt:     exempt,
		foreground: foreground,
		overlay:    overlay,
		loop:       loop,
		monitor:    monitor,
		overrides:  overrides,
		metrics:    metrics,
		logger:     logger,
	}
}

// IsBlockedNow reports whether appID is blocked at this moment. Exempt apps
// are never blocked.
func (e *Engine) IsBlockedNow(ctx context.Context, appID string) bool {
	if e.exempt.IsExempt(appID) {
		return false
	}
	return e.decider.ShouldBlock(ctx, appID)
}

// OnForegroundChanged is the single entry point for foreground signals.
// Returns whether the signal was processed.
func (e *Engine) OnForegroundChanged(ctx context.Context, appID string, at time.Time) bool {
	return e.monitor.OnForegroundChanged(ctx, appID, at)
}

// RequestOverride suspends enforcement of appID for d.
func (e *Engine) RequestOverride(ctx context.Context, appID string, d time.Duration) (time.Time, error) {
	return e.overrides.RequestOverride(ctx, appID, d)
}

// Unlock deactivates appID's rule if secret matches.
func (e *Engine) Unlock(ctx context.Context, appID, secret string) bool {
	return e.overrides.Unlock(ctx, appID, secret)
}

// Session returns the current enforcement session.
func (e *Engine) Session() (domain.EnforcementSession, bool) {
	return e.loop.Session()
}

// Store returns the schedule store for rule CRUD.
func (e *Engine) Store() *ScheduleStore {
	return e.store
}

// Foreground returns the last foreground app and when it came up.
func (e *Engine) Foreground() (string, time.Time) {
	return e.foreground.Current(), e.foreground.Since()
}

// Metrics returns the engine's metrics.
func (e *Engine) Metrics() *monitoring.Metrics {
	return e.metrics
}

// Exempt returns the launcher/self registry.
func (e *Engine) Exempt() *policy.ExemptRegistry {
	return e.exempt
}

// Shutdown stops enforcement, cancels pending override expiries and hides
// the overlay. Safe to call more than once.
func (e *Engine) Shutdown() {
	e.shutdownOnce.Do(func() {
		e.overrides.Shutdown()
		e.monitor.Stop()
		e.loop.Shutdown()
		e.logger.Info("engine stopped")
	})
}
