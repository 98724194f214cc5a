package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/app_block/internal/domain"
	"github.com/eliteGoblin/focusd/app_block/internal/monitoring"
)

// DefaultTickInterval is how often an active block is re-checked.
const DefaultTickInterval = 275 * time.Millisecond

// LoopConfig holds enforcement loop configuration.
type LoopConfig struct {
	TickInterval time.Duration
}

// DefaultLoopConfig returns default loop configuration.
func DefaultLoopConfig() LoopConfig {
	return LoopConfig{TickInterval: DefaultTickInterval}
}

// blockDecider is the part of Decider the loop needs.
type blockDecider interface {
	ShouldBlock(ctx context.Context, appID string) bool
}

// EnforcementLoop keeps the overlay on a blocked app while its schedule
// applies and the app stays in the foreground.
//
// At most one session exists per loop. Every start and stop bumps a
// generation counter; a ticking goroutine only acts while its generation is
// current, under the same lock as Start/Stop, so a stale goroutine can never
// re-display an overlay for a target it no longer owns.
type EnforcementLoop struct {
	config     LoopConfig
	decider    blockDecider
	overlay    *OverlayGuard
	foreground *ForegroundState
	clock      domain.Clock
	metrics    *monitoring.Metrics
	logger     *zap.Logger

	root       context.Context
	rootCancel context.CancelFunc
	wg         sync.WaitGroup

	mu           sync.Mutex
	gen          uint64
	session      *domain.EnforcementSession
	running      bool
	cancel       context.CancelFunc
	lastHidden   string
	lastHiddenAt time.Time
}

// NewEnforcementLoop creates an idle loop.
func NewEnforcementLoop(
	config LoopConfig,
	decider blockDecider,
	overlay *OverlayGuard,
	foreground *ForegroundState,
	clock domain.Clock,
	metrics *monitoring.Metrics,
	logger *zap.Logger,
) *EnforcementLoop {
	if config.TickInterval <= 0 {
		config.TickInterval = DefaultTickInterval
	}
	root, cancel := context.WithCancel(context.Background())
	return &EnforcementLoop{
		config:     config,
		decider:    decider,
		overlay:    overlay,
		foreground: foreground,
		clock:      clock,
		metrics:    metrics,
		logger:     logger,
		root:       root,
		rootCancel: cancel,
	}
}

// Start shows the overlay for appID and begins re-checking it. Starting the
// current target again only makes sure the overlay is up and the ticker is
// running; starting a different target replaces the current session.
func (l *EnforcementLoop) Start(appID string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.root.Err() != nil {
		return
	}

	if l.session != nil && l.session.TargetAppID == appID {
		_ = l.overlay.Show(appID)
		if !l.running {
			l.spawnLocked()
		}
		return
	}

	if l.session != nil {
		l.logger.Info("enforcement retargeted",
			zap.String("from", l.session.TargetAppID),
			zap.String("to", appID))
		l.cancelLocked()
	}

	l.session = &domain.EnforcementSession{
		ID:          uuid.NewString(),
		TargetAppID: appID,
		StartedAt:   l.clock.Now(),
	}
	_ = l.overlay.Show(appID)
	l.metrics.EnforcementActive.Set(1)
	l.logger.Info("enforcement started",
		zap.String("app", appID),
		zap.String("session", l.session.ID))
	l.spawnLocked()
}

// Stop ends the current session and hides the overlay. Returns the ended
// session, or nil if nothing was being enforced.
func (l *EnforcementLoop) Stop(reason string) *domain.EnforcementSession {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.endLocked(reason)
}

// StopFor ends the session only if it targets appID.
func (l *EnforcementLoop) StopFor(appID, reason string) (*domain.EnforcementSession, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.session == nil || l.session.TargetAppID != appID {
		return nil, false
	}
	return l.endLocked(reason), true
}

// HideIdle retries the hide for an overlay left up by a failed Stop. It does
// nothing while a session owns the overlay.
func (l *EnforcementLoop) HideIdle() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.session != nil {
		return
	}
	if app, shown := l.overlay.Shown(); shown {
		if err := l.overlay.Hide(); err == nil {
			l.logger.Info("stale overlay removed", zap.String("app", app))
		}
	}
}

// Session returns a copy of the current session.
func (l *EnforcementLoop) Session() (domain.EnforcementSession, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.session == nil {
		return domain.EnforcementSession{}, false
	}
	return *l.session, true
}

// Target returns the app under enforcement.
func (l *EnforcementLoop) Target() (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.session == nil {
		return "", false
	}
	return l.session.TargetAppID, true
}

// Enforcing reports whether appID has a session with a live ticker.
func (l *EnforcementLoop) Enforcing(appID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.session != nil && l.session.TargetAppID == appID && l.running
}

// LastHidden returns the app whose session ended most recently and when.
func (l *EnforcementLoop) LastHidden() (string, time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastHidden, l.lastHiddenAt
}

// Shutdown ends any session and waits for the ticker goroutine to exit.
func (l *EnforcementLoop) Shutdown() {
	l.mu.Lock()
	l.endLocked("shutdown")
	l.rootCancel()
	l.mu.Unlock()
	l.wg.Wait()
}

func (l *EnforcementLoop) spawnLocked() {
	ctx, cancel := context.WithCancel(l.root)
	l.cancel = cancel
	l.running = true
	gen := l.gen
	target := l.session.TargetAppID

	l.wg.Add(1)
	go l.run(ctx, gen, target)
}

// cancelLocked invalidates the running goroutine, if any.
func (l *EnforcementLoop) cancelLocked() {
	l.gen++
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	l.running = false
}

func (l *EnforcementLoop) endLocked(reason string) *domain.EnforcementSession {
	if l.session == nil {
		return nil
	}
	ended := *l.session
	l.cancelLocked()
	l.session = nil

	_ = l.overlay.Hide()
	l.lastHidden = ended.TargetAppID
	l.lastHiddenAt = l.clock.Now()
	l.metrics.EnforcementActive.Set(0)

	l.logger.Info("enforcement stopped",
		zap.String("app", ended.TargetAppID),
		zap.String("session", ended.ID),
		zap.String("reason", reason),
		zap.Duration("held", l.lastHiddenAt.Sub(ended.StartedAt)))
	return &ended
}

func (l *EnforcementLoop) run(ctx context.Context, gen uint64, target string) {
	defer l.wg.Done()

	ticker := time.NewTicker(l.config.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !l.tick(ctx, gen, target) {
				return
			}
		}
	}
}

// tick runs one re-check. Returns false when the goroutine should exit.
func (l *EnforcementLoop) tick(ctx context.Context, gen uint64, target string) bool {
	// Store lookups may hit storage; keep them outside the lock.
	block := l.decider.ShouldBlock(ctx, target)
	foreground := l.foreground.Current()

	l.mu.Lock()
	defer l.mu.Unlock()

	if gen != l.gen {
		return false
	}
	if !block {
		l.endLocked("schedule no longer applies")
		return false
	}
	if foreground != target {
		// The monitor owns hide-on-switch; just stop ticking.
		l.logger.Debug("target left foreground, loop exiting",
			zap.String("app", target), zap.String("foreground", foreground))
		l.cancelLocked()
		return false
	}
	_ = l.overlay.Show(target)
	return true
}
