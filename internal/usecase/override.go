package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/app_block/internal/domain"
	"github.com/eliteGoblin/focusd/app_block/internal/monitoring"
)

// OverrideController grants time-boxed overrides and handles unlocks.
type OverrideController struct {
	store     *ScheduleStore
	overrides *OverrideTable
	loop      *EnforcementLoop
	monitor   *ForegroundMonitor
	clock     domain.Clock
	metrics   *monitoring.Metrics
	logger    *zap.Logger

	mu     sync.Mutex
	timers map[string]domain.Timer
}

// NewOverrideController creates a controller.
func NewOverrideController(
	store *ScheduleStore,
	overrides *OverrideTable,
	loop *EnforcementLoop,
	monitor *ForegroundMonitor,
	clock domain.Clock,
	metrics *monitoring.Metrics,
	logger *zap.Logger,
) *OverrideController {
	return &OverrideController{
		store:     store,
		overrides: overrides,
		loop:      loop,
		monitor:   monitor,
		clock:     clock,
		metrics:   metrics,
		logger:    logger,
		timers:    make(map[string]domain.Timer),
	}
}

// RequestOverride suspends enforcement of appID for d. Any active block on
// appID is lifted immediately. A new override for the same app replaces the
// old one. Returns when the override expires.
func (c *OverrideController) RequestOverride(ctx context.Context, appID string, d time.Duration) (time.Time, error) {
	appID = strings.TrimSpace(appID)
	if appID == "" {
		return time.Time{}, fmt.Errorf("%w: app id is required", domain.ErrInvalidRule)
	}
	if d <= 0 {
		return time.Time{}, fmt.Errorf("%w: %s", domain.ErrInvalidDuration, d)
	}

	until := c.clock.Now().Add(d)
	c.overrides.Set(appID, until)

	if ended, ok := c.loop.StopFor(appID, "override granted"); ok {
		c.logger.Info("block lifted by override",
			zap.String("app", appID), zap.String("session", ended.ID))
	}

	c.mu.Lock()
	if old, ok := c.timers[appID]; ok {
		old.Stop()
	}
	c.timers[appID] = c.clock.AfterFunc(d, func() {
		c.expire(appID, until)
	})
	c.mu.Unlock()

	c.metrics.Overrides.Inc()
	c.logger.Info("override granted",
		zap.String("app", appID),
		zap.Duration("duration", d),
		zap.Time("until", until))
	return until, nil
}

// Unlock deactivates appID's rule if secret matches. A wrong secret, an app
// without a secret or a storage failure all report false.
func (c *OverrideController) Unlock(ctx context.Context, appID, secret string) bool {
	ok := c.store.VerifySecret(ctx, appID, secret)
	c.metrics.RecordUnlock(ok)
	if !ok {
		c.logger.Info("unlock rejected", zap.String("app", appID))
		return false
	}

	if err := c.store.SetActive(ctx, appID, false); err != nil {
		c.logger.Warn("unlock accepted but rule could not be deactivated",
			zap.String("app", appID), zap.Error(err))
		return false
	}

	c.loop.StopFor(appID, "unlocked")
	c.cancel(appID)
	c.overrides.Remove(appID)
	c.logger.Info("app unlocked", zap.String("app", appID))
	return true
}

// Shutdown cancels every pending expiry.
func (c *OverrideController) Shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, t := range c.timers {
		t.Stop()
		delete(c.timers, id)
	}
}

func (c *OverrideController) cancel(appID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.timers[appID]; ok {
		t.Stop()
		delete(c.timers, appID)
	}
}

func (c *OverrideController) expire(appID string, until time.Time) {
	if !c.overrides.Clear(appID, until) {
		return
	}

	c.mu.Lock()
	delete(c.timers, appID)
	c.mu.Unlock()

	c.logger.Info("override expired", zap.String("app", appID))
	c.monitor.Recheck(appID)
}
