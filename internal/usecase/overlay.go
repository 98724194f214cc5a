package usecase

import (
	"sync"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/app_block/internal/domain"
	"github.com/eliteGoblin/focusd/app_block/internal/monitoring"
)

// OverlayGuard makes the host overlay idempotent: Show for the target that
// is already visible and Hide while hidden never reach the surface. Show
// re-displays when the surface reports it was torn down.
type OverlayGuard struct {
	surface domain.OverlaySurface
	metrics *monitoring.Metrics
	logger  *zap.Logger

	mu     sync.Mutex
	shown  bool
	target string
}

// NewOverlayGuard wraps surface.
func NewOverlayGuard(surface domain.OverlaySurface, metrics *monitoring.Metrics, logger *zap.Logger) *OverlayGuard {
	return &OverlayGuard{surface: surface, metrics: metrics, logger: logger}
}

// Show puts the overlay up for appID.
func (g *OverlayGuard) Show(appID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.shown && g.target == appID && g.surface.Visible() {
		return nil
	}
	redisplay := g.shown && g.target == appID

	if err := g.surface.Show(appID); err != nil {
		g.logger.Warn("failed to show overlay", zap.String("app", appID), zap.Error(err))
		return err
	}
	g.shown = true
	g.target = appID
	g.metrics.OverlayShows.Inc()

	if redisplay {
		g.logger.Info("overlay was torn down, re-displayed", zap.String("app", appID))
	} else {
		g.logger.Info("overlay shown", zap.String("app", appID))
	}
	return nil
}

// Hide removes the overlay if it is up.
func (g *OverlayGuard) Hide() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.shown {
		return nil
	}
	if err := g.surface.Hide(); err != nil {
		g.logger.Warn("failed to hide overlay", zap.String("app", g.target), zap.Error(err))
		return err
	}
	g.logger.Info("overlay hidden", zap.String("app", g.target))
	g.shown = false
	g.target = ""
	g.metrics.OverlayHides.Inc()
	return nil
}

// Shown returns the app the overlay was last shown for.
func (g *OverlayGuard) Shown() (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.target, g.shown
}
