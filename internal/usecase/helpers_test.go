package usecase

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/app_block/internal/domain"
	"github.com/eliteGoblin/focusd/app_block/internal/monitoring"
	"github.com/eliteGoblin/focusd/app_block/test/fixtures"
)

// monday10 is Monday 2024-01-01 10:00 UTC.
var monday10 = time.Date(2024, time.January, 1, 10, 0, 0, 0, time.UTC)

const testTick = 5 * time.Millisecond

func officeHours(appID string) domain.BlockRule {
	return domain.BlockRule{
		AppID:       appID,
		DisplayName: appID,
		IsActive:    true,
		StartTime:   "09:00",
		EndTime:     "17:00",
		EnabledDays: domain.EveryDay,
		Secret:      "letmein",
	}
}

type harness struct {
	repo    *fixtures.MemoryRepository
	surface *fixtures.RecordingOverlay
	clock   *fixtures.ManualClock
	metrics *monitoring.Metrics
	engine  *Engine
}

func newHarness(t *testing.T, rules ...domain.BlockRule) *harness {
	t.Helper()
	h := &harness{
		repo:    fixtures.NewMemoryRepository(rules...),
		surface: fixtures.NewRecordingOverlay(),
		clock:   fixtures.NewManualClock(monday10),
		metrics: monitoring.NewMetrics(),
	}
	config := DefaultEngineConfig()
	config.Loop.TickInterval = testTick
	config.ExemptApps = []string{"test.launcher"}
	h.engine = NewEngine(config, EngineDeps{
		Repository: h.repo,
		Overlay:    h.surface,
		Clock:      h.clock,
		Metrics:    h.metrics,
		Logger:     zap.NewNop(),
	})
	t.Cleanup(h.engine.Shutdown)
	return h
}

// signal delivers a foreground change stamped with the manual clock.
func (h *harness) signal(t *testing.T, appID string) bool {
	t.Helper()
	return h.engine.OnForegroundChanged(context.Background(), appID, h.clock.Now())
}
