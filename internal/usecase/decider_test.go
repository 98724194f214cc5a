package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/app_block/internal/monitoring"
	"github.com/eliteGoblin/focusd/app_block/internal/policy"
	"github.com/eliteGoblin/focusd/app_block/test/fixtures"
)

func TestOverrideTable(t *testing.T) {
	table := NewOverrideTable()
	until := monday10.Add(time.Minute)

	assert.False(t, table.Active("a.app", monday10))

	table.Set("a.app", until)
	assert.True(t, table.Active("a.app", monday10))
	assert.False(t, table.Active("a.app", until), "override ends at until")

	got, ok := table.Until("a.app")
	assert.True(t, ok)
	assert.Equal(t, until, got)

	assert.False(t, table.Clear("a.app", until.Add(time.Second)), "superseded expiry must not clear")
	assert.True(t, table.Clear("a.app", until))
	assert.False(t, table.Active("a.app", monday10))
}

func TestDecider_ShouldBlock(t *testing.T) {
	inactive := officeHours("off.app")
	inactive.IsActive = false
	malformed := officeHours("bad.app")
	malformed.StartTime = "9am"

	repo := fixtures.NewMemoryRepository(officeHours("a.app"), inactive, malformed)
	clock := fixtures.NewManualClock(monday10)
	store := NewScheduleStore(repo, clock, monitoring.NewMetrics(), zap.NewNop())
	overrides := NewOverrideTable()
	decider := NewDecider(store, policy.NewEvaluator(zap.NewNop()), overrides, clock)
	ctx := context.Background()

	assert.True(t, decider.ShouldBlock(ctx, "a.app"))
	assert.False(t, decider.ShouldBlock(ctx, "off.app"))
	assert.False(t, decider.ShouldBlock(ctx, "bad.app"), "malformed schedule fails open")
	assert.False(t, decider.ShouldBlock(ctx, "unknown.app"))

	overrides.Set("a.app", monday10.Add(time.Minute))
	assert.False(t, decider.ShouldBlock(ctx, "a.app"), "override wins over schedule")

	clock.Advance(time.Minute)
	assert.True(t, decider.ShouldBlock(ctx, "a.app"))

	repo.Fail(true)
	assert.True(t, decider.ShouldBlock(ctx, "a.app"), "cached rule still applies")
	assert.False(t, decider.ShouldBlock(ctx, "other.app"), "storage failure fails open")
}
