package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eliteGoblin/focusd/app_block/internal/domain"
)

func TestOverrideController_LiftsBlockImmediately(t *testing.T) {
	h := newHarness(t, officeHours("a.app"))
	ctx := context.Background()
	require.True(t, h.signal(t, "a.app"))

	until, err := h.engine.RequestOverride(ctx, "a.app", 2*time.Second)
	require.NoError(t, err)

	assert.Equal(t, monday10.Add(2*time.Second), until)
	assert.False(t, h.surface.Visible())
	_, ok := h.engine.Session()
	assert.False(t, ok)
	assert.False(t, h.engine.IsBlockedNow(ctx, "a.app"))
	assert.Equal(t, float64(1), testutil.ToFloat64(h.metrics.Overrides))
}

func TestOverrideController_ExpiryResumesEnforcement(t *testing.T) {
	h := newHarness(t, officeHours("a.app"))
	require.True(t, h.signal(t, "a.app"))
	_, err := h.engine.RequestOverride(context.Background(), "a.app", 2*time.Second)
	require.NoError(t, err)

	h.clock.Advance(time.Second)
	assert.False(t, h.surface.Visible())

	h.clock.Advance(time.Second)
	assert.Equal(t, "a.app", h.surface.Target())
	session, ok := h.engine.Session()
	require.True(t, ok)
	assert.Equal(t, "a.app", session.TargetAppID)
	assert.Equal(t, 0, h.clock.Pending())
}

func TestOverrideController_ExpiryAfterSwitchAway(t *testing.T) {
	h := newHarness(t, officeHours("a.app"))
	require.True(t, h.signal(t, "a.app"))
	_, err := h.engine.RequestOverride(context.Background(), "a.app", 2*time.Second)
	require.NoError(t, err)
	require.True(t, h.signal(t, "b.app"))

	h.clock.Advance(2 * time.Second)

	assert.False(t, h.surface.Visible())
	assert.True(t, h.engine.IsBlockedNow(context.Background(), "a.app"), "override has ended")
}

func TestOverrideController_ExpiryAfterScheduleEnds(t *testing.T) {
	h := newHarness(t, officeHours("a.app"))
	h.clock.Set(time.Date(2024, time.January, 1, 16, 55, 0, 0, time.UTC))
	require.True(t, h.signal(t, "a.app"))
	_, err := h.engine.RequestOverride(context.Background(), "a.app", 10*time.Minute)
	require.NoError(t, err)

	h.clock.Advance(10 * time.Minute)

	assert.False(t, h.surface.Visible())
}

func TestOverrideController_NewOverrideReplacesOld(t *testing.T) {
	h := newHarness(t, officeHours("a.app"))
	ctx := context.Background()
	require.True(t, h.signal(t, "a.app"))

	_, err := h.engine.RequestOverride(ctx, "a.app", 2*time.Second)
	require.NoError(t, err)
	_, err = h.engine.RequestOverride(ctx, "a.app", 10*time.Second)
	require.NoError(t, err)

	h.clock.Advance(2 * time.Second)
	assert.False(t, h.surface.Visible(), "replaced override must not resume early")

	h.clock.Advance(8 * time.Second)
	assert.Equal(t, "a.app", h.surface.Target())
}

func TestOverrideController_RejectsBadRequests(t *testing.T) {
	h := newHarness(t, officeHours("a.app"))
	ctx := context.Background()

	_, err := h.engine.RequestOverride(ctx, "a.app", 0)
	assert.ErrorIs(t, err, domain.ErrInvalidDuration)

	_, err = h.engine.RequestOverride(ctx, "a.app", -time.Second)
	assert.ErrorIs(t, err, domain.ErrInvalidDuration)

	_, err = h.engine.RequestOverride(ctx, "", time.Second)
	assert.ErrorIs(t, err, domain.ErrInvalidRule)
}

func TestOverrideController_Unlock(t *testing.T) {
	h := newHarness(t, officeHours("a.app"))
	ctx := context.Background()
	require.True(t, h.signal(t, "a.app"))

	assert.False(t, h.engine.Unlock(ctx, "a.app", "wrong"))
	assert.True(t, h.surface.Visible())

	assert.True(t, h.engine.Unlock(ctx, "a.app", "letmein"))
	assert.False(t, h.surface.Visible())

	rule, err := h.repo.Get(ctx, "a.app")
	require.NoError(t, err)
	assert.False(t, rule.IsActive, "unlock deactivates the rule in storage")

	// Stays unblocked after the guard interval, unlike an override.
	h.clock.Advance(time.Hour)
	require.True(t, h.signal(t, "a.app"))
	assert.False(t, h.surface.Visible())

	assert.Equal(t, float64(1), testutil.ToFloat64(h.metrics.UnlockAttempts.WithLabelValues("accepted")))
	assert.Equal(t, float64(1), testutil.ToFloat64(h.metrics.UnlockAttempts.WithLabelValues("rejected")))
}

func TestOverrideController_UnlockCancelsOverride(t *testing.T) {
	h := newHarness(t, officeHours("a.app"))
	ctx := context.Background()
	require.True(t, h.signal(t, "a.app"))
	_, err := h.engine.RequestOverride(ctx, "a.app", time.Minute)
	require.NoError(t, err)

	require.True(t, h.engine.Unlock(ctx, "a.app", "letmein"))

	assert.Equal(t, 0, h.clock.Pending())
}

func TestOverrideController_UnlockWithoutSecret(t *testing.T) {
	rule := officeHours("a.app")
	rule.Secret = ""
	h := newHarness(t, rule)

	assert.False(t, h.engine.Unlock(context.Background(), "a.app", ""))
}

func TestOverrideController_UnlockStorageFailure(t *testing.T) {
	h := newHarness(t, officeHours("a.app"))
	ctx := context.Background()
	require.NoError(t, h.engine.Store().Refresh(ctx))
	require.True(t, h.signal(t, "a.app"))

	h.repo.Fail(true)

	assert.False(t, h.engine.Unlock(ctx, "a.app", "letmein"))
	assert.True(t, h.surface.Visible())
}
