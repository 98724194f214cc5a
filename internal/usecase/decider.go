package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/eliteGoblin/focusd/app_block/internal/domain"
	"github.com/eliteGoblin/focusd/app_block/internal/policy"
)

// ForegroundState is the last foreground app recorded by the monitor.
type ForegroundState struct {
	mu    sync.RWMutex
	app   string
	since time.Time
}

// Current returns the foreground app id, or "" before the first signal.
func (f *ForegroundState) Current() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.app
}

// Since returns when the current app came to the foreground.
func (f *ForegroundState) Since() time.Time {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.since
}

func (f *ForegroundState) set(appID string, at time.Time) {
	f.mu.Lock()
	f.app = appID
	f.since = at
	f.mu.Unlock()
}

// OverrideTable records temporary overrides by app id.
type OverrideTable struct {
	mu    sync.Mutex
	until map[string]time.Time
}

// NewOverrideTable creates an empty table.
func NewOverrideTable() *OverrideTable {
	return &OverrideTable{until: make(map[string]time.Time)}
}

// Set records an override for appID expiring at until.
func (t *OverrideTable) Set(appID string, until time.Time) {
	t.mu.Lock()
	t.until[appID] = until
	t.mu.Unlock()
}

// Clear removes the override only if it still expires at until, so an
// expiry for a superseded override is a no-op.
func (t *OverrideTable) Clear(appID string, until time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	cur, ok := t.until[appID]
	if !ok || !cur.Equal(until) {
		return false
	}
	delete(t.until, appID)
	return true
}

// Remove drops any override for appID.
func (t *OverrideTable) Remove(appID string) {
	t.mu.Lock()
	delete(t.until, appID)
	t.mu.Unlock()
}

// Active reports whether appID is overridden at now.
func (t *OverrideTable) Active(appID string, now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	until, ok := t.until[appID]
	return ok && now.Before(until)
}

// Until returns the expiry of appID's override.
func (t *OverrideTable) Until(appID string) (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	until, ok := t.until[appID]
	return until, ok
}

// Decider answers "should appID be blocked right now" from the store, the
// evaluator and active overrides. Unknown apps are never blocked.
type Decider struct {
	store     *ScheduleStore
	evaluator *policy.Evaluator
	overrides *OverrideTable
	clock     domain.Clock
}

// NewDecider creates a decider.
func NewDecider(store *ScheduleStore, evaluator *policy.Evaluator, overrides *OverrideTable, clock domain.Clock) *Decider {
	return &Decider{
		store:     store,
		evaluator: evaluator,
		overrides: overrides,
		clock:     clock,
	}
}

// ShouldBlock reports whether appID must be blocked now.
func (d *Decider) ShouldBlock(ctx context.Context, appID string) bool {
	now := d.clock.Now()
	if d.overrides.Active(appID, now) {
		return false
	}
	rule, ok := d.store.Get(ctx, appID)
	if !ok {
		return false
	}
	return d.evaluator.ShouldBlockNow(rule, now)
}
