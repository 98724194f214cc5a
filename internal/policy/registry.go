package policy

import (
	"sort"
	"strings"
	"sync"
)

// DefaultLaunchers are shell/launcher identifiers that are never blocked.
// Platform adapters may register more.
var DefaultLaunchers = []string{
	"com.android.launcher",
	"com.android.launcher3",
	"com.android.systemui",
	"com.google.android.apps.nexuslauncher",
	"com.sec.android.app.launcher",
	"com.miui.home",
	"com.apple.springboard",
	"com.apple.dock",
	"com.apple.finder",
	"com.apple.loginwindow",
}

// ExemptRegistry holds the app identifiers the monitor must never block:
// the monitor's own identifier and known launchers.
type ExemptRegistry struct {
	mu        sync.RWMutex
	self      string
	launchers map[string]struct{}
}

// NewExemptRegistry creates a registry with the default launchers.
func NewExemptRegistry(selfID string) *ExemptRegistry {
	return NewExemptRegistryWith(selfID, DefaultLaunchers...)
}

// NewExemptRegistryWith creates a registry with custom launchers (for testing).
func NewExemptRegistryWith(selfID string, launchers ...string) *ExemptRegistry {
	r := &ExemptRegistry{
		self:      strings.TrimSpace(selfID),
		launchers: make(map[string]struct{}),
	}
	for _, id := range launchers {
		r.Register(id)
	}
	return r
}

// Register adds a launcher identifier.
func (r *ExemptRegistry) Register(appID string) {
	appID = strings.TrimSpace(appID)
	if appID == "" {
		return
	}
	r.mu.Lock()
	r.launchers[appID] = struct{}{}
	r.mu.Unlock()
}

// IsSelf reports whether appID is the monitor's own identifier.
func (r *ExemptRegistry) IsSelf(appID string) bool {
	return r.self != "" && appID == r.self
}

// IsLauncher reports whether appID is a registered launcher.
func (r *ExemptRegistry) IsLauncher(appID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.launchers[appID]
	return ok
}

// IsExempt reports whether appID must never be evaluated or blocked.
func (r *ExemptRegistry) IsExempt(appID string) bool {
	return r.IsSelf(appID) || r.IsLauncher(appID)
}

// List returns all launcher identifiers, sorted.
func (r *ExemptRegistry) List() []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.launchers))
	for id := range r.launchers {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	sort.Strings(ids)
	return ids
}
