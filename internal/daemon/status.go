package daemon

import (
	"fmt"
	"time"

	"github.com/eliteGoblin/focusd/app_block/internal/domain"
)

// Status is the daemon's registration plus a liveness check.
type Status struct {
	Registered bool
	Alive      bool
	State      domain.DaemonState
	// Stale is set when the last heartbeat is older than three intervals.
	Stale bool
}

// ReadStatus reports whether a daemon is registered and its PID is alive.
func ReadStatus(registry domain.DaemonRegistry, pm domain.ProcessManager, heartbeat time.Duration, now time.Time) (*Status, error) {
	state, err := registry.GetDaemon()
	if err != nil {
		return nil, fmt.Errorf("failed to read daemon state: %w", err)
	}
	if state == nil {
		return &Status{}, nil
	}
	st := &Status{
		Registered: true,
		Alive:      state.PID > 0 && pm.IsRunning(state.PID),
		State:      *state,
	}
	if heartbeat > 0 && now.Sub(state.LastHeartbeat) > 3*heartbeat {
		st.Stale = true
	}
	return st, nil
}
