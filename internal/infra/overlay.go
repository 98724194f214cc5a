package infra

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/app_block/internal/domain"
)

// SuspendOverlay is a desktop overlay surface: showing it for an app stops
// every process with that name (SIGSTOP), hiding it resumes them. It is
// visible while every suspended process is still stopped, so a process
// resumed behind our back, or a newly launched one, gets caught on the next
// enforcement tick.
type SuspendOverlay struct {
	pm     domain.ProcessManager
	logger *zap.Logger

	mu     sync.Mutex
	target string
	pids   []int
}

// NewSuspendOverlay creates a suspend overlay.
func NewSuspendOverlay(pm domain.ProcessManager, logger *zap.Logger) *SuspendOverlay {
	return &SuspendOverlay{pm: pm, logger: logger}
}

// Show suspends every process named appID.
func (o *SuspendOverlay) Show(appID string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.target != "" && o.target != appID {
		o.resumeLocked()
	}

	pids, err := o.pm.FindByName(appID)
	if err != nil {
		return fmt.Errorf("failed to find processes for %s: %w", appID, err)
	}

	o.target = appID
	o.pids = o.pids[:0]
	var lastErr error
	for _, pid := range pids {
		if err := o.pm.Suspend(pid); err != nil {
			o.logger.Warn("failed to suspend process", zap.String("app", appID), zap.Int("pid", pid), zap.Error(err))
			lastErr = err
			continue
		}
		o.pids = append(o.pids, pid)
	}
	o.logger.Debug("processes suspended", zap.String("app", appID), zap.Ints("pids", o.pids))
	if len(o.pids) == 0 && lastErr != nil {
		return fmt.Errorf("failed to suspend %s: %w", appID, lastErr)
	}
	return nil
}

// Hide resumes every process suspended by Show.
func (o *SuspendOverlay) Hide() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.resumeLocked()
	return nil
}

// Visible reports whether at least one process is suspended and all of
// them are still stopped.
func (o *SuspendOverlay) Visible() bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.target == "" || len(o.pids) == 0 {
		return false
	}
	for _, pid := range o.pids {
		if !o.pm.IsStopped(pid) {
			return false
		}
	}
	// A fresh instance of the app would be running unsuspended.
	pids, err := o.pm.FindByName(o.target)
	if err != nil {
		return true
	}
	return len(pids) == len(o.pids)
}

func (o *SuspendOverlay) resumeLocked() {
	for _, pid := range o.pids {
		if err := o.pm.Resume(pid); err != nil && o.pm.IsRunning(pid) {
			o.logger.Warn("failed to resume process", zap.String("app", o.target), zap.Int("pid", pid), zap.Error(err))
		}
	}
	o.target = ""
	o.pids = nil
}

// LogOverlay is a headless surface that only logs. Useful for dry runs and
// hosts that render the overlay themselves from the session endpoint.
type LogOverlay struct {
	logger *zap.Logger

	mu      sync.Mutex
	target  string
	visible bool
}

// NewLogOverlay creates a log-only overlay.
func NewLogOverlay(logger *zap.Logger) *LogOverlay {
	return &LogOverlay{logger: logger}
}

func (o *LogOverlay) Show(appID string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.target = appID
	o.visible = true
	o.logger.Info("overlay up", zap.String("app", appID))
	return nil
}

func (o *LogOverlay) Hide() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.visible {
		o.logger.Info("overlay down", zap.String("app", o.target))
	}
	o.target = ""
	o.visible = false
	return nil
}

func (o *LogOverlay) Visible() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.visible
}

// NewOverlay returns the surface named by kind ("suspend" or "log").
func NewOverlay(kind string, pm domain.ProcessManager, logger *zap.Logger) (domain.OverlaySurface, error) {
	switch kind {
	case "", "log":
		return NewLogOverlay(logger), nil
	case "suspend":
		return NewSuspendOverlay(pm, logger), nil
	default:
		return nil, fmt.Errorf("unknown overlay %q (want log or suspend)", kind)
	}
}

var (
	_ domain.OverlaySurface = (*SuspendOverlay)(nil)
	_ domain.OverlaySurface = (*LogOverlay)(nil)
)
