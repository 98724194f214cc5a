package domain

import (
	"context"
	"time"
)

// RuleRepository is the durable storage for block rules, keyed by app id.
// Implementation: SQLCipher encrypted SQLite database.
type RuleRepository interface {
	// Get returns the rule for appID or ErrRuleNotFound.
	Get(ctx context.Context, appID string) (*BlockRule, error)

	// GetAll returns every stored rule.
	GetAll(ctx context.Context) ([]BlockRule, error)

	// GetActive returns rules with IsActive set.
	GetActive(ctx context.Context) ([]BlockRule, error)

	// Upsert inserts or replaces the rule.
	Upsert(ctx context.Context, rule BlockRule) error

	// Update applies a partial-field update. Returns ErrRuleNotFound when
	// no row matched.
	Update(ctx context.Context, appID string, update RuleUpdate) error

	// Delete removes the rule. Deleting a missing rule is not an error.
	Delete(ctx context.Context, appID string) error
}

// DaemonRegistry records the running daemon for the status command.
type DaemonRegistry interface {
	// Register saves the daemon's PID, version and listen address.
	Register(state DaemonState) error

	// UpdateHeartbeat updates timestamp for liveness check.
	UpdateHeartbeat() error

	// GetDaemon returns the registered daemon, or nil if none.
	GetDaemon() (*DaemonState, error)

	// Clear removes the registration (on clean shutdown).
	Clear() error
}

// OverlaySurface is the host-provided blocking overlay.
// Show and Hide are expected to be idempotent.
type OverlaySurface interface {
	// Show puts the blocking overlay on top of appID.
	Show(appID string) error

	// Hide removes the overlay.
	Hide() error

	// Visible reports whether the overlay is currently up. A surface that
	// the host tore down reports false.
	Visible() bool
}

// Timer is a pending one-shot action created by Clock.AfterFunc.
type Timer interface {
	// Stop cancels the action. Returns false if it already fired or was stopped.
	Stop() bool
}

// Clock supplies current time and one-shot delayed actions.
// Injected so evaluation and override expiry are deterministic in tests.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// ProcessManager handles OS process operations.
// Implementation: uses gopsutil for cross-platform support.
type ProcessManager interface {
	// FindByName returns PIDs of processes matching the pattern.
	FindByName(pattern string) ([]int, error)

	// Suspend stops a process (SIGSTOP).
	Suspend(pid int) error

	// Resume continues a stopped process (SIGCONT).
	Resume(pid int) error

	// IsStopped reports whether the process exists and is stopped.
	IsStopped(pid int) bool

	// IsRunning checks if a PID exists and is running.
	IsRunning(pid int) bool

	// GetCurrentPID returns the current process PID.
	GetCurrentPID() int
}

// KeyProvider abstracts the source of the database encryption key.
type KeyProvider interface {
	// GetKey returns the encryption key bytes.
	GetKey() ([]byte, error)

	// StoreKey persists a new encryption key.
	StoreKey(key []byte) error

	// KeyExists checks if a key has been generated.
	KeyExists() bool
}
