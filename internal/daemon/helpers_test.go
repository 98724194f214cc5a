package daemon

import (
	"errors"
	"os"
	"sync"
	"time"

	"github.com/eliteGoblin/focusd/app_block/internal/domain"
)

// mockDaemonRegistry is a test double for domain.DaemonRegistry
type mockDaemonRegistry struct {
	mu          sync.Mutex
	state       *domain.DaemonState
	heartbeats  int
	registerErr error
}

func (m *mockDaemonRegistry) Register(state domain.DaemonState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.registerErr != nil {
		return m.registerErr
	}
	state.LastHeartbeat = time.Now()
	m.state = &state
	return nil
}

func (m *mockDaemonRegistry) UpdateHeartbeat() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == nil {
		return errors.New("daemon not registered")
	}
	m.heartbeats++
	m.state.LastHeartbeat = time.Now()
	return nil
}

func (m *mockDaemonRegistry) GetDaemon() (*domain.DaemonState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == nil {
		return nil, nil
	}
	s := *m.state
	return &s, nil
}

func (m *mockDaemonRegistry) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = nil
	return nil
}

func (m *mockDaemonRegistry) Heartbeats() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.heartbeats
}

// mockProcessManager reports a fixed set of PIDs as running.
type mockProcessManager struct {
	running map[int]bool
}

func (m *mockProcessManager) FindByName(string) ([]int, error) { return nil, nil }
func (m *mockProcessManager) Suspend(int) error                { return nil }
func (m *mockProcessManager) Resume(int) error                 { return nil }
func (m *mockProcessManager) IsStopped(int) bool               { return false }
func (m *mockProcessManager) IsRunning(pid int) bool           { return m.running[pid] }
func (m *mockProcessManager) GetCurrentPID() int               { return os.Getpid() }

var (
	_ domain.DaemonRegistry = (*mockDaemonRegistry)(nil)
	_ domain.ProcessManager = (*mockProcessManager)(nil)
)
