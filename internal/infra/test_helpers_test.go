package infra

import (
	"os"
	"strings"
	"sync"

	"github.com/eliteGoblin/focusd/app_block/internal/domain"
)

// mockProcessManager is a test double for ProcessManager. Processes are
// registered by name; Suspend/Resume flip their stopped flag.
type mockProcessManager struct {
	mu         sync.Mutex
	names      map[int]string
	stopped    map[int]bool
	suspendErr error
	suspended  []int
	resumed    []int
}

func newMockProcessManager() *mockProcessManager {
	return &mockProcessManager{
		names:   make(map[int]string),
		stopped: make(map[int]bool),
	}
}

func (m *mockProcessManager) AddProcess(pid int, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.names[pid] = name
}

func (m *mockProcessManager) Exit(pid int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.names, pid)
	delete(m.stopped, pid)
}

// Continue resumes pid without going through Resume, like an external SIGCONT.
func (m *mockProcessManager) Continue(pid int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped[pid] = false
}

func (m *mockProcessManager) FindByName(name string) ([]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var pids []int
	for pid, n := range m.names {
		if strings.EqualFold(n, name) {
			pids = append(pids, pid)
		}
	}
	return pids, nil
}

func (m *mockProcessManager) Suspend(pid int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.suspendErr != nil {
		return m.suspendErr
	}
	m.stopped[pid] = true
	m.suspended = append(m.suspended, pid)
	return nil
}

func (m *mockProcessManager) Resume(pid int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped[pid] = false
	m.resumed = append(m.resumed, pid)
	return nil
}

func (m *mockProcessManager) IsStopped(pid int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, exists := m.names[pid]
	return exists && m.stopped[pid]
}

func (m *mockProcessManager) IsRunning(pid int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, exists := m.names[pid]
	return exists
}

func (m *mockProcessManager) GetCurrentPID() int {
	return os.Getpid()
}

var _ domain.ProcessManager = (*mockProcessManager)(nil)
