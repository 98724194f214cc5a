package daemon

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"
)

// StartDaemon spawns `<self> daemon <args...>` detached from the parent
// process (new session, no stdio) and returns its PID.
func StartDaemon(args ...string) (int, error) {
	executable, err := os.Executable()
	if err != nil {
		return 0, fmt.Errorf("failed to locate executable: %w", err)
	}
	return StartDaemonWithPath(executable, args...)
}

// StartDaemonWithPath is StartDaemon with an explicit binary.
func StartDaemonWithPath(binary string, args ...string) (int, error) {
	cmd := exec.Command(binary, append([]string{"daemon"}, args...)...)

	// Detach from parent process
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid: true, // Create new session (detach from terminal)
	}

	// No stdin/stdout/stderr - fully detached
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("failed to start daemon: %w", err)
	}
	pid := cmd.Process.Pid
	// Not waited on; the child outlives this process.
	_ = cmd.Process.Release()
	return pid, nil
}
