package discovery

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"
)

// Launch starts a new session in the background by re-executing this same
// binary into its hidden `serve` subcommand, detached from the caller's
// terminal, then polls for the socket to appear before returning — so a
// client that immediately issues `ask` right after `add` doesn't race the
// new supervisor's own bind-before-backgrounding step.
//
// Grounded on kandev's instance-manager launcher (process detachment,
// log-file redirection) narrowed to this repository's one launch shape.
func Launch(name, agentType string, extraArgs []string) (pid int, err error) {
	self, err := os.Executable()
	if err != nil {
		return 0, fmt.Errorf("resolve own executable: %w", err)
	}

	dir := RuntimeDir()
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return 0, fmt.Errorf("create runtime dir: %w", err)
	}
	logPath := filepath.Join(dir, name+".log")
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return 0, fmt.Errorf("open log file: %w", err)
	}

	args := append([]string{"serve", "--name", name, "--type", agentType}, extraArgs...)
	cmd := exec.Command(self, args...)
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.Stdin = nil
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		logFile.Close()
		return 0, fmt.Errorf("launch session %q: %w", name, err)
	}
	// The child owns the log file descriptor now; release it here so this
	// process isn't the one keeping it open after it returns.
	_ = logFile.Close()

	pid = cmd.Process.Pid
	if err := WritePIDFile(name, pid); err != nil {
		return pid, fmt.Errorf("write pid file: %w", err)
	}
	_ = cmd.Process.Release()

	if err := WaitForSocket(name, 5*time.Second); err != nil {
		return pid, err
	}
	return pid, nil
}

// WaitForSocket polls for name's control socket to exist, with exponential
// backoff bounded by pollMax, up to timeout.
func WaitForSocket(name string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	interval := pollInterval
	sock := SocketPath(name)
	for {
		if _, err := os.Stat(sock); err == nil {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("timed out waiting for session %q to start", name)
		}
		time.Sleep(interval)
		interval = nextInterval(interval)
	}
}
