// Package discovery implements the client-side helpers spec.md §4.7 names:
// listing live sessions (reaping stale sockets as it goes), launching a new
// session in the background, and the prompt-and-await convenience a simple
// CLI wants instead of a bare fire-and-forget Prompt.
//
// Grounded on the ACP-multiplex reference's socketDir/cleanStaleSockets
// (stale-pid detection via syscall.Kill(pid, 0)) and on kandev's instance
// manager launcher shape, narrowed from HTTP-port bookkeeping to
// Unix-socket discovery.
package discovery

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

const defaultRuntimeDirName = "agent-team"

// RuntimeDir returns the directory all session sockets live under:
// $AGENT_TEAM_RUNTIME_DIR if set, else $XDG_RUNTIME_DIR/agent-team-<uid>,
// else os.TempDir()/agent-team-<uid>, so users sharing a host do not collide.
func RuntimeDir() string {
	if dir := os.Getenv("AGENT_TEAM_RUNTIME_DIR"); dir != "" {
		return dir
	}
	base := os.Getenv("XDG_RUNTIME_DIR")
	if base == "" {
		base = os.TempDir()
	}
	return filepath.Join(base, fmt.Sprintf("%s-%d", defaultRuntimeDirName, os.Getuid()))
}

// SocketPath returns the control socket path for session name.
func SocketPath(name string) string {
	return filepath.Join(RuntimeDir(), name+".sock")
}

// Session is one entry in List's result.
type Session struct {
	Name       string
	SocketPath string
	PID        int
}

// List scans the runtime directory for session sockets, reaping any whose
// recorded PID is no longer alive (a crashed or killed -9 supervisor
// leaves its socket file behind with nothing listening on it).
func List() ([]Session, error) {
	dir := RuntimeDir()
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read runtime dir %s: %w", dir, err)
	}

	sessions := make([]Session, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if !strings.HasSuffix(name, ".sock") {
			continue
		}
		sessionName := strings.TrimSuffix(name, ".sock")
		sockPath := filepath.Join(dir, name)

		pid, ok := pidFromPidFile(dir, sessionName)
		if ok && !processAlive(pid) {
			_ = os.Remove(sockPath)
			_ = os.Remove(pidFilePath(dir, sessionName))
			continue
		}
		sessions = append(sessions, Session{Name: sessionName, SocketPath: sockPath, PID: pid})
	}
	return sessions, nil
}

// pidFilePath is the small sidecar file Launch writes next to the socket,
// recording the supervisor's pid so List/stale-reaping doesn't need to
// connect to every socket just to find out who (if anyone) owns it.
func pidFilePath(dir, name string) string {
	return filepath.Join(dir, name+".pid")
}

func pidFromPidFile(dir, name string) (int, bool) {
	data, err := os.ReadFile(pidFilePath(dir, name))
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, false
	}
	return pid, true
}

// processAlive reports whether pid names a live process, using the
// zero-signal probe idiom (syscall.Kill(pid, 0) succeeds iff the process
// exists and is visible to us).
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	return syscall.Kill(pid, 0) == nil
}

// WritePIDFile records pid for name, so a later List can reap this
// session's socket without dialing it first.
func WritePIDFile(name string, pid int) error {
	dir := RuntimeDir()
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	return os.WriteFile(pidFilePath(dir, name), []byte(strconv.Itoa(pid)+"\n"), 0o600)
}

// pollInterval/pollMax bound the exponential backoff Ask and
// WaitForSocket use, per spec.md §4.7's polling-based client helpers.
var (
	pollInterval = 100 * time.Millisecond
	pollMax      = 2 * time.Second
)

// nextInterval doubles cur, capped at pollMax.
func nextInterval(cur time.Duration) time.Duration {
	next := cur * 2
	if next > pollMax {
		return pollMax
	}
	return next
}
