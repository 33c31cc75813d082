package discovery

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func withRuntimeDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("AGENT_TEAM_RUNTIME_DIR", dir)
	return dir
}

func TestListOnMissingDirReturnsEmpty(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("AGENT_TEAM_RUNTIME_DIR", filepath.Join(dir, "does-not-exist"))

	sessions, err := List()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sessions) != 0 {
		t.Fatalf("expected no sessions, got %d", len(sessions))
	}
}

func TestListReapsStaleSocket(t *testing.T) {
	dir := withRuntimeDir(t)

	if err := os.WriteFile(filepath.Join(dir, "dead.sock"), nil, 0o600); err != nil {
		t.Fatal(err)
	}
	// a pid almost certainly not in use; syscall.Kill(pid, 0) must fail.
	if err := WritePIDFile("dead", 999999); err != nil {
		t.Fatal(err)
	}

	sessions, err := List()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sessions) != 0 {
		t.Fatalf("expected the stale session to be reaped, got %v", sessions)
	}
	if _, err := os.Stat(filepath.Join(dir, "dead.sock")); !os.IsNotExist(err) {
		t.Fatal("expected dead.sock to be removed")
	}
	if _, err := os.Stat(filepath.Join(dir, "dead.pid")); !os.IsNotExist(err) {
		t.Fatal("expected dead.pid to be removed")
	}
}

func TestListKeepsSocketOfLiveProcess(t *testing.T) {
	dir := withRuntimeDir(t)

	if err := os.WriteFile(filepath.Join(dir, "alive.sock"), nil, 0o600); err != nil {
		t.Fatal(err)
	}
	if err := WritePIDFile("alive", os.Getpid()); err != nil {
		t.Fatal(err)
	}

	sessions, err := List()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("expected exactly one live session, got %d", len(sessions))
	}
	if sessions[0].Name != "alive" || sessions[0].PID != os.Getpid() {
		t.Fatalf("unexpected session: %+v", sessions[0])
	}
}

func TestSocketPathJoinsRuntimeDir(t *testing.T) {
	dir := withRuntimeDir(t)
	got := SocketPath("foo")
	want := filepath.Join(dir, "foo.sock")
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestNextIntervalDoublesAndCaps(t *testing.T) {
	cur := 100 * time.Millisecond
	cur = nextInterval(cur)
	if cur != 200*time.Millisecond {
		t.Fatalf("expected 200ms, got %v", cur)
	}
	for i := 0; i < 10; i++ {
		cur = nextInterval(cur)
	}
	if cur != pollMax {
		t.Fatalf("expected interval to cap at %v, got %v", pollMax, cur)
	}
}
