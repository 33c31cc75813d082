package registry

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLookupUnknownType(t *testing.T) {
	r := New()
	_, err := r.Lookup("no-such-agent")
	var unknown *ErrUnknownType
	if !errors.As(err, &unknown) {
		t.Fatalf("expected ErrUnknownType, got %v", err)
	}
}

func TestLookupMissingExecutable(t *testing.T) {
	r := New()
	r.Merge(map[string]LaunchDescriptor{
		"fake-agent": {Executable: "definitely-not-on-path-xyz", AdapterHint: "brew install fake-agent"},
	})
	_, err := r.Lookup("fake-agent")
	var missing *ErrExecutableMissing
	if !errors.As(err, &missing) {
		t.Fatalf("expected ErrExecutableMissing, got %v", err)
	}
	if missing.AdapterHint == "" {
		t.Fatal("expected adapter hint to be preserved in the error")
	}
}

func TestLookupBuiltinUsesPATH(t *testing.T) {
	r := New()
	r.Merge(map[string]LaunchDescriptor{
		"shell": {Executable: "sh", Args: []string{"-c"}, Shape: ShapeFlag},
	})
	d, err := r.Lookup("shell")
	if err != nil {
		t.Fatalf("unexpected error resolving an executable present on PATH: %v", err)
	}
	if d.Executable != "sh" {
		t.Fatalf("unexpected descriptor: %+v", d)
	}
}

func TestOverlayOverridesBuiltin(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "agents.yaml")
	contents := `
agents:
  claude-code:
    executable: sh
    args: ["-c"]
    shape: flag
  my-custom-agent:
    executable: sh
    args: ["-c"]
    shape: standalone
    adapter_hint: "build it yourself"
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write overlay: %v", err)
	}

	overlay, err := LoadOverlay(path)
	if err != nil {
		t.Fatalf("load overlay: %v", err)
	}

	r := New()
	r.Merge(overlay)

	d, err := r.Lookup("claude-code")
	if err != nil {
		t.Fatalf("lookup overridden builtin: %v", err)
	}
	if d.Executable != "sh" {
		t.Fatalf("expected overlay to override builtin executable, got %q", d.Executable)
	}

	if _, err := r.Lookup("my-custom-agent"); err != nil {
		t.Fatalf("lookup new overlay entry: %v", err)
	}
}

func TestLoadOverlayMissingFileIsNotError(t *testing.T) {
	overlay, err := LoadOverlay("/no/such/path/agents.yaml")
	if err != nil {
		t.Fatalf("expected missing overlay file to be a no-op, got %v", err)
	}
	if overlay != nil {
		t.Fatalf("expected nil overlay for missing file, got %+v", overlay)
	}
}
