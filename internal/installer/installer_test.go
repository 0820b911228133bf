//go:build !windows

package installer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeManifest(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "demo_req.txt")
	if err := os.WriteFile(p, []byte("requests\nflask\n"), 0o640); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	return p
}

func TestInstallRunsCommandWithManifest(t *testing.T) {
	p := writeManifest(t)
	inst := &Installer{Command: []string{"cat"}}
	out, err := inst.Install(context.Background(), p)
	if err != nil {
		t.Fatalf("install: %v", err)
	}
	if !strings.Contains(out, "requests") {
		t.Fatalf("output should contain the manifest, got %q", out)
	}
}

func TestInstallFailureKeepsDiagnostic(t *testing.T) {
	p := writeManifest(t)
	inst := &Installer{Command: []string{"sh", "-c", "echo resolver exploded >&2; exit 1"}}
	out, err := inst.Install(context.Background(), p)
	if err == nil {
		t.Fatalf("expected failure")
	}
	if !strings.Contains(out, "resolver exploded") {
		t.Fatalf("diagnostic lost: %q", out)
	}
}

func TestInstallTimeout(t *testing.T) {
	p := writeManifest(t)
	inst := &Installer{Command: []string{"sh", "-c", "sleep 30"}, Timeout: 200 * time.Millisecond}
	began := time.Now()
	if _, err := inst.Install(context.Background(), p); err == nil {
		t.Fatalf("expected timeout error")
	}
	if time.Since(began) > 5*time.Second {
		t.Fatalf("timeout not enforced")
	}
}

func TestInstallNoCommand(t *testing.T) {
	inst := &Installer{}
	if _, err := inst.Install(context.Background(), "x"); err == nil {
		t.Fatalf("expected error for unconfigured command")
	}
}

func TestDefaultsArePipInstall(t *testing.T) {
	inst := New()
	if len(inst.Command) != 3 || inst.Command[0] != "pip" {
		t.Fatalf("default command = %v", inst.Command)
	}
	if inst.Timeout != defaultTimeout {
		t.Fatalf("default timeout = %v", inst.Timeout)
	}
}
