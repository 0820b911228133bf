//go:build !windows

package registry

import (
	"os/exec"
	"testing"
	"time"
)

func startSleep(t *testing.T, d string) *exec.Cmd {
	t.Helper()
	cmd := exec.Command("sleep", d)
	if err := cmd.Start(); err != nil {
		t.Fatalf("start sleep: %v", err)
	}
	return cmd
}

func TestRecordAliveAndExit(t *testing.T) {
	cmd := startSleep(t, "30")
	rec := NewRecord("demo", cmd, nil)
	t.Cleanup(func() { _ = cmd.Process.Kill(); _, _ = cmd.Process.Wait() })

	if !rec.Alive() {
		t.Fatalf("fresh process should be alive")
	}
	select {
	case <-rec.Done():
		t.Fatalf("done must not be closed while running")
	default:
	}

	_ = cmd.Process.Kill()
	err := cmd.Wait()
	rec.MarkExited(err)

	if rec.Alive() {
		t.Fatalf("exited process reported alive")
	}
	select {
	case <-rec.Done():
	case <-time.After(time.Second):
		t.Fatalf("done not closed after MarkExited")
	}
	if rec.ExitErr() == nil {
		t.Fatalf("expected exit error from killed process")
	}
}

func TestMarkExitedIdempotent(t *testing.T) {
	cmd := startSleep(t, "0.05")
	rec := NewRecord("demo", cmd, nil)
	err := cmd.Wait()
	rec.MarkExited(err)
	rec.MarkExited(err) // second call must not panic on the closed channel
}

func TestRegistryLifecycle(t *testing.T) {
	g := New()
	if g.IsAlive("demo") {
		t.Fatalf("empty registry should report not alive")
	}

	cmd := startSleep(t, "30")
	rec := NewRecord("demo", cmd, nil)
	t.Cleanup(func() { _ = cmd.Process.Kill(); _, _ = cmd.Process.Wait() })

	g.Put("demo", rec)
	if !g.IsAlive("demo") {
		t.Fatalf("registered running process should be alive")
	}
	names := g.Names()
	if len(names) != 1 || names[0] != "demo" {
		t.Fatalf("names = %v", names)
	}

	g.Remove("demo")
	if _, ok := g.Get("demo"); ok {
		t.Fatalf("record should be removed")
	}
}

func TestIsAliveReprobesAfterExit(t *testing.T) {
	g := New()
	cmd := startSleep(t, "0.05")
	rec := NewRecord("demo", cmd, nil)
	g.Put("demo", rec)

	_ = cmd.Wait()
	// The record has not been marked exited; liveness must still flip to
	// false because the probe hits the OS each call and the child is reaped.
	deadline := time.Now().Add(2 * time.Second)
	for g.IsAlive("demo") {
		if time.Now().After(deadline) {
			t.Fatalf("reaped process still reported alive")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
