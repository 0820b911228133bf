package env

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// FuzzParseResolve fuzzes the override parser and Resolve with random file
// contents to ensure no panics and basic invariants of the output pairs.
func FuzzParseResolve(f *testing.F) {
	f.Add([]byte("A=1\nB=${A}-x"))
	f.Add([]byte("# comment\n\nFOO=bar\nFOO=${FOO}"))
	f.Add([]byte("no equals at all"))
	f.Add([]byte("=empty key\n  K  =  v  "))

	f.Fuzz(func(t *testing.T, content []byte) {
		dir := t.TempDir()
		p := filepath.Join(dir, "fuzz.env")
		if err := os.WriteFile(p, content, 0o600); err != nil {
			t.Skip()
		}

		r := New()
		r.base = Var{"AMBIENT": "1"}
		out := r.Resolve(p)

		// Every pair must be K=V with a non-empty key.
		for _, kv := range out {
			if !strings.Contains(kv, "=") {
				t.Fatalf("bad pair: %q", kv)
			}
			if strings.HasPrefix(kv, "=") {
				t.Fatalf("empty key: %q", kv)
			}
		}
		// The ambient base must survive any override file.
		found := false
		for _, kv := range out {
			if kv == "AMBIENT=1" {
				found = true
				break
			}
		}
		if !found && !strings.Contains(string(content), "AMBIENT") {
			t.Fatalf("ambient key lost: %v", out)
		}
	})
}
