package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestRegisterAndCollect(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := Register(reg); err != nil {
		t.Fatalf("register: %v", err)
	}
	// Repeated registration is a no-op.
	if err := Register(reg); err != nil {
		t.Fatalf("register twice: %v", err)
	}

	IncStart("demo")
	IncCrash("demo")
	IncStop("demo")
	IncDelete("demo")
	RunningInc()
	RunningDec()
	ObserveGraceWindow("demo", 0.2)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	want := map[string]bool{
		"hostbot_script_starts_total":         false,
		"hostbot_script_crashes_total":        false,
		"hostbot_script_stops_total":          false,
		"hostbot_script_deletes_total":        false,
		"hostbot_script_running":              false,
		"hostbot_script_grace_window_seconds": false,
	}
	for _, mf := range mfs {
		if _, ok := want[mf.GetName()]; ok {
			want[mf.GetName()] = true
		}
	}
	for name, seen := range want {
		if !seen {
			t.Fatalf("metric %s not collected", name)
		}
	}
}

func TestHandlerNotNil(t *testing.T) {
	if Handler() == nil {
		t.Fatalf("handler is nil")
	}
}
