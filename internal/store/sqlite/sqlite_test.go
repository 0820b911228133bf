package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/loykin/hostbot/internal/store"
)

func TestSQLiteRunHistory(t *testing.T) {
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("sqlite open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	ctx := context.Background()
	if err := db.EnsureSchema(ctx); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}

	started := time.Now().UTC().Truncate(time.Second)
	rec := store.Record{Name: "scraper", PID: 1111, StartedAt: started}
	if err := db.RecordStart(ctx, rec); err != nil {
		t.Fatalf("record start: %v", err)
	}

	got, err := db.Recent(ctx, "scraper", 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 row, got %d", len(got))
	}
	if !got[0].Running || got[0].PID != 1111 {
		t.Fatalf("unexpected row: %+v", got[0])
	}

	// Idempotent on the same run key.
	if err := db.RecordStart(ctx, rec); err != nil {
		t.Fatalf("record start again: %v", err)
	}
	got, err = db.Recent(ctx, "scraper", 10)
	if err != nil || len(got) != 1 {
		t.Fatalf("upsert duplicated the run: %d rows, %v", len(got), err)
	}

	stopped := started.Add(time.Second)
	if err := db.RecordStop(ctx, rec.Key(), stopped, true, errors.New("exit status 3")); err != nil {
		t.Fatalf("record stop: %v", err)
	}
	got, err = db.Recent(ctx, "scraper", 10)
	if err != nil || len(got) != 1 {
		t.Fatalf("recent after stop: %d rows, %v", len(got), err)
	}
	row := got[0]
	if row.Running {
		t.Fatalf("row still running after stop")
	}
	if !row.Crashed {
		t.Fatalf("crashed flag lost")
	}
	if !row.StoppedAt.Valid {
		t.Fatalf("stopped_at not set")
	}
	if !row.ExitErr.Valid || row.ExitErr.String != "exit status 3" {
		t.Fatalf("exit_err = %+v", row.ExitErr)
	}
}

func TestSQLiteSecondRunDistinctRow(t *testing.T) {
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("sqlite open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	ctx := context.Background()
	if err := db.EnsureSchema(ctx); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}

	start1 := time.Now().UTC().Add(-time.Minute)
	start2 := time.Now().UTC()
	if err := db.RecordStart(ctx, store.Record{Name: "job", PID: 100, StartedAt: start1}); err != nil {
		t.Fatalf("run1: %v", err)
	}
	if err := db.RecordStart(ctx, store.Record{Name: "job", PID: 200, StartedAt: start2}); err != nil {
		t.Fatalf("run2: %v", err)
	}
	got, err := db.Recent(ctx, "job", 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 distinct runs, got %d", len(got))
	}
	// Newest first.
	if got[0].PID != 200 {
		t.Fatalf("ordering wrong: %+v", got)
	}
}

func TestSQLiteEmptyPath(t *testing.T) {
	if _, err := New("  "); err == nil {
		t.Fatalf("expected error for empty path")
	}
}
