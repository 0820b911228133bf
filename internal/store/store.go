package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Record is one persisted script run. A run is uniquely identified by
// (PID, StartedAt) so restarts of the same identity produce distinct rows.
type Record struct {
	ID        int64
	Name      string
	PID       int
	StartedAt time.Time
	StoppedAt sql.NullTime
	Running   bool
	Crashed   bool // exited within the grace window
	ExitErr   sql.NullString
	Uniq      string
	UpdatedAt time.Time
}

// UniqueKey derives the stable row key for a run.
func UniqueKey(pid int, startedAt time.Time) string {
	return fmt.Sprintf("%d-%d", pid, startedAt.UTC().UnixNano())
}

// Key returns the record's unique key, deriving it when unset.
func (r *Record) Key() string {
	if r.Uniq != "" {
		return r.Uniq
	}
	return UniqueKey(r.PID, r.StartedAt)
}

// Store persists script run history. The registry never reads this back for
// liveness; history is write-mostly and survives daemon restarts.
type Store interface {
	EnsureSchema(ctx context.Context) error
	RecordStart(ctx context.Context, rec Record) error
	RecordStop(ctx context.Context, uniq string, stoppedAt time.Time, crashed bool, exitErr error) error
	Recent(ctx context.Context, name string, limit int) ([]Record, error)
	Close() error
}

// Config selects and configures a store backend.
type Config struct {
	Type string `toml:"type" mapstructure:"type"` // "sqlite" or "postgres"
	Path string `toml:"path" mapstructure:"path"` // sqlite file path
	DSN  string `toml:"dsn" mapstructure:"dsn"`   // postgres DSN
}
