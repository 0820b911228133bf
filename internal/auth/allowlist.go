package auth

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

var ErrNotAllowed = errors.New("caller is not on the allowlist")

// Allowlist answers "may this caller act" for inbound chat commands.
// Operators are persisted in SQLite; admin IDs from configuration are always
// allowed and cannot be removed at runtime.
type Allowlist struct {
	db     *sql.DB
	admins map[int64]struct{}
}

// Open opens (or creates) the allowlist database at path. admins are the
// configured always-allowed operator IDs.
func Open(path string, admins []int64) (*Allowlist, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("empty allowlist path")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	_, _ = db.Exec("PRAGMA busy_timeout=3000;")
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS allowlist(
		user_id INTEGER PRIMARY KEY,
		added_at TIMESTAMP NOT NULL
	);`); err != nil {
		_ = db.Close()
		return nil, err
	}
	am := make(map[int64]struct{}, len(admins))
	for _, id := range admins {
		am[id] = struct{}{}
	}
	return &Allowlist{db: db, admins: am}, nil
}

func (a *Allowlist) Close() error { return a.db.Close() }

// Allowed reports whether userID may issue commands.
func (a *Allowlist) Allowed(ctx context.Context, userID int64) (bool, error) {
	if _, ok := a.admins[userID]; ok {
		return true, nil
	}
	var n int
	err := a.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM allowlist WHERE user_id = ?;`, userID).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Add grants userID access. Adding an existing entry is a no-op.
func (a *Allowlist) Add(ctx context.Context, userID int64) error {
	_, err := a.db.ExecContext(ctx,
		`INSERT INTO allowlist(user_id, added_at) VALUES(?, ?) ON CONFLICT(user_id) DO NOTHING;`,
		userID, time.Now().UTC())
	return err
}

// Remove revokes userID's access. Configured admins are unaffected.
func (a *Allowlist) Remove(ctx context.Context, userID int64) error {
	_, err := a.db.ExecContext(ctx, `DELETE FROM allowlist WHERE user_id = ?;`, userID)
	return err
}

// List returns all persisted operator IDs, excluding configured admins.
func (a *Allowlist) List(ctx context.Context) ([]int64, error) {
	rows, err := a.db.QueryContext(ctx, `SELECT user_id FROM allowlist ORDER BY user_id;`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
