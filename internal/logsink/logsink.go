package logsink

import (
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/loykin/hostbot/internal/script"
)

// ErrNoLog is returned by Tail when the identity has no run log yet.
var ErrNoLog = errors.New("no log file for script")

// Sink owns the per-script run logs. Each run gets exactly one file holding
// the combined stdout+stderr stream; Open truncates, so a log never spans
// two runs. Run logs deliberately do not rotate.
type Sink struct {
	dir string
}

func New(dir string) *Sink { return &Sink{dir: dir} }

// Path returns the run log path for identity.
func (s *Sink) Path(identity string) string {
	return filepath.Join(s.dir, identity+script.LogSuffix)
}

// Open opens (create-or-truncate) the run log for identity in write mode.
// The caller owns the handle for the lifetime of the run.
func (s *Sink) Open(identity string) (*os.File, error) {
	// #nosec G304 -- identity is validated by the supervisor before use
	return os.OpenFile(s.Path(identity), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o640)
}

// Tail returns at most the last maxBytes bytes of the run log.
// It reports ErrNoLog when no log exists yet.
func (s *Sink) Tail(identity string, maxBytes int64) ([]byte, error) {
	if maxBytes <= 0 {
		return nil, nil
	}
	// #nosec G304 -- identity is validated by the supervisor before use
	f, err := os.Open(s.Path(identity))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoLog
		}
		return nil, err
	}
	defer func() { _ = f.Close() }()

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	off := fi.Size() - maxBytes
	if off < 0 {
		off = 0
	}
	if _, err := f.Seek(off, io.SeekStart); err != nil {
		return nil, err
	}
	b, err := io.ReadAll(io.LimitReader(f, maxBytes))
	if err != nil {
		return nil, err
	}
	return b, nil
}

// Remove unlinks the run log. A missing log is not an error; the returned
// bool reports whether a file was actually removed.
func (s *Sink) Remove(identity string) (bool, error) {
	err := os.Remove(s.Path(identity))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}
