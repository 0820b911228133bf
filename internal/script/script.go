package script

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Artifact suffixes derived from a script identity. The executable itself is
// stored under the bare identity; everything else hangs off it.
const (
	EnvSuffix      = ".env"
	ManifestSuffix = "_req.txt"
	LogSuffix      = ".log"
)

var ErrInvalidIdentity = errors.New("invalid script identity")

// IsSafeIdentity validates a script identity before it is used as a filename.
// Allowed characters: A-Z a-z 0-9 . _ - and no "..". Path separators are
// rejected so an identity can never escape the scripts directory.
func IsSafeIdentity(s string) bool {
	if s == "" {
		return false
	}
	if strings.Contains(s, "..") {
		return false
	}
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '.' || r == '_' || r == '-' {
			continue
		}
		return false
	}
	if strings.ContainsAny(s, "/\\") {
		return false
	}
	return true
}

// Store owns the scripts directory and the mapping from an identity to its
// artifact set (executable, env override, dependency manifest).
// The run log lives next to them but is owned by the log sink.
type Store struct {
	dir string
}

// New creates the scripts directory if needed and returns a Store rooted there.
func New(dir string) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("empty scripts dir")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, err
	}
	return &Store{dir: dir}, nil
}

func (s *Store) Dir() string { return s.dir }

// Path returns the executable path for identity. The identity must already be
// validated; Path does not re-check.
func (s *Store) Path(identity string) string {
	return filepath.Join(s.dir, identity)
}

func (s *Store) EnvPath(identity string) string {
	return filepath.Join(s.dir, identity+EnvSuffix)
}

func (s *Store) ManifestPath(identity string) string {
	return filepath.Join(s.dir, identity+ManifestSuffix)
}

func (s *Store) Exists(identity string) bool {
	fi, err := os.Stat(s.Path(identity))
	return err == nil && fi.Mode().IsRegular()
}

// SaveScript writes uploaded executable bytes for identity.
func (s *Store) SaveScript(identity string, data []byte) error {
	if !IsSafeIdentity(identity) {
		return ErrInvalidIdentity
	}
	return os.WriteFile(s.Path(identity), data, 0o640)
}

// SaveEnv writes the per-script environment override file.
func (s *Store) SaveEnv(identity string, data []byte) error {
	if !IsSafeIdentity(identity) {
		return ErrInvalidIdentity
	}
	// may contain secrets
	return os.WriteFile(s.EnvPath(identity), data, 0o600)
}

// SaveManifest writes the dependency manifest for identity.
func (s *Store) SaveManifest(identity string, data []byte) error {
	if !IsSafeIdentity(identity) {
		return ErrInvalidIdentity
	}
	return os.WriteFile(s.ManifestPath(identity), data, 0o640)
}

// List returns the identities of all hosted scripts, sorted. Derived artifact
// files (env overrides, manifests, run logs) are filtered out.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		name := e.Name()
		if strings.HasSuffix(name, EnvSuffix) ||
			strings.HasSuffix(name, ManifestSuffix) ||
			strings.HasSuffix(name, LogSuffix) {
			continue
		}
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

// Remove unlinks one artifact file; a missing file is not an error.
func remove(path string) (bool, error) {
	err := os.Remove(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// RemoveScript unlinks the executable. Returns whether a file was removed.
func (s *Store) RemoveScript(identity string) (bool, error) {
	return remove(s.Path(identity))
}

// RemoveEnv unlinks the env override file.
func (s *Store) RemoveEnv(identity string) (bool, error) {
	return remove(s.EnvPath(identity))
}

// RemoveManifest unlinks the dependency manifest.
func (s *Store) RemoveManifest(identity string) (bool, error) {
	return remove(s.ManifestPath(identity))
}
