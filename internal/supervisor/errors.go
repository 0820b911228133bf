package supervisor

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyRunning signals a Start for an identity that is still alive.
	ErrAlreadyRunning = errors.New("script is already running")
	// ErrNotRunning signals a Stop for an identity with no live process.
	ErrNotRunning = errors.New("script is not running")
	// ErrArtifactNotFound signals delete/tail for an identity with no artifacts.
	ErrArtifactNotFound = errors.New("no artifacts for script")
)

// SpawnError reports an OS-level start failure (missing executable, missing
// interpreter, permission denied, unwritable log). Never retried.
type SpawnError struct {
	Name string
	Err  error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to start %s: %v", e.Name, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// CrashError reports a process that exited within the crash-detection window.
// LogTail carries the trailing bytes of the run log as the diagnostic.
type CrashError struct {
	Name    string
	ExitErr error
	LogTail []byte
}

func (e *CrashError) Error() string {
	if e.ExitErr != nil {
		return fmt.Sprintf("script %s exited during the grace window: %v", e.Name, e.ExitErr)
	}
	return fmt.Sprintf("script %s exited during the grace window", e.Name)
}

func (e *CrashError) Unwrap() error { return e.ExitErr }

// PartialDeleteError reports that some, but not all, artifacts of an identity
// could be removed.
type PartialDeleteError struct {
	Name string
	Err  error
}

func (e *PartialDeleteError) Error() string {
	return fmt.Sprintf("partial delete of %s: %v", e.Name, e.Err)
}

func (e *PartialDeleteError) Unwrap() error { return e.Err }
