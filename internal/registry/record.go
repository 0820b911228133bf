package registry

import (
	"io"
	"os/exec"
	"sync"
	"time"
)

// RunRecord is the live binding between a script identity and its current OS
// process. At most one record per identity exists in the registry at any
// instant; a new Start replaces the record only after the previous run exited.
type RunRecord struct {
	name      string
	cmd       *exec.Cmd
	pid       int
	startedAt time.Time

	mu       sync.Mutex
	waitDone chan struct{} // closed by the monitor once cmd.Wait returns
	exited   bool
	exitErr  error
	closer   io.Closer // run log handle, closed on exit
}

// NewRecord wraps an already-started command. closer (usually the run log
// handle) is closed when the run is marked exited.
func NewRecord(name string, cmd *exec.Cmd, closer io.Closer) *RunRecord {
	return &RunRecord{
		name:      name,
		cmd:       cmd,
		pid:       cmd.Process.Pid,
		startedAt: time.Now(),
		waitDone:  make(chan struct{}),
		closer:    closer,
	}
}

func (r *RunRecord) Name() string         { return r.name }
func (r *RunRecord) PID() int             { return r.pid }
func (r *RunRecord) StartedAt() time.Time { return r.startedAt }

// Done is closed once the underlying process has been reaped.
func (r *RunRecord) Done() <-chan struct{} { return r.waitDone }

// MarkExited records the exit result, closes the run log handle and releases
// waiters. Called exactly once by the monitor goroutine.
func (r *RunRecord) MarkExited(err error) {
	r.mu.Lock()
	if r.exited {
		r.mu.Unlock()
		return
	}
	r.exited = true
	r.exitErr = err
	if r.closer != nil {
		_ = r.closer.Close()
		r.closer = nil
	}
	close(r.waitDone)
	r.mu.Unlock()
}

func (r *RunRecord) ExitErr() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.exitErr
}

// Alive re-probes the OS on every call. The liveness boolean is never cached:
// the process can exit asynchronously at any time outside our control, so a
// cached value would go stale. A reaped or zombie child counts as not alive.
func (r *RunRecord) Alive() bool {
	r.mu.Lock()
	exited := r.exited
	r.mu.Unlock()
	if exited {
		return false
	}
	if r.pid <= 0 {
		return false
	}
	return processAlive(r.pid)
}
