package supervisor

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/loykin/hostbot/internal/env"
	"github.com/loykin/hostbot/internal/history"
	"github.com/loykin/hostbot/internal/logsink"
	"github.com/loykin/hostbot/internal/metrics"
	"github.com/loykin/hostbot/internal/registry"
	"github.com/loykin/hostbot/internal/script"
	"github.com/loykin/hostbot/internal/store"
)

// Defaults for the tunables. The grace period is a deliberate, imperfect
// heuristic: a crash after the window is only observed on the next status
// query, there is no background reaper beyond the single check.
const (
	DefaultGracePeriod = 3 * time.Second
	DefaultStopWait    = 5 * time.Second
	DefaultTailBytes   = 2048
)

// Config holds the supervisor tunables.
type Config struct {
	Interpreter     string        // runtime interpreter, default "python3"
	InterpreterArgs []string      // default ["-u"] (unbuffered output)
	GracePeriod     time.Duration // post-start crash detection window
	StopWait        time.Duration // SIGTERM grace before SIGKILL escalation
	TailBytes       int64         // crash diagnostic / log tail size
}

func (c Config) withDefaults() Config {
	if c.Interpreter == "" {
		c.Interpreter = "python3"
		if c.InterpreterArgs == nil {
			c.InterpreterArgs = []string{"-u"}
		}
	}
	if c.GracePeriod <= 0 {
		c.GracePeriod = DefaultGracePeriod
	}
	if c.StopWait <= 0 {
		c.StopWait = DefaultStopWait
	}
	if c.TailBytes <= 0 {
		c.TailBytes = DefaultTailBytes
	}
	return c
}

// Status is the externally visible state of one hosted script.
type Status struct {
	Name      string    `json:"name"`
	Running   bool      `json:"running"`
	PID       int       `json:"pid,omitempty"`
	StartedAt time.Time `json:"started_at,omitempty"`
}

// Supervisor owns the mapping between script identities and their live OS
// processes. Start/Stop/Status for the same identity are serialized through a
// per-identity lock; different identities never contend.
type Supervisor struct {
	scripts *script.Store
	logs    *logsink.Sink
	envs    *env.Resolver
	reg     *registry.Registry
	cfg     Config

	mu    sync.Mutex
	locks map[string]*sync.Mutex

	depMu sync.Mutex
	st    store.Store
	sinks []history.Sink
}

func New(scripts *script.Store, logs *logsink.Sink, envs *env.Resolver, reg *registry.Registry, cfg Config) *Supervisor {
	return &Supervisor{
		scripts: scripts,
		logs:    logs,
		envs:    envs,
		reg:     reg,
		cfg:     cfg.withDefaults(),
		locks:   make(map[string]*sync.Mutex),
	}
}

func (s *Supervisor) Registry() *registry.Registry { return s.reg }
func (s *Supervisor) Scripts() *script.Store       { return s.scripts }

// SetStore configures run-history persistence and ensures its schema.
func (s *Supervisor) SetStore(st store.Store) error {
	s.depMu.Lock()
	s.st = st
	s.depMu.Unlock()
	if st == nil {
		return nil
	}
	return st.EnsureSchema(context.Background())
}

// SetHistorySinks configures external event sinks (ClickHouse etc.).
func (s *Supervisor) SetHistorySinks(sinks ...history.Sink) {
	s.depMu.Lock()
	s.sinks = append([]history.Sink(nil), sinks...)
	s.depMu.Unlock()
}

func (s *Supervisor) lockFor(identity string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[identity]
	if !ok {
		l = &sync.Mutex{}
		s.locks[identity] = l
	}
	return l
}

// Start spawns the script for identity and watches it through the crash
// detection window. On success the returned Status carries the PID. A script
// that exits within the window yields a *CrashError with the log tail.
func (s *Supervisor) Start(identity string) (Status, error) {
	if !script.IsSafeIdentity(identity) {
		return Status{}, script.ErrInvalidIdentity
	}
	l := s.lockFor(identity)
	l.Lock()
	defer l.Unlock()

	if s.reg.IsAlive(identity) {
		return Status{}, ErrAlreadyRunning
	}
	if !s.scripts.Exists(identity) {
		return Status{}, &SpawnError{Name: identity, Err: os.ErrNotExist}
	}

	envv := s.envs.Resolve(s.scripts.EnvPath(identity))

	// Failure to open the run log aborts the whole attempt.
	logf, err := s.logs.Open(identity)
	if err != nil {
		return Status{}, &SpawnError{Name: identity, Err: err}
	}

	args := append(append([]string(nil), s.cfg.InterpreterArgs...), identity)
	// Relative invocation with a fixed working directory: the script can only
	// ever run from inside the scripts root.
	// #nosec G204 -- identity is validated above, interpreter comes from config
	cmd := exec.Command(s.cfg.Interpreter, args...)
	cmd.Dir = s.scripts.Dir()
	cmd.Env = envv
	cmd.Stdout = logf
	cmd.Stderr = logf
	configureSysProcAttr(cmd)

	if err := cmd.Start(); err != nil {
		_ = logf.Close()
		return Status{}, &SpawnError{Name: identity, Err: err}
	}

	rec := registry.NewRecord(identity, cmd, logf)
	s.reg.Put(identity, rec)
	metrics.RunningInc()
	go s.monitor(identity, rec, cmd)
	s.recordStart(rec)
	slog.Info("script started", "script", identity, "pid", rec.PID())

	began := time.Now()
	select {
	case <-rec.Done():
		metrics.ObserveGraceWindow(identity, time.Since(began).Seconds())
		metrics.IncCrash(identity)
		tail, terr := s.logs.Tail(identity, s.cfg.TailBytes)
		if terr != nil {
			tail = nil
		}
		slog.Warn("script crashed during grace window", "script", identity, "err", rec.ExitErr())
		return Status{}, &CrashError{Name: identity, ExitErr: rec.ExitErr(), LogTail: tail}
	case <-time.After(s.cfg.GracePeriod):
		metrics.ObserveGraceWindow(identity, time.Since(began).Seconds())
		metrics.IncStart(identity)
		return s.statusOf(identity), nil
	}
}

// monitor reaps the child exactly once and finalizes the run record.
func (s *Supervisor) monitor(identity string, rec *registry.RunRecord, cmd *exec.Cmd) {
	err := cmd.Wait()
	rec.MarkExited(err)
	metrics.RunningDec()
	s.recordStop(rec)
	slog.Debug("script exited", "script", identity, "pid", rec.PID(), "err", err)
}

// Stop terminates the entire process group of identity and blocks until the
// process has been reaped, so a caller may immediately delete or restart.
// After StopWait the termination escalates to SIGKILL.
func (s *Supervisor) Stop(identity string) error {
	if !script.IsSafeIdentity(identity) {
		return script.ErrInvalidIdentity
	}
	l := s.lockFor(identity)
	l.Lock()
	defer l.Unlock()
	return s.stopHeld(identity)
}

// stopHeld does the actual signal-and-reap. Caller holds the identity lock.
func (s *Supervisor) stopHeld(identity string) error {
	rec, ok := s.reg.Get(identity)
	if !ok || !rec.Alive() {
		return ErrNotRunning
	}
	pid := rec.PID()
	_ = terminateGroup(pid)
	select {
	case <-rec.Done():
	case <-time.After(s.cfg.StopWait):
		slog.Warn("stop timed out, escalating", "script", identity, "pid", pid, "wait", s.cfg.StopWait)
		_ = killGroup(pid)
		<-rec.Done()
	}
	metrics.IncStop(identity)
	slog.Info("script stopped", "script", identity, "pid", pid)
	// The registry entry stays; liveness is recomputed on every query.
	return nil
}

// Status reports whether identity currently has a live process. The liveness
// probe behind it hits the OS each call. Status serializes behind an
// in-flight Start/Stop for the same identity so it never reports a stale
// "running" verdict mid-termination.
func (s *Supervisor) Status(identity string) (Status, error) {
	if !script.IsSafeIdentity(identity) {
		return Status{}, script.ErrInvalidIdentity
	}
	l := s.lockFor(identity)
	l.Lock()
	defer l.Unlock()
	return s.statusOf(identity), nil
}

func (s *Supervisor) statusOf(identity string) Status {
	st := Status{Name: identity}
	if rec, ok := s.reg.Get(identity); ok && rec.Alive() {
		st.Running = true
		st.PID = rec.PID()
		st.StartedAt = rec.StartedAt()
	}
	return st
}

// StatusAll reports every hosted script, running or not.
func (s *Supervisor) StatusAll() ([]Status, error) {
	names, err := s.scripts.List()
	if err != nil {
		return nil, err
	}
	out := make([]Status, 0, len(names))
	for _, name := range names {
		st, err := s.Status(name)
		if err != nil {
			continue
		}
		out = append(out, st)
	}
	return out, nil
}

// TailLog returns up to maxBytes trailing bytes of the identity's run log.
// maxBytes <= 0 selects the configured default.
func (s *Supervisor) TailLog(identity string, maxBytes int64) ([]byte, error) {
	if !script.IsSafeIdentity(identity) {
		return nil, script.ErrInvalidIdentity
	}
	if maxBytes <= 0 {
		maxBytes = s.cfg.TailBytes
	}
	return s.logs.Tail(identity, maxBytes)
}

// --- history plumbing ---

func (s *Supervisor) deps() (store.Store, []history.Sink) {
	s.depMu.Lock()
	defer s.depMu.Unlock()
	return s.st, append([]history.Sink(nil), s.sinks...)
}

func (s *Supervisor) recordStart(rec *registry.RunRecord) {
	st, sinks := s.deps()
	srec := store.Record{
		Name:      rec.Name(),
		PID:       rec.PID(),
		StartedAt: rec.StartedAt(),
		Running:   true,
	}
	if st != nil {
		if err := st.RecordStart(context.Background(), srec); err != nil {
			slog.Debug("history store record start failed", "script", rec.Name(), "err", err)
		}
	}
	if len(sinks) > 0 {
		evt := history.Event{Type: history.EventStart, OccurredAt: time.Now().UTC(), Record: srec}
		for _, snk := range sinks {
			_ = snk.Send(context.Background(), evt)
		}
	}
}

func (s *Supervisor) recordStop(rec *registry.RunRecord) {
	st, sinks := s.deps()
	stoppedAt := time.Now().UTC()
	crashed := stoppedAt.Sub(rec.StartedAt()) < s.cfg.GracePeriod
	uniq := store.UniqueKey(rec.PID(), rec.StartedAt())
	if st != nil {
		if err := st.RecordStop(context.Background(), uniq, stoppedAt, crashed, rec.ExitErr()); err != nil {
			slog.Debug("history store record stop failed", "script", rec.Name(), "err", err)
		}
	}
	if len(sinks) > 0 {
		srec := store.Record{
			Name:      rec.Name(),
			PID:       rec.PID(),
			StartedAt: rec.StartedAt(),
			StoppedAt: sql.NullTime{Time: stoppedAt, Valid: true},
			Crashed:   crashed,
			Uniq:      uniq,
		}
		if exitErr := rec.ExitErr(); exitErr != nil {
			srec.ExitErr = sql.NullString{String: exitErr.Error(), Valid: true}
		}
		typ := history.EventStop
		if crashed {
			typ = history.EventCrash
		}
		evt := history.Event{Type: typ, OccurredAt: stoppedAt, Record: srec}
		for _, snk := range sinks {
			_ = snk.Send(context.Background(), evt)
		}
	}
}
