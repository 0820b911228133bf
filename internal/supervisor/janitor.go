package supervisor

import (
	"errors"
	"log/slog"

	"github.com/loykin/hostbot/internal/metrics"
	"github.com/loykin/hostbot/internal/script"
)

// Janitor removes a script's executable and every associated artifact
// (env override, dependency manifest, run log), stopping the script first if
// it is running. It shares the supervisor's per-identity lock so a delete can
// never interleave with a concurrent Start or Stop for the same identity.
type Janitor struct {
	sup *Supervisor
}

func NewJanitor(sup *Supervisor) *Janitor { return &Janitor{sup: sup} }

// Delete stops identity if alive, then unlinks all artifacts best-effort and
// order-independent. Missing files are not errors; a mix of removed and
// denied files surfaces as *PartialDeleteError. ErrArtifactNotFound is
// returned when there was nothing to delete at all.
func (j *Janitor) Delete(identity string) error {
	if !script.IsSafeIdentity(identity) {
		return script.ErrInvalidIdentity
	}
	l := j.sup.lockFor(identity)
	l.Lock()
	defer l.Unlock()

	if err := j.sup.stopHeld(identity); err != nil && !errors.Is(err, ErrNotRunning) {
		return err
	}

	scripts := j.sup.scripts
	var removed int
	var errs []error
	for _, rm := range []func(string) (bool, error){
		scripts.RemoveScript,
		scripts.RemoveEnv,
		scripts.RemoveManifest,
		j.sup.logs.Remove,
	} {
		ok, err := rm(identity)
		if ok {
			removed++
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	j.sup.reg.Remove(identity)

	if len(errs) > 0 {
		if removed > 0 {
			return &PartialDeleteError{Name: identity, Err: errors.Join(errs...)}
		}
		return errors.Join(errs...)
	}
	if removed == 0 {
		return ErrArtifactNotFound
	}
	metrics.IncDelete(identity)
	slog.Info("script artifacts deleted", "script", identity, "files", removed)
	return nil
}
