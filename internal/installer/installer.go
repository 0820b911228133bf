package installer

import (
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"time"
)

const defaultTimeout = 5 * time.Minute

// Installer installs a script's dependencies from a manifest file before the
// first start. The supervisor never calls it; the upload workflow does.
type Installer struct {
	// Command is the argv prefix the manifest path is appended to,
	// e.g. ["pip", "install", "-r"].
	Command []string
	Timeout time.Duration
}

func New() *Installer {
	return &Installer{Command: []string{"pip", "install", "-r"}, Timeout: defaultTimeout}
}

// Install runs the configured command against manifestPath and returns the
// combined output as the diagnostic text. A non-nil error means the
// installation failed; the diagnostic is still meaningful then.
func (i *Installer) Install(ctx context.Context, manifestPath string) (string, error) {
	if len(i.Command) == 0 {
		return "", errors.New("installer command not configured")
	}
	timeout := i.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := append(append([]string(nil), i.Command[1:]...), manifestPath)
	// #nosec G204 -- command comes from daemon config, path from the validated script store
	cmd := exec.CommandContext(ctx, i.Command[0], args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		slog.Warn("dependency install failed", "manifest", manifestPath, "err", err)
	}
	return string(out), err
}
