package hostbot

import (
	"context"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/loykin/hostbot/internal/config"
	"github.com/loykin/hostbot/internal/env"
	"github.com/loykin/hostbot/internal/history"
	"github.com/loykin/hostbot/internal/installer"
	"github.com/loykin/hostbot/internal/logsink"
	"github.com/loykin/hostbot/internal/metrics"
	"github.com/loykin/hostbot/internal/registry"
	"github.com/loykin/hostbot/internal/script"
	iapi "github.com/loykin/hostbot/internal/server"
	"github.com/loykin/hostbot/internal/store"
	"github.com/loykin/hostbot/internal/supervisor"
)

// Re-export core types for external consumers.

type Status = supervisor.Status

type SupervisorConfig = supervisor.Config

type HistorySink = history.Sink

// App is a thin facade bundling the script store, supervisor and janitor for
// embedding. It provides a stable public API; the packages underneath stay
// internal.
type App struct {
	scripts  *script.Store
	resolver *env.Resolver
	sup      *supervisor.Supervisor
	jan      *supervisor.Janitor
	inst     *installer.Installer
}

// New builds a ready-to-use App rooted at scriptsDir.
func New(scriptsDir string, cfg SupervisorConfig) (*App, error) {
	scripts, err := script.New(scriptsDir)
	if err != nil {
		return nil, err
	}
	sink := logsink.New(scripts.Dir())
	resolver := env.New()
	reg := registry.New()
	sup := supervisor.New(scripts, sink, resolver, reg, cfg)
	return &App{
		scripts:  scripts,
		resolver: resolver,
		sup:      sup,
		jan:      supervisor.NewJanitor(sup),
		inst:     installer.New(),
	}, nil
}

// Supervisor exposes the underlying supervisor for advanced wiring.
func (a *App) Supervisor() *supervisor.Supervisor { return a.sup }

// Janitor exposes the artifact janitor.
func (a *App) Janitor() *supervisor.Janitor { return a.jan }

// Installer exposes the dependency installer used by the upload workflow.
func (a *App) Installer() *installer.Installer { return a.inst }

func (a *App) Start(identity string) (Status, error)        { return a.sup.Start(identity) }
func (a *App) Stop(identity string) error                   { return a.sup.Stop(identity) }
func (a *App) Status(identity string) (Status, error)       { return a.sup.Status(identity) }
func (a *App) StatusAll() ([]Status, error)                 { return a.sup.StatusAll() }
func (a *App) Delete(identity string) error                 { return a.jan.Delete(identity) }
func (a *App) TailLog(identity string, maxBytes int64) ([]byte, error) {
	return a.sup.TailLog(identity, maxBytes)
}

func (a *App) SaveScript(identity string, data []byte) error {
	return a.scripts.SaveScript(identity, data)
}
func (a *App) SaveEnv(identity string, data []byte) error {
	return a.scripts.SaveEnv(identity, data)
}
func (a *App) SaveManifest(identity string, data []byte) error {
	return a.scripts.SaveManifest(identity, data)
}
func (a *App) List() ([]string, error) { return a.scripts.List() }

// InstallDependencies runs the dependency installer for identity's manifest.
func (a *App) InstallDependencies(ctx context.Context, identity string) (string, error) {
	return a.inst.Install(ctx, a.scripts.ManifestPath(identity))
}

// SetGlobalEnv sets daemon-wide environment overrides ("K=V") layered between
// the ambient environment and each script's own override file.
func (a *App) SetGlobalEnv(kvs []string) {
	for _, kv := range kvs {
		if i := strings.IndexByte(kv, '='); i > 0 {
			a.resolver.Set(kv[:i], kv[i+1:])
		}
	}
}

// SetStore configures run-history persistence.
func (a *App) SetStore(st store.Store) error { return a.sup.SetStore(st) }

// SetHistorySinks configures external event sinks.
func (a *App) SetHistorySinks(sinks ...HistorySink) { a.sup.SetHistorySinks(sinks...) }

// LoadConfig reads the daemon TOML configuration.
func LoadConfig(path string) (*config.Config, error) { return config.Load(path) }

// NewRouter builds the read-only HTTP query surface for this App.
func NewRouter(a *App, basePath string) *iapi.Router {
	return iapi.NewRouter(a.sup, basePath)
}

// NewHTTPServer starts the probe/status server on addr.
func NewHTTPServer(addr, basePath string, a *App) *http.Server {
	return iapi.NewServer(addr, NewRouter(a, basePath))
}

// Metrics helpers (public facade)

func RegisterMetrics(r prometheus.Registerer) error { return metrics.Register(r) }
func RegisterMetricsDefault() error                 { return metrics.Register(prometheus.DefaultRegisterer) }
