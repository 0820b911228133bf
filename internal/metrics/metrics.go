package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level Prometheus collectors. They are registered via Register.
var (
	regOK atomic.Bool

	scriptStarts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hostbot",
			Subsystem: "script",
			Name:      "starts_total",
			Help:      "Number of script starts that survived the grace window.",
		}, []string{"script"},
	)
	scriptCrashes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hostbot",
			Subsystem: "script",
			Name:      "crashes_total",
			Help:      "Number of scripts that exited within the grace window.",
		}, []string{"script"},
	)
	scriptStops = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hostbot",
			Subsystem: "script",
			Name:      "stops_total",
			Help:      "Number of explicit stops (graceful or escalated kill).",
		}, []string{"script"},
	)
	scriptDeletes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hostbot",
			Subsystem: "script",
			Name:      "deletes_total",
			Help:      "Number of artifact deletions.",
		}, []string{"script"},
	)
	scriptsRunning = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "hostbot",
			Subsystem: "script",
			Name:      "running",
			Help:      "Current number of live script processes.",
		},
	)
	graceWindow = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "hostbot",
			Subsystem: "script",
			Name:      "grace_window_seconds",
			Help:      "Time spent inside the post-start crash detection window.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"script"},
	)
)

// Register registers all metrics with the provided registerer.
// It is safe to call multiple times; subsequent calls after success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{
		scriptStarts, scriptCrashes, scriptStops, scriptDeletes, scriptsRunning, graceWindow,
	}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// Handler exposes the default registry over HTTP.
func Handler() http.Handler { return promhttp.Handler() }

func IncStart(script string)  { scriptStarts.WithLabelValues(script).Inc() }
func IncCrash(script string)  { scriptCrashes.WithLabelValues(script).Inc() }
func IncStop(script string)   { scriptStops.WithLabelValues(script).Inc() }
func IncDelete(script string) { scriptDeletes.WithLabelValues(script).Inc() }

func RunningInc() { scriptsRunning.Inc() }
func RunningDec() { scriptsRunning.Dec() }

func ObserveGraceWindow(script string, seconds float64) {
	graceWindow.WithLabelValues(script).Observe(seconds)
}
