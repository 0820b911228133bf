package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/loykin/hostbot/internal/logsink"
	"github.com/loykin/hostbot/internal/metrics"
	"github.com/loykin/hostbot/internal/script"
	"github.com/loykin/hostbot/internal/supervisor"
)

// Router exposes the read-only query surface for hosted scripts.
// Endpoints:
//
//	GET {basePath}/livez?name=...   200 when the script is alive, 404 otherwise
//	GET {basePath}/status?name=...  single status; all scripts when name empty
//	GET {basePath}/logs?name=...&max=N   trailing run log bytes as text/plain
//	GET {basePath}/metrics          Prometheus metrics
//
// The probe never mutates the registry and is safe to hit at high frequency
// from an external uptime monitor. It carries no authentication; deploy it
// behind something that does if the network is not trusted.
type Router struct {
	sup      *supervisor.Supervisor
	basePath string
	chat     http.Handler
}

// NewRouter constructs a Router. basePath may be empty or start with '/'.
func NewRouter(sup *supervisor.Supervisor, basePath string) *Router {
	return &Router{sup: sup, basePath: sanitizeBase(basePath)}
}

// WithChat mounts a chat webhook handler under {basePath}/chat/.
func (r *Router) WithChat(h http.Handler) *Router {
	r.chat = h
	return r
}

// Handler returns an http.Handler powered by gin that can be mounted in any
// server or mux.
func (r *Router) Handler() http.Handler {
	g := gin.New()
	g.Use(gin.Recovery())
	group := g.Group(r.basePath)
	group.GET("/livez", r.handleLivez)
	group.GET("/status", r.handleStatus)
	group.GET("/logs", r.handleLogs)
	group.GET("/metrics", gin.WrapH(metrics.Handler()))
	if r.chat != nil {
		prefix := r.basePath + "/chat"
		group.Any("/chat/*rest", gin.WrapH(http.StripPrefix(prefix, r.chat)))
	}
	return g
}

// NewServer starts a standalone HTTP server on addr using this router.
func NewServer(addr string, r *Router) *http.Server {
	server := &http.Server{
		Addr:              addr,
		Handler:           r.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() { _ = server.ListenAndServe() }()
	return server
}

type errorResp struct {
	Error string `json:"error"`
}

func (r *Router) handleLivez(c *gin.Context) {
	name := c.Query("name")
	if !script.IsSafeIdentity(name) {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid name"})
		return
	}
	// Consult the registry directly; the probe must never block behind an
	// in-flight start or stop.
	if r.sup.Registry().IsAlive(name) {
		writeJSON(c, http.StatusOK, gin.H{"name": name, "running": true})
		return
	}
	writeJSON(c, http.StatusNotFound, gin.H{"name": name, "running": false})
}

func (r *Router) handleStatus(c *gin.Context) {
	name := c.Query("name")
	if name == "" {
		sts, err := r.sup.StatusAll()
		if err != nil {
			writeJSON(c, http.StatusInternalServerError, errorResp{Error: err.Error()})
			return
		}
		writeJSON(c, http.StatusOK, sts)
		return
	}
	st, err := r.sup.Status(name)
	if err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, st)
}

func (r *Router) handleLogs(c *gin.Context) {
	name := c.Query("name")
	var maxBytes int64
	if s := c.Query("max"); s != "" {
		if v, err := strconv.ParseInt(s, 10, 64); err == nil {
			maxBytes = v
		}
	}
	b, err := r.sup.TailLog(name, maxBytes)
	if err != nil {
		if errors.Is(err, logsink.ErrNoLog) {
			writeJSON(c, http.StatusNotFound, errorResp{Error: "no log for " + name})
			return
		}
		writeJSON(c, http.StatusBadRequest, errorResp{Error: err.Error()})
		return
	}
	c.Data(http.StatusOK, "text/plain; charset=utf-8", b)
}
