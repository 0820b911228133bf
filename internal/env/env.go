package env

import (
	"os"
	"strings"
)

type Var map[string]string

// Resolver composes the environment handed to a spawned script:
// ambient OS environment as the base, then global overrides configured on the
// daemon, then the per-script override file. Later layers win on collision.
type Resolver struct {
	Var  Var // global overrides (K->V)
	base Var // cached ambient OS environment
}

func New() *Resolver {
	return &Resolver{Var: make(Var)}
}

// FromOS caches the current process environment as the base layer.
func (r *Resolver) FromOS() {
	base := make(Var)
	for _, kv := range os.Environ() {
		if i := strings.IndexByte(kv, '='); i >= 0 {
			k := kv[:i]
			v := kv[i+1:]
			if k == "" {
				continue
			}
			base[k] = v
		}
	}
	r.base = base
}

// Set sets a global override K=V.
func (r *Resolver) Set(k, v string) {
	if r.Var == nil {
		r.Var = make(Var)
	}
	r.Var[k] = v
}

// Unset removes a global override.
func (r *Resolver) Unset(k string) {
	if r.Var != nil {
		delete(r.Var, k)
	}
}

// ParseOverride parses a per-script override file into a Var map.
// The format is forgiving by policy: blank lines, lines starting with '#',
// and lines without '=' are skipped, never rejected. A missing or unreadable
// file yields an empty map.
func ParseOverride(path string) Var {
	m := make(Var)
	b, err := os.ReadFile(path)
	if err != nil {
		return m
	}
	for _, line := range strings.Split(string(b), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		i := strings.IndexByte(line, '=')
		if i <= 0 {
			continue // no '=' or empty key; keep the ambient value
		}
		k := strings.TrimSpace(line[:i])
		v := strings.TrimSpace(line[i+1:])
		if k == "" {
			continue
		}
		m[k] = v
	}
	return m
}

// Resolve builds the final environment for a script given its override file
// path. overridePath may point at a file that does not exist; the result is
// then just the ambient environment plus global overrides.
// The returned slice is in "K=V" form with ${VAR} expansion performed over
// the composed map (simple expansion, no recursion).
func (r *Resolver) Resolve(overridePath string) []string {
	if r.base == nil {
		r.FromOS()
	}
	m := make(Var, len(r.base))
	for k, v := range r.base {
		m[k] = v
	}
	for k, v := range r.Var {
		if k == "" {
			continue
		}
		m[k] = v
	}
	if overridePath != "" {
		for k, v := range ParseOverride(overridePath) {
			m[k] = v
		}
	}
	expanded := make(Var, len(m))
	for k, v := range m {
		expanded[k] = expand(v, m)
	}
	out := make([]string, 0, len(expanded))
	for k, v := range expanded {
		if k == "" {
			continue
		}
		out = append(out, k+"="+v)
	}
	return out
}

func expand(s string, m Var) string {
	res := s
	for k, v := range m {
		res = strings.ReplaceAll(res, "${"+k+"}", v)
	}
	return res
}
