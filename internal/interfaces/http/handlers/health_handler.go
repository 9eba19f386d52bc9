package handlers

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/turtacn/NeedsFine/internal/domain/scoring"
)

// HealthChecker is a dependency that can report its health.
type HealthChecker interface {
	Name() string
	Check(ctx context.Context) error
}

// CheckerFunc adapts a ping function to HealthChecker.
type CheckerFunc struct {
	Component string
	Fn        func(ctx context.Context) error
}

func (c CheckerFunc) Name() string                    { return c.Component }
func (c CheckerFunc) Check(ctx context.Context) error { return c.Fn(ctx) }

// CheckersFrom adapts named ping functions, ordered by name.
func CheckersFrom(pings map[string]func(ctx context.Context) error) []HealthChecker {
	names := make([]string, 0, len(pings))
	for name := range pings {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]HealthChecker, 0, len(names))
	for _, name := range names {
		out = append(out, CheckerFunc{Component: name, Fn: pings[name]})
	}
	return out
}

// HealthObserver receives each readiness result, for metrics.
type HealthObserver interface {
	SetHealth(component string, up bool)
}

// BuildInfo identifies the running binary and scoring policy.
type BuildInfo struct {
	Version string
	Policy  string
}

// HealthHandler serves liveness, readiness and version.
type HealthHandler struct {
	checkers []HealthChecker
	observer HealthObserver
	info     BuildInfo
	startAt  time.Time
	timeout  time.Duration
}

// NewHealthHandler creates a HealthHandler. observer may be nil.
func NewHealthHandler(info BuildInfo, observer HealthObserver, checkers ...HealthChecker) *HealthHandler {
	if info.Policy == "" {
		info.Policy = scoring.PolicyHybrid
	}
	return &HealthHandler{
		checkers: checkers,
		observer: observer,
		info:     info,
		startAt:  time.Now(),
		timeout:  5 * time.Second,
	}
}

// LivenessResponse is the body of GET /healthz.
type LivenessResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
}

// ReadinessResponse is the body of GET /readyz.
type ReadinessResponse struct {
	Status     string                    `json:"status"`
	Components map[string]ComponentCheck `json:"components,omitempty"`
}

// ComponentCheck is one dependency's result.
type ComponentCheck struct {
	Status  string `json:"status"`
	Latency string `json:"latency,omitempty"`
	Error   string `json:"error,omitempty"`
}

// VersionResponse is the body of GET /version.
type VersionResponse struct {
	Version       string `json:"version"`
	LogicVersion  string `json:"logic_version"`
	PolicyVersion string `json:"policy_version"`
}

// Liveness handles GET /healthz. It never checks dependencies.
func (h *HealthHandler) Liveness(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, LivenessResponse{
		Status:  "alive",
		Version: h.info.Version,
		Uptime:  time.Since(h.startAt).Truncate(time.Second).String(),
	})
}

// Readiness handles GET /readyz: 503 when any dependency is down.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	if len(h.checkers) == 0 {
		writeJSON(w, http.StatusOK, ReadinessResponse{Status: "ready"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	components := h.checkAll(ctx)
	resp := ReadinessResponse{Status: "ready", Components: components}
	code := http.StatusOK
	for _, c := range components {
		if c.Status != "healthy" {
			resp.Status = "not_ready"
			code = http.StatusServiceUnavailable
			break
		}
	}
	writeJSON(w, code, resp)
}

// Version handles GET /version.
func (h *HealthHandler) Version(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, VersionResponse{
		Version:       h.info.Version,
		LogicVersion:  scoring.LogicVersion,
		PolicyVersion: h.info.Policy,
	})
}

func (h *HealthHandler) checkAll(ctx context.Context) map[string]ComponentCheck {
	results := make(map[string]ComponentCheck, len(h.checkers))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, checker := range h.checkers {
		wg.Add(1)
		go func(c HealthChecker) {
			defer wg.Done()

			start := time.Now()
			err := c.Check(ctx)
			cc := ComponentCheck{
				Status:  "healthy",
				Latency: time.Since(start).Truncate(time.Microsecond).String(),
			}
			if err != nil {
				cc.Status = "unhealthy"
				cc.Error = err.Error()
			}
			if h.observer != nil {
				h.observer.SetHealth(c.Name(), err == nil)
			}

			mu.Lock()
			results[c.Name()] = cc
			mu.Unlock()
		}(checker)
	}

	wg.Wait()
	return results
}
