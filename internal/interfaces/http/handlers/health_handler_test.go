package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/NeedsFine/internal/domain/scoring"
)

type healthRecorder struct {
	mu    sync.Mutex
	state map[string]bool
}

func (r *healthRecorder) SetHealth(component string, up bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == nil {
		r.state = make(map[string]bool)
	}
	r.state[component] = up
}

func up(name string) HealthChecker {
	return CheckerFunc{Component: name, Fn: func(context.Context) error { return nil }}
}

func down(name string) HealthChecker {
	return CheckerFunc{Component: name, Fn: func(context.Context) error { return errors.New("connection refused") }}
}

func TestCheckersFrom_SortedByName(t *testing.T) {
	t.Parallel()
	checkers := CheckersFrom(map[string]func(context.Context) error{
		"redis":    func(context.Context) error { return nil },
		"postgres": func(context.Context) error { return errors.New("down") },
	})
	require.Len(t, checkers, 2)
	assert.Equal(t, "postgres", checkers[0].Name())
	assert.Error(t, checkers[0].Check(context.Background()))
	assert.Equal(t, "redis", checkers[1].Name())
	assert.Empty(t, CheckersFrom(nil))
}

func TestHealthHandler_Liveness(t *testing.T) {
	t.Parallel()
	h := NewHealthHandler(BuildInfo{Version: "1.2.3"}, nil, down("postgres"))

	w := httptest.NewRecorder()
	h.Liveness(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var resp LivenessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "alive", resp.Status)
	assert.Equal(t, "1.2.3", resp.Version)
}

func TestHealthHandler_Readiness_NoCheckers(t *testing.T) {
	t.Parallel()
	h := NewHealthHandler(BuildInfo{}, nil)

	w := httptest.NewRecorder()
	h.Readiness(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ready"`)
}

func TestHealthHandler_Readiness_AllHealthy(t *testing.T) {
	t.Parallel()
	obs := &healthRecorder{}
	h := NewHealthHandler(BuildInfo{}, obs, up("postgres"), up("redis"))

	w := httptest.NewRecorder()
	h.Readiness(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var resp ReadinessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ready", resp.Status)
	assert.Equal(t, "healthy", resp.Components["postgres"].Status)
	assert.Equal(t, "healthy", resp.Components["redis"].Status)
	assert.Equal(t, map[string]bool{"postgres": true, "redis": true}, obs.state)
}

func TestHealthHandler_Readiness_Degraded(t *testing.T) {
	t.Parallel()
	obs := &healthRecorder{}
	h := NewHealthHandler(BuildInfo{}, obs, up("postgres"), down("redis"))

	w := httptest.NewRecorder()
	h.Readiness(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	var resp ReadinessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "not_ready", resp.Status)
	assert.Equal(t, "unhealthy", resp.Components["redis"].Status)
	assert.Equal(t, "connection refused", resp.Components["redis"].Error)
	assert.False(t, obs.state["redis"])
	assert.True(t, obs.state["postgres"])
}

func TestHealthHandler_Version(t *testing.T) {
	t.Parallel()
	h := NewHealthHandler(BuildInfo{Version: "dev"}, nil)

	w := httptest.NewRecorder()
	h.Version(w, httptest.NewRequest(http.MethodGet, "/version", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var resp VersionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "dev", resp.Version)
	assert.Equal(t, scoring.LogicVersion, resp.LogicVersion)
	assert.Equal(t, scoring.PolicyHybrid, resp.PolicyVersion)
}
