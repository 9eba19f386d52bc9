package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	method string
	route  string
	status int
}

type fakeRecorder struct {
	mu   sync.Mutex
	reqs []recordedRequest
}

func (f *fakeRecorder) RecordHTTPRequest(method, route string, statusCode int, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, recordedRequest{method, route, statusCode})
}

func TestMetrics_RoutePattern(t *testing.T) {
	t.Parallel()
	rec := &fakeRecorder{}
	r := chi.NewRouter()
	r.Use(Metrics(rec))
	r.Get("/api/v1/reviews/{reviewID}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Get("/api/v1/stats", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("{}"))
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/reviews/abc", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/reviews/def", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil))

	require.Len(t, rec.reqs, 3)
	assert.Equal(t, recordedRequest{"GET", "/api/v1/reviews/{reviewID}", 404}, rec.reqs[0])
	assert.Equal(t, rec.reqs[0], rec.reqs[1])
	assert.Equal(t, recordedRequest{"GET", "/api/v1/stats", 200}, rec.reqs[2])
}

func TestMetrics_Unmatched(t *testing.T) {
	t.Parallel()
	rec := &fakeRecorder{}
	h := Metrics(rec)(statusHandler(http.StatusOK))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/nowhere", nil))

	require.Len(t, rec.reqs, 1)
	assert.Equal(t, "unmatched", rec.reqs[0].route)
	assert.Equal(t, http.MethodPost, rec.reqs[0].method)
}
