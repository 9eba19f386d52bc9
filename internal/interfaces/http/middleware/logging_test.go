package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/NeedsFine/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/NeedsFine/internal/testutil"
)

func statusHandler(code int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(code)
	})
}

func TestRequestLogging_Levels(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		code  int
		level string
		msg   string
	}{
		{"ok", http.StatusOK, "info", "HTTP request completed"},
		{"client error", http.StatusNotFound, "warn", "HTTP request completed with client error"},
		{"server error", http.StatusBadGateway, "error", "HTTP request completed with server error"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			logger := testutil.NewMockLogger()
			h := RequestLogging(logger, DefaultLoggingConfig())(statusHandler(tt.code))

			h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil))

			assert.True(t, logger.HasMessage(tt.level, tt.msg))
		})
	}
}

func TestRequestLogging_Slow(t *testing.T) {
	t.Parallel()
	logger := testutil.NewMockLogger()
	cfg := LoggingConfig{SlowThreshold: time.Millisecond}
	h := RequestLogging(logger, cfg)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(5 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/analyze", nil))

	assert.True(t, logger.HasMessage("warn", "HTTP request completed (slow)"))
}

func TestRequestLogging_SkipPaths(t *testing.T) {
	t.Parallel()
	logger := testutil.NewMockLogger()
	h := RequestLogging(logger, DefaultLoggingConfig())(statusHandler(http.StatusOK))

	for _, p := range []string{"/healthz", "/readyz", "/metrics"} {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, p, nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
	assert.Empty(t, logger.GetMessages())
}

func TestRequestLogging_ContextLogger(t *testing.T) {
	t.Parallel()
	logger := testutil.NewMockLogger()
	h := chimw.RequestID(RequestLogging(logger, DefaultLoggingConfig())(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logging.FromContext(r.Context(), nil).Info("inside handler")
			w.WriteHeader(http.StatusNoContent)
		})))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/reviews", nil))

	require.True(t, logger.HasMessage("info", "inside handler"))
	for _, m := range logger.GetMessages() {
		if m.Message != "inside handler" {
			continue
		}
		var reqID interface{}
		for _, f := range m.Fields {
			if f.Key == "request_id" {
				reqID = f.Value
			}
		}
		assert.NotEmpty(t, reqID)
	}
}
