package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"github.com/turtacn/NeedsFine/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/NeedsFine/pkg/errors"
)

// AdminPasswordHeader carries the shared admin password.
const AdminPasswordHeader = "X-Admin-Password"

// AdminAuth guards the admin routes with a shared password. An empty
// password disables the routes entirely (403).
func AdminAuth(password string, logger logging.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	want := []byte(password)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(want) == 0 {
				deny(w, errors.ErrCodeFeatureDisabled, "admin endpoints are disabled")
				return
			}
			got := []byte(r.Header.Get(AdminPasswordHeader))
			if subtle.ConstantTimeCompare(got, want) != 1 {
				logger.Warn("admin authentication failed",
					logging.String("path", r.URL.Path),
					logging.String("remote_addr", r.RemoteAddr))
				deny(w, errors.ErrCodeUnauthorized, "invalid admin password")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func deny(w http.ResponseWriter, code errors.ErrorCode, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(errors.HTTPStatus(code))
	_ = json.NewEncoder(w).Encode(map[string]string{"code": string(code), "message": message})
}
