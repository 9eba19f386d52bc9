package middleware

import (
	"net/http"

	"github.com/rs/cors"
)

// CORSConfig holds configuration for the CORS middleware.
type CORSConfig struct {
	// AllowedOrigins lists the browser origins allowed to call the API.
	// ["*"] allows any origin; empty disables cross-origin access.
	AllowedOrigins []string
	MaxAge         int
}

// DefaultCORSConfig allows no cross-origin callers.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{MaxAge: 86400}
}

// CORS returns rs/cors middleware for the API's methods and headers.
func CORS(config CORSConfig) func(http.Handler) http.Handler {
	opts := cors.Options{
		AllowedOrigins: config.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID", AdminPasswordHeader},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         config.MaxAge,
	}
	// rs/cors treats an empty origin list as "allow all".
	if len(config.AllowedOrigins) == 0 {
		opts.AllowOriginFunc = func(string) bool { return false }
	}
	return cors.New(opts).Handler
}
