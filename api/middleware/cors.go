package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// local terminal UI
var defaultCORSOrigins = []string{"http://localhost:3000"}

// CORS lets browser-based terminals call the API. An empty origin list falls back to the
// local development origin.
func CORS(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = defaultCORSOrigins
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders: []string{"Accept", "Content-Type", idempotencyHeader, requestIDHeader, terminalIDHeader},
		ExposedHeaders: []string{requestIDHeader, replayedHeader},
		MaxAge:         300,
	})
}
