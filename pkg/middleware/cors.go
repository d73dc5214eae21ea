package middleware

import (
	"net/http"

	"github.com/rs/cors"
)

// CORS answers preflight requests and adds CORS headers for the dashboard
type CORS struct {
	c *cors.Cors
}

// NewCORS allows the given origins; empty or "*" allows any origin
func NewCORS(allowedOrigins []string) *CORS {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	return &CORS{c: cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodDelete,
		},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	})}
}

// Wrap adds CORS handling to a single route
func (m *CORS) Wrap(next http.HandlerFunc) http.HandlerFunc {
	return m.c.Handler(next).ServeHTTP
}

// Handler wraps a whole router. Method-specific mux patterns never see an
// OPTIONS preflight, so the router must be wrapped rather than each route.
func (m *CORS) Handler(next http.Handler) http.Handler {
	return m.c.Handler(next)
}
