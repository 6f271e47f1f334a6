// Package middleware provides reusable HTTP middleware for the unit booking API.
package middleware

import (
	"net/http"

	"github.com/rs/cors"
)

// preflightMaxAge is how long, in seconds, a browser may cache a preflight.
const preflightMaxAge = 600

// NewCORSHandler returns a middleware that answers cross-origin requests from
// allowedOrigins. Entries are full origins (scheme and host, no trailing
// slash). The API only reads and creates bookings, so the allowed methods are
// GET and POST. An empty list turns CORS off and passes requests through.
func NewCORSHandler(allowedOrigins []string) func(http.Handler) http.Handler {
	if len(allowedOrigins) == 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"Location", "X-Request-Id"},
		MaxAge:         preflightMaxAge,
	})
	return c.Handler
}
