package middleware

import (
	"log"
	"net/http"

	"github.com/rs/cors"

	"retail-backend/internal/config"
)

// NewCORS builds the CORS layer for the till and back-office frontends.
// Credentials are only allowed when origins are listed explicitly; with the
// "*" default the API is reachable from anywhere but cookies are not sent.
func NewCORS(cfg *config.Config) func(http.Handler) http.Handler {
	origins := cfg.Server.CorsAllowedOrigins
	wildcard := len(origins) == 0
	for _, o := range origins {
		if o == "*" {
			wildcard = true
		}
	}
	if wildcard {
		log.Printf("[CORS] Allowing all origins (credentials disabled)")
	} else {
		log.Printf("[CORS] Allowed origins: %v", origins)
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   cfg.Server.CorsAllowedMethods,
		AllowedHeaders:   cfg.Server.CorsAllowedHeaders,
		ExposedHeaders:   []string{RequestIDHeader, "X-Report-Archive-Key", "Content-Disposition"},
		AllowCredentials: !wildcard,
		MaxAge:           300,
	})

	return c.Handler
}
