package api

import (
	"net/http"
	"strings"

	"github.com/rs/cors"
)

func CORSOptions(allowedOrigins []string, maxAge int) cors.Options {
	return cors.Options{
		AllowOriginFunc: AllowedOrigin(allowedOrigins),
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
		},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"X-Request-Id"},
		MaxAge:           maxAge,
		AllowCredentials: false,
	}
}

// AllowedOrigin matches origins ignoring the scheme. An empty list or a
// leading "*" allows everything.
func AllowedOrigin(allowedOrigins []string) func(origin string) bool {
	trimScheme := func(origin string) string {
		return strings.TrimPrefix(strings.TrimPrefix(origin, "https://"), "http://")
	}
	return func(origin string) bool {
		if len(allowedOrigins) == 0 || allowedOrigins[0] == "*" {
			return true
		}
		for _, allowed := range allowedOrigins {
			if allowed == origin || trimScheme(allowed) == trimScheme(origin) {
				return true
			}
		}
		return false
	}
}
