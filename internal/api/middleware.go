package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/eumtools/siteprov-server/internal/http/response"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	contextKeyUPN      contextKey = "upn"
	contextKeyUsername contextKey = "username"
)

// requireAuth validates the bearer identity token and attaches the caller's
// identity to the request context.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			response.Unauthorized(w, "Missing authorization header", s.logger)
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(w, "Invalid authorization header format", s.logger)
			return
		}

		claims, err := s.tokens.VerifyToken(parts[1])
		if err != nil {
			response.Unauthorized(w, "Invalid or expired token", s.logger)
			return
		}

		ctx := context.WithValue(r.Context(), contextKeyUPN, claims.UPN)
		ctx = context.WithValue(ctx, contextKeyUsername, claims.Username())

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// limitWrites applies the keyed write-path rate limiter, keyed by caller
// identity so one noisy requestor cannot starve the rest.
func (s *Server) limitWrites(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := getUsername(r.Context())
		if key == "" {
			key = r.RemoteAddr
		}

		if !s.writeLimiter.Allow(key) {
			s.logger.Warn("Rate limit exceeded", "requestor", key, "path", r.URL.Path)
			response.TooManyRequests(w, "Too many requests. Please try again later.", s.logger)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// getUsername extracts the authenticated username from the request context.
// Returns an empty string if not authenticated.
func getUsername(ctx context.Context) string {
	if username, ok := ctx.Value(contextKeyUsername).(string); ok {
		return username
	}
	return ""
}
