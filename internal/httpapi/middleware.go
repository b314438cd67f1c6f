package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// ContextKey type for context keys to avoid collisions
type ContextKey string

// ClaimsKey is the context key for JWT claims
const ClaimsKey ContextKey = "jwt_claims"

// Middleware provides HTTP middleware functions
type Middleware struct {
	jwtAuth *JWTAuth
	logger  *slog.Logger
	noAuth  bool // Development mode: bypass authentication
}

// NewMiddleware creates a new middleware instance
func NewMiddleware(jwtAuth *JWTAuth, logger *slog.Logger, noAuth bool) *Middleware {
	return &Middleware{
		jwtAuth: jwtAuth,
		logger:  logger,
		noAuth:  noAuth,
	}
}

// AuthRequired middleware requires valid JWT authentication
func (m *Middleware) AuthRequired(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Development mode runs with an open-routes-only authorization
		if m.noAuth {
			claims := &JWTClaims{ClientID: "dev-client"}
			next(w, r.WithContext(context.WithValue(r.Context(), ClaimsKey, claims)))
			return
		}

		claims, ok := m.authenticate(w, r)
		if !ok {
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), ClaimsKey, claims)))
	}
}

// AdminRequired middleware requires admin privileges
// Note: Admin endpoints are NEVER bypassed, even in no-auth mode
func (m *Middleware) AdminRequired(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := m.authenticate(w, r)
		if !ok {
			return
		}
		if !claims.IsAdmin {
			writeError(w, "Admin privileges required", http.StatusForbidden)
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), ClaimsKey, claims)))
	}
}

func (m *Middleware) authenticate(w http.ResponseWriter, r *http.Request) (*JWTClaims, bool) {
	token := extractToken(r)
	if token == "" {
		writeError(w, "Authorization header required", http.StatusUnauthorized)
		return nil, false
	}

	claims, err := m.jwtAuth.ValidateToken(token)
	if err != nil {
		writeError(w, "Invalid token: "+err.Error(), http.StatusUnauthorized)
		return nil, false
	}
	return claims, true
}

// CORS middleware adds CORS headers for browser compatibility
func (m *Middleware) CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// statusRecorder remembers the status code written by a handler
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// Logging middleware logs each request once it completes
func (m *Middleware) Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		m.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start))
	})
}

// Recovery middleware recovers from panics and returns 500 error
func (m *Middleware) Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				m.logger.Error("handler panicked", "path", r.URL.Path, "panic", err)
				writeError(w, "Internal server error", http.StatusInternalServerError)
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// extractToken extracts the JWT token from the Authorization header
func extractToken(r *http.Request) string {
	return strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
}

// writeError writes an error response as JSON
func writeError(w http.ResponseWriter, message string, statusCode int) {
	writeJSON(w, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	}, statusCode)
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// GetClaims extracts the JWT claims from the request context
func GetClaims(r *http.Request) *JWTClaims {
	if claims, ok := r.Context().Value(ClaimsKey).(*JWTClaims); ok {
		return claims
	}
	return nil
}
