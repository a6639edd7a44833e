package middleware

import (
	"net/http"
	"strings"

	"github.com/conduit-lang/autocrud/internal/web/auth"
	"github.com/conduit-lang/autocrud/internal/web/response"
)

// AuthConfig holds configuration for authentication middleware
type AuthConfig struct {
	Service *auth.AuthService
	// WritesOnly lets GET, HEAD and OPTIONS through unauthenticated.
	WritesOnly bool
	// Scope, when set, must be granted by the token.
	Scope string
}

// Auth requires a valid bearer token on every request.
func Auth(service *auth.AuthService) Middleware {
	return AuthWithConfig(AuthConfig{Service: service})
}

// AuthWithConfig creates an authentication middleware with custom configuration
func AuthWithConfig(config AuthConfig) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if config.WritesOnly && isSafeMethod(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			token, ok := bearerToken(r)
			if !ok {
				response.RenderUnauthorized(w, "Authorization required")
				return
			}

			claims, err := config.Service.ValidateToken(token)
			if err != nil {
				response.RenderUnauthorized(w, "Invalid token")
				return
			}
			if config.Scope != "" && !claims.HasScope(config.Scope) {
				response.RenderError(w, http.StatusForbidden, "Insufficient scope", "")
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithClaims(r.Context(), claims)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", false
	}
	return token, true
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	default:
		return false
	}
}
