package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

type AuthMode string

const (
	AuthNone   AuthMode = "none"
	AuthAPIKey AuthMode = "apikey"
	AuthBearer AuthMode = "bearer"
)

type AuthConfig struct {
	Mode        AuthMode
	APIKey      string
	BearerToken string
	// SkipPaths are matched exactly against the request path.
	SkipPaths []string
}

// AuthMiddleware guards every route except SkipPaths. CORS preflight
// requests are never challenged.
func AuthMiddleware(cfg AuthConfig) func(http.Handler) http.Handler {
	skip := make(map[string]struct{}, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		if cfg.Mode == AuthNone || cfg.Mode == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := skip[r.URL.Path]; ok || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			switch cfg.Mode {
			case AuthAPIKey:
				if constantTimeEq(r.Header.Get("X-API-Key"), cfg.APIKey) {
					next.ServeHTTP(w, r)
					return
				}
				unauthorized(w, `ApiKey realm="tasks", header="X-API-Key"`)

			case AuthBearer:
				authz := r.Header.Get("Authorization")
				if token, ok := strings.CutPrefix(authz, "Bearer "); ok && constantTimeEq(strings.TrimSpace(token), cfg.BearerToken) {
					next.ServeHTTP(w, r)
					return
				}
				unauthorized(w, `Bearer realm="tasks"`)

			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

func constantTimeEq(a, b string) bool {
	if b == "" || len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func unauthorized(w http.ResponseWriter, challenge string) {
	w.Header().Set("WWW-Authenticate", challenge)
	writeErr(w, http.StatusUnauthorized, "unauthorized")
}
