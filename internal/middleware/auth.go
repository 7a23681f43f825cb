package middleware

import (
	"net/http"
	"strings"

	"linkarbox/internal/auth"
	"linkarbox/internal/httputil"
	"linkarbox/internal/metrics"
)

// publicPrefixes are served without a Supabase session
var publicPrefixes = []string{
	"/health",
	"/metrics",
	"/invite/",
	"/dropbox-auth",
	"/api/connections/google/callback",
}

func isPublic(path string) bool {
	for _, prefix := range publicPrefixes {
		if path == strings.TrimSuffix(prefix, "/") || strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// AuthMiddleware verifies the Supabase access token and stores the user id
// and role on the request context. Public paths and CORS preflights pass
// through untouched.
func AuthMiddleware(verifier auth.JWTVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions || isPublic(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				metrics.RecordAuthAttempt(false)
				httputil.RespondError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			claims, err := verifier.VerifyToken(strings.TrimSpace(token))
			if err != nil {
				metrics.RecordAuthAttempt(false)
				httputil.RespondError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			metrics.RecordAuthAttempt(true)
			next.ServeHTTP(w, httputil.WithUser(r, claims.GetUserID(), claims.AppRole()))
		})
	}
}
