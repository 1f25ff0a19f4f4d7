package middleware

import (
	"log/slog"
	"net/http"

	"webpoptimizer/internal/security"
)

// Authenticator checks basic-auth credentials.
type Authenticator interface {
	Authenticate(user, password string) (security.Principal, bool)
}

// RequireAdmin is middleware that requires valid admin basic-auth
// credentials and stores the authenticated principal in the request context.
func RequireAdmin(auth Authenticator, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, password, ok := r.BasicAuth()
			if !ok {
				unauthorized(w)
				return
			}
			principal, ok := auth.Authenticate(user, password)
			if !ok {
				logger.Warn("admin authentication failed", "user", user, "path", r.URL.Path)
				unauthorized(w)
				return
			}
			next.ServeHTTP(w, r.WithContext(security.WithPrincipal(r.Context(), principal)))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Basic realm="webpoptimizer", charset="UTF-8"`)
	http.Error(w, "Unauthorized", http.StatusUnauthorized)
}
