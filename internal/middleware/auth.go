package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/templui/doin/internal/auth"
)

// BearerAuth verifies an "Authorization: Bearer" token and stores the
// identity in the request context. Requests without a valid token continue
// anonymously.
func BearerAuth(tokens *auth.TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || tokens == nil {
				next.ServeHTTP(w, r)
				return
			}

			identity, err := tokens.Verify(strings.TrimSpace(token))
			if err != nil {
				slog.Debug("ignoring invalid bearer token", "path", r.URL.Path, "error", err)
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), identity)))
		})
	}
}

// RequireIdentity rejects anonymous requests with 401.
func RequireIdentity(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if auth.FromContext(r.Context()) == nil {
			http.Error(w, "Sign in to continue.", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}
