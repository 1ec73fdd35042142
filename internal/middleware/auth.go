package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"codeshare/internal/auth"
	"codeshare/internal/domain/repositories"
	"codeshare/internal/httputil"
)

// AuthMiddleware verifies the bearer token on every request and stores the
// authenticated identity in the request context. Verified identities are
// recorded in the directory so share-by-email grants can resolve to user
// ids later.
//
// WebSocket and EventSource clients cannot set request headers, so a token
// in the access_token query parameter is accepted as a fallback.
func AuthMiddleware(verifier auth.JWTVerifier, directory repositories.IdentityDirectory, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/health" {
				next.ServeHTTP(w, r)
				return
			}

			token := bearerToken(r)
			if token == "" {
				httputil.RespondError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			claims, err := verifier.VerifyToken(token)
			if err != nil {
				httputil.RespondError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			user := claims.Identity()
			if err := directory.Upsert(r.Context(), user); err != nil {
				// Directory writes are best-effort; the request still has a
				// verified identity.
				logger.Warn("identity upsert failed", "user_id", user.ID, "error", err)
			}

			next.ServeHTTP(w, httputil.WithUser(r, user))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return r.URL.Query().Get("access_token")
}
