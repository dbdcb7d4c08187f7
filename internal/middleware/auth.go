package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/koinonia/koinonia/internal/auth"
)

// TokenVerifier resolves an access credential to a user id.
type TokenVerifier interface {
	VerifyAccess(token string) (string, error)
}

// Authenticate returns a middleware that requires a valid bearer access
// token and stores the user id in the request context.
func Authenticate(verifier TokenVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				logAuthFailure(logger, r, "missing_token")
				writeAuthError(w)
				return
			}

			userID, err := verifier.VerifyAccess(token)
			if err != nil {
				logAuthFailure(logger, r, "invalid_token")
				writeAuthError(w)
				return
			}

			ctx := auth.ContextWithUserID(r.Context(), userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken extracts the token from "Authorization: Bearer <token>".
func bearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func logAuthFailure(logger *slog.Logger, r *http.Request, reason string) {
	logger.Warn("authentication failed",
		slog.String("reason", reason),
		slog.String("ip", r.RemoteAddr),
		slog.String("endpoint", r.Method+" "+r.URL.Path),
		slog.String("request_id", GetRequestID(r.Context())),
	)
}

// writeAuthError uses one message for every failure to prevent enumeration.
func writeAuthError(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="koinonia"`)
	writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or missing access token")
}
