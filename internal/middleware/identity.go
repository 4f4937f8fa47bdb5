package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/mediavault/backend/internal/logging"
)

// userIDHeader carries the authenticated user id set by the fronting gateway.
// Credential verification happens upstream; this service trusts the header.
const userIDHeader = "X-User-Id"

type userIDCtxKey struct{}

// Identity rejects requests without an authenticated user id and stores the
// id on the request context for handlers.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.Header.Get(userIDHeader))
		if userID == "" {
			logging.FromContext(r.Context()).Warn("request missing user identity")
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), userIDCtxKey{}, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UserIDFromContext returns the authenticated user id, or "" when the request
// did not pass through Identity.
func UserIDFromContext(ctx context.Context) string {
	if userID, ok := ctx.Value(userIDCtxKey{}).(string); ok {
		return userID
	}
	return ""
}
