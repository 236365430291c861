// Package identity consumes the authenticated identity established by
// the external identity provider. The provider (an oauth2-proxy style
// gateway) terminates sign-in ahead of this service and forwards the
// verified identity in trusted headers; this package validates their
// shape and makes the identity available on the request context.
package identity

import (
	"context"
	"net"
	"net/http"
	"regexp"
	"strings"
)

const (
	// EmailHeader carries the verified email of the signed-in user.
	EmailHeader = "X-Auth-Request-Email"
	// UserHeader optionally carries a provider-specific user id.
	UserHeader = "X-Auth-Request-User"
)

type contextKey int

const (
	userIDKey contextKey = iota
	emailKey
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// UserIDFromContext extracts the user ID from the request context.
func UserIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(userIDKey).(string); ok {
		return v
	}
	return ""
}

// EmailFromContext extracts the verified email from the request context.
func EmailFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(emailKey).(string); ok {
		return v
	}
	return ""
}

// WithIdentity returns a context carrying the given identity. Intended
// for tests and internal callers that bypass the HTTP middleware.
func WithIdentity(ctx context.Context, userID, email string) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	return context.WithValue(ctx, emailKey, email)
}

// Middleware rejects requests without a valid forwarded identity and
// stashes userID and email in the request context. Unauthenticated
// callers get 401 before any authorization decision runs.
func Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			email := strings.ToLower(strings.TrimSpace(r.Header.Get(EmailHeader)))
			if !emailPattern.MatchString(email) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"authentication required","kind":"unauthorized"}`))
				return
			}

			userID := strings.TrimSpace(r.Header.Get(UserHeader))
			if userID == "" {
				userID = email
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), userID, email)))
		})
	}
}

// IPFromRequest returns a normalized remote IP for optional request tracing.
func IPFromRequest(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
