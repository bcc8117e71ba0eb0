// Package middleware provides HTTP middleware components for the API server.
package middleware

import (
	"io"
	"net/http"
	"strings"
)

// SessionCookieName is the cookie carrying the signed session token.
const SessionCookieName = "calendar_session"

// SessionValidator validates a session token and returns the user id it
// was issued for. Implemented by the auth package's session service.
type SessionValidator interface {
	ValidateSession(token string) (int64, error)
}

// sessionToken extracts the session token from the request: the session
// cookie first, then a Bearer Authorization header for non-browser clients.
func sessionToken(r *http.Request) string {
	if c, err := r.Cookie(SessionCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

// Session is a middleware that resolves the session token into a user id
// and stores it in the request context. Requests without a valid session
// pass through anonymous; handlers that need a user check the context.
func Session(validator SessionValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token := sessionToken(r); token != "" {
				if userID, err := validator.ValidateSession(token); err == nil {
					r = r.WithContext(SetUserID(r.Context(), userID))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuth is a middleware that rejects anonymous requests with 401.
// It must be placed after Session in the chain.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetUserID(r.Context()); !ok {
			ctx := SetErrorCode(r.Context(), "auth_failed")
			UpdateResponseContext(w, ctx)
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.WriteHeader(http.StatusUnauthorized)
			io.WriteString(w, `{"error":{"code":"auth_failed","message":"Authentication required"}}`)
			return
		}
		next.ServeHTTP(w, r)
	})
}
