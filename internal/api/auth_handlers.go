package api

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"time"

	"log/slog"

	"github.com/bjzgcai/calendar/internal/auth"
	"github.com/bjzgcai/calendar/internal/directory"
	"github.com/bjzgcai/calendar/internal/middleware"
	"github.com/bjzgcai/calendar/internal/user"
	"github.com/bjzgcai/calendar/internal/validate"
)

// stateCookieName carries the OAuth state between login and callback.
const stateCookieName = "calendar_oauth_state"

// stateCookieMaxAge bounds how long a login attempt may take.
const stateCookieMaxAge = 10 * time.Minute

// AuthHandlers holds dependencies for login, callback, logout and
// current-user endpoints.
type AuthHandlers struct {
	oauth         *directory.Client
	users         user.Repository
	sessions      *auth.SessionService
	redirectURI   string
	secureCookies bool
}

// AuthHandlersConfig holds configuration for creating AuthHandlers.
type AuthHandlersConfig struct {
	OAuth    *directory.Client
	Users    user.Repository
	Sessions *auth.SessionService

	// RedirectURI is the callback URL registered with the DingTalk app.
	RedirectURI string

	// SecureCookies marks session cookies Secure; enable behind TLS.
	SecureCookies bool
}

// NewAuthHandlers creates a new AuthHandlers instance.
func NewAuthHandlers(cfg AuthHandlersConfig) *AuthHandlers {
	return &AuthHandlers{
		oauth:         cfg.OAuth,
		users:         cfg.Users,
		sessions:      cfg.Sessions,
		redirectURI:   cfg.RedirectURI,
		secureCookies: cfg.SecureCookies,
	}
}

// Login handles GET /auth/login and redirects the browser to the
// DingTalk authorization page with a fresh anti-forgery state.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	state, err := randomState()
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to generate oauth state", "error", err)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to start login")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   int(stateCookieMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.oauth.AuthURL(h.redirectURI, state), http.StatusFound)
}

// Callback handles GET /auth/callback. It verifies the state, exchanges
// the authorization code, provisions or refreshes the local user row and
// issues a session cookie before sending the browser home.
func (h *AuthHandlers) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	code := q.Get("code")
	state := q.Get("state")
	if code == "" || state == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Missing code or state")
		return
	}

	stateCookie, err := r.Cookie(stateCookieName)
	if err != nil || stateCookie.Value != state {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeAuthFailed)
		WriteError(w, ctx, http.StatusUnauthorized, ErrCodeAuthFailed, "OAuth state mismatch")
		return
	}
	clearCookie(w, stateCookieName, h.secureCookies)

	token, err := h.oauth.ExchangeCode(r.Context(), code)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to exchange oauth code", "error", err)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeAuthFailed)
		WriteError(w, ctx, http.StatusUnauthorized, ErrCodeAuthFailed, "DingTalk login failed")
		return
	}

	info, err := h.oauth.FetchUserInfo(r.Context(), token)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to fetch dingtalk user info", "error", err)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeAuthFailed)
		WriteError(w, ctx, http.StatusUnauthorized, ErrCodeAuthFailed, "DingTalk login failed")
		return
	}

	u, err := h.users.Upsert(r.Context(), profileFromInfo(info))
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to upsert user", "error", err, "dingtalk_id", info.OpenID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to provision user")
		return
	}

	session, err := h.sessions.IssueSession(u.ID, u.Name)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to issue session", "error", err, "user_id", u.ID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to issue session")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    session,
		Path:     "/",
		MaxAge:   int(auth.SessionExpiry.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, "/", http.StatusFound)
}

// Logout handles POST /auth/logout and clears the session cookie. The
// token itself stays valid until expiry; there is no revocation list.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	clearCookie(w, middleware.SessionCookieName, h.secureCookies)
	writeJSON(w, r.Context(), http.StatusOK, map[string]bool{"success": true})
}

// CurrentUser handles GET /auth/user and returns the session's user row.
func (h *AuthHandlers) CurrentUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeAuthFailed)
		WriteError(w, ctx, http.StatusUnauthorized, ErrCodeAuthFailed, "Authentication required")
		return
	}

	u, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeAuthFailed)
			WriteError(w, ctx, http.StatusUnauthorized, ErrCodeAuthFailed, "Session user no longer exists")
			return
		}
		slog.ErrorContext(r.Context(), "failed to load current user", "error", err, "user_id", userID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to load user")
		return
	}

	writeJSON(w, r.Context(), http.StatusOK, u)
}

// profileFromInfo maps the DingTalk user info onto a local profile,
// preferring the stable unionId as the upsert key and dropping
// malformed emails rather than failing the login.
func profileFromInfo(info *directory.UserInfo) user.Profile {
	id := info.UnionID
	if id == "" {
		id = info.OpenID
	}

	email := info.Email
	if email != "" {
		if _, err := validate.Email(email); err != nil {
			email = ""
		}
	}

	return user.Profile{
		DingTalkID: id,
		Name:       info.Nick,
		Avatar:     info.Avatar,
		Email:      email,
		Mobile:     info.Mobile,
	}
}

// randomState returns a hex-encoded 128-bit random token.
func randomState() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func clearCookie(w http.ResponseWriter, name string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
