package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

// fakeValidator accepts a single known token.
type fakeValidator struct {
	token  string
	userID int64
}

func (f *fakeValidator) ValidateSession(token string) (int64, error) {
	if token == f.token {
		return f.userID, nil
	}
	return 0, errors.New("invalid session")
}

func TestSession_ValidCookie(t *testing.T) {
	validator := &fakeValidator{token: "good-token", userID: 42}

	var gotID int64
	var gotOK bool
	handler := Session(validator)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID, gotOK = GetUserID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "good-token"})
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if !gotOK || gotID != 42 {
		t.Errorf("user id = (%d, %v), want (42, true)", gotID, gotOK)
	}
}

func TestSession_BearerHeader(t *testing.T) {
	validator := &fakeValidator{token: "good-token", userID: 7}

	var gotOK bool
	handler := Session(validator)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, gotOK = GetUserID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if !gotOK {
		t.Error("bearer token should authenticate the request")
	}
}

func TestSession_InvalidTokenIsAnonymous(t *testing.T) {
	validator := &fakeValidator{token: "good-token", userID: 7}

	var gotOK bool
	handler := Session(validator)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, gotOK = GetUserID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "forged"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if gotOK {
		t.Error("invalid token must not authenticate")
	}
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d; Session alone must not reject requests", rec.Code)
	}
}

func TestRequireAuth(t *testing.T) {
	handler := RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("anonymous rejected", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/events", nil))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("authenticated passes", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/events", nil)
		req = req.WithContext(SetUserID(req.Context(), 1))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
	})
}
