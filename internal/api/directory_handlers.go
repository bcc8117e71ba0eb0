package api

import (
	"context"
	"net/http"
	"strings"

	"log/slog"

	"github.com/bjzgcai/calendar/internal/directory"
	"github.com/bjzgcai/calendar/internal/middleware"
)

// cacheInvalidator is satisfied by directory.Cache. Plain searchers
// without a cache have nothing to invalidate.
type cacheInvalidator interface {
	Invalidate(ctx context.Context)
}

// DirectoryHandlers serves the organization user listing used by the
// attendee picker.
type DirectoryHandlers struct {
	searcher directory.Searcher
}

// NewDirectoryHandlers creates a new DirectoryHandlers instance.
func NewDirectoryHandlers(searcher directory.Searcher) *DirectoryHandlers {
	return &DirectoryHandlers{searcher: searcher}
}

// ListUsers handles GET /directory/users. The optional search parameter
// narrows results by case-insensitive name substring; refresh=true drops
// the cached listing first so org changes show up immediately.
func (h *DirectoryHandlers) ListUsers(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("refresh") == "true" {
		if c, ok := h.searcher.(cacheInvalidator); ok {
			c.Invalidate(r.Context())
		}
	}

	users, err := h.searcher.ListUsers(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list directory users", "error", err)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusBadGateway, ErrCodeInternal, "Failed to fetch directory")
		return
	}

	search := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("search")))
	if search != "" {
		filtered := users[:0:0]
		for _, u := range users {
			if strings.Contains(strings.ToLower(u.Name), search) {
				filtered = append(filtered, u)
			}
		}
		users = filtered
	}

	if users == nil {
		users = []directory.User{}
	}
	writeJSON(w, r.Context(), http.StatusOK, users)
}
