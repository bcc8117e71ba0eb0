package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"log/slog"

	"github.com/bjzgcai/calendar/internal/middleware"
	"github.com/bjzgcai/calendar/internal/upload"
)

// SignUploadRequest is the body for POST /uploads/posters.
type SignUploadRequest struct {
	ContentType string `json:"contentType"`
	SizeBytes   int64  `json:"sizeBytes"`
}

// UploadHandlers holds dependencies for upload HTTP handlers.
type UploadHandlers struct {
	uploadService *upload.Service
	metrics       *Metrics
}

// NewUploadHandlers creates a new UploadHandlers instance. metrics may
// be nil when metrics are disabled.
func NewUploadHandlers(uploadService *upload.Service, metrics *Metrics) *UploadHandlers {
	return &UploadHandlers{uploadService: uploadService, metrics: metrics}
}

// SignPosterUpload handles POST /uploads/posters. It issues a pre-signed
// PUT URL so the browser uploads the poster straight to object storage;
// the API never proxies file bytes.
func (h *UploadHandlers) SignPosterUpload(w http.ResponseWriter, r *http.Request) {
	var req SignUploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	if req.ContentType == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "contentType is required")
		return
	}
	if req.SizeBytes <= 0 {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "sizeBytes must be positive")
		return
	}

	signedURL, err := h.uploadService.GenerateSignedURL(r.Context(), upload.SignedURLRequest{
		ContentType: req.ContentType,
		SizeBytes:   req.SizeBytes,
	})
	if err != nil {
		switch {
		case errors.Is(err, upload.ErrUnsupportedType):
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeUnsupportedType)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeUnsupportedType,
				"Unsupported content type. Allowed types: image/jpeg, image/png, image/webp, image/gif")
		case errors.Is(err, upload.ErrFileTooLarge):
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeFileTooLarge)
			WriteError(w, ctx, http.StatusRequestEntityTooLarge, ErrCodeFileTooLarge,
				"File size exceeds maximum allowed")
		default:
			slog.ErrorContext(r.Context(), "failed to generate signed URL", "error", err)
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
			WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to generate signed URL")
		}
		return
	}

	if h.metrics != nil {
		h.metrics.IncUploadTickets()
	}
	writeJSON(w, r.Context(), http.StatusOK, signedURL)
}

// GetPoster handles GET /posters/{key...}. It redirects to wherever the
// poster is actually served from (CDN base URL, or a short-lived signed
// GET URL when no public base is configured) instead of proxying bytes.
func (h *UploadHandlers) GetPoster(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if key == "" || strings.Contains(key, "..") {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
		WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Poster not found")
		return
	}

	target, err := h.uploadService.ResolveURL(r.Context(), "posters/"+key)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to resolve poster URL", "error", err, "key", key)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to resolve poster URL")
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}
