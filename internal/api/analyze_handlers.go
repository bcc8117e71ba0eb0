package api

import (
	"encoding/json"
	"net/http"

	"log/slog"

	"github.com/bjzgcai/calendar/internal/middleware"
	"github.com/bjzgcai/calendar/internal/validate"
	"github.com/bjzgcai/calendar/internal/vision"
)

// AnalyzeHandlers serves the poster pre-fill endpoint.
type AnalyzeHandlers struct {
	vision  *vision.Client
	metrics *Metrics
}

// NewAnalyzeHandlers creates a new AnalyzeHandlers instance. metrics may
// be nil when metrics are disabled.
func NewAnalyzeHandlers(v *vision.Client, metrics *Metrics) *AnalyzeHandlers {
	return &AnalyzeHandlers{vision: v, metrics: metrics}
}

// AnalyzeImageRequest is the poster analysis payload.
type AnalyzeImageRequest struct {
	ImageURL string `json:"imageUrl"`
}

// AnalyzeImageResponse wraps the extraction so the caller can show the
// raw model output when field parsing degraded.
type AnalyzeImageResponse struct {
	Success     bool               `json:"success"`
	Data        *vision.Extraction `json:"data,omitempty"`
	RawResponse string             `json:"rawResponse,omitempty"`
}

// AnalyzeImage handles POST /analyze-image. The extraction is advisory:
// a model response that cannot be parsed into fields still succeeds with
// the raw text so the user can fill the form manually.
func (h *AnalyzeHandlers) AnalyzeImage(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeImageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	if _, err := validate.MediaURL(req.ImageURL); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "imageUrl must be a valid http(s) URL")
		return
	}

	extraction, raw, err := h.vision.AnalyzePoster(r.Context(), req.ImageURL)
	if err != nil {
		slog.ErrorContext(r.Context(), "poster analysis failed", "error", err)
		h.countAnalysis(AnalysisStatusFailure)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeAnalysisFailed)
		WriteError(w, ctx, http.StatusBadGateway, ErrCodeAnalysisFailed, "Image analysis service is unavailable")
		return
	}

	resp := AnalyzeImageResponse{Success: true, Data: extraction, RawResponse: raw}
	if extraction == nil {
		// Model answered but not with parseable JSON.
		slog.WarnContext(r.Context(), "poster analysis returned unparseable content")
		h.countAnalysis(AnalysisStatusDegraded)
	} else {
		h.countAnalysis(AnalysisStatusSuccess)
	}

	writeJSON(w, r.Context(), http.StatusOK, resp)
}

func (h *AnalyzeHandlers) countAnalysis(status string) {
	if h.metrics == nil {
		return
	}
	h.metrics.IncPosterAnalyses(status)
}
