package api

import (
	"net/http"
	"strconv"

	"github.com/bjzgcai/calendar/internal/holiday"
	"github.com/bjzgcai/calendar/internal/middleware"
)

// HolidayHandlers serves the Chinese statutory holiday dataset the
// calendar overlays on its grid.
type HolidayHandlers struct {
	dataset *holiday.Dataset
	checker *holiday.Checker
}

// NewHolidayHandlers creates a new HolidayHandlers instance.
func NewHolidayHandlers(dataset *holiday.Dataset, checker *holiday.Checker) *HolidayHandlers {
	return &HolidayHandlers{dataset: dataset, checker: checker}
}

// ListHolidays handles GET /holidays. Without a year parameter it
// returns every loaded year, sorted by date.
func (h *HolidayHandlers) ListHolidays(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("year")
	if raw == "" {
		var days []holiday.Day
		for _, year := range h.dataset.Years() {
			days = append(days, h.dataset.ForYear(year)...)
		}
		if days == nil {
			days = []holiday.Day{}
		}
		writeJSON(w, r.Context(), http.StatusOK, days)
		return
	}

	year, err := strconv.Atoi(raw)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "year must be an integer")
		return
	}
	if !h.dataset.HasYear(year) {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
		WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "No holiday data for that year")
		return
	}

	writeJSON(w, r.Context(), http.StatusOK, h.dataset.ForYear(year))
}

// HolidayStatus handles GET /holidays/status and reports whether the
// bundled dataset needs a refresh for the coming year.
func (h *HolidayHandlers) HolidayStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r.Context(), http.StatusOK, h.checker.CheckNow())
}
