// Package api provides HTTP handlers for the campus event calendar API.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"log/slog"

	"github.com/bjzgcai/calendar/internal/event"
	"github.com/bjzgcai/calendar/internal/ical"
	"github.com/bjzgcai/calendar/internal/middleware"
	"github.com/bjzgcai/calendar/internal/validate"
)

// EventHandlers holds dependencies for event HTTP handlers.
type EventHandlers struct {
	repo    event.Repository
	metrics *Metrics
}

// NewEventHandlers creates a new EventHandlers instance. metrics may be
// nil when metrics are disabled.
func NewEventHandlers(repo event.Repository, metrics *Metrics) *EventHandlers {
	return &EventHandlers{repo: repo, metrics: metrics}
}

// EventRequest is the create/update payload. Exact-precision events may
// carry either startTime/endTime instants or the date+startHour/endHour
// encoding, which is converted before the core sees it.
type EventRequest struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	ImageURL string `json:"imageUrl"`
	Link     string `json:"link"`
	Location string `json:"location"`

	StartTime *time.Time `json:"startTime,omitempty"`
	EndTime   *time.Time `json:"endTime,omitempty"`

	// Alternative encoding: date (YYYY-MM-DD) plus startHour/endHour
	// (HH:MM), interpreted as UTC wall clock.
	Date      string `json:"date,omitempty"`
	StartHour string `json:"startHour,omitempty"`
	EndHour   string `json:"endHour,omitempty"`

	Organizer string `json:"organizer"`
	EventType string `json:"eventType"`
	Tags      string `json:"tags"`

	RecurrenceRule    string     `json:"recurrenceRule"`
	RecurrenceEndDate *time.Time `json:"recurrenceEndDate,omitempty"`

	DatePrecision    string `json:"datePrecision"`
	ApproximateMonth string `json:"approximateMonth,omitempty"`

	RequiredAttendees []event.Attendee `json:"requiredAttendees,omitempty"`
}

// CreateSeriesResponse is returned when a recurring create fans out into
// multiple rows.
type CreateSeriesResponse struct {
	Events []*event.Event `json:"events"`
	Count  int            `json:"count"`
}

// requestError pairs an error code with a field-specific message.
type requestError struct {
	code    string
	message string
}

// toEvent converts the request into a core event, resolving the
// alternative time encoding and normalizing multi-valued fields.
// creatorID may be nil for anonymous creates.
func (req *EventRequest) toEvent(creatorID *int64) (*event.Event, *requestError) {
	title, err := validate.EventTitle(req.Title)
	if err != nil {
		return nil, &requestError{ErrCodeValidation, err.Error()}
	}

	content, err := validate.Description(req.Content)
	if err != nil {
		return nil, &requestError{ErrCodeValidation, err.Error()}
	}

	if req.Link != "" {
		if _, err := validate.URL(req.Link, validate.PublicWebURLConstraints); err != nil {
			return nil, &requestError{ErrCodeValidation, "link must be a valid http(s) URL"}
		}
	}
	if req.ImageURL != "" {
		if _, err := validate.MediaURL(req.ImageURL); err != nil {
			return nil, &requestError{ErrCodeValidation, "imageUrl must be a valid http(s) URL"}
		}
	}

	tags, err := event.NormalizeTags(req.Tags)
	if err != nil {
		if errors.Is(err, event.ErrTagTooLong) {
			return nil, &requestError{ErrCodeTagTooLong,
				fmt.Sprintf("each tag must be at most %d characters", event.MaxTagLength)}
		}
		return nil, &requestError{ErrCodeValidation, "tags are malformed"}
	}

	rule := event.RecurrenceRule(req.RecurrenceRule)
	if req.RecurrenceRule == "" || !event.ValidRecurrenceRule(rule) {
		// Unknown rules degrade to none rather than failing.
		rule = event.RecurrenceNone
	}
	if rule != event.RecurrenceNone && req.RecurrenceEndDate == nil {
		return nil, &requestError{ErrCodeValidation, "recurrenceEndDate is required for recurring events"}
	}

	for _, token := range event.SplitList(req.EventType) {
		if !event.ValidEventType(event.EventType(token)) {
			return nil, &requestError{ErrCodeValidation,
				fmt.Sprintf("unknown event type %q", token)}
		}
	}

	e := &event.Event{
		Title:             title,
		Content:           content,
		ImageURL:          strings.TrimSpace(req.ImageURL),
		Link:              strings.TrimSpace(req.Link),
		Location:          strings.TrimSpace(req.Location),
		Organizer:         strings.TrimSpace(req.Organizer),
		EventType:         strings.TrimSpace(req.EventType),
		Tags:              tags,
		RecurrenceRule:    rule,
		RecurrenceEndDate: req.RecurrenceEndDate,
		RequiredAttendees: event.SerializeAttendees(req.RequiredAttendees),
		CreatorID:         creatorID,
	}
	e.OrganizationType = event.OrganizationTypeFor(e.Organizer)

	switch req.DatePrecision {
	case "", string(event.PrecisionExact):
		e.DatePrecision = event.PrecisionExact

		start, end, reqErr := req.resolveTimes()
		if reqErr != nil {
			return nil, reqErr
		}
		e.StartTime = start
		e.EndTime = end

		if e.EndTime.Before(e.StartTime) {
			return nil, &requestError{ErrCodeInvalidTimeRange, "end time must not be before start time"}
		}
	case string(event.PrecisionMonth):
		e.DatePrecision = event.PrecisionMonth
		e.ApproximateMonth = req.ApproximateMonth
		if err := e.ApplyPrecision(); err != nil {
			return nil, &requestError{ErrCodeInvalidMonth, "approximateMonth must be in YYYY-MM format"}
		}
	default:
		return nil, &requestError{ErrCodeValidation, "datePrecision must be exact or month"}
	}

	if err := e.Validate(); err != nil {
		return nil, &requestError{ErrCodeValidation, err.Error()}
	}
	return e, nil
}

// resolveTimes yields the instant range for an exact-precision request,
// converting the date+hour encoding when instants are absent.
func (req *EventRequest) resolveTimes() (time.Time, time.Time, *requestError) {
	if req.StartTime != nil && req.EndTime != nil {
		return *req.StartTime, *req.EndTime, nil
	}

	if req.Date != "" && req.StartHour != "" && req.EndHour != "" {
		start, err := time.Parse("2006-01-02T15:04", req.Date+"T"+req.StartHour)
		if err != nil {
			return time.Time{}, time.Time{}, &requestError{ErrCodeValidation, "date and startHour are malformed"}
		}
		end, err := time.Parse("2006-01-02T15:04", req.Date+"T"+req.EndHour)
		if err != nil {
			return time.Time{}, time.Time{}, &requestError{ErrCodeValidation, "date and endHour are malformed"}
		}
		return start, end, nil
	}

	return time.Time{}, time.Time{}, &requestError{ErrCodeValidation, "Missing time information"}
}

// CreateEvent handles POST /events. A recurrence rule fans the seed out
// into independent sibling rows, persisted in start-time order; a
// persist failure mid-series leaves the already-created prefix in place.
func (h *EventHandlers) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req EventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	var creatorID *int64
	if userID, ok := middleware.GetUserID(r.Context()); ok {
		creatorID = &userID
	}

	seed, reqErr := req.toEvent(creatorID)
	if reqErr != nil {
		ctx := middleware.SetErrorCode(r.Context(), reqErr.code)
		WriteError(w, ctx, StatusCodeMapping(reqErr.code), reqErr.code, reqErr.message)
		return
	}

	if seed.RecurrenceRule == event.RecurrenceNone {
		stored, err := h.repo.Create(r.Context(), seed)
		if err != nil {
			slog.ErrorContext(r.Context(), "failed to create event", "error", err)
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
			WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to create event")
			return
		}
		h.countCreated(string(seed.RecurrenceRule), 1)
		writeJSON(w, r.Context(), http.StatusCreated, stored)
		return
	}

	occurrences := event.Expand(seed.StartTime, seed.EndTime,
		seed.RecurrenceRule, *seed.RecurrenceEndDate)

	created := make([]*event.Event, 0, len(occurrences))
	for _, occ := range occurrences {
		instance := *seed
		instance.StartTime = occ.Start
		instance.EndTime = occ.End

		stored, err := h.repo.Create(r.Context(), &instance)
		if err != nil {
			// No rollback of the already-persisted prefix.
			slog.ErrorContext(r.Context(), "failed to persist recurrence instance",
				"error", err,
				"rule", seed.RecurrenceRule,
				"created", len(created),
				"total", len(occurrences),
			)
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
			WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to create event")
			return
		}
		created = append(created, stored)
	}

	h.countCreated(string(seed.RecurrenceRule), len(created))
	writeJSON(w, r.Context(), http.StatusCreated, CreateSeriesResponse{
		Events: created,
		Count:  len(created),
	})
}

// ListEvents handles GET /events and returns the calendar projection of
// matching events. The optional view parameter suppresses
// month-precision events from week and day granularities.
func (h *EventHandlers) ListEvents(w http.ResponseWriter, r *http.Request) {
	f, p, reqErr := filterFromQuery(r)
	if reqErr != nil {
		ctx := middleware.SetErrorCode(r.Context(), reqErr.code)
		WriteError(w, ctx, StatusCodeMapping(reqErr.code), reqErr.code, reqErr.message)
		return
	}

	// myEvents narrows to the session's creator id; anonymous callers
	// get the unfiltered listing.
	if r.URL.Query().Get("myEvents") == "true" {
		if userID, ok := middleware.GetUserID(r.Context()); ok {
			f.Creator = &event.CreatorFilter{ID: &userID}
		}
	}

	view := event.ViewGranularity(r.URL.Query().Get("view"))

	events, err := h.repo.List(r.Context(), f, p)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list events", "error", err)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to fetch events")
		return
	}

	projected := make([]event.CalendarEvent, 0, len(events))
	for _, e := range events {
		if view != "" && !e.VisibleIn(view) {
			continue
		}
		ce, err := event.Project(e)
		if err != nil {
			slog.ErrorContext(r.Context(), "failed to project event", "error", err, "event_id", e.ID)
			continue
		}
		projected = append(projected, ce)
	}

	writeJSON(w, r.Context(), http.StatusOK, projected)
}

// filterFromQuery builds the repository filter from list/export query
// parameters.
func filterFromQuery(r *http.Request) (event.Filter, event.Pagination, *requestError) {
	q := r.URL.Query()

	var f event.Filter
	if raw := q.Get("startDate"); raw != "" {
		t, err := parseInstant(raw)
		if err != nil {
			return f, event.Pagination{}, &requestError{ErrCodeValidation, "startDate must be an RFC 3339 instant or YYYY-MM-DD date"}
		}
		f.StartDate = &t
	}
	if raw := q.Get("endDate"); raw != "" {
		t, err := parseInstant(raw)
		if err != nil {
			return f, event.Pagination{}, &requestError{ErrCodeValidation, "endDate must be an RFC 3339 instant or YYYY-MM-DD date"}
		}
		f.EndDate = &t
	}

	f.EventTypes = q.Get("eventType")
	f.Organizers = q.Get("organizer")
	f.Tags = q.Get("tags")

	var p event.Pagination
	if raw := q.Get("skip"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			p.Skip = n
		}
	}
	if raw := q.Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			p.Limit = n
		}
	}

	return f, p, nil
}

// parseInstant accepts an RFC 3339 instant or a bare YYYY-MM-DD date.
func parseInstant(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}

// eventID extracts the {id} path value.
func eventID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// GetEvent handles GET /events/{id} and returns the raw stored event.
func (h *EventHandlers) GetEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := eventID(r)
	if !ok {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Event ID must be a positive integer")
		return
	}

	e, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, event.ErrEventNotFound) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Event not found")
			return
		}
		slog.ErrorContext(r.Context(), "failed to get event", "error", err, "event_id", id)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to fetch event")
		return
	}

	writeJSON(w, r.Context(), http.StatusOK, e)
}

// UpdateEvent handles PUT /events/{id} with full-field replace
// semantics: the stored row takes every mutable field from the request.
// Creator attribution is kept from the stored row; updatedAt is bumped
// by the repository.
func (h *EventHandlers) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := eventID(r)
	if !ok {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Event ID must be a positive integer")
		return
	}

	var req EventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	existing, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, event.ErrEventNotFound) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Event not found")
			return
		}
		slog.ErrorContext(r.Context(), "failed to get event", "error", err, "event_id", id)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to fetch event")
		return
	}

	replacement, reqErr := req.toEvent(existing.CreatorID)
	if reqErr != nil {
		ctx := middleware.SetErrorCode(r.Context(), reqErr.code)
		WriteError(w, ctx, StatusCodeMapping(reqErr.code), reqErr.code, reqErr.message)
		return
	}

	stored, err := h.repo.Update(r.Context(), id, replacement)
	if err != nil {
		if errors.Is(err, event.ErrEventNotFound) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Event not found")
			return
		}
		slog.ErrorContext(r.Context(), "failed to update event", "error", err, "event_id", id)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to update event")
		return
	}

	writeJSON(w, r.Context(), http.StatusOK, stored)
}

// DeleteEvent handles DELETE /events/{id}. Deleting one recurrence
// sibling never cascades to the rest of its series.
func (h *EventHandlers) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := eventID(r)
	if !ok {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Event ID must be a positive integer")
		return
	}

	found, err := h.repo.Delete(r.Context(), id)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to delete event", "error", err, "event_id", id)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to delete event")
		return
	}
	if !found {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
		WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Event not found")
		return
	}

	writeJSON(w, r.Context(), http.StatusOK, map[string]bool{"success": true})
}

// ListOrganizers handles GET /events/organizers.
func (h *EventHandlers) ListOrganizers(w http.ResponseWriter, r *http.Request) {
	organizers, err := h.repo.DistinctOrganizers(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list organizers", "error", err)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to fetch organizers")
		return
	}
	if organizers == nil {
		organizers = []string{}
	}
	writeJSON(w, r.Context(), http.StatusOK, organizers)
}

// ListTags handles GET /events/tags, tags with usage counts descending.
func (h *EventHandlers) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.repo.TagsWithCounts(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list tags", "error", err)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to fetch tags")
		return
	}
	if tags == nil {
		tags = []event.TagCount{}
	}
	writeJSON(w, r.Context(), http.StatusOK, tags)
}

// ExportEvents handles GET /events/export and serves an iCalendar feed
// of exact-precision events, honoring the same filter parameters as
// ListEvents minus the view and pagination controls.
func (h *EventHandlers) ExportEvents(w http.ResponseWriter, r *http.Request) {
	f, _, reqErr := filterFromQuery(r)
	if reqErr != nil {
		ctx := middleware.SetErrorCode(r.Context(), reqErr.code)
		WriteError(w, ctx, StatusCodeMapping(reqErr.code), reqErr.code, reqErr.message)
		return
	}

	events, err := h.repo.List(r.Context(), f, event.Pagination{Limit: event.MaxOccurrences})
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list events for export", "error", err)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to export events")
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="calendar.ics"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(ical.Export(events))); err != nil {
		slog.ErrorContext(r.Context(), "failed to write export response", "error", err)
	}
}

func (h *EventHandlers) countCreated(rule string, n int) {
	if h.metrics == nil {
		return
	}
	h.metrics.IncEventsCreated(rule, n)
}
