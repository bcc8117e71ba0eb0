package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bjzgcai/calendar/internal/event"
	"github.com/bjzgcai/calendar/internal/middleware"
)

// assertErrorResponse is a test helper that verifies error response structure and codes.
func assertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, wantStatus int, wantCode string) {
	t.Helper()

	if w.Code != wantStatus {
		t.Errorf("expected status %d, got %d: %s", wantStatus, w.Code, w.Body.String())
	}

	var errResp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&errResp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}

	if errResp.Error.Code != wantCode {
		t.Errorf("expected error code %q, got %q", wantCode, errResp.Error.Code)
	}
}

func newTestEventHandlers() (*EventHandlers, *event.InMemoryRepository) {
	repo := event.NewInMemoryRepository()
	return NewEventHandlers(repo, nil), repo
}

func postJSON(t *testing.T, handler http.HandlerFunc, target string, body any, ctx context.Context) *httptest.ResponseRecorder {
	t.Helper()

	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal request body: %v", err)
	}
	r := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(payload))
	if ctx != nil {
		r = r.WithContext(ctx)
	}
	w := httptest.NewRecorder()
	handler(w, r)
	return w
}

func mustTime(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("bad time fixture %q: %v", value, err)
	}
	return ts
}

func TestCreateEvent_Success(t *testing.T) {
	h, _ := newTestEventHandlers()

	start := mustTime(t, "2026-03-10T09:00:00Z")
	end := mustTime(t, "2026-03-10T11:00:00Z")
	w := postJSON(t, h.CreateEvent, "/events", EventRequest{
		Title:     "春季学术讲座",
		Content:   "前沿报告",
		StartTime: &start,
		EndTime:   &end,
		Organizer: "学生俱乐部",
		EventType: "academic_research",
		Tags:      "#讲座# #学术#",
	}, nil)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var got event.Event
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.ID != 1 {
		t.Errorf("expected id 1, got %d", got.ID)
	}
	if got.OrganizationType != event.OrgTypeClub {
		t.Errorf("expected club organization type, got %q", got.OrganizationType)
	}
	if got.Tags != "#讲座# #学术#" {
		t.Errorf("unexpected normalized tags %q", got.Tags)
	}
	if got.RecurrenceRule != event.RecurrenceNone {
		t.Errorf("expected recurrence none, got %q", got.RecurrenceRule)
	}
	if got.CreatorID != nil {
		t.Errorf("anonymous create should carry no creator, got %v", *got.CreatorID)
	}
}

func TestCreateEvent_MultiOrganizerTypeFromFirstToken(t *testing.T) {
	h, _ := newTestEventHandlers()

	start := mustTime(t, "2026-03-10T09:00:00Z")
	end := mustTime(t, "2026-03-10T11:00:00Z")
	w := postJSON(t, h.CreateEvent, "/events", EventRequest{
		Title:     "联合学术沙龙",
		StartTime: &start,
		EndTime:   &end,
		Organizer: "科学研究中心,学生俱乐部",
		EventType: "academic_research",
	}, nil)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var got event.Event
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	// Only the first organizer token buckets the event.
	if got.OrganizationType != event.OrgTypeCenter {
		t.Errorf("expected center organization type, got %q", got.OrganizationType)
	}
}

func TestCreateEvent_DateHourEncoding(t *testing.T) {
	h, _ := newTestEventHandlers()

	w := postJSON(t, h.CreateEvent, "/events", EventRequest{
		Title:     "教学研讨",
		Date:      "2026-03-10",
		StartHour: "09:00",
		EndHour:   "11:30",
	}, nil)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var got event.Event
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if want := mustTime(t, "2026-03-10T09:00:00Z"); !got.StartTime.Equal(want) {
		t.Errorf("expected start %v, got %v", want, got.StartTime)
	}
	if want := mustTime(t, "2026-03-10T11:30:00Z"); !got.EndTime.Equal(want) {
		t.Errorf("expected end %v, got %v", want, got.EndTime)
	}
}

func TestCreateEvent_CreatorFromSession(t *testing.T) {
	h, _ := newTestEventHandlers()

	start := mustTime(t, "2026-03-10T09:00:00Z")
	end := mustTime(t, "2026-03-10T10:00:00Z")
	ctx := middleware.SetUserID(context.Background(), 42)
	w := postJSON(t, h.CreateEvent, "/events", EventRequest{
		Title:     "组会",
		StartTime: &start,
		EndTime:   &end,
	}, ctx)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var got event.Event
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.CreatorID == nil || *got.CreatorID != 42 {
		t.Errorf("expected creator 42, got %v", got.CreatorID)
	}
}

func TestCreateEvent_ValidationErrors(t *testing.T) {
	start := mustTime(t, "2026-03-10T09:00:00Z")
	end := mustTime(t, "2026-03-10T11:00:00Z")
	earlier := mustTime(t, "2026-03-10T08:00:00Z")
	until := mustTime(t, "2026-04-01T00:00:00Z")

	tests := []struct {
		name       string
		req        EventRequest
		wantStatus int
		wantCode   string
	}{
		{
			name:       "missing title",
			req:        EventRequest{StartTime: &start, EndTime: &end},
			wantStatus: http.StatusBadRequest,
			wantCode:   ErrCodeValidation,
		},
		{
			name:       "missing time information",
			req:        EventRequest{Title: "讲座"},
			wantStatus: http.StatusBadRequest,
			wantCode:   ErrCodeValidation,
		},
		{
			name:       "date without hours",
			req:        EventRequest{Title: "讲座", Date: "2026-03-10"},
			wantStatus: http.StatusBadRequest,
			wantCode:   ErrCodeValidation,
		},
		{
			name:       "end before start",
			req:        EventRequest{Title: "讲座", StartTime: &start, EndTime: &earlier},
			wantStatus: http.StatusBadRequest,
			wantCode:   ErrCodeInvalidTimeRange,
		},
		{
			name: "tag too long",
			req: EventRequest{
				Title: "讲座", StartTime: &start, EndTime: &end,
				Tags: "#" + strings.Repeat("长", 21) + "#",
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   ErrCodeTagTooLong,
		},
		{
			name: "unknown event type",
			req: EventRequest{
				Title: "讲座", StartTime: &start, EndTime: &end,
				EventType: "academic_research,party_time",
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   ErrCodeValidation,
		},
		{
			name: "malformed approximate month",
			req: EventRequest{
				Title: "招聘季", DatePrecision: "month", ApproximateMonth: "202604",
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   ErrCodeInvalidMonth,
		},
		{
			name: "unknown date precision",
			req: EventRequest{
				Title: "讲座", DatePrecision: "week", StartTime: &start, EndTime: &end,
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   ErrCodeValidation,
		},
		{
			name: "recurrence without end date",
			req: EventRequest{
				Title: "周会", StartTime: &start, EndTime: &end,
				RecurrenceRule: "weekly",
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   ErrCodeValidation,
		},
		{
			name: "invalid link",
			req: EventRequest{
				Title: "讲座", StartTime: &start, EndTime: &end,
				Link: "javascript:alert(1)",
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   ErrCodeValidation,
		},
		{
			name: "recurrence end date alone is fine",
			req: EventRequest{
				Title: "周会", StartTime: &start, EndTime: &end,
				RecurrenceEndDate: &until,
			},
			wantStatus: http.StatusCreated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := newTestEventHandlers()
			w := postJSON(t, h.CreateEvent, "/events", tt.req, nil)
			if tt.wantCode == "" {
				if w.Code != tt.wantStatus {
					t.Fatalf("expected %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
				}
				return
			}
			assertErrorResponse(t, w, tt.wantStatus, tt.wantCode)
		})
	}
}

func TestCreateEvent_InvalidJSON(t *testing.T) {
	h, _ := newTestEventHandlers()

	r := httptest.NewRequest(http.MethodPost, "/events", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	h.CreateEvent(w, r)

	assertErrorResponse(t, w, http.StatusBadRequest, ErrCodeBadRequest)
}

func TestCreateEvent_MonthPrecision(t *testing.T) {
	h, _ := newTestEventHandlers()

	w := postJSON(t, h.CreateEvent, "/events", EventRequest{
		Title:            "秋季招聘季",
		DatePrecision:    "month",
		ApproximateMonth: "2026-04",
	}, nil)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var got event.Event
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.DatePrecision != event.PrecisionMonth {
		t.Errorf("expected month precision, got %q", got.DatePrecision)
	}
	if got.StartTime.Day() != 15 || got.StartTime.Month() != time.April {
		t.Errorf("expected mid-April placeholder, got %v", got.StartTime)
	}
}

func TestCreateEvent_RecurringWeekly(t *testing.T) {
	h, _ := newTestEventHandlers()

	start := mustTime(t, "2026-03-02T09:00:00Z")
	end := mustTime(t, "2026-03-02T10:00:00Z")
	until := mustTime(t, "2026-03-23T00:00:00Z")
	w := postJSON(t, h.CreateEvent, "/events", EventRequest{
		Title:             "周例会",
		StartTime:         &start,
		EndTime:           &end,
		RecurrenceRule:    "weekly",
		RecurrenceEndDate: &until,
	}, nil)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var got CreateSeriesResponse
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.Count != 3 || len(got.Events) != 3 {
		t.Fatalf("expected 3 instances, got count=%d len=%d", got.Count, len(got.Events))
	}
	wantStarts := []string{
		"2026-03-02T09:00:00Z",
		"2026-03-09T09:00:00Z",
		"2026-03-16T09:00:00Z",
	}
	for i, e := range got.Events {
		if e.ID != int64(i+1) {
			t.Errorf("instance %d: expected id %d, got %d", i, i+1, e.ID)
		}
		if want := mustTime(t, wantStarts[i]); !e.StartTime.Equal(want) {
			t.Errorf("instance %d: expected start %v, got %v", i, want, e.StartTime)
		}
		// Siblings are independent rows; each carries the series fields.
		if e.RecurrenceRule != event.RecurrenceWeekly {
			t.Errorf("instance %d: expected weekly rule, got %q", i, e.RecurrenceRule)
		}
	}
}

func seedEvent(t *testing.T, repo event.Repository, e *event.Event) *event.Event {
	t.Helper()
	if e.DatePrecision == "" {
		e.DatePrecision = event.PrecisionExact
	}
	if e.RecurrenceRule == "" {
		e.RecurrenceRule = event.RecurrenceNone
	}
	e.OrganizationType = event.OrganizationTypeFor(e.Organizer)
	stored, err := repo.Create(context.Background(), e)
	if err != nil {
		t.Fatalf("failed to seed event: %v", err)
	}
	return stored
}

func TestListEvents_Projection(t *testing.T) {
	h, repo := newTestEventHandlers()

	seedEvent(t, repo, &event.Event{
		Title:     "讲座",
		StartTime: mustTime(t, "2026-03-10T09:00:00Z"),
		EndTime:   mustTime(t, "2026-03-10T11:00:00Z"),
		EventType: "academic_research,teaching_training",
		Organizer: "科学研究中心",
	})

	r := httptest.NewRequest(http.MethodGet, "/events", nil)
	w := httptest.NewRecorder()
	h.ListEvents(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var got []event.CalendarEvent
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 event, got %d", len(got))
	}
	ce := got[0]
	if ce.ID != "1" {
		t.Errorf("expected string id \"1\", got %q", ce.ID)
	}
	// Color comes from the first event-type token.
	if ce.BackgroundColor != "#3b82f6" {
		t.Errorf("expected academic-research color, got %q", ce.BackgroundColor)
	}
	if ce.ExtendedProps.OrganizationType != event.OrgTypeCenter {
		t.Errorf("expected center organization type, got %q", ce.ExtendedProps.OrganizationType)
	}
	if ce.AllDay {
		t.Error("timed event should not project as all-day")
	}
}

func TestListEvents_ViewFiltersMonthPrecision(t *testing.T) {
	h, repo := newTestEventHandlers()

	seedEvent(t, repo, &event.Event{
		Title:     "确定日期",
		StartTime: mustTime(t, "2026-04-02T09:00:00Z"),
		EndTime:   mustTime(t, "2026-04-02T10:00:00Z"),
	})
	month := &event.Event{
		Title:            "大约四月",
		DatePrecision:    event.PrecisionMonth,
		ApproximateMonth: "2026-04",
	}
	if err := month.ApplyPrecision(); err != nil {
		t.Fatalf("failed to resolve month placeholder: %v", err)
	}
	seedEvent(t, repo, month)

	tests := []struct {
		view string
		want int
	}{
		{view: "week", want: 1},
		{view: "day", want: 1},
		{view: "month", want: 2},
		{view: "year", want: 2},
		{view: "", want: 2},
	}
	for _, tt := range tests {
		t.Run("view="+tt.view, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/events?view="+tt.view, nil)
			w := httptest.NewRecorder()
			h.ListEvents(w, r)

			var got []event.CalendarEvent
			if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("expected %d events, got %d", tt.want, len(got))
			}
		})
	}
}

func TestListEvents_MyEvents(t *testing.T) {
	h, repo := newTestEventHandlers()

	mine := int64(7)
	other := int64(8)
	seedEvent(t, repo, &event.Event{
		Title:     "我的活动",
		StartTime: mustTime(t, "2026-03-10T09:00:00Z"),
		EndTime:   mustTime(t, "2026-03-10T10:00:00Z"),
		CreatorID: &mine,
	})
	seedEvent(t, repo, &event.Event{
		Title:     "别人的活动",
		StartTime: mustTime(t, "2026-03-11T09:00:00Z"),
		EndTime:   mustTime(t, "2026-03-11T10:00:00Z"),
		CreatorID: &other,
	})

	r := httptest.NewRequest(http.MethodGet, "/events?myEvents=true", nil)
	r = r.WithContext(middleware.SetUserID(r.Context(), mine))
	w := httptest.NewRecorder()
	h.ListEvents(w, r)

	var got []event.CalendarEvent
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(got) != 1 || got[0].Title != "我的活动" {
		t.Fatalf("expected only own event, got %+v", got)
	}

	// Anonymous myEvents degrades to the full listing.
	r = httptest.NewRequest(http.MethodGet, "/events?myEvents=true", nil)
	w = httptest.NewRecorder()
	h.ListEvents(w, r)
	got = nil
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected anonymous listing of 2 events, got %d", len(got))
	}
}

func TestListEvents_Filters(t *testing.T) {
	h, repo := newTestEventHandlers()

	seedEvent(t, repo, &event.Event{
		Title:     "学术报告",
		StartTime: mustTime(t, "2026-03-10T09:00:00Z"),
		EndTime:   mustTime(t, "2026-03-10T10:00:00Z"),
		EventType: "academic_research",
		Tags:      "#讲座# #学术#",
	})
	seedEvent(t, repo, &event.Event{
		Title:     "俱乐部之夜",
		StartTime: mustTime(t, "2026-03-12T18:00:00Z"),
		EndTime:   mustTime(t, "2026-03-12T20:00:00Z"),
		EventType: "student_activities",
		Tags:      "#社交#",
	})

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{
			name:  "event type whitelist",
			query: "eventType=academic_research",
			want:  []string{"学术报告"},
		},
		{
			name:  "event type OR semantics",
			query: "eventType=academic_research,student_activities",
			want:  []string{"学术报告", "俱乐部之夜"},
		},
		{
			name:  "tags AND semantics",
			query: "tags=" + "%23讲座%23,%23学术%23",
			want:  []string{"学术报告"},
		},
		{
			name:  "tags AND misses partial match",
			query: "tags=" + "%23讲座%23,%23社交%23",
			want:  []string{},
		},
		{
			name:  "date window",
			query: "startDate=2026-03-11T00:00:00Z&endDate=2026-03-13T00:00:00Z",
			want:  []string{"俱乐部之夜"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/events?"+tt.query, nil)
			w := httptest.NewRecorder()
			h.ListEvents(w, r)

			if w.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
			}
			var got []event.CalendarEvent
			if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			titles := make([]string, len(got))
			for i, e := range got {
				titles[i] = e.Title
			}
			if len(titles) != len(tt.want) {
				t.Fatalf("expected titles %v, got %v", tt.want, titles)
			}
			for i := range tt.want {
				if titles[i] != tt.want[i] {
					t.Errorf("expected titles %v, got %v", tt.want, titles)
					break
				}
			}
		})
	}
}

func TestListEvents_BadDateParameter(t *testing.T) {
	h, _ := newTestEventHandlers()

	r := httptest.NewRequest(http.MethodGet, "/events?startDate=tomorrow", nil)
	w := httptest.NewRecorder()
	h.ListEvents(w, r)

	assertErrorResponse(t, w, http.StatusBadRequest, ErrCodeValidation)
}

func TestGetEvent(t *testing.T) {
	h, repo := newTestEventHandlers()
	stored := seedEvent(t, repo, &event.Event{
		Title:     "讲座",
		StartTime: mustTime(t, "2026-03-10T09:00:00Z"),
		EndTime:   mustTime(t, "2026-03-10T10:00:00Z"),
	})

	t.Run("found", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/events/1", nil)
		r.SetPathValue("id", "1")
		w := httptest.NewRecorder()
		h.GetEvent(w, r)

		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
		}
		var got event.Event
		if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if got.ID != stored.ID || got.Title != "讲座" {
			t.Errorf("unexpected event %+v", got)
		}
	})

	t.Run("not found", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/events/99", nil)
		r.SetPathValue("id", "99")
		w := httptest.NewRecorder()
		h.GetEvent(w, r)
		assertErrorResponse(t, w, http.StatusNotFound, ErrCodeNotFound)
	})

	t.Run("bad id", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/events/abc", nil)
		r.SetPathValue("id", "abc")
		w := httptest.NewRecorder()
		h.GetEvent(w, r)
		assertErrorResponse(t, w, http.StatusBadRequest, ErrCodeBadRequest)
	})
}

func TestUpdateEvent_FullReplace(t *testing.T) {
	h, repo := newTestEventHandlers()
	creator := int64(5)
	seedEvent(t, repo, &event.Event{
		Title:     "旧标题",
		Location:  "旧地点",
		StartTime: mustTime(t, "2026-03-10T09:00:00Z"),
		EndTime:   mustTime(t, "2026-03-10T10:00:00Z"),
		Organizer: "学生俱乐部",
		CreatorID: &creator,
	})

	start := mustTime(t, "2026-03-11T14:00:00Z")
	end := mustTime(t, "2026-03-11T16:00:00Z")
	payload, _ := json.Marshal(EventRequest{
		Title:     "新标题",
		StartTime: &start,
		EndTime:   &end,
		Organizer: "科学研究中心",
	})
	r := httptest.NewRequest(http.MethodPut, "/events/1", bytes.NewReader(payload))
	r.SetPathValue("id", "1")
	w := httptest.NewRecorder()
	h.UpdateEvent(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var got event.Event
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.Title != "新标题" {
		t.Errorf("expected replaced title, got %q", got.Title)
	}
	// Absent fields are cleared, not merged.
	if got.Location != "" {
		t.Errorf("expected location cleared, got %q", got.Location)
	}
	// Organization type follows the new organizer.
	if got.OrganizationType != event.OrgTypeCenter {
		t.Errorf("expected center organization type, got %q", got.OrganizationType)
	}
	// Creator attribution survives the replace.
	if got.CreatorID == nil || *got.CreatorID != creator {
		t.Errorf("expected creator %d preserved, got %v", creator, got.CreatorID)
	}
}

func TestUpdateEvent_RequiresTimeInformation(t *testing.T) {
	h, repo := newTestEventHandlers()
	seedEvent(t, repo, &event.Event{
		Title:     "旧标题",
		StartTime: mustTime(t, "2026-03-10T09:00:00Z"),
		EndTime:   mustTime(t, "2026-03-10T10:00:00Z"),
	})

	payload, _ := json.Marshal(EventRequest{Title: "新标题"})
	r := httptest.NewRequest(http.MethodPut, "/events/1", bytes.NewReader(payload))
	r.SetPathValue("id", "1")
	w := httptest.NewRecorder()
	h.UpdateEvent(w, r)

	assertErrorResponse(t, w, http.StatusBadRequest, ErrCodeValidation)
}

func TestUpdateEvent_NotFound(t *testing.T) {
	h, _ := newTestEventHandlers()

	start := mustTime(t, "2026-03-11T14:00:00Z")
	end := mustTime(t, "2026-03-11T16:00:00Z")
	payload, _ := json.Marshal(EventRequest{Title: "标题", StartTime: &start, EndTime: &end})
	r := httptest.NewRequest(http.MethodPut, "/events/12", bytes.NewReader(payload))
	r.SetPathValue("id", "12")
	w := httptest.NewRecorder()
	h.UpdateEvent(w, r)

	assertErrorResponse(t, w, http.StatusNotFound, ErrCodeNotFound)
}

func TestDeleteEvent(t *testing.T) {
	h, repo := newTestEventHandlers()
	seedEvent(t, repo, &event.Event{
		Title:     "讲座",
		StartTime: mustTime(t, "2026-03-10T09:00:00Z"),
		EndTime:   mustTime(t, "2026-03-10T10:00:00Z"),
	})

	r := httptest.NewRequest(http.MethodDelete, "/events/1", nil)
	r.SetPathValue("id", "1")
	w := httptest.NewRecorder()
	h.DeleteEvent(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var got map[string]bool
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !got["success"] {
		t.Errorf("expected success true, got %v", got)
	}

	// Second delete reports not found.
	r = httptest.NewRequest(http.MethodDelete, "/events/1", nil)
	r.SetPathValue("id", "1")
	w = httptest.NewRecorder()
	h.DeleteEvent(w, r)
	assertErrorResponse(t, w, http.StatusNotFound, ErrCodeNotFound)
}

func TestListOrganizersAndTags(t *testing.T) {
	h, repo := newTestEventHandlers()

	t.Run("empty arrays not null", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/events/organizers", nil)
		w := httptest.NewRecorder()
		h.ListOrganizers(w, r)
		if body := strings.TrimSpace(w.Body.String()); body != "[]" {
			t.Errorf("expected [], got %s", body)
		}

		r = httptest.NewRequest(http.MethodGet, "/events/tags", nil)
		w = httptest.NewRecorder()
		h.ListTags(w, r)
		if body := strings.TrimSpace(w.Body.String()); body != "[]" {
			t.Errorf("expected [], got %s", body)
		}
	})

	seedEvent(t, repo, &event.Event{
		Title:     "活动一",
		StartTime: mustTime(t, "2026-03-10T09:00:00Z"),
		EndTime:   mustTime(t, "2026-03-10T10:00:00Z"),
		Organizer: "科学研究中心,学生俱乐部",
		Tags:      "#讲座# #学术#",
	})
	seedEvent(t, repo, &event.Event{
		Title:     "活动二",
		StartTime: mustTime(t, "2026-03-11T09:00:00Z"),
		EndTime:   mustTime(t, "2026-03-11T10:00:00Z"),
		Organizer: "学生俱乐部",
		Tags:      "#讲座#",
	})

	t.Run("distinct organizers", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/events/organizers", nil)
		w := httptest.NewRecorder()
		h.ListOrganizers(w, r)

		var got []string
		if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if len(got) != 2 {
			t.Errorf("expected 2 distinct organizers, got %v", got)
		}
	})

	t.Run("tags with counts", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/events/tags", nil)
		w := httptest.NewRecorder()
		h.ListTags(w, r)

		var got []event.TagCount
		if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("expected 2 tags, got %v", got)
		}
		// Highest usage first.
		if got[0].Name != "#讲座#" || got[0].Count != 2 {
			t.Errorf("expected #讲座# with count 2 first, got %+v", got[0])
		}
	})
}

func TestExportEvents(t *testing.T) {
	h, repo := newTestEventHandlers()

	seedEvent(t, repo, &event.Event{
		Title:     "学术报告",
		StartTime: mustTime(t, "2026-03-10T09:00:00Z"),
		EndTime:   mustTime(t, "2026-03-10T11:00:00Z"),
	})
	month := &event.Event{
		Title:            "大约四月",
		DatePrecision:    event.PrecisionMonth,
		ApproximateMonth: "2026-04",
	}
	if err := month.ApplyPrecision(); err != nil {
		t.Fatalf("failed to resolve month placeholder: %v", err)
	}
	seedEvent(t, repo, month)

	r := httptest.NewRequest(http.MethodGet, "/events/export", nil)
	w := httptest.NewRecorder()
	h.ExportEvents(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
		t.Errorf("expected text/calendar content type, got %q", ct)
	}
	body := w.Body.String()
	if !strings.Contains(body, "BEGIN:VCALENDAR") || !strings.Contains(body, "SUMMARY:学术报告") {
		t.Errorf("unexpected export body:\n%s", body)
	}
	// Month-precision placeholders stay out of the feed.
	if strings.Contains(body, "大约四月") {
		t.Errorf("month-precision event leaked into export:\n%s", body)
	}
}
