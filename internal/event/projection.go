package event

import (
	"strconv"
	"time"
)

// ViewGranularity identifies the calendar view requesting events.
type ViewGranularity string

// View granularities supported by the front end.
const (
	ViewDay   ViewGranularity = "day"
	ViewWeek  ViewGranularity = "week"
	ViewMonth ViewGranularity = "month"
	ViewYear  ViewGranularity = "year"
	ViewList  ViewGranularity = "list"
)

// TypeStyle carries the display styling for one event category.
type TypeStyle struct {
	Color string `json:"color"`
	Label string `json:"label"`
}

// typeStyles is the fixed category-to-style table. Initialized once and
// treated as immutable data.
var typeStyles = map[EventType]TypeStyle{
	TypeAcademicResearch:   {Color: "#3b82f6", Label: "学术研究"},
	TypeTeachingTraining:   {Color: "#22c55e", Label: "教学培训"},
	TypeStudentActivities:  {Color: "#f59e0b", Label: "学生活动"},
	TypeIndustryAcademia:   {Color: "#a855f7", Label: "产学研合作"},
	TypeAdministration:     {Color: "#6b7280", Label: "行政管理"},
	TypeImportantDeadlines: {Color: "#ef4444", Label: "重要节点"},
}

// StyleFor returns the display style for an event type token, falling
// back to the student-activities style for empty or unknown tokens.
func StyleFor(t EventType) TypeStyle {
	if s, ok := typeStyles[t]; ok {
		return s
	}
	return typeStyles[TypeStudentActivities]
}

// uncertainClassName marks month-precision events so the UI renders them
// as "date pending" instead of a real time slot.
const uncertainClassName = "event-uncertain event-uncertain-month"

// CalendarEvent is the view-ready projection of a stored event,
// shaped for calendar and list front ends.
type CalendarEvent struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Start           string `json:"start"`
	End             string `json:"end"`
	AllDay          bool   `json:"allDay"`
	BackgroundColor string `json:"backgroundColor"`
	ClassName       string `json:"className,omitempty"`

	DatePrecision    DatePrecision `json:"datePrecision"`
	ApproximateMonth string        `json:"approximateMonth,omitempty"`

	ExtendedProps CalendarEventProps `json:"extendedProps"`
}

// CalendarEventProps carries the descriptive fields the calendar widget
// exposes on click-through.
type CalendarEventProps struct {
	Content           string           `json:"content,omitempty"`
	ImageURL          string           `json:"imageUrl,omitempty"`
	Link              string           `json:"link,omitempty"`
	Location          string           `json:"location,omitempty"`
	Organizer         string           `json:"organizer,omitempty"`
	OrganizationType  OrganizationType `json:"organizationType"`
	EventType         string           `json:"eventType,omitempty"`
	Tags              string           `json:"tags"`
	RecurrenceRule    RecurrenceRule   `json:"recurrenceRule"`
	DatePrecision     DatePrecision    `json:"datePrecision"`
	ApproximateMonth  string           `json:"approximateMonth,omitempty"`
	RequiredAttendees []Attendee       `json:"requiredAttendees,omitempty"`
}

// Project maps a stored event into its view representation. The anchor
// range is the stored times for exact precision and the resolved
// placeholder for month precision; month-precision events additionally
// carry the uncertain-date class so the UI can distinguish them. The
// transform is pure.
func Project(e *Event) (CalendarEvent, error) {
	anchor, err := e.AnchorRange()
	if err != nil {
		return CalendarEvent{}, err
	}

	precision := e.DatePrecision
	if precision == "" {
		precision = PrecisionExact
	}

	ce := CalendarEvent{
		ID:               strconv.FormatInt(e.ID, 10),
		Title:            e.Title,
		Start:            anchor.Start.Format(time.RFC3339),
		End:              anchor.End.Format(time.RFC3339),
		AllDay:           e.IsAllDay(),
		BackgroundColor:  StyleFor(EventType(PrimaryToken(e.EventType))).Color,
		DatePrecision:    precision,
		ApproximateMonth: e.ApproximateMonth,
		ExtendedProps: CalendarEventProps{
			Content:           e.Content,
			ImageURL:          e.ImageURL,
			Link:              e.Link,
			Location:          e.Location,
			Organizer:         e.Organizer,
			OrganizationType:  e.OrganizationType,
			EventType:         e.EventType,
			Tags:              e.Tags,
			RecurrenceRule:    e.RecurrenceRule,
			DatePrecision:     precision,
			ApproximateMonth:  e.ApproximateMonth,
			RequiredAttendees: ParseAttendees(e.RequiredAttendees),
		},
	}

	if precision == PrecisionMonth {
		ce.ClassName = uncertainClassName
	}

	return ce, nil
}

// VisibleIn reports whether an event should appear in the given view.
// Month-precision events are restricted to month and year granularity so
// the placeholder never shows up as a misleading fixed time slot;
// exact-precision events appear everywhere.
func (e *Event) VisibleIn(view ViewGranularity) bool {
	if e.DatePrecision != PrecisionMonth {
		return true
	}
	switch view {
	case ViewMonth, ViewYear:
		return true
	case ViewWeek, ViewDay:
		return false
	}
	return true
}
