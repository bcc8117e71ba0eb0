// Package event provides the event data model, recurrence expansion,
// date-precision handling, and query filtering for the campus calendar.
package event

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"time"
)

// Common errors for event operations.
var (
	ErrEventNotFound = errors.New("event not found")
	ErrTitleRequired = errors.New("event title is required")
	ErrTagTooLong    = errors.New("tag exceeds maximum length")
)

// MaxTagLength is the maximum number of characters in a tag, excluding
// the surrounding # delimiters.
const MaxTagLength = 20

// DatePrecision indicates how precisely an event's date is known.
type DatePrecision string

// Date precision values.
const (
	PrecisionExact DatePrecision = "exact"
	PrecisionMonth DatePrecision = "month"
)

// RecurrenceRule is the kind of recurrence applied to an event.
type RecurrenceRule string

// Supported recurrence rules.
const (
	RecurrenceNone    RecurrenceRule = "none"
	RecurrenceDaily   RecurrenceRule = "daily"
	RecurrenceWeekly  RecurrenceRule = "weekly"
	RecurrenceMonthly RecurrenceRule = "monthly"
)

// OrganizationType buckets an organizer into one of three fixed categories.
type OrganizationType string

// Organization type buckets.
const (
	OrgTypeCenter OrganizationType = "center"
	OrgTypeClub   OrganizationType = "club"
	OrgTypeOther  OrganizationType = "other"
)

// EventType is one of the six closed event categories.
type EventType string

// Event type categories.
const (
	TypeAcademicResearch   EventType = "academic_research"
	TypeTeachingTraining   EventType = "teaching_training"
	TypeStudentActivities  EventType = "student_activities"
	TypeIndustryAcademia   EventType = "industry_academia"
	TypeAdministration     EventType = "administration"
	TypeImportantDeadlines EventType = "important_deadlines"
)

// Attendee is a required attendee resolved through the directory service.
type Attendee struct {
	UserID string `json:"userid"`
	Name   string `json:"name"`
}

// Event is the central calendar entity. Multi-valued fields (organizer,
// event type, tags) are stored as delimited strings to mirror the
// persisted row shape; use the parsing helpers to work with them.
type Event struct {
	ID      int64  `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content,omitempty"`

	ImageURL string `json:"imageUrl,omitempty"`
	Link     string `json:"link,omitempty"`
	Location string `json:"location,omitempty"`

	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`

	// Organizer is a comma-joined list of organizer names; empty means
	// unspecified. OrganizationType is always derived from the first
	// token, never set independently.
	Organizer        string           `json:"organizer,omitempty"`
	OrganizationType OrganizationType `json:"organizationType"`

	// EventType is a comma-joined list of category tokens, or empty.
	EventType string `json:"eventType,omitempty"`

	// Tags holds zero or more #tag# tokens in one string.
	Tags string `json:"tags"`

	RecurrenceRule    RecurrenceRule `json:"recurrenceRule"`
	RecurrenceEndDate *time.Time     `json:"recurrenceEndDate,omitempty"`

	DatePrecision    DatePrecision `json:"datePrecision"`
	ApproximateMonth string        `json:"approximateMonth,omitempty"`

	// RequiredAttendees is the JSON-serialized attendee list.
	RequiredAttendees string `json:"requiredAttendees,omitempty"`

	CreatorID *int64 `json:"creatorId,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Centers lists the organizer names that map to the "center" bucket.
// Treated as immutable lookup data, initialized once.
var Centers = []string{
	"教科人管理中心",
	"科学研究中心",
	"产业发展中心",
	"智能创新中心",
	"行政管理中心",
	"党建思政与监督中心",
	"战略中心",
}

// ClubOrganizer is the organizer name that maps to the "club" bucket.
const ClubOrganizer = "学生俱乐部"

// OrganizerOptions is the fixed list offered by organizer pickers.
var OrganizerOptions = append(append([]string{}, Centers...), ClubOrganizer, "其他")

var centerSet = func() map[string]bool {
	m := make(map[string]bool, len(Centers))
	for _, c := range Centers {
		m[c] = true
	}
	return m
}()

// DeriveOrganizationType buckets a single organizer name.
func DeriveOrganizationType(organizer string) OrganizationType {
	if centerSet[organizer] {
		return OrgTypeCenter
	}
	if organizer == ClubOrganizer {
		return OrgTypeClub
	}
	return OrgTypeOther
}

// OrganizationTypeFor derives the organization type from a comma-joined
// organizer string. Only the first token is considered; an empty list
// yields the "other" bucket.
func OrganizationTypeFor(organizer string) OrganizationType {
	primary := PrimaryToken(organizer)
	if primary == "" {
		return OrgTypeOther
	}
	return DeriveOrganizationType(primary)
}

// SplitList splits a comma-joined value list, trimming whitespace and
// dropping empty entries.
func SplitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// JoinList joins values into the stored comma-delimited form.
func JoinList(values []string) string {
	return strings.Join(values, ",")
}

// PrimaryToken returns the first comma token of a delimited string,
// trimmed, or "" when the list is empty.
func PrimaryToken(s string) string {
	if s == "" {
		return ""
	}
	first, _, _ := strings.Cut(s, ",")
	return strings.TrimSpace(first)
}

// tagPattern matches fully delimited #tag# tokens in a tags string.
var tagPattern = regexp.MustCompile(`#[^#]+#`)

// ParseTags extracts the #tag# tokens from a tags string, delimiters
// included, preserving order and suppressing duplicates.
func ParseTags(tags string) []string {
	matches := tagPattern.FindAllString(tags, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	return out
}

// NormalizeTags re-serializes a tags string into its canonical
// space-joined, de-duplicated form and validates tag length.
func NormalizeTags(tags string) (string, error) {
	parsed := ParseTags(tags)
	for _, t := range parsed {
		if len([]rune(t))-2 > MaxTagLength {
			return "", ErrTagTooLong
		}
	}
	return strings.Join(parsed, " "), nil
}

// ParseAttendees decodes the serialized required-attendee list. Malformed
// or empty input yields an empty list, never an error: the directory
// collaborator owns the list's correctness.
func ParseAttendees(s string) []Attendee {
	if s == "" {
		return nil
	}
	var out []Attendee
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil
	}
	return out
}

// SerializeAttendees encodes an attendee list for storage.
func SerializeAttendees(attendees []Attendee) string {
	if len(attendees) == 0 {
		return ""
	}
	data, err := json.Marshal(attendees)
	if err != nil {
		return ""
	}
	return string(data)
}

// ValidRecurrenceRule reports whether the rule is one of the supported
// kinds. Unknown rules are treated as "none" by the expander.
func ValidRecurrenceRule(r RecurrenceRule) bool {
	switch r {
	case RecurrenceNone, RecurrenceDaily, RecurrenceWeekly, RecurrenceMonthly:
		return true
	}
	return false
}

// ValidEventType reports whether a single token is one of the six
// closed categories.
func ValidEventType(t EventType) bool {
	switch t {
	case TypeAcademicResearch, TypeTeachingTraining, TypeStudentActivities,
		TypeIndustryAcademia, TypeAdministration, TypeImportantDeadlines:
		return true
	}
	return false
}

// Validate checks the event's internal invariants before persistence.
// Precision/field consistency is enforced here so the repository and
// expander can assume it holds.
func (e *Event) Validate() error {
	if strings.TrimSpace(e.Title) == "" {
		return ErrTitleRequired
	}
	switch e.DatePrecision {
	case PrecisionMonth:
		if _, err := ParseMonth(e.ApproximateMonth); err != nil {
			return err
		}
	case PrecisionExact, "":
		// approximateMonth is ignored for exact precision
	}
	// Unknown rules degrade to "none" in the expander, so only the
	// supported recurring kinds require an end date.
	switch e.RecurrenceRule {
	case RecurrenceDaily, RecurrenceWeekly, RecurrenceMonthly:
		if e.RecurrenceEndDate == nil {
			return errors.New("recurrenceEndDate is required for recurring events")
		}
	}
	if _, err := NormalizeTags(e.Tags); err != nil {
		return err
	}
	return nil
}
