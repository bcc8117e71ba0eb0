package event

import (
	"strings"
	"time"
)

// DefaultLimit bounds result sets when the caller does not specify one.
const DefaultLimit = 100

// CreatorFilter narrows results by creator. A nil ID matches events with
// no creator, which is distinct from the filter being absent entirely.
type CreatorFilter struct {
	ID *int64
}

// Filter is the composed predicate over stored events. Every field is
// independently optional; categories combine with AND. Within a category
// the semantics differ deliberately: event types and organizers match if
// ANY listed token is contained in the stored string, while tags match
// only if EVERY listed token is contained.
type Filter struct {
	// StartDate/EndDate form a closed-interval containment test against
	// the stored instant range: startTime >= StartDate AND
	// endTime <= EndDate. Month-precision events are tested against
	// their placeholder range.
	StartDate *time.Time
	EndDate   *time.Time

	// EventTypes and Organizers are comma-joined whitelists with OR
	// semantics and substring matching.
	EventTypes string
	Organizers string

	// Tags is a comma-joined list with AND semantics and substring
	// matching. A tag that is a substring of another stored tag will
	// over-match; this mirrors the stored delimited-string encoding and
	// is preserved behavior.
	Tags string

	Creator *CreatorFilter
}

// Pagination bounds a result window.
type Pagination struct {
	Skip  int
	Limit int
}

// Normalize applies the default limit and clamps negative offsets.
func (p Pagination) Normalize() Pagination {
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if p.Skip < 0 {
		p.Skip = 0
	}
	return p
}

// IsZero reports whether no filter clause is set.
func (f Filter) IsZero() bool {
	return f.StartDate == nil && f.EndDate == nil &&
		f.EventTypes == "" && f.Organizers == "" && f.Tags == "" &&
		f.Creator == nil
}

// Matches evaluates the filter against a stored event. This is the
// reference semantics; the Postgres repository compiles the same clauses
// to SQL.
func (f Filter) Matches(e *Event) bool {
	if f.StartDate != nil && e.StartTime.Before(*f.StartDate) {
		return false
	}
	if f.EndDate != nil && e.EndTime.After(*f.EndDate) {
		return false
	}
	if !matchAny(e.EventType, SplitList(f.EventTypes)) {
		return false
	}
	if !matchAny(e.Organizer, SplitList(f.Organizers)) {
		return false
	}
	if !matchAll(e.Tags, SplitList(f.Tags)) {
		return false
	}
	if f.Creator != nil {
		if f.Creator.ID == nil {
			if e.CreatorID != nil {
				return false
			}
		} else if e.CreatorID == nil || *e.CreatorID != *f.Creator.ID {
			return false
		}
	}
	return true
}

// matchAny reports whether the stored value contains at least one of the
// tokens. An empty token list imposes no constraint.
func matchAny(stored string, tokens []string) bool {
	if len(tokens) == 0 {
		return true
	}
	for _, t := range tokens {
		if strings.Contains(stored, t) {
			return true
		}
	}
	return false
}

// matchAll reports whether the stored value contains every token.
func matchAll(stored string, tokens []string) bool {
	for _, t := range tokens {
		if !strings.Contains(stored, t) {
			return false
		}
	}
	return true
}
