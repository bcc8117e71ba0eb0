package event

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidMonth is returned when an approximate month token is not in
// YYYY-MM form.
var ErrInvalidMonth = errors.New("approximate month must be in YYYY-MM format")

// placeholderDay is the day of month used to anchor month-precision
// events. The 15th keeps the placeholder visually centered in month
// views without colliding with month boundaries.
const placeholderDay = 15

// TimeRange is a concrete instant range.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// ParseMonth validates and parses a YYYY-MM month token.
func ParseMonth(month string) (time.Time, error) {
	t, err := time.Parse("2006-01", month)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidMonth, month)
	}
	return t, nil
}

// ResolveMonth maps a YYYY-MM token to its deterministic placeholder
// range: the 15th of that month, 00:00:00 through 23:59:59 UTC. The same
// token always yields the identical range, so repeated reads and writes
// never drift. The placeholder is a storage and sorting necessity; it
// must never be presented as the event's real timing.
func ResolveMonth(month string) (TimeRange, error) {
	t, err := ParseMonth(month)
	if err != nil {
		return TimeRange{}, err
	}
	start := time.Date(t.Year(), t.Month(), placeholderDay, 0, 0, 0, 0, time.UTC)
	end := time.Date(t.Year(), t.Month(), placeholderDay, 23, 59, 59, 0, time.UTC)
	return TimeRange{Start: start, End: end}, nil
}

// AnchorRange returns the instant range used for storage, sorting, and
// calendar placement: the stored times verbatim for exact precision, the
// resolved placeholder for month precision.
func (e *Event) AnchorRange() (TimeRange, error) {
	if e.DatePrecision == PrecisionMonth {
		return ResolveMonth(e.ApproximateMonth)
	}
	return TimeRange{Start: e.StartTime, End: e.EndTime}, nil
}

// ApplyPrecision rewrites the event's stored start/end from its
// precision: month-precision events get their placeholder range so that
// every consumer sorts them consistently; exact events keep their times
// and clear any stale approximate month.
func (e *Event) ApplyPrecision() error {
	switch e.DatePrecision {
	case PrecisionMonth:
		r, err := ResolveMonth(e.ApproximateMonth)
		if err != nil {
			return err
		}
		e.StartTime = r.Start
		e.EndTime = r.End
	default:
		e.DatePrecision = PrecisionExact
		e.ApproximateMonth = ""
	}
	return nil
}

// IsAllDay reports whether an exact-precision event should be rendered
// as all-day: it starts at exactly midnight and either ends at 23:59 of
// the same day or at midnight of a later day. Month-precision events are
// never all-day; their placeholder range is styled separately.
func (e *Event) IsAllDay() bool {
	if e.DatePrecision == PrecisionMonth {
		return false
	}
	s, en := e.StartTime, e.EndTime
	if s.Hour() != 0 || s.Minute() != 0 || s.Second() != 0 {
		return false
	}
	if en.Hour() == 23 && en.Minute() == 59 {
		return true
	}
	return en.Hour() == 0 && en.Minute() == 0 && !sameDay(s, en)
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}
