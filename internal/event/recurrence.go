package event

import "time"

// MaxOccurrences caps a single expansion. A far-past seed combined with
// a near-future bound could otherwise loop for a very long time; the cap
// truncates the series instead.
const MaxOccurrences = 5000

// Occurrence is one concrete instance produced by recurrence expansion.
type Occurrence struct {
	Start time.Time
	End   time.Time
}

// Expand generates the ordered series of occurrences for a seed event
// under the given rule, up to but excluding the first candidate whose
// start reaches until.
//
// The seed is always the first occurrence and is emitted unconditionally,
// even when it already lies at or past the bound. Every occurrence keeps
// the seed's duration. For the daily rule, candidates landing on Saturday
// or Sunday are advanced day by day to the next weekday before being
// tested against the bound; the seed itself is never weekend-checked.
// Weekly advances in exact 7-day steps. Monthly uses time.AddDate month
// arithmetic, which normalizes overflow (Jan 31 + 1 month = Mar 2 or 3
// depending on leap year). Unknown rules behave as "none".
func Expand(seedStart, seedEnd time.Time, rule RecurrenceRule, until time.Time) []Occurrence {
	out := []Occurrence{{Start: seedStart, End: seedEnd}}

	switch rule {
	case RecurrenceDaily, RecurrenceWeekly, RecurrenceMonthly:
	default:
		return out
	}

	duration := seedEnd.Sub(seedStart)
	current := seedStart

	for len(out) < MaxOccurrences {
		var next time.Time
		switch rule {
		case RecurrenceDaily:
			next = current.AddDate(0, 0, 1)
			for isWeekend(next) {
				next = next.AddDate(0, 0, 1)
			}
		case RecurrenceWeekly:
			next = current.AddDate(0, 0, 7)
		case RecurrenceMonthly:
			next = current.AddDate(0, 1, 0)
		}

		if !next.Before(until) {
			break
		}

		out = append(out, Occurrence{Start: next, End: next.Add(duration)})
		current = next
	}

	return out
}

func isWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
