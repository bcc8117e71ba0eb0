// Package ical serializes calendar events into an iCalendar feed so
// users can subscribe from desktop and mobile calendar clients.
package ical

import (
	"fmt"

	ics "github.com/arran4/golang-ical"

	"github.com/bjzgcai/calendar/internal/event"
)

const productID = "-//Campus Event Calendar//CN"

// uidDomain namespaces event UIDs in the exported feed.
const uidDomain = "calendar.bjzgcai.github.com"

// Export serializes the given events into an iCalendar document.
// Month-precision events are skipped: their stored instants are
// placeholders, and exporting them would present a fabricated time slot
// as real. All-day events use date-valued DTSTART/DTEND.
func Export(events []*event.Event) string {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(productID)

	for _, e := range events {
		if e.DatePrecision == event.PrecisionMonth {
			continue
		}

		ve := cal.AddEvent(fmt.Sprintf("event-%d@%s", e.ID, uidDomain))
		ve.SetCreatedTime(e.CreatedAt)
		ve.SetDtStampTime(e.UpdatedAt)
		ve.SetModifiedAt(e.UpdatedAt)
		ve.SetSummary(e.Title)

		if e.IsAllDay() {
			ve.SetAllDayStartAt(e.StartTime)
			ve.SetAllDayEndAt(e.EndTime)
		} else {
			ve.SetStartAt(e.StartTime)
			ve.SetEndAt(e.EndTime)
		}

		if e.Content != "" {
			ve.SetDescription(e.Content)
		}
		if e.Location != "" {
			ve.SetLocation(e.Location)
		}
		if e.Link != "" {
			ve.SetURL(e.Link)
		}
		// ORGANIZER requires a calendar address; organizer names here are
		// free text, so carry them in CATEGORIES instead.
		for _, org := range event.SplitList(e.Organizer) {
			ve.AddProperty(ics.ComponentPropertyCategories, org)
		}
	}

	return cal.Serialize()
}
