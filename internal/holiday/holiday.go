// Package holiday carries the Chinese statutory holiday and makeup
// workday tables used to annotate the calendar. The data follows the
// State Council's annual arrangement notices; each November 30 the
// freshness checker warns when next year's table is still missing.
package holiday

import (
	"sort"
	"time"
)

// Day is one statutory holiday or makeup workday entry.
type Day struct {
	// Date in YYYY-MM-DD form.
	Date string `json:"date"`
	Name string `json:"name"`

	// IsHoliday is true for rest days and false for makeup workdays
	// (调休: a weekend day swapped into a working day).
	IsHoliday bool `json:"isHoliday"`

	Type string `json:"holidayType,omitempty"`
}

// Holiday type keys.
const (
	TypeNewYear        = "new-year"
	TypeSpringFestival = "spring-festival"
	TypeQingming       = "qingming"
	TypeLaborDay       = "labor-day"
	TypeDragonBoat     = "dragon-boat"
	TypeMidAutumn      = "mid-autumn"
	TypeNationalDay    = "national-day"
)

// holidays2026 follows the State Council notice published November 2025.
var holidays2026 = []Day{
	{Date: "2026-01-01", Name: "元旦", IsHoliday: true, Type: TypeNewYear},
	{Date: "2026-01-02", Name: "元旦", IsHoliday: true, Type: TypeNewYear},
	{Date: "2026-01-03", Name: "元旦", IsHoliday: true, Type: TypeNewYear},

	{Date: "2026-02-14", Name: "春节调休", IsHoliday: false, Type: TypeSpringFestival},
	{Date: "2026-02-15", Name: "春节", IsHoliday: true, Type: TypeSpringFestival},
	{Date: "2026-02-16", Name: "春节", IsHoliday: true, Type: TypeSpringFestival},
	{Date: "2026-02-17", Name: "春节", IsHoliday: true, Type: TypeSpringFestival},
	{Date: "2026-02-18", Name: "春节", IsHoliday: true, Type: TypeSpringFestival},
	{Date: "2026-02-19", Name: "春节", IsHoliday: true, Type: TypeSpringFestival},
	{Date: "2026-02-20", Name: "春节", IsHoliday: true, Type: TypeSpringFestival},
	{Date: "2026-02-21", Name: "春节", IsHoliday: true, Type: TypeSpringFestival},
	{Date: "2026-02-22", Name: "春节调休", IsHoliday: false, Type: TypeSpringFestival},

	{Date: "2026-04-04", Name: "清明节", IsHoliday: true, Type: TypeQingming},
	{Date: "2026-04-05", Name: "清明节", IsHoliday: true, Type: TypeQingming},
	{Date: "2026-04-06", Name: "清明节", IsHoliday: true, Type: TypeQingming},

	{Date: "2026-04-26", Name: "劳动节调休", IsHoliday: false, Type: TypeLaborDay},
	{Date: "2026-05-01", Name: "劳动节", IsHoliday: true, Type: TypeLaborDay},
	{Date: "2026-05-02", Name: "劳动节", IsHoliday: true, Type: TypeLaborDay},
	{Date: "2026-05-03", Name: "劳动节", IsHoliday: true, Type: TypeLaborDay},
	{Date: "2026-05-04", Name: "劳动节", IsHoliday: true, Type: TypeLaborDay},
	{Date: "2026-05-05", Name: "劳动节", IsHoliday: true, Type: TypeLaborDay},
	{Date: "2026-05-09", Name: "劳动节调休", IsHoliday: false, Type: TypeLaborDay},

	{Date: "2026-06-25", Name: "端午节", IsHoliday: true, Type: TypeDragonBoat},
	{Date: "2026-06-26", Name: "端午节", IsHoliday: true, Type: TypeDragonBoat},
	{Date: "2026-06-27", Name: "端午节", IsHoliday: true, Type: TypeDragonBoat},

	{Date: "2026-09-27", Name: "国庆节调休", IsHoliday: false, Type: TypeNationalDay},
	{Date: "2026-10-01", Name: "国庆节", IsHoliday: true, Type: TypeNationalDay},
	{Date: "2026-10-02", Name: "国庆节", IsHoliday: true, Type: TypeNationalDay},
	{Date: "2026-10-03", Name: "国庆节", IsHoliday: true, Type: TypeNationalDay},
	{Date: "2026-10-04", Name: "国庆节", IsHoliday: true, Type: TypeNationalDay},
	{Date: "2026-10-05", Name: "国庆节", IsHoliday: true, Type: TypeNationalDay},
	{Date: "2026-10-06", Name: "中秋节", IsHoliday: true, Type: TypeMidAutumn},
	{Date: "2026-10-07", Name: "国庆节", IsHoliday: true, Type: TypeNationalDay},
	{Date: "2026-10-08", Name: "国庆节", IsHoliday: true, Type: TypeNationalDay},
	{Date: "2026-10-10", Name: "国庆节调休", IsHoliday: false, Type: TypeNationalDay},
}

// holidays2027 is a projection pending the official notice expected
// late November 2026; makeup workdays are unknown until then.
var holidays2027 = []Day{
	{Date: "2027-01-01", Name: "元旦", IsHoliday: true, Type: TypeNewYear},
	{Date: "2027-01-02", Name: "元旦", IsHoliday: true, Type: TypeNewYear},
	{Date: "2027-01-03", Name: "元旦", IsHoliday: true, Type: TypeNewYear},

	{Date: "2027-02-06", Name: "春节", IsHoliday: true, Type: TypeSpringFestival},
	{Date: "2027-02-07", Name: "春节", IsHoliday: true, Type: TypeSpringFestival},
	{Date: "2027-02-08", Name: "春节", IsHoliday: true, Type: TypeSpringFestival},
	{Date: "2027-02-09", Name: "春节", IsHoliday: true, Type: TypeSpringFestival},
	{Date: "2027-02-10", Name: "春节", IsHoliday: true, Type: TypeSpringFestival},
	{Date: "2027-02-11", Name: "春节", IsHoliday: true, Type: TypeSpringFestival},
	{Date: "2027-02-12", Name: "春节", IsHoliday: true, Type: TypeSpringFestival},

	{Date: "2027-04-04", Name: "清明节", IsHoliday: true, Type: TypeQingming},
	{Date: "2027-04-05", Name: "清明节", IsHoliday: true, Type: TypeQingming},
	{Date: "2027-04-06", Name: "清明节", IsHoliday: true, Type: TypeQingming},

	{Date: "2027-05-01", Name: "劳动节", IsHoliday: true, Type: TypeLaborDay},
	{Date: "2027-05-02", Name: "劳动节", IsHoliday: true, Type: TypeLaborDay},
	{Date: "2027-05-03", Name: "劳动节", IsHoliday: true, Type: TypeLaborDay},
	{Date: "2027-05-04", Name: "劳动节", IsHoliday: true, Type: TypeLaborDay},
	{Date: "2027-05-05", Name: "劳动节", IsHoliday: true, Type: TypeLaborDay},

	{Date: "2027-06-14", Name: "端午节", IsHoliday: true, Type: TypeDragonBoat},
	{Date: "2027-06-15", Name: "端午节", IsHoliday: true, Type: TypeDragonBoat},
	{Date: "2027-06-16", Name: "端午节", IsHoliday: true, Type: TypeDragonBoat},

	{Date: "2027-09-25", Name: "中秋节", IsHoliday: true, Type: TypeMidAutumn},
	{Date: "2027-09-26", Name: "中秋节", IsHoliday: true, Type: TypeMidAutumn},
	{Date: "2027-09-27", Name: "中秋节", IsHoliday: true, Type: TypeMidAutumn},

	{Date: "2027-10-01", Name: "国庆节", IsHoliday: true, Type: TypeNationalDay},
	{Date: "2027-10-02", Name: "国庆节", IsHoliday: true, Type: TypeNationalDay},
	{Date: "2027-10-03", Name: "国庆节", IsHoliday: true, Type: TypeNationalDay},
	{Date: "2027-10-04", Name: "国庆节", IsHoliday: true, Type: TypeNationalDay},
	{Date: "2027-10-05", Name: "国庆节", IsHoliday: true, Type: TypeNationalDay},
	{Date: "2027-10-06", Name: "国庆节", IsHoliday: true, Type: TypeNationalDay},
	{Date: "2027-10-07", Name: "国庆节", IsHoliday: true, Type: TypeNationalDay},
}

// Dataset is the year-keyed holiday table with an index by date.
// Built once at process start and treated as immutable.
type Dataset struct {
	byYear map[int][]Day
	byDate map[string]Day
}

// NewDataset builds the dataset from the compiled-in tables.
func NewDataset() *Dataset {
	d := &Dataset{
		byYear: map[int][]Day{
			2026: holidays2026,
			2027: holidays2027,
		},
		byDate: make(map[string]Day),
	}
	for _, days := range d.byYear {
		for _, day := range days {
			d.byDate[day.Date] = day
		}
	}
	return d
}

// Lookup returns the entry for the given day, if any.
func (d *Dataset) Lookup(t time.Time) (Day, bool) {
	day, ok := d.byDate[t.Format("2006-01-02")]
	return day, ok
}

// IsHoliday reports whether the given day is a statutory rest day.
func (d *Dataset) IsHoliday(t time.Time) bool {
	day, ok := d.Lookup(t)
	return ok && day.IsHoliday
}

// IsMakeupWorkday reports whether the given day is a weekend swapped
// into a working day.
func (d *Dataset) IsMakeupWorkday(t time.Time) bool {
	day, ok := d.Lookup(t)
	return ok && !day.IsHoliday
}

// Years returns the years with loaded data, ascending.
func (d *Dataset) Years() []int {
	years := make([]int, 0, len(d.byYear))
	for y := range d.byYear {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}

// ForYear returns the entries for one year in date order.
func (d *Dataset) ForYear(year int) []Day {
	days := d.byYear[year]
	out := make([]Day, len(days))
	copy(out, days)
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// HasYear reports whether data for the year is loaded.
func (d *Dataset) HasYear(year int) bool {
	_, ok := d.byYear[year]
	return ok
}
