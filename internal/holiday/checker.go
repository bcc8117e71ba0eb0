package holiday

import (
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// checkSchedule fires each November 30 at 09:00 server time, matching
// the cadence of the State Council's annual arrangement notices.
const checkSchedule = "0 9 30 11 *"

// Report is one freshness-check outcome, served by /holidays/status.
type Report struct {
	CheckedAt    time.Time `json:"checkedAt"`
	LoadedYears  []int     `json:"loadedYears"`
	NextYear     int       `json:"nextYear"`
	NextYearData bool      `json:"nextYearData"`
	UpdateDue    bool      `json:"updateDue"`
}

// Checker periodically verifies that next year's holiday table is
// already compiled in and logs a warning when it is not.
type Checker struct {
	dataset *Dataset
	cron    *cron.Cron
	timeNow func() time.Time
}

// NewChecker creates a freshness checker over the dataset.
func NewChecker(dataset *Dataset) *Checker {
	return &Checker{
		dataset: dataset,
		cron:    cron.New(),
		timeNow: time.Now,
	}
}

// Start schedules the annual check. Returns an error only if the
// schedule expression fails to parse.
func (c *Checker) Start() error {
	_, err := c.cron.AddFunc(checkSchedule, func() {
		report := c.CheckNow()
		if report.UpdateDue {
			slog.Warn("holiday data update due",
				"next_year", report.NextYear,
				"loaded_years", report.LoadedYears,
			)
		}
	})
	if err != nil {
		return err
	}
	c.cron.Start()
	return nil
}

// Stop halts the scheduled check, waiting for a running check to end.
func (c *Checker) Stop() {
	ctx := c.cron.Stop()
	<-ctx.Done()
}

// CheckNow evaluates freshness immediately. The update is considered
// due from November 30 onward when next year's table is missing.
func (c *Checker) CheckNow() Report {
	now := c.timeNow()
	nextYear := now.Year() + 1
	hasNext := c.dataset.HasYear(nextYear)

	inWindow := now.Month() == time.December ||
		(now.Month() == time.November && now.Day() >= 30)

	return Report{
		CheckedAt:    now,
		LoadedYears:  c.dataset.Years(),
		NextYear:     nextYear,
		NextYearData: hasNext,
		UpdateDue:    inWindow && !hasNext,
	}
}
