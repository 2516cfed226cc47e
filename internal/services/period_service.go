package services

import (
	"time"

	"fintrack/internal/clock"
	"fintrack/internal/models"
)

// periodService resolves the user's budgeting window from an optional
// monthly reset day. Pure date arithmetic over the injected clock; no
// database access.
type periodService struct {
	clock clock.Clock
}

// NewPeriodService creates a new PeriodServicer.
func NewPeriodService(clk clock.Clock) PeriodServicer {
	return &periodService{clock: clk}
}

// CurrentPeriod returns the period containing today. With a nil reset day
// the period is the calendar month. Otherwise the period starts on the reset
// day of this month (when today has reached it) or of the previous month,
// and ends the day before the following reset day. A reset day beyond a
// month's length clamps to that month's last day.
func (s *periodService) CurrentPeriod(resetDay *int) Period {
	today := models.StartOfDay(s.clock.Now())

	if resetDay == nil {
		start := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location())
		end := start.AddDate(0, 1, -1)
		return Period{Start: start, End: end}
	}

	var start time.Time
	if today.Day() >= clampDay(today.Year(), today.Month(), *resetDay) {
		start = dateWithClampedDay(today.Year(), today.Month(), *resetDay, today.Location())
	} else {
		prev := today.AddDate(0, -1, -today.Day()+1) // first of previous month
		start = dateWithClampedDay(prev.Year(), prev.Month(), *resetDay, today.Location())
	}

	nextMonth := start.AddDate(0, 0, -start.Day()+1).AddDate(0, 1, 0)
	end := dateWithClampedDay(nextMonth.Year(), nextMonth.Month(), *resetDay, today.Location()).AddDate(0, 0, -1)

	return Period{Start: start, End: end}
}

// NextPeriod returns the period immediately after the current one.
func (s *periodService) NextPeriod(resetDay *int) Period {
	today := models.StartOfDay(s.clock.Now())

	if resetDay == nil {
		start := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location()).AddDate(0, 1, 0)
		end := start.AddDate(0, 1, -1)
		return Period{Start: start, End: end}
	}

	current := s.CurrentPeriod(resetDay)
	start := current.End.AddDate(0, 0, 1)
	following := start.AddDate(0, 0, -start.Day()+1).AddDate(0, 1, 0)
	end := dateWithClampedDay(following.Year(), following.Month(), *resetDay, start.Location()).AddDate(0, 0, -1)

	return Period{Start: start, End: end}
}

// IsInCurrentPeriod reports whether date falls inside the current period.
// Both bounds are inclusive.
func (s *periodService) IsInCurrentPeriod(date time.Time, resetDay *int) bool {
	period := s.CurrentPeriod(resetDay)
	d := models.StartOfDay(date)
	return !d.Before(period.Start) && !d.After(period.End)
}

// clampDay limits day to the number of days in the given month.
func clampDay(year int, month time.Month, day int) int {
	last := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, -1).Day()
	if day > last {
		return last
	}
	if day < 1 {
		return 1
	}
	return day
}

func dateWithClampedDay(year int, month time.Month, day int, loc *time.Location) time.Time {
	return time.Date(year, month, clampDay(year, month, day), 0, 0, 0, 0, loc)
}
