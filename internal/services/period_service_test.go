package services

import (
	"testing"
	"time"

	"fintrack/internal/clock"
)

func fixedClock(y int, m time.Month, d int) clock.Fixed {
	return clock.Fixed{Time: time.Date(y, m, d, 10, 30, 0, 0, time.UTC)}
}

func TestCurrentPeriod(t *testing.T) {
	t.Run("calendar_month_when_no_reset_day", func(t *testing.T) {
		svc := NewPeriodService(fixedClock(2025, time.June, 15))

		period := svc.CurrentPeriod(nil)
		if !period.Start.Equal(time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("expected start 2025-06-01, got %s", period.Start.Format("2006-01-02"))
		}
		if !period.End.Equal(time.Date(2025, time.June, 30, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("expected end 2025-06-30, got %s", period.End.Format("2006-01-02"))
		}
	})

	t.Run("on_or_after_reset_day", func(t *testing.T) {
		svc := NewPeriodService(fixedClock(2025, time.June, 20))
		resetDay := 15

		period := svc.CurrentPeriod(&resetDay)
		if !period.Start.Equal(time.Date(2025, time.June, 15, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("expected start 2025-06-15, got %s", period.Start.Format("2006-01-02"))
		}
		if !period.End.Equal(time.Date(2025, time.July, 14, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("expected end 2025-07-14, got %s", period.End.Format("2006-01-02"))
		}
	})

	t.Run("before_reset_day", func(t *testing.T) {
		svc := NewPeriodService(fixedClock(2025, time.June, 10))
		resetDay := 15

		period := svc.CurrentPeriod(&resetDay)
		if !period.Start.Equal(time.Date(2025, time.May, 15, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("expected start 2025-05-15, got %s", period.Start.Format("2006-01-02"))
		}
		if !period.End.Equal(time.Date(2025, time.June, 14, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("expected end 2025-06-14, got %s", period.End.Format("2006-01-02"))
		}
	})

	t.Run("reset_day_clamps_in_short_month", func(t *testing.T) {
		// Reset day 31 in February clamps to the 28th.
		svc := NewPeriodService(fixedClock(2025, time.February, 28))
		resetDay := 31

		period := svc.CurrentPeriod(&resetDay)
		if !period.Start.Equal(time.Date(2025, time.February, 28, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("expected start 2025-02-28, got %s", period.Start.Format("2006-01-02"))
		}
		if !period.End.Equal(time.Date(2025, time.March, 30, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("expected end 2025-03-30, got %s", period.End.Format("2006-01-02"))
		}
	})
}

func TestNextPeriod(t *testing.T) {
	t.Run("calendar_month", func(t *testing.T) {
		svc := NewPeriodService(fixedClock(2025, time.June, 15))

		period := svc.NextPeriod(nil)
		if !period.Start.Equal(time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("expected start 2025-07-01, got %s", period.Start.Format("2006-01-02"))
		}
		if !period.End.Equal(time.Date(2025, time.July, 31, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("expected end 2025-07-31, got %s", period.End.Format("2006-01-02"))
		}
	})

	t.Run("starts_day_after_current_ends", func(t *testing.T) {
		svc := NewPeriodService(fixedClock(2025, time.June, 20))
		resetDay := 15

		current := svc.CurrentPeriod(&resetDay)
		next := svc.NextPeriod(&resetDay)
		if !next.Start.Equal(current.End.AddDate(0, 0, 1)) {
			t.Errorf("expected next period to start the day after %s, got %s",
				current.End.Format("2006-01-02"), next.Start.Format("2006-01-02"))
		}
		if !next.End.Equal(time.Date(2025, time.August, 14, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("expected end 2025-08-14, got %s", next.End.Format("2006-01-02"))
		}
	})
}

func TestIsInCurrentPeriod(t *testing.T) {
	svc := NewPeriodService(fixedClock(2025, time.June, 20))
	resetDay := 15

	inside := time.Date(2025, time.July, 14, 23, 0, 0, 0, time.UTC)
	if !svc.IsInCurrentPeriod(inside, &resetDay) {
		t.Error("expected end-of-period date to be inside")
	}

	outside := time.Date(2025, time.July, 15, 0, 0, 0, 0, time.UTC)
	if svc.IsInCurrentPeriod(outside, &resetDay) {
		t.Error("expected next reset day to be outside")
	}

	before := time.Date(2025, time.June, 14, 0, 0, 0, 0, time.UTC)
	if svc.IsInCurrentPeriod(before, &resetDay) {
		t.Error("expected day before period start to be outside")
	}
}
