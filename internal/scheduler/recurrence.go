package scheduler

import (
	"time"

	"github.com/BTreeMap/FocusGuard/internal/models"
)

// nextRecurrence advances last by interval recurrence units. Minute and hour
// units use plain duration arithmetic; daily and weekly use calendar-day
// addition so month and year boundaries roll over correctly; monthly clamps
// to the last day of the target month when the source day does not exist
// there (Jan 31 + 1 month = Feb 28/29).
func nextRecurrence(last time.Time, rt models.RecurrenceType, interval int) time.Time {
	if interval <= 0 {
		interval = 1
	}
	switch rt {
	case models.RecurrenceMinutely:
		return last.Add(time.Duration(interval) * time.Minute)
	case models.RecurrenceHourly:
		return last.Add(time.Duration(interval) * time.Hour)
	case models.RecurrenceDaily:
		return last.AddDate(0, 0, interval)
	case models.RecurrenceWeekly:
		return last.AddDate(0, 0, 7*interval)
	case models.RecurrenceMonthly:
		return addMonthsClamped(last, interval)
	default:
		return last.AddDate(0, 0, interval)
	}
}

// addMonthsClamped adds whole months, clamping the day of month to the last
// day of the target month instead of letting it spill into the next one.
func addMonthsClamped(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	targetMonth := time.Month(int(month) + months)
	firstOfTarget := time.Date(year, targetMonth, 1, 0, 0, 0, 0, t.Location())
	if last := daysInMonth(firstOfTarget); day > last {
		day = last
	}
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), day,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// daysInMonth returns the number of days in t's month.
func daysInMonth(t time.Time) int {
	firstOfNext := time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, t.Location())
	return firstOfNext.AddDate(0, 0, -1).Day()
}
