package utils

import (
	"time"
)

// BillingPeriod returns the month and year a bill created at t belongs to
func BillingPeriod(t time.Time) (month int, year int) {
	return int(t.Month()), t.Year()
}

// CalculateDueDate returns the due date for a billing period.
// dueDay is clamped to the last day of the month (day 31 in February becomes the 28th/29th).
func CalculateDueDate(year, month, dueDay int, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	if dueDay < 1 {
		dueDay = 1
	}

	lastDay := time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, loc).Day()
	if dueDay > lastDay {
		dueDay = lastDay
	}

	// End of the due day
	return time.Date(year, time.Month(month), dueDay, 23, 59, 59, 0, loc)
}

// IsDateOverdue checks if a due date has passed at the given instant
func IsDateOverdue(dueDate time.Time, now time.Time) bool {
	return now.After(dueDate)
}

// StartOfMonth truncates t to midnight on the first day of its month
func StartOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}
