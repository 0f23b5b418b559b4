// ABOUTME: Accounting period math for the monthly quota
// ABOUTME: Periods are UTC calendar months, labeled like "January 2026"

package quota

import "time"

// PeriodStart returns the start of the calendar month containing now, in UTC.
func PeriodStart(now time.Time) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// PeriodLabel returns the human-facing label for the period containing now,
// e.g. "January 2026".
func PeriodLabel(now time.Time) string {
	return now.UTC().Format("January 2006")
}
