package cycle

import "time"

// CheckDate resolves a nominal day of month to the last valid calendar day <= day
// for the given month and year. Days up to 28 exist in every month and pass through.
func CheckDate(day int, month time.Month, year int) int {
	if day <= 28 {
		return day
	}
	if last := DaysInMonth(month, year); day > last {
		return last
	}
	return day
}

// DaysInMonth returns the number of days in month of year
func DaysInMonth(month time.Month, year int) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// addMonths steps a (year, month) pair by n months without touching the day,
// so January 31 plus one month targets February rather than March.
func addMonths(year int, month time.Month, n int) (int, time.Month) {
	total := year*12 + int(month-1) + n
	return total / 12, time.Month(total%12 + 1)
}

// onDay returns t moved to year/month/day keeping its clock time and location
func onDay(t time.Time, year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// anchorIn returns t moved to monthDay clamped to the month n months after t's month
func anchorIn(t time.Time, monthDay, n int) time.Time {
	year, month := addMonths(t.Year(), t.Month(), n)
	return onDay(t, year, month, CheckDate(monthDay, month, year))
}
