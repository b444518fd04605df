// Package fixtures provides test data builders and helpers.
package fixtures

import "time"

// IntPtr returns a pointer to the given int.
func IntPtr(i int) *int {
	return &i
}

// TimePtr returns a pointer to the given time.Time.
func TimePtr(t time.Time) *time.Time {
	return &t
}

// Date returns midnight UTC of the given day.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
