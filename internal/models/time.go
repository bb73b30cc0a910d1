package models

import "time"

// DayOfWeek returns the day of week with Monday = 0, the convention used
// by the seasonal features and the seasonal-naive model.
func DayOfWeek(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// DateOnly truncates a timestamp to its calendar day in UTC.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
