// utils/dates.go
package utils

import "time"

func BeginningOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

func DaysBetween(start, end time.Time) int {
	start = BeginningOfDay(start)
	end = BeginningOfDay(end)
	return int(end.Sub(start).Hours() / 24)
}

func IsWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// NextBusinessDay returns the first Monday-to-Friday day at or after t's day.
func NextBusinessDay(t time.Time) time.Time {
	d := BeginningOfDay(t)
	for IsWeekend(d) {
		d = d.AddDate(0, 0, 1)
	}
	return d
}
