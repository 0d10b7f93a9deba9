package models

import "time"

// DateOf strips the clock from t, keeping the calendar day of t's location.
// The result is midnight UTC so it compares equal to DATE columns scanned by lib/pq.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today returns the calendar day of now in loc
func Today(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return DateOf(now.In(loc))
}
