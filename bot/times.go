// ABOUTME: Quick-choice time resolution for the reminder and meeting flows
// ABOUTME: Relative buttons resolve to absolute local timestamps
package bot

import "time"

const (
	tonightHour = 19
	morningHour = 9
)

func plusOneHour(now time.Time) time.Time {
	return now.Add(time.Hour)
}

// todayAt resolves to today at the given hour in the local zone, rolling
// forward to the next day when that moment has already passed.
func todayAt(now time.Time, hour int) time.Time {
	t := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if t.Before(now) {
		t = t.AddDate(0, 0, 1)
	}
	return t
}

// tomorrowAt resolves to the given hour on the calendar day after the
// invocation day, regardless of the current time of day.
func tomorrowAt(now time.Time, hour int) time.Time {
	t := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	return t.AddDate(0, 0, 1)
}
