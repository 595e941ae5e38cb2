package scheduler

import (
	"slices"
	"time"
)

// Window is a set of weekdays with a daily [StartHour, EndHour) range in local time
type Window struct {
	Days      []time.Weekday
	StartHour int
	EndHour   int
}

var (
	// OptimalWindow is tried first
	OptimalWindow = Window{
		Days:      []time.Weekday{time.Tuesday, time.Wednesday, time.Thursday},
		StartHour: 10,
		EndHour:   14,
	}
	// AcceptableWindow is tried when no optimal slot exists in the horizon
	AcceptableWindow = Window{
		Days:      []time.Weekday{time.Monday, time.Friday},
		StartHour: 8,
		EndHour:   17,
	}
)

const (
	searchDays = 7

	// the business day is considered over from dayEndHour; searches then restart at restartHour
	dayEndHour   = 17
	dayStartHour = 8
	restartHour  = 10

	maxJitterMinutes = 15
	maxJitterSeconds = 59
	maxJitter        = maxJitterMinutes*time.Minute + maxJitterSeconds*time.Second
)

// Contains reports whether t falls inside the window in t's own location
func (w Window) Contains(t time.Time) bool {
	return slices.Contains(w.Days, t.Weekday()) && t.Hour() >= w.StartHour && t.Hour() < w.EndHour
}

// searchStart applies the after-hours rules to a local time
func searchStart(local time.Time) time.Time {
	y, m, d := local.Date()
	switch {
	case local.Hour() >= dayEndHour:
		return time.Date(y, m, d+1, restartHour, 0, 0, 0, local.Location())
	case local.Hour() < dayStartHour:
		return time.Date(y, m, d, restartHour, 0, 0, 0, local.Location())
	default:
		return local
	}
}

// findSlot returns the earliest time at or after start inside w, leaving room for the
// maximum jitter before the window closes. ok is false when none exists within the horizon.
func findSlot(start time.Time, w Window) (time.Time, bool) {
	loc := start.Location()
	y, m, d := start.Date()
	for i := 0; i < searchDays; i++ {
		opens := time.Date(y, m, d+i, w.StartHour, 0, 0, 0, loc)
		if !slices.Contains(w.Days, opens.Weekday()) {
			continue
		}
		latest := time.Date(y, m, d+i, w.EndHour, 0, 0, 0, loc).Add(-maxJitter - time.Second)
		candidate := opens
		if start.After(candidate) {
			candidate = start
		}
		if !candidate.After(latest) {
			return candidate, true
		}
	}
	return time.Time{}, false
}

// nextTuesday returns 10:00 on the first Tuesday strictly after start's date
func nextTuesday(start time.Time) time.Time {
	y, m, d := start.Date()
	days := (int(time.Tuesday) - int(start.Weekday()) + 7) % 7
	if days == 0 {
		days = 7
	}
	return time.Date(y, m, d+days, restartHour, 0, 0, 0, start.Location())
}
