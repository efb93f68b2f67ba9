// Package recurrence computes the next due timestamp for an autoposting
// rule. All math is done in the host's local time; the calculator is not
// timezone aware beyond that.
package recurrence

import (
	"strconv"
	"strings"
	"time"

	"github.com/Stepanishin/telepublisher-be/internal/domain"
)

const (
	defaultHour   = 12
	defaultMinute = 0
)

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// Next returns the next run time for r, strictly after now. Unknown or
// missing frequency falls back to daily behavior.
func Next(r domain.Recurrence, now time.Time) time.Time {
	switch r.Frequency {
	case domain.FrequencyCustom:
		return nextCustom(r, now)
	case domain.FrequencyWeekly:
		return nextWeekly(r, now)
	default:
		return nextDaily(r, now)
	}
}

// nextDaily is today at the preferred time, or tomorrow if that has
// already passed.
func nextDaily(r domain.Recurrence, now time.Time) time.Time {
	hour, minute := parseClock(r.PreferredTime)
	candidate := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !candidate.After(now) {
		candidate = candidate.AddDate(0, 0, 1)
	}
	return candidate
}

// nextWeekly starts from the daily candidate and advances to the first
// preferred weekday strictly after the candidate's weekday, wrapping to
// next week when nothing later remains. An empty or unrecognized day
// list leaves the daily candidate unmodified.
func nextWeekly(r domain.Recurrence, now time.Time) time.Time {
	candidate := nextDaily(r, now)

	days := preferredWeekdays(r.PreferredDays)
	if len(days) == 0 {
		return candidate
	}

	current := candidate.Weekday()
	for _, d := range days {
		if d > current {
			return candidate.AddDate(0, 0, int(d-current))
		}
	}
	// Wrap to the earliest preferred day next week.
	return candidate.AddDate(0, 0, 7-int(current)+int(days[0]))
}

// nextCustom is now-relative on purpose: sub-daily cadences must not be
// anchored to a fixed clock time.
func nextCustom(r domain.Recurrence, now time.Time) time.Time {
	n := r.CustomInterval
	if n < 1 {
		n = 1
	}
	switch r.CustomTimeUnit {
	case domain.UnitMinutes:
		return now.Add(time.Duration(n) * time.Minute)
	case domain.UnitDays:
		return now.Add(time.Duration(n) * 24 * time.Hour)
	default:
		return now.Add(time.Duration(n) * time.Hour)
	}
}

// parseClock parses "HH:MM", defaulting to 12:00 when the string does
// not parse cleanly.
func parseClock(s string) (hour, minute int) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return defaultHour, defaultMinute
	}
	h, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
	m, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err1 != nil || err2 != nil || h < 0 || h > 23 || m < 0 || m > 59 {
		return defaultHour, defaultMinute
	}
	return h, m
}

// preferredWeekdays maps day names to sorted weekday numbers, dropping
// anything unrecognized.
func preferredWeekdays(names []string) []time.Weekday {
	var days []time.Weekday
	for _, name := range names {
		if d, ok := weekdayNames[strings.ToLower(strings.TrimSpace(name))]; ok {
			days = append(days, d)
		}
	}
	for i := 1; i < len(days); i++ {
		for j := i; j > 0 && days[j] < days[j-1]; j-- {
			days[j], days[j-1] = days[j-1], days[j]
		}
	}
	return days
}
