// Package schedule computes when a follow-up message may be sent under a
// business's timezone-local send window.
package schedule

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// Window is the scheduling slice of a send policy: a local daily window in
// a named timezone, a delay before the earliest eligible instant, and a
// horizon after which a follow-up is considered stale.
type Window struct {
	Timezone   string
	StartLocal string // HH:MM, 24h
	EndLocal   string // HH:MM, 24h
	Delay      time.Duration
	Horizon    time.Duration
}

var hhmmRe = regexp.MustCompile(`^([01]?\d|2[0-3]):([0-5]\d)$`)

func parseHM(hm string) (hour, minute int, err error) {
	m := hhmmRe.FindStringSubmatch(hm)
	if m == nil {
		return 0, 0, fmt.Errorf("invalid time string: %q", hm)
	}
	hour, _ = strconv.Atoi(m[1])
	minute, _ = strconv.Atoi(m[2])
	return hour, minute, nil
}

// ComputeScheduledAt returns the earliest instant at or after now+delay that
// falls inside the window's local daily bounds and within the horizon.
// ok is false when no such instant exists. An error means the window itself
// is unusable (unknown timezone or malformed HH:MM) and is distinct from
// "no valid time".
//
// Local bounds are resolved against the tz database, so DST transitions
// shift the absolute window correctly. At most one day-advance is attempted:
// when now+delay is past today's window close, tomorrow's window is tried,
// and if that exceeds the horizon the result is none.
func ComputeScheduledAt(w Window, now time.Time) (at time.Time, ok bool, err error) {
	loc, err := time.LoadLocation(w.Timezone)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("load timezone %q: %w", w.Timezone, err)
	}

	startH, startM, err := parseHM(w.StartLocal)
	if err != nil {
		return time.Time{}, false, err
	}
	endH, endM, err := parseHM(w.EndLocal)
	if err != nil {
		return time.Time{}, false, err
	}

	delay := w.Delay
	if delay < 0 {
		delay = 0
	}
	horizon := w.Horizon
	if horizon < time.Hour {
		horizon = time.Hour
	}

	earliest := now.Add(delay)
	latest := now.Add(horizon)

	day := earliest.In(loc)
	windowStart := time.Date(day.Year(), day.Month(), day.Day(), startH, startM, 0, 0, loc)
	windowEnd := time.Date(day.Year(), day.Month(), day.Day(), endH, endM, 0, 0, loc)

	// End at or before start means the window never opens.
	if !windowEnd.After(windowStart) {
		return time.Time{}, false, nil
	}

	// Past today's close: try tomorrow's window. The local date is re-derived
	// from earliest+24h rather than by adding a day to the date, so DST days
	// of 23 or 25 hours resolve through the tz database.
	if earliest.After(windowEnd) {
		next := earliest.Add(24 * time.Hour).In(loc)
		windowStart = time.Date(next.Year(), next.Month(), next.Day(), startH, startM, 0, 0, loc)
		windowEnd = time.Date(next.Year(), next.Month(), next.Day(), endH, endM, 0, 0, loc)
	}

	candidate := earliest
	if windowStart.After(candidate) {
		candidate = windowStart
	}

	if candidate.Before(windowStart) || candidate.After(windowEnd) {
		return time.Time{}, false, nil
	}
	if candidate.After(latest) {
		return time.Time{}, false, nil
	}

	return candidate, true, nil
}
