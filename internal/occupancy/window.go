/*
Copyright (C) 2026 Open Shelter Collective

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package occupancy

import (
	"math"
	"time"
)

// DateRange expands the inclusive [from, to] window into an ordered sequence
// of day markers at midnight, dropping any time-of-day on the bounds. An
// inverted window yields an empty sequence; downstream consumers treat that
// as nothing to render.
func DateRange(from, to time.Time) []time.Time {
	start := dayOf(from)
	end := dayOf(to)
	if end.Before(start) {
		return nil
	}

	days := make([]time.Time, 0, daysBetween(start, end)+1)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// dayOf truncates an instant to its calendar day in its own location.
func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// daysBetween counts whole calendar days from a to b. Negative when b is
// before a. Rounding absorbs DST-shortened and -lengthened days.
func daysBetween(a, b time.Time) int {
	return int(math.Round(dayOf(b).Sub(dayOf(a)).Hours() / 24))
}
