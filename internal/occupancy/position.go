/*
Copyright (C) 2026 Open Shelter Collective

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package occupancy

import "time"

// Placement is the grid geometry of one interval inside a view window.
// Offset and Width are measured in pixels of cellWidth-wide day cells.
type Placement struct {
	Offset  int  `json:"offset"`
	Width   int  `json:"width"`
	Ongoing bool `json:"ongoing"`
}

// Position maps an interval onto a day window produced by DateRange.
// The start offset clamps to 0 when the stay began before the window; open
// intervals draw out to the window's last day. Width is at least one cell so
// zero-length and malformed stays remain visible. Intervals entirely outside
// the window still map; callers pre-filter to the window, the mapper skips
// nothing. Empty windows map everything to cell zero.
func Position(iv Interval, window []time.Time, cellWidth int) Placement {
	p := Placement{Ongoing: iv.End == nil}
	if len(window) == 0 {
		p.Width = cellWidth
		return p
	}

	first, last := window[0], window[len(window)-1]

	offsetDays := daysBetween(first, iv.Start)
	if offsetDays < 0 {
		offsetDays = 0
	}
	p.Offset = offsetDays * cellWidth

	endDay := last
	if iv.End != nil {
		endDay = dayOf(*iv.End)
	}
	startClamped := dayOf(iv.Start)
	if startClamped.Before(first) {
		startClamped = first
	}

	p.Width = max(1, daysBetween(startClamped, endDay)) * cellWidth
	return p
}
