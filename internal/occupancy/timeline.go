/*
Copyright (C) 2026 Open Shelter Collective

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package occupancy

import "time"

// Segment is one stay placed on the grid: the packed interval plus its
// geometry.
type Segment struct {
	ID         string     `json:"id"`
	OccupantID string     `json:"occupant_id"`
	Start      time.Time  `json:"start"`
	End        *time.Time `json:"end,omitempty"`
	Lane       int        `json:"lane"`
	Conflicts  bool       `json:"conflicts"`
	Placement
}

// Row is the renderable timeline of a single kennel.
type Row struct {
	KennelID string      `json:"kennel_id"`
	Name     string      `json:"name"`
	Capacity int         `json:"capacity"`
	Lanes    [][]Segment `json:"lanes"`
}

// KennelStays is the assembler's per-kennel input.
type KennelStays struct {
	KennelID  string
	Name      string
	Capacity  int
	Intervals []Interval
}

// Timeline is one full view: the day window, per-kennel rows, and the
// position of the now marker in grid pixels (-1 when now is outside the
// window).
type Timeline struct {
	Days      []time.Time `json:"days"`
	CellWidth int         `json:"cell_width"`
	NowOffset int         `json:"now_offset"`
	Rows      []Row       `json:"rows"`
}

// Assemble packs each kennel's stays into lanes and maps every interval
// onto the window. Data flows one way: intervals -> Pack -> Position; the
// assembler holds no state between calls and each kennel is independent, so
// callers may fan kennels out to workers if they want to.
func Assemble(kennels []KennelStays, from, to time.Time, cellWidth int, now time.Time) Timeline {
	window := DateRange(from, to)

	tl := Timeline{
		Days:      window,
		CellWidth: cellWidth,
		NowOffset: nowOffset(window, cellWidth, now),
		Rows:      make([]Row, 0, len(kennels)),
	}

	for _, k := range kennels {
		packed := Pack(k.Capacity, k.Intervals)
		row := Row{
			KennelID: k.KennelID,
			Name:     k.Name,
			Capacity: k.Capacity,
			Lanes:    make([][]Segment, len(packed)),
		}
		for i, lane := range packed {
			row.Lanes[i] = make([]Segment, 0, len(lane))
			for _, iv := range lane {
				row.Lanes[i] = append(row.Lanes[i], Segment{
					ID:         iv.ID,
					OccupantID: iv.OccupantID,
					Start:      iv.Start,
					End:        iv.End,
					Lane:       iv.Lane,
					Conflicts:  iv.Conflicts,
					Placement:  Position(iv, window, cellWidth),
				})
			}
		}
		tl.Rows = append(tl.Rows, row)
	}

	return tl
}

// nowOffset places the today marker, or -1 when now falls outside the
// window.
func nowOffset(window []time.Time, cellWidth int, now time.Time) int {
	if len(window) == 0 {
		return -1
	}
	d := daysBetween(window[0], now)
	if d < 0 || d >= len(window) {
		return -1
	}
	return d * cellWidth
}
