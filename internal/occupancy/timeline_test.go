/*
Copyright (C) 2026 Open Shelter Collective

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package occupancy

import (
	"testing"
	"time"
)

func TestAssemble(t *testing.T) {
	kennels := []KennelStays{
		{
			KennelID: "k1",
			Name:     "Run A",
			Capacity: 2,
			Intervals: []Interval{
				closed("a", "rex", 1, 10),
				closed("b", "bella", 5, 15),
				open("c", "milo", 12),
			},
		},
		{
			KennelID:  "k2",
			Name:      "Run B",
			Capacity:  1,
			Intervals: nil,
		},
	}

	tl := Assemble(kennels, day(1), day(30), cell, day(8))

	if len(tl.Days) != 30 {
		t.Fatalf("window has %d days, want 30", len(tl.Days))
	}
	if len(tl.Rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(tl.Rows))
	}
	if tl.NowOffset != 7*cell {
		t.Errorf("NowOffset = %d, want %d", tl.NowOffset, 7*cell)
	}

	runA := tl.Rows[0]
	if runA.KennelID != "k1" || runA.Capacity != 2 {
		t.Fatalf("row 0 = %+v, want kennel k1 capacity 2", runA)
	}
	if len(runA.Lanes) != 2 {
		t.Fatalf("row 0 has %d lanes, want 2", len(runA.Lanes))
	}

	total := 0
	for _, lane := range runA.Lanes {
		for _, seg := range lane {
			total++
			if seg.Width < cell {
				t.Errorf("segment %s width = %d, below one cell", seg.ID, seg.Width)
			}
			if seg.ID == "c" && !seg.Ongoing {
				t.Error("open stay not marked ongoing")
			}
		}
	}
	if total != 3 {
		t.Errorf("row 0 places %d segments, want 3", total)
	}

	runB := tl.Rows[1]
	if len(runB.Lanes) != 1 || len(runB.Lanes[0]) != 0 {
		t.Errorf("empty kennel row = %+v, want one empty lane", runB.Lanes)
	}
}

func TestAssembleNowMarker(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want int
	}{
		{"inside window", day(10), 9 * cell},
		{"first day", day(1), 0},
		{"last day", day(30), 29 * cell},
		{"before window", day(-5), -1},
		{"after window", day(40), -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tl := Assemble(nil, day(1), day(30), cell, tt.now)
			if tl.NowOffset != tt.want {
				t.Errorf("NowOffset = %d, want %d", tl.NowOffset, tt.want)
			}
		})
	}
}

func TestAssembleInvertedWindow(t *testing.T) {
	tl := Assemble([]KennelStays{{KennelID: "k1", Capacity: 1}}, day(30), day(1), cell, day(15))

	if len(tl.Days) != 0 {
		t.Errorf("inverted window produced %d days, want 0", len(tl.Days))
	}
	if tl.NowOffset != -1 {
		t.Errorf("NowOffset = %d, want -1 for empty window", tl.NowOffset)
	}
	// Rows still come back; an empty window means nothing to render, not an
	// error.
	if len(tl.Rows) != 1 {
		t.Errorf("got %d rows, want 1", len(tl.Rows))
	}
}

func TestAssembleOverbookedKennelKeepsAllStays(t *testing.T) {
	kennels := []KennelStays{{
		KennelID: "k1",
		Name:     "Run A",
		Capacity: 1,
		Intervals: []Interval{
			closed("a", "rex", 1, 10),
			closed("b", "bella", 5, 15),
			closed("c", "milo", 6, 12),
		},
	}}

	tl := Assemble(kennels, day(1), day(30), cell, day(8))

	segs := tl.Rows[0].Lanes[0]
	if len(segs) != 3 {
		t.Fatalf("over-booked kennel rendered %d stays, want all 3", len(segs))
	}
	conflicts := 0
	for _, seg := range segs {
		if seg.Conflicts {
			conflicts++
		}
	}
	if conflicts != 2 {
		t.Errorf("%d stays flagged conflicting, want 2", conflicts)
	}
}
