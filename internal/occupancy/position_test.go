/*
Copyright (C) 2026 Open Shelter Collective

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package occupancy

import (
	"testing"
)

const cell = 24

func TestPosition(t *testing.T) {
	window := DateRange(day(1), day(30))

	tests := []struct {
		name        string
		iv          Interval
		wantOffset  int
		wantWidth   int
		wantOngoing bool
	}{
		{
			name:       "closed interval inside window",
			iv:         closed("a", "rex", 5, 10),
			wantOffset: 4 * cell,
			wantWidth:  5 * cell,
		},
		{
			name:       "start clamps to window left edge",
			iv:         closed("a", "rex", -10, 5),
			wantOffset: 0,
			wantWidth:  4 * cell,
		},
		{
			name:        "ongoing interval draws to window right edge",
			iv:          open("a", "rex", 1),
			wantOffset:  0,
			wantWidth:   29 * cell,
			wantOngoing: true,
		},
		{
			name:        "ongoing interval starting mid-window",
			iv:          open("a", "rex", 15),
			wantOffset:  14 * cell,
			wantWidth:   15 * cell,
			wantOngoing: true,
		},
		{
			name:       "zero-length interval keeps one visible cell",
			iv:         closed("a", "rex", 7, 7),
			wantOffset: 6 * cell,
			wantWidth:  cell,
		},
		{
			name:       "inverted interval keeps one visible cell",
			iv:         closed("a", "rex", 10, 5),
			wantOffset: 9 * cell,
			wantWidth:  cell,
		},
		{
			name:       "interval entirely after window still maps",
			iv:         closed("a", "rex", 40, 45),
			wantOffset: 39 * cell,
			wantWidth:  5 * cell,
		},
		{
			name:       "interval entirely before window still maps",
			iv:         closed("a", "rex", -20, -10),
			wantOffset: 0,
			wantWidth:  cell,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Position(tt.iv, window, cell)
			if got.Offset != tt.wantOffset {
				t.Errorf("Offset = %d, want %d", got.Offset, tt.wantOffset)
			}
			if got.Width != tt.wantWidth {
				t.Errorf("Width = %d, want %d", got.Width, tt.wantWidth)
			}
			if got.Ongoing != tt.wantOngoing {
				t.Errorf("Ongoing = %v, want %v", got.Ongoing, tt.wantOngoing)
			}
		})
	}
}

func TestPositionIdempotent(t *testing.T) {
	window := DateRange(day(1), day(30))
	iv := open("a", "rex", 12)

	first := Position(iv, window, cell)
	second := Position(iv, window, cell)
	if first != second {
		t.Errorf("Position not idempotent: %+v then %+v", first, second)
	}
}

func TestPositionMinimumWidth(t *testing.T) {
	window := DateRange(day(1), day(30))

	ivs := []Interval{
		closed("a", "rex", 5, 5),
		closed("b", "rex", 10, 4),
		closed("c", "rex", 1, 2),
		open("d", "rex", 30),
	}
	for _, iv := range ivs {
		if got := Position(iv, window, cell); got.Width < cell {
			t.Errorf("interval %s width = %d, below one cell (%d)", iv.ID, got.Width, cell)
		}
	}
}

func TestPositionEmptyWindow(t *testing.T) {
	got := Position(closed("a", "rex", 1, 5), nil, cell)
	if got.Offset != 0 || got.Width != cell {
		t.Errorf("empty window placement = %+v, want offset 0 width %d", got, cell)
	}
}
