/*
Copyright (C) 2026 Open Shelter Collective

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package occupancy

import "testing"

func flatten(lanes [][]Interval) []Interval {
	var all []Interval
	for _, lane := range lanes {
		all = append(all, lane...)
	}
	return all
}

func findInterval(t *testing.T, lanes [][]Interval, id string) Interval {
	t.Helper()
	for _, iv := range flatten(lanes) {
		if iv.ID == id {
			return iv
		}
	}
	t.Fatalf("interval %q not found in packed lanes", id)
	return Interval{}
}

func TestPackNonOverlappingShareLane(t *testing.T) {
	lanes := Pack(1, []Interval{
		closed("a", "rex", 1, 5),
		closed("b", "bella", 10, 15),
	})

	if len(lanes) != 1 {
		t.Fatalf("got %d lanes, want 1", len(lanes))
	}
	if len(lanes[0]) != 2 {
		t.Fatalf("lane 0 holds %d intervals, want 2", len(lanes[0]))
	}
	for _, iv := range lanes[0] {
		if iv.Lane != 0 || iv.Conflicts {
			t.Errorf("interval %s: lane=%d conflicts=%v, want lane=0 conflicts=false", iv.ID, iv.Lane, iv.Conflicts)
		}
	}
}

func TestPackForcedConflict(t *testing.T) {
	lanes := Pack(1, []Interval{
		closed("a", "rex", 1, 10),
		closed("b", "bella", 5, 15),
	})

	a := findInterval(t, lanes, "a")
	b := findInterval(t, lanes, "b")

	if a.Conflicts {
		t.Error("first interval should not conflict")
	}
	if !b.Conflicts {
		t.Error("second interval forced into an occupied lane should conflict")
	}
	if a.Lane != 0 || b.Lane != 0 {
		t.Errorf("lanes = %d, %d, want both 0", a.Lane, b.Lane)
	}
}

func TestPackThirdOverflowsCapacityTwo(t *testing.T) {
	lanes := Pack(2, []Interval{
		closed("a", "rex", 1, 10),
		closed("b", "bella", 2, 9),
		closed("c", "milo", 3, 8),
	})

	if len(lanes) != 2 {
		t.Fatalf("got %d lanes, want 2", len(lanes))
	}

	a := findInterval(t, lanes, "a")
	b := findInterval(t, lanes, "b")
	c := findInterval(t, lanes, "c")

	if a.Conflicts || b.Conflicts {
		t.Error("first two intervals fit without conflict")
	}
	if a.Lane != 0 || b.Lane != 1 {
		t.Errorf("first-fit lanes = %d, %d, want 0, 1", a.Lane, b.Lane)
	}
	if !c.Conflicts {
		t.Error("third simultaneous interval must be flagged conflicting")
	}
	// Both lanes hold one overlapping neighbour; ties break to lane 0.
	if c.Lane != 0 {
		t.Errorf("overflow lane = %d, want 0 (lowest index on tie)", c.Lane)
	}
}

func TestPackLeastBadLane(t *testing.T) {
	// Lane 0 collects two overlapping residents (second is itself a
	// conflict), lane 1 has one. The next overflow prefers lane 1.
	lanes := Pack(2, []Interval{
		closed("a", "rex", 1, 20),
		closed("b", "bella", 1, 20),
		closed("c", "milo", 1, 20),
		closed("d", "luna", 1, 20),
	})

	c := findInterval(t, lanes, "c")
	d := findInterval(t, lanes, "d")
	if c.Lane != 0 || !c.Conflicts {
		t.Errorf("third interval: lane=%d conflicts=%v, want lane=0 conflicts=true", c.Lane, c.Conflicts)
	}
	if d.Lane != 1 || !d.Conflicts {
		t.Errorf("fourth interval: lane=%d conflicts=%v, want lane=1 conflicts=true", d.Lane, d.Conflicts)
	}
}

func TestPackSameOccupantReStay(t *testing.T) {
	lanes := Pack(1, []Interval{
		closed("a", "rex", 1, 5),
		closed("b", "rex", 20, 25),
	})

	for _, iv := range flatten(lanes) {
		if iv.Conflicts {
			t.Errorf("non-overlapping re-stay of the same occupant flagged conflicting: %s", iv.ID)
		}
		if iv.Lane != 0 {
			t.Errorf("interval %s lane = %d, want 0", iv.ID, iv.Lane)
		}
	}
}

func TestPackSameOccupantDoubleBook(t *testing.T) {
	// The same animal recorded in one kennel twice at once is still a real
	// conflict.
	lanes := Pack(1, []Interval{
		closed("a", "rex", 1, 10),
		closed("b", "rex", 5, 15),
	})

	b := findInterval(t, lanes, "b")
	if !b.Conflicts {
		t.Error("overlapping same-occupant stays must conflict")
	}
}

func TestPackOngoingIntervals(t *testing.T) {
	lanes := Pack(2, []Interval{
		open("a", "rex", 1),
		open("b", "bella", 20),
	})

	a := findInterval(t, lanes, "a")
	b := findInterval(t, lanes, "b")
	if a.Lane == b.Lane {
		t.Error("two ongoing intervals always overlap and need separate lanes")
	}
	if a.Conflicts || b.Conflicts {
		t.Error("capacity 2 fits two ongoing intervals without conflict")
	}
}

func TestPackZeroCapacity(t *testing.T) {
	lanes := Pack(0, []Interval{closed("a", "rex", 1, 5)})

	if len(lanes) != 1 {
		t.Fatalf("got %d lanes, want 1 synthetic lane", len(lanes))
	}
	a := findInterval(t, lanes, "a")
	if a.Lane != 0 || !a.Conflicts {
		t.Errorf("lane=%d conflicts=%v, want lane=0 conflicts=true", a.Lane, a.Conflicts)
	}
}

func TestPackEmptyInput(t *testing.T) {
	lanes := Pack(3, nil)
	if len(lanes) != 3 {
		t.Fatalf("got %d lanes, want 3", len(lanes))
	}
	for i, lane := range lanes {
		if len(lane) != 0 {
			t.Errorf("lane %d not empty", i)
		}
	}
}

func TestPackCapacityConservation(t *testing.T) {
	inputs := []Interval{
		closed("a", "rex", 1, 10),
		closed("b", "bella", 5, 15),
		closed("c", "milo", 12, 20),
		open("d", "luna", 18),
		closed("e", "rex", 25, 28),
	}

	for capacity := 1; capacity <= 6; capacity++ {
		lanes := Pack(capacity, inputs)
		if len(lanes) != capacity {
			t.Errorf("capacity %d: got %d lanes", capacity, len(lanes))
		}
		if got := len(flatten(lanes)); got != len(inputs) {
			t.Errorf("capacity %d: %d intervals placed, want %d", capacity, got, len(inputs))
		}
		for i, lane := range lanes {
			for _, iv := range lane {
				if iv.Lane != i {
					t.Errorf("capacity %d: interval %s tagged lane %d but sits in lane %d", capacity, iv.ID, iv.Lane, i)
				}
			}
		}
	}
}

func TestPackNoConflictWhenCapacitySuffices(t *testing.T) {
	// At most two are simultaneously active.
	inputs := []Interval{
		closed("a", "rex", 1, 10),
		closed("b", "bella", 5, 15),
		closed("c", "milo", 11, 20),
	}

	for _, iv := range flatten(Pack(2, inputs)) {
		if iv.Conflicts {
			t.Errorf("interval %s flagged conflicting though capacity suffices", iv.ID)
		}
	}
}

func TestPackDoesNotMutateInput(t *testing.T) {
	inputs := []Interval{
		closed("a", "rex", 1, 10),
		closed("b", "bella", 5, 15),
	}

	Pack(1, inputs)

	for _, iv := range inputs {
		if iv.Lane != 0 || iv.Conflicts {
			t.Errorf("input interval %s mutated: lane=%d conflicts=%v", iv.ID, iv.Lane, iv.Conflicts)
		}
	}
}

func TestPackMalformedInterval(t *testing.T) {
	// end before start is tolerated, not rejected.
	lanes := Pack(1, []Interval{closed("a", "rex", 10, 5)})
	a := findInterval(t, lanes, "a")
	if a.Conflicts {
		t.Error("lone malformed interval should still place cleanly")
	}
}
