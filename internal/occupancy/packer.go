/*
Copyright (C) 2026 Open Shelter Collective

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package occupancy

// Pack partitions intervals into exactly capacity lanes so that intervals
// sharing a lane never overlap, except when no lane can take an interval at
// all: then it goes into the lane with the fewest overlapping neighbours
// (ties to the lowest index) with Conflicts set, so over-booked kennels are
// still fully rendered.
//
// Intervals are placed first-fit in input order; the caller controls the
// order and with it which interval gets flagged in degenerate cases. Inputs
// are not mutated; the returned lanes hold tagged copies.
//
// capacity == 0 is a defined degenerate input: one synthetic lane 0 holding
// every interval, all marked conflicting.
func Pack(capacity int, intervals []Interval) [][]Interval {
	if capacity <= 0 {
		lane := make([]Interval, 0, len(intervals))
		for _, iv := range intervals {
			iv.Lane = 0
			iv.Conflicts = true
			lane = append(lane, iv)
		}
		return [][]Interval{lane}
	}

	lanes := make([][]Interval, capacity)

	for _, iv := range intervals {
		placed := false
		for i := 0; i < capacity; i++ {
			if laneAccepts(lanes[i], iv) {
				iv.Lane = i
				iv.Conflicts = false
				lanes[i] = append(lanes[i], iv)
				placed = true
				break
			}
		}
		if placed {
			continue
		}

		// Every lane overlaps. Pick the least-bad one.
		best, bestOverlaps := 0, -1
		for i := 0; i < capacity; i++ {
			n := overlapCount(lanes[i], iv)
			if bestOverlaps == -1 || n < bestOverlaps {
				best, bestOverlaps = i, n
			}
		}
		iv.Lane = best
		iv.Conflicts = true
		lanes[best] = append(lanes[best], iv)
	}

	return lanes
}

// laneAccepts reports whether iv fits into lane without overlapping any
// resident. Same-occupant residents obey the identical overlap rule: an
// occupant may re-stay in the same lane, but cannot be in a kennel twice at
// once.
func laneAccepts(lane []Interval, iv Interval) bool {
	for _, resident := range lane {
		if Overlaps(resident, iv) {
			return false
		}
	}
	return true
}

func overlapCount(lane []Interval, iv Interval) int {
	n := 0
	for _, resident := range lane {
		if Overlaps(resident, iv) {
			n++
		}
	}
	return n
}
