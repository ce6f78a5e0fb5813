/*
Copyright (C) 2026 Open Shelter Collective

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package occupancy implements the kennel timeline engine: lane packing of
// stay intervals, calendar window expansion, and grid geometry mapping.
// Everything in this package is a pure in-memory computation; callers supply
// stays and capacities and render the result.
package occupancy

import "time"

// Interval is one stay of one occupant in one kennel. End is nil while the
// occupant has not checked out.
type Interval struct {
	ID         string
	OccupantID string
	Start      time.Time
	End        *time.Time

	// Assigned by Pack. Lane is in [0, capacity); Conflicts is true when the
	// interval could not be placed without overlapping a lane mate.
	Lane      int
	Conflicts bool
}

// Ongoing reports whether the interval has no end yet.
func (iv Interval) Ongoing() bool {
	return iv.End == nil
}

// Overlaps reports whether two intervals occupy a slot at the same time.
// Two open-ended intervals always overlap: neither is known to have vacated.
// An open interval overlaps a closed one iff the closed end is strictly
// after the open start. Two closed intervals use the half-open test.
// Symmetric in its arguments.
func Overlaps(a, b Interval) bool {
	switch {
	case a.End == nil && b.End == nil:
		return true
	case a.End == nil:
		return b.End.After(a.Start)
	case b.End == nil:
		return a.End.After(b.Start)
	default:
		return a.Start.Before(*b.End) && b.Start.Before(*a.End)
	}
}
