/*
Copyright (C) 2026 Open Shelter Collective

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/openshelter/shelterboard/internal/models"
	"github.com/openshelter/shelterboard/internal/occupancy"
	"github.com/openshelter/shelterboard/internal/telemetry"
)

// defaultCellWidth is the grid cell width in pixels when the client does not
// ask for a specific one. Cached timelines are only stored for this width.
const defaultCellWidth = 32

// handleTimeline assembles the occupancy view: every active kennel's stays in
// the requested window, packed into lanes with conflicts flagged in-band.
func (a *API) handleTimeline(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	from, to, err := a.timelineWindow(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_window")
		return
	}

	cellWidth := defaultCellWidth
	if cw := r.URL.Query().Get("cell_width"); cw != "" {
		n, err := strconv.Atoi(cw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid_cell_width")
			return
		}
		cellWidth = n
	}

	if a.cache != nil && cellWidth == defaultCellWidth {
		var cached occupancy.Timeline
		if a.cache.GetTimeline(ctx, from, to, &cached) {
			writeJSON(w, http.StatusOK, cached)
			return
		}
	}

	start := time.Now()

	var kennels []models.Kennel
	if err := a.db.WithContext(ctx).Where("active = ?", true).
		Order("building, name").Find(&kennels).Error; err != nil {
		a.logger.Error().Err(err).Msg("timeline kennel query failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	// One query for the whole window; stays are grouped per kennel below.
	var stays []models.Stay
	if err := a.db.WithContext(ctx).
		Where("starts_at < ? AND (ends_at IS NULL OR ends_at > ?)", to.AddDate(0, 0, 1), from).
		Order("starts_at").Find(&stays).Error; err != nil {
		a.logger.Error().Err(err).Msg("timeline stay query failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	byKennel := make(map[string][]occupancy.Interval, len(kennels))
	for _, stay := range stays {
		byKennel[stay.KennelID] = append(byKennel[stay.KennelID], occupancy.Interval{
			ID:         stay.ID,
			OccupantID: stay.AnimalID,
			Start:      stay.StartsAt,
			End:        stay.EndsAt,
		})
	}

	input := make([]occupancy.KennelStays, 0, len(kennels))
	for _, k := range kennels {
		input = append(input, occupancy.KennelStays{
			KennelID:  k.ID,
			Name:      k.Name,
			Capacity:  k.Capacity,
			Intervals: byKennel[k.ID],
		})
	}

	timeline := occupancy.Assemble(input, from, to, cellWidth, time.Now())

	conflicts := 0
	for _, row := range timeline.Rows {
		for _, lane := range row.Lanes {
			for _, seg := range lane {
				if seg.Conflicts {
					conflicts++
				}
			}
		}
	}

	telemetry.TimelineAssemblyDuration.Observe(time.Since(start).Seconds())
	telemetry.TimelineStays.Set(float64(len(stays)))
	telemetry.TimelineConflicts.Set(float64(conflicts))

	if a.cache != nil && cellWidth == defaultCellWidth {
		_ = a.cache.SetTimeline(ctx, from, to, timeline)
	}

	writeJSON(w, http.StatusOK, timeline)
}

// timelineWindow resolves the requested view window, defaulting to a window
// around today sized by the configured timeline days.
func (a *API) timelineWindow(r *http.Request) (time.Time, time.Time, error) {
	days := 30
	if settings, ok := a.loadSettings(r); ok && settings.TimelineDays > 0 {
		days = settings.TimelineDays
	}

	now := time.Now()
	from := now.AddDate(0, 0, -7)
	to := from.AddDate(0, 0, days)

	if fromStr := r.URL.Query().Get("from"); fromStr != "" {
		t, err := time.Parse("2006-01-02", fromStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		from = t
		to = from.AddDate(0, 0, days)
	}
	if toStr := r.URL.Query().Get("to"); toStr != "" {
		t, err := time.Parse("2006-01-02", toStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		to = t
	}

	return from, to, nil
}
