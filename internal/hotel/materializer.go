/*
Copyright (C) 2026 Open Shelter Collective

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package hotel

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/teambition/rrule-go"
	"gorm.io/gorm"

	"github.com/openshelter/shelterboard/internal/events"
	"github.com/openshelter/shelterboard/internal/models"
	"github.com/openshelter/shelterboard/internal/telemetry"
)

// Materializer expands recurring reservations into stay rows ahead of time
// so the occupancy board shows upcoming boarding occupancy. In multi-instance
// deployments only the elected leader runs the expansion.
type Materializer struct {
	db        *gorm.DB
	bus       events.EventBus
	logger    zerolog.Logger
	interval  time.Duration
	lookahead time.Duration
	isLeader  func() bool
}

// NewMaterializer creates a materializer. isLeader may be nil for
// single-instance deployments; the worker then always runs.
func NewMaterializer(db *gorm.DB, bus events.EventBus, logger zerolog.Logger, interval, lookahead time.Duration, isLeader func() bool) *Materializer {
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	if lookahead <= 0 {
		lookahead = 90 * 24 * time.Hour
	}
	return &Materializer{
		db:        db,
		bus:       bus,
		logger:    logger.With().Str("component", "materializer").Logger(),
		interval:  interval,
		lookahead: lookahead,
		isLeader:  isLeader,
	}
}

// Start runs the materializer loop until the context is cancelled.
func (m *Materializer) Start(ctx context.Context) {
	m.logger.Info().
		Dur("interval", m.interval).
		Dur("lookahead", m.lookahead).
		Msg("materializer starting")

	// Run once at startup, then on the ticker.
	m.tick(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info().Msg("materializer stopping")
			return
		case <-ticker.C:
			m.tick(ctx)
		}
	}
}

func (m *Materializer) tick(ctx context.Context) {
	if m.isLeader != nil && !m.isLeader() {
		return
	}

	telemetry.MaterializerTicks.Inc()

	if err := m.RunOnce(ctx); err != nil {
		telemetry.MaterializerErrors.Inc()
		m.logger.Error().Err(err).Msg("materializer run failed")
	}
}

// RunOnce expands all active reservations up to the lookahead horizon.
func (m *Materializer) RunOnce(ctx context.Context) error {
	now := time.Now()
	horizon := now.Add(m.lookahead)

	var reservations []models.Reservation
	err := m.db.WithContext(ctx).
		Where("status IN ?", []models.ReservationStatus{models.ReservationConfirmed, models.ReservationCheckedIn}).
		Where("materialized_to IS NULL OR materialized_to < ?", horizon).
		Find(&reservations).Error
	if err != nil {
		return err
	}

	for _, reservation := range reservations {
		count, err := m.materialize(ctx, &reservation, now, horizon)
		if err != nil {
			m.logger.Error().Err(err).
				Str("reservation_id", reservation.ID).
				Msg("failed to materialize reservation")
			telemetry.MaterializerErrors.Inc()
			continue
		}
		if count > 0 {
			telemetry.MaterializedStays.Add(float64(count))
			m.bus.Publish(events.EventReservationMaterialized, events.Payload{
				"resource_type": "reservation",
				"resource_id":   reservation.ID,
				"kennel_id":     reservation.KennelID,
				"stay_count":    count,
			})
		}
	}

	return nil
}

// materialize creates stay rows for occurrences of one reservation within
// the window and advances its high-water mark. Returns the number of stays
// created.
func (m *Materializer) materialize(ctx context.Context, reservation *models.Reservation, now, horizon time.Time) (int, error) {
	occurrences, err := m.occurrences(reservation, now, horizon)
	if err != nil {
		return 0, err
	}

	duration := reservation.Duration()
	created := 0

	for _, startsAt := range occurrences {
		var existing models.Stay
		err := m.db.WithContext(ctx).
			Where("reservation_id = ? AND starts_at = ?", reservation.ID, startsAt).
			First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return created, err
		}

		endsAt := startsAt.Add(duration)
		stay := models.Stay{
			ID:            uuid.NewString(),
			KennelID:      reservation.KennelID,
			AnimalID:      reservation.AnimalID,
			ReservationID: &reservation.ID,
			StartsAt:      startsAt,
			EndsAt:        &endsAt,
		}
		if err := m.db.WithContext(ctx).Create(&stay).Error; err != nil {
			return created, err
		}
		created++
	}

	if err := m.db.WithContext(ctx).Model(reservation).Update("materialized_to", horizon).Error; err != nil {
		return created, err
	}

	if created > 0 {
		m.logger.Info().
			Str("reservation_id", reservation.ID).
			Int("stays", created).
			Time("horizon", horizon).
			Msg("reservation materialized")
	}

	return created, nil
}

// occurrences evaluates the reservation's recurrence within the window.
// A non-recurring reservation has exactly one occurrence at its start.
func (m *Materializer) occurrences(reservation *models.Reservation, from, to time.Time) ([]time.Time, error) {
	if !reservation.Recurring() {
		if reservation.StartsAt.Before(to) && reservation.EndsAt.After(from) {
			return []time.Time{reservation.StartsAt}, nil
		}
		return nil, nil
	}

	rr, err := rrule.StrToRRule(reservation.RRule)
	if err != nil {
		return nil, err
	}
	rr.DTStart(reservation.StartsAt)

	return rr.Between(from, to, true), nil
}
