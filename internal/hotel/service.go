/*
Copyright (C) 2026 Open Shelter Collective

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package hotel manages boarding reservations for customer animals,
// including recurring bookings expanded by the materializer.
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
	"github.com/openshelter/shelterboard/internal/occupancy"
)

// ErrKennelNotFound is returned when the booked kennel doesn't exist.
var ErrKennelNotFound = errors.New("kennel not found")

// ErrAnimalNotFound is returned when the boarded animal doesn't exist.
var ErrAnimalNotFound = errors.New("animal not found")

// ErrInvalidRange is returned when a booking ends before it starts.
var ErrInvalidRange = errors.New("reservation must end after it starts")

// ErrInvalidRRule is returned for unparseable recurrence rules.
var ErrInvalidRRule = errors.New("invalid recurrence rule")

// ErrKennelFull is returned when the booking would overflow kennel capacity.
var ErrKennelFull = errors.New("kennel is fully booked for the requested window")

// ErrInvalidTransition is returned for disallowed status changes.
var ErrInvalidTransition = errors.New("invalid reservation status transition")

// Service handles boarding reservation lifecycle and validation.
type Service struct {
	db     *gorm.DB
	bus    events.EventBus
	logger zerolog.Logger
}

// NewService creates a hotel service.
func NewService(db *gorm.DB, bus events.EventBus, logger zerolog.Logger) *Service {
	return &Service{
		db:     db,
		bus:    bus,
		logger: logger.With().Str("component", "hotel").Logger(),
	}
}

// CreateParams describes a new boarding reservation.
type CreateParams struct {
	KennelID     string
	AnimalID     string
	StartsAt     time.Time
	EndsAt       time.Time
	RRule        string
	ContactName  string
	ContactPhone string
	Notes        string
}

// Create validates and stores a new reservation in pending state.
// Bookings that would force a capacity conflict are rejected up front;
// only walk-in stays may overbook a kennel.
func (s *Service) Create(ctx context.Context, params CreateParams) (*models.Reservation, error) {
	if !params.EndsAt.After(params.StartsAt) {
		return nil, ErrInvalidRange
	}
	if params.RRule != "" {
		if _, err := rrule.StrToRRule(params.RRule); err != nil {
			return nil, ErrInvalidRRule
		}
	}

	var kennel models.Kennel
	err := s.db.WithContext(ctx).First(&kennel, "id = ?", params.KennelID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrKennelNotFound
	}
	if err != nil {
		return nil, err
	}

	var animal models.Animal
	err = s.db.WithContext(ctx).First(&animal, "id = ?", params.AnimalID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAnimalNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := s.checkCapacity(ctx, &kennel, params.AnimalID, params.StartsAt, params.EndsAt); err != nil {
		return nil, err
	}

	reservation := models.Reservation{
		ID:           uuid.NewString(),
		KennelID:     params.KennelID,
		AnimalID:     params.AnimalID,
		Status:       models.ReservationPending,
		StartsAt:     params.StartsAt,
		EndsAt:       params.EndsAt,
		RRule:        params.RRule,
		ContactName:  params.ContactName,
		ContactPhone: params.ContactPhone,
		Notes:        params.Notes,
	}

	if err := s.db.WithContext(ctx).Create(&reservation).Error; err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("reservation_id", reservation.ID).
		Str("kennel_id", reservation.KennelID).
		Bool("recurring", reservation.Recurring()).
		Msg("reservation created")

	s.bus.Publish(events.EventReservationCreated, events.Payload{
		"resource_type": "reservation",
		"resource_id":   reservation.ID,
		"kennel_id":     reservation.KennelID,
		"animal_id":     reservation.AnimalID,
	})

	return &reservation, nil
}

// checkCapacity rejects a booking when adding it to the kennel's existing
// stays would force a lane conflict. The candidate interval is packed
// together with every stay overlapping the requested window.
func (s *Service) checkCapacity(ctx context.Context, kennel *models.Kennel, animalID string, start, end time.Time) error {
	var stays []models.Stay
	err := s.db.WithContext(ctx).
		Where("kennel_id = ?", kennel.ID).
		Where("starts_at < ? AND (ends_at IS NULL OR ends_at > ?)", end, start).
		Find(&stays).Error
	if err != nil {
		return err
	}

	intervals := make([]occupancy.Interval, 0, len(stays)+1)
	for _, stay := range stays {
		intervals = append(intervals, occupancy.Interval{
			ID:         stay.ID,
			OccupantID: stay.AnimalID,
			Start:      stay.StartsAt,
			End:        stay.EndsAt,
		})
	}
	candidateID := "candidate-" + uuid.NewString()
	candidateEnd := end
	intervals = append(intervals, occupancy.Interval{
		ID:         candidateID,
		OccupantID: animalID,
		Start:      start,
		End:        &candidateEnd,
	})

	lanes := occupancy.Pack(kennel.Capacity, intervals)
	for _, lane := range lanes {
		for _, iv := range lane {
			if iv.ID == candidateID && iv.Conflicts {
				return ErrKennelFull
			}
		}
	}
	return nil
}

// validTransitions maps each status to the statuses it may move to.
var validTransitions = map[models.ReservationStatus][]models.ReservationStatus{
	models.ReservationPending:   {models.ReservationConfirmed, models.ReservationCancelled},
	models.ReservationConfirmed: {models.ReservationCheckedIn, models.ReservationCancelled},
	models.ReservationCheckedIn: {models.ReservationCompleted},
	models.ReservationCompleted: {},
	models.ReservationCancelled: {},
}

func transitionAllowed(from, to models.ReservationStatus) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Get loads a reservation by ID.
func (s *Service) Get(ctx context.Context, id string) (*models.Reservation, error) {
	var reservation models.Reservation
	err := s.db.WithContext(ctx).First(&reservation, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &reservation, nil
}

// Confirm moves a pending reservation to confirmed.
func (s *Service) Confirm(ctx context.Context, id string) (*models.Reservation, error) {
	return s.transition(ctx, id, models.ReservationConfirmed, events.EventReservationConfirmed)
}

// CheckIn marks the animal as arrived and opens a stay for the first
// occurrence if the materializer hasn't created one yet.
func (s *Service) CheckIn(ctx context.Context, id string) (*models.Reservation, error) {
	reservation, err := s.transition(ctx, id, models.ReservationCheckedIn, events.EventReservationCheckedIn)
	if err != nil {
		return nil, err
	}

	var existing models.Stay
	err = s.db.WithContext(ctx).
		Where("reservation_id = ? AND starts_at = ?", reservation.ID, reservation.StartsAt).
		First(&existing).Error
	if err == nil {
		return reservation, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	endsAt := reservation.EndsAt
	stay := models.Stay{
		ID:            uuid.NewString(),
		KennelID:      reservation.KennelID,
		AnimalID:      reservation.AnimalID,
		ReservationID: &reservation.ID,
		StartsAt:      reservation.StartsAt,
		EndsAt:        &endsAt,
	}
	if err := s.db.WithContext(ctx).Create(&stay).Error; err != nil {
		return nil, err
	}

	s.bus.Publish(events.EventStayCreated, events.Payload{
		"resource_type": "stay",
		"resource_id":   stay.ID,
		"kennel_id":     stay.KennelID,
		"animal_id":     stay.AnimalID,
	})

	return reservation, nil
}

// CheckOut completes a checked-in reservation and closes its open stay.
func (s *Service) CheckOut(ctx context.Context, id string) (*models.Reservation, error) {
	reservation, err := s.transition(ctx, id, models.ReservationCompleted, events.EventReservationCheckedOut)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	err = s.db.WithContext(ctx).Model(&models.Stay{}).
		Where("reservation_id = ? AND (ends_at IS NULL OR ends_at > ?)", reservation.ID, now).
		Update("ends_at", now).Error
	if err != nil {
		return nil, err
	}

	return reservation, nil
}

// Cancel cancels a reservation and removes its future materialized stays.
// Past stays are kept for history.
func (s *Service) Cancel(ctx context.Context, id string, userID *string) (*models.Reservation, error) {
	reservation, err := s.transition(ctx, id, models.ReservationCancelled, events.EventReservationCancelled)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).
		Where("reservation_id = ? AND starts_at > ?", reservation.ID, time.Now()).
		Delete(&models.Stay{}).Error
	if err != nil {
		return nil, err
	}

	payload := events.Payload{
		"resource_type": "reservation",
		"resource_id":   reservation.ID,
		"kennel_id":     reservation.KennelID,
	}
	if userID != nil {
		payload["user_id"] = *userID
	}
	s.bus.Publish(events.EventAuditReservationCancel, payload)

	return reservation, nil
}

// transition applies a status change if the lifecycle allows it.
func (s *Service) transition(ctx context.Context, id string, to models.ReservationStatus, event events.EventType) (*models.Reservation, error) {
	var reservation models.Reservation
	err := s.db.WithContext(ctx).First(&reservation, "id = ?", id).Error
	if err != nil {
		return nil, err
	}

	if !transitionAllowed(reservation.Status, to) {
		return nil, ErrInvalidTransition
	}

	if err := s.db.WithContext(ctx).Model(&reservation).Update("status", to).Error; err != nil {
		return nil, err
	}
	reservation.Status = to

	s.logger.Info().
		Str("reservation_id", reservation.ID).
		Str("status", string(to)).
		Msg("reservation status changed")

	s.bus.Publish(event, events.Payload{
		"resource_type": "reservation",
		"resource_id":   reservation.ID,
		"status":        string(to),
	})

	return &reservation, nil
}
