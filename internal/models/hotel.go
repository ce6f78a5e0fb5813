/*
Copyright (C) 2026 Open Shelter Collective

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import "time"

// ReservationStatus tracks a hotel booking through its lifecycle.
type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "pending"
	ReservationConfirmed ReservationStatus = "confirmed"
	ReservationCheckedIn ReservationStatus = "checked_in"
	ReservationCompleted ReservationStatus = "completed"
	ReservationCancelled ReservationStatus = "cancelled"
)

// Reservation is a hotel (boarding) booking for a customer's animal. An
// optional RRULE makes it recurring; the materializer expands occurrences
// into Stay rows for the booked kennel.
type Reservation struct {
	ID             string            `gorm:"type:uuid;primaryKey" json:"id"`
	KennelID       string            `gorm:"type:uuid;index" json:"kennel_id"`
	Kennel         Kennel            `gorm:"foreignKey:KennelID" json:"-"`
	AnimalID       string            `gorm:"type:uuid;index" json:"animal_id"`
	Animal         Animal            `gorm:"foreignKey:AnimalID" json:"-"`
	Status         ReservationStatus `gorm:"type:varchar(16);index" json:"status"`
	StartsAt       time.Time         `json:"starts_at"`
	EndsAt         time.Time         `json:"ends_at"`
	RRule          string            `json:"rrule"`
	MaterializedTo *time.Time        `json:"materialized_to,omitempty"`
	ContactName    string            `json:"contact_name"`
	ContactPhone   string            `json:"contact_phone"`
	Notes          string            `gorm:"type:text" json:"notes"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// Recurring reports whether the reservation repeats.
func (r *Reservation) Recurring() bool {
	return r.RRule != ""
}

// Duration is the length of a single occurrence.
func (r *Reservation) Duration() time.Duration {
	return r.EndsAt.Sub(r.StartsAt)
}
