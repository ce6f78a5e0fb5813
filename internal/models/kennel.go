/*
Copyright (C) 2026 Open Shelter Collective

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import "time"

// Kennel is one physical enclosure with a fixed number of slots. Capacity is
// supplied by configuration and never touched by the timeline engine.
type Kennel struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex" json:"name"`
	Building  string    `gorm:"index" json:"building"`
	Capacity  int       `gorm:"not null;default:1" json:"capacity"`
	Species   Species   `gorm:"type:varchar(16)" json:"species"`
	Notes     string    `gorm:"type:text" json:"notes"`
	Active    bool      `gorm:"default:true" json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Stay records one animal occupying one kennel for a span of time. EndsAt is
// NULL while the animal is still in the kennel. Lane assignment is a view
// concern and deliberately has no column here: the timeline recomputes it on
// every request.
type Stay struct {
	ID            string     `gorm:"type:uuid;primaryKey" json:"id"`
	KennelID      string     `gorm:"type:uuid;index:idx_stays_kennel" json:"kennel_id"`
	Kennel        Kennel     `gorm:"foreignKey:KennelID" json:"-"`
	AnimalID      string     `gorm:"type:uuid;index" json:"animal_id"`
	Animal        Animal     `gorm:"foreignKey:AnimalID" json:"-"`
	ReservationID *string    `gorm:"type:uuid;index" json:"reservation_id,omitempty"`
	StartsAt      time.Time  `gorm:"index:idx_stays_kennel" json:"starts_at"`
	EndsAt        *time.Time `json:"ends_at,omitempty"`
	Notes         string     `gorm:"type:text" json:"notes"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}
