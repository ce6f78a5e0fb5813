/*
Copyright (C) 2026 Open Shelter Collective

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import "time"

// Species enumerates the animal kinds the shelter tracks.
type Species string

const (
	SpeciesDog   Species = "dog"
	SpeciesCat   Species = "cat"
	SpeciesOther Species = "other"
)

// AnimalStatus tracks where an animal currently is in the shelter flow.
type AnimalStatus string

const (
	AnimalInShelter AnimalStatus = "in_shelter"
	AnimalFostered  AnimalStatus = "fostered"
	AnimalAdopted   AnimalStatus = "adopted"
	AnimalBoarding  AnimalStatus = "boarding"
	AnimalDeceased  AnimalStatus = "deceased"
)

// Animal is one shelter resident or hotel guest.
type Animal struct {
	ID          string       `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string       `gorm:"index" json:"name"`
	Species     Species      `gorm:"type:varchar(16);index" json:"species"`
	Breed       string       `json:"breed"`
	Sex         string       `gorm:"type:varchar(8)" json:"sex"`
	CollarColor string       `gorm:"type:varchar(24)" json:"collar_color"`
	ChipNumber  string       `gorm:"index" json:"chip_number"`
	Status      AnimalStatus `gorm:"type:varchar(16);index" json:"status"`
	BornAt      *time.Time   `json:"born_at,omitempty"`
	IntakeAt    *time.Time   `json:"intake_at,omitempty"`
	OutcomeAt   *time.Time   `json:"outcome_at,omitempty"`
	OwnerName   string       `json:"owner_name"`
	OwnerPhone  string       `json:"owner_phone"`
	Notes       string       `gorm:"type:text" json:"notes"`
	PhotoKey    string       `json:"photo_key"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}
