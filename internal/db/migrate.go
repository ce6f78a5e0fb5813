/*
Copyright (C) 2026 Open Shelter Collective

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/openshelter/shelterboard/internal/migration"
	"github.com/openshelter/shelterboard/internal/models"
)

// Migrate applies database schema migrations using GORM auto-migrate.
func Migrate(database *gorm.DB) error {
	if err := database.AutoMigrate(
		// Accounts and platform
		&models.User{},
		&models.APIKey{},
		&models.SystemSettings{},
		&models.AuditLog{},

		// Shelter records
		&models.Animal{},
		&models.Kennel{},
		&models.Stay{},

		// Hotel bookings
		&models.Reservation{},

		// Inventory
		&models.InventoryItem{},
		&models.StockMovement{},

		// Legacy imports
		&migration.Job{},
	); err != nil {
		return err
	}

	if err := applyPostgresReservationGuard(database); err != nil {
		return err
	}

	return nil
}

// applyPostgresReservationGuard keeps confirmed reservation windows sane at
// the booking layer. Kennel over-capacity is deliberately NOT rejected here:
// the timeline must render double-bookings with a conflict marker, so the
// database only guards the trivially broken case of an inverted window.
func applyPostgresReservationGuard(database *gorm.DB) error {
	if database.Dialector.Name() != "postgres" {
		return nil
	}

	stmt := `
ALTER TABLE reservations DROP CONSTRAINT IF EXISTS chk_reservation_window;
ALTER TABLE reservations ADD CONSTRAINT chk_reservation_window CHECK (ends_at > starts_at);
`
	if err := database.Exec(stmt).Error; err != nil {
		return fmt.Errorf("apply postgres reservation guard: %w", err)
	}

	return nil
}
