/*
Copyright (C) 2026 Open Shelter Collective

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/openshelter/shelterboard/internal/db"
	"github.com/openshelter/shelterboard/internal/migration"
	"github.com/openshelter/shelterboard/internal/models"
)

var (
	resetForce     bool
	resetKeepUsers int
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset the database to a fresh state",
	Long: `Reset Shelterboard to a fresh state.

This command will:
- Drop all tables from the database (except optionally preserved users)
- Re-create empty tables

WARNING: This action is irreversible! All data will be lost.

Examples:
  # Interactive reset (will prompt for confirmation)
  shelterboard reset

  # Force reset without confirmation
  shelterboard reset --force

  # Reset but keep up to 3 admin users
  shelterboard reset --force --keep-users=3
`,
	RunE: runReset,
}

func init() {
	resetCmd.Flags().BoolVarP(&resetForce, "force", "f", false, "Skip confirmation prompt")
	resetCmd.Flags().IntVar(&resetKeepUsers, "keep-users", 0, "Number of admin users to preserve (0 = delete all)")
	rootCmd.AddCommand(resetCmd)
}

func runReset(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	if !resetForce {
		fmt.Println("\nWARNING: this will delete ALL Shelterboard data:")
		if resetKeepUsers > 0 {
			fmt.Printf("  - all users EXCEPT the first %d admin user(s)\n", resetKeepUsers)
		} else {
			fmt.Println("  - all users and API keys")
		}
		fmt.Println("  - all animals, kennels, and stays")
		fmt.Println("  - all hotel reservations")
		fmt.Println("  - all inventory and audit history")
		fmt.Println("\nThis action CANNOT be undone!")
		fmt.Print("\nType 'yes' to confirm reset: ")

		reader := bufio.NewReader(os.Stdin)
		response, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}
		if strings.TrimSpace(strings.ToLower(response)) != "yes" {
			fmt.Println("Reset cancelled.")
			return nil
		}
	}

	logger.Info().Int("keep_users", resetKeepUsers).Msg("starting database reset")

	database, err := db.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer func() { _ = db.Close(database) }()

	var preservedUsers []models.User
	if resetKeepUsers > 0 {
		database.Where("role = ?", models.RoleAdmin).
			Order("created_at ASC").
			Limit(resetKeepUsers).
			Find(&preservedUsers)

		for _, u := range preservedUsers {
			logger.Info().Str("user_id", u.ID).Str("email", u.Email).Msg("preserving user")
		}
	}

	// Drop in reverse dependency order.
	tables := []interface{}{
		&migration.Job{},
		&models.AuditLog{},
		&models.StockMovement{},
		&models.InventoryItem{},
		&models.Stay{},
		&models.Reservation{},
		&models.Animal{},
		&models.Kennel{},
		&models.SystemSettings{},
		&models.APIKey{},
		&models.User{},
	}

	logger.Info().Msg("dropping all tables")
	for _, table := range tables {
		if err := database.Migrator().DropTable(table); err != nil {
			logger.Debug().Err(err).Msg("drop table (may not exist)")
		}
	}

	logger.Info().Msg("creating fresh database schema")
	if err := db.Migrate(database); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	if len(preservedUsers) > 0 {
		logger.Info().Int("count", len(preservedUsers)).Msg("restoring preserved users")
		for _, u := range preservedUsers {
			u.UpdatedAt = u.CreatedAt
			if err := database.Create(&u).Error; err != nil {
				logger.Error().Err(err).Str("email", u.Email).Msg("failed to restore user")
			}
		}
	}

	logger.Info().Msg("reset complete")
	fmt.Println("\nShelterboard has been reset to a fresh state.")
	fmt.Println("Run 'shelterboard seed' to create an admin account, then 'shelterboard serve'.")
	return nil
}
