/*
Copyright (C) 2026 Open Shelter Collective

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/openshelter/shelterboard/internal/models"
)

var (
	seedEmail    string
	seedPassword string
	seedName     string
	seedDemo     bool
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the initial admin account",
	Long:  "Create an admin user, and optionally a demo shelter with kennels, animals, and stays",
	RunE:  runSeed,
}

func init() {
	seedCmd.Flags().StringVar(&seedEmail, "email", "", "Admin email address (required)")
	seedCmd.Flags().StringVar(&seedPassword, "password", "", "Admin password (required)")
	seedCmd.Flags().StringVar(&seedName, "name", "Administrator", "Admin display name")
	seedCmd.Flags().BoolVar(&seedDemo, "demo", false, "Also create demo kennels, animals, and stays")
	seedCmd.MarkFlagRequired("email")
	seedCmd.MarkFlagRequired("password")
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	database, err := initDatabase()
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}

	var existing models.User
	err = database.First(&existing, "email = ?", seedEmail).Error
	if err == nil {
		return fmt.Errorf("user %s already exists", seedEmail)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("check existing user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(seedPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	admin := models.User{
		ID:       uuid.NewString(),
		Email:    seedEmail,
		Name:     seedName,
		Password: string(hash),
		Role:     models.RoleAdmin,
		Active:   true,
	}
	if err := database.Create(&admin).Error; err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}
	logger.Info().Str("email", admin.Email).Msg("admin user created")

	if seedDemo {
		if err := seedDemoData(database); err != nil {
			return fmt.Errorf("seed demo data: %w", err)
		}
		logger.Info().Msg("demo shelter created")
	}

	fmt.Printf("Admin account %s is ready. Start the server with 'shelterboard serve'.\n", seedEmail)
	return nil
}

func seedDemoData(database *gorm.DB) error {
	kennels := []models.Kennel{
		{ID: uuid.NewString(), Name: "A-1", Building: "A", Capacity: 1, Species: models.SpeciesDog, Active: true},
		{ID: uuid.NewString(), Name: "A-2", Building: "A", Capacity: 1, Species: models.SpeciesDog, Active: true},
		{ID: uuid.NewString(), Name: "B-1", Building: "B", Capacity: 4, Species: models.SpeciesCat, Active: true},
	}
	for i := range kennels {
		if err := database.Create(&kennels[i]).Error; err != nil {
			return err
		}
	}

	now := time.Now()
	intake := now.AddDate(0, 0, -14)
	animals := []models.Animal{
		{ID: uuid.NewString(), Name: "Rex", Species: models.SpeciesDog, Breed: "Shepherd mix", Sex: "male", Status: models.AnimalInShelter, IntakeAt: &intake},
		{ID: uuid.NewString(), Name: "Bella", Species: models.SpeciesDog, Breed: "Terrier", Sex: "female", Status: models.AnimalInShelter, IntakeAt: &intake},
		{ID: uuid.NewString(), Name: "Miso", Species: models.SpeciesCat, Breed: "Domestic shorthair", Sex: "female", Status: models.AnimalInShelter, IntakeAt: &intake},
	}
	for i := range animals {
		if err := database.Create(&animals[i]).Error; err != nil {
			return err
		}
	}

	stays := []models.Stay{
		{ID: uuid.NewString(), KennelID: kennels[0].ID, AnimalID: animals[0].ID, StartsAt: now.AddDate(0, 0, -14)},
		{ID: uuid.NewString(), KennelID: kennels[1].ID, AnimalID: animals[1].ID, StartsAt: now.AddDate(0, 0, -7)},
		{ID: uuid.NewString(), KennelID: kennels[2].ID, AnimalID: animals[2].ID, StartsAt: now.AddDate(0, 0, -3)},
	}
	for i := range stays {
		if err := database.Create(&stays[i]).Error; err != nil {
			return err
		}
	}

	return nil
}
