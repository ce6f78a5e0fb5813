/*
Copyright (C) 2026 Open Shelter Collective

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/openshelter/shelterboard/internal/models"
)

var (
	passwdEmail    string
	passwdPassword string
)

var passwdCmd = &cobra.Command{
	Use:   "reset-password",
	Short: "Reset a user's password",
	RunE:  runResetPassword,
}

func init() {
	passwdCmd.Flags().StringVar(&passwdEmail, "email", "", "User email address (required)")
	passwdCmd.Flags().StringVar(&passwdPassword, "password", "", "New password (required)")
	passwdCmd.MarkFlagRequired("email")
	passwdCmd.MarkFlagRequired("password")
	rootCmd.AddCommand(passwdCmd)
}

func runResetPassword(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	database, err := initDatabase()
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}

	var user models.User
	err = database.First(&user, "email = ?", passwdEmail).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("no user with email %s", passwdEmail)
	}
	if err != nil {
		return fmt.Errorf("look up user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(passwdPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	user.Password = string(hash)
	if err := database.Save(&user).Error; err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	logger.Info().Str("email", user.Email).Msg("password reset")
	fmt.Printf("Password for %s has been reset.\n", user.Email)
	return nil
}
