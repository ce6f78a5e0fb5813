/*
Copyright (C) 2026 Open Shelter Collective

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import "testing"

func TestLoadRequiresDSNAndSigningKey(t *testing.T) {
	t.Setenv("SHELTER_DB_DSN", "")
	t.Setenv("SHELTER_JWT_SIGNING_KEY", "")

	if _, err := Load(); err == nil {
		t.Fatal("Load() succeeded without SHELTER_DB_DSN")
	}

	t.Setenv("SHELTER_DB_DSN", "file:shelter.db")
	if _, err := Load(); err == nil {
		t.Fatal("Load() succeeded without SHELTER_JWT_SIGNING_KEY")
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SHELTER_DB_DSN", "file:shelter.db")
	t.Setenv("SHELTER_DB_BACKEND", "sqlite")
	t.Setenv("SHELTER_JWT_SIGNING_KEY", "test-key")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.HTTPPort != 8080 {
		t.Errorf("HTTPPort = %d, want 8080", cfg.HTTPPort)
	}
	if cfg.TimelineCellWidth != 24 {
		t.Errorf("TimelineCellWidth = %d, want 24", cfg.TimelineCellWidth)
	}
	if cfg.Environment != "development" {
		t.Errorf("Environment = %q, want development", cfg.Environment)
	}
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	t.Setenv("SHELTER_DB_DSN", "dsn")
	t.Setenv("SHELTER_JWT_SIGNING_KEY", "key")
	t.Setenv("SHELTER_DB_BACKEND", "oracle")

	if _, err := Load(); err == nil {
		t.Fatal("Load() accepted unknown database backend")
	}
}

func TestLoadProductionKeyLength(t *testing.T) {
	t.Setenv("SHELTER_DB_DSN", "dsn")
	t.Setenv("SHELTER_DB_BACKEND", "postgres")
	t.Setenv("SHELTER_ENV", "production")
	t.Setenv("SHELTER_JWT_SIGNING_KEY", "short")

	if _, err := Load(); err == nil {
		t.Fatal("Load() accepted a short signing key in production")
	}
}
