/*
Copyright (C) 2026 Open Shelter Collective

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package migration

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/openshelter/shelterboard/internal/models"
)

// SQLiteImporter imports from a flat single-file SQLite export. The expected
// schema has three tables: kennels(name, building, capacity, notes),
// animals(name, species, breed, sex, microchip, born_at, intake_at, notes)
// and stays(animal_id, kennel_id, starts_at, ends_at, notes), with dates as
// ISO 8601 text.
type SQLiteImporter struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// NewSQLiteImporter creates a new SQLite export importer.
func NewSQLiteImporter(db *gorm.DB, logger zerolog.Logger) *SQLiteImporter {
	return &SQLiteImporter{
		db:     db,
		logger: logger.With().Str("importer", "sqlite_export").Logger(),
	}
}

// Validate checks if the import can proceed.
func (s *SQLiteImporter) Validate(ctx context.Context, options Options) error {
	var errs ValidationErrors

	if options.SQLitePath == "" {
		errs = append(errs, ValidationError{Field: "sqlite_path", Message: "path to sqlite export file is required"})
	} else if _, err := os.Stat(options.SQLitePath); err != nil {
		errs = append(errs, ValidationError{
			Field:   "sqlite_path",
			Message: fmt.Sprintf("export file not accessible: %v", err),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Import imports kennels, animals and stays from the export file.
func (s *SQLiteImporter) Import(ctx context.Context, options Options, progress ProgressCallback) (*Result, error) {
	s.logger.Info().
		Str("path", options.SQLitePath).
		Bool("dry_run", options.DryRun).
		Msg("starting sqlite export import")

	run := newImportRun(s.db, s.logger, options, progress)

	run.report(1, 5, "Opening export file")
	legacyDB, err := sql.Open("sqlite3", options.SQLitePath+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("open export file: %w", err)
	}
	defer legacyDB.Close()

	if err := legacyDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("read export file: %w", err)
	}

	if !options.SkipKennels {
		run.report(2, 5, "Importing kennels")
		if err := s.importKennels(ctx, legacyDB, run); err != nil {
			return nil, fmt.Errorf("import kennels: %w", err)
		}
	}

	if !options.SkipAnimals {
		run.report(3, 5, "Importing animals")
		if err := s.importAnimals(ctx, legacyDB, run); err != nil {
			return nil, fmt.Errorf("import animals: %w", err)
		}
	}

	if !options.SkipStays {
		run.report(4, 5, "Importing stays")
		if err := s.importStays(ctx, legacyDB, run); err != nil {
			return nil, fmt.Errorf("import stays: %w", err)
		}
	}

	run.report(5, 5, "Import completed")

	s.logger.Info().
		Int("animals", run.result.AnimalsImported).
		Int("kennels", run.result.KennelsImported).
		Int("stays", run.result.StaysImported).
		Msg("sqlite export import completed")

	return run.result, nil
}

func (s *SQLiteImporter) importKennels(ctx context.Context, legacyDB *sql.DB, run *importRun) error {
	rows, err := legacyDB.QueryContext(ctx, `
		SELECT id, name, building, capacity, notes
		FROM kennels
		ORDER BY id
	`)
	if err != nil {
		return fmt.Errorf("query kennels: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var legacyID int64
		var name string
		var building, notes sql.NullString
		var capacity sql.NullInt64

		if err := rows.Scan(&legacyID, &name, &building, &capacity, &notes); err != nil {
			s.logger.Error().Err(err).Msg("scan kennel")
			run.warnf("skipped unreadable kennel row: %v", err)
			continue
		}

		slots := int(capacity.Int64)
		if slots <= 0 {
			slots = run.options.DefaultCapacity
		}
		if slots <= 0 {
			slots = 1
		}

		kennel := &models.Kennel{
			ID:       uuid.New().String(),
			Name:     name,
			Building: building.String,
			Capacity: slots,
			Notes:    notes.String,
			Active:   true,
		}

		if err := run.createKennel(ctx, legacyID, kennel); err != nil {
			s.logger.Error().Err(err).Str("name", name).Msg("create kennel")
			run.warnf("failed to import kennel %q: %v", name, err)
		}
	}

	return rows.Err()
}

func (s *SQLiteImporter) importAnimals(ctx context.Context, legacyDB *sql.DB, run *importRun) error {
	rows, err := legacyDB.QueryContext(ctx, `
		SELECT id, name, species, breed, sex, microchip, born_at, intake_at, notes
		FROM animals
		ORDER BY id
	`)
	if err != nil {
		return fmt.Errorf("query animals: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var legacyID int64
		var name string
		var species, breed, sex, chip, born, intake, notes sql.NullString

		if err := rows.Scan(&legacyID, &name, &species, &breed, &sex, &chip, &born, &intake, &notes); err != nil {
			s.logger.Error().Err(err).Msg("scan animal")
			run.warnf("skipped unreadable animal row: %v", err)
			continue
		}

		animal := &models.Animal{
			ID:         uuid.New().String(),
			Name:       name,
			Species:    legacySpecies(species.String),
			Breed:      breed.String,
			Sex:        sex.String,
			ChipNumber: chip.String,
			Status:     models.AnimalInShelter,
			Notes:      notes.String,
		}
		if t, ok := parseLegacyTime(born.String); ok {
			animal.BornAt = &t
		}
		if t, ok := parseLegacyTime(intake.String); ok {
			animal.IntakeAt = &t
		}

		if err := run.createAnimal(ctx, legacyID, animal); err != nil {
			s.logger.Error().Err(err).Str("name", name).Msg("create animal")
			run.warnf("failed to import animal %q: %v", name, err)
			continue
		}

		if run.result.AnimalsImported%100 == 0 {
			s.logger.Info().Int("count", run.result.AnimalsImported).Msg("imported animals")
		}
	}

	return rows.Err()
}

func (s *SQLiteImporter) importStays(ctx context.Context, legacyDB *sql.DB, run *importRun) error {
	rows, err := legacyDB.QueryContext(ctx, `
		SELECT id, animal_id, kennel_id, starts_at, ends_at, notes
		FROM stays
		ORDER BY starts_at
	`)
	if err != nil {
		return fmt.Errorf("query stays: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var legacyID, legacyAnimalID, legacyKennelID int64
		var starts string
		var ends, notes sql.NullString

		if err := rows.Scan(&legacyID, &legacyAnimalID, &legacyKennelID, &starts, &ends, &notes); err != nil {
			s.logger.Error().Err(err).Msg("scan stay")
			run.warnf("skipped unreadable stay row: %v", err)
			continue
		}

		animalID, ok := run.animalIDs[legacyAnimalID]
		if !ok {
			run.skip("stays_missing_animal")
			continue
		}
		kennelID, ok := run.kennelIDs[legacyKennelID]
		if !ok {
			run.skip("stays_missing_kennel")
			continue
		}

		startsAt, ok := parseLegacyTime(starts)
		if !ok {
			run.skip("stays_bad_start_date")
			run.warnf("stay %d has unparseable start date %q", legacyID, starts)
			continue
		}

		stay := &models.Stay{
			ID:       uuid.New().String(),
			KennelID: kennelID,
			AnimalID: animalID,
			StartsAt: startsAt,
			Notes:    notes.String,
		}
		if ends.Valid {
			if t, ok := parseLegacyTime(ends.String); ok {
				stay.EndsAt = &t
			}
		}
		if stay.EndsAt != nil && !stay.EndsAt.After(stay.StartsAt) {
			run.skip("stays_inverted_range")
			run.warnf("stay %d has end before start, skipped", legacyID)
			continue
		}

		if err := run.createStay(ctx, stay); err != nil {
			s.logger.Error().Err(err).Int64("legacy_id", legacyID).Msg("create stay")
			run.warnf("failed to import stay %d: %v", legacyID, err)
		}
	}

	return rows.Err()
}

func legacySpecies(s string) models.Species {
	switch models.Species(s) {
	case models.SpeciesDog, models.SpeciesCat:
		return models.Species(s)
	default:
		return models.SpeciesOther
	}
}
