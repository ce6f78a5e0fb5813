/*
Copyright (C) 2026 Open Shelter Collective

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package migration

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/openshelter/shelterboard/internal/models"
)

// ASMImporter imports from an Animal Shelter Manager (ASM3) Postgres database.
type ASMImporter struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// NewASMImporter creates a new ASM importer.
func NewASMImporter(db *gorm.DB, logger zerolog.Logger) *ASMImporter {
	return &ASMImporter{
		db:     db,
		logger: logger.With().Str("importer", "asm").Logger(),
	}
}

// Validate checks if the import can proceed.
func (a *ASMImporter) Validate(ctx context.Context, options Options) error {
	var errs ValidationErrors

	if options.ASMDBHost == "" {
		errs = append(errs, ValidationError{Field: "asm_db_host", Message: "database host is required"})
	}
	if options.ASMDBName == "" {
		errs = append(errs, ValidationError{Field: "asm_db_name", Message: "database name is required"})
	}
	if options.ASMDBUser == "" {
		errs = append(errs, ValidationError{Field: "asm_db_user", Message: "database user is required"})
	}

	if len(errs) == 0 {
		legacyDB, err := sql.Open("postgres", asmDSN(options))
		if err == nil {
			err = legacyDB.PingContext(ctx)
			legacyDB.Close()
		}
		if err != nil {
			errs = append(errs, ValidationError{
				Field:   "asm_db_host",
				Message: fmt.Sprintf("failed to connect to ASM database: %v", err),
			})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Import imports kennels, animals and open stays from ASM.
func (a *ASMImporter) Import(ctx context.Context, options Options, progress ProgressCallback) (*Result, error) {
	dsn := asmDSN(options)

	a.logger.Info().
		Str("dsn", maskDSN(dsn)).
		Bool("dry_run", options.DryRun).
		Msg("starting ASM import")

	run := newImportRun(a.db, a.logger, options, progress)

	run.report(1, 5, "Connecting to ASM database")
	legacyDB, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to asm db: %w", err)
	}
	defer legacyDB.Close()

	if err := legacyDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping asm db: %w", err)
	}

	if !options.SkipKennels {
		run.report(2, 5, "Importing kennels")
		if err := a.importKennels(ctx, legacyDB, run); err != nil {
			return nil, fmt.Errorf("import kennels: %w", err)
		}
	}

	if !options.SkipAnimals {
		run.report(3, 5, "Importing animals")
		if err := a.importAnimals(ctx, legacyDB, run); err != nil {
			return nil, fmt.Errorf("import animals: %w", err)
		}
	}

	if !options.SkipStays {
		run.report(4, 5, "Importing open stays")
		if err := a.importOpenStays(ctx, legacyDB, run); err != nil {
			return nil, fmt.Errorf("import stays: %w", err)
		}
	}

	run.report(5, 5, "Import completed")

	a.logger.Info().
		Int("animals", run.result.AnimalsImported).
		Int("kennels", run.result.KennelsImported).
		Int("stays", run.result.StaysImported).
		Msg("ASM import completed")

	return run.result, nil
}

// importKennels imports shelter locations from internallocation. ASM stores
// per-location units as a newline-separated list; the unit count becomes the
// kennel capacity.
func (a *ASMImporter) importKennels(ctx context.Context, legacyDB *sql.DB, run *importRun) error {
	rows, err := legacyDB.QueryContext(ctx, `
		SELECT id, locationname, locationdescription, units
		FROM internallocation
		ORDER BY id
	`)
	if err != nil {
		return fmt.Errorf("query locations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var legacyID int64
		var name string
		var description, units sql.NullString

		if err := rows.Scan(&legacyID, &name, &description, &units); err != nil {
			a.logger.Error().Err(err).Msg("scan location")
			run.warnf("skipped unreadable location row: %v", err)
			continue
		}

		capacity := run.options.DefaultCapacity
		if capacity <= 0 {
			capacity = 1
		}
		if units.Valid {
			if n := countASMUnits(units.String); n > 0 {
				capacity = n
			}
		}

		kennel := &models.Kennel{
			ID:       uuid.New().String(),
			Name:     name,
			Capacity: capacity,
			Notes:    description.String,
			Active:   true,
		}

		if err := run.createKennel(ctx, legacyID, kennel); err != nil {
			a.logger.Error().Err(err).Str("name", name).Msg("create kennel")
			run.warnf("failed to import location %q: %v", name, err)
		}
	}

	return rows.Err()
}

// importAnimals imports the animal table. Archived animals come along too so
// the historical record stays queryable.
func (a *ASMImporter) importAnimals(ctx context.Context, legacyDB *sql.DB, run *importRun) error {
	rows, err := legacyDB.QueryContext(ctx, `
		SELECT id, animalname, speciesid, breedname, sex, identichipnumber,
		       dateofbirth, datebroughtin, deceaseddate, archived, animalcomments
		FROM animal
		ORDER BY id
	`)
	if err != nil {
		return fmt.Errorf("query animals: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var legacyID int64
		var name string
		var speciesID, sex sql.NullInt64
		var breed, chip, comments sql.NullString
		var born, broughtIn, deceased sql.NullTime
		var archived int

		if err := rows.Scan(&legacyID, &name, &speciesID, &breed, &sex, &chip,
			&born, &broughtIn, &deceased, &archived, &comments); err != nil {
			a.logger.Error().Err(err).Msg("scan animal")
			run.warnf("skipped unreadable animal row: %v", err)
			continue
		}

		animal := &models.Animal{
			ID:         uuid.New().String(),
			Name:       name,
			Species:    asmSpecies(speciesID),
			Breed:      breed.String,
			Sex:        asmSex(sex),
			ChipNumber: chip.String,
			Status:     asmStatus(archived, deceased),
			Notes:      comments.String,
		}
		if born.Valid {
			t := born.Time
			animal.BornAt = &t
		}
		if broughtIn.Valid {
			t := broughtIn.Time
			animal.IntakeAt = &t
		}
		if deceased.Valid {
			t := deceased.Time
			animal.OutcomeAt = &t
		}

		if err := run.createAnimal(ctx, legacyID, animal); err != nil {
			a.logger.Error().Err(err).Str("name", name).Msg("create animal")
			run.warnf("failed to import animal %q: %v", name, err)
			continue
		}

		if run.result.AnimalsImported%100 == 0 {
			a.logger.Info().Int("count", run.result.AnimalsImported).Msg("imported animals")
		}
	}

	return rows.Err()
}

// importOpenStays creates an open stay for every animal still on shelter,
// placed in its current location.
func (a *ASMImporter) importOpenStays(ctx context.Context, legacyDB *sql.DB, run *importRun) error {
	rows, err := legacyDB.QueryContext(ctx, `
		SELECT id, shelterlocation, mostrecententrydate
		FROM animal
		WHERE archived = 0 AND deceaseddate IS NULL
		ORDER BY id
	`)
	if err != nil {
		return fmt.Errorf("query on-shelter animals: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var legacyAnimalID int64
		var legacyLocationID sql.NullInt64
		var entered sql.NullTime

		if err := rows.Scan(&legacyAnimalID, &legacyLocationID, &entered); err != nil {
			a.logger.Error().Err(err).Msg("scan on-shelter animal")
			run.warnf("skipped unreadable stay row: %v", err)
			continue
		}

		animalID, ok := run.animalIDs[legacyAnimalID]
		if !ok {
			run.skip("stays_missing_animal")
			continue
		}
		kennelID, ok := run.kennelIDs[legacyLocationID.Int64]
		if !legacyLocationID.Valid || !ok {
			run.skip("stays_missing_kennel")
			continue
		}

		startsAt := time.Now()
		if entered.Valid {
			startsAt = entered.Time
		}

		stay := &models.Stay{
			ID:       uuid.New().String(),
			KennelID: kennelID,
			AnimalID: animalID,
			StartsAt: startsAt,
		}

		if err := run.createStay(ctx, stay); err != nil {
			a.logger.Error().Err(err).Int64("legacy_animal_id", legacyAnimalID).Msg("create stay")
			run.warnf("failed to import stay for legacy animal %d: %v", legacyAnimalID, err)
		}
	}

	return rows.Err()
}

func asmDSN(options Options) string {
	port := options.ASMDBPort
	if port == 0 {
		port = 5432
	}
	return fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=disable",
		options.ASMDBHost, port, options.ASMDBName, options.ASMDBUser, options.ASMDBPassword)
}

// asmSpecies maps ASM species IDs. The base dataset ships 1=Dog, 2=Cat.
func asmSpecies(speciesID sql.NullInt64) models.Species {
	switch speciesID.Int64 {
	case 1:
		return models.SpeciesDog
	case 2:
		return models.SpeciesCat
	default:
		return models.SpeciesOther
	}
}

// asmSex maps ASM sex codes: 0=female, 1=male, 2=unknown.
func asmSex(sex sql.NullInt64) string {
	if !sex.Valid {
		return ""
	}
	switch sex.Int64 {
	case 0:
		return "female"
	case 1:
		return "male"
	default:
		return ""
	}
}

func asmStatus(archived int, deceased sql.NullTime) models.AnimalStatus {
	if deceased.Valid {
		return models.AnimalDeceased
	}
	if archived == 0 {
		return models.AnimalInShelter
	}
	return models.AnimalAdopted
}

// countASMUnits counts the units in an ASM location unit list, which is
// stored newline or comma separated.
func countASMUnits(units string) int {
	n := 0
	for _, u := range strings.FieldsFunc(units, func(r rune) bool {
		return r == '\n' || r == ','
	}) {
		if strings.TrimSpace(u) != "" {
			n++
		}
	}
	return n
}
