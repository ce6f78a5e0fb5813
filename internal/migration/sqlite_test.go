package migration

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/openshelter/shelterboard/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(&models.Kennel{}, &models.Animal{}, &models.Stay{}, &Job{}); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

// newLegacyExport writes a legacy export file with the flat schema the
// SQLite importer expects and returns its path.
func newLegacyExport(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "legacy.db")
	legacy, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("create legacy db: %v", err)
	}
	defer legacy.Close()

	stmts := []string{
		`CREATE TABLE kennels (id INTEGER PRIMARY KEY, name TEXT, building TEXT, capacity INTEGER, notes TEXT)`,
		`CREATE TABLE animals (id INTEGER PRIMARY KEY, name TEXT, species TEXT, breed TEXT, sex TEXT,
			microchip TEXT, born_at TEXT, intake_at TEXT, notes TEXT)`,
		`CREATE TABLE stays (id INTEGER PRIMARY KEY, animal_id INTEGER, kennel_id INTEGER,
			starts_at TEXT, ends_at TEXT, notes TEXT)`,

		`INSERT INTO kennels VALUES (1, 'Run A', 'Main', 2, 'big run')`,
		`INSERT INTO kennels VALUES (2, 'Cattery 1', 'Annex', 0, NULL)`,

		`INSERT INTO animals VALUES (10, 'Rex', 'dog', 'GSD', 'male', '985112003456789',
			'2020-04-01', '2025-11-12 09:30:00', NULL)`,
		`INSERT INTO animals VALUES (11, 'Mitzi', 'cat', '', 'female', '', '', '2026-01-05', 'shy')`,
		`INSERT INTO animals VALUES (12, 'Iggy', 'iguana', '', '', '', '', '', NULL)`,

		`INSERT INTO stays VALUES (100, 10, 1, '2025-11-12 09:30:00', NULL, NULL)`,
		`INSERT INTO stays VALUES (101, 11, 2, '2026-01-05', '2026-02-01', NULL)`,
		`INSERT INTO stays VALUES (102, 99, 1, '2026-01-10', NULL, NULL)`,
		`INSERT INTO stays VALUES (103, 11, 2, '2026-03-01', '2026-02-01', NULL)`,
	}
	for _, stmt := range stmts {
		if _, err := legacy.Exec(stmt); err != nil {
			t.Fatalf("seed legacy db: %v", err)
		}
	}
	return path
}

func TestSQLiteImporterRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	imp := NewSQLiteImporter(db, zerolog.Nop())

	options := Options{SQLitePath: newLegacyExport(t), DefaultCapacity: 4}
	if err := imp.Validate(ctx, options); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	result, err := imp.Import(ctx, options, nil)
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}

	if result.KennelsImported != 2 {
		t.Errorf("KennelsImported = %d, want 2", result.KennelsImported)
	}
	if result.AnimalsImported != 3 {
		t.Errorf("AnimalsImported = %d, want 3", result.AnimalsImported)
	}
	// Stay 102 references a missing animal, 103 has an inverted range.
	if result.StaysImported != 2 {
		t.Errorf("StaysImported = %d, want 2", result.StaysImported)
	}
	if result.Skipped["stays_missing_animal"] != 1 {
		t.Errorf("Skipped[stays_missing_animal] = %d, want 1", result.Skipped["stays_missing_animal"])
	}
	if result.Skipped["stays_inverted_range"] != 1 {
		t.Errorf("Skipped[stays_inverted_range] = %d, want 1", result.Skipped["stays_inverted_range"])
	}

	// Zero-capacity legacy kennel falls back to the configured default.
	var cattery models.Kennel
	if err := db.Where("name = ?", "Cattery 1").First(&cattery).Error; err != nil {
		t.Fatalf("find cattery: %v", err)
	}
	if cattery.Capacity != 4 {
		t.Errorf("cattery capacity = %d, want 4", cattery.Capacity)
	}

	// Unknown species maps to other.
	var iggy models.Animal
	if err := db.Where("name = ?", "Iggy").First(&iggy).Error; err != nil {
		t.Fatalf("find iggy: %v", err)
	}
	if iggy.Species != models.SpeciesOther {
		t.Errorf("iggy species = %q, want %q", iggy.Species, models.SpeciesOther)
	}

	// Rex's stay is open.
	var rex models.Animal
	if err := db.Where("name = ?", "Rex").First(&rex).Error; err != nil {
		t.Fatalf("find rex: %v", err)
	}
	var stay models.Stay
	if err := db.Where("animal_id = ?", rex.ID).First(&stay).Error; err != nil {
		t.Fatalf("find rex stay: %v", err)
	}
	if stay.EndsAt != nil {
		t.Errorf("rex stay EndsAt = %v, want nil", stay.EndsAt)
	}
}

func TestSQLiteImporterDryRun(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	imp := NewSQLiteImporter(db, zerolog.Nop())

	result, err := imp.Import(ctx, Options{SQLitePath: newLegacyExport(t), DryRun: true}, nil)
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if result.AnimalsImported != 3 {
		t.Errorf("AnimalsImported = %d, want 3", result.AnimalsImported)
	}

	var count int64
	db.Model(&models.Animal{}).Count(&count)
	if count != 0 {
		t.Errorf("animals persisted in dry run = %d, want 0", count)
	}
	db.Model(&models.Kennel{}).Count(&count)
	if count != 0 {
		t.Errorf("kennels persisted in dry run = %d, want 0", count)
	}
}

func TestSQLiteImporterIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	imp := NewSQLiteImporter(db, zerolog.Nop())
	options := Options{SQLitePath: newLegacyExport(t)}

	if _, err := imp.Import(ctx, options, nil); err != nil {
		t.Fatalf("first Import() error = %v", err)
	}
	second, err := imp.Import(ctx, options, nil)
	if err != nil {
		t.Fatalf("second Import() error = %v", err)
	}

	if second.KennelsImported != 0 {
		t.Errorf("second run KennelsImported = %d, want 0", second.KennelsImported)
	}
	if second.Skipped["kennels_already_present"] != 2 {
		t.Errorf("second run Skipped[kennels_already_present] = %d, want 2",
			second.Skipped["kennels_already_present"])
	}
	// Rex carries a chip number, so he dedupes. The chipless animals do not.
	if second.Skipped["animals_already_present"] != 1 {
		t.Errorf("second run Skipped[animals_already_present] = %d, want 1",
			second.Skipped["animals_already_present"])
	}

	var kennelCount int64
	db.Model(&models.Kennel{}).Count(&kennelCount)
	if kennelCount != 2 {
		t.Errorf("kennel count after rerun = %d, want 2", kennelCount)
	}
}

func TestSQLiteImporterValidate(t *testing.T) {
	ctx := context.Background()
	imp := NewSQLiteImporter(newTestDB(t), zerolog.Nop())

	if err := imp.Validate(ctx, Options{}); err == nil {
		t.Error("Validate() with empty options expected error, got nil")
	}
	if err := imp.Validate(ctx, Options{SQLitePath: "/nonexistent/legacy.db"}); err == nil {
		t.Error("Validate() with missing file expected error, got nil")
	}
}
