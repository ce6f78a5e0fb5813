/*
Copyright (C) 2026 Open Shelter Collective

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/openshelter/shelterboard/internal/events"
	"github.com/openshelter/shelterboard/internal/migration"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import data from other shelter management systems",
	Long:  "Import kennels, animals, and stays from ASM or a flat SQLite export",
}

var importASMCmd = &cobra.Command{
	Use:   "asm",
	Short: "Import from an Animal Shelter Manager database",
	Long:  "Import locations, animals, and open stays from an ASM PostgreSQL database",
	RunE:  runImportASM,
}

var importSQLiteCmd = &cobra.Command{
	Use:   "sqlite",
	Short: "Import from a SQLite export",
	Long:  "Import kennels, animals, and stays from a flat SQLite export file",
	RunE:  runImportSQLite,
}

// ASM import flags
var (
	asmDBHost      string
	asmDBPort      int
	asmDBName      string
	asmDBUser      string
	asmDBPassword  string
	asmSkipAnimals bool
	asmSkipKennels bool
	asmSkipStays   bool
	asmDryRun      bool
)

// SQLite import flags
var (
	sqlitePath            string
	sqliteDefaultCapacity int
	sqliteDryRun          bool
)

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.AddCommand(importASMCmd)
	importCmd.AddCommand(importSQLiteCmd)

	importASMCmd.Flags().StringVar(&asmDBHost, "db-host", "localhost", "ASM database host")
	importASMCmd.Flags().IntVar(&asmDBPort, "db-port", 5432, "ASM database port")
	importASMCmd.Flags().StringVar(&asmDBName, "db-name", "asm", "ASM database name")
	importASMCmd.Flags().StringVar(&asmDBUser, "db-user", "", "ASM database user (required)")
	importASMCmd.Flags().StringVar(&asmDBPassword, "db-password", "", "ASM database password")
	importASMCmd.Flags().BoolVar(&asmSkipAnimals, "skip-animals", false, "Skip animal import")
	importASMCmd.Flags().BoolVar(&asmSkipKennels, "skip-kennels", false, "Skip kennel import")
	importASMCmd.Flags().BoolVar(&asmSkipStays, "skip-stays", false, "Skip open stay import")
	importASMCmd.Flags().BoolVar(&asmDryRun, "dry-run", false, "Read the database without writing anything")
	importASMCmd.MarkFlagRequired("db-user")

	importSQLiteCmd.Flags().StringVar(&sqlitePath, "path", "", "Path to the SQLite export file (required)")
	importSQLiteCmd.Flags().IntVar(&sqliteDefaultCapacity, "default-capacity", 0, "Capacity for kennels without one in the export")
	importSQLiteCmd.Flags().BoolVar(&sqliteDryRun, "dry-run", false, "Read the export without writing anything")
	importSQLiteCmd.MarkFlagRequired("path")
}

func runImportASM(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	logger.Info().
		Str("db_host", asmDBHost).
		Str("db_name", asmDBName).
		Bool("dry_run", asmDryRun).
		Msg("starting ASM import")

	database, err := initDatabase()
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}

	options := migration.Options{
		DryRun:        asmDryRun,
		SkipAnimals:   asmSkipAnimals,
		SkipKennels:   asmSkipKennels,
		SkipStays:     asmSkipStays,
		ASMDBHost:     asmDBHost,
		ASMDBPort:     asmDBPort,
		ASMDBName:     asmDBName,
		ASMDBUser:     asmDBUser,
		ASMDBPassword: asmDBPassword,
	}

	return runImport(cmd.Context(), database, migration.SourceTypeASM,
		migration.NewASMImporter(database, logger), options)
}

func runImportSQLite(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	logger.Info().
		Str("path", sqlitePath).
		Bool("dry_run", sqliteDryRun).
		Msg("starting SQLite export import")

	database, err := initDatabase()
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}

	options := migration.Options{
		DryRun:          sqliteDryRun,
		SQLitePath:      sqlitePath,
		DefaultCapacity: sqliteDefaultCapacity,
	}

	return runImport(cmd.Context(), database, migration.SourceTypeSQLiteExport,
		migration.NewSQLiteImporter(database, logger), options)
}

// runImport validates and runs an importer directly so progress can be shown
// on the terminal. A job record is still created so the run shows up in the
// dashboard's import history.
func runImport(ctx context.Context, database *gorm.DB, sourceType migration.SourceType, importer migration.Importer, options migration.Options) error {
	migrationSvc := migration.NewService(database, events.NewBus(), logger)
	migrationSvc.RegisterImporter(sourceType, importer)

	job, err := migrationSvc.CreateJob(ctx, sourceType, options)
	if err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	logger.Info().Str("job_id", job.ID).Msg("import job created")

	progressCallback := func(progress migration.Progress) {
		fmt.Printf("\r%s [%.0f%%] %s", progress.Phase, progress.Percentage, progress.CurrentStep)
		if progress.Phase == "completed" {
			fmt.Println()
		}
	}

	result, err := importer.Import(ctx, options, progressCallback)
	if err != nil {
		logger.Error().Err(err).Msg("import failed")
		return fmt.Errorf("import failed: %w", err)
	}

	if options.DryRun {
		fmt.Printf("\n\nDry Run Preview:\n")
	} else {
		fmt.Printf("\n\nImport Complete!\n")
	}
	fmt.Printf("  Kennels:  %d\n", result.KennelsImported)
	fmt.Printf("  Animals:  %d\n", result.AnimalsImported)
	fmt.Printf("  Stays:    %d\n", result.StaysImported)
	fmt.Printf("  Duration: %.1f seconds\n", result.DurationSeconds)

	if len(result.Warnings) > 0 {
		fmt.Printf("\nWarnings:\n")
		for _, warning := range result.Warnings {
			fmt.Printf("  - %s\n", warning)
		}
	}

	if len(result.Skipped) > 0 {
		fmt.Printf("\nSkipped:\n")
		for key, count := range result.Skipped {
			fmt.Printf("  - %s: %d\n", key, count)
		}
	}

	if options.DryRun {
		fmt.Printf("\nRun without --dry-run to perform the import.\n")
	}

	return nil
}
