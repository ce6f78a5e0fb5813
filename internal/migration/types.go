/*
Copyright (C) 2026 Open Shelter Collective

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package migration imports animals, kennels and stays from legacy shelter
// databases into shelterboard.
package migration

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// JobStatus represents the current state of an import job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// SourceType represents the legacy system being imported from.
type SourceType string

const (
	// SourceTypeASM is Animal Shelter Manager with a Postgres database.
	SourceTypeASM SourceType = "asm"
	// SourceTypeSQLiteExport is a flat single-file SQLite export, the
	// format most small shelters hand us.
	SourceTypeSQLiteExport SourceType = "sqlite_export"
)

// Job represents one import job.
type Job struct {
	ID         string     `json:"id" gorm:"primaryKey"`
	SourceType SourceType `json:"source_type" gorm:"type:varchar(50);not null"`
	Status     JobStatus  `json:"status" gorm:"type:varchar(50);not null;default:'pending'"`
	DryRun     bool       `json:"dry_run" gorm:"not null;default:false"`
	Options    Options    `json:"options" gorm:"type:jsonb"`
	Progress   Progress   `json:"progress" gorm:"type:jsonb"`
	Result     *Result    `json:"result,omitempty" gorm:"type:jsonb"`
	Error      string     `json:"error,omitempty" gorm:"type:text"`

	CreatedAt   time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Options contains import-specific configuration.
type Options struct {
	DryRun bool `json:"dry_run"`

	SkipAnimals bool `json:"skip_animals"`
	SkipKennels bool `json:"skip_kennels"`
	SkipStays   bool `json:"skip_stays"`

	// ASM options (direct Postgres access)
	ASMDBHost     string `json:"asm_db_host,omitempty"`
	ASMDBPort     int    `json:"asm_db_port,omitempty"`
	ASMDBName     string `json:"asm_db_name,omitempty"`
	ASMDBUser     string `json:"asm_db_user,omitempty"`
	ASMDBPassword string `json:"asm_db_password,omitempty"`

	// SQLite export options
	SQLitePath string `json:"sqlite_path,omitempty"`

	// DefaultCapacity is assigned to imported kennels whose legacy record
	// carries no capacity of its own.
	DefaultCapacity int `json:"default_capacity,omitempty"`

	// ImportingUserID is the operator running the import, recorded in the
	// audit trail.
	ImportingUserID string `json:"importing_user_id,omitempty"`
}

// Progress tracks import progress.
type Progress struct {
	Phase           string    `json:"phase"`
	TotalSteps      int       `json:"total_steps"`
	CompletedSteps  int       `json:"completed_steps"`
	CurrentStep     string    `json:"current_step"`
	AnimalsTotal    int       `json:"animals_total"`
	AnimalsImported int       `json:"animals_imported"`
	KennelsTotal    int       `json:"kennels_total"`
	KennelsImported int       `json:"kennels_imported"`
	StaysTotal      int       `json:"stays_total"`
	StaysImported   int       `json:"stays_imported"`
	Percentage      float64   `json:"percentage"`
	StartTime       time.Time `json:"start_time"`
}

// Result contains the final import results.
type Result struct {
	AnimalsImported int            `json:"animals_imported"`
	KennelsImported int            `json:"kennels_imported"`
	StaysImported   int            `json:"stays_imported"`
	Warnings        []string       `json:"warnings,omitempty"`
	Skipped         map[string]int `json:"skipped,omitempty"`
	DurationSeconds float64        `json:"duration_seconds"`
}

// Importer defines the interface for legacy importers.
type Importer interface {
	// Validate checks if the import can proceed with the given options.
	Validate(ctx context.Context, options Options) error

	// Import performs the actual migration.
	Import(ctx context.Context, options Options, progressCallback ProgressCallback) (*Result, error)
}

// ProgressCallback is called during import to report progress.
type ProgressCallback func(progress Progress)

// ValidationError represents a validation error with details.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// ValidationErrors represents multiple validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}
	return e[0].Error()
}

// Value implements driver.Valuer for Options
func (o Options) Value() (driver.Value, error) {
	return json.Marshal(o)
}

// Scan implements sql.Scanner for Options
func (o *Options) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	bytes, err := jsonBytes(value)
	if err != nil {
		return fmt.Errorf("failed to unmarshal Options: %w", err)
	}
	return json.Unmarshal(bytes, o)
}

// Value implements driver.Valuer for Progress
func (p Progress) Value() (driver.Value, error) {
	return json.Marshal(p)
}

// Scan implements sql.Scanner for Progress
func (p *Progress) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	bytes, err := jsonBytes(value)
	if err != nil {
		return fmt.Errorf("failed to unmarshal Progress: %w", err)
	}
	return json.Unmarshal(bytes, p)
}

// Value implements driver.Valuer for Result
func (r Result) Value() (driver.Value, error) {
	return json.Marshal(r)
}

// Scan implements sql.Scanner for Result
func (r *Result) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	bytes, err := jsonBytes(value)
	if err != nil {
		return fmt.Errorf("failed to unmarshal Result: %w", err)
	}
	return json.Unmarshal(bytes, r)
}

func jsonBytes(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("expected []byte or string, got %T", value)
	}
}

// String returns the string representation of SourceType for template compatibility
func (s SourceType) String() string {
	return string(s)
}
