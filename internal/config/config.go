/*
Copyright (C) 2026 Open Shelter Collective

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Database backend selection.
type DatabaseBackend string

const (
	DatabasePostgres DatabaseBackend = "postgres"
	DatabaseMySQL    DatabaseBackend = "mysql"
	DatabaseSQLite   DatabaseBackend = "sqlite"
)

// Config covers process level configuration read from environment variables.
type Config struct {
	Environment string
	HTTPBind    string
	HTTPPort    int
	BaseURL     string
	DBBackend   DatabaseBackend
	DBDSN       string

	JWTSigningKey string
	MetricsBind   string

	// Photo storage: filesystem root, or S3 when a bucket is configured.
	PhotoRoot         string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3Region          string
	S3Bucket          string
	S3Endpoint        string // For S3-compatible services (MinIO, Spaces, etc.)
	S3UsePathStyle    bool   // Required for MinIO

	// Timeline view defaults
	TimelineCellWidth int           // Pixels per day cell
	TimelineWindow    time.Duration // Default view window length

	// Hotel recurrence materializer
	MaterializerInterval  time.Duration
	MaterializerLookahead time.Duration

	// Tracing configuration
	TracingEnabled    bool
	OTLPEndpoint      string
	TracingSampleRate float64

	// Multi-instance configuration
	LeaderElectionEnabled bool
	RedisAddr             string
	RedisPassword         string
	RedisDB               int
	NATSURL               string
	InstanceID            string

	LegacyEnvWarnings []string
}

// Load reads environment variables, applies defaults, and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		Environment: getEnv("SHELTER_ENV", "development"),
		HTTPBind:    getEnv("SHELTER_HTTP_BIND", "0.0.0.0"),
		HTTPPort:    getEnvInt("SHELTER_HTTP_PORT", 8080),
		BaseURL:     getEnv("SHELTER_BASE_URL", ""),
		DBBackend:   DatabaseBackend(getEnv("SHELTER_DB_BACKEND", string(DatabasePostgres))),
		DBDSN:       getEnv("SHELTER_DB_DSN", ""),

		JWTSigningKey: getEnv("SHELTER_JWT_SIGNING_KEY", ""),
		MetricsBind:   getEnv("SHELTER_METRICS_BIND", "127.0.0.1:9000"),

		PhotoRoot:         getEnv("SHELTER_PHOTO_ROOT", "./photos"),
		S3AccessKeyID:     getEnvAny([]string{"SHELTER_S3_ACCESS_KEY_ID", "AWS_ACCESS_KEY_ID"}, ""),
		S3SecretAccessKey: getEnvAny([]string{"SHELTER_S3_SECRET_ACCESS_KEY", "AWS_SECRET_ACCESS_KEY"}, ""),
		S3Region:          getEnvAny([]string{"SHELTER_S3_REGION", "AWS_REGION"}, "us-east-1"),
		S3Bucket:          getEnvAny([]string{"SHELTER_S3_BUCKET", "S3_BUCKET"}, ""),
		S3Endpoint:        getEnvAny([]string{"SHELTER_S3_ENDPOINT", "S3_ENDPOINT"}, ""),
		S3UsePathStyle:    getEnvBool("SHELTER_S3_USE_PATH_STYLE", false),

		TimelineCellWidth: getEnvInt("SHELTER_TIMELINE_CELL_WIDTH", 24),
		TimelineWindow:    time.Duration(getEnvInt("SHELTER_TIMELINE_WINDOW_DAYS", 30)) * 24 * time.Hour,

		MaterializerInterval:  time.Duration(getEnvInt("SHELTER_MATERIALIZER_INTERVAL_MINUTES", 30)) * time.Minute,
		MaterializerLookahead: time.Duration(getEnvInt("SHELTER_MATERIALIZER_LOOKAHEAD_DAYS", 90)) * 24 * time.Hour,

		TracingEnabled:    getEnvBool("SHELTER_TRACING_ENABLED", false),
		OTLPEndpoint:      getEnv("SHELTER_OTLP_ENDPOINT", "localhost:4317"),
		TracingSampleRate: getEnvFloat("SHELTER_TRACING_SAMPLE_RATE", 1.0),

		LeaderElectionEnabled: getEnvBool("SHELTER_LEADER_ELECTION_ENABLED", false),
		RedisAddr:             getEnv("SHELTER_REDIS_ADDR", "localhost:6379"),
		RedisPassword:         getEnv("SHELTER_REDIS_PASSWORD", ""),
		RedisDB:               getEnvInt("SHELTER_REDIS_DB", 0),
		NATSURL:               getEnv("SHELTER_NATS_URL", ""),
		InstanceID:            getEnv("SHELTER_INSTANCE_ID", ""),
	}

	if cfg.DBBackend != DatabasePostgres && cfg.DBBackend != DatabaseMySQL && cfg.DBBackend != DatabaseSQLite {
		return nil, fmt.Errorf("unsupported database backend %q", cfg.DBBackend)
	}

	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("SHELTER_DB_DSN must be provided")
	}

	if cfg.JWTSigningKey == "" {
		return nil, fmt.Errorf("SHELTER_JWT_SIGNING_KEY must be provided")
	}

	if strings.EqualFold(cfg.Environment, "production") && len(cfg.JWTSigningKey) < 32 {
		return nil, fmt.Errorf("SHELTER_JWT_SIGNING_KEY must be at least 32 bytes in production")
	}

	if cfg.S3Bucket != "" && cfg.S3AccessKeyID == "" {
		return nil, fmt.Errorf("SHELTER_S3_ACCESS_KEY_ID is required when an S3 bucket is configured")
	}

	cfg.LegacyEnvWarnings = detectLegacyEnvWarnings()

	return cfg, nil
}

func detectLegacyEnvWarnings() []string {
	legacy := map[string]string{
		"ENVIRONMENT":     "use SHELTER_ENV",
		"JWT_SIGNING_KEY": "use SHELTER_JWT_SIGNING_KEY",
		"DB_DSN":          "use SHELTER_DB_DSN",
		"TRACING_ENABLED": "use SHELTER_TRACING_ENABLED",
	}

	warnings := make([]string, 0, len(legacy))
	for key, recommendation := range legacy {
		if os.Getenv(key) != "" {
			warnings = append(warnings, fmt.Sprintf("legacy env key %s is set; %s", key, recommendation))
		}
	}
	return warnings
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "true" || v == "1" || v == "yes" {
			return true
		}
		if v == "false" || v == "0" || v == "no" {
			return false
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			return parsed
		}
	}
	return def
}

// getEnvAny returns the first non-empty environment variable value from keys, or def if none set.
func getEnvAny(keys []string, def string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return def
}
