/*
Copyright (C) 2026 Open Shelter Collective

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package photos stores animal photos on the local filesystem or in
// S3-compatible object storage.
package photos

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/openshelter/shelterboard/internal/config"
)

// Storage interface abstracts photo storage operations.
type Storage interface {
	Store(ctx context.Context, animalID, filename string, file io.Reader) (string, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	URL(key string) string
	CheckAccess(ctx context.Context) error
}

// Service manages animal photo storage.
type Service struct {
	storage Storage
	logger  zerolog.Logger
}

// NewService creates a photo service using filesystem or S3 storage based on config.
func NewService(cfg *config.Config, logger zerolog.Logger) (*Service, error) {
	var storage Storage

	if cfg.S3Bucket != "" {
		s3cfg := S3Config{
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			Region:          cfg.S3Region,
			Bucket:          cfg.S3Bucket,
			Endpoint:        cfg.S3Endpoint,
			UsePathStyle:    cfg.S3UsePathStyle,
		}

		s3Storage, err := NewS3Storage(context.Background(), s3cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize S3 storage: %w", err)
		}
		storage = s3Storage
	} else {
		storage = NewFilesystemStorage(cfg.PhotoRoot, logger)
	}

	return &Service{
		storage: storage,
		logger:  logger.With().Str("component", "photos").Logger(),
	}, nil
}

// Store saves an uploaded photo and returns the storage key.
func (s *Service) Store(ctx context.Context, animalID, filename string, file io.Reader) (string, error) {
	key, err := s.storage.Store(ctx, animalID, filename, file)
	if err != nil {
		s.logger.Error().Err(err).
			Str("animal_id", animalID).
			Msg("photo store failed")
		return "", fmt.Errorf("store photo: %w", err)
	}

	s.logger.Info().
		Str("animal_id", animalID).
		Str("key", key).
		Msg("photo stored")

	return key, nil
}

// Open returns a reader for a stored photo.
func (s *Service) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	return s.storage.Open(ctx, key)
}

// Delete removes a photo from storage.
func (s *Service) Delete(ctx context.Context, key string) error {
	if err := s.storage.Delete(ctx, key); err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("photo delete failed")
		return fmt.Errorf("delete photo: %w", err)
	}
	return nil
}

// URL returns the accessible URL for a stored photo.
func (s *Service) URL(key string) string {
	return s.storage.URL(key)
}

// CheckStorageAccess verifies that the storage backend is accessible.
func (s *Service) CheckStorageAccess() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.storage.CheckAccess(ctx)
}

// buildPhotoKey constructs a storage key for an animal photo.
// Structure: animal_id[0:2]/animal_id/filename keeps directories balanced.
func buildPhotoKey(animalID, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		ext = ".jpg"
	}
	prefix := animalID
	if len(prefix) > 2 {
		prefix = prefix[:2]
	}
	return fmt.Sprintf("%s/%s/photo%s", prefix, animalID, ext)
}
