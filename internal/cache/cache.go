/*
Copyright (C) 2026 Open Shelter Collective

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package cache provides a Redis-based caching layer for frequently accessed data.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Default TTL values for different cache types
const (
	DefaultKennelListTTL = 5 * time.Minute
	DefaultAnimalTTL     = 1 * time.Hour
	DefaultSettingsTTL   = 1 * time.Hour
	DefaultTimelineTTL   = 30 * time.Second
)

// Key prefixes for Redis cache
const (
	KeyKennelList = "shelter:cache:kennels"
	KeyAnimal     = "shelter:cache:animal:"   // + animal_id
	KeySettings   = "shelter:cache:settings"
	KeyTimeline   = "shelter:cache:timeline:" // + from:to
)

// Config contains cache configuration.
type Config struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// TTL overrides
	KennelListTTL time.Duration
	AnimalTTL     time.Duration
	SettingsTTL   time.Duration
	TimelineTTL   time.Duration

	// Fallback behavior
	DisableOnError bool // If true, disable caching on Redis errors
}

// DefaultConfig returns default cache configuration.
func DefaultConfig() Config {
	return Config{
		RedisAddr:      "localhost:6379",
		KennelListTTL:  DefaultKennelListTTL,
		AnimalTTL:      DefaultAnimalTTL,
		SettingsTTL:    DefaultSettingsTTL,
		TimelineTTL:    DefaultTimelineTTL,
		DisableOnError: true,
	}
}

// Cache provides Redis-backed caching with graceful fallback.
type Cache struct {
	client *redis.Client
	logger zerolog.Logger
	config Config

	mu       sync.RWMutex
	disabled bool // Circuit breaker state
}

// New creates a new cache instance.
func New(cfg Config, logger zerolog.Logger) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn().Err(err).Msg("Redis cache unavailable, running without caching")
		return &Cache{
			logger:   logger.With().Str("component", "cache").Logger(),
			config:   cfg,
			disabled: true,
		}, nil
	}

	logger.Info().Str("addr", cfg.RedisAddr).Msg("Redis cache initialized")

	return &Cache{
		client: client,
		logger: logger.With().Str("component", "cache").Logger(),
		config: cfg,
	}, nil
}

// Close closes the Redis connection.
func (c *Cache) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// IsAvailable returns true if the cache is operational.
func (c *Cache) IsAvailable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.disabled && c.client != nil
}

// handleError handles Redis errors with circuit breaker logic.
func (c *Cache) handleError(err error, operation string) {
	if err == nil || err == redis.Nil {
		return
	}

	c.logger.Debug().Err(err).Str("operation", operation).Msg("cache operation failed")

	if c.config.DisableOnError {
		c.mu.Lock()
		c.disabled = true
		c.mu.Unlock()
		c.logger.Warn().Msg("disabling cache due to Redis error")
	}
}

// get retrieves a value from cache and unmarshals it.
func (c *Cache) get(ctx context.Context, key string, dest any) (bool, error) {
	if !c.IsAvailable() {
		return false, nil
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		c.handleError(err, "get")
		return false, err
	}

	if err := json.Unmarshal(data, dest); err != nil {
		c.logger.Debug().Err(err).Str("key", key).Msg("failed to unmarshal cached value")
		return false, nil
	}

	return true, nil
}

// set stores a value in cache with TTL.
func (c *Cache) set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if !c.IsAvailable() {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value: %w", err)
	}

	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		c.handleError(err, "set")
		return err
	}

	return nil
}

// delete removes a key from cache.
func (c *Cache) delete(ctx context.Context, key string) error {
	if !c.IsAvailable() {
		return nil
	}

	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.handleError(err, "delete")
		return err
	}

	return nil
}

// deletePattern deletes all keys matching a pattern.
func (c *Cache) deletePattern(ctx context.Context, pattern string) error {
	if !c.IsAvailable() {
		return nil
	}

	// Use SCAN to find keys (safer than KEYS for production)
	var cursor uint64
	for {
		keys, nextCursor, err := c.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			c.handleError(err, "scan")
			return err
		}

		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				c.handleError(err, "delete_batch")
				return err
			}
		}

		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}

	return nil
}

// Kennel caching methods

// CachedKennel represents a cached kennel record.
type CachedKennel struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Building string `json:"building"`
	Capacity int    `json:"capacity"`
	Species  string `json:"species"`
	Active   bool   `json:"active"`
	SortIdx  int    `json:"sort_idx"`
}

// GetKennelList retrieves the cached list of kennels.
func (c *Cache) GetKennelList(ctx context.Context) ([]CachedKennel, bool) {
	var kennels []CachedKennel
	found, err := c.get(ctx, KeyKennelList, &kennels)
	if err != nil || !found {
		return nil, false
	}
	c.logger.Debug().Int("count", len(kennels)).Msg("kennel list cache hit")
	return kennels, true
}

// SetKennelList caches the list of kennels.
func (c *Cache) SetKennelList(ctx context.Context, kennels []CachedKennel) error {
	c.logger.Debug().Int("count", len(kennels)).Msg("caching kennel list")
	return c.set(ctx, KeyKennelList, kennels, c.config.KennelListTTL)
}

// InvalidateKennelList removes the kennel list from cache.
func (c *Cache) InvalidateKennelList(ctx context.Context) error {
	c.logger.Debug().Msg("invalidating kennel list cache")
	return c.delete(ctx, KeyKennelList)
}

// Animal caching methods

// CachedAnimal represents a cached animal record.
type CachedAnimal struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Species     string `json:"species"`
	Breed       string `json:"breed"`
	Status      string `json:"status"`
	CollarColor string `json:"collar_color"`
	ChipNumber  string `json:"chip_number"`
	PhotoKey    string `json:"photo_key"`
}

// GetAnimal retrieves a cached animal by ID.
func (c *Cache) GetAnimal(ctx context.Context, animalID string) (*CachedAnimal, bool) {
	var animal CachedAnimal
	found, err := c.get(ctx, KeyAnimal+animalID, &animal)
	if err != nil || !found {
		return nil, false
	}
	c.logger.Debug().Str("animal_id", animalID).Msg("animal cache hit")
	return &animal, true
}

// SetAnimal caches an animal by ID.
func (c *Cache) SetAnimal(ctx context.Context, animal *CachedAnimal) error {
	c.logger.Debug().Str("animal_id", animal.ID).Msg("caching animal")
	return c.set(ctx, KeyAnimal+animal.ID, animal, c.config.AnimalTTL)
}

// InvalidateAnimal removes an animal from cache.
func (c *Cache) InvalidateAnimal(ctx context.Context, animalID string) error {
	c.logger.Debug().Str("animal_id", animalID).Msg("invalidating animal cache")
	return c.delete(ctx, KeyAnimal+animalID)
}

// Settings caching methods

// CachedSettings represents the cached system settings singleton.
type CachedSettings struct {
	ID             string `json:"id"`
	ShelterName    string `json:"shelter_name"`
	Timezone       string `json:"timezone"`
	TimelineDays   int    `json:"timeline_days"`
	CheckoutHour   int    `json:"checkout_hour"`
	LowStockAlerts bool   `json:"low_stock_alerts"`
}

// GetSettings retrieves the cached system settings.
func (c *Cache) GetSettings(ctx context.Context) (*CachedSettings, bool) {
	var settings CachedSettings
	found, err := c.get(ctx, KeySettings, &settings)
	if err != nil || !found {
		return nil, false
	}
	c.logger.Debug().Msg("settings cache hit")
	return &settings, true
}

// SetSettings caches the system settings.
func (c *Cache) SetSettings(ctx context.Context, settings *CachedSettings) error {
	c.logger.Debug().Msg("caching settings")
	return c.set(ctx, KeySettings, settings, c.config.SettingsTTL)
}

// InvalidateSettings removes the system settings from cache.
func (c *Cache) InvalidateSettings(ctx context.Context) error {
	c.logger.Debug().Msg("invalidating settings cache")
	return c.delete(ctx, KeySettings)
}

// Timeline caching methods

// TimelineKey builds the cache key for an assembled timeline window.
func TimelineKey(from, to time.Time) string {
	return fmt.Sprintf("%s%s:%s", KeyTimeline, from.Format("2006-01-02"), to.Format("2006-01-02"))
}

// GetTimeline retrieves a cached assembled timeline for a window.
// The caller owns the destination type.
func (c *Cache) GetTimeline(ctx context.Context, from, to time.Time, dest any) bool {
	found, err := c.get(ctx, TimelineKey(from, to), dest)
	if err != nil || !found {
		return false
	}
	c.logger.Debug().Str("from", from.Format("2006-01-02")).Str("to", to.Format("2006-01-02")).Msg("timeline cache hit")
	return true
}

// SetTimeline caches an assembled timeline for a window.
// TTL is short: stays change during the day and the board must track them.
func (c *Cache) SetTimeline(ctx context.Context, from, to time.Time, timeline any) error {
	return c.set(ctx, TimelineKey(from, to), timeline, c.config.TimelineTTL)
}

// InvalidateTimelines removes all cached timeline windows.
// Called whenever a stay or kennel changes.
func (c *Cache) InvalidateTimelines(ctx context.Context) error {
	c.logger.Debug().Msg("invalidating timeline caches")
	return c.deletePattern(ctx, KeyTimeline+"*")
}

// FlushAll removes all cached data (use sparingly).
func (c *Cache) FlushAll(ctx context.Context) error {
	c.logger.Warn().Msg("flushing all cache data")
	return c.deletePattern(ctx, "shelter:cache:*")
}
