/*
Copyright (C) 2026 Open Shelter Collective

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package inventory tracks shelter supplies and their stock movements.
package inventory

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/openshelter/shelterboard/internal/events"
	"github.com/openshelter/shelterboard/internal/models"
	"github.com/openshelter/shelterboard/internal/telemetry"
)

// ErrItemNotFound is returned when an inventory item doesn't exist.
var ErrItemNotFound = errors.New("inventory item not found")

// ErrInsufficientStock is returned when an adjustment would drive stock negative.
var ErrInsufficientStock = errors.New("insufficient stock")

// ErrDuplicateSKU is returned when creating an item with an existing SKU.
var ErrDuplicateSKU = errors.New("sku already exists")

// Service manages inventory items and the stock movement ledger.
type Service struct {
	db     *gorm.DB
	bus    events.EventBus
	logger zerolog.Logger
}

// NewService creates an inventory service.
func NewService(db *gorm.DB, bus events.EventBus, logger zerolog.Logger) *Service {
	return &Service{
		db:     db,
		bus:    bus,
		logger: logger.With().Str("component", "inventory").Logger(),
	}
}

// CreateParams describes a new inventory item.
type CreateParams struct {
	SKU          string
	Name         string
	Category     string
	Unit         string
	Quantity     float64
	ReorderLevel float64
}

// Create adds a new tracked item.
func (s *Service) Create(ctx context.Context, params CreateParams) (*models.InventoryItem, error) {
	var existing models.InventoryItem
	err := s.db.WithContext(ctx).Where("sku = ?", params.SKU).First(&existing).Error
	if err == nil {
		return nil, ErrDuplicateSKU
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	item := models.InventoryItem{
		ID:           uuid.NewString(),
		SKU:          params.SKU,
		Name:         params.Name,
		Category:     params.Category,
		Unit:         params.Unit,
		Quantity:     params.Quantity,
		ReorderLevel: params.ReorderLevel,
	}
	if err := s.db.WithContext(ctx).Create(&item).Error; err != nil {
		return nil, err
	}

	s.logger.Info().Str("item_id", item.ID).Str("sku", item.SKU).Msg("inventory item created")
	return &item, nil
}

// Get loads an item by ID.
func (s *Service) Get(ctx context.Context, id string) (*models.InventoryItem, error) {
	var item models.InventoryItem
	err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// List returns items, optionally filtered by category or low-stock state.
func (s *Service) List(ctx context.Context, category string, lowStockOnly bool) ([]models.InventoryItem, error) {
	query := s.db.WithContext(ctx).Model(&models.InventoryItem{})
	if category != "" {
		query = query.Where("category = ?", category)
	}
	if lowStockOnly {
		query = query.Where("reorder_level > 0 AND quantity <= reorder_level")
	}

	var items []models.InventoryItem
	if err := query.Order("name ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// Adjust changes an item's stock by delta, records the movement, and fires a
// low-stock event when the item crosses its reorder level.
func (s *Service) Adjust(ctx context.Context, itemID string, delta float64, reason string, userID *string) (*models.InventoryItem, error) {
	var item models.InventoryItem

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.First(&item, "id = ?", itemID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrItemNotFound
		}
		if err != nil {
			return err
		}

		newQuantity := item.Quantity + delta
		if newQuantity < 0 {
			return ErrInsufficientStock
		}

		if err := tx.Model(&item).Update("quantity", newQuantity).Error; err != nil {
			return err
		}
		item.Quantity = newQuantity

		movement := models.StockMovement{
			ID:     uuid.NewString(),
			ItemID: item.ID,
			Delta:  delta,
			Reason: reason,
			UserID: userID,
		}
		return tx.Create(&movement).Error
	})
	if err != nil {
		return nil, err
	}

	direction := "in"
	if delta < 0 {
		direction = "out"
	}
	telemetry.InventoryAdjustments.WithLabelValues(direction).Inc()

	s.logger.Info().
		Str("item_id", item.ID).
		Float64("delta", delta).
		Float64("quantity", item.Quantity).
		Msg("stock adjusted")

	payload := events.Payload{
		"resource_type": "inventory_item",
		"resource_id":   item.ID,
		"sku":           item.SKU,
		"delta":         delta,
		"quantity":      item.Quantity,
		"reason":        reason,
	}
	if userID != nil {
		payload["user_id"] = *userID
	}
	s.bus.Publish(events.EventInventoryAdjusted, payload)
	s.bus.Publish(events.EventAuditInventoryAdjust, payload)

	if item.LowStock() {
		s.bus.Publish(events.EventInventoryLowStock, events.Payload{
			"resource_type": "inventory_item",
			"resource_id":   item.ID,
			"sku":           item.SKU,
			"quantity":      item.Quantity,
			"reorder_level": item.ReorderLevel,
		})
	}

	s.updateLowStockGauge(ctx)

	return &item, nil
}

// Movements returns the adjustment ledger for an item, newest first.
func (s *Service) Movements(ctx context.Context, itemID string, limit int) ([]models.StockMovement, error) {
	if limit <= 0 {
		limit = 100
	}
	var movements []models.StockMovement
	err := s.db.WithContext(ctx).
		Where("item_id = ?", itemID).
		Order("created_at DESC").
		Limit(limit).
		Find(&movements).Error
	return movements, err
}

func (s *Service) updateLowStockGauge(ctx context.Context) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.InventoryItem{}).
		Where("reorder_level > 0 AND quantity <= reorder_level").
		Count(&count).Error
	if err != nil {
		s.logger.Debug().Err(err).Msg("low stock count failed")
		return
	}
	telemetry.InventoryLowStockItems.Set(float64(count))
}
