/*
Copyright (C) 2026 Open Shelter Collective

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import "time"

// InventoryItem is one tracked supply line (food, medication, bedding).
type InventoryItem struct {
	ID           string    `gorm:"type:uuid;primaryKey" json:"id"`
	SKU          string    `gorm:"uniqueIndex" json:"sku"`
	Name         string    `gorm:"index" json:"name"`
	Category     string    `gorm:"type:varchar(32);index" json:"category"`
	Unit         string    `gorm:"type:varchar(16)" json:"unit"`
	Quantity     float64   `json:"quantity"`
	ReorderLevel float64   `json:"reorder_level"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// LowStock reports whether the item is at or below its reorder level.
func (i *InventoryItem) LowStock() bool {
	return i.ReorderLevel > 0 && i.Quantity <= i.ReorderLevel
}

// StockMovement is one adjustment of an inventory item, kept as an append-only
// ledger.
type StockMovement struct {
	ID        string        `gorm:"type:uuid;primaryKey" json:"id"`
	ItemID    string        `gorm:"type:uuid;index" json:"item_id"`
	Item      InventoryItem `gorm:"foreignKey:ItemID" json:"-"`
	Delta     float64       `json:"delta"`
	Reason    string        `json:"reason"`
	UserID    *string       `gorm:"type:uuid" json:"user_id,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}
