/*
Copyright (C) 2026 Open Shelter Collective

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import "time"

// AuditAction defines the type of audited action.
type AuditAction string

// Audit action constants for all sensitive operations.
const (
	AuditActionUserCreate        AuditAction = "user.create"
	AuditActionUserUpdate        AuditAction = "user.update"
	AuditActionUserRoleChange    AuditAction = "user.role_change"
	AuditActionUserDelete        AuditAction = "user.delete"
	AuditActionAPIKeyCreate      AuditAction = "apikey.create"
	AuditActionAPIKeyRevoke      AuditAction = "apikey.revoke"
	AuditActionAnimalIntake      AuditAction = "animal.intake"
	AuditActionAnimalOutcome     AuditAction = "animal.outcome"
	AuditActionAnimalDelete      AuditAction = "animal.delete"
	AuditActionStayOpen          AuditAction = "stay.open"
	AuditActionStayClose         AuditAction = "stay.close"
	AuditActionStayDelete        AuditAction = "stay.delete"
	AuditActionReservationCreate AuditAction = "reservation.create"
	AuditActionReservationCancel AuditAction = "reservation.cancel"
	AuditActionReservationExpand AuditAction = "reservation.materialize"
	AuditActionInventoryAdjust   AuditAction = "inventory.adjust"
	AuditActionSettingsUpdate    AuditAction = "settings.update"
	AuditActionLegacyImport      AuditAction = "migration.legacy_import"
)

// AuditLog records sensitive operations for accountability.
type AuditLog struct {
	ID           string         `gorm:"type:uuid;primaryKey" json:"id"`
	Timestamp    time.Time      `gorm:"index:idx_audit_timestamp;not null" json:"timestamp"`
	UserID       *string        `gorm:"type:uuid;index:idx_audit_user" json:"user_id,omitempty"`
	UserEmail    string         `gorm:"type:varchar(255)" json:"user_email"`
	Action       AuditAction    `gorm:"type:varchar(64);index:idx_audit_action;not null" json:"action"`
	ResourceType string         `gorm:"type:varchar(64)" json:"resource_type"`
	ResourceID   string         `gorm:"type:uuid" json:"resource_id"`
	Details      map[string]any `gorm:"type:jsonb;serializer:json" json:"details"`
	IPAddress    string         `gorm:"type:varchar(45)" json:"ip_address"`
	CreatedAt    time.Time      `json:"created_at"`
}

// TableName returns the table name for GORM.
func (AuditLog) TableName() string {
	return "audit_logs"
}
