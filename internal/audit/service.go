/*
Copyright (C) 2026 Open Shelter Collective

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/openshelter/shelterboard/internal/events"
	"github.com/openshelter/shelterboard/internal/models"
)

// Service handles audit logging by subscribing to events and storing audit entries.
type Service struct {
	db     *gorm.DB
	bus    events.EventBus
	logger zerolog.Logger
}

// NewService creates a new audit service.
func NewService(db *gorm.DB, bus events.EventBus, logger zerolog.Logger) *Service {
	return &Service{
		db:     db,
		bus:    bus,
		logger: logger.With().Str("component", "audit").Logger(),
	}
}

// Start subscribes to relevant events and logs them as audit entries.
func (s *Service) Start(ctx context.Context) {
	s.logger.Info().Msg("audit service starting")

	// Subscribe to stay lifecycle events
	stayCreated := s.bus.Subscribe(events.EventStayCreated)
	stayEnded := s.bus.Subscribe(events.EventStayEnded)
	stayDeleted := s.bus.Subscribe(events.EventStayDeleted)

	// Subscribe to animal events
	animalCreated := s.bus.Subscribe(events.EventAnimalCreated)
	animalDeleted := s.bus.Subscribe(events.EventAnimalDeleted)

	// Subscribe to reservation events
	reservationCreated := s.bus.Subscribe(events.EventReservationCreated)
	reservationMaterialized := s.bus.Subscribe(events.EventReservationMaterialized)

	// Subscribe to audit-specific events
	auditUserCreate := s.bus.Subscribe(events.EventAuditUserCreate)
	auditUserUpdate := s.bus.Subscribe(events.EventAuditUserUpdate)
	auditUserDelete := s.bus.Subscribe(events.EventAuditUserDelete)
	auditAPIKeyCreate := s.bus.Subscribe(events.EventAuditAPIKeyCreate)
	auditAPIKeyRevoke := s.bus.Subscribe(events.EventAuditAPIKeyRevoke)
	auditInventoryAdjust := s.bus.Subscribe(events.EventAuditInventoryAdjust)
	auditSettingsUpdate := s.bus.Subscribe(events.EventAuditSettingsUpdate)
	auditLegacyImport := s.bus.Subscribe(events.EventAuditLegacyImport)
	auditReservationCancel := s.bus.Subscribe(events.EventAuditReservationCancel)

	defer func() {
		s.bus.Unsubscribe(events.EventStayCreated, stayCreated)
		s.bus.Unsubscribe(events.EventStayEnded, stayEnded)
		s.bus.Unsubscribe(events.EventStayDeleted, stayDeleted)
		s.bus.Unsubscribe(events.EventAnimalCreated, animalCreated)
		s.bus.Unsubscribe(events.EventAnimalDeleted, animalDeleted)
		s.bus.Unsubscribe(events.EventReservationCreated, reservationCreated)
		s.bus.Unsubscribe(events.EventReservationMaterialized, reservationMaterialized)
		s.bus.Unsubscribe(events.EventAuditUserCreate, auditUserCreate)
		s.bus.Unsubscribe(events.EventAuditUserUpdate, auditUserUpdate)
		s.bus.Unsubscribe(events.EventAuditUserDelete, auditUserDelete)
		s.bus.Unsubscribe(events.EventAuditAPIKeyCreate, auditAPIKeyCreate)
		s.bus.Unsubscribe(events.EventAuditAPIKeyRevoke, auditAPIKeyRevoke)
		s.bus.Unsubscribe(events.EventAuditInventoryAdjust, auditInventoryAdjust)
		s.bus.Unsubscribe(events.EventAuditSettingsUpdate, auditSettingsUpdate)
		s.bus.Unsubscribe(events.EventAuditLegacyImport, auditLegacyImport)
		s.bus.Unsubscribe(events.EventAuditReservationCancel, auditReservationCancel)
	}()

	s.logger.Info().Msg("audit service started")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("audit service stopping")
			return

		case payload := <-stayCreated:
			s.logAuditEntry(ctx, models.AuditActionStayOpen, payload)

		case payload := <-stayEnded:
			s.logAuditEntry(ctx, models.AuditActionStayClose, payload)

		case payload := <-stayDeleted:
			s.logAuditEntry(ctx, models.AuditActionStayDelete, payload)

		case payload := <-animalCreated:
			s.logAuditEntry(ctx, models.AuditActionAnimalIntake, payload)

		case payload := <-animalDeleted:
			s.logAuditEntry(ctx, models.AuditActionAnimalDelete, payload)

		case payload := <-reservationCreated:
			s.logAuditEntry(ctx, models.AuditActionReservationCreate, payload)

		case payload := <-reservationMaterialized:
			s.logAuditEntry(ctx, models.AuditActionReservationExpand, payload)

		case payload := <-auditUserCreate:
			s.logAuditEntry(ctx, models.AuditActionUserCreate, payload)

		case payload := <-auditUserUpdate:
			s.logAuditEntry(ctx, models.AuditActionUserUpdate, payload)

		case payload := <-auditUserDelete:
			s.logAuditEntry(ctx, models.AuditActionUserDelete, payload)

		case payload := <-auditAPIKeyCreate:
			s.logAuditEntry(ctx, models.AuditActionAPIKeyCreate, payload)

		case payload := <-auditAPIKeyRevoke:
			s.logAuditEntry(ctx, models.AuditActionAPIKeyRevoke, payload)

		case payload := <-auditInventoryAdjust:
			s.logAuditEntry(ctx, models.AuditActionInventoryAdjust, payload)

		case payload := <-auditSettingsUpdate:
			s.logAuditEntry(ctx, models.AuditActionSettingsUpdate, payload)

		case payload := <-auditLegacyImport:
			s.logAuditEntry(ctx, models.AuditActionLegacyImport, payload)

		case payload := <-auditReservationCancel:
			s.logAuditEntry(ctx, models.AuditActionReservationCancel, payload)
		}
	}
}

// logAuditEntry creates an audit log entry from an event payload.
func (s *Service) logAuditEntry(ctx context.Context, action models.AuditAction, payload events.Payload) {
	entry := &models.AuditLog{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		Action:    action,
		Details:   make(map[string]any),
		CreatedAt: time.Now(),
	}

	// Extract user info
	if userID, ok := payload["user_id"].(string); ok && userID != "" {
		entry.UserID = &userID
	}
	if userEmail, ok := payload["user_email"].(string); ok {
		entry.UserEmail = userEmail
	}

	// Extract resource info
	if resourceType, ok := payload["resource_type"].(string); ok {
		entry.ResourceType = resourceType
	}
	if resourceID, ok := payload["resource_id"].(string); ok {
		entry.ResourceID = resourceID
	}

	// Extract request context
	if ipAddress, ok := payload["ip_address"].(string); ok {
		entry.IPAddress = ipAddress
	}

	// Copy remaining fields to details
	for k, v := range payload {
		switch k {
		case "user_id", "user_email", "resource_type", "resource_id", "ip_address":
			// Already extracted
		default:
			entry.Details[k] = v
		}
	}

	if err := s.Log(ctx, entry); err != nil {
		s.logger.Error().Err(err).
			Str("action", string(action)).
			Msg("failed to log audit entry")
	}
}

// Log records an audit entry directly (for non-event-bus actions).
func (s *Service) Log(ctx context.Context, entry *models.AuditLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	if entry.Details == nil {
		entry.Details = make(map[string]any)
	}

	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return err
	}

	s.logger.Debug().
		Str("action", string(entry.Action)).
		Str("id", entry.ID).
		Msg("audit entry logged")

	return nil
}

// QueryFilters defines filters for querying audit logs.
type QueryFilters struct {
	UserID    *string
	Action    *models.AuditAction
	StartTime *time.Time
	EndTime   *time.Time
	Limit     int
	Offset    int
}

// Query retrieves audit logs with filters.
func (s *Service) Query(ctx context.Context, filters QueryFilters) ([]models.AuditLog, int64, error) {
	var logs []models.AuditLog
	var total int64

	query := s.db.WithContext(ctx).Model(&models.AuditLog{})

	if filters.UserID != nil {
		query = query.Where("user_id = ?", *filters.UserID)
	}
	if filters.Action != nil {
		query = query.Where("action = ?", *filters.Action)
	}
	if filters.StartTime != nil {
		query = query.Where("timestamp >= ?", *filters.StartTime)
	}
	if filters.EndTime != nil {
		query = query.Where("timestamp <= ?", *filters.EndTime)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	} else {
		query = query.Limit(100) // Default limit
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	if err := query.Order("timestamp DESC").Find(&logs).Error; err != nil {
		return nil, 0, err
	}

	return logs, total, nil
}
