/*
Copyright (C) 2026 Open Shelter Collective

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package events

import "sync"

// EventType enumerates event categories.
type EventType string

const (
	EventStayCreated   EventType = "stay.created"
	EventStayUpdated   EventType = "stay.updated"
	EventStayEnded     EventType = "stay.ended"
	EventStayDeleted   EventType = "stay.deleted"
	EventStayConflict  EventType = "stay.conflict"
	EventAnimalCreated EventType = "animal.created"
	EventAnimalUpdated EventType = "animal.updated"
	EventAnimalDeleted EventType = "animal.deleted"

	// Reservation lifecycle events
	EventReservationCreated      EventType = "reservation.created"
	EventReservationConfirmed    EventType = "reservation.confirmed"
	EventReservationCheckedIn    EventType = "reservation.checked_in"
	EventReservationCheckedOut   EventType = "reservation.checked_out"
	EventReservationCancelled    EventType = "reservation.cancelled"
	EventReservationMaterialized EventType = "reservation.materialized"

	// Inventory events
	EventInventoryAdjusted EventType = "inventory.adjusted"
	EventInventoryLowStock EventType = "inventory.low_stock"

	// Legacy import job events
	EventMigrationProgress  EventType = "migration.progress"
	EventMigrationCompleted EventType = "migration.completed"

	// Cache invalidation events
	EventKennelCreated   EventType = "cache.kennel_created"
	EventKennelUpdated   EventType = "cache.kennel_updated"
	EventKennelDeleted   EventType = "cache.kennel_deleted"
	EventSettingsUpdated EventType = "cache.settings_updated"

	// Audit events (for operations that need explicit audit logging)
	EventAuditUserCreate        EventType = "audit.user.create"
	EventAuditUserUpdate        EventType = "audit.user.update"
	EventAuditUserDelete        EventType = "audit.user.delete"
	EventAuditAPIKeyCreate      EventType = "audit.apikey.create"
	EventAuditAPIKeyRevoke      EventType = "audit.apikey.revoke"
	EventAuditInventoryAdjust   EventType = "audit.inventory.adjust"
	EventAuditSettingsUpdate    EventType = "audit.settings.update"
	EventAuditLegacyImport      EventType = "audit.migration.legacy_import"
	EventAuditReservationCancel EventType = "audit.reservation.cancel"
)

// Payload generic event payload.
type Payload map[string]any

// Subscriber receives event payloads.
type Subscriber chan Payload

// EventBus is satisfied by the in-process Bus and by the NATS and Redis
// bridges, which fan events out to other dashboard instances.
type EventBus interface {
	Subscribe(eventType EventType) Subscriber
	Publish(eventType EventType, payload Payload)
	Unsubscribe(eventType EventType, sub Subscriber)
}

// Bus implements a simple in-process pubsub.
type Bus struct {
	mu   sync.RWMutex
	subs map[EventType][]Subscriber
}

// NewBus creates an event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[EventType][]Subscriber)}
}

// Subscribe registers a subscriber for event type.
func (b *Bus) Subscribe(eventType EventType) Subscriber {
	ch := make(Subscriber, 8)
	b.mu.Lock()
	b.subs[eventType] = append(b.subs[eventType], ch)
	b.mu.Unlock()
	return ch
}

// Publish sends payload to subscribers.
func (b *Bus) Publish(eventType EventType, payload Payload) {
	b.mu.RLock()
	subs := append([]Subscriber(nil), b.subs[eventType]...)
	b.mu.RUnlock()
	for _, sub := range subs {
		select {
		case sub <- payload:
		default:
		}
	}
}

// Unsubscribe removes the subscriber.
func (b *Bus) Unsubscribe(eventType EventType, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[eventType]
	for i, candidate := range subs {
		if candidate == sub {
			subs = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	b.subs[eventType] = subs
	close(sub)
}
