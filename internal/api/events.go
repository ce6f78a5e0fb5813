/*
Copyright (C) 2026 Open Shelter Collective

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	ws "nhooyr.io/websocket"

	"github.com/openshelter/shelterboard/internal/events"
	"github.com/openshelter/shelterboard/internal/telemetry"
)

// handleEvents streams bus events to the dashboard over a websocket. The
// client picks event types with ?types=stay.created,inventory.low_stock;
// with none given it gets the timeline-relevant defaults.
func (a *API) handleEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	conn, err := ws.Accept(w, r, &ws.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		a.logger.Error().Err(err).Msg("websocket accept failed")
		return
	}
	defer conn.Close(ws.StatusInternalError, "server error")

	telemetry.EventsWebSocketClients.Inc()
	defer telemetry.EventsWebSocketClients.Dec()

	eventTypes := parseEventTypes(r.URL.Query().Get("types"))
	if len(eventTypes) == 0 {
		eventTypes = []events.EventType{
			events.EventStayCreated,
			events.EventStayUpdated,
			events.EventStayEnded,
			events.EventStayDeleted,
			events.EventStayConflict,
			events.EventReservationCreated,
			events.EventInventoryLowStock,
		}
	}

	subscribers := make([]events.Subscriber, 0, len(eventTypes))
	for _, eventType := range eventTypes {
		subscribers = append(subscribers, a.bus.Subscribe(eventType))
	}
	defer func() {
		for i, eventType := range eventTypes {
			a.bus.Unsubscribe(eventType, subscribers[i])
		}
	}()

	merged := make(chan wsEvent, 32)
	for i, eventType := range eventTypes {
		go func(et events.EventType, sub events.Subscriber) {
			for payload := range sub {
				select {
				case merged <- wsEvent{Type: string(et), Payload: payload}:
				case <-ctx.Done():
					return
				}
			}
		}(eventType, subscribers[i])
	}

	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.Close(ws.StatusNormalClosure, "context cancelled")
			return
		case <-ticker.C:
			if err := conn.Write(ctx, ws.MessageText, []byte(`{"type":"ping"}`)); err != nil {
				conn.Close(ws.StatusInternalError, "write failed")
				return
			}
		case event := <-merged:
			data, err := json.Marshal(event)
			if err != nil {
				continue
			}
			if err := conn.Write(ctx, ws.MessageText, data); err != nil {
				conn.Close(ws.StatusInternalError, "write failed")
				return
			}
		}
	}
}

type wsEvent struct {
	Type    string         `json:"type"`
	Payload events.Payload `json:"payload"`
}

func parseEventTypes(raw string) []events.EventType {
	if raw == "" {
		return nil
	}
	var types []events.EventType
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			types = append(types, events.EventType(part))
		}
	}
	return types
}
