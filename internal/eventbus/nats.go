/*
Copyright (C) 2026 Open Shelter Collective

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package eventbus

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/openshelter/shelterboard/internal/events"
)

// Subject prefix for all shelter events on NATS.
const natsSubjectPrefix = "shelter.events."

// NATSConfig contains NATS connection configuration.
type NATSConfig struct {
	URL   string
	Token string

	MaxReconnects int
	ReconnectWait time.Duration
	Timeout       time.Duration
}

// DefaultNATSConfig returns default NATS configuration.
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           nats.DefaultURL,
		MaxReconnects: -1, // unlimited
		ReconnectWait: 2 * time.Second,
		Timeout:       5 * time.Second,
	}
}

// NATSBus bridges the in-process event bus to a NATS cluster so that
// multiple dashboard instances see each other's events.
// Falls back to local-only delivery if NATS is unavailable.
type NATSBus struct {
	conn   *nats.Conn
	logger zerolog.Logger
	local  *events.Bus
	nodeID string

	mu   sync.Mutex
	subs map[events.EventType]*nats.Subscription
}

// NewNATSBus connects to NATS and returns a bridged bus.
// A failed connection is not fatal: events still flow within the process.
func NewNATSBus(cfg NATSConfig, logger zerolog.Logger) (*NATSBus, error) {
	nb := &NATSBus{
		logger: logger,
		local:  events.NewBus(),
		nodeID: generateNodeID(),
		subs:   make(map[events.EventType]*nats.Subscription),
	}

	opts := []nats.Option{
		nats.Name("shelterboard-" + nb.nodeID),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.Timeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}
	if cfg.Token != "" {
		opts = append(opts, nats.Token(cfg.Token))
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		logger.Warn().Err(err).Str("url", cfg.URL).Msg("NATS connection failed, events are local-only")
		return nb, nil
	}

	nb.conn = conn
	logger.Info().Str("url", conn.ConnectedUrl()).Str("node_id", nb.nodeID).Msg("NATS event bridge connected")
	return nb, nil
}

// Subscribe registers a subscriber for an event type. Events published on
// other nodes for the same type are delivered through the same channel.
func (nb *NATSBus) Subscribe(eventType events.EventType) events.Subscriber {
	sub := nb.local.Subscribe(eventType)

	if nb.conn == nil {
		return sub
	}

	nb.mu.Lock()
	defer nb.mu.Unlock()

	if _, exists := nb.subs[eventType]; exists {
		return sub
	}

	subject := natsSubjectPrefix + string(eventType)
	natsSub, err := nb.conn.Subscribe(subject, func(msg *nats.Msg) {
		wire, err := unmarshalNATSMessage(msg.Data)
		if err != nil {
			nb.logger.Error().Err(err).Str("subject", msg.Subject).Msg("failed to unmarshal NATS event")
			return
		}
		// Skip our own messages; they were already delivered locally.
		if wire.NodeID == nb.nodeID {
			return
		}
		nb.local.Publish(wire.EventType, wire.Payload)
	})
	if err != nil {
		nb.logger.Error().Err(err).Str("subject", subject).Msg("NATS subscribe failed")
		return sub
	}

	nb.subs[eventType] = natsSub
	return sub
}

// Publish delivers locally and broadcasts to other nodes.
func (nb *NATSBus) Publish(eventType events.EventType, payload events.Payload) {
	nb.local.Publish(eventType, payload)

	if nb.conn == nil || !nb.conn.IsConnected() {
		return
	}

	data, err := marshalNATSMessage(eventType, payload, nb.nodeID)
	if err != nil {
		nb.logger.Error().Err(err).Msg("failed to marshal NATS event")
		return
	}
	if err := nb.conn.Publish(natsSubjectPrefix+string(eventType), data); err != nil {
		nb.logger.Error().Err(err).Str("event_type", string(eventType)).Msg("NATS publish failed")
	}
}

// Unsubscribe removes a subscriber.
func (nb *NATSBus) Unsubscribe(eventType events.EventType, sub events.Subscriber) {
	nb.local.Unsubscribe(eventType, sub)
}

// Close drains the NATS connection.
func (nb *NATSBus) Close() error {
	nb.mu.Lock()
	for eventType, natsSub := range nb.subs {
		if err := natsSub.Unsubscribe(); err != nil {
			nb.logger.Warn().Err(err).Str("event_type", string(eventType)).Msg("NATS unsubscribe failed")
		}
	}
	nb.subs = make(map[events.EventType]*nats.Subscription)
	nb.mu.Unlock()

	if nb.conn == nil {
		return nil
	}
	if err := nb.conn.Drain(); err != nil {
		nb.conn.Close()
		return err
	}
	return nil
}

// natsMessage represents a message published to NATS.
type natsMessage struct {
	EventType events.EventType `json:"event_type"`
	Payload   events.Payload   `json:"payload"`
	Timestamp time.Time        `json:"timestamp"`
	NodeID    string           `json:"node_id"`
	MessageID string           `json:"message_id"`
}

func marshalNATSMessage(eventType events.EventType, payload events.Payload, nodeID string) ([]byte, error) {
	msg := natsMessage{
		EventType: eventType,
		Payload:   payload,
		Timestamp: time.Now(),
		NodeID:    nodeID,
		MessageID: uuid.NewString(),
	}
	return json.Marshal(msg)
}

func unmarshalNATSMessage(data []byte) (*natsMessage, error) {
	var msg natsMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("unmarshal nats message: %w", err)
	}
	return &msg, nil
}

func generateNodeID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "node"
	}
	return fmt.Sprintf("%s-%s", host, strings.Split(uuid.NewString(), "-")[0])
}
