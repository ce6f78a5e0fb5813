package events

import (
	"testing"
	"time"
)

func TestBusPublishSubscribe(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(EventStayCreated)

	bus.Publish(EventStayCreated, Payload{"stay_id": "s1", "kennel_id": "k1"})

	select {
	case payload := <-sub:
		if payload["stay_id"] != "s1" {
			t.Fatalf("expected stay_id s1, got %v", payload["stay_id"])
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestBusPublishDoesNotBlockOnFullSubscriber(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(EventInventoryLowStock)

	// Fill the subscriber's buffer and then some; Publish must not block.
	for i := 0; i < 20; i++ {
		bus.Publish(EventInventoryLowStock, Payload{"seq": i})
	}

	if len(sub) != cap(sub) {
		t.Fatalf("expected full buffer of %d, got %d", cap(sub), len(sub))
	}
}

func TestBusUnsubscribeClosesChannel(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(EventAnimalUpdated)
	bus.Unsubscribe(EventAnimalUpdated, sub)

	if _, open := <-sub; open {
		t.Fatal("expected channel to be closed after unsubscribe")
	}

	// Publishing after unsubscribe must not panic.
	bus.Publish(EventAnimalUpdated, Payload{"animal_id": "a1"})
}

func TestBusMultipleSubscribers(t *testing.T) {
	bus := NewBus()
	a := bus.Subscribe(EventReservationConfirmed)
	b := bus.Subscribe(EventReservationConfirmed)

	bus.Publish(EventReservationConfirmed, Payload{"reservation_id": "r1"})

	for _, sub := range []Subscriber{a, b} {
		select {
		case payload := <-sub:
			if payload["reservation_id"] != "r1" {
				t.Fatalf("expected reservation_id r1, got %v", payload["reservation_id"])
			}
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for fan-out event")
		}
	}
}
