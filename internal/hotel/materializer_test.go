package hotel

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/openshelter/shelterboard/internal/events"
	"github.com/openshelter/shelterboard/internal/models"
)

func TestMaterializerExpandsWeeklyReservation(t *testing.T) {
	db := newTestDB(t)
	kennel, animal := seedKennelAndAnimal(t, db, 2)

	start := time.Now().Add(24 * time.Hour).Truncate(time.Hour)
	reservation := models.Reservation{
		ID:       "r1",
		KennelID: kennel.ID,
		AnimalID: animal.ID,
		Status:   models.ReservationConfirmed,
		StartsAt: start,
		EndsAt:   start.Add(48 * time.Hour),
		RRule:    "FREQ=WEEKLY;COUNT=10",
	}
	if err := db.Create(&reservation).Error; err != nil {
		t.Fatalf("create reservation: %v", err)
	}

	m := NewMaterializer(db, events.NewBus(), zerolog.Nop(), time.Minute, 30*24*time.Hour, nil)
	if err := m.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	var stays []models.Stay
	if err := db.Where("reservation_id = ?", reservation.ID).Order("starts_at ASC").Find(&stays).Error; err != nil {
		t.Fatalf("find stays: %v", err)
	}

	// About 4-5 weekly occurrences fit inside a 30 day lookahead.
	if len(stays) < 4 || len(stays) > 5 {
		t.Fatalf("expected 4-5 materialized stays, got %d", len(stays))
	}

	// Each stay keeps the single-occurrence duration.
	for _, stay := range stays {
		if stay.EndsAt == nil {
			t.Fatal("materialized stay missing end")
		}
		if got := stay.EndsAt.Sub(stay.StartsAt); got != 48*time.Hour {
			t.Fatalf("expected 48h stay, got %v", got)
		}
	}

	var updated models.Reservation
	if err := db.First(&updated, "id = ?", reservation.ID).Error; err != nil {
		t.Fatalf("reload reservation: %v", err)
	}
	if updated.MaterializedTo == nil {
		t.Fatal("expected materialized_to to advance")
	}
}

func TestMaterializerIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	kennel, animal := seedKennelAndAnimal(t, db, 2)

	start := time.Now().Add(24 * time.Hour).Truncate(time.Hour)
	reservation := models.Reservation{
		ID:       "r1",
		KennelID: kennel.ID,
		AnimalID: animal.ID,
		Status:   models.ReservationConfirmed,
		StartsAt: start,
		EndsAt:   start.Add(24 * time.Hour),
		RRule:    "FREQ=DAILY;COUNT=3",
	}
	if err := db.Create(&reservation).Error; err != nil {
		t.Fatalf("create reservation: %v", err)
	}

	m := NewMaterializer(db, events.NewBus(), zerolog.Nop(), time.Minute, 30*24*time.Hour, nil)
	if err := m.RunOnce(context.Background()); err != nil {
		t.Fatalf("first RunOnce: %v", err)
	}

	var first int64
	db.Model(&models.Stay{}).Where("reservation_id = ?", reservation.ID).Count(&first)

	// Clear the high-water mark and rerun; existing stays must not duplicate.
	if err := db.Model(&models.Reservation{}).Where("id = ?", reservation.ID).Update("materialized_to", nil).Error; err != nil {
		t.Fatalf("reset materialized_to: %v", err)
	}
	if err := m.RunOnce(context.Background()); err != nil {
		t.Fatalf("second RunOnce: %v", err)
	}

	var second int64
	db.Model(&models.Stay{}).Where("reservation_id = ?", reservation.ID).Count(&second)
	if first != second {
		t.Fatalf("expected idempotent expansion, %d then %d stays", first, second)
	}
}

func TestMaterializerSingleOccurrence(t *testing.T) {
	db := newTestDB(t)
	kennel, animal := seedKennelAndAnimal(t, db, 2)

	start := time.Now().Add(48 * time.Hour).Truncate(time.Hour)
	reservation := models.Reservation{
		ID:       "r1",
		KennelID: kennel.ID,
		AnimalID: animal.ID,
		Status:   models.ReservationConfirmed,
		StartsAt: start,
		EndsAt:   start.Add(72 * time.Hour),
	}
	if err := db.Create(&reservation).Error; err != nil {
		t.Fatalf("create reservation: %v", err)
	}

	m := NewMaterializer(db, events.NewBus(), zerolog.Nop(), time.Minute, 30*24*time.Hour, nil)
	if err := m.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	var count int64
	db.Model(&models.Stay{}).Where("reservation_id = ?", reservation.ID).Count(&count)
	if count != 1 {
		t.Fatalf("expected 1 stay for non-recurring reservation, got %d", count)
	}
}

func TestMaterializerSkipsPendingAndCancelled(t *testing.T) {
	db := newTestDB(t)
	kennel, animal := seedKennelAndAnimal(t, db, 2)

	start := time.Now().Add(24 * time.Hour)
	for i, status := range []models.ReservationStatus{models.ReservationPending, models.ReservationCancelled} {
		reservation := models.Reservation{
			ID:       string(rune('a' + i)),
			KennelID: kennel.ID,
			AnimalID: animal.ID,
			Status:   status,
			StartsAt: start,
			EndsAt:   start.Add(24 * time.Hour),
		}
		if err := db.Create(&reservation).Error; err != nil {
			t.Fatalf("create reservation: %v", err)
		}
	}

	m := NewMaterializer(db, events.NewBus(), zerolog.Nop(), time.Minute, 30*24*time.Hour, nil)
	if err := m.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	var count int64
	db.Model(&models.Stay{}).Count(&count)
	if count != 0 {
		t.Fatalf("expected no stays for pending/cancelled reservations, got %d", count)
	}
}
