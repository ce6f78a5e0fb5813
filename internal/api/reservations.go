/*
Copyright (C) 2026 Open Shelter Collective

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"

	"github.com/openshelter/shelterboard/internal/hotel"
	"github.com/openshelter/shelterboard/internal/models"
)

type reservationRequest struct {
	KennelID     string `json:"kennel_id"`
	AnimalID     string `json:"animal_id"`
	StartsAt     string `json:"starts_at"`
	EndsAt       string `json:"ends_at"`
	RRule        string `json:"rrule"`
	ContactName  string `json:"contact_name"`
	ContactPhone string `json:"contact_phone"`
	Notes        string `json:"notes"`
}

func (a *API) handleReservationsList(w http.ResponseWriter, r *http.Request) {
	q := a.db.WithContext(r.Context()).Order("starts_at")

	if status := r.URL.Query().Get("status"); status != "" {
		q = q.Where("status = ?", status)
	}
	if kennelID := r.URL.Query().Get("kennel_id"); kennelID != "" {
		q = q.Where("kennel_id = ?", kennelID)
	}
	if r.URL.Query().Get("upcoming") == "true" {
		q = q.Where("ends_at > ?", time.Now())
	}

	var reservations []models.Reservation
	if err := q.Limit(500).Find(&reservations).Error; err != nil {
		a.logger.Error().Err(err).Msg("list reservations failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, reservations)
}

func (a *API) handleReservationsGet(w http.ResponseWriter, r *http.Request) {
	reservation, err := a.hotelSvc.Get(r.Context(), chi.URLParam(r, "reservationID"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeError(w, http.StatusNotFound, "not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, reservation)
}

func (a *API) handleReservationsCreate(w http.ResponseWriter, r *http.Request) {
	var req reservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	startsAt, err := time.Parse(time.RFC3339, req.StartsAt)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_starts_at")
		return
	}
	endsAt, err := time.Parse(time.RFC3339, req.EndsAt)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_ends_at")
		return
	}

	reservation, err := a.hotelSvc.Create(r.Context(), hotel.CreateParams{
		KennelID:     req.KennelID,
		AnimalID:     req.AnimalID,
		StartsAt:     startsAt,
		EndsAt:       endsAt,
		RRule:        req.RRule,
		ContactName:  req.ContactName,
		ContactPhone: req.ContactPhone,
		Notes:        req.Notes,
	})
	if err != nil {
		a.writeReservationError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, reservation)
}

func (a *API) handleReservationsConfirm(w http.ResponseWriter, r *http.Request) {
	reservation, err := a.hotelSvc.Confirm(r.Context(), chi.URLParam(r, "reservationID"))
	if err != nil {
		a.writeReservationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reservation)
}

func (a *API) handleReservationsCheckIn(w http.ResponseWriter, r *http.Request) {
	reservation, err := a.hotelSvc.CheckIn(r.Context(), chi.URLParam(r, "reservationID"))
	if err != nil {
		a.writeReservationError(w, err)
		return
	}
	a.invalidateTimelines(r)
	writeJSON(w, http.StatusOK, reservation)
}

func (a *API) handleReservationsCheckOut(w http.ResponseWriter, r *http.Request) {
	reservation, err := a.hotelSvc.CheckOut(r.Context(), chi.URLParam(r, "reservationID"))
	if err != nil {
		a.writeReservationError(w, err)
		return
	}
	a.invalidateTimelines(r)
	writeJSON(w, http.StatusOK, reservation)
}

func (a *API) handleReservationsCancel(w http.ResponseWriter, r *http.Request) {
	reservation, err := a.hotelSvc.Cancel(r.Context(), chi.URLParam(r, "reservationID"), userIDFromContext(r))
	if err != nil {
		a.writeReservationError(w, err)
		return
	}
	a.invalidateTimelines(r)
	writeJSON(w, http.StatusOK, reservation)
}

// handleReservationsMaterialize forces one materializer pass, regardless of
// the usual tick interval. Useful after bulk edits.
func (a *API) handleReservationsMaterialize(w http.ResponseWriter, r *http.Request) {
	if a.materializer == nil {
		writeError(w, http.StatusServiceUnavailable, "materializer_disabled")
		return
	}
	if err := a.materializer.RunOnce(r.Context()); err != nil {
		a.logger.Error().Err(err).Msg("manual materialize failed")
		writeError(w, http.StatusInternalServerError, "materialize_error")
		return
	}
	a.invalidateTimelines(r)
	writeJSON(w, http.StatusOK, map[string]string{"status": "materialized"})
}

func (a *API) writeReservationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, hotel.ErrKennelNotFound):
		writeError(w, http.StatusBadRequest, "kennel_not_found")
	case errors.Is(err, hotel.ErrAnimalNotFound):
		writeError(w, http.StatusBadRequest, "animal_not_found")
	case errors.Is(err, hotel.ErrInvalidRange):
		writeError(w, http.StatusBadRequest, "invalid_range")
	case errors.Is(err, hotel.ErrInvalidRRule):
		writeError(w, http.StatusBadRequest, "invalid_rrule")
	case errors.Is(err, hotel.ErrKennelFull):
		writeError(w, http.StatusConflict, "kennel_full")
	case errors.Is(err, hotel.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid_transition")
	case errors.Is(err, gorm.ErrRecordNotFound):
		writeError(w, http.StatusNotFound, "not_found")
	default:
		a.logger.Error().Err(err).Msg("reservation operation failed")
		writeError(w, http.StatusInternalServerError, "db_error")
	}
}
