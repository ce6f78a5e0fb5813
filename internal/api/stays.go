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
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/openshelter/shelterboard/internal/events"
	"github.com/openshelter/shelterboard/internal/models"
)

type stayRequest struct {
	KennelID string  `json:"kennel_id"`
	AnimalID string  `json:"animal_id"`
	StartsAt string  `json:"starts_at"`
	EndsAt   *string `json:"ends_at"`
	Notes    string  `json:"notes"`
}

func (a *API) handleStaysList(w http.ResponseWriter, r *http.Request) {
	q := a.db.WithContext(r.Context()).Order("starts_at DESC")

	if kennelID := r.URL.Query().Get("kennel_id"); kennelID != "" {
		q = q.Where("kennel_id = ?", kennelID)
	}
	if animalID := r.URL.Query().Get("animal_id"); animalID != "" {
		q = q.Where("animal_id = ?", animalID)
	}
	if r.URL.Query().Get("open") == "true" {
		q = q.Where("ends_at IS NULL")
	}

	var stays []models.Stay
	if err := q.Limit(500).Find(&stays).Error; err != nil {
		a.logger.Error().Err(err).Msg("list stays failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, stays)
}

func (a *API) handleStaysGet(w http.ResponseWriter, r *http.Request) {
	var stay models.Stay
	err := a.db.WithContext(r.Context()).First(&stay, "id = ?", chi.URLParam(r, "stayID")).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, stay)
}

// handleStaysCreate records a walk-in stay. Walk-ins are never rejected for
// capacity: an overfull kennel shows up as a conflict on the timeline
// instead.
func (a *API) handleStaysCreate(w http.ResponseWriter, r *http.Request) {
	var req stayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if req.KennelID == "" || req.AnimalID == "" {
		writeError(w, http.StatusBadRequest, "kennel_and_animal_required")
		return
	}

	var kennel models.Kennel
	if err := a.db.WithContext(r.Context()).First(&kennel, "id = ?", req.KennelID).Error; err != nil {
		writeError(w, http.StatusBadRequest, "kennel_not_found")
		return
	}
	var animal models.Animal
	if err := a.db.WithContext(r.Context()).First(&animal, "id = ?", req.AnimalID).Error; err != nil {
		writeError(w, http.StatusBadRequest, "animal_not_found")
		return
	}

	startsAt := time.Now()
	if req.StartsAt != "" {
		t, err := time.Parse(time.RFC3339, req.StartsAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_starts_at")
			return
		}
		startsAt = t
	}

	stay := models.Stay{
		ID:       uuid.NewString(),
		KennelID: req.KennelID,
		AnimalID: req.AnimalID,
		StartsAt: startsAt,
		Notes:    req.Notes,
	}
	if req.EndsAt != nil && *req.EndsAt != "" {
		t, err := time.Parse(time.RFC3339, *req.EndsAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_ends_at")
			return
		}
		if !t.After(startsAt) {
			writeError(w, http.StatusBadRequest, "ends_before_start")
			return
		}
		stay.EndsAt = &t
	}

	if err := a.db.WithContext(r.Context()).Create(&stay).Error; err != nil {
		a.logger.Error().Err(err).Msg("create stay failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	a.invalidateTimelines(r)

	payload := a.auditContext(r)
	payload["resource_type"] = "stay"
	payload["resource_id"] = stay.ID
	payload["kennel_id"] = stay.KennelID
	payload["animal_id"] = stay.AnimalID
	a.bus.Publish(events.EventStayCreated, payload)

	writeJSON(w, http.StatusCreated, stay)
}

func (a *API) handleStaysUpdate(w http.ResponseWriter, r *http.Request) {
	var stay models.Stay
	err := a.db.WithContext(r.Context()).First(&stay, "id = ?", chi.URLParam(r, "stayID")).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	var req stayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	if req.KennelID != "" {
		var kennel models.Kennel
		if err := a.db.WithContext(r.Context()).First(&kennel, "id = ?", req.KennelID).Error; err != nil {
			writeError(w, http.StatusBadRequest, "kennel_not_found")
			return
		}
		stay.KennelID = req.KennelID
	}
	if req.StartsAt != "" {
		t, err := time.Parse(time.RFC3339, req.StartsAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_starts_at")
			return
		}
		stay.StartsAt = t
	}
	if req.EndsAt != nil {
		if *req.EndsAt == "" {
			stay.EndsAt = nil
		} else {
			t, err := time.Parse(time.RFC3339, *req.EndsAt)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_ends_at")
				return
			}
			stay.EndsAt = &t
		}
	}
	if stay.EndsAt != nil && !stay.EndsAt.After(stay.StartsAt) {
		writeError(w, http.StatusBadRequest, "ends_before_start")
		return
	}
	if req.Notes != "" {
		stay.Notes = req.Notes
	}

	if err := a.db.WithContext(r.Context()).Save(&stay).Error; err != nil {
		a.logger.Error().Err(err).Msg("update stay failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	a.invalidateTimelines(r)

	payload := a.auditContext(r)
	payload["resource_type"] = "stay"
	payload["resource_id"] = stay.ID
	a.bus.Publish(events.EventStayUpdated, payload)

	writeJSON(w, http.StatusOK, stay)
}

// handleStaysEnd closes an open stay now (or at the supplied instant).
func (a *API) handleStaysEnd(w http.ResponseWriter, r *http.Request) {
	var stay models.Stay
	err := a.db.WithContext(r.Context()).First(&stay, "id = ?", chi.URLParam(r, "stayID")).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	if stay.EndsAt != nil {
		writeError(w, http.StatusConflict, "stay_already_ended")
		return
	}

	endsAt := time.Now()
	var req struct {
		EndsAt string `json:"ends_at"`
	}
	if r.Body != nil && r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil && req.EndsAt != "" {
			if t, err := time.Parse(time.RFC3339, req.EndsAt); err == nil {
				endsAt = t
			}
		}
	}
	if !endsAt.After(stay.StartsAt) {
		writeError(w, http.StatusBadRequest, "ends_before_start")
		return
	}

	stay.EndsAt = &endsAt
	if err := a.db.WithContext(r.Context()).Save(&stay).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	a.invalidateTimelines(r)

	payload := a.auditContext(r)
	payload["resource_type"] = "stay"
	payload["resource_id"] = stay.ID
	a.bus.Publish(events.EventStayEnded, payload)

	writeJSON(w, http.StatusOK, stay)
}

func (a *API) handleStaysDelete(w http.ResponseWriter, r *http.Request) {
	stayID := chi.URLParam(r, "stayID")

	result := a.db.WithContext(r.Context()).Delete(&models.Stay{}, "id = ?", stayID)
	if result.Error != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	if result.RowsAffected == 0 {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}

	a.invalidateTimelines(r)

	payload := a.auditContext(r)
	payload["resource_type"] = "stay"
	payload["resource_id"] = stayID
	a.bus.Publish(events.EventStayDeleted, payload)

	w.WriteHeader(http.StatusNoContent)
}

func (a *API) invalidateTimelines(r *http.Request) {
	if a.cache == nil {
		return
	}
	_ = a.cache.InvalidateTimelines(r.Context())
}
