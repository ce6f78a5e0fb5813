/*
Copyright (C) 2026 Open Shelter Collective

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/openshelter/shelterboard/internal/cache"
	"github.com/openshelter/shelterboard/internal/events"
	"github.com/openshelter/shelterboard/internal/models"
)

type kennelRequest struct {
	Name     string `json:"name"`
	Building string `json:"building"`
	Capacity *int   `json:"capacity"`
	Species  string `json:"species"`
	Notes    string `json:"notes"`
	Active   *bool  `json:"active"`
}

func (a *API) handleKennelsList(w http.ResponseWriter, r *http.Request) {
	// Kennel geometry changes rarely, so the list is served from cache
	// whenever Redis has it.
	if a.cache != nil && r.URL.Query().Get("include_inactive") == "" {
		if kennels, ok := a.cache.GetKennelList(r.Context()); ok {
			writeJSON(w, http.StatusOK, kennels)
			return
		}
	}

	q := a.db.WithContext(r.Context()).Order("building, name")
	if r.URL.Query().Get("include_inactive") == "" {
		q = q.Where("active = ?", true)
	}

	var kennels []models.Kennel
	if err := q.Find(&kennels).Error; err != nil {
		a.logger.Error().Err(err).Msg("list kennels failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	if a.cache != nil && r.URL.Query().Get("include_inactive") == "" {
		cached := make([]cache.CachedKennel, 0, len(kennels))
		for i, k := range kennels {
			cached = append(cached, cache.CachedKennel{
				ID:       k.ID,
				Name:     k.Name,
				Building: k.Building,
				Capacity: k.Capacity,
				Species:  string(k.Species),
				Active:   k.Active,
				SortIdx:  i,
			})
		}
		_ = a.cache.SetKennelList(r.Context(), cached)
	}

	writeJSON(w, http.StatusOK, kennels)
}

func (a *API) handleKennelsGet(w http.ResponseWriter, r *http.Request) {
	var kennel models.Kennel
	err := a.db.WithContext(r.Context()).First(&kennel, "id = ?", chi.URLParam(r, "kennelID")).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, kennel)
}

func (a *API) handleKennelsCreate(w http.ResponseWriter, r *http.Request) {
	var req kennelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name_required")
		return
	}

	capacity := 1
	if req.Capacity != nil {
		capacity = *req.Capacity
	}

	kennel := models.Kennel{
		ID:       uuid.NewString(),
		Name:     req.Name,
		Building: req.Building,
		Capacity: capacity,
		Species:  models.Species(req.Species),
		Notes:    req.Notes,
		Active:   true,
	}
	if req.Active != nil {
		kennel.Active = *req.Active
	}

	if err := a.db.WithContext(r.Context()).Create(&kennel).Error; err != nil {
		a.logger.Error().Err(err).Msg("create kennel failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	a.invalidateKennels(r)

	payload := a.auditContext(r)
	payload["resource_type"] = "kennel"
	payload["resource_id"] = kennel.ID
	a.bus.Publish(events.EventKennelCreated, payload)

	writeJSON(w, http.StatusCreated, kennel)
}

func (a *API) handleKennelsUpdate(w http.ResponseWriter, r *http.Request) {
	var kennel models.Kennel
	err := a.db.WithContext(r.Context()).First(&kennel, "id = ?", chi.URLParam(r, "kennelID")).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	var req kennelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	if req.Name != "" {
		kennel.Name = req.Name
	}
	if req.Building != "" {
		kennel.Building = req.Building
	}
	if req.Capacity != nil {
		kennel.Capacity = *req.Capacity
	}
	if req.Species != "" {
		kennel.Species = models.Species(req.Species)
	}
	if req.Notes != "" {
		kennel.Notes = req.Notes
	}
	if req.Active != nil {
		kennel.Active = *req.Active
	}

	if err := a.db.WithContext(r.Context()).Save(&kennel).Error; err != nil {
		a.logger.Error().Err(err).Msg("update kennel failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	a.invalidateKennels(r)

	payload := a.auditContext(r)
	payload["resource_type"] = "kennel"
	payload["resource_id"] = kennel.ID
	a.bus.Publish(events.EventKennelUpdated, payload)

	writeJSON(w, http.StatusOK, kennel)
}

func (a *API) handleKennelsDelete(w http.ResponseWriter, r *http.Request) {
	kennelID := chi.URLParam(r, "kennelID")

	var count int64
	if err := a.db.WithContext(r.Context()).Model(&models.Stay{}).
		Where("kennel_id = ?", kennelID).Count(&count).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	if count > 0 {
		writeError(w, http.StatusConflict, "kennel_has_stays")
		return
	}

	result := a.db.WithContext(r.Context()).Delete(&models.Kennel{}, "id = ?", kennelID)
	if result.Error != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	if result.RowsAffected == 0 {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}

	a.invalidateKennels(r)

	payload := a.auditContext(r)
	payload["resource_type"] = "kennel"
	payload["resource_id"] = kennelID
	a.bus.Publish(events.EventKennelDeleted, payload)

	w.WriteHeader(http.StatusNoContent)
}

// invalidateKennels drops the cached kennel list and every assembled
// timeline, since both derive from kennel rows.
func (a *API) invalidateKennels(r *http.Request) {
	if a.cache == nil {
		return
	}
	_ = a.cache.InvalidateKennelList(r.Context())
	_ = a.cache.InvalidateTimelines(r.Context())
}
