/*
Copyright (C) 2026 Open Shelter Collective

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/openshelter/shelterboard/internal/cache"
	"github.com/openshelter/shelterboard/internal/events"
	"github.com/openshelter/shelterboard/internal/models"
)

// maxPhotoUploadBytes caps animal photo uploads.
const maxPhotoUploadBytes = 10 << 20

type animalRequest struct {
	Name        string  `json:"name"`
	Species     string  `json:"species"`
	Breed       string  `json:"breed"`
	Sex         string  `json:"sex"`
	CollarColor string  `json:"collar_color"`
	ChipNumber  string  `json:"chip_number"`
	Status      string  `json:"status"`
	BornAt      *string `json:"born_at"`
	IntakeAt    *string `json:"intake_at"`
	OwnerName   string  `json:"owner_name"`
	OwnerPhone  string  `json:"owner_phone"`
	Notes       string  `json:"notes"`
}

func (a *API) handleAnimalsList(w http.ResponseWriter, r *http.Request) {
	q := a.db.WithContext(r.Context()).Order("name")

	if species := r.URL.Query().Get("species"); species != "" {
		q = q.Where("species = ?", species)
	}
	if status := r.URL.Query().Get("status"); status != "" {
		q = q.Where("status = ?", status)
	}
	if search := r.URL.Query().Get("search"); search != "" {
		q = q.Where("name LIKE ? OR chip_number LIKE ?", "%"+search+"%", "%"+search+"%")
	}

	var animals []models.Animal
	if err := q.Find(&animals).Error; err != nil {
		a.logger.Error().Err(err).Msg("list animals failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, animals)
}

func (a *API) handleAnimalsGet(w http.ResponseWriter, r *http.Request) {
	animalID := chi.URLParam(r, "animalID")

	if a.cache != nil {
		if cached, ok := a.cache.GetAnimal(r.Context(), animalID); ok {
			writeJSON(w, http.StatusOK, cached)
			return
		}
	}

	var animal models.Animal
	err := a.db.WithContext(r.Context()).First(&animal, "id = ?", animalID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	if err != nil {
		a.logger.Error().Err(err).Msg("get animal failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	if a.cache != nil {
		_ = a.cache.SetAnimal(r.Context(), cachedAnimal(&animal))
	}
	writeJSON(w, http.StatusOK, animal)
}

func (a *API) handleAnimalsCreate(w http.ResponseWriter, r *http.Request) {
	var req animalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name_required")
		return
	}

	animal := models.Animal{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Species:     animalSpecies(req.Species),
		Breed:       req.Breed,
		Sex:         req.Sex,
		CollarColor: req.CollarColor,
		ChipNumber:  req.ChipNumber,
		Status:      models.AnimalInShelter,
		OwnerName:   req.OwnerName,
		OwnerPhone:  req.OwnerPhone,
		Notes:       req.Notes,
	}
	if req.Status != "" {
		animal.Status = models.AnimalStatus(req.Status)
	}
	if t, ok := parseTimePtr(req.BornAt); ok {
		animal.BornAt = t
	}
	if t, ok := parseTimePtr(req.IntakeAt); ok {
		animal.IntakeAt = t
	} else {
		now := time.Now()
		animal.IntakeAt = &now
	}

	if err := a.db.WithContext(r.Context()).Create(&animal).Error; err != nil {
		a.logger.Error().Err(err).Msg("create animal failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	payload := a.auditContext(r)
	payload["resource_type"] = "animal"
	payload["resource_id"] = animal.ID
	payload["name"] = animal.Name
	a.bus.Publish(events.EventAnimalCreated, payload)

	writeJSON(w, http.StatusCreated, animal)
}

func (a *API) handleAnimalsUpdate(w http.ResponseWriter, r *http.Request) {
	animalID := chi.URLParam(r, "animalID")

	var animal models.Animal
	err := a.db.WithContext(r.Context()).First(&animal, "id = ?", animalID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	var req animalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	if req.Name != "" {
		animal.Name = req.Name
	}
	if req.Species != "" {
		animal.Species = animalSpecies(req.Species)
	}
	if req.Breed != "" {
		animal.Breed = req.Breed
	}
	if req.Sex != "" {
		animal.Sex = req.Sex
	}
	if req.CollarColor != "" {
		animal.CollarColor = req.CollarColor
	}
	if req.ChipNumber != "" {
		animal.ChipNumber = req.ChipNumber
	}
	if req.Status != "" {
		animal.Status = models.AnimalStatus(req.Status)
	}
	if req.OwnerName != "" {
		animal.OwnerName = req.OwnerName
	}
	if req.OwnerPhone != "" {
		animal.OwnerPhone = req.OwnerPhone
	}
	if req.Notes != "" {
		animal.Notes = req.Notes
	}
	if t, ok := parseTimePtr(req.BornAt); ok {
		animal.BornAt = t
	}
	if t, ok := parseTimePtr(req.IntakeAt); ok {
		animal.IntakeAt = t
	}

	if err := a.db.WithContext(r.Context()).Save(&animal).Error; err != nil {
		a.logger.Error().Err(err).Msg("update animal failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	a.invalidateAnimal(r, animal.ID)

	payload := a.auditContext(r)
	payload["resource_type"] = "animal"
	payload["resource_id"] = animal.ID
	a.bus.Publish(events.EventAnimalUpdated, payload)

	writeJSON(w, http.StatusOK, animal)
}

func (a *API) handleAnimalsDelete(w http.ResponseWriter, r *http.Request) {
	animalID := chi.URLParam(r, "animalID")

	var count int64
	if err := a.db.WithContext(r.Context()).Model(&models.Stay{}).
		Where("animal_id = ?", animalID).Count(&count).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	if count > 0 {
		writeError(w, http.StatusConflict, "animal_has_stays")
		return
	}

	result := a.db.WithContext(r.Context()).Delete(&models.Animal{}, "id = ?", animalID)
	if result.Error != nil {
		a.logger.Error().Err(result.Error).Msg("delete animal failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	if result.RowsAffected == 0 {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}

	a.invalidateAnimal(r, animalID)

	payload := a.auditContext(r)
	payload["resource_type"] = "animal"
	payload["resource_id"] = animalID
	a.bus.Publish(events.EventAnimalDeleted, payload)

	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleAnimalPhotoUpload(w http.ResponseWriter, r *http.Request) {
	if a.photoSvc == nil {
		writeError(w, http.StatusServiceUnavailable, "photo_storage_disabled")
		return
	}

	animalID := chi.URLParam(r, "animalID")

	var animal models.Animal
	err := a.db.WithContext(r.Context()).First(&animal, "id = ?", animalID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxPhotoUploadBytes)
	if err := r.ParseMultipartForm(maxPhotoUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "upload_too_large")
		return
	}

	file, header, err := r.FormFile("photo")
	if err != nil {
		writeError(w, http.StatusBadRequest, "photo_field_required")
		return
	}
	defer file.Close()

	key, err := a.photoSvc.Store(r.Context(), animal.ID, header.Filename, file)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "storage_error")
		return
	}

	animal.PhotoKey = key
	if err := a.db.WithContext(r.Context()).Save(&animal).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	a.invalidateAnimal(r, animal.ID)

	writeJSON(w, http.StatusOK, map[string]string{
		"photo_key": key,
		"url":       a.photoSvc.URL(key),
	})
}

func (a *API) handleAnimalPhotoGet(w http.ResponseWriter, r *http.Request) {
	if a.photoSvc == nil {
		writeError(w, http.StatusServiceUnavailable, "photo_storage_disabled")
		return
	}

	animalID := chi.URLParam(r, "animalID")

	var animal models.Animal
	if err := a.db.WithContext(r.Context()).First(&animal, "id = ?", animalID).Error; err != nil {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	if animal.PhotoKey == "" {
		writeError(w, http.StatusNotFound, "no_photo")
		return
	}

	rc, err := a.photoSvc.Open(r.Context(), animal.PhotoKey)
	if err != nil {
		a.logger.Error().Err(err).Str("key", animal.PhotoKey).Msg("open photo failed")
		writeError(w, http.StatusInternalServerError, "storage_error")
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "private, max-age=300")
	_, _ = io.Copy(w, rc)
}

func (a *API) handleAnimalPhotoDelete(w http.ResponseWriter, r *http.Request) {
	if a.photoSvc == nil {
		writeError(w, http.StatusServiceUnavailable, "photo_storage_disabled")
		return
	}

	animalID := chi.URLParam(r, "animalID")

	var animal models.Animal
	if err := a.db.WithContext(r.Context()).First(&animal, "id = ?", animalID).Error; err != nil {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	if animal.PhotoKey == "" {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if err := a.photoSvc.Delete(r.Context(), animal.PhotoKey); err != nil {
		writeError(w, http.StatusInternalServerError, "storage_error")
		return
	}

	animal.PhotoKey = ""
	if err := a.db.WithContext(r.Context()).Save(&animal).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	a.invalidateAnimal(r, animal.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) invalidateAnimal(r *http.Request, animalID string) {
	if a.cache == nil {
		return
	}
	_ = a.cache.InvalidateAnimal(r.Context(), animalID)
}

func cachedAnimal(animal *models.Animal) *cache.CachedAnimal {
	return &cache.CachedAnimal{
		ID:          animal.ID,
		Name:        animal.Name,
		Species:     string(animal.Species),
		Breed:       animal.Breed,
		Status:      string(animal.Status),
		CollarColor: animal.CollarColor,
		ChipNumber:  animal.ChipNumber,
		PhotoKey:    animal.PhotoKey,
	}
}

func animalSpecies(s string) models.Species {
	switch models.Species(s) {
	case models.SpeciesDog, models.SpeciesCat:
		return models.Species(s)
	default:
		return models.SpeciesOther
	}
}

func parseTimePtr(s *string) (*time.Time, bool) {
	if s == nil || *s == "" {
		return nil, false
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, *s); err == nil {
			return &t, true
		}
	}
	return nil, false
}
