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

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/openshelter/shelterboard/internal/cache"
	"github.com/openshelter/shelterboard/internal/events"
	"github.com/openshelter/shelterboard/internal/models"
)

// loadSettings returns the settings singleton, preferring the cache.
func (a *API) loadSettings(r *http.Request) (*models.SystemSettings, bool) {
	if a.cache != nil {
		if cached, ok := a.cache.GetSettings(r.Context()); ok {
			return &models.SystemSettings{
				ID:             cached.ID,
				ShelterName:    cached.ShelterName,
				Timezone:       cached.Timezone,
				TimelineDays:   cached.TimelineDays,
				CheckoutHour:   cached.CheckoutHour,
				LowStockAlerts: cached.LowStockAlerts,
			}, true
		}
	}

	var settings models.SystemSettings
	err := a.db.WithContext(r.Context()).First(&settings).Error
	if err != nil {
		return nil, false
	}

	if a.cache != nil {
		_ = a.cache.SetSettings(r.Context(), cachedSettings(&settings))
	}
	return &settings, true
}

func (a *API) handleSettingsGet(w http.ResponseWriter, r *http.Request) {
	var settings models.SystemSettings
	err := a.db.WithContext(r.Context()).First(&settings).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// First boot: nothing saved yet, return defaults.
		writeJSON(w, http.StatusOK, models.SystemSettings{
			TimelineDays:   30,
			CheckoutHour:   11,
			LowStockAlerts: true,
		})
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (a *API) handleSettingsUpdate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ShelterName    string `json:"shelter_name"`
		Address        string `json:"address"`
		ContactEmail   string `json:"contact_email"`
		ContactPhone   string `json:"contact_phone"`
		Timezone       string `json:"timezone"`
		TimelineDays   *int   `json:"timeline_days"`
		CheckoutHour   *int   `json:"checkout_hour"`
		LowStockAlerts *bool  `json:"low_stock_alerts"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if req.TimelineDays != nil && (*req.TimelineDays < 1 || *req.TimelineDays > 365) {
		writeError(w, http.StatusBadRequest, "invalid_timeline_days")
		return
	}
	if req.CheckoutHour != nil && (*req.CheckoutHour < 0 || *req.CheckoutHour > 23) {
		writeError(w, http.StatusBadRequest, "invalid_checkout_hour")
		return
	}
	if req.Timezone != "" {
		if _, err := time.LoadLocation(req.Timezone); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_timezone")
			return
		}
	}

	var settings models.SystemSettings
	err := a.db.WithContext(r.Context()).First(&settings).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		settings = models.SystemSettings{
			ID:             uuid.NewString(),
			TimelineDays:   30,
			CheckoutHour:   11,
			LowStockAlerts: true,
		}
	} else if err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	if req.ShelterName != "" {
		settings.ShelterName = req.ShelterName
	}
	if req.Address != "" {
		settings.Address = req.Address
	}
	if req.ContactEmail != "" {
		settings.ContactEmail = req.ContactEmail
	}
	if req.ContactPhone != "" {
		settings.ContactPhone = req.ContactPhone
	}
	if req.Timezone != "" {
		settings.Timezone = req.Timezone
	}
	if req.TimelineDays != nil {
		settings.TimelineDays = *req.TimelineDays
	}
	if req.CheckoutHour != nil {
		settings.CheckoutHour = *req.CheckoutHour
	}
	if req.LowStockAlerts != nil {
		settings.LowStockAlerts = *req.LowStockAlerts
	}

	if err := a.db.WithContext(r.Context()).Save(&settings).Error; err != nil {
		a.logger.Error().Err(err).Msg("update settings failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	if a.cache != nil {
		_ = a.cache.InvalidateSettings(r.Context())
		_ = a.cache.InvalidateTimelines(r.Context())
	}

	payload := a.auditContext(r)
	payload["resource_type"] = "settings"
	payload["resource_id"] = settings.ID
	a.bus.Publish(events.EventAuditSettingsUpdate, payload)
	a.bus.Publish(events.EventSettingsUpdated, events.Payload{"settings_id": settings.ID})

	writeJSON(w, http.StatusOK, settings)
}

func cachedSettings(settings *models.SystemSettings) *cache.CachedSettings {
	return &cache.CachedSettings{
		ID:             settings.ID,
		ShelterName:    settings.ShelterName,
		Timezone:       settings.Timezone,
		TimelineDays:   settings.TimelineDays,
		CheckoutHour:   settings.CheckoutHour,
		LowStockAlerts: settings.LowStockAlerts,
	}
}
