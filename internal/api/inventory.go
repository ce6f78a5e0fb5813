/*
Copyright (C) 2026 Open Shelter Collective

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/openshelter/shelterboard/internal/inventory"
)

func (a *API) handleInventoryList(w http.ResponseWriter, r *http.Request) {
	items, err := a.inventorySvc.List(r.Context(),
		r.URL.Query().Get("category"),
		r.URL.Query().Get("low_stock") == "true")
	if err != nil {
		a.logger.Error().Err(err).Msg("list inventory failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (a *API) handleInventoryGet(w http.ResponseWriter, r *http.Request) {
	item, err := a.inventorySvc.Get(r.Context(), chi.URLParam(r, "itemID"))
	if err != nil {
		if errors.Is(err, inventory.ErrItemNotFound) {
			writeError(w, http.StatusNotFound, "not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (a *API) handleInventoryCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SKU          string  `json:"sku"`
		Name         string  `json:"name"`
		Category     string  `json:"category"`
		Unit         string  `json:"unit"`
		Quantity     float64 `json:"quantity"`
		ReorderLevel float64 `json:"reorder_level"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if req.SKU == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "sku_and_name_required")
		return
	}

	item, err := a.inventorySvc.Create(r.Context(), inventory.CreateParams{
		SKU:          req.SKU,
		Name:         req.Name,
		Category:     req.Category,
		Unit:         req.Unit,
		Quantity:     req.Quantity,
		ReorderLevel: req.ReorderLevel,
	})
	if err != nil {
		if errors.Is(err, inventory.ErrDuplicateSKU) {
			writeError(w, http.StatusConflict, "duplicate_sku")
			return
		}
		a.logger.Error().Err(err).Msg("create inventory item failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (a *API) handleInventoryAdjust(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Delta  float64 `json:"delta"`
		Reason string  `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if req.Delta == 0 {
		writeError(w, http.StatusBadRequest, "delta_required")
		return
	}

	item, err := a.inventorySvc.Adjust(r.Context(), chi.URLParam(r, "itemID"), req.Delta, req.Reason, userIDFromContext(r))
	if err != nil {
		switch {
		case errors.Is(err, inventory.ErrItemNotFound):
			writeError(w, http.StatusNotFound, "not_found")
		case errors.Is(err, inventory.ErrInsufficientStock):
			writeError(w, http.StatusConflict, "insufficient_stock")
		default:
			a.logger.Error().Err(err).Msg("adjust inventory failed")
			writeError(w, http.StatusInternalServerError, "db_error")
		}
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (a *API) handleInventoryMovements(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}

	movements, err := a.inventorySvc.Movements(r.Context(), chi.URLParam(r, "itemID"), limit)
	if err != nil {
		if errors.Is(err, inventory.ErrItemNotFound) {
			writeError(w, http.StatusNotFound, "not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, movements)
}
