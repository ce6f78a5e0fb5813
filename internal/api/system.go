/*
Copyright (C) 2026 Open Shelter Collective

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/openshelter/shelterboard/internal/logbuffer"
)

// SystemStatus represents the overall system health status.
type SystemStatus struct {
	Database  ComponentStatus `json:"database"`
	Storage   ComponentStatus `json:"storage"`
	Cache     ComponentStatus `json:"cache"`
	Timestamp time.Time       `json:"timestamp"`
}

// ComponentStatus represents the status of a single system component.
type ComponentStatus struct {
	Status  string `json:"status"` // "ok", "error", "unavailable"
	Message string `json:"message,omitempty"`
}

func (a *API) handleSystemStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status := SystemStatus{
		Timestamp: time.Now(),
	}

	sqlDB, err := a.db.DB()
	if err != nil {
		status.Database = ComponentStatus{Status: "error", Message: err.Error()}
	} else if err := sqlDB.PingContext(ctx); err != nil {
		status.Database = ComponentStatus{Status: "error", Message: err.Error()}
	} else {
		status.Database = ComponentStatus{Status: "ok", Message: "Connected"}
	}

	if a.photoSvc == nil {
		status.Storage = ComponentStatus{Status: "unavailable", Message: "photo storage not configured"}
	} else if err := a.photoSvc.CheckStorageAccess(); err != nil {
		status.Storage = ComponentStatus{Status: "error", Message: err.Error()}
	} else {
		status.Storage = ComponentStatus{Status: "ok"}
	}

	if a.cache == nil {
		status.Cache = ComponentStatus{Status: "unavailable", Message: "cache not configured"}
	} else if a.cache.IsAvailable() {
		status.Cache = ComponentStatus{Status: "ok"}
	} else {
		status.Cache = ComponentStatus{Status: "error", Message: "redis unreachable, serving from database"}
	}

	writeJSON(w, http.StatusOK, status)
}

func (a *API) handleSystemLogs(w http.ResponseWriter, r *http.Request) {
	if a.logBuffer == nil {
		writeError(w, http.StatusServiceUnavailable, "log_buffer_disabled")
		return
	}

	params := logbuffer.QueryParams{
		Level:      r.URL.Query().Get("level"),
		Component:  r.URL.Query().Get("component"),
		Search:     r.URL.Query().Get("search"),
		Descending: r.URL.Query().Get("order") != "asc",
	}
	if limit := r.URL.Query().Get("limit"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil && n > 0 {
			params.Limit = n
		}
	}
	if since := r.URL.Query().Get("since"); since != "" {
		if t, err := time.Parse(time.RFC3339, since); err == nil {
			params.Since = t
		}
	}

	entries := a.logBuffer.Query(params)
	writeJSON(w, http.StatusOK, map[string]any{
		"entries": entries,
		"count":   len(entries),
	})
}

func (a *API) handleLogComponents(w http.ResponseWriter, r *http.Request) {
	if a.logBuffer == nil {
		writeError(w, http.StatusServiceUnavailable, "log_buffer_disabled")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"components": a.logBuffer.GetComponents()})
}

func (a *API) handleLogStats(w http.ResponseWriter, r *http.Request) {
	if a.logBuffer == nil {
		writeError(w, http.StatusServiceUnavailable, "log_buffer_disabled")
		return
	}
	writeJSON(w, http.StatusOK, a.logBuffer.Stats())
}

func (a *API) handleClearLogs(w http.ResponseWriter, r *http.Request) {
	if a.logBuffer == nil {
		writeError(w, http.StatusServiceUnavailable, "log_buffer_disabled")
		return
	}
	a.logBuffer.Clear()
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}
