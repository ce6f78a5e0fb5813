/*
Copyright (C) 2026 Open Shelter Collective

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"

	"github.com/openshelter/shelterboard/internal/auth"
	"github.com/openshelter/shelterboard/internal/migration"
)

func (a *API) handleMigrationsList(w http.ResponseWriter, r *http.Request) {
	jobs, err := a.migrationSvc.ListJobs(r.Context())
	if err != nil {
		a.logger.Error().Err(err).Msg("list migration jobs failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}

func (a *API) handleMigrationsGet(w http.ResponseWriter, r *http.Request) {
	job, err := a.migrationSvc.GetJob(r.Context(), chi.URLParam(r, "jobID"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeError(w, http.StatusNotFound, "not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (a *API) handleMigrationsCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SourceType string            `json:"source_type"`
		Options    migration.Options `json:"options"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if req.SourceType == "" {
		writeError(w, http.StatusBadRequest, "source_type_required")
		return
	}

	if claims, ok := auth.ClaimsFromContext(r.Context()); ok {
		req.Options.ImportingUserID = claims.UserID
	}

	job, err := a.migrationSvc.CreateJob(r.Context(), migration.SourceType(req.SourceType), req.Options)
	if err != nil {
		var verrs migration.ValidationErrors
		if errors.As(err, &verrs) {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":  "validation_failed",
				"fields": verrs,
			})
			return
		}
		a.logger.Error().Err(err).Msg("create migration job failed")
		writeError(w, http.StatusBadRequest, "create_failed")
		return
	}

	writeJSON(w, http.StatusCreated, job)
}

func (a *API) handleMigrationsStart(w http.ResponseWriter, r *http.Request) {
	// The job outlives this request, so it runs off the server context
	// rather than the request's.
	if err := a.migrationSvc.StartJob(context.Background(), chi.URLParam(r, "jobID")); err != nil {
		writeError(w, http.StatusConflict, "start_failed")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

func (a *API) handleMigrationsCancel(w http.ResponseWriter, r *http.Request) {
	if err := a.migrationSvc.CancelJob(r.Context(), chi.URLParam(r, "jobID")); err != nil {
		writeError(w, http.StatusConflict, "cancel_failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

func (a *API) handleMigrationsDelete(w http.ResponseWriter, r *http.Request) {
	if err := a.migrationSvc.DeleteJob(r.Context(), chi.URLParam(r, "jobID")); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeError(w, http.StatusNotFound, "not_found")
			return
		}
		writeError(w, http.StatusConflict, "delete_failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
