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
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/openshelter/shelterboard/internal/auth"
	"github.com/openshelter/shelterboard/internal/events"
	"github.com/openshelter/shelterboard/internal/models"
)

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "credentials_required")
		return
	}

	var user models.User
	err := a.db.WithContext(r.Context()).First(&user, "email = ?", req.Email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeError(w, http.StatusUnauthorized, "invalid_credentials")
		return
	}
	if err != nil {
		a.logger.Error().Err(err).Msg("login lookup failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	if !user.Active {
		writeError(w, http.StatusUnauthorized, "account_deactivated")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		writeError(w, http.StatusUnauthorized, "invalid_credentials")
		return
	}

	token, err := auth.Issue(a.jwtSecret, auth.Claims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   string(user.Role),
	}, a.jwtTTL)
	if err != nil {
		a.logger.Error().Err(err).Msg("token issue failed")
		writeError(w, http.StatusInternalServerError, "token_error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"token":      token,
		"expires_in": int(a.jwtTTL.Seconds()),
		"user":       user,
	})
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var user models.User
	if err := a.db.WithContext(r.Context()).First(&user, "id = ?", claims.UserID).Error; err != nil {
		writeError(w, http.StatusNotFound, "user_not_found")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (a *API) handleAPIKeysList(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	keys, err := auth.ListAPIKeys(a.db, claims.UserID)
	if err != nil {
		a.logger.Error().Err(err).Msg("list api keys failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, keys)
}

func (a *API) handleAPIKeysCreate(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req struct {
		Name      string `json:"name"`
		ExpiresIn string `json:"expires_in,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name_required")
		return
	}

	var expiresIn time.Duration
	if req.ExpiresIn != "" {
		d, err := time.ParseDuration(req.ExpiresIn)
		if err != nil || d < 0 {
			writeError(w, http.StatusBadRequest, "invalid_expiry")
			return
		}
		expiresIn = d
	}

	plaintext, apiKey, err := auth.GenerateAPIKey(claims.UserID, req.Name, expiresIn)
	if err != nil {
		a.logger.Error().Err(err).Msg("generate api key failed")
		writeError(w, http.StatusInternalServerError, "keygen_error")
		return
	}

	if err := a.db.WithContext(r.Context()).Create(apiKey).Error; err != nil {
		a.logger.Error().Err(err).Msg("save api key failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	payload := a.auditContext(r)
	payload["resource_type"] = "api_key"
	payload["resource_id"] = apiKey.ID
	payload["name"] = req.Name
	a.bus.Publish(events.EventAuditAPIKeyCreate, payload)

	// The plaintext key is shown exactly once.
	writeJSON(w, http.StatusCreated, map[string]any{
		"key":     plaintext,
		"api_key": apiKey,
	})
}

func (a *API) handleAPIKeysRevoke(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	keyID := chi.URLParam(r, "keyID")
	if err := auth.RevokeAPIKey(a.db, keyID, claims.UserID); err != nil {
		if errors.Is(err, auth.ErrAPIKeyNotFound) {
			writeError(w, http.StatusNotFound, "not_found")
			return
		}
		a.logger.Error().Err(err).Msg("revoke api key failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	payload := a.auditContext(r)
	payload["resource_type"] = "api_key"
	payload["resource_id"] = keyID
	a.bus.Publish(events.EventAuditAPIKeyRevoke, payload)

	writeJSON(w, http.StatusOK, map[string]string{"status": "revoked"})
}

func (a *API) handleAPIKeysDelete(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	keyID := chi.URLParam(r, "keyID")
	if err := auth.DeleteAPIKey(a.db, keyID, claims.UserID); err != nil {
		if errors.Is(err, auth.ErrAPIKeyNotFound) {
			writeError(w, http.StatusNotFound, "not_found")
			return
		}
		a.logger.Error().Err(err).Msg("delete api key failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
