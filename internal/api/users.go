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
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/openshelter/shelterboard/internal/auth"
	"github.com/openshelter/shelterboard/internal/events"
	"github.com/openshelter/shelterboard/internal/models"
)

type userRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
	Role     string `json:"role"`
	Active   *bool  `json:"active"`
}

func validRole(role string) bool {
	switch models.RoleName(role) {
	case models.RoleAdmin, models.RoleManager, models.RoleVolunteer:
		return true
	}
	return false
}

func (a *API) handleUsersList(w http.ResponseWriter, r *http.Request) {
	var users []models.User
	if err := a.db.WithContext(r.Context()).Order("email").Find(&users).Error; err != nil {
		a.logger.Error().Err(err).Msg("list users failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (a *API) handleUsersGet(w http.ResponseWriter, r *http.Request) {
	var user models.User
	err := a.db.WithContext(r.Context()).First(&user, "id = ?", chi.URLParam(r, "userID")).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (a *API) handleUsersCreate(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email_and_password_required")
		return
	}
	if req.Role == "" {
		req.Role = string(models.RoleVolunteer)
	}
	if !validRole(req.Role) {
		writeError(w, http.StatusBadRequest, "invalid_role")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "hash_error")
		return
	}

	user := models.User{
		ID:       uuid.NewString(),
		Email:    req.Email,
		Name:     req.Name,
		Password: string(hash),
		Role:     models.RoleName(req.Role),
		Active:   true,
	}

	if err := a.db.WithContext(r.Context()).Create(&user).Error; err != nil {
		a.logger.Error().Err(err).Msg("create user failed")
		writeError(w, http.StatusConflict, "email_taken")
		return
	}

	payload := a.auditContext(r)
	payload["resource_type"] = "user"
	payload["resource_id"] = user.ID
	payload["email"] = user.Email
	a.bus.Publish(events.EventAuditUserCreate, payload)

	writeJSON(w, http.StatusCreated, user)
}

func (a *API) handleUsersUpdate(w http.ResponseWriter, r *http.Request) {
	var user models.User
	err := a.db.WithContext(r.Context()).First(&user, "id = ?", chi.URLParam(r, "userID")).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	var req userRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	if req.Email != "" {
		user.Email = req.Email
	}
	if req.Name != "" {
		user.Name = req.Name
	}
	if req.Role != "" {
		if !validRole(req.Role) {
			writeError(w, http.StatusBadRequest, "invalid_role")
			return
		}
		user.Role = models.RoleName(req.Role)
	}
	if req.Active != nil {
		user.Active = *req.Active
	}
	if req.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "hash_error")
			return
		}
		user.Password = string(hash)
	}

	if err := a.db.WithContext(r.Context()).Save(&user).Error; err != nil {
		a.logger.Error().Err(err).Msg("update user failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	payload := a.auditContext(r)
	payload["resource_type"] = "user"
	payload["resource_id"] = user.ID
	a.bus.Publish(events.EventAuditUserUpdate, payload)

	writeJSON(w, http.StatusOK, user)
}

func (a *API) handleUsersDelete(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	// Deleting yourself would orphan the session mid-request.
	if claims, ok := auth.ClaimsFromContext(r.Context()); ok && claims.UserID == userID {
		writeError(w, http.StatusBadRequest, "cannot_delete_self")
		return
	}

	result := a.db.WithContext(r.Context()).Delete(&models.User{}, "id = ?", userID)
	if result.Error != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	if result.RowsAffected == 0 {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}

	payload := a.auditContext(r)
	payload["resource_type"] = "user"
	payload["resource_id"] = userID
	a.bus.Publish(events.EventAuditUserDelete, payload)

	w.WriteHeader(http.StatusNoContent)
}
