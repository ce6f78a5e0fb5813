/*
Copyright (C) 2026 Open Shelter Collective

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package api exposes the HTTP surface of shelterboard: auth, animals,
// kennels, stays and the occupancy timeline, hotel reservations, inventory,
// users, settings, audit, logs, legacy imports and the websocket event feed.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/openshelter/shelterboard/internal/audit"
	"github.com/openshelter/shelterboard/internal/auth"
	"github.com/openshelter/shelterboard/internal/cache"
	"github.com/openshelter/shelterboard/internal/events"
	"github.com/openshelter/shelterboard/internal/hotel"
	"github.com/openshelter/shelterboard/internal/inventory"
	"github.com/openshelter/shelterboard/internal/logbuffer"
	"github.com/openshelter/shelterboard/internal/migration"
	"github.com/openshelter/shelterboard/internal/models"
	"github.com/openshelter/shelterboard/internal/photos"
)

// API exposes HTTP handlers.
type API struct {
	db           *gorm.DB
	jwtSecret    []byte
	jwtTTL       time.Duration
	hotelSvc     *hotel.Service
	materializer *hotel.Materializer
	inventorySvc *inventory.Service
	auditSvc     *audit.Service
	migrationSvc *migration.Service
	photoSvc     *photos.Service
	cache        *cache.Cache
	bus          events.EventBus
	logBuffer    *logbuffer.Buffer
	logger       zerolog.Logger
}

// New creates the API router wrapper.
func New(db *gorm.DB, jwtSecret []byte, jwtTTL time.Duration, hotelSvc *hotel.Service, materializer *hotel.Materializer, inventorySvc *inventory.Service, auditSvc *audit.Service, migrationSvc *migration.Service, photoSvc *photos.Service, cacheSvc *cache.Cache, bus events.EventBus, logBuf *logbuffer.Buffer, logger zerolog.Logger) *API {
	return &API{
		db:           db,
		jwtSecret:    jwtSecret,
		jwtTTL:       jwtTTL,
		hotelSvc:     hotelSvc,
		materializer: materializer,
		inventorySvc: inventorySvc,
		auditSvc:     auditSvc,
		migrationSvc: migrationSvc,
		photoSvc:     photoSvc,
		cache:        cacheSvc,
		bus:          bus,
		logBuffer:    logBuf,
		logger:       logger,
	}
}

// Routes mounts API routes on the provided router.
func (a *API) Routes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", a.handleHealth)
		r.Post("/auth/login", a.handleLogin)

		r.Group(func(pr chi.Router) {
			pr.Use(a.authMiddleware())

			pr.Get("/auth/me", a.handleMe)

			pr.Route("/animals", func(r chi.Router) {
				r.Get("/", a.handleAnimalsList)
				r.With(a.requireRoles(models.RoleAdmin, models.RoleManager)).Post("/", a.handleAnimalsCreate)
				r.Route("/{animalID}", func(r chi.Router) {
					r.Get("/", a.handleAnimalsGet)
					r.With(a.requireRoles(models.RoleAdmin, models.RoleManager)).Patch("/", a.handleAnimalsUpdate)
					r.With(a.requireRoles(models.RoleAdmin)).Delete("/", a.handleAnimalsDelete)
					r.Get("/photo", a.handleAnimalPhotoGet)
					r.With(a.requireRoles(models.RoleAdmin, models.RoleManager)).Post("/photo", a.handleAnimalPhotoUpload)
					r.With(a.requireRoles(models.RoleAdmin, models.RoleManager)).Delete("/photo", a.handleAnimalPhotoDelete)
				})
			})

			pr.Route("/kennels", func(r chi.Router) {
				r.Get("/", a.handleKennelsList)
				r.With(a.requireRoles(models.RoleAdmin, models.RoleManager)).Post("/", a.handleKennelsCreate)
				r.Route("/{kennelID}", func(r chi.Router) {
					r.Get("/", a.handleKennelsGet)
					r.With(a.requireRoles(models.RoleAdmin, models.RoleManager)).Patch("/", a.handleKennelsUpdate)
					r.With(a.requireRoles(models.RoleAdmin)).Delete("/", a.handleKennelsDelete)
				})
			})

			pr.Route("/stays", func(r chi.Router) {
				r.Get("/", a.handleStaysList)
				r.Post("/", a.handleStaysCreate)
				r.Route("/{stayID}", func(r chi.Router) {
					r.Get("/", a.handleStaysGet)
					r.Patch("/", a.handleStaysUpdate)
					r.Post("/end", a.handleStaysEnd)
					r.With(a.requireRoles(models.RoleAdmin, models.RoleManager)).Delete("/", a.handleStaysDelete)
				})
			})

			pr.Get("/timeline", a.handleTimeline)

			pr.Route("/reservations", func(r chi.Router) {
				r.Get("/", a.handleReservationsList)
				r.With(a.requireRoles(models.RoleAdmin, models.RoleManager)).Post("/", a.handleReservationsCreate)
				r.Route("/{reservationID}", func(r chi.Router) {
					r.Get("/", a.handleReservationsGet)
					r.With(a.requireRoles(models.RoleAdmin, models.RoleManager)).Post("/confirm", a.handleReservationsConfirm)
					r.With(a.requireRoles(models.RoleAdmin, models.RoleManager)).Post("/check-in", a.handleReservationsCheckIn)
					r.With(a.requireRoles(models.RoleAdmin, models.RoleManager)).Post("/check-out", a.handleReservationsCheckOut)
					r.With(a.requireRoles(models.RoleAdmin, models.RoleManager)).Post("/cancel", a.handleReservationsCancel)
				})
				r.With(a.requireRoles(models.RoleAdmin)).Post("/materialize", a.handleReservationsMaterialize)
			})

			pr.Route("/inventory", func(r chi.Router) {
				r.Get("/", a.handleInventoryList)
				r.With(a.requireRoles(models.RoleAdmin, models.RoleManager)).Post("/", a.handleInventoryCreate)
				r.Route("/{itemID}", func(r chi.Router) {
					r.Get("/", a.handleInventoryGet)
					r.Post("/adjust", a.handleInventoryAdjust)
					r.Get("/movements", a.handleInventoryMovements)
				})
			})

			pr.Route("/users", func(r chi.Router) {
				r.Use(a.requireRoles(models.RoleAdmin))
				r.Get("/", a.handleUsersList)
				r.Post("/", a.handleUsersCreate)
				r.Route("/{userID}", func(r chi.Router) {
					r.Get("/", a.handleUsersGet)
					r.Patch("/", a.handleUsersUpdate)
					r.Delete("/", a.handleUsersDelete)
				})
			})

			pr.Route("/settings", func(r chi.Router) {
				r.Get("/", a.handleSettingsGet)
				r.With(a.requireRoles(models.RoleAdmin)).Put("/", a.handleSettingsUpdate)
			})

			pr.Route("/apikeys", func(r chi.Router) {
				r.Get("/", a.handleAPIKeysList)
				r.Post("/", a.handleAPIKeysCreate)
				r.Route("/{keyID}", func(r chi.Router) {
					r.Post("/revoke", a.handleAPIKeysRevoke)
					r.Delete("/", a.handleAPIKeysDelete)
				})
			})

			pr.Route("/audit", func(r chi.Router) {
				r.Use(a.requireRoles(models.RoleAdmin, models.RoleManager))
				r.Get("/", a.handleAuditList)
			})

			pr.Route("/system", func(r chi.Router) {
				r.Use(a.requireRoles(models.RoleAdmin))
				r.Get("/status", a.handleSystemStatus)
				r.Get("/logs", a.handleSystemLogs)
				r.Get("/logs/components", a.handleLogComponents)
				r.Get("/logs/stats", a.handleLogStats)
				r.Delete("/logs", a.handleClearLogs)
			})

			pr.Group(func(mr chi.Router) {
				mr.Use(a.requireRoles(models.RoleAdmin))
				mr.Route("/migrations", func(r chi.Router) {
					r.Get("/", a.handleMigrationsList)
					r.Post("/", a.handleMigrationsCreate)
					r.Route("/{jobID}", func(r chi.Router) {
						r.Get("/", a.handleMigrationsGet)
						r.Post("/start", a.handleMigrationsStart)
						r.Post("/cancel", a.handleMigrationsCancel)
						r.Delete("/", a.handleMigrationsDelete)
					})
				})
			})

			pr.Get("/events", a.handleEvents)
		})
	})
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) authMiddleware() func(http.Handler) http.Handler {
	return auth.MiddlewareWithJWT(a.db, a.jwtSecret)
}

func (a *API) requireRoles(allowed ...models.RoleName) func(http.Handler) http.Handler {
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[string(role)] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := auth.ClaimsFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			if _, exists := allowedSet[claims.Role]; exists {
				next.ServeHTTP(w, r)
				return
			}
			writeError(w, http.StatusForbidden, "insufficient_role")
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}

// auditContext extracts user and request info for audit logging.
func (a *API) auditContext(r *http.Request) events.Payload {
	payload := events.Payload{
		"ip_address": r.RemoteAddr,
		"user_agent": r.UserAgent(),
	}

	if claims, ok := auth.ClaimsFromContext(r.Context()); ok && claims != nil {
		payload["user_id"] = claims.UserID
		payload["user_email"] = claims.Email
	}

	return payload
}

// userIDFromContext returns the authenticated user's ID, or nil.
func userIDFromContext(r *http.Request) *string {
	if claims, ok := auth.ClaimsFromContext(r.Context()); ok && claims != nil && claims.UserID != "" {
		id := claims.UserID
		return &id
	}
	return nil
}
