/*
Copyright (C) 2026 Open Shelter Collective

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package server wires configuration, storage, services, and the HTTP API
// into one runnable dashboard process.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/openshelter/shelterboard/internal/api"
	"github.com/openshelter/shelterboard/internal/audit"
	"github.com/openshelter/shelterboard/internal/cache"
	"github.com/openshelter/shelterboard/internal/config"
	"github.com/openshelter/shelterboard/internal/db"
	"github.com/openshelter/shelterboard/internal/eventbus"
	"github.com/openshelter/shelterboard/internal/events"
	"github.com/openshelter/shelterboard/internal/hotel"
	"github.com/openshelter/shelterboard/internal/inventory"
	"github.com/openshelter/shelterboard/internal/leadership"
	"github.com/openshelter/shelterboard/internal/logbuffer"
	"github.com/openshelter/shelterboard/internal/migration"
	"github.com/openshelter/shelterboard/internal/photos"
	"github.com/openshelter/shelterboard/internal/telemetry"
)

// Server bundles HTTP and supporting services.
type Server struct {
	cfg        *config.Config
	logger     zerolog.Logger
	router     chi.Router
	httpServer *http.Server
	closers    []func() error

	db           *gorm.DB
	cache        *cache.Cache
	logBuffer    *logbuffer.Buffer
	api          *api.API
	bus          events.EventBus
	auditSvc     *audit.Service
	hotelSvc     *hotel.Service
	materializer *hotel.Materializer
	migrationSvc *migration.Service
	election     *leadership.Election
	tracer       *telemetry.TracerProvider

	metricsServer *http.Server

	bgCancel context.CancelFunc
	bgWG     sync.WaitGroup
}

// New constructs the server and wires dependencies.
func New(cfg *config.Config, logBuf *logbuffer.Buffer, logger zerolog.Logger) (*Server, error) {
	for _, warn := range cfg.LegacyEnvWarnings {
		logger.Warn().Msg(warn)
	}

	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(securityHeadersMiddleware)
	router.Use(telemetry.TracingMiddleware("shelterboard-api"))
	router.Use(telemetry.MetricsMiddleware)
	// Skip timeout for WebSocket connections: the events feed stays open for
	// the lifetime of the dashboard tab.
	router.Use(func(next http.Handler) http.Handler {
		timeout := middleware.Timeout(60 * time.Second)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Upgrade") == "websocket" {
				next.ServeHTTP(w, r)
				return
			}
			timeout(next).ServeHTTP(w, r)
		})
	})

	srv := &Server{
		cfg:       cfg,
		logger:    logger,
		router:    router,
		logBuffer: logBuf,
	}

	if err := srv.initDependencies(); err != nil {
		return nil, err
	}

	srv.configureRoutes()
	srv.startBackgroundWorkers()

	addr := fmt.Sprintf("%s:%d", cfg.HTTPBind, cfg.HTTPPort)
	srv.httpServer = &http.Server{
		Addr:    addr,
		Handler: srv.router,
		// Header deadline protects against slowloris; the full-body read
		// deadline stays off so photo and import uploads are not cut short.
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       0,
		WriteTimeout:      0,
		IdleTimeout:       60 * time.Second,
	}

	return srv, nil
}

func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'self' 'unsafe-inline' data: blob:; frame-ancestors 'none'; base-uri 'self'")

		// Only advertise HSTS for requests served over HTTPS.
		if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
			w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) initDependencies() error {
	database, err := db.Connect(s.cfg)
	if err != nil {
		return err
	}
	if err := db.Migrate(database); err != nil {
		return err
	}
	s.db = database
	s.DeferClose(func() error { return db.Close(database) })

	if s.cfg.S3Bucket == "" {
		if err := os.MkdirAll(s.cfg.PhotoRoot, 0755); err != nil {
			return fmt.Errorf("failed to create photo directory %s: %w", s.cfg.PhotoRoot, err)
		}
		s.logger.Info().Str("path", s.cfg.PhotoRoot).Msg("photo directory ready")
	}

	tracer, err := telemetry.InitTracer(context.Background(), telemetry.TracerConfig{
		ServiceName:    "shelterboard",
		ServiceVersion: "dev",
		OTLPEndpoint:   s.cfg.OTLPEndpoint,
		Enabled:        s.cfg.TracingEnabled,
		SampleRate:     s.cfg.TracingSampleRate,
	}, s.logger)
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}
	s.tracer = tracer
	s.DeferClose(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.tracer.Shutdown(ctx)
	})

	s.initEventBus()

	// Redis cache for the hot read paths (kennel list, timeline, settings).
	cacheCfg := cache.DefaultConfig()
	cacheCfg.RedisAddr = s.cfg.RedisAddr
	cacheCfg.RedisPassword = s.cfg.RedisPassword
	cacheCfg.RedisDB = s.cfg.RedisDB
	entityCache, err := cache.New(cacheCfg, s.logger)
	if err != nil {
		s.logger.Warn().Err(err).Msg("cache initialization failed, continuing without cache")
	} else {
		s.cache = entityCache
		s.DeferClose(func() error { return s.cache.Close() })
	}

	// Leader election so recurring reservations expand exactly once when
	// several instances share a database.
	isLeader := func() bool { return true }
	if s.cfg.LeaderElectionEnabled {
		electionCfg := leadership.DefaultConfig()
		electionCfg.RedisAddr = s.cfg.RedisAddr
		electionCfg.RedisPassword = s.cfg.RedisPassword
		electionCfg.RedisDB = s.cfg.RedisDB
		if s.cfg.InstanceID != "" {
			electionCfg.InstanceID = s.cfg.InstanceID
		}

		election, err := leadership.NewElection(electionCfg, s.logger)
		if err != nil {
			return fmt.Errorf("create leader election: %w", err)
		}
		s.election = election
		s.DeferClose(func() error { return s.election.Stop() })
		isLeader = s.election.IsLeader

		s.logger.Info().
			Str("redis_addr", s.cfg.RedisAddr).
			Str("instance_id", electionCfg.InstanceID).
			Msg("leader election enabled for reservation materializer")
	}

	s.auditSvc = audit.NewService(database, s.bus, s.logger)

	s.hotelSvc = hotel.NewService(database, s.bus, s.logger)
	s.materializer = hotel.NewMaterializer(database, s.bus, s.logger, s.cfg.MaterializerInterval, s.cfg.MaterializerLookahead, isLeader)

	inventorySvc := inventory.NewService(database, s.bus, s.logger)

	photoSvc, err := photos.NewService(s.cfg, s.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize photo storage: %w", err)
	}

	s.migrationSvc = migration.NewService(database, s.bus, s.logger)
	s.migrationSvc.RegisterImporter(migration.SourceTypeASM, migration.NewASMImporter(database, s.logger))
	s.migrationSvc.RegisterImporter(migration.SourceTypeSQLiteExport, migration.NewSQLiteImporter(database, s.logger))
	if err := s.migrationSvc.RecoverStaleJobs(context.Background()); err != nil {
		s.logger.Warn().Err(err).Msg("stale import job recovery failed")
	}

	s.api = api.New(
		database,
		[]byte(s.cfg.JWTSigningKey),
		24*time.Hour,
		s.hotelSvc,
		s.materializer,
		inventorySvc,
		s.auditSvc,
		s.migrationSvc,
		photoSvc,
		s.cache,
		s.bus,
		s.logBuffer,
		s.logger,
	)

	return nil
}

// initEventBus picks the cross-node event bridge: NATS when a URL is
// configured, Redis when leader election already requires it, in-process
// otherwise.
func (s *Server) initEventBus() {
	if s.cfg.NATSURL != "" {
		natsCfg := eventbus.DefaultNATSConfig()
		natsCfg.URL = s.cfg.NATSURL
		natsBus, err := eventbus.NewNATSBus(natsCfg, s.logger)
		if err == nil {
			s.bus = natsBus
			s.DeferClose(func() error { return natsBus.Close() })
			return
		}
		s.logger.Warn().Err(err).Msg("NATS event bridge failed, falling back")
	}

	if s.cfg.LeaderElectionEnabled {
		redisCfg := eventbus.DefaultRedisConfig()
		redisCfg.Addr = s.cfg.RedisAddr
		redisCfg.Password = s.cfg.RedisPassword
		redisCfg.DB = s.cfg.RedisDB
		redisBus, err := eventbus.NewRedisBus(redisCfg, s.cfg.InstanceID, s.logger)
		if err == nil {
			s.bus = redisBus
			s.DeferClose(func() error { return redisBus.Close() })
			return
		}
		s.logger.Warn().Err(err).Msg("Redis event bridge failed, falling back")
	}

	s.bus = events.NewBus()
}

// HTTPServer exposes the underlying net/http server.
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// LogBuffer returns the server's log buffer for attaching to zerolog.
func (s *Server) LogBuffer() *logbuffer.Buffer {
	return s.logBuffer
}

// DB exposes the database handle for CLI subcommands.
func (s *Server) DB() *gorm.DB {
	return s.db
}

// Close releases owned resources in reverse order.
func (s *Server) Close() error {
	s.stopBackgroundWorkers()

	if s.metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.metricsServer.Shutdown(ctx); err != nil {
			s.logger.Error().Err(err).Msg("metrics server shutdown error")
		}
		cancel()
	}

	var firstErr error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// DeferClose registers a cleanup hook.
func (s *Server) DeferClose(fn func() error) {
	s.closers = append(s.closers, fn)
}

func (s *Server) startBackgroundWorkers() {
	ctx, cancel := context.WithCancel(context.Background())
	s.bgCancel = cancel

	if s.election != nil {
		s.bgWG.Add(1)
		go func() {
			defer s.bgWG.Done()
			if err := s.election.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Error().Err(err).Msg("leader election exited")
			}
		}()
	}

	// Audit listener persists audit.* events.
	s.bgWG.Add(1)
	go func() {
		defer s.bgWG.Done()
		s.auditSvc.Start(ctx)
	}()

	// Reservation materializer expands recurring bookings into stays.
	s.bgWG.Add(1)
	go func() {
		defer s.bgWG.Done()
		s.materializer.Start(ctx)
	}()

	// Database pool metrics updater.
	s.bgWG.Add(1)
	go func() {
		defer s.bgWG.Done()
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				db.UpdateConnectionMetrics(s.db)
			}
		}
	}()

	if s.cache != nil {
		s.bgWG.Add(1)
		go func() {
			defer s.bgWG.Done()
			s.runCacheInvalidationListener(ctx)
		}()
	}

	if s.cfg.MetricsBind != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", telemetry.Handler())
		s.metricsServer = &http.Server{
			Addr:              s.cfg.MetricsBind,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}
		s.bgWG.Add(1)
		go func() {
			defer s.bgWG.Done()
			if err := s.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.logger.Error().Err(err).Str("bind", s.cfg.MetricsBind).Msg("metrics server exited")
			}
		}()
	}
}

// runCacheInvalidationListener drops cached reads when another node edits the
// underlying records. Local edits already invalidate inline in the handlers;
// this loop matters once events arrive over the NATS or Redis bridge.
func (s *Server) runCacheInvalidationListener(ctx context.Context) {
	kennelEvents := []events.EventType{
		events.EventKennelCreated,
		events.EventKennelUpdated,
		events.EventKennelDeleted,
	}
	stayEvents := []events.EventType{
		events.EventStayCreated,
		events.EventStayUpdated,
		events.EventStayEnded,
		events.EventStayDeleted,
	}

	kennelSubs := make([]events.Subscriber, 0, len(kennelEvents))
	for _, et := range kennelEvents {
		kennelSubs = append(kennelSubs, s.bus.Subscribe(et))
	}
	staySubs := make([]events.Subscriber, 0, len(stayEvents))
	for _, et := range stayEvents {
		staySubs = append(staySubs, s.bus.Subscribe(et))
	}
	animalUpdated := s.bus.Subscribe(events.EventAnimalUpdated)
	animalDeleted := s.bus.Subscribe(events.EventAnimalDeleted)
	settingsUpdated := s.bus.Subscribe(events.EventSettingsUpdated)

	defer func() {
		for i, et := range kennelEvents {
			s.bus.Unsubscribe(et, kennelSubs[i])
		}
		for i, et := range stayEvents {
			s.bus.Unsubscribe(et, staySubs[i])
		}
		s.bus.Unsubscribe(events.EventAnimalUpdated, animalUpdated)
		s.bus.Unsubscribe(events.EventAnimalDeleted, animalDeleted)
		s.bus.Unsubscribe(events.EventSettingsUpdated, settingsUpdated)
	}()

	invalidateKennels := make(chan events.Payload, 16)
	invalidateTimelines := make(chan events.Payload, 16)
	for _, sub := range kennelSubs {
		go forward(ctx, sub, invalidateKennels)
	}
	for _, sub := range staySubs {
		go forward(ctx, sub, invalidateTimelines)
	}

	s.logger.Info().Msg("cache invalidation listener started")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("cache invalidation listener stopped")
			return

		case <-invalidateKennels:
			_ = s.cache.InvalidateKennelList(ctx)
			_ = s.cache.InvalidateTimelines(ctx)

		case <-invalidateTimelines:
			_ = s.cache.InvalidateTimelines(ctx)

		case payload := <-animalUpdated:
			if animalID, ok := payload["resource_id"].(string); ok {
				_ = s.cache.InvalidateAnimal(ctx, animalID)
			}

		case payload := <-animalDeleted:
			if animalID, ok := payload["resource_id"].(string); ok {
				_ = s.cache.InvalidateAnimal(ctx, animalID)
			}

		case <-settingsUpdated:
			_ = s.cache.InvalidateSettings(ctx)
			_ = s.cache.InvalidateTimelines(ctx)
		}
	}
}

func forward(ctx context.Context, from events.Subscriber, to chan<- events.Payload) {
	for {
		select {
		case <-ctx.Done():
			return
		case payload, ok := <-from:
			if !ok {
				return
			}
			select {
			case to <- payload:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (s *Server) stopBackgroundWorkers() {
	if s.bgCancel == nil {
		return
	}
	s.bgCancel()
	s.bgWG.Wait()
	s.bgCancel = nil
}

func (s *Server) configureRoutes() {
	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)

		response := `{"status":"ok"`
		if s.election != nil {
			if s.election.IsLeader() {
				response += `,"leader":true`
			} else {
				response += `,"leader":false`
			}
		}
		response += `}`
		_, _ = w.Write([]byte(response))
	})

	s.api.Routes(s.router)
}
