// The gateway binary. Wires stores, services, and handlers together and
// runs the HTTP server. Business logic lives under internal/.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	authhandler "nexus/internal/auth/handler"
	"nexus/internal/auth/jwttoken"
	authservice "nexus/internal/auth/service"
	authpostgres "nexus/internal/auth/store/postgres"
	"nexus/internal/auth/store/revocation"
	cataloghandler "nexus/internal/catalog/handler"
	catalogservice "nexus/internal/catalog/service"
	catalogpostgres "nexus/internal/catalog/store/postgres"
	"nexus/internal/delegation"
	"nexus/internal/delegation/servicetoken"
	"nexus/internal/platform/config"
	"nexus/internal/platform/httpserver"
	"nexus/internal/platform/logger"
	"nexus/internal/platform/middleware"
	"nexus/internal/platform/postgres"
	"nexus/internal/platform/redis"
	requesthandler "nexus/internal/request/handler"
	requestservice "nexus/internal/request/service"
	requestpostgres "nexus/internal/request/store/postgres"
	statshandler "nexus/internal/stats/handler"
	statsservice "nexus/internal/stats/service"
	"nexus/pkg/domain"
	"nexus/pkg/platform/audit"
	auditpostgres "nexus/pkg/platform/audit/store/postgres"
	"nexus/pkg/platform/tx"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		logger.New().Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("postgres connection failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := postgres.Migrate(ctx, db); err != nil {
		log.Error("migration failed", "error", err)
		os.Exit(1)
	}

	// Redis backs the token revocation list. Without it revocation is
	// process-local, which is fine for a single instance.
	var trl authservice.RevocationList = revocation.NewMemoryTRL()
	redisClient, err := redis.New(cfg.RedisURL)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		trl = revocation.NewRedisTRL(redisClient.Client)
		log.Info("token revocation list backed by redis")
	} else {
		log.Warn("REDIS_URL not set, using in-memory token revocation list")
	}

	auditPublisher := audit.NewPublisher(auditpostgres.New(db), log)

	authStore := authpostgres.NewStore(db)
	tokens := jwttoken.NewJWTService(cfg.AccessTokenSecret, "nexus", "nexus-api")
	authSvc := authservice.New(authStore, trl, tokens, cfg.AccessTokenTTL, auditPublisher, log)

	catalogStore := catalogpostgres.NewStore(db)
	catalogSvc := catalogservice.New(catalogStore, auditPublisher, log)

	minter, err := servicetoken.NewMinter(cfg.ServiceTokenSecret, cfg.ServiceTokenTTL)
	if err != nil {
		log.Error("service credential minter init failed", "error", err)
		os.Exit(1)
	}
	delegator := delegation.NewClient(minter, cfg.DelegationTimeout, auditPublisher, log)

	requestStore := requestpostgres.NewStore(db)
	requestSvc := requestservice.New(requestStore, catalogSvc, delegator, authStore, auditPublisher, tx.NewRunner(db), log)

	statsSvc := statsservice.New(requestStore, authStore, catalogStore, log)

	authHandler := authhandler.New(authSvc, log)
	catalogHandler := cataloghandler.New(catalogSvc, log)
	requestHandler := requesthandler.New(requestSvc, log)
	statsHandler := statshandler.New(statsSvc, log)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RequestTime)
	router.Use(middleware.Logger(log))
	router.Use(middleware.Recovery(log))
	router.Use(middleware.Timeout(30 * time.Second))
	router.Use(middleware.ContentTypeJSON)

	router.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	router.Method(http.MethodGet, "/metrics", promhttp.Handler())

	router.Group(authHandler.Register)

	requireAuth := middleware.RequireAuth(authSvc, log)

	router.Group(func(r chi.Router) {
		r.Use(requireAuth)
		authHandler.RegisterProtected(r)
		catalogHandler.Register(r)
		requestHandler.Register(r)
	})

	router.Route("/department", func(r chi.Router) {
		r.Use(requireAuth)
		r.Use(middleware.RequireRole(domain.RoleOfficer, log))
		requestHandler.RegisterOfficer(r)
		statsHandler.RegisterOfficer(r)
	})

	router.Route("/admin", func(r chi.Router) {
		r.Use(requireAuth)
		r.Use(middleware.RequireRole(domain.RoleAdmin, log))
		authHandler.RegisterAdmin(r)
		catalogHandler.RegisterAdmin(r)
		statsHandler.RegisterAdmin(r)
	})

	srv := httpserver.New(cfg.Addr, router)

	errCh := make(chan error, 1)
	go func() {
		log.Info("gateway listening", "addr", cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	log.Info("gateway stopped")
}
