package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/pharmadesk/pharmadesk-backend/api/routes"
	"github.com/pharmadesk/pharmadesk-backend/internal/auth"
	internalpermissions "github.com/pharmadesk/pharmadesk-backend/internal/permissions"
	"github.com/pharmadesk/pharmadesk-backend/internal/staff"
	"github.com/pharmadesk/pharmadesk-backend/internal/users"
	"github.com/pharmadesk/pharmadesk-backend/pkg/auth/session"
	"github.com/pharmadesk/pharmadesk-backend/pkg/config"
	"github.com/pharmadesk/pharmadesk-backend/pkg/db"
	"github.com/pharmadesk/pharmadesk-backend/pkg/logger"
	"github.com/pharmadesk/pharmadesk-backend/pkg/metrics"
	"github.com/pharmadesk/pharmadesk-backend/pkg/migrate"
	"github.com/pharmadesk/pharmadesk-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	staffRepo := staff.NewRepository(dbClient.DB())
	userRepo := users.NewRepository(dbClient.DB())
	authzMetrics := metrics.NewAuthzMetrics(prometheus.DefaultRegisterer)

	permissionCache, err := internalpermissions.NewRedisCache(redisClient, redisClient, cfg.PermissionCache.TTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create permission cache", err)
		os.Exit(1)
	}
	accessResolver, err := internalpermissions.NewResolver(staffRepo, permissionCache, logg, authzMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create permission resolver", err)
		os.Exit(1)
	}

	scopeResolver, err := staff.NewScopeResolver(staffRepo, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create scope resolver", err)
		os.Exit(1)
	}
	staffService, err := staff.NewService(staffRepo, userRepo, scopeResolver, accessResolver, cfg.Password, logg, authzMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create staff service", err)
		os.Exit(1)
	}

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		StaffDirectory: staffRepo,
		SessionManager: sessionManager,
		Invalidator:    accessResolver,
		JWTConfig:      cfg.JWT,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, sessionManager, accessResolver, authService, staffService),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
