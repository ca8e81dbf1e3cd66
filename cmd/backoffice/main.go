package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/daniry/backoffice/internal/admin"
	"github.com/daniry/backoffice/internal/app"
	"github.com/daniry/backoffice/internal/identity"
	"github.com/daniry/backoffice/internal/mailer"
	"github.com/daniry/backoffice/internal/observability"
	"github.com/daniry/backoffice/internal/platform/db"
	"github.com/daniry/backoffice/internal/products"
	"github.com/daniry/backoffice/internal/rbac"
	"github.com/daniry/backoffice/internal/roles"
	"github.com/daniry/backoffice/internal/session"
	"github.com/daniry/backoffice/internal/token"
	"github.com/daniry/backoffice/internal/users"
	"github.com/daniry/backoffice/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	mail := mailer.NewSMTP(mailer.SMTPConfig{
		Host: cfg.SMTPHost,
		Port: cfg.SMTPPort,
		User: cfg.SMTPUser,
		Pass: cfg.SMTPPass,
		From: cfg.SMTPFrom,
	})

	identityRepo := identity.NewRepository(pool)
	identityService := identity.NewService(identityRepo)

	tokenRepo := token.NewRepository(pool)
	tokenIssuer := token.NewIssuer(tokenRepo)

	sessionManager := session.NewManager(cfg.JWTSecret, cfg.SessionTTL, cfg.IsProduction())
	authenticator := &session.Middleware{Manager: sessionManager, Resolver: identityService, Logger: logger}

	rbacStore := rbac.NewStore(pool)
	rbacCache := rbac.NewCache()
	resolver := rbac.NewResolver(rbacStore, rbacCache, metrics)
	gate := rbac.Middleware{Resolver: resolver, Logger: logger}

	adminService := admin.NewService(identityService, tokenIssuer, mail, cfg.FrontendURL, logger)
	adminHandler := admin.NewHandler(logger, identityService, adminService, sessionManager, metrics)

	rolesRepo := roles.NewRepository(pool)
	rolesService := roles.NewService(rolesRepo, resolver)
	rolesHandler := roles.NewHandler(logger, rolesService)

	usersRepo := users.NewRepository(pool)
	usersService := users.NewService(usersRepo, identityService, tokenIssuer, mail, resolver, rolesRepo, cfg.FrontendURL, cfg.InviteTempPassword, logger)
	usersHandler := users.NewHandler(logger, usersService)

	productsRepo := products.NewRepository(pool)
	productsHandler := products.NewHandler(logger, productsRepo)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		Authenticator:   authenticator,
		Gate:            gate,
		AdminHandler:    adminHandler,
		UsersHandler:    usersHandler,
		RolesHandler:    rolesHandler,
		ProductsHandler: productsHandler,
		JobHandler:      jobHandler,
		Metrics:         metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
