package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/ods-ops/ods/internal/app"
	"github.com/ods-ops/ods/internal/auth"
	"github.com/ods-ops/ods/internal/observability"
	"github.com/ods-ops/ods/internal/platform/cache"
	"github.com/ods-ops/ods/internal/platform/db"
	"github.com/ods-ops/ods/internal/rbac"
	"github.com/ods-ops/ods/internal/shared"
	"github.com/ods-ops/ods/internal/teams"
	"github.com/ods-ops/ods/internal/users"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}
	if err := run(); err != nil {
		slog.Default().Error("ods exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		return err
	}
	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		return err
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	guards, err := loadGuards(cfg)
	if err != nil {
		return err
	}

	sessionManager := shared.NewSessionManager(redisClient, "ods_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	auditLogger := shared.NewAuditLogger(dbpool)
	metrics := observability.NewMetrics()
	metrics.Registerer().MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	tokens, err := auth.NewTokens(cfg.TokenSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	if err != nil {
		return err
	}
	authService := auth.NewService(auth.NewRepository(dbpool), tokens, auth.NewTokenStore(redisClient))
	authHandler := auth.NewHandler(logger, authService, sessionManager, csrfManager,
		auth.WithLoginLimit(app.LoginRateLimit(cfg)),
		auth.WithAudit(auditLogger),
	)

	rbacMiddleware := rbac.Middleware{
		Gate:     rbac.NewGate(cfg.LoginPath, cfg.UnauthorizedPath),
		Sessions: shared.ContextAccessor{},
		Logger:   logger,
		Observer: metrics,
	}
	usersService := users.NewService(users.NewRepository(dbpool), auditLogger, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		SessionManager: sessionManager,
		CSRFManager:    csrfManager,
		Authenticator:  auth.Authenticator{Service: authService, Logger: logger},
		AuthHandler:    authHandler,
		RBACHandler:    rbac.NewHandler(logger, guards, rbacMiddleware),
		UsersHandler:   users.NewHandler(logger, usersService, rbacMiddleware),
		TeamsHandler:   teams.NewHandler(logger, teams.NewService(teams.NewRepository(dbpool)), rbacMiddleware),
		Metrics:        metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func loadGuards(cfg *app.Config) (*rbac.RouteGuards, error) {
	if cfg.RBACRoutesFile != "" {
		return rbac.LoadRouteGuards(cfg.RBACRoutesFile)
	}
	return rbac.DefaultRouteGuards()
}
