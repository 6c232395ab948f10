package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/taigabridge/taigabridge/internal/background"
	"github.com/taigabridge/taigabridge/internal/config"
	"github.com/taigabridge/taigabridge/internal/handlers"
	middlewareCustom "github.com/taigabridge/taigabridge/internal/middleware"
	"github.com/taigabridge/taigabridge/internal/routes"
	"github.com/taigabridge/taigabridge/internal/sessions"
	"github.com/taigabridge/taigabridge/internal/taiga"
	pkglogger "github.com/taigabridge/taigabridge/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stderr, nil)).Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Server.LogLevel),
	}))
	slog.SetDefault(logger)

	logger.Info("configuration loaded",
		slog.Duration("session_ttl", cfg.Sessions.TTL),
		slog.Bool("sliding_expiry", cfg.Sessions.SlidingExpiry),
		slog.Int("max_sessions_per_identity", cfg.Sessions.MaxPerIdentity))

	auditLogger := pkglogger.NewAuditLogger(logger)

	// Backend gateway with pooled transport
	gateway := taiga.NewGateway(taiga.GatewayConfig{
		RequestTimeout:      cfg.Backend.RequestTimeout,
		MaxIdleConns:        cfg.Backend.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.Backend.MaxIdleConnsPerHost,
		IdleConnTimeout:     cfg.Backend.IdleConnTimeout,
		RetryMaxAttempts:    cfg.Backend.ReadRetries,
		AllowHTTP:           cfg.Backend.AllowHTTP,
	}, logger, auditLogger)

	// Session core
	store := sessions.NewStore(sessions.StoreConfig{
		TTL:            cfg.Sessions.TTL,
		Sliding:        cfg.Sessions.SlidingExpiry,
		MaxPerIdentity: cfg.Sessions.MaxPerIdentity,
	}, logger)
	limiter := sessions.NewLimiter(sessions.LimiterConfig{
		MaxFailures:     cfg.RateLimit.MaxAttempts,
		Window:          cfg.RateLimit.Window,
		LockoutDuration: cfg.RateLimit.LockoutDuration,
	}, logger)
	manager := sessions.NewManager(store, limiter, gateway, logger, auditLogger)

	// Background sweeper reclaims expired sessions and stale lockouts
	sweeper := background.NewSweeper(logger, cfg.Sessions.CleanupInterval, store, limiter)

	// Handlers
	authHandler := handlers.NewAuthHandler(manager, logger)
	resourceHandler := handlers.NewResourceHandler(manager, logger)
	projectHandler := handlers.NewProjectHandler(manager, logger)
	statusHandler := handlers.NewStatusHandler(manager)

	// Router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middlewareCustom.SecurityHeaders())
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	routes.RegisterRoutes(router, authHandler, resourceHandler, projectHandler, statusHandler)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	sweepCtx, sweepCancel := context.WithCancel(context.Background())
	defer sweepCancel()
	go sweeper.Start(sweepCtx)

	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	sweepCancel()
	sweeper.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
	}

	// Release every live client handle before exit.
	store.Drain()

	logger.Info("server stopped gracefully")
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
