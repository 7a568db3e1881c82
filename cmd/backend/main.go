// Package main provides the entry point for the SnapLink URL shortener
// service.
package main

import (
	"SnapLink-Backend/internal/analytics"
	"SnapLink-Backend/internal/auth"
	"SnapLink-Backend/internal/config"
	"SnapLink-Backend/internal/database"
	httpHandler "SnapLink-Backend/internal/handler/http"
	"SnapLink-Backend/internal/repository/postgres"
	"SnapLink-Backend/internal/service"
	"SnapLink-Backend/pkg/logger"
	"context"
	lg "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
)

func main() {
	cfg := config.MustLoad()
	log := logger.New(cfg.Env)
	defer func() {
		if err := log.Sync(); err != nil {
			lg.Printf("ERROR: failed to sync zap logger: %v\n", err)
		}
	}()

	log.Info("starting SnapLink service", zap.String("env", cfg.Env))

	db, err := database.NewConnection(&cfg.Database, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := database.Close(db, log); err != nil {
			log.Error("failed to close database connection", zap.Error(err))
		}
	}()

	if cfg.Database.AutoMigrate {
		log.Info("running database migrations (auto_migrate: true)")
		if err := database.AutoMigrate(db, log); err != nil {
			log.Fatal("failed to run database migrations", zap.Error(err))
		}
	} else {
		log.Info("skipping database migrations (auto_migrate: false)")
	}

	storage := postgres.New(db, log)

	urlShortener := service.NewURLShortener(storage, service.NewHeuristicAnalyzer(), &cfg.URLShortener, log)
	resolver := service.NewResolver(storage, log)
	aggregator := analytics.NewAggregator(storage, log)

	recorder := analytics.NewRecorder(storage, log, analytics.RecorderConfig{
		WorkerCount:     cfg.Analytics.WorkerCount,
		BufferSize:      cfg.Analytics.BufferSize,
		RetryAttempts:   cfg.Analytics.RetryAttempts,
		RetryDelay:      cfg.Analytics.RetryDelay,
		ShutdownTimeout: cfg.Analytics.ShutdownTimeout,
	})
	if err := recorder.Start(); err != nil {
		log.Fatal("failed to start click recorder", zap.Error(err))
	}

	jwtService := auth.NewJWTService(&cfg.Auth)
	passwordService := auth.NewPasswordService()

	apiServer := httpHandler.NewServer(
		storage,
		db,
		urlShortener,
		resolver,
		recorder,
		aggregator,
		jwtService,
		passwordService,
		&cfg.RateLimit,
		log,
	)

	httpServer := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      apiServer.SetupRoutes(),
		ReadTimeout:  cfg.HTTPServer.ReadTimeout,
		WriteTimeout: cfg.HTTPServer.WriteTimeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	log.Info("starting HTTP server", zap.String("address", cfg.HTTPServer.Address))

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down SnapLink service...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Analytics.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to shutdown HTTP server", zap.Error(err))
	} else {
		log.Info("HTTP server stopped")
	}

	// Stop after the server so in-flight redirects can still queue clicks.
	if err := recorder.Stop(); err != nil {
		log.Error("failed to stop click recorder", zap.Error(err))
	}
}
