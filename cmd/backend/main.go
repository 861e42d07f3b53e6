// Package main provides the entry point for the Synctra link resolution service.
package main

import (
	"Synctra-Backend/internal/analytics"
	"Synctra-Backend/internal/attribution"
	"Synctra-Backend/internal/config"
	"Synctra-Backend/internal/database"
	"Synctra-Backend/internal/deferred"
	httpHandler "Synctra-Backend/internal/handler/http"
	"Synctra-Backend/internal/repository/postgres"
	"Synctra-Backend/internal/service"
	"Synctra-Backend/pkg/logger"
	"Synctra-Backend/pkg/useragent"
	"context"
	lg "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

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

	log.Info("starting Synctra link resolution service", zap.String("env", cfg.Env))

	// Initialize database connection
	db, err := database.NewConnection(&cfg.Database, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := database.Close(db, log); err != nil {
			log.Error("failed to close database connection", zap.Error(err))
		}
	}()

	// Run database migrations if enabled
	if cfg.Database.AutoMigrate {
		if err := database.AutoMigrate(db, log); err != nil {
			log.Fatal("failed to run database migrations", zap.Error(err))
		}
	}

	// Seed demo data if enabled
	if cfg.Database.SeedData {
		if err := database.SeedData(db, log); err != nil {
			log.Fatal("failed to seed database", zap.Error(err))
		}
	}

	// Initialize Redis-backed deferred context store
	redisCtx, redisCancel := context.WithTimeout(context.Background(), 5*time.Second)
	redisClient, err := deferred.NewRedisClient(redisCtx, cfg.Redis.Address, cfg.Redis.Password,
		cfg.Redis.DB, cfg.Redis.PoolSize, cfg.Redis.MinIdleConns)
	redisCancel()
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			log.Error("failed to close redis client", zap.Error(err))
		}
	}()
	contexts := deferred.NewRedisStore(redisClient, cfg.Deferred.ContextTTL, log)

	// Initialize storage and engine components
	storage := postgres.New(db, log)

	accessor, err := service.NewLinkAccessor(storage, &cfg.LinkCache, &cfg.Resolver, log)
	if err != nil {
		log.Fatal("failed to initialize link accessor", zap.Error(err))
	}
	defer accessor.Close()

	recorder := analytics.NewRecorder(storage, log, analytics.DefaultConfig())
	if err := recorder.Start(); err != nil {
		log.Fatal("failed to start click recorder", zap.Error(err))
	}
	defer func() {
		if err := recorder.Stop(); err != nil {
			log.Error("failed to stop click recorder", zap.Error(err))
		}
	}()

	matcher := attribution.NewMatcher(storage, cfg.Attribution.Window, cfg.Attribution.ScanLimit, log)
	resolver := service.NewResolver(accessor, storage, contexts, recorder, useragent.Default(), log)

	// Create HTTP server
	httpAPIServer := httpHandler.NewServer(storage, resolver, contexts, recorder, matcher, log)
	httpServer := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      httpAPIServer.SetupRoutes(),
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

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down Synctra service...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to shutdown HTTP server", zap.Error(err))
	} else {
		log.Info("HTTP server stopped")
	}
}
