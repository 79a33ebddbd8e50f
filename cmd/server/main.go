package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ignite/klaviyo-bridge/internal/api"
	"github.com/ignite/klaviyo-bridge/internal/cache"
	"github.com/ignite/klaviyo-bridge/internal/config"
	"github.com/ignite/klaviyo-bridge/internal/feed"
	"github.com/ignite/klaviyo-bridge/internal/klaviyo"
	"github.com/ignite/klaviyo-bridge/internal/pkg/logger"
	"github.com/ignite/klaviyo-bridge/internal/repository/postgres"
	syncer "github.com/ignite/klaviyo-bridge/internal/sync"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"
)

func main() {
	configPath := "config/config.yaml"
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		configPath = p
	}

	cfg, err := config.LoadFromEnv(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.SetLevel(logger.ParseLevel(cfg.Logging.Level))
	if cfg.Logging.RedactPII != nil {
		logger.SetRedactPII(*cfg.Logging.RedactPII)
	}

	// Database
	if cfg.Database.URL == "" {
		log.Fatal("database url is required (database.url or DATABASE_URL)")
	}
	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}
	logger.Info("connected to database")

	// Redis (list directory cache)
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("Failed to ping redis at %s: %v", cfg.Redis.Addr, err)
	}
	logger.Info("connected to redis", "addr", cfg.Redis.Addr)

	// Repositories
	feedRepo := postgres.NewFeedRepo(db)
	noteRepo := postgres.NewNoteRepo(db)
	settingsRepo := postgres.NewSettingsRepo(db)

	// Klaviyo client and orchestrator
	client := klaviyo.NewClient(cfg.Klaviyo)
	processor := syncer.NewProcessor(
		client,
		cache.NewRedisStore(rdb),
		client,
		settingsRepo,
		noteRepo,
		feed.RuleEvaluator{},
	)

	// Seed the credential on first start; never overwrite an existing one.
	if cfg.Klaviyo.SeedAPIKey != "" {
		seedCredential(settingsRepo, cfg.Klaviyo.SeedAPIKey)
	}

	handlers := api.NewHandlers(processor, feedRepo, noteRepo)
	router := api.SetupRoutes(handlers)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	go func() {
		logger.Info("klaviyo bridge listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}

func seedCredential(settings *postgres.SettingsRepo, seed string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	current, err := settings.Get(ctx, syncer.APIKeySetting)
	if err != nil {
		logger.Error("failed to read stored credential", "error", err)
		return
	}
	if current != "" {
		return
	}
	if err := settings.Set(ctx, syncer.APIKeySetting, seed); err != nil {
		logger.Error("failed to seed credential", "error", err)
		return
	}
	logger.Info("seeded Klaviyo credential from environment", "api_key", seed)
}
