package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jwebster45206/royal-court/internal/config"
	"github.com/jwebster45206/royal-court/internal/handlers"
	"github.com/jwebster45206/royal-court/internal/logger"
	"github.com/jwebster45206/royal-court/internal/middleware"
	"github.com/jwebster45206/royal-court/internal/services"
	"github.com/jwebster45206/royal-court/internal/services/events"
	"github.com/jwebster45206/royal-court/internal/storage"
	"github.com/jwebster45206/royal-court/pkg/state"
)

func main() {
	cfg, cfgErr := config.Load()

	log := logger.Setup(cfg)
	if cfgErr != nil {
		log.Warn("Invalid configuration values replaced by defaults", "error", cfgErr)
	}

	log.Info("Starting Royal Court API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"max_turns", cfg.MaxTurns,
		"gemini_model", cfg.GeminiModel,
		"content_mode", contentMode(cfg))

	store, err := storage.NewRedisStorage(cfg.RedisURL, cfg.CatalogPath, log)
	if err != nil {
		log.Error("Failed to create storage", "error", err)
		os.Exit(1)
	}
	store.WithTTL(cfg.SessionTTL)

	storageCtx, storageCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer storageCancel()
	if err := store.WaitForConnection(storageCtx); err != nil {
		log.Error("Failed to connect to storage", "error", err)
		os.Exit(1)
	}
	log.Info("Storage connection established successfully")

	// Fail fast on a broken catalog rather than on the first encounter.
	if _, err := store.GetCatalog(storageCtx); err != nil {
		log.Error("Failed to load catalog", "error", err)
		os.Exit(1)
	}

	credentials := services.NewCredentials(cfg.GeminiAPIKey)
	generator := services.NewGeminiService(credentials, cfg.GeminiModel, log).
		WithTimeout(cfg.GenerationTimeout)
	broadcaster := events.NewBroadcaster(store.Client(), log)

	opts := state.DefaultOptions()
	opts.MaxTurns = cfg.MaxTurns
	opts.StartingPopularity = cfg.StartingPopularity
	opts.DeathProbability = cfg.DeathProbability
	opts.UnrestProbability = cfg.UnrestProbability
	opts.DiscontentProbability = cfg.DiscontentProbability

	mux := http.NewServeMux()

	mux.Handle("/health", handlers.NewHealthHandler(store, credentials, log))

	gamesHandler := handlers.NewGamesHandler(store, generator, log).
		WithPublisher(broadcaster).
		WithOptions(opts).
		WithGenerationTimeout(cfg.GenerationTimeout)
	mux.Handle("/v1/games", gamesHandler)
	mux.Handle("/v1/games/", gamesHandler)
	mux.Handle("GET /v1/games/{id}/events", handlers.NewEventsHandler(store.Client(), log))

	catalogHandler := handlers.NewCatalogHandler(log, store)
	mux.Handle("/v1/npcs", catalogHandler)
	mux.Handle("/v1/npcs/", catalogHandler)

	mux.Handle("/v1/credentials", handlers.NewCredentialsHandler(credentials, log))

	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     middleware.Logger(log, mux),
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: the events endpoint streams
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server is shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	if err := store.Close(); err != nil {
		log.Error("Error closing storage connection", "error", err)
	}

	log.Info("Server exited")
}

func contentMode(cfg *config.Config) string {
	if cfg.GeminiAPIKey != "" {
		return "generated"
	}
	return "static"
}
