/*
Package main is the entry point for the ChatFlow server.

It is responsible for loading configuration, initializing the global logging system,
wiring the persistence, presence, storage, and text-generation collaborators into
the chat hub, setting up the HTTP server, and gracefully handling operating system
interrupt signals (SIGINT, SIGTERM) to ensure a smooth server shutdown.
*/
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chatflow/internal/app/ai"
	"chatflow/internal/app/chat"
	"chatflow/internal/app/db"
	"chatflow/internal/app/presence"
	"chatflow/internal/app/storage"
	"chatflow/internal/app/store"
	"chatflow/internal/configs"
	"chatflow/internal/handler"
	"chatflow/internal/pkg/gate"
	"chatflow/internal/pkg/logx"
)

func main() {
	// Load configuration from environment variables
	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	logx.InitGlobalLogger(cfg.Environment == "development")
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Msg("Configuration loaded successfully")

	// Create a context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to PostgreSQL and run pending migrations.
	pool, err := db.NewPool(cfg.DatabaseDSN)
	if err != nil {
		logx.Fatal(err, "Failed to initialize database pool")
	}
	defer pool.Close()

	messageStore := store.New(pool)

	presenceTracker := presence.New(cfg.RedisAddr)
	defer presenceTracker.Close()

	storageService, err := storage.NewStorageService(storage.ServiceConfig{
		S3BucketName:      cfg.S3BucketName,
		S3Endpoint:        cfg.S3Endpoint,
		S3AccessKeyID:     cfg.S3AccessKeyID,
		S3SecretAccessKey: cfg.S3SecretAccessKey,
	})
	if err != nil {
		logx.Fatal(err, "Failed to initialize storage service")
	}

	textGenerator, err := ai.NewTextGenerator(ai.ServiceConfig{APIKey: cfg.GeminiAPIKey})
	if err != nil {
		logx.Fatal(err, "Failed to initialize text generation service")
	}

	operationGate := gate.New()

	hub := chat.NewHub(operationGate, messageStore, presenceTracker)

	router := handler.Router(&handler.AppDeps{
		Hub:            hub,
		Config:         cfg,
		Store:          messageStore,
		StorageService: storageService,
		Presence:       presenceTracker,
		AI:             textGenerator,
		Gate:           operationGate,
	})

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logx.Info(fmt.Sprintf("ChatFlow Server starting on http://localhost%s", serverAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logx.Fatal(err, "Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server with a timeout of 5 seconds.
	<-ctx.Done()
	logx.Info("Received shutdown signal. Starting graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Fatal(err, "Server forced to shutdown")
	}

	logx.Info("Server gracefully stopped.")
}
