package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/geoken/typemotion/internal/api"
	"github.com/geoken/typemotion/internal/composition"
	"github.com/geoken/typemotion/internal/config"
	"github.com/geoken/typemotion/internal/db"
	"github.com/geoken/typemotion/internal/orchestrator"
	"github.com/geoken/typemotion/internal/queue"
	"github.com/geoken/typemotion/internal/render"
	"github.com/geoken/typemotion/internal/services"
	"github.com/geoken/typemotion/internal/storage"
	"github.com/geoken/typemotion/internal/worker"
)

func main() {
	log.Println("Starting TypeMotion API...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize storage
	stor := storage.New(cfg.StorageToken, cfg.StorageBucket)
	log.Printf("Initialized storage (bucket: %s)", cfg.StorageBucket)

	// Composition registry and render pipeline
	registry := composition.New()
	pipeline := render.NewPipeline(registry, render.NewFFmpegEncoder(), stor, cfg.RenderTempDir)

	// Generation services
	creds := &orchestrator.Credentials{EnvKey: cfg.GeminiKey}
	aiClient := services.NewClient(creds.APIKey, cfg.ImageModel, cfg.VideoModel)
	suggest := services.NewSuggestService(cfg.OpenAIKey, aiClient)
	newSession := func() *orchestrator.Session {
		return orchestrator.NewSession(aiClient, creds, registry)
	}

	// Batch infrastructure — only wired when the worker is enabled
	var database *db.DB
	var q *queue.Queue
	if cfg.WorkerEnabled {
		database, err = db.New(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer database.Close()
		log.Println("Connected to database")

		q, err = queue.New(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to connect to queue: %v", err)
		}
		defer q.Close()
		log.Println("Connected to Redis queue")
	}

	// Create API handler
	handler := api.NewHandler(pipeline, registry, suggest, stor, newSession, database, q)
	router := api.NewRouter(handler, api.RouterConfig{
		BackendAPIKey:      cfg.BackendAPIKey,
		CorsAllowedOrigins: cfg.CorsAllowedOrigins,
	})

	if cfg.BackendAPIKey != "" {
		log.Println("API key authentication enabled")
	} else {
		log.Println("WARNING: No BACKEND_API_KEY set — API is unprotected (dev mode)")
	}

	// Start HTTP server
	server := &http.Server{
		Addr:    ":" + cfg.APIPort,
		Handler: router,
	}

	// Start worker if enabled
	var workerCancel context.CancelFunc
	if cfg.WorkerEnabled {
		log.Println("Worker enabled, starting background processing...")

		w := worker.New(database, q, pipeline)

		var workerCtx context.Context
		workerCtx, workerCancel = context.WithCancel(context.Background())
		go w.Start(workerCtx, cfg.MaxConcurrentJobs)
	}

	// Start server in goroutine
	go func() {
		log.Printf("API server listening on :%s", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Shutdown worker
	if workerCancel != nil {
		workerCancel()
	}

	// Shutdown HTTP server
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
