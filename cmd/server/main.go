package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"alva-backend/internal/api"
	"alva-backend/internal/config"
	"alva-backend/internal/database"
	"alva-backend/internal/metrics"
	"alva-backend/internal/nats"
	"alva-backend/internal/repositories"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	deps := &api.Dependencies{}

	// Initialize storage: postgres when configured, the in-memory store
	// otherwise
	if cfg.Database.Enabled() {
		db, err := database.Initialize(cfg.Database)
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		defer database.Close(db)

		deps.DB = db
		deps.Repos = repositories.NewRepositories(db.DB)
	} else {
		log.Println("No database configured, using in-memory store (data is lost on restart)")
		deps.Repos = repositories.NewMemoryRepositories()
	}

	// Initialize NATS manager when enabled
	if cfg.NATS.Enabled {
		natsManager, err := nats.NewManager(cfg.NATS, deps.Repos)
		if err != nil {
			log.Fatalf("Failed to initialize NATS: %v", err)
		}
		defer natsManager.Stop()

		if err := natsManager.Start(); err != nil {
			log.Fatalf("Failed to start NATS consumers: %v", err)
		}
		deps.NATS = natsManager
	}

	// Initialize redis when enabled (shared rate limiting)
	if cfg.Redis.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Printf("Redis unreachable, shared rate limiting disabled: %v", err)
		} else {
			deps.Redis = redisClient
			defer redisClient.Close()
		}
	}

	// Prometheus metrics and the periodic business gauge updater
	deps.Metrics = metrics.NewMetrics()
	updater := metrics.NewMetricsUpdater(deps.Metrics, deps.Repos, 30*time.Second)
	updater.Start()
	defer updater.Stop()

	// Set Gin mode
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize API server
	apiServer := api.NewServer(cfg, deps)
	router := apiServer.SetupRoutes()

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Give outstanding requests 30 seconds to complete
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
