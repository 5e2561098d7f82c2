package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/storefinder-go/internal/config"
	"github.com/storefinder-go/internal/handlers"
	"github.com/storefinder-go/internal/i18n"
	"github.com/storefinder-go/internal/middleware"
	"github.com/storefinder-go/internal/scheduler"
	"github.com/storefinder-go/internal/services/ai"
	"github.com/storefinder-go/internal/services/cache"
	"github.com/storefinder-go/internal/services/chatbot"
	"github.com/storefinder-go/internal/services/search"
	"github.com/storefinder-go/internal/services/storage"
	"github.com/storefinder-go/pkg/logger"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "configs/config.yaml", "Path to configuration file")
	envFile := flag.String("env", ".env", "Path to .env file")
	flag.Parse()

	// Load .env file if exists
	if err := godotenv.Load(*envFile); err != nil {
		fmt.Printf("Warning: .env file not found: %v\n", err)
	}

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewLogger(&cfg.Logging)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	log.Info("Starting store finder server...")

	metrics := middleware.NewMetrics()

	// Initialize storage
	storageManager, err := storage.NewManager(cfg, metrics, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize storage")
	}

	// Initialize services
	cacheService := cache.NewCache(cfg, log)
	assistant := ai.NewAssistant(cfg, storageManager, cacheService, metrics, log)
	searchService := search.NewService(storageManager, log)

	rateLimiter := middleware.NewRateLimiter(cfg, log)
	if rl, ok := rateLimiter.(*middleware.ClientRateLimiter); ok {
		defer rl.Stop()
	}

	localizer, err := i18n.NewLocalizer(&cfg.I18n)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize i18n")
	}

	seed := cfg.Chat.RandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	// Start metrics server if enabled
	if cfg.Monitoring.Metrics.Enabled {
		go func() {
			log.WithFields(logrus.Fields{
				"port": cfg.Monitoring.Metrics.Port,
				"path": cfg.Monitoring.Metrics.Path,
			}).Info("Starting metrics server")

			if err := middleware.StartMetricsServer(cfg.Monitoring.Metrics.Port, cfg.Monitoring.Metrics.Path); err != nil {
				log.WithError(err).Error("Metrics server failed")
			}
		}()
	}

	handler := handlers.NewHandler(
		cfg,
		storageManager,
		searchService,
		assistant,
		cacheService,
		rateLimiter,
		localizer,
		metrics,
		chatbot.NewRandSource(seed),
		log,
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      handler.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start periodic tasks
	tasks := scheduler.New(storageManager, metrics, log)
	if err := tasks.Start(); err != nil {
		log.WithError(err).Fatal("Failed to start scheduler")
	}

	go func() {
		log.WithField("addr", server.Addr).Info("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("HTTP server failed")
		}
	}()

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	log.Info("Shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Error("HTTP server shutdown failed")
	}
	tasks.Stop()

	if client := storageManager.GetRedisClient(); client != nil {
		if err := client.Close(); err != nil {
			log.WithError(err).Error("Failed to close redis client")
		}
	}

	log.Info("Server stopped")
}
