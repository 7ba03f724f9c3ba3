package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"ms-registration/internal/config"
	"ms-registration/internal/confirmation"
	"ms-registration/internal/kafka"
	"ms-registration/internal/logger"
	"ms-registration/internal/metrics"
	"ms-registration/internal/notifier"
	"ms-registration/internal/registration"
	"ms-registration/internal/registration/registration_api"
	"ms-registration/internal/storage"
)

func main() {
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := logger.NewLogger(cfg.LogDir)
	defer logger.Close()

	logger.Info("APP", "Starting Registration Service initialization")
	if envErr != nil {
		logger.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		logger.Info("CONFIG", "Loaded environment variables from .env file")
	}

	ctx := context.Background()

	kv, err := storage.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("STORAGE", fmt.Sprintf("Failed to open %s store: %v", cfg.Store.Driver, err))
	}
	defer kv.Close()

	adapter := storage.NewAdapter(kv, cfg.Store.KeyPrefix)
	eventsKey, regsKey := adapter.Keys()
	logger.Info("STORAGE", fmt.Sprintf("Using %s backend with records %s and %s", kv.Driver(), eventsKey, regsKey))

	var publisher registration.Publisher
	if cfg.Kafka.Enabled {
		if err := kafka.EnsureTopicsExist(ctx, cfg.Kafka.Brokers, []string{cfg.Kafka.Topic}, logger); err != nil {
			logger.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		}
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
		defer producer.Close()
		publisher = producer
		logger.Info("KAFKA", fmt.Sprintf("Publishing registrations to %s", cfg.Kafka.Topic))
	} else {
		logger.Info("KAFKA", "Kafka publishing disabled")
	}

	registry := metrics.New()
	store := registration.NewStore(adapter, publisher, registry, logger)
	if err := store.Initialize(ctx); err != nil {
		// the API still serves and reports the failure on every mutation
		logger.Error("STORE", fmt.Sprintf("Failed to initialize event data: %v", err))
	}

	handler := registration_api.NewHandler(
		store,
		notifier.New(cfg.Notifier.MessageTTL, cfg.Notifier.ConfirmationTTL),
		confirmation.NewQRGenerator(cfg.QR.SecretKey, cfg.QR.Size),
		logger,
	)

	logger.Info("HTTP", "Setting up router and middleware")
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(registration_api.RequestLogger(logger))

	handler.RegisterRoutes(r)
	r.Handle("/metrics", registry.Handler())
	logger.Info("ROUTER", "Routes registered under /api, /health and /metrics")

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("HTTP", fmt.Sprintf("Registration Service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	logger.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-stop

	logger.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		logger.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	} else {
		logger.Info("HTTP", "Registration Service shutdown complete")
	}
}
