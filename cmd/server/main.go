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
	"go.uber.org/zap"

	"github.com/ngocvh/licensewatch/internal/api"
	"github.com/ngocvh/licensewatch/internal/config"
	"github.com/ngocvh/licensewatch/internal/db"
	"github.com/ngocvh/licensewatch/internal/dispatch"
	"github.com/ngocvh/licensewatch/internal/metrics"
	"github.com/ngocvh/licensewatch/internal/notify"
	"github.com/ngocvh/licensewatch/internal/observ"
	"github.com/ngocvh/licensewatch/internal/redis"
	"github.com/ngocvh/licensewatch/internal/sched"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Setup logger
	logger, err := observ.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting licensewatch server",
		zap.String("env", cfg.Env),
		zap.Int("port", cfg.Port),
	)

	// Initialize database connection
	ctx := context.Background()
	dbConfig := db.Config{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		Database: cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	}

	database, err := db.New(ctx, dbConfig, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	logger.Info("database connection established",
		zap.String("host", cfg.DBHost),
		zap.Int("port", cfg.DBPort),
		zap.String("database", cfg.DBName),
	)

	// Initialize repository
	repo := db.NewRepository(database, logger)

	// Redis backs the per-asset sweep lock. The sweep still works without
	// it, so a connection failure only downgrades to unguarded sweeps.
	redisConfig := redis.Config{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}

	var locker dispatch.Locker
	redisClient, err := redis.New(ctx, redisConfig, logger)
	if err != nil {
		logger.Warn("redis unavailable, sweep locking disabled",
			zap.Error(err),
			zap.String("host", cfg.RedisHost),
		)
	} else {
		locker = redis.NewSweepLock(redisClient, logger)
		defer redisClient.Close()
	}

	// Notification channels. Telegram and Zalo are recognized but not yet
	// wired to a provider; assets configured for them are skipped.
	emailNotifier, err := notify.NewEmailNotifier(ctx, notify.EmailConfig{
		Region:      cfg.AWSRegion,
		FromEmail:   cfg.SESFromEmail,
		FrontendURL: cfg.FrontendURL,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to create SES email notifier: %w", err)
	}

	webhookNotifier := notify.NewWebhookNotifier(notify.WebhookConfig{
		Timeout: time.Duration(cfg.WebhookTimeout) * time.Second,
	}, logger)

	notifiers := []notify.Notifier{
		emailNotifier,
		webhookNotifier,
		notify.NewUnimplemented(notify.ChannelTelegram, logger),
		notify.NewUnimplemented(notify.ChannelZalo, logger),
	}

	logger.Info("initialized notification channels",
		zap.Bool("email_enabled", true),
		zap.Bool("webhook_enabled", true),
		zap.Bool("sweep_lock_enabled", locker != nil),
	)

	dispatcher := dispatch.New(repo, notifiers, locker, dispatch.Config{}, logger)

	// Daily sweep trigger
	scheduler, err := sched.New(dispatcher, cfg.SweepSchedule, logger)
	if err != nil {
		return fmt.Errorf("failed to create sweep scheduler: %w", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	logger.Info("sweep scheduler started", zap.String("schedule", cfg.SweepSchedule))

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(metrics.Middleware)

	// Custom logging middleware
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Info("request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration_ms", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	})

	// API routes
	handler := api.NewHandler(logger, repo, dispatcher)
	r.Route("/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(api.RequireRole(cfg.AdminRoles, logger))
			r.Post("/reminders/run", handler.RunSweep)
			r.Post("/notifications/{id}/resend", handler.ResendNotification)
		})

		r.Get("/notifications", handler.ListNotifications)
	})

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	// Prometheus metrics endpoint
	r.Handle("/metrics", metrics.Handler())

	// Setup HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr))
		serverErrors <- srv.ListenAndServe()
	}()

	// Listen for shutdown signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a signal or server error
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))

		// Give outstanding requests 10 seconds to complete
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			srv.Close()
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}

		logger.Info("server stopped gracefully")
	}

	return nil
}
