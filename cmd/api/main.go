// Package main is the entry point for the calendar API server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/bjzgcai/calendar/internal/api"
	"github.com/bjzgcai/calendar/internal/auth"
	"github.com/bjzgcai/calendar/internal/config"
	"github.com/bjzgcai/calendar/internal/db"
	"github.com/bjzgcai/calendar/internal/directory"
	"github.com/bjzgcai/calendar/internal/event"
	"github.com/bjzgcai/calendar/internal/health"
	"github.com/bjzgcai/calendar/internal/holiday"
	"github.com/bjzgcai/calendar/internal/middleware"
	"github.com/bjzgcai/calendar/internal/tracing"
	"github.com/bjzgcai/calendar/internal/upload"
	"github.com/bjzgcai/calendar/internal/user"
	"github.com/bjzgcai/calendar/internal/vision"
)

func main() {
	configFile := flag.String("config", "", "optional YAML config file (env vars take precedence)")
	help := flag.Bool("help", false, "display help message")
	flag.Parse()

	if *help {
		fmt.Println("Calendar API Server")
		fmt.Println()
		fmt.Println("Usage: api [options]")
		fmt.Println()
		fmt.Println("Options:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	cfg, errs := config.Load(*configFile)
	if len(errs) > 0 {
		for _, err := range errs {
			fmt.Fprintln(os.Stderr, "config:", err)
		}
		os.Exit(1)
	}

	logger := middleware.NewLogger(cfg.Env)
	slog.SetDefault(logger)

	logger.Info("configuration loaded", "config", cfg.LogSummary())

	ctx := context.Background()

	// Tracing provider (no-op when disabled)
	tracerProvider, err := tracing.NewProvider(tracing.Config{
		ServiceName:  "calendar-api",
		Enabled:      cfg.TracingEnabled,
		Environment:  cfg.Env,
		ExporterType: "otlp-http",
		OTLPEndpoint: cfg.TracingEndpoint,
		SamplingRate: 0.1,
		InsecureMode: cfg.Env != "production",
	})
	if err != nil {
		logger.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shut down tracing", "error", err)
		}
	}()

	// Database
	conn, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer conn.Close()

	eventRepo := event.NewPostgresRepository(conn)
	userRepo := user.NewPostgresRepository(conn)

	// Redis backs the directory cache and rate limiting; the server
	// runs without it, just slower and unthrottled by shared state.
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error("invalid REDIS_URL", "error", err)
			os.Exit(1)
		}
		redisClient = redis.NewClient(opts)
		defer redisClient.Close()
	}

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	httpMetrics := middleware.NewMetrics()
	if err := httpMetrics.Register(registry); err != nil {
		logger.Error("failed to register http metrics", "error", err)
		os.Exit(1)
	}
	apiMetrics := api.NewMetrics()
	if err := apiMetrics.Register(registry); err != nil {
		logger.Error("failed to register api metrics", "error", err)
		os.Exit(1)
	}

	// Sessions
	var sessions *auth.SessionService
	if cfg.SessionSecretPrevious != "" {
		sessions = auth.NewSessionServiceWithRotation(cfg.SessionSecret, cfg.SessionSecretPrevious)
	} else {
		sessions = auth.NewSessionService(cfg.SessionSecret)
	}

	// DingTalk directory and OAuth login (optional)
	var (
		authHandlers      *api.AuthHandlers
		directoryHandlers *api.DirectoryHandlers
	)
	if cfg.DingTalkAppKey != "" {
		dingtalk, err := directory.NewClient(directory.ClientConfig{
			AppKey:    cfg.DingTalkAppKey,
			AppSecret: cfg.DingTalkAppSecret,
		})
		if err != nil {
			logger.Error("failed to create dingtalk client", "error", err)
			os.Exit(1)
		}

		authHandlers = api.NewAuthHandlers(api.AuthHandlersConfig{
			OAuth:         dingtalk,
			Users:         userRepo,
			Sessions:      sessions,
			RedirectURI:   cfg.DingTalkRedirectURI,
			SecureCookies: cfg.Env == "production",
		})

		var searcher directory.Searcher = dingtalk
		if redisClient != nil {
			searcher = directory.NewCache(dingtalk, redisClient)
		}
		directoryHandlers = api.NewDirectoryHandlers(searcher)
	} else {
		logger.Info("dingtalk integration not configured; auth and directory routes disabled")
	}

	// Poster uploads (optional)
	var uploadHandlers *api.UploadHandlers
	if cfg.S3BucketName != "" {
		uploadService, err := upload.NewService(upload.ServiceConfig{
			BucketName:      cfg.S3BucketName,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			PublicBaseURL:   cfg.S3PublicBaseURL,
			MaxSizeMB:       cfg.S3MaxUploadSizeMB,
		})
		if err != nil {
			logger.Error("failed to create upload service", "error", err)
			os.Exit(1)
		}
		uploadHandlers = api.NewUploadHandlers(uploadService, apiMetrics)
	} else {
		logger.Info("object storage not configured; poster upload route disabled")
	}

	// Poster analysis (optional)
	var analyzeHandlers *api.AnalyzeHandlers
	if cfg.VisionAPIKey != "" {
		visionClient, err := vision.NewClient(vision.ClientConfig{
			APIKey:  cfg.VisionAPIKey,
			BaseURL: cfg.VisionBaseURL,
			Model:   cfg.VisionModel,
		})
		if err != nil {
			logger.Error("failed to create vision client", "error", err)
			os.Exit(1)
		}
		analyzeHandlers = api.NewAnalyzeHandlers(visionClient, apiMetrics)
	} else {
		logger.Info("vision api not configured; poster analysis route disabled")
	}

	// Holiday dataset and its annual freshness check
	holidayDataset := holiday.NewDataset()
	holidayChecker := holiday.NewChecker(holidayDataset)
	if err := holidayChecker.Start(); err != nil {
		logger.Error("failed to start holiday checker", "error", err)
		os.Exit(1)
	}
	defer holidayChecker.Stop()

	// Rate limiting: Redis-backed when available, in-process otherwise.
	var rateLimitStore middleware.RateLimitStore
	if redisClient != nil {
		rateLimitStore = middleware.NewRedisRateLimitStore(redisClient, httpMetrics)
	} else {
		rateLimitStore = middleware.NewInMemoryRateLimitStore()
	}

	healthHandlers := api.NewHealthHandlers(api.HealthHandlersConfig{
		DBChecker:    health.NewDBChecker(conn),
		RedisChecker: redisChecker(redisClient),
	})

	handler := api.NewRouter(api.RouterConfig{
		Events:    api.NewEventHandlers(eventRepo, apiMetrics),
		Auth:      authHandlers,
		Directory: directoryHandlers,
		Uploads:   uploadHandlers,
		Analyze:   analyzeHandlers,
		Holidays:  api.NewHolidayHandlers(holidayDataset, holidayChecker),
		Health:    healthHandlers,

		Logger:         logger,
		SessionService: sessions,
		CORS: middleware.CORSConfig{
			AllowedOrigins:   cfg.CORSAllowedOrigins,
			AllowCredentials: true,
		},
		TracingEnabled: cfg.TracingEnabled,
		HTTPMetrics:    httpMetrics,
		Registry:       registry,
		RateLimitStore: rateLimitStore,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting server", "port", cfg.Port, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// redisChecker returns a readiness checker for the client, or nil when
// Redis is not configured.
func redisChecker(client *redis.Client) api.HealthChecker {
	if client == nil {
		return nil
	}
	return health.NewRedisChecker(client)
}
