package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lapublica/leadgen/config"
	"github.com/lapublica/leadgen/pkg/aiprovider"
	"github.com/lapublica/leadgen/pkg/api/handlers"
	"github.com/lapublica/leadgen/pkg/cache"
	"github.com/lapublica/leadgen/pkg/dashboard"
	"github.com/lapublica/leadgen/pkg/database"
	"github.com/lapublica/leadgen/pkg/jobs"
	"github.com/lapublica/leadgen/pkg/leads"
	"github.com/lapublica/leadgen/pkg/logger"
	custommiddleware "github.com/lapublica/leadgen/pkg/middleware"
	"github.com/lapublica/leadgen/pkg/scraper"
	"github.com/lapublica/leadgen/pkg/sources"
)

func main() {
	cfg := config.Load()
	log.Printf("🔧 Configuration loaded (environment: %s)", cfg.APIEnvironment)

	appLogger := logger.New(cfg.LogLevel, cfg.LogFormat)

	if cfg.SentryDSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			Environment:      cfg.SentryEnvironment,
			AttachStacktrace: true,
		})
		if err != nil {
			log.Printf("⚠️  Failed to initialize Sentry: %v", err)
		} else {
			log.Printf("✅ Sentry initialized (environment: %s)", cfg.SentryEnvironment)
			defer sentry.Flush(2 * time.Second)
		}
	}

	dsn := cfg.DatabaseURL
	if dsn == "" {
		dsn = database.DSN(cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSSLMode)
	}
	db, err := database.NewClient(dsn, cfg.LogLevel)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatalf("❌ Failed to run migrations: %v", err)
	}

	redisClient, err := cache.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatalf("❌ Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	queueClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer queueClient.Close()
	enqueuer := jobs.NewEnqueuer(queueClient)

	// Registries and services
	providerManager := aiprovider.NewManager()
	providerService := aiprovider.NewService(db.DB, providerManager, aiprovider.DefaultFactory, appLogger)

	scraperManager := scraper.NewManager()
	scraperFactory := scraper.NewFactory(scraper.Options{
		GoogleMapsAPIKey: cfg.GoogleMapsAPIKey,
	})

	sourceService := sources.NewService(db.DB, scraperManager, scraperFactory, enqueuer, appLogger,
		time.Duration(cfg.ScrapeTestTimeoutSeconds)*time.Second, cfg.ScrapeTestMaxResults)
	jobService := jobs.NewService(db.DB, enqueuer, appLogger)
	leadService := leads.NewService(db.DB, redisClient, appLogger)
	dashboardService := dashboard.NewService(db.DB, appLogger)

	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := providerService.RestoreRegistry(startupCtx); err != nil {
		log.Printf("⚠️  Failed to restore AI provider registry: %v", err)
	}
	if err := sourceService.RestoreRegistry(startupCtx); err != nil {
		log.Printf("⚠️  Failed to restore scraper registry: %v", err)
	}
	startupCancel()

	validate := validator.New()

	e := echo.New()
	e.HideBanner = true

	rateLimiter := custommiddleware.NewRateLimiter(cfg.RateLimitRequestsPerMinute, cfg.RateLimitBurst)

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus: true,
		LogURI:    true,
		LogError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Printf("[%s] %s - Status: %d", c.Request().Method, v.URI, v.Status)
			return nil
		},
	}))
	e.Use(middleware.Recover())

	if cfg.SentryDSN != "" {
		e.Use(sentryecho.New(sentryecho.Options{
			Repanic: true,
		}))
	}

	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.CORSAllowedOrigins,
		AllowMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
		},
		AllowCredentials: true,
		AllowHeaders: []string{
			"Origin",
			"Content-Type",
			"Accept",
			"Authorization",
		},
	}))
	e.Use(middleware.Gzip())
	e.Use(middleware.Secure())
	e.Use(rateLimiter.Middleware())

	// Health check endpoints (public)
	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{
			"name":        "La Publica Lead Generation API",
			"status":      "running",
			"environment": cfg.APIEnvironment,
			"timestamp":   time.Now().Unix(),
		})
	})

	e.GET("/health", func(c echo.Context) error {
		if err := db.Ping(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]any{
				"status":   "unhealthy",
				"database": "down",
			})
		}
		if _, err := redisClient.Redis.Ping(c.Request().Context()).Result(); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]any{
				"status": "unhealthy",
				"cache":  "down",
			})
		}
		return c.JSON(http.StatusOK, map[string]any{
			"status":   "healthy",
			"database": "up",
			"cache":    "up",
		})
	})

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Admin routes: authenticated + admin role
	admin := e.Group("/api/admin")
	admin.Use(custommiddleware.JWTAuth(cfg.JWTSecret))
	admin.Use(custommiddleware.RequireAdmin())

	handlers.NewProviderHandler(providerService, validate).Register(admin.Group("/ai-providers"))
	handlers.NewSourceHandler(sourceService, validate).Register(admin.Group("/sources"))
	handlers.NewJobHandler(jobService, validate, cfg.JobCleanupDays).Register(admin.Group("/jobs"))
	handlers.NewLeadHandler(leadService, validate).Register(admin.Group("/leads"))
	handlers.NewDashboardHandler(dashboardService).Register(admin.Group("/dashboard"))

	// Start server
	go func() {
		address := fmt.Sprintf("%s:%s", cfg.APIHost, cfg.APIPort)
		log.Printf("🚀 Starting server on %s", address)
		if err := e.Start(address); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Server error: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		log.Fatalf("❌ Server forced to shutdown: %v", err)
	}

	log.Println("✅ Server gracefully stopped")
}
