package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/hibiken/asynq"

	"github.com/lapublica/leadgen/config"
	"github.com/lapublica/leadgen/pkg/aiprovider"
	"github.com/lapublica/leadgen/pkg/database"
	"github.com/lapublica/leadgen/pkg/jobs"
	"github.com/lapublica/leadgen/pkg/logger"
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

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}

	queueClient := asynq.NewClient(redisOpt)
	defer queueClient.Close()
	enqueuer := jobs.NewEnqueuer(queueClient)

	providerManager := aiprovider.NewManager()
	providerService := aiprovider.NewService(db.DB, providerManager, aiprovider.DefaultFactory, appLogger)

	scraperManager := scraper.NewManager()
	scraperFactory := scraper.NewFactory(scraper.Options{
		GoogleMapsAPIKey: cfg.GoogleMapsAPIKey,
	})
	sourceService := sources.NewService(db.DB, scraperManager, scraperFactory, enqueuer, appLogger,
		time.Duration(cfg.ScrapeTestTimeoutSeconds)*time.Second, cfg.ScrapeTestMaxResults)

	executor := jobs.NewExecutor(db.DB, scraperManager, scraperFactory, providerManager, appLogger, cfg.DefaultPhoneRegion)
	jobService := jobs.NewService(db.DB, enqueuer, appLogger)
	scheduler := jobs.NewScheduler(db.DB, jobService, enqueuer, appLogger, cfg.JobCleanupDays)

	// Active provider clients and scrapers must exist before the first run.
	restoreRegistries(providerService, sourceService, appLogger)

	if err := scheduler.Start(); err != nil {
		log.Fatalf("❌ Failed to start scheduler: %v", err)
	}

	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: cfg.WorkerConcurrency,
		Queues: map[string]int{
			"default": 1,
		},
	})

	mux := asynq.NewServeMux()
	mux.HandleFunc(jobs.TypeScrapeJob, executor.ProcessTask)

	go func() {
		log.Printf("🚀 Worker started (concurrency: %d)", cfg.WorkerConcurrency)
		if err := srv.Run(mux); err != nil {
			log.Fatalf("❌ Worker error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down worker...")
	scheduler.Stop()
	srv.Shutdown()
	log.Println("✅ Worker gracefully stopped")
}

func restoreRegistries(providers *aiprovider.Service, srcs *sources.Service, log logger.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := providers.RestoreRegistry(ctx); err != nil {
		log.Warn("failed to restore AI provider registry", "error", err)
	}
	if err := srcs.RestoreRegistry(ctx); err != nil {
		log.Warn("failed to restore scraper registry", "error", err)
	}
}
