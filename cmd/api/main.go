// Command api is the Dealwatch service: monitoring scheduler, notification
// drain worker, maintenance tickers, and the HTTP API.
//
// Usage:
//
//	dealwatch-api
//	API_PORT=8080 dealwatch-api
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/joho/godotenv"

	"github.com/albapepper/dealwatch/internal/alerts"
	"github.com/albapepper/dealwatch/internal/api"
	"github.com/albapepper/dealwatch/internal/api/handler"
	"github.com/albapepper/dealwatch/internal/cache"
	"github.com/albapepper/dealwatch/internal/catalog"
	"github.com/albapepper/dealwatch/internal/channel"
	"github.com/albapepper/dealwatch/internal/config"
	"github.com/albapepper/dealwatch/internal/db"
	"github.com/albapepper/dealwatch/internal/feed"
	"github.com/albapepper/dealwatch/internal/listener"
	"github.com/albapepper/dealwatch/internal/maintenance"
	"github.com/albapepper/dealwatch/internal/monitor"
	"github.com/albapepper/dealwatch/internal/snapshot"
	"github.com/albapepper/dealwatch/internal/subscriber"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// Load .env if present
	_ = godotenv.Load(".env")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Context with signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	// Bootstrap schema, then connect the pool (prepared statements reference
	// the tables created here)
	if err := db.Migrate(ctx, cfg.DatabaseURL); err != nil {
		logger.Error("Failed to migrate schema", "error", err)
		os.Exit(1)
	}

	logger.Info("Connecting to database...")
	pool, err := db.New(ctx, cfg)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("Database connected",
		"min_conns", cfg.DBPoolMinConns,
		"max_conns", cfg.DBPoolMaxConns)

	// Initialize cache
	appCache := cache.New(cfg.CacheEnabled)

	// Stores
	products := catalog.NewStore(pool.Pool)
	alertStore := alerts.NewStore(pool.Pool)
	directory := subscriber.NewDirectory(pool.Pool)
	feedStore := feed.NewStore(pool.Pool, cfg.FeedMaxItems, cfg.FeedMaxAge)

	// Dispatch sinks. A channel with no configured provider is simply absent;
	// drained tasks for it are marked failed with a no-sink error and can be
	// redriven once the operator configures the provider.
	sinks := map[alerts.Channel]alerts.Sink{
		alerts.ChannelRSS: feed.NewSink(feedStore),
	}
	if cfg.SESFromEmail != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			logger.Error("Failed to load AWS config", "error", err)
			os.Exit(1)
		}
		sender, err := channel.NewSESSender(awsCfg, cfg.SESFromEmail)
		if err != nil {
			logger.Error("Failed to create SES sender", "error", err)
			os.Exit(1)
		}
		sinks[alerts.ChannelEmail] = channel.NewEmailSink(sender)
		logger.Info("Email sink enabled", "from", cfg.SESFromEmail)
	} else {
		logger.Info("Email sink disabled (no SES_FROM_EMAIL)")
	}
	if cfg.TelegramBotToken != "" {
		tg, err := channel.NewTelegramSink(cfg.TelegramBotToken)
		if err != nil {
			logger.Error("Failed to create Telegram sink", "error", err)
			os.Exit(1)
		}
		sinks[alerts.ChannelTelegram] = tg
		logger.Info("Telegram sink enabled")
	} else {
		logger.Info("Telegram sink disabled (no TELEGRAM_BOT_TOKEN)")
	}

	// Notification queue + pipeline
	queue := alerts.NewQueue(alertStore, sinks, alerts.QueueOptions{
		DryRun:          cfg.DryRun,
		BatchSize:       cfg.DrainBatchSize,
		DispatchTimeout: cfg.DispatchTimeout,
	}, logger)
	pipeline := alerts.NewPipeline(alertStore, queue, directory, feedStore, logger)

	// Monitoring scheduler
	source := snapshot.NewHTTPSource(cfg.FetchPerMinute, nil, logger)
	scheduler := monitor.NewScheduler(products, source, pipeline, monitor.Options{
		Workers:      cfg.CheckWorkers,
		FetchTimeout: cfg.FetchTimeout,
		MaxFailures:  cfg.MaxFailures,
		BackoffBase:  cfg.BackoffBase,
		BackoffMax:   cfg.BackoffMax,
	}, logger)
	go scheduler.Start(ctx, cfg.CheckInterval)

	// Drain worker + LISTEN/NOTIFY wake-up for freshly enqueued tasks
	go alerts.StartWorker(ctx, queue, cfg.DrainInterval, logger)
	go listener.Start(ctx, cfg.DatabaseURL, queue, logger)

	// Maintenance tickers (cleanup + daily summary)
	reporter := maintenance.NewLogReporter(scheduler, queue, logger)
	go maintenance.Start(ctx, maintenance.Deps{
		Queue:  queue,
		Events: alertStore,
		Feed:   feedStore,
	}, maintenance.Config{
		CleanupInterval: 30 * time.Minute,
		Retention:       cfg.RetentionWindow,
		SummaryEnabled:  cfg.SummaryEnabled,
		SummaryHour:     cfg.SummaryHour,
	}, reporter, logger)

	// Router + HTTP server
	h := handler.New(pool, appCache, cfg, scheduler, queue, alertStore, products, directory, feedStore)
	router := api.NewRouter(h, cfg)

	addr := fmt.Sprintf("%s:%d", cfg.APIHost, cfg.APIPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Starting Dealwatch API",
			"addr", addr,
			"environment", cfg.Environment,
			"dry_run", cfg.DryRun)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt
	<-ctx.Done()
	logger.Info("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", "error", err)
	}
	logger.Info("Server stopped")
}
