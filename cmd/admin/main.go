// Command admin is the Dealwatch operations CLI.
//
// Usage:
//
//	dealwatch-admin run force
//	dealwatch-admin run status
//	dealwatch-admin run reset-stats
//	dealwatch-admin products reactivate --id 42
//	dealwatch-admin queue drain --dry-run
//	dealwatch-admin queue redrive
//	dealwatch-admin queue cleanup
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/albapepper/dealwatch/internal/alerts"
	"github.com/albapepper/dealwatch/internal/catalog"
	"github.com/albapepper/dealwatch/internal/channel"
	"github.com/albapepper/dealwatch/internal/config"
	"github.com/albapepper/dealwatch/internal/db"
	"github.com/albapepper/dealwatch/internal/feed"
)

var logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

var apiURL string

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:   "dealwatch-admin",
		Short: "Dealwatch operations CLI",
	}
	root.PersistentFlags().StringVar(&apiURL, "api-url", "", "Base URL of the running service (default from API_PORT)")

	root.AddCommand(runCmd())
	root.AddCommand(productsCmd())
	root.AddCommand(queueCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// --------------------------------------------------------------------------
// run command — talks to the live service over HTTP, since the scheduler
// state lives in the service process
// --------------------------------------------------------------------------

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Inspect and control the check cycle",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "force",
		Short: "Trigger an immediate check cycle",
		RunE: func(cmd *cobra.Command, args []string) error {
			return callAPI(http.MethodPost, "/api/v1/run")
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show scheduler and queue status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return callAPI(http.MethodGet, "/api/v1/status")
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "reset-stats",
		Short: "Zero the scheduler's cumulative counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			return callAPI(http.MethodPost, "/api/v1/run/reset-stats")
		},
	})
	return cmd
}

// --------------------------------------------------------------------------
// products command
// --------------------------------------------------------------------------

func productsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "products",
		Short: "Manage the watch catalog",
	}
	cmd.AddCommand(productsReactivateCmd())
	return cmd
}

func productsReactivateCmd() *cobra.Command {
	var id int64
	cmd := &cobra.Command{
		Use:   "reactivate",
		Short: "Move a failed product back into the check rotation",
		RunE: func(cmd *cobra.Command, args []string) error {
			if id == 0 {
				return fmt.Errorf("--id is required")
			}
			return runWith(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				if err := catalog.NewStore(pool.Pool).Reactivate(ctx, id); err != nil {
					return err
				}
				logger.Info("Product reactivated", "product_id", id)
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&id, "id", 0, "Product ID to reactivate")
	return cmd
}

// --------------------------------------------------------------------------
// queue command
// --------------------------------------------------------------------------

func queueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Operate the notification queue",
	}
	cmd.AddCommand(queueDrainCmd())
	cmd.AddCommand(queueRedriveCmd())
	cmd.AddCommand(queueCleanupCmd())
	return cmd
}

func queueDrainCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "drain",
		Short: "Claim and dispatch one batch of due notification tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWith(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				queue, err := buildQueue(ctx, cfg, pool, dryRun)
				if err != nil {
					return err
				}
				start := time.Now()
				res, err := queue.Drain(ctx)
				if err != nil {
					return err
				}
				logger.Info("Drain finished",
					"claimed", res.Claimed, "sent", res.Sent, "failed", res.Failed,
					"duration", time.Since(start).Round(time.Millisecond))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Walk the full pipeline without touching providers")
	return cmd
}

func queueRedriveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "redrive",
		Short: "Reset failed tasks to pending for another delivery attempt",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWith(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				n, err := alerts.NewStore(pool.Pool).RedriveFailed(ctx)
				if err != nil {
					return err
				}
				logger.Info("Redrive finished", "tasks", n)
				return nil
			})
		},
	}
}

func queueCleanupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Purge finished tasks past the retention window",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWith(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				cutoff := time.Now().Add(-cfg.RetentionWindow)
				n, err := alerts.NewStore(pool.Pool).PurgeTasksOlder(ctx, cutoff)
				if err != nil {
					return err
				}
				logger.Info("Cleanup finished", "tasks", n)
				return nil
			})
		},
	}
}

// buildQueue assembles a queue with whichever sinks are configured. Forced
// dry-run short-circuits the providers entirely.
func buildQueue(ctx context.Context, cfg *config.Config, pool *db.Pool, dryRun bool) (*alerts.Queue, error) {
	store := alerts.NewStore(pool.Pool)
	feedStore := feed.NewStore(pool.Pool, cfg.FeedMaxItems, cfg.FeedMaxAge)

	sinks := map[alerts.Channel]alerts.Sink{
		alerts.ChannelRSS: feed.NewSink(feedStore),
	}
	if !dryRun && cfg.SESFromEmail != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		sender, err := channel.NewSESSender(awsCfg, cfg.SESFromEmail)
		if err != nil {
			return nil, err
		}
		sinks[alerts.ChannelEmail] = channel.NewEmailSink(sender)
	}
	if !dryRun && cfg.TelegramBotToken != "" {
		tg, err := channel.NewTelegramSink(cfg.TelegramBotToken)
		if err != nil {
			return nil, err
		}
		sinks[alerts.ChannelTelegram] = tg
	}

	return alerts.NewQueue(store, sinks, alerts.QueueOptions{
		DryRun:          dryRun || cfg.DryRun,
		BatchSize:       cfg.DrainBatchSize,
		DispatchTimeout: cfg.DispatchTimeout,
	}, logger), nil
}

// --------------------------------------------------------------------------
// Shared setup
// --------------------------------------------------------------------------

// runWith handles config loading, DB connection, and context cancellation.
func runWith(fn func(ctx context.Context, cfg *config.Config, pool *db.Pool) error) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := db.Migrate(ctx, cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	pool, err := db.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	return fn(ctx, cfg, pool)
}

// callAPI sends one request to the running service and prints the body.
func callAPI(method, path string) error {
	base := apiURL
	if base == "" {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		base = fmt.Sprintf("http://localhost:%d", cfg.APIPort)
	}

	req, err := http.NewRequest(method, base+path, nil)
	if err != nil {
		return err
	}
	client := &http.Client{Timeout: 5 * time.Minute}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("call %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	fmt.Println(string(body))
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%s returned %d", path, resp.StatusCode)
	}
	return nil
}
