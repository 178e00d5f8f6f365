package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"bulk-deal-tracker/internal/config"
	"bulk-deal-tracker/internal/exchange"
	"bulk-deal-tracker/internal/logger"
	"bulk-deal-tracker/internal/notify"
	"bulk-deal-tracker/internal/pipeline"
	"bulk-deal-tracker/internal/snapshot"
	"bulk-deal-tracker/internal/store"
	"bulk-deal-tracker/internal/watchlist"
	"go.uber.org/zap"
)

func main() {
	os.Exit(run())
}

func run() int {
	configDir := flag.String("config", "./configs", "directory containing config.yml")
	dryRun := flag.Bool("dry-run", false, "fetch, match and compose without storing or sending")
	flag.Parse()

	// Load application configuration
	cfg, err := config.LoadConfig(*configDir)
	if err != nil {
		// We can't use the logger here because it's not initialized yet.
		fmt.Fprintf(os.Stderr, "could not load config: %v\n", err)
		return 1
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format, cfg.Logger.File)
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not build logger: %v\n", err)
		return 1
	}
	defer log.Sync()
	log.Info("Configuration loaded")

	if err := cfg.Validate(); err != nil {
		log.Error("Invalid configuration", zap.Error(err))
		return 1
	}
	loc, err := cfg.Fetch.Location()
	if err != nil {
		log.Error("Invalid timezone", zap.Error(err))
		return 1
	}

	gateway, closeGateway, err := newGateway(&cfg.Store, log)
	if err != nil {
		log.Error("Failed to initialize store", zap.Error(err))
		return 1
	}
	defer closeGateway()

	client, err := exchange.NewClient(&cfg.Exchange, log)
	if err != nil {
		log.Error("Failed to initialize exchange client", zap.Error(err))
		return 1
	}

	email, err := notify.NewEmailSender(&cfg.Email, log)
	if err != nil {
		log.Error("Failed to initialize email sender", zap.Error(err))
		return 1
	}

	composer, err := notify.NewComposer()
	if err != nil {
		log.Error("Failed to load report template", zap.Error(err))
		return 1
	}

	var snapshots *snapshot.Writer
	if cfg.Snapshot.Enabled {
		snapshots = snapshot.NewWriter(cfg.Snapshot.Dir, log)
	}

	// Setup context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		sigchan := make(chan os.Signal, 1)
		signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
		<-sigchan
		log.Info("Shutdown signal received, stopping after the current step...")
		cancel()
	}()

	runner := &pipeline.Runner{
		Logger:  log,
		Gateway: gateway,
		Fetchers: []exchange.Fetcher{
			exchange.NewNSEAdapter(client, cfg.Exchange.NSE, log),
			exchange.NewBSEAdapter(client, cfg.Exchange.BSE, log),
		},
		Matcher:   watchlist.NewMatcher(log),
		Composer:  composer,
		Snapshots: snapshots,
		Senders:   []notify.Sender{email, notify.NewTelegramSender(&cfg.Telegram, log)},
		Location:  loc,
		TodayOnly: cfg.Fetch.TodayOnly,
		DryRun:    *dryRun,
	}

	if _, err := runner.Run(ctx); err != nil {
		log.Error("Run failed", zap.Error(err))
		return 1
	}
	return 0
}

// newGateway builds the table store selected by cfg.Driver.
func newGateway(cfg *config.Store, log *zap.Logger) (store.Gateway, func(), error) {
	switch strings.ToLower(cfg.Driver) {
	case config.DriverSQLite:
		g, err := store.NewSQLiteGateway(cfg, log)
		if err != nil {
			return nil, nil, err
		}
		return g, func() {
			if err := g.Close(); err != nil {
				log.Warn("Failed to close database", zap.Error(err))
			}
		}, nil
	case config.DriverSupabase:
		return store.NewSupabaseGateway(cfg, log), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
