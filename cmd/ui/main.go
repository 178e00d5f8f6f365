package main

import (
	"fmt"
	"net/http"
	"os"

	"bulk-deal-tracker/internal/config"
	"bulk-deal-tracker/internal/logger"
	"bulk-deal-tracker/internal/store"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format, "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	loc, err := cfg.Fetch.Location()
	if err != nil {
		log.Fatal("Invalid timezone", zap.Error(err))
	}

	// The viewer reads the local store regardless of the job's driver.
	gateway, err := store.NewSQLiteGateway(&cfg.Store, log)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer gateway.Close()

	// Setup HTTP server
	mux := http.NewServeMux()
	apiHandler := NewAPIHandler(log, gateway, loc)

	// API endpoints
	mux.HandleFunc("GET /api/deals", apiHandler.DealsHandler)
	mux.HandleFunc("GET /api/summary", apiHandler.SummaryHandler)
	mux.HandleFunc("GET /api/watchlist", apiHandler.WatchlistHandler)

	addr := fmt.Sprintf(":%d", cfg.UI.Port)
	log.Info("Starting web server", zap.String("address", addr), zap.String("database", cfg.Store.SQLitePath))

	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatal("Web server failed", zap.Error(err))
	}
}
