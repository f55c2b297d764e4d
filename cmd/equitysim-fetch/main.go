// Command equitysim-fetch pulls daily bars for the registered portfolio
// tickers from the Alpaca market-data API into the SQLite store.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"equitysim/internal/config"
	"equitysim/internal/domain"
	"equitysim/internal/gather"
	"equitysim/internal/store"
	"equitysim/internal/util"
)

func main() {
	cfgPath := flag.String("config", "", "path to YAML config file")
	startDate := flag.String("start-date", "", "first date to fetch for tickers with no history (YYYY-MM-DD)")
	flag.Parse()

	if p := os.Getenv("EQUITYSIM_CONFIG"); *cfgPath == "" && p != "" {
		*cfgPath = p
	}
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if *startDate != "" {
		cfg.Fetch.StartDate = *startDate
	}
	if cfg.Alpaca.APIKey == "" || cfg.Alpaca.APISecret == "" {
		log.Fatal("Alpaca credentials are not configured (set APCA_API_KEY_ID / APCA_API_SECRET_KEY)")
	}

	// Tee the run log into a dated file alongside stderr.
	logFileName := fmt.Sprintf("/tmp/equitysim-fetch-%s.log", time.Now().Format("2006-01-02"))
	logFile, err := os.Create(logFileName)
	if err != nil {
		log.Fatalf("failed to create log file: %v", err)
	}
	defer logFile.Close()

	logger := util.NewLoggerTo(io.MultiWriter(os.Stderr, logFile), cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)

	s, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer s.Close()

	fetcher := gather.NewAlpacaFetcher(
		cfg.Alpaca.APIKey,
		cfg.Alpaca.APISecret,
		cfg.Alpaca.DataURL,
		s,
		s,
		cfg.Fetch.StartDate,
		domain.Interval(cfg.Fetch.Interval),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	slog.Info("starting fetch", "logFile", logFileName, "db", cfg.Storage.SQLitePath)
	if err := fetcher.Run(ctx); err != nil {
		log.Fatalf("fetch error: %v", err)
	}
}
