// Command equitysim-import loads per-ticker CSV files of historical bars
// into the SQLite store and registers the tickers in the portfolio.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"equitysim/internal/config"
	"equitysim/internal/domain"
	"equitysim/internal/gather"
	"equitysim/internal/store"
	"equitysim/internal/util"
)

func main() {
	cfgPath := flag.String("config", "", "path to YAML config file")
	dir := flag.String("dir", "", "directory of <TICKER>.csv files to import")
	flag.Parse()

	if *dir == "" {
		log.Fatal("-dir is required")
	}
	if p := os.Getenv("EQUITYSIM_CONFIG"); *cfgPath == "" && p != "" {
		*cfgPath = p
	}
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)

	s, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer s.Close()

	importer := gather.NewCSVImporter(*dir, s, s, domain.Interval(cfg.Fetch.Interval))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := importer.Run(ctx); err != nil {
		log.Fatalf("import error: %v", err)
	}
}
