// Command equitysim runs the SMA-crossover simulation over stored price bars
// and writes the signal, weight, and return tables.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"equitysim/internal/config"
	"equitysim/internal/domain"
	"equitysim/internal/engine"
	"equitysim/internal/report"
	"equitysim/internal/store"
	"equitysim/internal/util"
)

func main() {
	var (
		cfgPath      = flag.String("config", "", "path to YAML config file")
		tickersFlag  = flag.String("tickers", "", "comma-separated tickers to simulate (default: the portfolio)")
		usePortfolio = flag.Bool("portfolio", false, "simulate the registered portfolio tickers")
		start        = flag.String("start", "", "simulation start date (YYYY-MM-DD)")
		end          = flag.String("end", "", "simulation end date (YYYY-MM-DD, default: latest)")
		shortWindow  = flag.Int("short-window", 0, "short SMA window length")
		longWindow   = flag.Int("long-window", 0, "long SMA window length")
		cashBuffer   = flag.Float64("cash-buffer", -1, "cash fraction held out of the market [0,1]")
		rebalance    = flag.String("rebalance", "", `rebalancing mode: "daily" or "on_signal"`)
		outputDir    = flag.String("output-dir", "", "directory for the output tables")
		format       = flag.String("format", "", `output format: "csv" or "parquet"`)
		workers      = flag.Int("workers", 0, "max concurrent ticker workers")
	)
	flag.Parse()

	if p := os.Getenv("EQUITYSIM_CONFIG"); *cfgPath == "" && p != "" {
		*cfgPath = p
	}
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	applySimFlags(cfg, *start, *end, *shortWindow, *longWindow, *cashBuffer, *rebalance, *outputDir, *format, *workers)

	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)

	s, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer s.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	tickers, err := resolveTickers(ctx, s, *tickersFlag, *usePortfolio)
	if err != nil {
		log.Fatalf("failed to resolve tickers: %v", err)
	}

	runCfg, err := buildRunConfig(cfg, tickers)
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	res, err := engine.New(s, logger).Run(ctx, runCfg)
	if err != nil {
		log.Fatalf("simulation failed: %v", err)
	}

	writer, err := report.New(cfg.Sim.Format)
	if err != nil {
		log.Fatalf("%v", err)
	}
	if err := writer.Write(cfg.Sim.OutputDir, res); err != nil {
		log.Fatalf("failed to write results: %v", err)
	}

	logger.Info("results written",
		"dir", cfg.Sim.OutputDir,
		"format", cfg.Sim.Format,
		"tickers", len(res.Tickers),
		"excluded", len(res.Issues),
	)
	for _, issue := range res.Issues {
		fmt.Fprintf(os.Stderr, "excluded %s: %v\n", issue.Ticker, issue.Err)
	}
}

// applySimFlags overlays non-zero flag values onto the loaded config.
func applySimFlags(cfg *config.Config, start, end string, short, long int, buffer float64, rebalance, outputDir, format string, workers int) {
	if start != "" {
		cfg.Sim.Start = start
	}
	if end != "" {
		cfg.Sim.End = end
	}
	if short > 0 {
		cfg.Sim.ShortWindow = short
	}
	if long > 0 {
		cfg.Sim.LongWindow = long
	}
	if buffer >= 0 {
		cfg.Sim.CashBuffer = buffer
	}
	if rebalance != "" {
		cfg.Sim.Rebalance = rebalance
	}
	if outputDir != "" {
		cfg.Sim.OutputDir = outputDir
	}
	if format != "" {
		cfg.Sim.Format = format
	}
	if workers > 0 {
		cfg.Sim.MaxWorkers = workers
	}
}

// resolveTickers returns the explicit -tickers list, or the registered
// portfolio when -portfolio is set or no list was given.
func resolveTickers(ctx context.Context, s *store.SQLiteStore, tickersFlag string, usePortfolio bool) ([]string, error) {
	if tickersFlag != "" && !usePortfolio {
		var tickers []string
		for _, t := range strings.Split(tickersFlag, ",") {
			if t = strings.ToUpper(strings.TrimSpace(t)); t != "" {
				tickers = append(tickers, t)
			}
		}
		return tickers, nil
	}
	return s.Tickers(ctx)
}

func buildRunConfig(cfg *config.Config, tickers []string) (engine.RunConfig, error) {
	startTime, err := time.Parse("2006-01-02", cfg.Sim.Start)
	if err != nil {
		return engine.RunConfig{}, fmt.Errorf("parsing start date %q: %w", cfg.Sim.Start, err)
	}
	var endTime time.Time
	if cfg.Sim.End != "" {
		if endTime, err = time.Parse("2006-01-02", cfg.Sim.End); err != nil {
			return engine.RunConfig{}, fmt.Errorf("parsing end date %q: %w", cfg.Sim.End, err)
		}
	}

	return engine.RunConfig{
		Tickers:     tickers,
		Start:       startTime,
		End:         endTime,
		Interval:    domain.IntervalDaily,
		ShortWindow: cfg.Sim.ShortWindow,
		LongWindow:  cfg.Sim.LongWindow,
		CashBuffer:  cfg.Sim.CashBuffer,
		Rebalance:   engine.RebalanceMode(cfg.Sim.Rebalance),
		MaxWorkers:  cfg.Sim.MaxWorkers,
	}, nil
}
