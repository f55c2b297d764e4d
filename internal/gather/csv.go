package gather

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"equitysim/internal/domain"
	"equitysim/internal/store"
)

var _ Gatherer = (*CSVImporter)(nil)

// CSVImporter loads historical bars from CSV files. Each file holds one
// ticker, named <TICKER>.csv, with a Date,Open,High,Low,Close,Volume header.
// Empty cells import as nulls. Imported tickers are registered in the
// portfolio.
type CSVImporter struct {
	dir       string
	bars      store.BarStore
	portfolio store.PortfolioStore
	interval  domain.Interval
	log       *slog.Logger
}

// NewCSVImporter creates a CSVImporter reading every .csv file under dir.
func NewCSVImporter(dir string, bars store.BarStore, portfolio store.PortfolioStore, interval domain.Interval) *CSVImporter {
	return &CSVImporter{
		dir:       dir,
		bars:      bars,
		portfolio: portfolio,
		interval:  interval,
		log:       slog.Default().With("gatherer", "csv-import"),
	}
}

// Name returns the gatherer identifier.
func (g *CSVImporter) Name() string { return "csv-import" }

// Run imports every CSV file in the directory. A malformed file is logged
// and skipped; the run continues for the rest.
func (g *CSVImporter) Run(ctx context.Context) error {
	entries, err := os.ReadDir(g.dir)
	if err != nil {
		return fmt.Errorf("reading import directory: %w", err)
	}

	var imported, failed int
	for _, e := range entries {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			continue
		}
		ticker := strings.ToUpper(strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())))
		n, err := g.importFile(ctx, ticker, filepath.Join(g.dir, e.Name()))
		if err != nil {
			g.log.Error("import failed", "file", e.Name(), "err", err)
			failed++
			continue
		}
		g.log.Info("imported", "ticker", ticker, "bars", n)
		imported++
	}

	g.log.Info("import complete", "files", imported, "failed", failed)
	if failed > 0 {
		return fmt.Errorf("%d files failed to import", failed)
	}
	return nil
}

// importFile parses one ticker file, upserts its bars, and registers the
// ticker in the portfolio.
func (g *CSVImporter) importFile(ctx context.Context, ticker, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return 0, err
	}
	if len(records) < 2 {
		return 0, fmt.Errorf("no data rows")
	}

	cols, err := headerColumns(records[0])
	if err != nil {
		return 0, err
	}

	bars := make([]domain.Bar, 0, len(records)-1)
	for i, rec := range records[1:] {
		b, err := parseRow(ticker, g.interval, cols, rec)
		if err != nil {
			return 0, fmt.Errorf("row %d: %w", i+2, err)
		}
		bars = append(bars, b)
	}

	if err := g.bars.UpsertBars(ctx, bars); err != nil {
		return 0, fmt.Errorf("upserting bars: %w", err)
	}
	if err := g.portfolio.AddTicker(ctx, ticker); err != nil {
		return 0, fmt.Errorf("registering ticker: %w", err)
	}
	return len(bars), nil
}

// columns maps each bar field to its header position.
type columns struct {
	date, open, high, low, close, volume int
}

func headerColumns(header []string) (columns, error) {
	cols := columns{date: -1, open: -1, high: -1, low: -1, close: -1, volume: -1}
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "date":
			cols.date = i
		case "open":
			cols.open = i
		case "high":
			cols.high = i
		case "low":
			cols.low = i
		case "close":
			cols.close = i
		case "volume":
			cols.volume = i
		}
	}
	if cols.date < 0 {
		return cols, fmt.Errorf("header has no Date column")
	}
	if cols.open < 0 || cols.high < 0 || cols.low < 0 || cols.close < 0 {
		return cols, fmt.Errorf("header is missing a price column")
	}
	return cols, nil
}

func parseRow(ticker string, interval domain.Interval, cols columns, rec []string) (domain.Bar, error) {
	ts, err := parseDate(rec[cols.date])
	if err != nil {
		return domain.Bar{}, err
	}

	b := domain.Bar{
		Ticker:    ticker,
		Timestamp: ts,
		Interval:  interval,
	}
	if b.Open, err = parseOptFloat(rec[cols.open]); err != nil {
		return domain.Bar{}, fmt.Errorf("open: %w", err)
	}
	if b.High, err = parseOptFloat(rec[cols.high]); err != nil {
		return domain.Bar{}, fmt.Errorf("high: %w", err)
	}
	if b.Low, err = parseOptFloat(rec[cols.low]); err != nil {
		return domain.Bar{}, fmt.Errorf("low: %w", err)
	}
	if b.Close, err = parseOptFloat(rec[cols.close]); err != nil {
		return domain.Bar{}, fmt.Errorf("close: %w", err)
	}
	if cols.volume >= 0 {
		if b.Volume, err = parseOptInt(rec[cols.volume]); err != nil {
			return domain.Bar{}, fmt.Errorf("volume: %w", err)
		}
	}
	return b, nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"2006-01-02", "2006-01-02 15:04:05"} {
		if ts, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

func parseOptFloat(s string) (domain.Float, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return domain.Float{}, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return domain.Float{}, err
	}
	return domain.F(v), nil
}

func parseOptInt(s string) (domain.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return domain.Int{}, nil
	}
	// Some exports write volume as a float.
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return domain.Int{}, err
	}
	return domain.I(int64(v)), nil
}
