package gather

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"equitysim/internal/domain"
	"equitysim/internal/store"
	"equitysim/internal/util"
)

var _ Gatherer = (*AlpacaFetcher)(nil)

// AlpacaFetcher fetches daily OHLCV bars for the registered portfolio tickers
// via the Alpaca market-data API and upserts them into the bar store. Each
// ticker resumes from the day after its last stored bar.
type AlpacaFetcher struct {
	client    *marketdata.Client
	bars      store.BarStore
	portfolio store.PortfolioStore
	startDate string
	interval  domain.Interval
	log       *slog.Logger
}

// NewAlpacaFetcher creates an AlpacaFetcher configured with the given Alpaca
// credentials and target store. startDate bounds the first-ever fetch for a
// ticker with no stored history.
func NewAlpacaFetcher(apiKey, apiSecret, dataURL string, bars store.BarStore, portfolio store.PortfolioStore, startDate string, interval domain.Interval) *AlpacaFetcher {
	opts := marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if dataURL != "" {
		opts.BaseURL = dataURL
	}

	return &AlpacaFetcher{
		client:    marketdata.NewClient(opts),
		bars:      bars,
		portfolio: portfolio,
		startDate: startDate,
		interval:  interval,
		log:       slog.Default().With("gatherer", "alpaca-daily"),
	}
}

// Name returns the gatherer identifier.
func (g *AlpacaFetcher) Name() string { return "alpaca-daily" }

// Run fetches bars for every registered ticker. A failed ticker is logged
// and skipped; the run continues for the rest and reports the failure count.
func (g *AlpacaFetcher) Run(ctx context.Context) error {
	defaultStart, err := time.Parse("2006-01-02", g.startDate)
	if err != nil {
		return fmt.Errorf("parsing start date %q: %w", g.startDate, err)
	}

	tickers, err := g.portfolio.Tickers(ctx)
	if err != nil {
		return fmt.Errorf("listing portfolio tickers: %w", err)
	}
	if len(tickers) == 0 {
		g.log.Info("portfolio is empty, nothing to fetch")
		return nil
	}

	runStart := time.Now()
	var failed int
	for _, ticker := range tickers {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		n, err := g.fetchTicker(ctx, ticker, defaultStart)
		if err != nil {
			g.log.Error("ticker fetch failed", "ticker", ticker, "err", err)
			failed++
			continue
		}
		g.log.Info("ticker fetched", "ticker", ticker, "bars", n)
	}

	g.log.Info("fetch complete",
		"tickers", len(tickers),
		"failed", failed,
		"elapsed", time.Since(runStart).Round(time.Second),
	)
	if failed > 0 {
		return fmt.Errorf("%d of %d tickers failed", failed, len(tickers))
	}
	return nil
}

// fetchTicker fetches bars for one ticker from the day after its last stored
// bar (or the configured start date) and upserts them. Returns the number of
// bars written.
func (g *AlpacaFetcher) fetchTicker(ctx context.Context, ticker string, defaultStart time.Time) (int, error) {
	start := defaultStart
	if last, ok, err := g.bars.LastTimestamp(ctx, ticker, g.interval); err != nil {
		return 0, fmt.Errorf("reading last timestamp: %w", err)
	} else if ok {
		start = last.AddDate(0, 0, 1)
	}
	if !start.Before(time.Now().UTC()) {
		return 0, nil
	}

	var alpacaBars []marketdata.Bar
	err := util.Retry(ctx, 3, time.Second, func() error {
		var err error
		alpacaBars, err = g.client.GetBars(ticker, marketdata.GetBarsRequest{
			TimeFrame: marketdata.OneDay,
			Start:     start,
		})
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("GetBars: %w", err)
	}
	if len(alpacaBars) == 0 {
		return 0, nil
	}

	bars := make([]domain.Bar, 0, len(alpacaBars))
	for _, ab := range alpacaBars {
		bars = append(bars, toBar(ticker, g.interval, ab))
	}
	if err := g.bars.UpsertBars(ctx, bars); err != nil {
		return 0, fmt.Errorf("upserting bars: %w", err)
	}
	return len(bars), nil
}

// toBar converts an Alpaca bar into a domain bar. API bars are always fully
// populated, so every field comes back defined.
func toBar(ticker string, interval domain.Interval, ab marketdata.Bar) domain.Bar {
	return domain.Bar{
		Ticker:    strings.ToUpper(ticker),
		Timestamp: ab.Timestamp.UTC().Truncate(24 * time.Hour),
		Interval:  interval,
		Open:      domain.F(ab.Open),
		High:      domain.F(ab.High),
		Low:       domain.F(ab.Low),
		Close:     domain.F(ab.Close),
		Volume:    domain.I(int64(ab.Volume)),
	}
}
