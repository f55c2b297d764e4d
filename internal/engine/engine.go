// Package engine implements the analytics-and-simulation pipeline: gap
// imputation over incomplete bars, rolling return and moving-average
// analytics, crossover signal generation, and the portfolio weight
// simulation.
package engine

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"equitysim/internal/domain"
	"equitysim/internal/store"
)

// RunConfig is the immutable input to one simulation run.
type RunConfig struct {
	Tickers     []string
	Start       time.Time
	End         time.Time // zero means latest available
	Interval    domain.Interval
	ShortWindow int
	LongWindow  int
	CashBuffer  float64
	Rebalance   RebalanceMode
	MaxWorkers  int
}

// Validate checks the configuration before any data access and reports the
// first violated constraint.
func (c *RunConfig) Validate() error {
	if len(c.Tickers) == 0 {
		return &ConfigError{Field: "tickers", Reason: "at least one ticker is required"}
	}
	if c.ShortWindow <= 0 {
		return &ConfigError{Field: "short_window", Reason: "must be a positive integer"}
	}
	if c.LongWindow <= 0 {
		return &ConfigError{Field: "long_window", Reason: "must be a positive integer"}
	}
	if c.ShortWindow >= c.LongWindow {
		return &ConfigError{Field: "short_window", Reason: "must be smaller than long_window"}
	}
	if c.CashBuffer < 0 || c.CashBuffer > 1 {
		return &ConfigError{Field: "cash_buffer", Reason: "must be within [0, 1]"}
	}
	if c.Rebalance != RebalanceDaily && c.Rebalance != RebalanceOnSignal {
		return &ConfigError{Field: "rebalance", Reason: `must be "daily" or "on_signal"`}
	}
	if !c.End.IsZero() && c.End.Before(c.Start) {
		return &ConfigError{Field: "end", Reason: "must not precede start"}
	}
	return nil
}

// TickerIssue records why a ticker was left out of the simulation.
type TickerIssue struct {
	Ticker string
	Err    error
}

// DetailedRow joins SMA values, position, action, and realized portfolio
// weight for one (ticker, timestamp).
type DetailedRow struct {
	Ticker    string
	Timestamp time.Time
	Close     domain.Float
	SMAShort  domain.Float
	SMALong   domain.Float
	Position  domain.Position
	Action    domain.Action
	Weight    float64
}

// Result is everything one run produced. Tickers holds only the tickers
// that made it into the simulation; everything excluded is in Issues.
type Result struct {
	Tickers     []string
	Signals     map[string][]domain.Signal
	Allocations []domain.Allocation
	Detailed    []DetailedRow
	Monthly     []domain.PeriodReturn
	Issues      []TickerIssue
	ImputedBars int
}

// Engine runs the full pipeline against a bar store.
type Engine struct {
	bars store.BarStore
	log  *slog.Logger
}

// New creates an Engine reading from and writing imputed bars back to the
// given store.
func New(bars store.BarStore, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{bars: bars, log: log.With("component", "engine")}
}

// tickerOutput is what one worker produces for one ticker.
type tickerOutput struct {
	signals []domain.Signal
	monthly []domain.PeriodReturn
	imputed int
	err     error
}

// Run executes one simulation. Configuration problems fail fast with a
// ConfigError; per-ticker data gaps and repository failures exclude that
// ticker and are reported in Result.Issues while the run continues for the
// rest. Running twice on unchanged bars yields identical results.
func (e *Engine) Run(ctx context.Context, cfg RunConfig) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Interval == "" {
		cfg.Interval = domain.IntervalDaily
	}

	workers := cfg.MaxWorkers
	if workers <= 0 {
		workers = 4
	}
	if workers > len(cfg.Tickers) {
		workers = len(cfg.Tickers)
	}

	// Per-ticker series are independent; process them in parallel and merge
	// deterministically afterwards.
	jobs := make(chan string, len(cfg.Tickers))
	for _, tk := range cfg.Tickers {
		jobs <- tk
	}
	close(jobs)

	var (
		mu      sync.Mutex
		outputs = make(map[string]tickerOutput, len(cfg.Tickers))
		wg      sync.WaitGroup
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for tk := range jobs {
				if ctx.Err() != nil {
					return
				}
				out := e.processTicker(ctx, tk, cfg)
				mu.Lock()
				outputs[tk] = out
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &Result{Signals: make(map[string][]domain.Signal)}
	for _, tk := range sortedKeys(outputs) {
		out := outputs[tk]
		if out.err != nil {
			e.log.Warn("ticker excluded", "ticker", tk, "reason", out.err)
			res.Issues = append(res.Issues, TickerIssue{Ticker: tk, Err: out.err})
			continue
		}
		res.Tickers = append(res.Tickers, tk)
		res.Signals[tk] = out.signals
		res.Monthly = append(res.Monthly, out.monthly...)
		res.ImputedBars += out.imputed
	}

	res.Allocations = Simulate(res.Signals, cfg.CashBuffer, cfg.Rebalance)
	res.Detailed = detailedRows(res)

	e.log.Info("run complete",
		"tickers", len(res.Tickers),
		"excluded", len(res.Issues),
		"timestamps", len(res.Allocations),
		"imputedBars", res.ImputedBars,
	)
	return res, nil
}

// processTicker reads, imputes, analyzes, and signals one ticker's series.
func (e *Engine) processTicker(ctx context.Context, ticker string, cfg RunConfig) tickerOutput {
	series, err := e.bars.ReadSeries(ctx, ticker, cfg.Interval, cfg.Start, cfg.End)
	if err != nil {
		return tickerOutput{err: &RepositoryError{Ticker: ticker, Op: "read", Err: err}}
	}
	if len(series.Bars) == 0 {
		return tickerOutput{err: &DataGapError{Ticker: ticker, Bars: 0, LongWindow: cfg.LongWindow}}
	}

	imputed := Impute(&series)
	if imputed > 0 {
		if err := e.bars.UpsertBars(ctx, series.Bars); err != nil {
			return tickerOutput{err: &RepositoryError{Ticker: ticker, Op: "write", Err: err}}
		}
		e.log.Debug("imputed bars persisted", "ticker", ticker, "bars", imputed)
	}

	rows := Analyze(series, cfg.ShortWindow, cfg.LongWindow)
	defined := false
	for _, r := range rows {
		if r.SMAShort.Valid && r.SMALong.Valid {
			defined = true
			break
		}
	}
	if !defined {
		return tickerOutput{err: &DataGapError{
			Ticker:     ticker,
			Bars:       len(series.Bars),
			LongWindow: cfg.LongWindow,
		}}
	}

	return tickerOutput{
		signals: GenerateSignals(rows),
		monthly: MonthlyReturns(series),
		imputed: imputed,
	}
}

// detailedRows joins each ticker's signals with the weight it was assigned
// at that timestamp, ordered by ticker then timestamp.
func detailedRows(res *Result) []DetailedRow {
	weightAt := make(map[int64]map[string]float64, len(res.Allocations))
	for _, a := range res.Allocations {
		weightAt[a.Timestamp.UTC().Unix()] = a.Weights
	}

	var rows []DetailedRow
	for _, tk := range res.Tickers {
		for _, sig := range res.Signals[tk] {
			row := DetailedRow{
				Ticker:    tk,
				Timestamp: sig.Timestamp,
				Close:     sig.Close,
				SMAShort:  sig.SMAShort,
				SMALong:   sig.SMALong,
				Position:  sig.Position,
				Action:    sig.Action,
			}
			if w, ok := weightAt[sig.Timestamp.UTC().Unix()]; ok {
				row.Weight = w[tk]
			}
			rows = append(rows, row)
		}
	}
	return rows
}

func sortedKeys(m map[string]tickerOutput) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
