// Package store defines storage interfaces for persisting and retrieving
// price bars and the portfolio ticker registry.
package store

import (
	"context"
	"errors"
	"time"

	"equitysim/internal/domain"
)

// ErrUnknownTicker is returned when a portfolio operation references a
// ticker with no price history in the store.
var ErrUnknownTicker = errors.New("ticker has no price history")

// BarStore persists and retrieves OHLCV bar data.
type BarStore interface {
	// UpsertBars inserts bars, updating the price fields of any existing row
	// with the same (ticker, timestamp, interval) key. Duplicates within a
	// batch collapse onto one row.
	UpsertBars(ctx context.Context, bars []domain.Bar) error

	// ReadSeries returns the ordered bar sequence for a ticker within
	// [start, end]. A zero end means no upper bound.
	ReadSeries(ctx context.Context, ticker string, interval domain.Interval, start, end time.Time) (domain.Series, error)

	// LastTimestamp returns the most recent bar timestamp stored for the
	// ticker and interval. The boolean is false when no bars exist.
	LastTimestamp(ctx context.Context, ticker string, interval domain.Interval) (time.Time, bool, error)

	// ListTickers returns all distinct tickers with stored bars.
	ListTickers(ctx context.Context) ([]string, error)
}

// PortfolioStore manages the set of tickers the user tracks.
type PortfolioStore interface {
	// AddTicker registers a ticker. It fails with ErrUnknownTicker when the
	// ticker has no bars in the price store. Adding twice is a no-op.
	AddTicker(ctx context.Context, ticker string) error

	// RemoveTicker unregisters a ticker. Removing an absent ticker is a no-op.
	RemoveTicker(ctx context.Context, ticker string) error

	// Tickers returns the registered tickers in lexical order.
	Tickers(ctx context.Context) ([]string, error)
}
