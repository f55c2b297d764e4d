package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"equitysim/internal/domain"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface checks.
var _ BarStore = (*SQLiteStore)(nil)
var _ PortfolioStore = (*SQLiteStore)(nil)

// dtLayout is how bar timestamps are stored. Lexical order matches
// chronological order, so ORDER BY dt is sufficient.
const dtLayout = "2006-01-02 15:04:05"

const schema = `
CREATE TABLE IF NOT EXISTS stock_prices (
	ticker   TEXT NOT NULL,
	dt       TEXT NOT NULL,
	interval TEXT NOT NULL,
	open     REAL,
	high     REAL,
	low      REAL,
	close    REAL,
	volume   INTEGER,
	PRIMARY KEY (ticker, dt, interval)
);

CREATE TABLE IF NOT EXISTS portfolio (
	ticker TEXT PRIMARY KEY
);
`

const upsertBarSQL = `
INSERT INTO stock_prices (ticker, dt, interval, open, high, low, close, volume)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (ticker, dt, interval) DO UPDATE SET
	open   = excluded.open,
	high   = excluded.high,
	low    = excluded.low,
	close  = excluded.close,
	volume = excluded.volume;
`

// SQLiteStore implements BarStore and PortfolioStore backed by a SQLite
// database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, ensures the
// schema exists, and returns a ready-to-use SQLiteStore.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ---------------------------------------------------------------------------
// BarStore implementation
// ---------------------------------------------------------------------------

// UpsertBars inserts bars in one transaction, updating price fields on
// conflict with an existing (ticker, dt, interval) row.
func (s *SQLiteStore) UpsertBars(ctx context.Context, bars []domain.Bar) error {
	if len(bars) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertBarSQL)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, b := range bars {
		_, err := stmt.ExecContext(ctx,
			b.Ticker,
			b.Timestamp.UTC().Format(dtLayout),
			string(b.Interval),
			nullFloat(b.Open),
			nullFloat(b.High),
			nullFloat(b.Low),
			nullFloat(b.Close),
			nullInt(b.Volume),
		)
		if err != nil {
			return fmt.Errorf("upserting bar %s@%s: %w", b.Ticker, b.Timestamp.Format("2006-01-02"), err)
		}
	}

	return tx.Commit()
}

// ReadSeries returns the ordered bar sequence for a ticker within
// [start, end]. A zero end means no upper bound.
func (s *SQLiteStore) ReadSeries(ctx context.Context, ticker string, interval domain.Interval, start, end time.Time) (domain.Series, error) {
	query := `
		SELECT dt, open, high, low, close, volume
		FROM stock_prices
		WHERE ticker = ? AND interval = ? AND dt >= ?`
	args := []any{ticker, string(interval), start.UTC().Format(dtLayout)}
	if !end.IsZero() {
		query += ` AND dt <= ?`
		args = append(args, end.UTC().Format(dtLayout))
	}
	query += ` ORDER BY dt ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return domain.Series{}, err
	}
	defer rows.Close()

	series := domain.Series{Ticker: ticker}
	for rows.Next() {
		var (
			dt      string
			o, h    sql.NullFloat64
			l, c    sql.NullFloat64
			volume  sql.NullInt64
		)
		if err := rows.Scan(&dt, &o, &h, &l, &c, &volume); err != nil {
			return domain.Series{}, err
		}
		ts, err := time.ParseInLocation(dtLayout, dt, time.UTC)
		if err != nil {
			return domain.Series{}, fmt.Errorf("parsing dt %q: %w", dt, err)
		}
		series.Bars = append(series.Bars, domain.Bar{
			Ticker:    ticker,
			Timestamp: ts,
			Interval:  interval,
			Open:      toFloat(o),
			High:      toFloat(h),
			Low:       toFloat(l),
			Close:     toFloat(c),
			Volume:    toInt(volume),
		})
	}
	return series, rows.Err()
}

// LastTimestamp returns the most recent bar timestamp stored for the ticker
// and interval, or false when no bars exist.
func (s *SQLiteStore) LastTimestamp(ctx context.Context, ticker string, interval domain.Interval) (time.Time, bool, error) {
	var dt sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(dt) FROM stock_prices WHERE ticker = ? AND interval = ?`,
		ticker, string(interval),
	).Scan(&dt)
	if err != nil {
		return time.Time{}, false, err
	}
	if !dt.Valid {
		return time.Time{}, false, nil
	}
	ts, err := time.ParseInLocation(dtLayout, dt.String, time.UTC)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parsing dt %q: %w", dt.String, err)
	}
	return ts, true, nil
}

// ListTickers returns all distinct tickers with stored bars, in lexical order.
func (s *SQLiteStore) ListTickers(ctx context.Context) ([]string, error) {
	return s.queryTickers(ctx, `SELECT DISTINCT ticker FROM stock_prices ORDER BY ticker`)
}

// ---------------------------------------------------------------------------
// PortfolioStore implementation
// ---------------------------------------------------------------------------

// AddTicker registers a ticker after verifying it has price history.
func (s *SQLiteStore) AddTicker(ctx context.Context, ticker string) error {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM stock_prices WHERE ticker = ?`, ticker,
	).Scan(&n)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", ticker, ErrUnknownTicker)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO portfolio (ticker) VALUES (?)`, ticker)
	return err
}

// RemoveTicker unregisters a ticker; absent tickers are a no-op.
func (s *SQLiteStore) RemoveTicker(ctx context.Context, ticker string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM portfolio WHERE ticker = ?`, ticker)
	return err
}

// Tickers returns the registered tickers in lexical order.
func (s *SQLiteStore) Tickers(ctx context.Context) ([]string, error) {
	return s.queryTickers(ctx, `SELECT ticker FROM portfolio ORDER BY ticker`)
}

func (s *SQLiteStore) queryTickers(ctx context.Context, query string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tickers []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		tickers = append(tickers, t)
	}
	return tickers, rows.Err()
}

// ---------------------------------------------------------------------------
// Null conversion helpers
// ---------------------------------------------------------------------------

func nullFloat(f domain.Float) sql.NullFloat64 {
	return sql.NullFloat64{Float64: f.Float64, Valid: f.Valid}
}

func nullInt(i domain.Int) sql.NullInt64 {
	return sql.NullInt64{Int64: i.Int64, Valid: i.Valid}
}

func toFloat(f sql.NullFloat64) domain.Float {
	return domain.Float{Float64: f.Float64, Valid: f.Valid}
}

func toInt(i sql.NullInt64) domain.Int {
	return domain.Int{Int64: i.Int64, Valid: i.Valid}
}
