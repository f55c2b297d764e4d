package report

import (
	"fmt"
	"path/filepath"

	"github.com/parquet-go/parquet-go"

	"equitysim/internal/engine"
)

var _ Writer = ParquetWriter{}

// ParquetWriter renders the output tables as Parquet files. The
// signals_actions and daily_weights tables are stored long-form since the
// ticker set varies between runs.
type ParquetWriter struct{}

// ---------------------------------------------------------------------------
// Parquet record types (on-disk schema)
// ---------------------------------------------------------------------------

// ActionRecord is the Parquet schema for the signals_actions table.
type ActionRecord struct {
	Date   string `parquet:"date"`
	Ticker string `parquet:"ticker"`
	Action string `parquet:"action"`
}

// WeightRecord is the Parquet schema for the daily_weights table. The cash
// buffer appears as the reserved ticker "CASH".
type WeightRecord struct {
	Date   string  `parquet:"date"`
	Ticker string  `parquet:"ticker"`
	Weight float64 `parquet:"weight"`
}

// DetailedRecord is the Parquet schema for the detailed_signals table.
// Undefined values are stored as nulls.
type DetailedRecord struct {
	Date     string   `parquet:"date"`
	Ticker   string   `parquet:"ticker"`
	Close    *float64 `parquet:"close,optional"`
	SMAShort *float64 `parquet:"sma_short,optional"`
	SMALong  *float64 `parquet:"sma_long,optional"`
	Position string   `parquet:"position"`
	Action   string   `parquet:"action"`
	Weight   float64  `parquet:"weight"`
}

// MonthlyRecord is the Parquet schema for the monthly_returns table.
type MonthlyRecord struct {
	Period string   `parquet:"period"`
	Ticker string   `parquet:"ticker"`
	Close  *float64 `parquet:"close,optional"`
	Return *float64 `parquet:"return,optional"`
}

// Write writes signals_actions.parquet, daily_weights.parquet,
// detailed_signals.parquet, monthly_returns.parquet, and run_summary.json
// under dir.
func (ParquetWriter) Write(dir string, res *engine.Result) error {
	if err := ensureDir(dir); err != nil {
		return err
	}

	idx := indexSignals(res)
	var actions []ActionRecord
	var weights []WeightRecord
	for _, a := range res.Allocations {
		date := a.Timestamp.Format(dateLayout)
		weights = append(weights, WeightRecord{Date: date, Ticker: "CASH", Weight: a.Cash})
		for _, tk := range res.Tickers {
			if cell := idx.actionCell(tk, a.Timestamp); cell != "" {
				actions = append(actions, ActionRecord{Date: date, Ticker: tk, Action: cell})
			}
			weights = append(weights, WeightRecord{Date: date, Ticker: tk, Weight: a.Weights[tk]})
		}
	}

	detailed := make([]DetailedRecord, 0, len(res.Detailed))
	for _, r := range res.Detailed {
		detailed = append(detailed, DetailedRecord{
			Date:     r.Timestamp.Format(dateLayout),
			Ticker:   r.Ticker,
			Close:    optPtr(r.Close),
			SMAShort: optPtr(r.SMAShort),
			SMALong:  optPtr(r.SMALong),
			Position: string(r.Position),
			Action:   string(r.Action),
			Weight:   r.Weight,
		})
	}

	monthly := make([]MonthlyRecord, 0, len(res.Monthly))
	for _, r := range res.Monthly {
		monthly = append(monthly, MonthlyRecord{
			Period: r.Period,
			Ticker: r.Ticker,
			Close:  optPtr(r.Close),
			Return: optPtr(r.Return),
		})
	}

	if err := writeParquetFile(filepath.Join(dir, "signals_actions.parquet"), actions); err != nil {
		return fmt.Errorf("writing signals_actions: %w", err)
	}
	if err := writeParquetFile(filepath.Join(dir, "daily_weights.parquet"), weights); err != nil {
		return fmt.Errorf("writing daily_weights: %w", err)
	}
	if err := writeParquetFile(filepath.Join(dir, "detailed_signals.parquet"), detailed); err != nil {
		return fmt.Errorf("writing detailed_signals: %w", err)
	}
	if err := writeParquetFile(filepath.Join(dir, "monthly_returns.parquet"), monthly); err != nil {
		return fmt.Errorf("writing monthly_returns: %w", err)
	}
	return writeSummary(dir, res)
}

func writeParquetFile[T any](path string, records []T) error {
	return parquet.WriteFile(path, records)
}
