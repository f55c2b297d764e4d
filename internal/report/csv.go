package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"equitysim/internal/engine"
)

var _ Writer = CSVWriter{}

// CSVWriter renders the output tables as CSV files.
type CSVWriter struct{}

// Write writes signals_actions.csv, daily_weights.csv, detailed_signals.csv,
// monthly_returns.csv, and run_summary.json under dir.
func (CSVWriter) Write(dir string, res *engine.Result) error {
	if err := ensureDir(dir); err != nil {
		return err
	}
	if err := writeActionsCSV(dir, res); err != nil {
		return fmt.Errorf("writing signals_actions: %w", err)
	}
	if err := writeWeightsCSV(dir, res); err != nil {
		return fmt.Errorf("writing daily_weights: %w", err)
	}
	if err := writeDetailedCSV(dir, res); err != nil {
		return fmt.Errorf("writing detailed_signals: %w", err)
	}
	if err := writeMonthlyCSV(dir, res); err != nil {
		return fmt.Errorf("writing monthly_returns: %w", err)
	}
	return writeSummary(dir, res)
}

func writeCSV(path string, write func(w *csv.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err := write(w); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

// writeActionsCSV writes one row per timestamp with a column per ticker.
func writeActionsCSV(dir string, res *engine.Result) error {
	idx := indexSignals(res)
	return writeCSV(filepath.Join(dir, "signals_actions.csv"), func(w *csv.Writer) error {
		header := append([]string{"date"}, res.Tickers...)
		if err := w.Write(header); err != nil {
			return err
		}
		for _, a := range res.Allocations {
			row := make([]string, 0, len(header))
			row = append(row, a.Timestamp.Format(dateLayout))
			for _, tk := range res.Tickers {
				row = append(row, idx.actionCell(tk, a.Timestamp))
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
		return nil
	})
}

// writeWeightsCSV writes one row per timestamp: date, CASH, then a weight
// column per ticker.
func writeWeightsCSV(dir string, res *engine.Result) error {
	return writeCSV(filepath.Join(dir, "daily_weights.csv"), func(w *csv.Writer) error {
		header := append([]string{"date", "CASH"}, res.Tickers...)
		if err := w.Write(header); err != nil {
			return err
		}
		for _, a := range res.Allocations {
			row := make([]string, 0, len(header))
			row = append(row, a.Timestamp.Format(dateLayout), floatStr(a.Cash))
			for _, tk := range res.Tickers {
				row = append(row, floatStr(a.Weights[tk]))
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
		return nil
	})
}

// writeDetailedCSV writes the long-form join of signals and weights.
// Undefined values render as empty cells.
func writeDetailedCSV(dir string, res *engine.Result) error {
	return writeCSV(filepath.Join(dir, "detailed_signals.csv"), func(w *csv.Writer) error {
		header := []string{"date", "ticker", "close", "sma_short", "sma_long", "position", "action", "weight"}
		if err := w.Write(header); err != nil {
			return err
		}
		for _, r := range res.Detailed {
			row := []string{
				r.Timestamp.Format(dateLayout),
				r.Ticker,
				optStr(r.Close),
				optStr(r.SMAShort),
				optStr(r.SMALong),
				string(r.Position),
				string(r.Action),
				floatStr(r.Weight),
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
		return nil
	})
}

func writeMonthlyCSV(dir string, res *engine.Result) error {
	return writeCSV(filepath.Join(dir, "monthly_returns.csv"), func(w *csv.Writer) error {
		if err := w.Write([]string{"period", "ticker", "close", "return"}); err != nil {
			return err
		}
		for _, r := range res.Monthly {
			row := []string{r.Period, r.Ticker, optStr(r.Close), optStr(r.Return)}
			if err := w.Write(row); err != nil {
				return err
			}
		}
		return nil
	})
}
