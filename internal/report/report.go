// Package report renders simulation results into the output tables:
// signals_actions, daily_weights, detailed_signals, and monthly_returns,
// plus a run summary. CSV and Parquet backends share the same table shapes.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"equitysim/internal/domain"
	"equitysim/internal/engine"
)

const dateLayout = "2006-01-02"

// Writer persists every output table of one run under a directory.
type Writer interface {
	Write(dir string, res *engine.Result) error
}

// New returns the Writer for the given output format.
func New(format string) (Writer, error) {
	switch format {
	case "", "csv":
		return CSVWriter{}, nil
	case "parquet":
		return ParquetWriter{}, nil
	default:
		return nil, fmt.Errorf("unsupported output format %q", format)
	}
}

// ---------------------------------------------------------------------------
// Table shapes shared by the CSV and Parquet writers
// ---------------------------------------------------------------------------

// actionCell returns the action string for one (ticker, timestamp), empty
// when the ticker has no bar there.
type signalIndex map[string]map[int64]domain.Signal

func indexSignals(res *engine.Result) signalIndex {
	idx := make(signalIndex, len(res.Signals))
	for tk, sigs := range res.Signals {
		byTime := make(map[int64]domain.Signal, len(sigs))
		for _, s := range sigs {
			byTime[s.Timestamp.UTC().Unix()] = s
		}
		idx[tk] = byTime
	}
	return idx
}

func (idx signalIndex) actionCell(ticker string, ts time.Time) string {
	s, ok := idx[ticker][ts.UTC().Unix()]
	if !ok {
		return ""
	}
	return string(s.Action)
}

// ---------------------------------------------------------------------------
// Run summary
// ---------------------------------------------------------------------------

type issueEntry struct {
	Ticker string `json:"ticker"`
	Reason string `json:"reason"`
}

type runSummary struct {
	GeneratedAt string       `json:"generated_at"`
	Tickers     []string     `json:"tickers"`
	Excluded    []issueEntry `json:"excluded,omitempty"`
	Timestamps  int          `json:"timestamps"`
	ImputedBars int          `json:"imputed_bars"`
}

// writeSummary records which tickers made it into the run and why the rest
// did not.
func writeSummary(dir string, res *engine.Result) error {
	summary := runSummary{
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Tickers:     res.Tickers,
		Timestamps:  len(res.Allocations),
		ImputedBars: res.ImputedBars,
	}
	for _, issue := range res.Issues {
		summary.Excluded = append(summary.Excluded, issueEntry{
			Ticker: issue.Ticker,
			Reason: issue.Err.Error(),
		})
	}

	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "run_summary.json"), data, 0644)
}

func ensureDir(dir string) error {
	return os.MkdirAll(dir, 0755)
}

// floatStr renders a defined float for CSV output.
func floatStr(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

// optStr renders an optional float, empty when undefined.
func optStr(f domain.Float) string {
	if !f.Valid {
		return ""
	}
	return floatStr(f.Float64)
}

// optPtr converts an optional float into the pointer form Parquet optionals
// use.
func optPtr(f domain.Float) *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Float64
	return &v
}
