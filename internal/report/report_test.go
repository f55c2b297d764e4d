package report

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/parquet-go/parquet-go"

	"equitysim/internal/domain"
	"equitysim/internal/engine"
)

func day(d int) time.Time {
	return time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, d)
}

// testResult is a two-ticker, three-day run: AAPL buys on day 1, MSFT stays
// flat and has no bar on day 2.
func testResult() *engine.Result {
	sig := func(tk string, d int, pos domain.Position, act domain.Action) domain.Signal {
		return domain.Signal{
			Ticker:    tk,
			Timestamp: day(d),
			Close:     domain.F(100 + float64(d)),
			SMAShort:  domain.F(10),
			SMALong:   domain.F(9),
			Position:  pos,
			Action:    act,
			Defined:   true,
		}
	}

	res := &engine.Result{
		Tickers: []string{"AAPL", "MSFT"},
		Signals: map[string][]domain.Signal{
			"AAPL": {
				sig("AAPL", 0, domain.PositionFlat, domain.ActionHold),
				sig("AAPL", 1, domain.PositionLong, domain.ActionBuy),
				sig("AAPL", 2, domain.PositionLong, domain.ActionHold),
			},
			"MSFT": {
				sig("MSFT", 0, domain.PositionFlat, domain.ActionHold),
				sig("MSFT", 1, domain.PositionFlat, domain.ActionHold),
			},
		},
		Allocations: []domain.Allocation{
			{Timestamp: day(0), Weights: map[string]float64{"AAPL": 0, "MSFT": 0}, Cash: 1},
			{Timestamp: day(1), Weights: map[string]float64{"AAPL": 0.8, "MSFT": 0}, Cash: 0.2},
			{Timestamp: day(2), Weights: map[string]float64{"AAPL": 0.8, "MSFT": 0}, Cash: 0.2},
		},
		Monthly: []domain.PeriodReturn{
			{Ticker: "AAPL", Period: "2024-03", Close: domain.F(102)},
		},
		Issues: []engine.TickerIssue{
			{Ticker: "TINY", Err: &engine.DataGapError{Ticker: "TINY", Bars: 3, LongWindow: 50}},
		},
		ImputedBars: 2,
	}

	for _, tk := range res.Tickers {
		for _, s := range res.Signals[tk] {
			res.Detailed = append(res.Detailed, engine.DetailedRow{
				Ticker:    tk,
				Timestamp: s.Timestamp,
				Close:     s.Close,
				SMAShort:  s.SMAShort,
				SMALong:   s.SMALong,
				Position:  s.Position,
				Action:    s.Action,
			})
		}
	}
	return res
}

func readCSVFile(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("opening %s: %v", path, err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	return rows
}

func TestCSVWriterActionsTable(t *testing.T) {
	dir := t.TempDir()
	if err := (CSVWriter{}).Write(dir, testResult()); err != nil {
		t.Fatalf("Write: %v", err)
	}

	rows := readCSVFile(t, filepath.Join(dir, "signals_actions.csv"))
	want := [][]string{
		{"date", "AAPL", "MSFT"},
		{"2024-03-01", "hold", "hold"},
		{"2024-03-02", "buy", "hold"},
		{"2024-03-03", "hold", ""}, // MSFT has no bar on day 2
	}
	if !reflect.DeepEqual(rows, want) {
		t.Errorf("signals_actions.csv = %v, want %v", rows, want)
	}
}

func TestCSVWriterWeightsTable(t *testing.T) {
	dir := t.TempDir()
	if err := (CSVWriter{}).Write(dir, testResult()); err != nil {
		t.Fatalf("Write: %v", err)
	}

	rows := readCSVFile(t, filepath.Join(dir, "daily_weights.csv"))
	want := [][]string{
		{"date", "CASH", "AAPL", "MSFT"},
		{"2024-03-01", "1", "0", "0"},
		{"2024-03-02", "0.2", "0.8", "0"},
		{"2024-03-03", "0.2", "0.8", "0"},
	}
	if !reflect.DeepEqual(rows, want) {
		t.Errorf("daily_weights.csv = %v, want %v", rows, want)
	}
}

func TestCSVWriterUndefinedCellsAreEmpty(t *testing.T) {
	res := testResult()
	res.Detailed[0].SMAShort = domain.Float{}
	res.Monthly[0].Return = domain.Float{} // first period has no predecessor

	dir := t.TempDir()
	if err := (CSVWriter{}).Write(dir, res); err != nil {
		t.Fatalf("Write: %v", err)
	}

	detailed := readCSVFile(t, filepath.Join(dir, "detailed_signals.csv"))
	if got := detailed[1][3]; got != "" {
		t.Errorf("undefined sma_short rendered as %q, want empty", got)
	}
	monthly := readCSVFile(t, filepath.Join(dir, "monthly_returns.csv"))
	if got := monthly[1][3]; got != "" {
		t.Errorf("undefined return rendered as %q, want empty", got)
	}
}

func TestRunSummary(t *testing.T) {
	dir := t.TempDir()
	if err := (CSVWriter{}).Write(dir, testResult()); err != nil {
		t.Fatalf("Write: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "run_summary.json"))
	if err != nil {
		t.Fatalf("reading summary: %v", err)
	}
	var summary runSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		t.Fatalf("unmarshalling summary: %v", err)
	}

	if !reflect.DeepEqual(summary.Tickers, []string{"AAPL", "MSFT"}) {
		t.Errorf("summary tickers = %v", summary.Tickers)
	}
	if len(summary.Excluded) != 1 || summary.Excluded[0].Ticker != "TINY" {
		t.Errorf("summary excluded = %v, want TINY", summary.Excluded)
	}
	if summary.Timestamps != 3 || summary.ImputedBars != 2 {
		t.Errorf("summary counts = %d/%d, want 3/2", summary.Timestamps, summary.ImputedBars)
	}
}

func TestParquetWriterRoundTrip(t *testing.T) {
	res := testResult()
	res.Detailed[0].SMAShort = domain.Float{}

	dir := t.TempDir()
	if err := (ParquetWriter{}).Write(dir, res); err != nil {
		t.Fatalf("Write: %v", err)
	}

	detailed, err := parquet.ReadFile[DetailedRecord](filepath.Join(dir, "detailed_signals.parquet"))
	if err != nil {
		t.Fatalf("reading detailed_signals.parquet: %v", err)
	}
	if len(detailed) != len(res.Detailed) {
		t.Fatalf("got %d detailed records, want %d", len(detailed), len(res.Detailed))
	}
	if detailed[0].SMAShort != nil {
		t.Errorf("undefined sma_short = %v, want null", *detailed[0].SMAShort)
	}
	if detailed[1].SMAShort == nil || *detailed[1].SMAShort != 10 {
		t.Errorf("defined sma_short = %v, want 10", detailed[1].SMAShort)
	}

	weights, err := parquet.ReadFile[WeightRecord](filepath.Join(dir, "daily_weights.parquet"))
	if err != nil {
		t.Fatalf("reading daily_weights.parquet: %v", err)
	}
	// One CASH row plus one per ticker per timestamp.
	if want := 3 * (1 + 2); len(weights) != want {
		t.Fatalf("got %d weight records, want %d", len(weights), want)
	}
	if weights[0].Ticker != "CASH" || weights[0].Weight != 1 {
		t.Errorf("first weight record = %+v, want CASH 1", weights[0])
	}

	actions, err := parquet.ReadFile[ActionRecord](filepath.Join(dir, "signals_actions.parquet"))
	if err != nil {
		t.Fatalf("reading signals_actions.parquet: %v", err)
	}
	// MSFT's missing day-2 bar produces no record.
	if len(actions) != 5 {
		t.Errorf("got %d action records, want 5", len(actions))
	}
}
