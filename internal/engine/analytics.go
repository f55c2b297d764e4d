package engine

import "equitysim/internal/domain"

// Analyze derives per-bar analytics for one imputed series: previous close,
// daily return, and the short/long simple moving averages. Undefined inputs
// yield undefined outputs; nothing is padded or zeroed.
func Analyze(s domain.Series, shortWindow, longWindow int) []domain.AnalyticRow {
	rows := make([]domain.AnalyticRow, len(s.Bars))
	for i, b := range s.Bars {
		row := domain.AnalyticRow{
			Ticker:    s.Ticker,
			Timestamp: b.Timestamp,
			Close:     b.Close,
		}
		if i > 0 {
			row.PrevClose = s.Bars[i-1].Close
		}
		if b.Close.Valid && row.PrevClose.Valid && row.PrevClose.Float64 != 0 {
			row.Return = domain.F(b.Close.Float64/row.PrevClose.Float64 - 1)
		}
		row.SMAShort = sma(s.Bars, i, shortWindow)
		row.SMALong = sma(s.Bars, i, longWindow)
		rows[i] = row
	}
	return rows
}

// sma is the arithmetic mean of the n closes ending at index i. Undefined
// when fewer than n bars exist up to i, or when any close in the window is
// itself undefined; there is no partial-window average.
func sma(bars []domain.Bar, i, n int) domain.Float {
	if n <= 0 || i+1 < n {
		return domain.Float{}
	}
	var sum float64
	for j := i - n + 1; j <= i; j++ {
		c := bars[j].Close
		if !c.Valid {
			return domain.Float{}
		}
		sum += c.Float64
	}
	return domain.F(sum / float64(n))
}

// MonthlyReturns computes calendar-month returns for one series. The close
// of each month is the chronologically last bar in that month; the return is
// the ratio of consecutive month closes minus one, undefined for the first
// month or when either month close is undefined.
func MonthlyReturns(s domain.Series) []domain.PeriodReturn {
	var out []domain.PeriodReturn
	for _, b := range s.Bars {
		period := b.Timestamp.UTC().Format("2006-01")
		if len(out) > 0 && out[len(out)-1].Period == period {
			// Later bar in the same month wins.
			out[len(out)-1].Close = b.Close
			continue
		}
		out = append(out, domain.PeriodReturn{
			Ticker: s.Ticker,
			Period: period,
			Close:  b.Close,
		})
	}

	for i := 1; i < len(out); i++ {
		prev, cur := out[i-1].Close, out[i].Close
		if prev.Valid && cur.Valid && prev.Float64 != 0 {
			out[i].Return = domain.F(cur.Float64/prev.Float64 - 1)
		}
	}
	return out
}
