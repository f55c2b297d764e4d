package engine

import (
	"math"

	"equitysim/internal/domain"
)

// Impute fills derivable null price fields of an ordered series in place and
// reports how many bars changed. Rules, in order:
//
//  1. open[t]  <- close[t-1] when open is null
//  2. close[t] <- open[t+1]  when close is null
//  3. high[t]  <- max(open[t], close[t]) when high is null and both defined
//  4. low[t]   <- min(open[t], close[t]) when low is null and both defined
//
// Rules 1 and 2 read the pre-pass open/close values, so a run of two or more
// fully-null bars stays unresolved instead of cascading fabricated prices.
// Rules 3 and 4 see the values filled by 1 and 2. Unresolvable fields stay
// null and volume is never invented. Re-running on the output is a no-op.
func Impute(s *domain.Series) int {
	n := len(s.Bars)
	origOpen := make([]domain.Float, n)
	origClose := make([]domain.Float, n)
	for i, b := range s.Bars {
		origOpen[i] = b.Open
		origClose[i] = b.Close
	}

	changed := 0
	for i := range s.Bars {
		b := &s.Bars[i]
		dirty := false

		if !b.Open.Valid && i > 0 && origClose[i-1].Valid {
			b.Open = origClose[i-1]
			dirty = true
		}
		if !b.Close.Valid && i+1 < n && origOpen[i+1].Valid {
			b.Close = origOpen[i+1]
			dirty = true
		}
		if !b.High.Valid && b.Open.Valid && b.Close.Valid {
			b.High = domain.F(math.Max(b.Open.Float64, b.Close.Float64))
			dirty = true
		}
		if !b.Low.Valid && b.Open.Valid && b.Close.Valid {
			b.Low = domain.F(math.Min(b.Open.Float64, b.Close.Float64))
			dirty = true
		}

		if dirty {
			changed++
		}
	}
	return changed
}
