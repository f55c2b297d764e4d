package engine

import (
	"sort"
	"time"

	"equitysim/internal/domain"
)

// RebalanceMode governs how often portfolio weights are recomputed.
type RebalanceMode string

const (
	// RebalanceDaily recomputes weights at every calendar timestamp.
	RebalanceDaily RebalanceMode = "daily"
	// RebalanceOnSignal recomputes weights only at timestamps where at least
	// one ticker buys or sells; other timestamps carry the previous
	// allocation forward.
	RebalanceOnSignal RebalanceMode = "on_signal"
)

// Simulate turns per-ticker signals into one allocation per calendar
// timestamp. The calendar is the union of all tickers' timestamps; a ticker
// without a defined signal at a timestamp is flat there (weight 0), the
// timestamp itself is never dropped. Long tickers split (1 - cashBuffer)
// equally; everything else is cash, and cash is 1 when nothing is long.
// Under on_signal rebalancing the carried-forward allocations are repeated
// in the output so the table stays one row per timestamp.
func Simulate(signals map[string][]domain.Signal, cashBuffer float64, mode RebalanceMode) []domain.Allocation {
	tickers := make([]string, 0, len(signals))
	for tk := range signals {
		tickers = append(tickers, tk)
	}
	sort.Strings(tickers)

	// Index signals by timestamp and build the union calendar.
	byTime := make(map[string]map[int64]domain.Signal, len(signals))
	calendarSet := make(map[int64]time.Time)
	for tk, sigs := range signals {
		idx := make(map[int64]domain.Signal, len(sigs))
		for _, sig := range sigs {
			key := sig.Timestamp.UTC().Unix()
			idx[key] = sig
			calendarSet[key] = sig.Timestamp
		}
		byTime[tk] = idx
	}

	keys := make([]int64, 0, len(calendarSet))
	for k := range calendarSet {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	allocations := make([]domain.Allocation, 0, len(keys))
	var prev *domain.Allocation

	for _, key := range keys {
		ts := calendarSet[key]

		var long []string
		changed := false
		for _, tk := range tickers {
			sig, ok := byTime[tk][key]
			if !ok || !sig.Defined {
				continue
			}
			if sig.Position == domain.PositionLong {
				long = append(long, tk)
			}
			if sig.Action == domain.ActionBuy || sig.Action == domain.ActionSell {
				changed = true
			}
		}

		if mode == RebalanceOnSignal && prev != nil && !changed {
			alloc := carryForward(*prev, ts)
			allocations = append(allocations, alloc)
			prev = &allocations[len(allocations)-1]
			continue
		}

		alloc := domain.Allocation{Timestamp: ts, Weights: make(map[string]float64, len(tickers))}
		for _, tk := range tickers {
			alloc.Weights[tk] = 0
		}
		if len(long) == 0 {
			alloc.Cash = 1
		} else {
			w := (1 - cashBuffer) / float64(len(long))
			for _, tk := range long {
				alloc.Weights[tk] = w
			}
			alloc.Cash = 1 - w*float64(len(long))
		}

		allocations = append(allocations, alloc)
		prev = &allocations[len(allocations)-1]
	}

	return allocations
}

// carryForward clones an allocation under a new timestamp.
func carryForward(a domain.Allocation, ts time.Time) domain.Allocation {
	weights := make(map[string]float64, len(a.Weights))
	for tk, w := range a.Weights {
		weights[tk] = w
	}
	return domain.Allocation{Timestamp: ts, Weights: weights, Cash: a.Cash}
}
