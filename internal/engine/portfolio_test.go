package engine

import (
	"math"
	"testing"
	"time"

	"equitysim/internal/domain"
)

func simDay(d int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, d)
}

func mkSignal(tk string, d int, pos domain.Position, act domain.Action) domain.Signal {
	return domain.Signal{
		Ticker:    tk,
		Timestamp: simDay(d),
		Position:  pos,
		Action:    act,
		Defined:   true,
	}
}

// scenarioSignals builds the three-ticker, 60-day scenario: A crosses up at
// day 25 and down at day 40, B never crosses, C crosses up at day 10 and
// stays long. A and B warm up at day 20, C at day 5. When withGap is set,
// A's signal at day 30 is undefined.
func scenarioSignals(withGap bool) map[string][]domain.Signal {
	signals := make(map[string][]domain.Signal)

	for d := 20; d < 60; d++ {
		switch {
		case d < 25:
			signals["A"] = append(signals["A"], mkSignal("A", d, domain.PositionFlat, domain.ActionHold))
		case d == 25:
			signals["A"] = append(signals["A"], mkSignal("A", d, domain.PositionLong, domain.ActionBuy))
		case d < 40:
			sig := mkSignal("A", d, domain.PositionLong, domain.ActionHold)
			if withGap && d == 30 {
				sig.Defined = false
			}
			signals["A"] = append(signals["A"], sig)
		case d == 40:
			signals["A"] = append(signals["A"], mkSignal("A", d, domain.PositionFlat, domain.ActionSell))
		default:
			signals["A"] = append(signals["A"], mkSignal("A", d, domain.PositionFlat, domain.ActionHold))
		}
	}

	for d := 20; d < 60; d++ {
		signals["B"] = append(signals["B"], mkSignal("B", d, domain.PositionFlat, domain.ActionHold))
	}

	for d := 5; d < 60; d++ {
		switch {
		case d < 10:
			signals["C"] = append(signals["C"], mkSignal("C", d, domain.PositionFlat, domain.ActionHold))
		case d == 10:
			signals["C"] = append(signals["C"], mkSignal("C", d, domain.PositionLong, domain.ActionBuy))
		default:
			signals["C"] = append(signals["C"], mkSignal("C", d, domain.PositionLong, domain.ActionHold))
		}
	}

	return signals
}

func allocAt(t *testing.T, allocs []domain.Allocation, d int) domain.Allocation {
	t.Helper()
	for _, a := range allocs {
		if a.Timestamp.Equal(simDay(d)) {
			return a
		}
	}
	t.Fatalf("no allocation at day %d", d)
	return domain.Allocation{}
}

func TestSimulateScenarioWeights(t *testing.T) {
	allocs := Simulate(scenarioSignals(false), 0.2, RebalanceDaily)

	// One row per union-calendar timestamp: days 5..59.
	if len(allocs) != 55 {
		t.Fatalf("got %d allocations, want 55", len(allocs))
	}

	a25 := allocAt(t, allocs, 25)
	if math.Abs(a25.Weights["A"]-0.4) > 1e-9 || math.Abs(a25.Weights["C"]-0.4) > 1e-9 {
		t.Errorf("day 25 weights A=%v C=%v, want 0.4 each", a25.Weights["A"], a25.Weights["C"])
	}
	if a25.Weights["B"] != 0 {
		t.Errorf("day 25 weight B=%v, want 0", a25.Weights["B"])
	}
	if math.Abs(a25.Cash-0.2) > 1e-9 {
		t.Errorf("day 25 cash=%v, want 0.2", a25.Cash)
	}

	a41 := allocAt(t, allocs, 41)
	if math.Abs(a41.Weights["C"]-0.8) > 1e-9 {
		t.Errorf("day 41 weight C=%v, want 0.8", a41.Weights["C"])
	}
	if a41.Weights["A"] != 0 || a41.Weights["B"] != 0 {
		t.Errorf("day 41 weights A=%v B=%v, want 0", a41.Weights["A"], a41.Weights["B"])
	}
	if math.Abs(a41.Cash-0.2) > 1e-9 {
		t.Errorf("day 41 cash=%v, want 0.2", a41.Cash)
	}

	// Before anything is long, everything is cash.
	a5 := allocAt(t, allocs, 5)
	if a5.Cash != 1 {
		t.Errorf("day 5 cash=%v, want 1 (no long positions)", a5.Cash)
	}
}

func TestSimulateWeightsSumToOne(t *testing.T) {
	for _, mode := range []RebalanceMode{RebalanceDaily, RebalanceOnSignal} {
		for _, a := range Simulate(scenarioSignals(true), 0.2, mode) {
			sum := a.Cash
			for _, w := range a.Weights {
				if w < 0 || w > 1 {
					t.Errorf("%s: weight %v outside [0,1] at %v", mode, w, a.Timestamp)
				}
				sum += w
			}
			if math.Abs(sum-1) > 1e-9 {
				t.Errorf("%s: weights sum to %v at %v, want 1", mode, sum, a.Timestamp)
			}
		}
	}
}

func TestSimulateOnSignalFewerDistinctRows(t *testing.T) {
	signals := scenarioSignals(true) // gap at day 30 forces a daily-only change

	daily := Simulate(signals, 0.2, RebalanceDaily)
	onSignal := Simulate(signals, 0.2, RebalanceOnSignal)

	if len(daily) != len(onSignal) {
		t.Fatalf("row counts differ: daily=%d on_signal=%d", len(daily), len(onSignal))
	}

	if d, s := countChanges(daily), countChanges(onSignal); s >= d {
		t.Errorf("distinct allocations: on_signal=%d, daily=%d, want strictly fewer", s, d)
	}
}

// countChanges counts allocations that differ from their predecessor (the
// first row always counts).
func countChanges(allocs []domain.Allocation) int {
	n := 0
	for i, a := range allocs {
		if i == 0 || !sameAllocation(allocs[i-1], a) {
			n++
		}
	}
	return n
}

func sameAllocation(a, b domain.Allocation) bool {
	if a.Cash != b.Cash || len(a.Weights) != len(b.Weights) {
		return false
	}
	for tk, w := range a.Weights {
		if b.Weights[tk] != w {
			return false
		}
	}
	return true
}

func TestSimulateOnSignalCarriesForward(t *testing.T) {
	signals := scenarioSignals(true)
	allocs := Simulate(signals, 0.2, RebalanceOnSignal)

	// Day 30 has no buy/sell, so the day-29 allocation carries forward even
	// though A's signal is undefined there.
	a29 := allocAt(t, allocs, 29)
	a30 := allocAt(t, allocs, 30)
	if !sameAllocation(a29, a30) {
		t.Errorf("day 30 allocation %+v differs from day 29 %+v, want carry-forward", a30, a29)
	}
}

func TestSimulateUnionCalendarKeepsMissingBarTimestamps(t *testing.T) {
	// X trades on days 0 and 2 only, Y on days 0, 1, 2. The day-1 timestamp
	// survives and X is simply flat there.
	signals := map[string][]domain.Signal{
		"X": {
			mkSignal("X", 0, domain.PositionLong, domain.ActionBuy),
			mkSignal("X", 2, domain.PositionLong, domain.ActionHold),
		},
		"Y": {
			mkSignal("Y", 0, domain.PositionFlat, domain.ActionHold),
			mkSignal("Y", 1, domain.PositionFlat, domain.ActionHold),
			mkSignal("Y", 2, domain.PositionFlat, domain.ActionHold),
		},
	}

	allocs := Simulate(signals, 0.2, RebalanceDaily)
	if len(allocs) != 3 {
		t.Fatalf("got %d allocations, want 3 (union calendar)", len(allocs))
	}

	a1 := allocAt(t, allocs, 1)
	if a1.Weights["X"] != 0 {
		t.Errorf("day 1 weight X=%v, want 0 (no bar)", a1.Weights["X"])
	}
	if a1.Cash != 1 {
		t.Errorf("day 1 cash=%v, want 1", a1.Cash)
	}

	a0 := allocAt(t, allocs, 0)
	if math.Abs(a0.Weights["X"]-0.8) > 1e-9 {
		t.Errorf("day 0 weight X=%v, want 0.8", a0.Weights["X"])
	}
}

func TestSimulateZeroCashBuffer(t *testing.T) {
	signals := map[string][]domain.Signal{
		"X": {mkSignal("X", 0, domain.PositionLong, domain.ActionBuy)},
		"Y": {mkSignal("Y", 0, domain.PositionLong, domain.ActionBuy)},
	}
	allocs := Simulate(signals, 0, RebalanceDaily)
	a := allocs[0]
	if a.Weights["X"] != 0.5 || a.Weights["Y"] != 0.5 || a.Cash != 0 {
		t.Errorf("allocation = %+v, want 0.5/0.5 with zero cash", a)
	}
}
