// Package domain defines the core value types shared across the engine:
// OHLCV bars, derived analytic rows, crossover signals, and portfolio
// allocations.
package domain

import "time"

// Interval tags the sampling period of a bar.
type Interval string

// IntervalDaily is the only interval the simulation currently consumes.
const IntervalDaily Interval = "1d"

// Bar is one OHLCV observation for a ticker. Price fields are optional
// because the upstream fetcher may deliver incomplete bars; the imputer
// fills what it can and leaves the rest undefined.
type Bar struct {
	Ticker    string
	Timestamp time.Time
	Interval  Interval
	Open      Float
	High      Float
	Low       Float
	Close     Float
	Volume    Int
}

// Series is the ordered bar sequence for one ticker within a run's date
// range. Derived per run, never persisted.
type Series struct {
	Ticker string
	Bars   []Bar
}

// AnalyticRow augments one (ticker, timestamp) with derived fields. Any of
// the optional fields may be undefined when history is insufficient or the
// underlying close never resolved.
type AnalyticRow struct {
	Ticker    string
	Timestamp time.Time
	Close     Float
	PrevClose Float
	Return    Float
	SMAShort  Float
	SMALong   Float
}

// Position is the discrete state of the crossover state machine.
type Position string

const (
	PositionFlat Position = "flat"
	PositionLong Position = "long"
)

// Action is the trade implied by a position change between consecutive bars.
type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
	ActionHold Action = "hold"
)

// Signal is the per-bar output of the crossover state machine for one
// ticker. Defined reports whether both SMAs were available at this bar;
// while false the position simply carries over and the action is hold.
type Signal struct {
	Ticker    string
	Timestamp time.Time
	Close     Float
	SMAShort  Float
	SMALong   Float
	Position  Position
	Action    Action
	Defined   bool
}

// Allocation maps tickers to portfolio weights at one timestamp. Weights
// plus Cash sum to 1 whenever at least one ticker has a defined signal.
type Allocation struct {
	Timestamp time.Time
	Weights   map[string]float64
	Cash      float64
}

// PeriodReturn is one calendar-period return for a ticker. Close is the
// chronologically last close within the period; Return is undefined for the
// first period or when either period close is undefined.
type PeriodReturn struct {
	Ticker string
	Period string // YYYY-MM
	Close  Float
	Return Float
}
