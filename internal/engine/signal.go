package engine

import "equitysim/internal/domain"

// GenerateSignals runs the crossover state machine over one ticker's
// analytic rows, in timestamp order. The machine starts flat. A bar with an
// undefined SMA pair never causes a transition: the position carries over
// and the action is hold. Equality of the two SMAs also holds the current
// state. Actions derive from the change in position, so a sustained
// short>long regime emits one buy followed by holds.
func GenerateSignals(rows []domain.AnalyticRow) []domain.Signal {
	signals := make([]domain.Signal, len(rows))
	pos := domain.PositionFlat

	for i, r := range rows {
		sig := domain.Signal{
			Ticker:    r.Ticker,
			Timestamp: r.Timestamp,
			Close:     r.Close,
			SMAShort:  r.SMAShort,
			SMALong:   r.SMALong,
			Action:    domain.ActionHold,
		}

		if r.SMAShort.Valid && r.SMALong.Valid {
			sig.Defined = true
			switch {
			case pos == domain.PositionFlat && r.SMAShort.Float64 > r.SMALong.Float64:
				pos = domain.PositionLong
				sig.Action = domain.ActionBuy
			case pos == domain.PositionLong && r.SMAShort.Float64 < r.SMALong.Float64:
				pos = domain.PositionFlat
				sig.Action = domain.ActionSell
			}
		}

		sig.Position = pos
		signals[i] = sig
	}
	return signals
}
