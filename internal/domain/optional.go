package domain

// Float is an optional float64. The zero value is undefined. Missing prices
// and not-yet-warm indicator values stay undefined as they flow through the
// pipeline instead of collapsing into NaN or a silent zero.
type Float struct {
	Float64 float64
	Valid   bool
}

// F wraps a concrete value into a defined Float.
func F(v float64) Float {
	return Float{Float64: v, Valid: true}
}

// Int is an optional int64, used for nullable volume.
type Int struct {
	Int64 int64
	Valid bool
}

// I wraps a concrete value into a defined Int.
func I(v int64) Int {
	return Int{Int64: v, Valid: true}
}
