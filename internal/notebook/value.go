package notebook

import (
	"math"
	"strconv"
)

// Value is a notebook measurement that may be unset. The zero Value is unset.
type Value struct {
	Float64 float64
	Valid   bool
}

// Unset is the absent measurement.
var Unset = Value{}

// ValueOf wraps a raw table cell; NaN becomes Unset.
func ValueOf(v float64) Value {
	if math.IsNaN(v) {
		return Unset
	}
	return Value{Float64: v, Valid: true}
}

// Scale multiplies a set value by factor and leaves an unset value unset.
func (v Value) Scale(factor float64) Value {
	if !v.Valid {
		return Unset
	}
	return Value{Float64: v.Float64 * factor, Valid: true}
}

// Or returns the value, or fallback when unset.
func (v Value) Or(fallback float64) float64 {
	if !v.Valid {
		return fallback
	}
	return v.Float64
}

// Is reports whether the value is set and equal to x.
func (v Value) Is(x float64) bool {
	return v.Valid && v.Float64 == x
}

// Raw returns the value with NaN standing in for unset.
func (v Value) Raw() float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

func (v Value) String() string {
	if !v.Valid {
		return "unset"
	}
	return strconv.FormatFloat(v.Float64, 'g', -1, 64)
}

// MarshalJSON encodes unset as null.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.Valid || math.IsInf(v.Float64, 0) {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, v.Float64, 'g', -1, 64), nil
}

// UnmarshalJSON accepts a number or null.
func (v *Value) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*v = Unset
		return nil
	}
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return err
	}
	*v = ValueOf(f)
	return nil
}
