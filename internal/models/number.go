package models

import (
	"bytes"
	"strconv"
)

// Number is a numeric field that may be unset. The zero value is "empty",
// which is distinct from an explicit 0 — the UI needs to tell an untouched
// input apart from a recorded zero, and the distinction must survive
// serialization.
//
// JSON encoding: null when empty, a plain number otherwise. Decoding is
// strict: anything other than null or a number is an error, so a corrupted
// persisted value fails validation instead of being silently coerced.
type Number struct {
	Valid bool
	Value float64
}

// Num returns a set Number.
func Num(v float64) Number {
	return Number{Valid: true, Value: v}
}

// IsEmpty reports whether no value has been entered.
func (n Number) IsEmpty() bool {
	return !n.Valid
}

// OrZero returns the value, coercing empty to 0.
func (n Number) OrZero() float64 {
	if !n.Valid {
		return 0
	}
	return n.Value
}

var jsonNull = []byte("null")

func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return jsonNull, nil
	}
	return strconv.AppendFloat(nil, n.Value, 'f', -1, 64), nil
}

func (n *Number) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, jsonNull) {
		*n = Number{}
		return nil
	}
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return err
	}
	*n = Number{Valid: true, Value: v}
	return nil
}
