// Copyright (C) kenshin contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package schema

import (
	"strconv"
)

// Float is the value type stored in archive points and cache slots.
//
// A custom type is used, rather than a bare float64 plus a separate
// "is this null" bool, so the NULL_VALUE sentinel can travel through the
// same flat arrays the ring buffer and the archive data region already
// use. Unlike schema.Float in a GraphQL-facing package, NaN cannot serve
// as that sentinel: reads filter null cells with a plain `!=` comparison,
// and NaN is never equal to itself under IEEE-754, which would make every
// null comparison fail silently.
type Float float64

// NullValue is the fixed sentinel written to the archive file and to
// FileCache slots to mean "no data here". It must be stable across
// process restarts and distinguishable from any value a real metric
// could report, so a deep-negative float is used instead of a
// small/round number that a metric could plausibly emit.
const NullValue Float = -1.0e308

// IsNull reports whether f is the null sentinel.
func (f Float) IsNull() bool {
	return f == NullValue
}

// MarshalJSON serializes the null sentinel to `null` and everything else
// as a plain JSON number.
func (f Float) MarshalJSON() ([]byte, error) {
	if f.IsNull() {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(float64(f), 'f', -1, 64)), nil
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (f *Float) UnmarshalJSON(input []byte) error {
	s := string(input)
	if s == "null" {
		*f = NullValue
		return nil
	}
	val, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*f = Float(val)
	return nil
}
