package database

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
)

// Kind is the kind of a generic Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindNumber
	KindBool
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	default:
		return "null"
	}
}

// Value is the engine-independent representation of one result cell:
// null, number (integer or float), bool or string. The zero Value is null.
type Value struct {
	kind  Kind
	isInt bool
	i     int64
	f     float64
	b     bool
	s     string
}

// Null returns the null value.
func Null() Value { return Value{} }

// Int returns an integral number.
func Int(v int64) Value { return Value{kind: KindNumber, isInt: true, i: v} }

// Float returns a floating-point number. Callers must check FiniteFloat
// first; NaN and ±Inf have no JSON representation.
func Float(v float64) Value { return Value{kind: KindNumber, f: v} }

// Bool returns a boolean value.
func Bool(v bool) Value { return Value{kind: KindBool, b: v} }

// String returns a string value.
func String(v string) Value { return Value{kind: KindString, s: v} }

// FiniteFloat reports whether f can be carried as a JSON number.
func FiniteFloat(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func (v Value) Kind() Kind    { return v.kind }
func (v Value) IsNull() bool  { return v.kind == KindNull }
func (v Value) IsInt() bool   { return v.kind == KindNumber && v.isInt }
func (v Value) AsBool() bool  { return v.b }
func (v Value) AsStr() string { return v.s }

// AsInt returns the integer value; floats are truncated.
func (v Value) AsInt() int64 {
	if v.isInt {
		return v.i
	}
	return int64(v.f)
}

// AsFloat returns the numeric value as float64.
func (v Value) AsFloat() float64 {
	if v.isInt {
		return float64(v.i)
	}
	return v.f
}

// Interface returns the value as nil, int64, float64, bool or string.
func (v Value) Interface() any {
	switch v.kind {
	case KindNumber:
		if v.isInt {
			return v.i
		}
		return v.f
	case KindBool:
		return v.b
	case KindString:
		return v.s
	}
	return nil
}

// String renders the value as display text. Null renders as "".
func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		if v.isInt {
			return strconv.FormatInt(v.i, 10)
		}
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindString:
		return v.s
	}
	return ""
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNumber:
		if v.isInt {
			return strconv.AppendInt(nil, v.i, 10), nil
		}
		return json.Marshal(v.f)
	case KindBool:
		return strconv.AppendBool(nil, v.b), nil
	case KindString:
		return json.Marshal(v.s)
	}
	return []byte("null"), nil
}

func (v *Value) UnmarshalJSON(b []byte) error {
	var raw any
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	*v = fromJSON(raw)
	return nil
}

// fromJSON maps a decoded JSON value onto the closed value set. Objects and
// arrays have no generic kind and are carried as compact JSON text.
func fromJSON(raw any) Value {
	switch x := raw.(type) {
	case nil:
		return Null()
	case bool:
		return Bool(x)
	case string:
		return String(x)
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return Int(i)
		}
		if f, err := x.Float64(); err == nil && FiniteFloat(f) {
			return Float(f)
		}
		return String(x.String())
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1<<53 {
			return Int(int64(x))
		}
		return Float(x)
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return Null()
		}
		return String(string(b))
	}
}
