package database

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// BlobSentinel replaces binary payloads that are not valid UTF-8.
const BlobSentinel = "BLOB_DATA"

// Render layouts for temporal cells.
const (
	DateTimeLayout = "2006-01-02 15:04:05"
	DateLayout     = "2006-01-02"
	TimeLayout     = "15:04:05"
)

// Cell is one result cell as surfaced by a driver, plus the engine's name for
// the column's physical type (upper-case, empty for untyped expressions).
type Cell struct {
	Raw    any
	DBType string
}

// Outcome is the result of a single decode attempt.
type Outcome uint8

const (
	Skip    Outcome = iota // attempt does not apply to this cell
	Present                // attempt decoded a non-null value
	Absent                 // attempt applies and the value is null
)

// TypeTag names a decode attempt.
type TypeTag string

const (
	TagInt64      TypeTag = "int64"
	TagInt32      TypeTag = "int32"
	TagFloat64    TypeTag = "float64"
	TagFloat32    TypeTag = "float32"
	TagBool       TypeTag = "bool"
	TagDateTimeTZ TypeTag = "datetime_tz"
	TagDateTime   TypeTag = "datetime"
	TagDate       TypeTag = "date"
	TagTime       TypeTag = "time"
	TagJSON       TypeTag = "json"
	TagString     TypeTag = "string"
	TagBinary     TypeTag = "binary"
)

// Decoder is one typed decode attempt.
type Decoder struct {
	Tag    TypeTag
	Decode func(Cell) (Value, Outcome)
}

// Attempt builds a Decoder whose fn only sees non-null cells. A null cell is
// Absent for every attempt, so the first decoder in a chain settles it.
func Attempt(tag TypeTag, fn func(Cell) (Value, Outcome)) Decoder {
	return Decoder{Tag: tag, Decode: func(c Cell) (Value, Outcome) {
		if isNull(c.Raw) {
			return Null(), Absent
		}
		return fn(c)
	}}
}

// Chain is an ordered list of decode attempts evaluated with early return.
type Chain []Decoder

// Coerce resolves c to exactly one Value. It never fails: when no attempt
// applies the result is null.
func (ch Chain) Coerce(c Cell) Value {
	for _, d := range ch {
		v, out := d.Decode(c)
		switch out {
		case Present:
			return v
		case Absent:
			return Null()
		}
	}
	return Null()
}

// CoerceRow coerces every cell of one row, keeping positions.
func (ch Chain) CoerceRow(cells []Cell) []Value {
	row := make([]Value, len(cells))
	for i, c := range cells {
		row[i] = ch.Coerce(c)
	}
	return row
}

// Tags lists the chain's attempt order.
func (ch Chain) Tags() []TypeTag {
	tags := make([]TypeTag, len(ch))
	for i, d := range ch {
		tags[i] = d.Tag
	}
	return tags
}

// --- standard attempts ---

var (
	DecodeInt64 = Attempt(TagInt64, func(c Cell) (Value, Outcome) {
		switch x := c.Raw.(type) {
		case int64:
			return Int(x), Present
		case int:
			return Int(int64(x)), Present
		case uint32:
			return Int(int64(x)), Present
		case uint:
			if uint64(x) <= math.MaxInt64 {
				return Int(int64(x)), Present
			}
		case uint64:
			if x <= math.MaxInt64 {
				return Int(int64(x)), Present
			}
		}
		return Null(), Skip
	})

	DecodeInt32 = Attempt(TagInt32, func(c Cell) (Value, Outcome) {
		switch x := c.Raw.(type) {
		case int32:
			return Int(int64(x)), Present
		case int16:
			return Int(int64(x)), Present
		case int8:
			return Int(int64(x)), Present
		case uint16:
			return Int(int64(x)), Present
		case uint8:
			return Int(int64(x)), Present
		}
		return Null(), Skip
	})

	DecodeFloat64 = Attempt(TagFloat64, func(c Cell) (Value, Outcome) {
		var f float64
		switch x := c.Raw.(type) {
		case float64:
			f = x
		case uint64:
			f = float64(x) // beyond int64, precision is lost
		case uint:
			f = float64(x)
		default:
			return Null(), Skip
		}
		if !FiniteFloat(f) {
			return Null(), Skip
		}
		return Float(f), Present
	})

	DecodeFloat32 = Attempt(TagFloat32, func(c Cell) (Value, Outcome) {
		x, ok := c.Raw.(float32)
		if !ok {
			return Null(), Skip
		}
		// Round-trip through the shortest float32 text so 1.1 stays 1.1.
		f, err := strconv.ParseFloat(strconv.FormatFloat(float64(x), 'g', -1, 32), 64)
		if err != nil || !FiniteFloat(f) {
			return Null(), Skip
		}
		return Float(f), Present
	})

	DecodeBool = Attempt(TagBool, func(c Cell) (Value, Outcome) {
		if b, ok := c.Raw.(bool); ok {
			return Bool(b), Present
		}
		return Null(), Skip
	})

	// DecodeDateTimeTZ renders timezone-aware timestamps in RFC 3339,
	// keeping the offset the driver reported.
	DecodeDateTimeTZ = Attempt(TagDateTimeTZ, func(c Cell) (Value, Outcome) {
		t, ok := c.Raw.(time.Time)
		if !ok || !isTZType(c.DBType) {
			return Null(), Skip
		}
		return String(t.Format(time.RFC3339Nano)), Present
	})

	DecodeDateTime = Attempt(TagDateTime, func(c Cell) (Value, Outcome) {
		t, ok := c.Raw.(time.Time)
		if !ok || isDateType(c.DBType) || isTimeType(c.DBType) {
			return Null(), Skip
		}
		return String(t.Format(DateTimeLayout)), Present
	})

	DecodeDate = Attempt(TagDate, func(c Cell) (Value, Outcome) {
		t, ok := c.Raw.(time.Time)
		if !ok || !isDateType(c.DBType) {
			return Null(), Skip
		}
		return String(t.Format(DateLayout)), Present
	})

	DecodeTime = Attempt(TagTime, func(c Cell) (Value, Outcome) {
		if !isTimeType(c.DBType) {
			return Null(), Skip
		}
		switch x := c.Raw.(type) {
		case time.Time:
			return String(x.Format(TimeLayout)), Present
		case []byte:
			return String(trimFraction(string(x))), Present
		case string:
			return String(trimFraction(x)), Present
		}
		return Null(), Skip
	})

	// DecodeJSON handles structured values: already-decoded maps and slices,
	// or JSON text in a JSON-typed column.
	DecodeJSON = Attempt(TagJSON, func(c Cell) (Value, Outcome) {
		switch x := c.Raw.(type) {
		case map[string]any, []any:
			return fromJSON(x), Present
		case []byte:
			if isJSONType(c.DBType) {
				return decodeJSONText(x)
			}
		case string:
			if isJSONType(c.DBType) {
				return decodeJSONText([]byte(x))
			}
		}
		return Null(), Skip
	})

	DecodeString = Attempt(TagString, func(c Cell) (Value, Outcome) {
		switch x := c.Raw.(type) {
		case string:
			return String(x), Present
		case []byte:
			if !isBinaryType(c.DBType) && utf8.Valid(x) {
				return String(string(x)), Present
			}
		case driver.Valuer:
			if v, err := x.Value(); err == nil {
				if s, ok := v.(string); ok {
					return String(s), Present
				}
			}
		case fmt.Stringer:
			return String(x.String()), Present
		}
		return Null(), Skip
	})

	DecodeBinary = Attempt(TagBinary, func(c Cell) (Value, Outcome) {
		b, ok := c.Raw.([]byte)
		if !ok {
			return Null(), Skip
		}
		if utf8.Valid(b) {
			return String(string(b)), Present
		}
		return String(BlobSentinel), Present
	})
)

// StandardChain is the attempt order for MySQL and SQLite.
var StandardChain = Chain{
	DecodeInt64,
	DecodeInt32,
	DecodeFloat64,
	DecodeFloat32,
	DecodeBool,
	DecodeDateTime,
	DecodeDate,
	DecodeTime,
	DecodeJSON,
	DecodeString,
	DecodeBinary,
}

// --- helpers ---

func isNull(raw any) bool {
	switch x := raw.(type) {
	case nil:
		return true
	case []byte:
		return x == nil
	}
	return false
}

// decodeJSONText maps JSON scalars to their kind. Objects and arrays keep
// the column's own text, compacted, so key order survives.
func decodeJSONText(b []byte) (Value, Outcome) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return Null(), Skip
	}
	switch raw.(type) {
	case nil:
		return Null(), Absent
	case map[string]any, []any:
		var buf bytes.Buffer
		if err := json.Compact(&buf, b); err != nil {
			return Null(), Skip
		}
		return String(buf.String()), Present
	}
	return fromJSON(raw), Present
}

// trimFraction drops sub-second digits from a textual time ("10:11:12.5").
func trimFraction(s string) string {
	if i := strings.IndexByte(s, '.'); i >= 0 {
		return s[:i]
	}
	return s
}

func isTZType(t string) bool {
	switch t {
	case "TIMESTAMPTZ", "TIMESTAMP WITH TIME ZONE":
		return true
	}
	return false
}

func isDateType(t string) bool {
	return t == "DATE"
}

func isTimeType(t string) bool {
	switch t {
	case "TIME", "TIMETZ", "TIME WITH TIME ZONE", "TIME WITHOUT TIME ZONE":
		return true
	}
	return false
}

func isJSONType(t string) bool {
	return t == "JSON" || t == "JSONB"
}

func isBinaryType(t string) bool {
	switch t {
	case "BLOB", "TINYBLOB", "MEDIUMBLOB", "LONGBLOB",
		"BINARY", "VARBINARY", "BYTEA", "BIT", "GEOMETRY":
		return true
	}
	return false
}
