// Package capability implements named, optionally typed backend capabilities
// and the exact-match queries used to test them.
package capability

import (
	"fmt"
	"math"
	"strconv"
)

// Kind identifies the payload type carried by a Value.
type Kind int

// Supported value kinds.
const (
	None Kind = iota // Plain presence flag, no payload.
	Bool
	Int
	Float
	String
)

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case None:
		return "none"
	case Bool:
		return "bool"
	case Int:
		return "int"
	case Float:
		return "float"
	case String:
		return "string"
	default:
		return "unknown"
	}
}

// Value is a tagged capability payload.
// Two values are equal only when both the kind and the payload are equal.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
}

// BoolValue wraps a boolean payload.
func BoolValue(v bool) Value { return Value{kind: Bool, b: v} }

// IntValue wraps an integer payload.
func IntValue(v int64) Value { return Value{kind: Int, i: v} }

// FloatValue wraps a floating-point payload.
func FloatValue(v float64) Value { return Value{kind: Float, f: v} }

// StringValue wraps a string payload.
func StringValue(v string) Value { return Value{kind: String, s: v} }

// Kind returns the payload kind.
func (v Value) Kind() Kind { return v.kind }

// IsNone reports whether the value carries no payload.
func (v Value) IsNone() bool { return v.kind == None }

// AsBool returns the boolean payload and whether the value is a Bool.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == Bool }

// AsInt returns the integer payload and whether the value is an Int.
func (v Value) AsInt() (int64, bool) { return v.i, v.kind == Int }

// AsFloat returns the floating-point payload and whether the value is a Float.
func (v Value) AsFloat() (float64, bool) { return v.f, v.kind == Float }

// AsString returns the string payload and whether the value is a String.
func (v Value) AsString() (string, bool) { return v.s, v.kind == String }

// Equal reports whether v and other have the same kind and payload.
// NaN floats are never equal, matching IEEE semantics.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case None:
		return true
	case Bool:
		return v.b == other.b
	case Int:
		return v.i == other.i
	case Float:
		return v.f == other.f
	case String:
		return v.s == other.s
	default:
		return false
	}
}

// String formats the payload for diagnostics.
func (v Value) String() string {
	switch v.kind {
	case Bool:
		return strconv.FormatBool(v.b)
	case Int:
		return strconv.FormatInt(v.i, 10)
	case Float:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case String:
		return strconv.Quote(v.s)
	default:
		return "<none>"
	}
}

// Interface returns the payload as a plain Go value (nil for None).
func (v Value) Interface() any {
	switch v.kind {
	case Bool:
		return v.b
	case Int:
		return v.i
	case Float:
		return v.f
	case String:
		return v.s
	default:
		return nil
	}
}

// FromInterface converts a decoded configuration value into a Value.
// A nil payload yields a presence-only value.
func FromInterface(raw any) (Value, error) {
	switch x := raw.(type) {
	case nil:
		return Value{}, nil
	case Value:
		return x, nil
	case bool:
		return BoolValue(x), nil
	case int:
		return IntValue(int64(x)), nil
	case int32:
		return IntValue(int64(x)), nil
	case int64:
		return IntValue(x), nil
	case uint:
		if uint64(x) > math.MaxInt64 {
			return Value{}, fmt.Errorf("capability: integer %d overflows int64", x)
		}
		return IntValue(int64(x)), nil
	case uint64:
		if x > math.MaxInt64 {
			return Value{}, fmt.Errorf("capability: integer %d overflows int64", x)
		}
		return IntValue(int64(x)), nil
	case float32:
		return FloatValue(float64(x)), nil
	case float64:
		return FloatValue(x), nil
	case string:
		return StringValue(x), nil
	default:
		return Value{}, fmt.Errorf("capability: unsupported value type %T", raw)
	}
}
