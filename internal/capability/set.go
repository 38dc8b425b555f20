package capability

import (
	"fmt"
	"strconv"
	"strings"
)

// Option is a named capability with an optional typed value.
type Option struct {
	Name  string
	Value Value
}

// Flag creates a presence-only capability.
func Flag(name string) Option { return Option{Name: name} }

// NewBool creates a boolean capability.
func NewBool(name string, v bool) Option { return Option{Name: name, Value: BoolValue(v)} }

// NewInt creates an integer capability.
func NewInt(name string, v int64) Option { return Option{Name: name, Value: IntValue(v)} }

// NewFloat creates a floating-point capability.
func NewFloat(name string, v float64) Option { return Option{Name: name, Value: FloatValue(v)} }

// NewString creates a string capability.
func NewString(name string, v string) Option { return Option{Name: name, Value: StringValue(v)} }

// String formats the option as name or name=value.
func (o Option) String() string {
	if o.Value.IsNone() {
		return o.Name
	}
	return o.Name + "=" + o.Value.String()
}

// Set is an ordered collection of capabilities advertised by a backend
// or a tensor handle factory.
type Set []Option

// Names returns the capability names in advertisement order.
func (s Set) Names() []string {
	names := make([]string, len(s))
	for i, o := range s {
		names[i] = o.Name
	}
	return names
}

// Lookup returns the first capability with the given name.
func (s Set) Lookup(name string) (Option, bool) {
	for _, o := range s {
		if o.Name == name {
			return o, true
		}
	}
	return Option{}, false
}

// String formats the set as a comma separated list.
func (s Set) String() string {
	parts := make([]string, len(s))
	for i, o := range s {
		parts[i] = o.String()
	}
	return strings.Join(parts, ", ")
}

// Has reports whether a capability with exactly this name is advertised.
// The stored value is ignored.
func Has(name string, set Set) bool {
	_, ok := set.Lookup(name)
	return ok
}

// HasOption reports whether a capability with the same name, the same value
// kind and an equal value is advertised. Values are never coerced across kinds,
// and a presence-only capability never matches a valued option.
func HasOption(option Option, set Set) bool {
	for _, o := range set {
		if o.Name == option.Name && o.Value.Equal(option.Value) {
			return true
		}
	}
	return false
}

// ParseOption parses name or name=value. The value is read as a bool, then an
// integer, then a float, and otherwise kept as a string; quote it to force a
// string ("name=\"true\"").
func ParseOption(s string) (Option, error) {
	name, raw, hasValue := strings.Cut(s, "=")
	name = strings.TrimSpace(name)
	if name == "" {
		return Option{}, fmt.Errorf("capability: empty name in %q", s)
	}
	if !hasValue {
		return Flag(name), nil
	}

	raw = strings.TrimSpace(raw)
	if unquoted, err := strconv.Unquote(raw); err == nil {
		return NewString(name, unquoted), nil
	}
	switch raw {
	case "true":
		return NewBool(name, true), nil
	case "false":
		return NewBool(name, false), nil
	}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return NewInt(name, i), nil
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return NewFloat(name, f), nil
	}
	return NewString(name, raw), nil
}
