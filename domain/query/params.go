package query

import (
	"net/url"
	"sort"
	"strconv"
	"time"
)

// Value is one typed, validated parameter (value type).
type Value struct {
	Type FieldType
	Str  string // date and enum values
	Int  int64
	Bool bool
}

// StringValue returns a date or enum value.
func StringValue(t FieldType, s string) Value { return Value{Type: t, Str: s} }

// IntValue returns an int value.
func IntValue(n int64) Value { return Value{Type: FieldTypeInt, Int: n} }

// BoolValue returns a bool value.
func BoolValue(b bool) Value { return Value{Type: FieldTypeBool, Bool: b} }

// Encode renders the value the way the upstream expects it in a query string.
func (v Value) Encode() string {
	switch v.Type {
	case FieldTypeInt:
		return strconv.FormatInt(v.Int, 10)
	case FieldTypeBool:
		return strconv.FormatBool(v.Bool)
	default:
		return v.Str
	}
}

// Params is a normalized parameter set. The zero value is an empty set.
// Params is immutable: With returns a modified copy.
type Params struct {
	values map[string]Value
}

// NewParams builds a parameter set from the given values.
func NewParams(values map[string]Value) Params {
	p := Params{values: make(map[string]Value, len(values))}
	for k, v := range values {
		p.values[k] = v
	}
	return p
}

// Has reports whether the parameter is present.
func (p Params) Has(name string) bool {
	_, ok := p.values[name]
	return ok
}

// Get returns the typed value for name.
func (p Params) Get(name string) (Value, bool) {
	v, ok := p.values[name]
	return v, ok
}

// String returns a date or enum parameter.
func (p Params) String(name string) (string, bool) {
	v, ok := p.values[name]
	return v.Str, ok
}

// Int returns an int parameter.
func (p Params) Int(name string) (int64, bool) {
	v, ok := p.values[name]
	return v.Int, ok
}

// Bool returns a bool parameter.
func (p Params) Bool(name string) (bool, bool) {
	v, ok := p.values[name]
	return v.Bool, ok
}

// Date parses a date parameter. ok is false when the parameter is absent or
// is not a real calendar date.
func (p Params) Date(name string) (time.Time, bool) {
	v, ok := p.values[name]
	if !ok || v.Type != FieldTypeDate {
		return time.Time{}, false
	}
	t, err := time.Parse(DateLayout, v.Str)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Len returns the number of parameters.
func (p Params) Len() int { return len(p.values) }

// Names returns the parameter names in sorted order.
func (p Params) Names() []string {
	names := make([]string, 0, len(p.values))
	for k := range p.values {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// With returns a copy of p with name set to v.
func (p Params) With(name string, v Value) Params {
	next := NewParams(p.values)
	next.values[name] = v
	return next
}

// Values encodes the set as query values, skipping the given names.
func (p Params) Values(skip ...string) url.Values {
	q := make(url.Values, len(p.values))
	for k, v := range p.values {
		if contains(skip, k) {
			continue
		}
		q.Set(k, v.Encode())
	}
	return q
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
