// Package query provides the endpoint schemas, the validator that interprets
// them and the default policy applied to validated parameters.
// Everything in this package is pure: no I/O, no clock, no shared mutable state.
package query

import (
	"fmt"
	"regexp"
	"strings"
)

// FieldType is the semantic type of a query parameter.
type FieldType string

const (
	FieldTypeDate FieldType = "date" // YYYY-MM-DD
	FieldTypeInt  FieldType = "int"
	FieldTypeEnum FieldType = "enum" // Requires Values
	FieldTypeBool FieldType = "bool"
)

// DateLayout is the only accepted date format.
const DateLayout = "2006-01-02"

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Field describes one accepted query parameter.
type Field struct {
	Name     string
	Type     FieldType
	Required bool

	// Min and Max bound int fields when non-nil.
	Min *int64
	Max *int64

	// Values lists the allowed values for enum fields.
	Values []string

	// PathParam marks fields consumed by the upstream path template.
	PathParam bool
}

// Rule is a cross-field constraint evaluated after every field passed.
// Check returns an empty string when the rule holds, otherwise the message.
type Rule struct {
	Name  string
	Check func(p Params) string
}

// Schema is the declarative contract of one endpoint.
type Schema struct {
	Endpoint string
	// Upstream is the upstream path template, e.g. /EPIC/api/{type}.
	Upstream string
	Summary  string
	Fields   []Field
	Rules    []Rule
	Defaults []Default
}

// Field returns the field spec with the given name.
func (s Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// check verifies schema invariants. Called once when the registry is built.
func (s Schema) check() error {
	if s.Endpoint == "" {
		return fmt.Errorf("schema without endpoint")
	}
	seen := make(map[string]bool, len(s.Fields))
	for _, f := range s.Fields {
		if seen[f.Name] {
			return fmt.Errorf("%s: duplicate field %q", s.Endpoint, f.Name)
		}
		seen[f.Name] = true
		if f.Type == FieldTypeEnum && len(f.Values) == 0 {
			return fmt.Errorf("%s: enum field %q has no values", s.Endpoint, f.Name)
		}
		if f.PathParam && !strings.Contains(s.Upstream, "{"+f.Name+"}") {
			return fmt.Errorf("%s: path param %q missing from %q", s.Endpoint, f.Name, s.Upstream)
		}
	}
	return nil
}

func bound(n int64) *int64 { return &n }

// Describe renders a one-line summary of the field domain, used by the CLI
// and the generated docs.
func (f Field) Describe() string {
	var b strings.Builder
	b.WriteString(string(f.Type))
	switch f.Type {
	case FieldTypeInt:
		switch {
		case f.Min != nil && f.Max != nil:
			fmt.Fprintf(&b, " %d..%d", *f.Min, *f.Max)
		case f.Min != nil:
			fmt.Fprintf(&b, " >=%d", *f.Min)
		case f.Max != nil:
			fmt.Fprintf(&b, " <=%d", *f.Max)
		}
	case FieldTypeEnum:
		b.WriteString(" [" + strings.Join(f.Values, ", ") + "]")
	case FieldTypeDate:
		b.WriteString(" YYYY-MM-DD")
	}
	if f.Required {
		b.WriteString(" (required)")
	}
	return b.String()
}
