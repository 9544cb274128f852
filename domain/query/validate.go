package query

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
)

// Rule names reported in ValidationError.Rule for field-level failures.
const (
	RuleRequired = "required"
	RuleSingle   = "single"
	RuleEmpty    = "empty"
	RuleType     = "type"
	RuleMin      = "min"
	RuleMax      = "max"
	RuleEnum     = "enum"
	RulePattern  = "pattern"
)

// ValidationError describes the first violated rule of a request.
type ValidationError struct {
	Endpoint string
	Field    string // empty for cross-field rules
	Rule     string
	Message  string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Validate applies schema to the raw query values.
// Unknown keys are ignored. Fields are checked in declaration order, then the
// cross-field rules; the first violation is returned.
func Validate(s Schema, raw url.Values) (Params, *ValidationError) {
	values := make(map[string]Value, len(s.Fields))

	for _, f := range s.Fields {
		in, present := raw[f.Name]
		if !present {
			if f.Required {
				return Params{}, fieldErr(s, f, RuleRequired, "is required")
			}
			continue
		}

		v, verr := coerce(s, f, in)
		if verr != nil {
			return Params{}, verr
		}
		values[f.Name] = v
	}

	p := Params{values: values}
	for _, r := range s.Rules {
		if msg := r.Check(p); msg != "" {
			return Params{}, &ValidationError{
				Endpoint: s.Endpoint,
				Rule:     r.Name,
				Message:  msg,
			}
		}
	}

	return p, nil
}

func coerce(s Schema, f Field, in []string) (Value, *ValidationError) {
	if len(in) != 1 {
		return Value{}, fieldErr(s, f, RuleSingle, "must be a single value")
	}
	str := strings.TrimSpace(in[0])
	if str == "" {
		return Value{}, fieldErr(s, f, RuleEmpty, "is not allowed to be empty")
	}

	switch f.Type {
	case FieldTypeDate:
		if !datePattern.MatchString(str) {
			return Value{}, fieldErr(s, f, RulePattern, "must be in YYYY-MM-DD format")
		}
		return StringValue(FieldTypeDate, str), nil

	case FieldTypeEnum:
		if !contains(f.Values, str) {
			return Value{}, fieldErr(s, f, RuleEnum,
				fmt.Sprintf("must be one of [%s]", strings.Join(f.Values, ", ")))
		}
		return StringValue(FieldTypeEnum, str), nil

	case FieldTypeBool:
		switch strings.ToLower(str) {
		case "true":
			return BoolValue(true), nil
		case "false":
			return BoolValue(false), nil
		}
		return Value{}, fieldErr(s, f, RuleType, "must be a boolean")

	case FieldTypeInt:
		n, msg := parseInt(str)
		if msg != "" {
			return Value{}, fieldErr(s, f, RuleType, msg)
		}
		if f.Min != nil && n < *f.Min {
			return Value{}, fieldErr(s, f, RuleMin,
				fmt.Sprintf("must be greater than or equal to %d", *f.Min))
		}
		if f.Max != nil && n > *f.Max {
			return Value{}, fieldErr(s, f, RuleMax,
				fmt.Sprintf("must be less than or equal to %d", *f.Max))
		}
		return IntValue(n), nil
	}

	return Value{}, fieldErr(s, f, RuleType, fmt.Sprintf("has unsupported type %q", f.Type))
}

// parseInt accepts decimal integers, including integral floats like "5.0".
func parseInt(str string) (int64, string) {
	if n, err := strconv.ParseInt(str, 10, 64); err == nil {
		return n, ""
	}
	fl, err := strconv.ParseFloat(str, 64)
	if err != nil || math.IsNaN(fl) || math.IsInf(fl, 0) {
		return 0, "must be a number"
	}
	if fl != math.Trunc(fl) || fl >= 1<<63 || fl < -(1<<63) {
		return 0, "must be an integer"
	}
	return int64(fl), ""
}

func fieldErr(s Schema, f Field, rule, msg string) *ValidationError {
	return &ValidationError{
		Endpoint: s.Endpoint,
		Field:    f.Name,
		Rule:     rule,
		Message:  fmt.Sprintf("%q %s", f.Name, msg),
	}
}
