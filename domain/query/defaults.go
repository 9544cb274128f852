package query

import "time"

// Default values injected when the caller under-specifies a query.
const (
	DefaultSol       = 1000
	DefaultImageType = "natural"
	DefaultNEODays   = 7
)

// Default injects values when none of the Unless fields were supplied.
type Default struct {
	Unless []string
	Fill   func(today time.Time) map[string]Value
}

// ApplyDefaults fills in parameters the caller omitted. Supplied values are
// never overridden. now is reduced to its UTC calendar date before Fill runs.
func ApplyDefaults(s Schema, p Params, now time.Time) Params {
	today := now.UTC().Truncate(24 * time.Hour)

	for _, d := range s.Defaults {
		if anyPresent(p, d.Unless) {
			continue
		}
		for name, v := range d.Fill(today) {
			if !p.Has(name) {
				p = p.With(name, v)
			}
		}
	}
	return p
}

func anyPresent(p Params, names []string) bool {
	for _, n := range names {
		if p.Has(n) {
			return true
		}
	}
	return false
}

// fixed injects v under name unless name or any of also was supplied.
func fixed(name string, v Value, also ...string) Default {
	return Default{
		Unless: append([]string{name}, also...),
		Fill: func(time.Time) map[string]Value {
			return map[string]Value{name: v}
		},
	}
}

func dateWindow(startField, endField string, days int) Default {
	return Default{
		Unless: []string{startField, endField},
		Fill: func(today time.Time) map[string]Value {
			return map[string]Value{
				startField: StringValue(FieldTypeDate, today.Format(DateLayout)),
				endField:   StringValue(FieldTypeDate, today.AddDate(0, 0, days).Format(DateLayout)),
			}
		},
	}
}
