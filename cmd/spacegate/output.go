package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"
)

// formatter renders a list of records in one output format.
type formatter interface {
	Name() string
	FormatList(w io.Writer, columns []string, records []map[string]any) error
}

var formatters = map[string]formatter{
	"table": tableFormatter{},
	"json":  jsonFormatter{},
	"yaml":  yamlFormatter{},
}

// formatterFor returns the formatter registered under name.
func formatterFor(name string) (formatter, error) {
	f, ok := formatters[name]
	if !ok {
		names := make([]string, 0, len(formatters))
		for n := range formatters {
			names = append(names, n)
		}
		sort.Strings(names)
		return nil, fmt.Errorf("unknown output format %q (available: %s)", name, strings.Join(names, ", "))
	}
	return f, nil
}

// tableFormatter formats output as aligned text tables.
type tableFormatter struct{}

func (tableFormatter) Name() string { return "table" }

func (tableFormatter) FormatList(w io.Writer, columns []string, records []map[string]any) error {
	if len(records) == 0 {
		fmt.Fprintln(w, "No records found.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	headers := make([]string, len(columns))
	for i, col := range columns {
		headers[i] = strings.ToUpper(col)
	}
	fmt.Fprintln(tw, strings.Join(headers, "\t"))

	for _, record := range records {
		values := make([]string, len(columns))
		for i, col := range columns {
			values[i] = formatValue(record[col])
		}
		fmt.Fprintln(tw, strings.Join(values, "\t"))
	}

	return tw.Flush()
}

func formatValue(val any) string {
	switch v := val.(type) {
	case nil:
		return "-"
	case string:
		if v == "" {
			return "-"
		}
		return v
	case []string:
		if len(v) == 0 {
			return "-"
		}
		return strings.Join(v, ", ")
	case bool:
		if v {
			return "yes"
		}
		return "no"
	default:
		b, _ := json.Marshal(v)
		return string(b)
	}
}

// jsonFormatter formats output as indented JSON.
type jsonFormatter struct{}

func (jsonFormatter) Name() string { return "json" }

func (jsonFormatter) FormatList(w io.Writer, _ []string, records []map[string]any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

// yamlFormatter formats output as YAML.
type yamlFormatter struct{}

func (yamlFormatter) Name() string { return "yaml" }

func (yamlFormatter) FormatList(w io.Writer, _ []string, records []map[string]any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(records); err != nil {
		return err
	}
	return enc.Close()
}
