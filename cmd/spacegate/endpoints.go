package main

import (
	"fmt"
	"sort"

	apihttp "github.com/artpar/spacegate/adapters/http"
	"github.com/artpar/spacegate/domain/query"
	"github.com/spf13/cobra"
)

var endpointsOutput string

var endpointsCmd = &cobra.Command{
	Use:   "endpoints",
	Short: "List the gateway operations and their parameters",
	Long: `List every operation the gateway serves, its routes, the upstream
path it relays to and the query parameters it accepts.

Examples:
  spacegate endpoints
  spacegate endpoints -o json`,
	RunE: runEndpoints,
}

func init() {
	rootCmd.AddCommand(endpointsCmd)

	endpointsCmd.Flags().StringVarP(&endpointsOutput, "output", "o", "table", "output format: table, json, yaml")
}

func runEndpoints(cmd *cobra.Command, args []string) error {
	f, err := formatterFor(endpointsOutput)
	if err != nil {
		return err
	}

	records := endpointRecords()
	columns := []string{"endpoint", "routes", "upstream", "parameters"}
	if err := f.FormatList(cmd.OutOrStdout(), columns, records); err != nil {
		return fmt.Errorf("write %s output: %w", f.Name(), err)
	}
	return nil
}

// endpointRecords describes the schema registry, one record per endpoint.
func endpointRecords() []map[string]any {
	aliases := make(map[string][]string)
	for alias, name := range apihttp.Aliases {
		aliases[name] = append(aliases[name], "/api/"+alias)
	}

	var records []map[string]any
	for _, name := range query.Endpoints() {
		schema, _ := query.Lookup(name)

		routes := []string{"/" + name, "/api/" + name}
		extra := aliases[name]
		sort.Strings(extra)
		routes = append(routes, extra...)

		params := make([]string, 0, len(schema.Fields))
		for _, field := range schema.Fields {
			params = append(params, field.Name+": "+field.Describe())
		}

		records = append(records, map[string]any{
			"endpoint":   name,
			"summary":    schema.Summary,
			"routes":     routes,
			"upstream":   schema.Upstream,
			"parameters": params,
		})
	}
	return records
}
