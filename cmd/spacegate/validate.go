package main

import (
	"context"
	"fmt"
	"os"
	"time"

	apihttp "github.com/artpar/spacegate/adapters/http"
	"github.com/artpar/spacegate/config"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration before deployment",
	Long: `Validate the spacegate configuration.

Checks:
  - YAML syntax is valid
  - Values are in range
  - Upstream is reachable (optional)

Without a config file the environment alone is validated.

Examples:
  spacegate validate
  spacegate validate --config /etc/spacegate/config.yaml --check-upstream`,
	RunE: runValidate,
}

var (
	validateCheckUpstream bool
)

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVar(&validateCheckUpstream, "check-upstream", false, "check if upstream is reachable")
}

func runValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	source := cfgFile
	if _, err := os.Stat(cfgFile); os.IsNotExist(err) {
		source = "environment"
	}
	fmt.Fprintf(out, "Validating %s...\n\n", source)

	cfg, err := config.LoadWithFallback(cfgFile)
	if err != nil {
		fmt.Fprintf(out, "  %s Config valid\n", crossMark)
		return fmt.Errorf("config error: %w", err)
	}
	fmt.Fprintf(out, "  %s Config valid\n", checkMark)

	// Show config summary
	fmt.Fprintf(out, "  %s Listen: %s\n", checkMark, cfg.Server.Addr())
	fmt.Fprintf(out, "  %s Upstream: %s (timeout %s)\n", checkMark, cfg.Upstream.URL, cfg.Upstream.Timeout)
	if cfg.Upstream.APIKey == "DEMO_KEY" {
		fmt.Fprintf(out, "  %s API key: DEMO_KEY (shared, low quota)\n", warnMark)
	} else {
		fmt.Fprintf(out, "  %s API key: configured\n", checkMark)
	}
	if cfg.RateLimit.IsEnabled() {
		fmt.Fprintf(out, "  %s Rate limit: %d per %s\n", checkMark, cfg.RateLimit.MaxRequests, cfg.RateLimit.Window)
	} else {
		fmt.Fprintf(out, "  %s Rate limit: disabled\n", warnMark)
	}

	if validateCheckUpstream {
		if err := checkUpstreamReachable(cmd.Context(), cfg); err != nil {
			fmt.Fprintf(out, "  %s Upstream reachable\n", crossMark)
			fmt.Fprintf(out, "      Error: %v\n", err)
		} else {
			fmt.Fprintf(out, "  %s Upstream reachable\n", checkMark)
		}
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Configuration is valid.")
	return nil
}

func checkUpstreamReachable(ctx context.Context, cfg *config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	client, err := apihttp.NewUpstreamClient(apihttp.UpstreamConfig{
		BaseURL: cfg.Upstream.URL,
		Timeout: 5 * time.Second,
	})
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return client.HealthCheck(ctx)
}

const (
	checkMark = "\033[32m✓\033[0m"
	crossMark = "\033[31m✗\033[0m"
	warnMark  = "\033[33m!\033[0m"
)
