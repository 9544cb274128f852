package main

import (
	"fmt"
	"os"

	"github.com/artpar/spacegate/bootstrap"
	"github.com/artpar/spacegate/config"
	"github.com/spf13/cobra"
)

var (
	hotReload bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gateway server",
	Long: `Start the spacegate HTTP server.

The server will:
  - Load configuration from spacegate.yaml (or --config)
  - Or load configuration from SPACEGATE_* environment variables
  - Validate every request before calling the upstream
  - Apply the per client rate limit

Environment variables (for container deployments):
  SPACEGATE_UPSTREAM_API_KEY  - NASA API key (default: DEMO_KEY)
  SPACEGATE_SERVER_PORT       - Server port (default: 5000)
  SPACEGATE_RATELIMIT_MAX     - Requests per window (default: 100)
  SPACEGATE_LOG_LEVEL         - Log level: debug, info, warn, error

Examples:
  spacegate serve
  spacegate serve --config /etc/spacegate/config.yaml
  spacegate serve --hot-reload=false

  # Container (env vars only):
  NASA_API_KEY=... spacegate serve`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&hotReload, "hot-reload", true, "enable hot reload of configuration")
}

func runServe(cmd *cobra.Command, args []string) error {
	hasConfigFile := false
	if _, err := os.Stat(cfgFile); err == nil {
		hasConfigFile = true
	}

	var app *bootstrap.App
	var err error

	if hasConfigFile && hotReload {
		// Hot reload only works with config file
		app, err = bootstrap.NewWithHotReload(cfgFile)
	} else {
		cfg, loadErr := config.LoadWithFallback(cfgFile)
		if loadErr != nil {
			return fmt.Errorf("error loading config: %w", loadErr)
		}

		if !hasConfigFile {
			fmt.Fprintln(cmd.ErrOrStderr(), "Running with environment variables (no config file)")
		}

		app, err = bootstrap.New(cfg)
	}

	if err != nil {
		return fmt.Errorf("error initializing: %w", err)
	}

	// Run (blocks until shutdown)
	return app.Run(cmd.Context())
}
