package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "spacegate",
	Short: "Validating gateway for the NASA open APIs",
	Long: `Spacegate fronts the NASA open APIs with a small, uniform HTTP surface.

Every request is validated against a per-endpoint schema, completed with
defaults, relayed upstream with the server side key and answered in a
single JSON envelope.

Quick start:
  spacegate serve      # Start the gateway
  spacegate endpoints  # List operations and their parameters
  spacegate validate   # Validate configuration`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "spacegate.yaml", "config file path")
}
