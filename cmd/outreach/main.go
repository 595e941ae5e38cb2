// Package main provides the entry point for the outreach engine: the HTTP API with the
// send dispatcher, one-off pipeline runs and offline bounce classification.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Champ-Deep/ChampMail-sub000/internal/config"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "outreach",
		Short:         "Outreach engine for AI-generated email campaigns",
		Long:          "Generates personalized campaign emails, schedules them under timezone and velocity limits, sends them, and tracks opens, clicks, unsubscribes and bounces.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("config", "", "Path to config.json (environment variables are read first)")

	root.AddCommand(newServeCmd(), newRunCmd(), newClassifyBounceCmd())
	return root
}

func main() {
	// Load .env file if it exists
	config.LoadEnv()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads configuration from the environment and the --config file
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}
