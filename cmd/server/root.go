package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"wmsinbound/config"
	"wmsinbound/logger"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:   "server",
	Short: "Inbound receiving service",
	Long: `server runs the inbound receiving API: plans, receipts, photo
evidence, counted lines and confirmation into the inventory ledger.

Example:
  server migrate up
  server serve --env-file .env`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "env file to load (default .env)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
}

// setup loads configuration and builds the base logger.
func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, nil, err
	}
	base, err := logger.New(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	zap.ReplaceGlobals(base)
	return cfg, base, nil
}
