package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"wmsinbound/config"
	"wmsinbound/db"
)

var migrateCmd = &cobra.Command{
	Use:       "migrate [up|down]",
	Short:     "Apply or roll back the Postgres schema",
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{string(db.Up), string(db.Down)},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, base, err := setup()
		if err != nil {
			return err
		}
		defer func() { _ = base.Sync() }()

		if cfg.DBType != config.DBTypePostgres {
			return errors.New("migrate requires DB_TYPE=postgres")
		}
		dir := db.Up
		if len(args) == 1 {
			dir = db.Direction(args[0])
		}
		if err := db.RunMigrations(cfg.PostgresURL, cfg.MigrationsPath, dir, base.Named("migrate")); err != nil {
			return fmt.Errorf("migrate %s: %w", dir, err)
		}
		return nil
	},
}
