package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mohammad-safakhou/pathfinder/config"
	"github.com/mohammad-safakhou/pathfinder/internal/catalog"
)

func migrateCMD(cfgPath *string) *cobra.Command {
	var direction string
	var steps int
	var dsn string

	var migrate = &cobra.Command{
		Use:   "migrate",
		Short: "Apply the postgres catalog schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dsn == "" {
				cfg, err := config.LoadConfig(*cfgPath)
				if err != nil {
					return err
				}
				if err := cfg.Storage.Postgres.Validate(); err != nil {
					return fmt.Errorf("postgres not configured: %w", err)
				}
				dsn = cfg.Storage.Postgres.DSN()
			}
			if err := catalog.Migrate(dsn, direction, steps); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrations applied (%s)\n", direction)
			return nil
		},
	}
	migrate.Flags().StringVar(&direction, "direction", "up", "up or down")
	migrate.Flags().IntVar(&steps, "steps", 0, "number of steps (0 = all)")
	migrate.Flags().StringVar(&dsn, "dsn", "", "postgres DSN (default from storage.postgres)")
	return migrate
}
