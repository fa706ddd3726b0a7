package cmd

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/templui/doin/internal/config"
	"github.com/templui/doin/internal/db"
)

func MigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the local cache and offline queue schema",
	}

	cmd.AddCommand(
		migrateSubCmd("up", "Apply all pending migrations", func(cmd *cobra.Command, conn *sqlx.DB, driver string) error {
			return db.RunMigrations(cmd.Context(), conn.DB, driver)
		}),
		migrateSubCmd("down", "Roll back the latest migration", func(cmd *cobra.Command, conn *sqlx.DB, driver string) error {
			return db.MigrateDown(cmd.Context(), conn.DB, driver)
		}),
		migrateSubCmd("version", "Print the current schema version", func(cmd *cobra.Command, conn *sqlx.DB, driver string) error {
			v, err := db.MigrationVersion(cmd.Context(), conn.DB, driver)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), v)
			return nil
		}),
	)
	return cmd
}

func migrateSubCmd(use, short string, fn func(cmd *cobra.Command, conn *sqlx.DB, driver string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			conn, err := db.Init(cfg.DBDriver, cfg.DBConnection)
			if err != nil {
				return err
			}
			defer db.Close(conn)
			return fn(cmd, conn, cfg.DBDriver)
		},
	}
}
