package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/templui/doin/cmd/doin/cmd"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "doin",
		Short:        "Participation stats, submissions and reports for doin challenges",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().String("token", os.Getenv("DOIN_TOKEN"), "signed identity token (default $DOIN_TOKEN)")

	rootCmd.AddCommand(cmd.StatsCmd())
	rootCmd.AddCommand(cmd.ExportCmd())
	rootCmd.AddCommand(cmd.JoinCmd())
	rootCmd.AddCommand(cmd.DeleteCmd())
	rootCmd.AddCommand(cmd.SyncCmd())
	rootCmd.AddCommand(cmd.MilestonesCmd())
	rootCmd.AddCommand(cmd.TokenCmd())
	rootCmd.AddCommand(cmd.MigrateCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
