package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/templui/doin/internal/app"
)

func SyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Send submissions queued while the server was unreachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				res, err := a.EventService.Sync(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "sent %d, dropped %d, %d still queued\n", res.Sent, res.Dropped, res.Remaining)
				return nil
			})
		},
	}
}
