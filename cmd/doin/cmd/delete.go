package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/templui/doin/internal/app"
)

func DeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <challenge-id> <participation-id>",
		Short: "Cancel your own participation",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			challengeID, err := parseID(args[0], "challenge")
			if err != nil {
				return err
			}
			participationID, err := parseID(args[1], "participation")
			if err != nil {
				return err
			}

			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				me, err := identity(cmd, a)
				if err != nil {
					return err
				}
				if me == nil {
					return fmt.Errorf("sign in with --token to cancel a participation")
				}
				if err := a.EventService.Delete(ctx, challengeID, participationID, me); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "participation %d cancelled\n", participationID)
				return nil
			})
		},
	}
}
