package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/templui/doin/internal/app"
)

var errNoRedis = errors.New("milestones need REDIS_ADDR")

func MilestonesCmd() *cobra.Command {
	var reset bool

	cmd := &cobra.Command{
		Use:   "milestones <challenge-id>",
		Short: "List the goal milestones already announced for a challenge",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "challenge")
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				if a.Milestones == nil {
					return errNoRedis
				}
				if reset {
					if err := a.Milestones.Reset(ctx, id); err != nil {
						return fmt.Errorf("failed to reset milestones: %w", err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "milestones for challenge %d cleared\n", id)
					return nil
				}
				reached, err := a.Milestones.Reached(ctx, id)
				if err != nil {
					return fmt.Errorf("failed to read milestones: %w", err)
				}
				printMilestones(cmd.OutOrStdout(), reached)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&reset, "reset", false, "forget announced milestones so they fire again")
	return cmd
}

func printMilestones(w io.Writer, reached []int) {
	if len(reached) == 0 {
		fmt.Fprintln(w, "no milestones reached yet")
		return
	}
	for _, m := range reached {
		fmt.Fprintf(w, "%d%%\n", m)
	}
}
