package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/templui/doin/internal/app"
	"github.com/templui/doin/internal/model"
	"github.com/templui/doin/internal/prefecture"
	"github.com/templui/doin/internal/service"
)

func JoinCmd() *cobra.Command {
	var (
		req        service.JoinRequest
		gender     string
		companions []string
	)

	cmd := &cobra.Command{
		Use:   "join <challenge-id>",
		Short: "Join a challenge as the signed-in user",
		Long: `Join a challenge as the signed-in user.

Companions are given as "name", "@handle" or "name@handle". Handles are
looked up; an unknown handle falls back to the name.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "challenge")
			if err != nil {
				return err
			}
			req.Gender = model.Gender(gender)
			for _, c := range companions {
				req.Companions = append(req.Companions, parseCompanion(c))
			}

			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				ids, err := identityProvider(cmd, a)
				if err != nil {
					return err
				}
				res, err := a.Joiner.Join(ctx, id, ids, req)
				if err != nil {
					return err
				}
				if res.Queued() {
					fmt.Fprintf(cmd.OutOrStdout(), "offline: queued as %s, run `doin sync` once the server is reachable\n", res.PendingID)
					return nil
				}
				if res.ParticipantNumber != nil {
					fmt.Fprintf(cmd.OutOrStdout(), "joined as participant #%d\n", *res.ParticipantNumber)
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "joined (participation %d)\n", res.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&req.Message, "message", "m", "", "cheer message")
	cmd.Flags().StringVarP(&req.Prefecture, "prefecture", "p", "", "prefecture (defaults to your saved profile)")
	cmd.Flags().StringVarP(&gender, "gender", "g", "", "male, female or unspecified (defaults to your saved profile)")
	cmd.Flags().BoolVar(&req.AllowVideoUse, "allow-video", false, "allow the host to use your message in videos")
	cmd.Flags().StringArrayVarP(&companions, "companion", "c", nil, "companion as name, @handle or name@handle (repeatable)")
	_ = cmd.RegisterFlagCompletionFunc("prefecture", completePrefecture)
	return cmd
}

func completePrefecture(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	var out []string
	for _, name := range prefecture.All() {
		if strings.HasPrefix(name, toComplete) {
			out = append(out, name)
		}
	}
	return out, cobra.ShellCompDirectiveNoFileComp
}

func parseCompanion(s string) service.CompanionRequest {
	name, handle, ok := strings.Cut(s, "@")
	if !ok {
		return service.CompanionRequest{Name: strings.TrimSpace(s)}
	}
	return service.CompanionRequest{Name: strings.TrimSpace(name), Handle: strings.TrimSpace(handle)}
}
