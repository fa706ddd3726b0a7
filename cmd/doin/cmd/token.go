package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/templui/doin/internal/auth"
	"github.com/templui/doin/internal/config"
	"github.com/templui/doin/internal/model"
)

func TokenCmd() *cobra.Command {
	var (
		id     model.Identity
		gender string
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign a bearer token for a Twitter identity (local testing)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if cfg.JWTSecret == "" {
				return errNoSecret
			}
			id.SavedGender = model.Gender(gender)
			token, err := issueToken(auth.NewTokenService(cfg.JWTSecret, cfg.JWTExpiry), &id)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&id.TwitterID, "twitter-id", "", "Twitter user id (required)")
	cmd.Flags().StringVar(&id.Handle, "handle", "", "Twitter handle")
	cmd.Flags().StringVar(&id.DisplayName, "name", "", "display name")
	cmd.Flags().StringVar(&id.SavedPrefecture, "prefecture", "", "saved prefecture")
	cmd.Flags().StringVar(&gender, "gender", "", "saved gender")
	_ = cmd.RegisterFlagCompletionFunc("prefecture", completePrefecture)
	return cmd
}

func issueToken(tokens *auth.TokenService, id *model.Identity) (string, error) {
	if id.TwitterID == "" {
		return "", errors.New("--twitter-id is required")
	}
	token, err := tokens.Issue(id)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return token, nil
}
