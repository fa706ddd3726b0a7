package cmd

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/templui/doin/internal/app"
	"github.com/templui/doin/internal/auth"
	"github.com/templui/doin/internal/config"
	"github.com/templui/doin/internal/logger"
	"github.com/templui/doin/internal/model"
)

var errNoSecret = errors.New("JWT_SECRET is required to use --token")

// withApp builds the app for one command and closes it afterwards.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	cfg := config.Load()
	logger.Init(cfg.IsDevelopment(), cfg.SentryDSN, cfg.AppEnv)
	defer logger.Flush()

	ctx := cmd.Context()
	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(ctx, a)
}

func identityProvider(cmd *cobra.Command, a *app.App) (*auth.TokenIdentity, error) {
	token, _ := cmd.Flags().GetString("token")
	if token != "" && a.Tokens == nil {
		return nil, errNoSecret
	}
	return auth.NewTokenIdentity(a.Tokens, token), nil
}

func identity(cmd *cobra.Command, a *app.App) (*model.Identity, error) {
	ids, err := identityProvider(cmd, a)
	if err != nil {
		return nil, err
	}
	return ids.Identity(cmd.Context())
}

func parseID(s, what string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s id: %q", what, s)
	}
	return id, nil
}
