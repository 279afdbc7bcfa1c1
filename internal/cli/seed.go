package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"agency/internal/agency"
	"agency/internal/config"
	"agency/internal/docstore"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newSeedCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Write placeholder talent and posts, and grant admin to the configured emails",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(*cfg)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.seed(cmd.Context())
		},
	}
}

func newGrantAdminCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "grant-admin <email>...",
		Short: "Grant the admin role to existing accounts",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			for _, email := range args {
				if err := a.grantAdmin(cmd.Context(), email); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "granted admin to %s\n", strings.TrimSpace(email))
			}
			return nil
		},
	}
}

func (a *app) seed(ctx context.Context) error {
	if _, err := agency.Seed(ctx, a.store, a.logger.Named("seed")); err != nil {
		return fmt.Errorf("seed store: %w", err)
	}

	for _, email := range a.cfg.AdminEmails {
		err := a.grantAdmin(ctx, email)
		if errors.Is(err, docstore.ErrNotFound) {
			a.logger.Warn("admin email has no account yet", zap.String("email", email))
			continue
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (a *app) grantAdmin(ctx context.Context, email string) error {
	uid, err := a.identity.LookupUID(ctx, email)
	if err != nil {
		return fmt.Errorf("grant admin to %s: %w", email, err)
	}
	return a.service.GrantAdmin(ctx, uid, strings.TrimSpace(strings.ToLower(email)))
}
