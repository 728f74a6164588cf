package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/bounceheads/directory/internal/auth"
)

func newTokenCommand(ctx *commandContext) *cobra.Command {
	var (
		subject string
		role    string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for the admin endpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			if role != auth.RoleAdmin && role != auth.RoleViewer {
				return fmt.Errorf("unknown role %q", role)
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if ttl <= 0 {
				ttl = cfg.TokenTTL
			}

			token, err := auth.NewJWTManager(cfg.JWTSecret, ttl).GenerateToken(subject, role)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "operator", "Token subject")
	cmd.Flags().StringVar(&role, "role", auth.RoleAdmin, "Token role (admin or viewer)")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime (default JWT_TTL)")

	return cmd
}
