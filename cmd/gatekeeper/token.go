package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nerrad567/gatekeeper-core/internal/auth"
)

func newTokenCmd(opts *rootOptions) *cobra.Command {
	var (
		subject string
		role    string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an operator bearer token for the HTTP API.",
		Long: `Signs a JWT with security.jwt.secret. The token carries the operator's
role (viewer, operator or admin), which selects the API permissions.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if cfg.Security.JWT.Secret == "" {
				return errors.New("security.jwt.secret is not set; authentication is disabled")
			}
			if ttl <= 0 {
				ttl = time.Duration(cfg.Security.JWT.AccessTokenTTL) * time.Minute
			}

			token, err := auth.IssueToken(subject, auth.Role(role), cfg.Security.JWT.Secret, ttl, time.Now())
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVarP(&subject, "subject", "s", "", "operator name recorded in the token (required)")
	cmd.Flags().StringVarP(&role, "role", "r", string(auth.RoleOperator), "viewer, operator or admin")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default security.jwt.access_token_ttl minutes)")
	//nolint:errcheck // flag is defined above
	cmd.MarkFlagRequired("subject")
	return cmd
}
