package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/lukasbauer/hypoteka/internal/httpapi"
	"github.com/spf13/cobra"
)

func newTokenCmd() *cobra.Command {
	var (
		secret string
		user   string
		tenant string
		phone  string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a signed access token for a chat frontend, advisor or admin",
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				return errors.New("--secret or JWT_SECRET is required")
			}
			if user == "" {
				return errors.New("--user is required")
			}

			au := httpapi.AuthUser{ID: user, Phone: phone}
			if tenant != "" {
				au.TenantID = &tenant
			}
			tok, exp, err := httpapi.IssueToken(secret, au, ttl)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), tok)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", exp.UTC().Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().StringVar(&secret, "secret", os.Getenv("JWT_SECRET"), "HS256 signing secret")
	cmd.Flags().StringVar(&user, "user", "", "Subject of the token")
	cmd.Flags().StringVar(&tenant, "tenant", "", "Bind the token to a tenant")
	cmd.Flags().StringVar(&phone, "phone", "", "Phone number (admin access when listed in ADMIN_PHONES)")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")

	return cmd
}
