package cli

import (
	"context"
	"errors"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lukasbauer/hypoteka/internal/store"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the top-level "hypoctl" command and registers all
// subcommands.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "hypoctl",
		Short:         "Offline turn replay and operator tooling for the mortgage assistant",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newReplayCmd(),
		newTokenCmd(),
		newMigrateCmd(),
		newTenantCmd(),
		newFragmentsCmd(),
		newConfigCmd(),
	)

	return root
}

// dbFlag binds --database-url, defaulting to DATABASE_URL.
func dbFlag(cmd *cobra.Command, dst *string) {
	cmd.Flags().StringVar(dst, "database-url", os.Getenv("DATABASE_URL"), "Postgres connection string")
}

// withStore opens a pool for one command and closes it afterwards.
func withStore(ctx context.Context, dbURL string, fn func(*store.Store) error) error {
	if dbURL == "" {
		return errors.New("--database-url or DATABASE_URL is required")
	}
	db, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.Ping(ctx); err != nil {
		return err
	}
	return fn(store.New(db))
}
