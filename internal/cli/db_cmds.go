package cli

import (
	"fmt"
	"os"

	"github.com/lukasbauer/hypoteka/internal/store"
	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	var dbURL string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), dbURL, func(s *store.Store) error {
				if err := s.ApplySchema(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "schema applied")
				return nil
			})
		},
	}
	dbFlag(cmd, &dbURL)
	return cmd
}

func newTenantCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenant",
		Short: "Manage tenants",
	}
	cmd.AddCommand(newTenantCreateCmd(), newTenantListCmd())
	return cmd
}

func newTenantCreateCmd() *cobra.Command {
	var dbURL, name string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a tenant and print its id",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), dbURL, func(s *store.Store) error {
				t, err := s.CreateTenant(cmd.Context(), name)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), t.ID)
				return nil
			})
		},
	}
	dbFlag(cmd, &dbURL)
	cmd.Flags().StringVar(&name, "name", "", "Tenant display name")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newTenantListCmd() *cobra.Command {
	var dbURL string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tenants",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), dbURL, func(s *store.Store) error {
				tenants, err := s.ListAllTenants(cmd.Context())
				if err != nil {
					return err
				}
				for _, t := range tenants {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", t.ID, t.Status, t.Name)
				}
				return nil
			})
		},
	}
	dbFlag(cmd, &dbURL)
	return cmd
}

func newFragmentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fragments",
		Short: "Manage tenant prompt fragments",
	}
	cmd.AddCommand(newFragmentsPushCmd())
	return cmd
}

func newFragmentsPushCmd() *cobra.Command {
	var dbURL, tenant, file string

	cmd := &cobra.Command{
		Use:   "push",
		Short: "Validate a fragments YAML file and store it for a tenant",
		Long: `Stores the file for the tenant. Running servers pick it up when the
prompt cache expires or after DELETE /admin/tenants/{id}/prompt-cache.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			return withStore(cmd.Context(), dbURL, func(s *store.Store) error {
				if err := s.UpsertTenantPromptConfig(cmd.Context(), tenant, string(data)); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "fragments stored for tenant %s\n", tenant)
				return nil
			})
		},
	}
	dbFlag(cmd, &dbURL)
	cmd.Flags().StringVar(&tenant, "tenant", "", "Tenant id")
	cmd.Flags().StringVar(&file, "file", "", "Fragments YAML file")
	_ = cmd.MarkFlagRequired("tenant")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Read and write global regulatory config",
	}
	cmd.AddCommand(newConfigSetCmd(), newConfigShowCmd())
	return cmd
}

func newConfigSetCmd() *cobra.Command {
	var dbURL string

	cmd := &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Set a global config value (ltv_max, dsti_max, assumed_rate_pct, ...)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), dbURL, func(s *store.Store) error {
				if err := s.SetGlobalConfig(cmd.Context(), args[0], args[1]); err != nil {
					return err
				}
				// Surface values the server could not parse.
				if _, err := s.RegulatoryConfig(cmd.Context()); err != nil {
					return fmt.Errorf("stored, but config no longer parses: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", args[0], args[1])
				return nil
			})
		},
	}
	dbFlag(cmd, &dbURL)
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	var dbURL string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective regulatory config",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), dbURL, func(s *store.Store) error {
				cfg, err := s.RegulatoryConfig(cmd.Context())
				if err != nil {
					return err
				}
				l, a := cfg.Limits, cfg.Assumptions
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "ltv_max=%.2f ltv_max_young=%.2f\n", l.MaxLTV, l.MaxLTVYoung)
				fmt.Fprintf(out, "dsti_max=%.2f dsti_max_young=%.2f\n", l.MaxDSTI, l.MaxDSTIYoung)
				fmt.Fprintf(out, "dti_max=%.1f dti_max_young=%.1f young_age_below=%d\n", l.MaxDTI, l.MaxDTIYoung, l.YoungAgeBelow)
				fmt.Fprintf(out, "assumed_rate_pct=%.2f assumed_term_years=%d\n", a.RatePct, a.TermYears)
				if cfg.RateContext != "" {
					fmt.Fprintf(out, "rate_context=%s\n", cfg.RateContext)
				}
				return nil
			})
		},
	}
	dbFlag(cmd, &dbURL)
	return cmd
}
