package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func NewSeedAdminCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		email     string
		password  string
		firstName string
		lastName  string
	)

	cmd := &cobra.Command{
		Use:   "seed-admin",
		Short: "Create an administrator account if the email is not registered",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := rootOpts.cfg
			if email == "" {
				email = cfg.AdminEmail
			}
			if password == "" {
				password = cfg.AdminPassword
			}
			if email == "" || password == "" {
				return fmt.Errorf("--email and --password (or ADMIN_EMAIL/ADMIN_PASSWORD) are required")
			}

			rt, err := buildRuntime(cmd.Context(), cfg, rootOpts.logger)
			if err != nil {
				return err
			}
			defer rt.Close()

			user, created, err := rt.auth.EnsureAdmin(cmd.Context(), email, password, firstName, lastName)
			if err != nil {
				return err
			}
			if created {
				fmt.Fprintf(cmd.OutOrStdout(), "administrator %s created\n", user.Email)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "%s already registered (role %s)\n", user.Email, user.Role)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "administrator email")
	cmd.Flags().StringVar(&password, "password", "", "administrator password")
	cmd.Flags().StringVar(&firstName, "first-name", "Admin", "first name")
	cmd.Flags().StringVar(&lastName, "last-name", "IdeaFlow", "last name")
	return cmd
}

func NewPruneRevocationsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "prune-revocations",
		Short: "Delete revoked-token entries whose tokens have expired",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := buildRuntime(cmd.Context(), rootOpts.cfg, rootOpts.logger)
			if err != nil {
				return err
			}
			defer rt.Close()

			removed, err := rt.revocations.Prune(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d revocation(s) pruned\n", removed)
			return nil
		},
	}
}
