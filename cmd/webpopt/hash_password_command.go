package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"webpoptimizer/internal/security"
)

func newHashPasswordCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "hash-password <password>",
		Short:       "Print a bcrypt hash for the admin password",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := security.HashPassword(args[0])
			if err != nil {
				return fmt.Errorf("hash password: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, hash)
			fmt.Fprintln(cmd.ErrOrStderr(), "Set it as admin.password_hash in the config file or export WEBPOPT_ADMIN_PASSWORD_HASH.")
			return nil
		},
	}
}
