package cli

import (
	"fmt"

	"github.com/okian/upskill/internal/domain/model"
	"github.com/spf13/cobra"
)

func newProfileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "profile <user_id>",
		Short: "Print a user's skill profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := openService(cmd)
			if err != nil {
				return err
			}
			defer svc.Stop()

			p, err := svc.Profile(ctxOf(cmd), args[0])
			if err != nil {
				return err
			}
			if p == nil {
				return fmt.Errorf("%w: profile for %s", ErrNotFound, args[0])
			}
			return printJSON(cmd.OutOrStdout(), p)
		},
	}
}

func newFocusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "focus <user_id>",
		Short: "Print a user's current focus set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := openService(cmd)
			if err != nil {
				return err
			}
			defer svc.Stop()

			f, err := svc.Focus(ctxOf(cmd), args[0])
			if err != nil {
				return err
			}
			if f == nil {
				return fmt.Errorf("%w: focus set for %s", ErrNotFound, args[0])
			}
			return printJSON(cmd.OutOrStdout(), f)
		},
	}
}

func newAuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit <user_id>",
		Short: "Print a user's audit log in append order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := openService(cmd)
			if err != nil {
				return err
			}
			defer svc.Stop()

			entries, err := svc.Audit(ctxOf(cmd), args[0])
			if err != nil {
				return err
			}
			if tail, _ := cmd.Flags().GetInt("tail"); tail > 0 && tail < len(entries) {
				entries = entries[len(entries)-tail:]
			}
			if entries == nil {
				entries = []model.AuditEntry{}
			}
			return printJSON(cmd.OutOrStdout(), entries)
		},
	}
	cmd.Flags().Int("tail", 0, "Only print the last N entries")
	return cmd
}
