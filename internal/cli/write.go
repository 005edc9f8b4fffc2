package cli

import (
	"fmt"

	"github.com/okian/upskill/internal/adapters/repository"
	"github.com/okian/upskill/internal/eventreplay"
	"github.com/spf13/cobra"
)

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed <catalog.yaml>",
		Short: "Validate a catalog and write its roles and modules to the store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			catalog, err := repository.LoadCatalog(args[0])
			if err != nil {
				return err
			}
			path := ""
			if cfg.SQLiteStore() {
				path = cfg.SQLitePath
			}
			store, err := repository.Open(ctxOf(cmd), cfg.StoreDriver, path)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := repository.Seed(ctxOf(cmd), store, catalog); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "seeded %d roles and %d modules into %s\n",
				len(catalog.Roles), len(catalog.Modules), store.Driver())
			return err
		},
	}
}

// newHandleCmd pushes events from a file through the supervisor one by one,
// printing each result as a JSON line.
func newHandleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "handle <events.json>",
		Short: "Handle one or more events from a JSON or JSON-lines file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := eventreplay.ReadFile(args[0])
			if err != nil {
				return err
			}
			svc, err := openService(cmd)
			if err != nil {
				return err
			}
			defer svc.Stop()

			strict, _ := cmd.Flags().GetBool("strict")
			failed := 0
			out := cmd.OutOrStdout()
			for _, r := range records {
				res := svc.HandleEvent(ctxOf(cmd), r.Raw)
				line, err := res.MarshalJSON()
				if err != nil {
					return err
				}
				if _, err := fmt.Fprintln(out, string(line)); err != nil {
					return err
				}
				if res.Failed() {
					failed++
				}
			}
			if strict && failed > 0 {
				return fmt.Errorf("%w: %d of %d events", ErrEventsFailed, failed, len(records))
			}
			return nil
		},
	}
	cmd.Flags().Bool("strict", false, "Exit non-zero when any event returns an error")
	return cmd
}
