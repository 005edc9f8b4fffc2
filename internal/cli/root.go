// Package cli implements upskillctl, the operator command line for a
// profile store: inspect profiles, focus sets and audit logs, seed the
// catalog and push events without running the HTTP server.
package cli

import (
	"context"
	"encoding/json"
	"io"
	"os"

	service "github.com/okian/upskill/internal/app"
	"github.com/okian/upskill/internal/config"
	"github.com/okian/upskill/pkg/logger"
	"github.com/spf13/cobra"
)

// NewRootCommand builds the upskillctl command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "upskillctl",
		Short:         "Inspect and drive an upskill profile store",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("store", "", "Store driver, memory or sqlite (overrides UPSKILL_STORE_DRIVER)")
	root.PersistentFlags().String("db", "", "Path to SQLite database file (overrides UPSKILL_SQLITE_PATH)")
	root.PersistentFlags().String("catalog", "", "Catalog YAML seeded before the command runs (overrides UPSKILL_CATALOG_PATH)")
	root.PersistentFlags().Bool("verbose", false, "Log supervisor activity to stderr")

	root.AddCommand(newProfileCmd(), newFocusCmd(), newAuditCmd(), newSeedCmd(), newHandleCmd())
	return root
}

// Execute runs the command tree against os.Args.
func Execute() error {
	return NewRootCommand().Execute()
}

// resolveConfig loads the layered config and applies flag overrides.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(ctxOf(cmd))
	if err != nil {
		return nil, err
	}
	if v, _ := cmd.Flags().GetString("store"); v != "" {
		cfg.StoreDriver = v
	}
	if v, _ := cmd.Flags().GetString("db"); v != "" {
		cfg.SQLitePath = v
		if !cmd.Flags().Changed("store") {
			cfg.StoreDriver = config.StoreSQLite
		}
	}
	if v, _ := cmd.Flags().GetString("catalog"); v != "" {
		cfg.CatalogPath = v
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func openService(cmd *cobra.Command) (*service.Service, error) {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return nil, err
	}
	return service.Open(ctxOf(cmd), cfg, commandLogger(cmd))
}

func commandLogger(cmd *cobra.Command) logger.Logger {
	if v, _ := cmd.Flags().GetBool("verbose"); !v {
		return logger.Discard()
	}
	if err := logger.Init(logger.WithWriter(cmd.ErrOrStderr())); err != nil {
		return logger.Discard()
	}
	_ = logger.SetLevelString("debug")
	return logger.Named("upskillctl")
}

func ctxOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func printJSON(w io.Writer, v any) error {
	if w == nil {
		w = os.Stdout
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
