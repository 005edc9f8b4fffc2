package service

import (
	"context"
	"fmt"

	"github.com/okian/upskill/internal/adapters/repository"
	"github.com/okian/upskill/internal/config"
	"github.com/okian/upskill/internal/domain/focus"
	"github.com/okian/upskill/pkg/logger"
)

// Open builds and starts a Service from cfg: it opens the configured store,
// seeds the catalog when one is named and sizes the focus engine.
func Open(ctx context.Context, cfg *config.Config, log logger.Logger) (*Service, error) {
	path := ""
	if cfg.SQLiteStore() {
		path = cfg.SQLitePath
	}
	store, err := repository.Open(ctx, cfg.StoreDriver, path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	if cfg.CatalogPath != "" {
		catalog, err := repository.LoadCatalog(cfg.CatalogPath)
		if err == nil {
			err = repository.Seed(ctx, store, catalog)
		}
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		log.Info(ctx, "catalog seeded",
			logger.String("path", cfg.CatalogPath),
			logger.Int("roles", len(catalog.Roles)),
			logger.Int("modules", len(catalog.Modules)),
		)
	}

	svc := New(
		WithStore(store),
		WithLogger(log),
		WithFocusEngine(focus.New(focus.WithLimit(cfg.FocusLimit), focus.WithSuggestions(cfg.FocusSuggestions))),
	)
	if err := svc.Start(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return svc, nil
}
