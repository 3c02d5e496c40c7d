package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fitstack/checkout-bridge/config"
	"github.com/fitstack/checkout-bridge/docstore"
	"github.com/fitstack/checkout-bridge/docstore/memory"
	"github.com/fitstack/checkout-bridge/internal/platform/firestoredb"
	"github.com/fitstack/checkout-bridge/internal/platform/postgres"
)

// openStore connects the configured document store backend. The returned
// func releases it.
func openStore(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (docstore.Store, func(), error) {
	switch cfg.Backend {
	case "memory":
		logger.Warn("using in-memory document store, data is lost on exit")
		return memory.New(), func() {}, nil

	case "firestore":
		store, err := firestoredb.Open(ctx, cfg.ProjectID())
		if err != nil {
			return nil, nil, err
		}
		return store, func() {
			if err := store.Close(); err != nil {
				logger.Error("failed to close firestore client", "error", err)
			}
		}, nil

	case "postgres":
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to database: %w", err)
		}
		if err := postgres.RunMigrations(cfg.DatabaseURL, postgres.MigrationsFS()); err != nil {
			pool.Close()
			return nil, nil, err
		}
		store := postgres.New(pool, logger)
		return store, func() {
			store.Close()
			pool.Close()
		}, nil

	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}
