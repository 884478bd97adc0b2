package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/observatoire/observatoire/internal/config"
	"github.com/observatoire/observatoire/internal/store"
	"github.com/observatoire/observatoire/internal/store/mongo"
	"github.com/observatoire/observatoire/internal/store/postgres"
)

// backend is an opened repository plus its seeding side and shutdown hook.
type backend struct {
	store.Repository
	store.Seeder

	close func()
}

// openBackend connects to the configured store. Postgres schemas are
// migrated when migrate is set.
func openBackend(ctx context.Context, cfg config.StoreConfig, migrate bool) (*backend, error) {
	switch cfg.Backend {
	case config.BackendFile:
		fs := store.NewFileStore(cfg.Path)
		return &backend{Repository: fs, Seeder: fs, close: func() {}}, nil

	case config.BackendPostgres:
		dsn := cfg.DSN()
		if dsn == "" {
			return nil, fmt.Errorf("store: environment variable %s is empty", cfg.DSNEnv)
		}
		pg, err := postgres.Connect(ctx, dsn)
		if err != nil {
			return nil, err
		}
		if migrate {
			if err := pg.Migrate(ctx); err != nil {
				pg.Close()
				return nil, err
			}
		}
		return &backend{Repository: pg, Seeder: pg, close: pg.Close}, nil

	case config.BackendMongo:
		dsn := cfg.DSN()
		if dsn == "" {
			return nil, fmt.Errorf("store: environment variable %s is empty", cfg.DSNEnv)
		}
		m, err := mongo.Connect(ctx, dsn, cfg.Database, cfg.Collection)
		if err != nil {
			return nil, err
		}
		return &backend{Repository: m, Seeder: m, close: func() {
			if err := m.Close(context.Background()); err != nil {
				slog.Warn("mongo: disconnect", "err", err)
			}
		}}, nil

	default:
		return nil, fmt.Errorf("store: unknown backend %q", cfg.Backend)
	}
}
