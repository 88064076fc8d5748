// Package bootstrap opens the single backing store selected by configuration.
package bootstrap

import (
	"context"
	"fmt"

	"umkm-inventory/internal/config"
	"umkm-inventory/internal/repository"
	"umkm-inventory/internal/repository/memstore"
	"umkm-inventory/internal/repository/mongostore"
	"umkm-inventory/pkg/database"

	"go.uber.org/zap"
)

// OpenStore connects the configured driver. Postgres schemas are migrated
// when migrate is set.
func OpenStore(ctx context.Context, cfg *config.Config, migrate bool, logger *zap.Logger) (repository.Store, error) {
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		db, err := database.ConnectPostgres(cfg.PostgresDSN(), cfg.Postgres.LogLevel)
		if err != nil {
			return repository.Store{}, err
		}
		if migrate {
			if err := repository.Migrate(db); err != nil {
				return repository.Store{}, fmt.Errorf("migrate: %w", err)
			}
			logger.Info("postgres schema migrated")
		}
		logger.Info("store ready", zap.String("driver", cfg.Store.Driver))
		return repository.NewPostgresStore(db), nil

	case config.DriverMongo:
		client, err := database.ConnectMongo(ctx, cfg.MongoDB.URI)
		if err != nil {
			return repository.Store{}, err
		}
		store, err := mongostore.New(ctx, client, cfg.MongoDB.DBName)
		if err != nil {
			_ = client.Disconnect(context.Background())
			return repository.Store{}, err
		}
		logger.Info("store ready", zap.String("driver", cfg.Store.Driver), zap.String("database", cfg.MongoDB.DBName))
		return store, nil

	case config.DriverMemory:
		logger.Warn("using in-memory store, data is lost on exit")
		return memstore.New(), nil

	default:
		return repository.Store{}, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
