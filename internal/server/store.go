package server

import (
	"context"
	"fmt"
	"log/slog"

	"usersvc/internal/config"
	"usersvc/internal/repositories"
)

// Closer releases a store's resources.
type Closer func(ctx context.Context) error

// OpenStore connects the user repository selected by cfg.StoreDriver.
func OpenStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (repositories.UserRepository, Closer, error) {
	switch cfg.StoreDriver {
	case config.DriverMongo:
		client, err := repositories.OpenMongo(ctx, cfg.MongoURI)
		if err != nil {
			return nil, nil, err
		}
		repo := repositories.NewMongoUserRepository(client, cfg.MongoDatabase)
		if err := repo.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(ctx)
			return nil, nil, err
		}
		logger.Info("user store ready", "driver", cfg.StoreDriver, "database", cfg.MongoDatabase)
		return repo, client.Disconnect, nil

	case config.DriverPostgres, config.DriverSQLite:
		db, err := repositories.OpenGORM(cfg.StoreDriver, cfg.DatabaseDSN)
		if err != nil {
			return nil, nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to get sql handle: %w", err)
		}
		logger.Info("user store ready", "driver", cfg.StoreDriver)
		return repositories.NewGORMUserRepository(db), func(context.Context) error { return sqlDB.Close() }, nil

	case config.DriverMemory:
		logger.Warn("using in-memory user store; accounts are lost on restart")
		return repositories.NewMemoryUserRepository(), func(context.Context) error { return nil }, nil
	}
	return nil, nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
}
