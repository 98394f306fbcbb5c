// Package driver opens the account store selected by configuration.
package driver

import (
	"context"
	"fmt"

	"account-grid/pkg/config"
	"account-grid/pkg/logging"
	"account-grid/pkg/store"
	"account-grid/pkg/store/memory"
	"account-grid/pkg/store/postgres"
	"account-grid/pkg/store/redis"

	"go.uber.org/zap"
)

// Resetter is implemented by stores that can drop every account.
type Resetter interface {
	Reset(ctx context.Context) error
}

// Open connects to the store named by cfg.Driver.
func Open(cfg config.StoreConfig) (store.AppendStore, error) {
	logger := logging.Global().Named("store")

	switch cfg.Driver {
	case config.DriverMemory, "":
		logger.Info("using in-memory store")
		return memory.NewMemoryStore(memory.MemoryStoreConfig{Name: config.DriverMemory}), nil

	case config.DriverRedis:
		rc := redis.DefaultRedisStoreConfig()
		rc.Addr = cfg.Redis.Addr
		rc.Password = cfg.Redis.Password
		rc.DB = cfg.Redis.DB
		rc.KeyPrefix = cfg.Redis.KeyPrefix

		s, err := redis.NewRedisStore(rc)
		if err != nil {
			return nil, err
		}
		logger.Info("connected to redis", zap.String("addr", rc.Addr), zap.Int("db", rc.DB))
		return s, nil

	case config.DriverPostgres:
		pc := postgres.DefaultConfig()
		pc.Host = cfg.Postgres.Host
		pc.Port = cfg.Postgres.Port
		pc.User = cfg.Postgres.User
		pc.Password = cfg.Postgres.Password
		pc.Database = cfg.Postgres.Database
		pc.SSLMode = cfg.Postgres.SSLMode

		s, err := postgres.NewPostgresStore(pc)
		if err != nil {
			return nil, err
		}
		logger.Info("connected to postgres",
			zap.String("host", pc.Host),
			zap.Int("port", pc.Port),
			zap.String("database", pc.Database),
		)
		return s, nil

	default:
		return nil, fmt.Errorf("store: unknown driver %q", cfg.Driver)
	}
}
