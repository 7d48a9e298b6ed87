// Package storage selects the sheet store named by the configuration.
package storage

import (
	"context"
	"fmt"

	"stockbook/internal/config"
	"stockbook/internal/domain/sheet"
	"stockbook/internal/infrastructure/storage/memory"
	"stockbook/internal/infrastructure/storage/postgres"
	"stockbook/internal/infrastructure/storage/sqlite"
	"stockbook/internal/infrastructure/storage/xlsx"
	"stockbook/pkg/logger"
)

// Open opens the configured store and makes sure every sheet exists.
func Open(ctx context.Context, cfg config.StorageConfig) (sheet.Store, error) {
	store, err := open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := sheet.EnsureAll(ctx, store, sheet.Tables()); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("ensure sheets: %w", err)
	}
	logger.Info(ctx, "storage ready", "driver", cfg.Driver)
	return store, nil
}

func open(ctx context.Context, cfg config.StorageConfig) (sheet.Store, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return memory.New(), nil
	case config.DriverXLSX:
		return xlsx.Open(cfg.XLSXPath)
	case config.DriverSQLite:
		return sqlite.Open(cfg.SQLitePath)
	case config.DriverPostgres:
		pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(cfg.DatabaseURL))
		if err != nil {
			return nil, err
		}
		return postgres.NewStore(pool), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
