// Package main creates the sheets of the configured store and optionally
// imports products from an Excel workbook.
//
//	seed [products.xlsx]
package main

import (
	"context"
	"fmt"
	"os"

	"stockbook/internal/config"
	"stockbook/internal/domain/resource"
	"stockbook/internal/infrastructure/importer"
	"stockbook/internal/infrastructure/storage"
	"stockbook/pkg/logger"
)

func main() {
	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}
	logger.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalw("failed to load config", "error", err)
	}

	ctx := context.Background()
	store, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		log.Fatalw("failed to open storage", "driver", cfg.Storage.Driver, "error", err)
	}
	defer store.Close()

	path := os.Getenv("SEED_PRODUCTS_FILE")
	if len(os.Args) > 1 {
		path = os.Args[1]
	}
	if path == "" {
		log.Info("sheets ready, no product workbook given")
		return
	}

	f, err := os.Open(path)
	if err != nil {
		log.Fatalw("failed to open product workbook", "path", path, "error", err)
	}
	defer f.Close()

	res, err := importer.Products(ctx, resource.NewDispatcher(store), f)
	if err != nil {
		log.Fatalw("product import failed", "path", path, "error", err)
	}
	log.Infow("seeding completed successfully", "imported", res.Imported, "skipped", res.Skipped)
}
