package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/aquareuse/directory-api/internal/config"
	"github.com/aquareuse/directory-api/internal/warehouse"
	"github.com/aquareuse/directory-api/pkg/storefront"
)

// openWarehouse builds a warehouse for the configured driver.
func openWarehouse(ctx context.Context, cfg *config.Config) (warehouse.Warehouse, error) {
	dsn := cfg.Warehouse.DatabaseURL
	if cfg.Warehouse.Driver == warehouse.DriverSQLite {
		dsn = cfg.Warehouse.Path
	}
	return warehouse.New(ctx, cfg.Warehouse.Driver, dsn, &warehouse.PoolConfig{
		MaxConns: cfg.Warehouse.Pool.MaxConns,
		MinConns: cfg.Warehouse.Pool.MinConns,
	})
}

// openPostgres builds the Postgres warehouse, which the seed commands need
// for direct pool access.
func openPostgres(ctx context.Context, cfg *config.Config) (*warehouse.Postgres, error) {
	if cfg.Warehouse.Driver != warehouse.DriverPostgres {
		return nil, eris.New("this command requires the postgres warehouse driver")
	}
	return warehouse.NewPostgres(ctx, cfg.Warehouse.DatabaseURL, &warehouse.PoolConfig{
		MaxConns: cfg.Warehouse.Pool.MaxConns,
		MinConns: cfg.Warehouse.Pool.MinConns,
	})
}

// newStorefront builds the storefront client, or nil when unconfigured.
func newStorefront(cfg *config.Config) storefront.Client {
	if cfg.Storefront.BaseURL == "" {
		return nil
	}
	return storefront.NewClient(cfg.Storefront.Token,
		storefront.WithBaseURL(cfg.Storefront.BaseURL),
		storefront.WithRateLimit(cfg.Storefront.RPS),
	)
}
