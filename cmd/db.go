package main

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/veritax-advisory/taxhealth-cli/internal/db"
)

// storePool opens the shared Postgres pool from the loaded config.
func storePool(ctx context.Context) (*pgxpool.Pool, error) {
	if cfg.Store.DatabaseURL == "" {
		return nil, eris.New("store.database_url is required (set TAXHEALTH_STORE_DATABASE_URL or config.yaml)")
	}
	pool, err := db.Connect(ctx, cfg.Store.DatabaseURL, &db.ConnectConfig{
		MaxConns: cfg.Store.MaxConns,
		MinConns: cfg.Store.MinConns,
	})
	if err != nil {
		return nil, eris.Wrap(err, "connect to store")
	}
	return pool, nil
}
