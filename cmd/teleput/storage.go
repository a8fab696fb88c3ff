package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/memohai/teleput/internal/bindings"
	"github.com/memohai/teleput/internal/config"
	"github.com/memohai/teleput/internal/db"
	dbsqlc "github.com/memohai/teleput/internal/db/sqlc"
	storagechecker "github.com/memohai/teleput/internal/healthcheck/checkers/storage"
)

// store is an opened, migrated binding backend.
type store struct {
	Driver  string
	Repo    bindings.Repository
	Pinger  storagechecker.Pinger
	Counter storagechecker.Counter
	Close   func()
}

// openStore migrates the configured backend and opens its repository.
func openStore(ctx context.Context, log *slog.Logger, cfg config.StorageConfig) (*store, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		if err := db.MigratePostgres(log, cfg.Postgres); err != nil {
			return nil, err
		}
		pool, err := db.Open(ctx, cfg.Postgres)
		if err != nil {
			return nil, fmt.Errorf("db connect: %w", err)
		}
		repo := bindings.NewPostgresRepository(dbsqlc.New(pool), pool)
		return &store{
			Driver:  cfg.Driver,
			Repo:    repo,
			Pinger:  pool,
			Counter: repo,
			Close:   pool.Close,
		}, nil
	case config.DriverSQLite, "":
		conn, err := db.OpenSQLite(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		if err := db.MigrateSQLite(log, conn); err != nil {
			_ = conn.Close()
			return nil, err
		}
		repo := bindings.NewSQLiteRepository(conn)
		return &store{
			Driver:  config.DriverSQLite,
			Repo:    repo,
			Pinger:  storagechecker.PingFunc(conn.PingContext),
			Counter: repo,
			Close:   func() { _ = conn.Close() },
		}, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
