package docstore

import (
	"context"
	"fmt"
	"log/slog"

	"shotlist/internal/platform/pg"
	"shotlist/internal/platform/sqlite"
)

// Driver identifies a document store backend.
type Driver string

const (
	// DriverMemory keeps documents in process memory.
	DriverMemory Driver = "memory"
	// DriverSQLite persists documents in an embedded SQLite file.
	DriverSQLite Driver = "sqlite"
	// DriverPostgres persists documents in PostgreSQL.
	DriverPostgres Driver = "postgres"
)

// OpenOptions selects and configures a backend.
type OpenOptions struct {
	Driver      Driver
	SQLitePath  string
	PostgresDSN string
}

// Open constructs the configured Store and returns it with a close function
// releasing the underlying handles.
func Open(ctx context.Context, opts OpenOptions, log *slog.Logger) (Store, func() error, error) {
	switch opts.Driver {
	case DriverMemory, "":
		log.Info("document store opened", "driver", DriverMemory)
		return NewMemory(), func() error { return nil }, nil

	case DriverSQLite:
		db, err := sqlite.Open(ctx, opts.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite store: %w", err)
		}
		store, err := NewSQLite(ctx, db)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		log.Info("document store opened", "driver", DriverSQLite, "path", opts.SQLitePath)
		return store, db.Close, nil

	case DriverPostgres:
		info, err := pg.ApplyMigrations(opts.PostgresDSN, Migrations, MigrationsDir)
		if err != nil {
			return nil, nil, fmt.Errorf("migrate postgres store: %w", err)
		}
		pool, err := pg.NewPool(ctx, opts.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres store: %w", err)
		}
		log.Info("document store opened",
			"driver", DriverPostgres, "migrations_applied", info.Applied, "schema_version", info.FinalVersion)
		return NewPostgres(pool), func() error { pool.Close(); return nil }, nil

	default:
		return nil, nil, fmt.Errorf("unknown document store driver %q", opts.Driver)
	}
}
