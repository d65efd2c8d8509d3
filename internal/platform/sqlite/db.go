// Package sqlite opens embedded SQLite databases tuned for a single-writer
// document store: WAL journaling, busy timeout, foreign keys on.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // sqlite driver
)

// Options configures the connection pool and pragmas.
type Options struct {
	// MaxOpenConns is kept low; SQLite allows one writer at a time.
	MaxOpenConns int
	MaxIdleConns int
	ConnMaxLife  time.Duration
	PingTimeout  time.Duration
	BusyTimeout  time.Duration
	WAL          bool
}

// DefaultOptions returns settings suited for embedded single-writer use.
func DefaultOptions() Options {
	return Options{
		MaxOpenConns: 4,
		MaxIdleConns: 1,
		ConnMaxLife:  time.Hour,
		PingTimeout:  5 * time.Second,
		BusyTimeout:  5 * time.Second,
		WAL:          true,
	}
}

// Open opens (creating if needed) the database at path with default options.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	return OpenWithOptions(ctx, path, DefaultOptions())
}

// OpenMemory opens an in-memory database for tests. The pool is pinned to a
// single connection so all statements see the same schema.
func OpenMemory(ctx context.Context) (*sql.DB, error) {
	opts := DefaultOptions()
	opts.WAL = false // not supported in-memory
	opts.MaxOpenConns = 1
	opts.MaxIdleConns = 1
	return OpenWithOptions(ctx, ":memory:", opts)
}

// OpenWithOptions opens the database at path with explicit options.
func OpenWithOptions(ctx context.Context, path string, opts Options) (*sql.DB, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create database directory %s: %w", dir, err)
			}
		}
	}

	dsn := path
	if opts.BusyTimeout > 0 {
		dsn = fmt.Sprintf("%s?_busy_timeout=%d", path, opts.BusyTimeout.Milliseconds())
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(opts.MaxIdleConns)
	db.SetConnMaxLifetime(opts.ConnMaxLife)

	pingCtx, cancel := context.WithTimeout(ctx, opts.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite database: %w", err)
	}

	if err := applyPragmas(ctx, db, opts); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	return db, nil
}

func applyPragmas(ctx context.Context, db *sql.DB, opts Options) error {
	pragmas := []string{"PRAGMA foreign_keys = ON"}
	if opts.WAL {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL", "PRAGMA synchronous = NORMAL")
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}
