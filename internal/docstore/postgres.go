package docstore

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Migrations holds the schema for the postgres documents table, applied by
// the factory before the pool is handed to NewPostgres.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory name inside Migrations.
const MigrationsDir = "migrations"

// PostgresStore persists documents in PostgreSQL for shared deployments.
// Subscriptions are in-process; processes do not see each other's writes
// until they re-read.
type PostgresStore struct {
	pool  *pgxpool.Pool
	notes *notifier
}

// NewPostgres wraps an existing pool. The schema must already be migrated.
func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, notes: newNotifier()}
}

// Read implements Store.
func (s *PostgresStore) Read(ctx context.Context, kp KeyPath) (json.RawMessage, error) {
	if err := kp.Validate(); err != nil {
		return nil, err
	}
	var body []byte
	err := s.pool.QueryRow(ctx,
		`SELECT body FROM documents WHERE path = $1`, kp.String()).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotExist
	}
	if err != nil {
		return nil, fmt.Errorf("docstore: read %s: %w", kp, err)
	}
	return body, nil
}

// Write implements Store. Merge locks the stored row for the duration of the
// read-modify-write.
func (s *PostgresStore) Write(ctx context.Context, kp KeyPath, doc json.RawMessage, merge bool) error {
	if err := kp.Validate(); err != nil {
		return err
	}
	path := kp.String()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("docstore: begin write %s: %w", kp, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	final := doc
	if merge {
		var stored []byte
		err := tx.QueryRow(ctx,
			`SELECT body FROM documents WHERE path = $1 FOR UPDATE`, path).Scan(&stored)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			// nothing to merge over
		case err != nil:
			return fmt.Errorf("docstore: read for merge %s: %w", kp, err)
		default:
			if final, err = mergeDocuments(stored, doc); err != nil {
				return err
			}
		}
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO documents (path, body, updated_at) VALUES ($1, $2, now())
		 ON CONFLICT (path) DO UPDATE SET body = EXCLUDED.body, updated_at = EXCLUDED.updated_at`,
		path, []byte(final))
	if err != nil {
		return fmt.Errorf("docstore: write %s: %w", kp, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("docstore: commit write %s: %w", kp, err)
	}

	s.notes.publish(path, final)
	return nil
}

// Delete implements Store.
func (s *PostgresStore) Delete(ctx context.Context, kp KeyPath) error {
	if err := kp.Validate(); err != nil {
		return err
	}
	path := kp.String()
	tag, err := s.pool.Exec(ctx, `DELETE FROM documents WHERE path = $1`, path)
	if err != nil {
		return fmt.Errorf("docstore: delete %s: %w", kp, err)
	}
	if tag.RowsAffected() > 0 {
		s.notes.publish(path, nil)
	}
	return nil
}

// Subscribe implements Store.
func (s *PostgresStore) Subscribe(ctx context.Context, kp KeyPath, onSnapshot SnapshotFunc, onError ErrorFunc) (UnsubscribeFunc, error) {
	if err := kp.Validate(); err != nil {
		return nil, err
	}
	unsubscribe := s.notes.subscribe(kp.String(), onSnapshot, onError)

	doc, err := s.Read(ctx, kp)
	switch {
	case errors.Is(err, ErrNotExist):
		onSnapshot(nil)
	case err != nil:
		unsubscribe()
		return nil, err
	default:
		onSnapshot(doc)
	}
	return unsubscribe, nil
}
