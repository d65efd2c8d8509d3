package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS documents (
	path       TEXT PRIMARY KEY,
	body       BLOB NOT NULL,
	updated_at TEXT NOT NULL
)`

// SQLiteStore persists documents in an embedded SQLite database. Suited for
// single-node deployments; subscriptions are in-process only.
type SQLiteStore struct {
	db    *sql.DB
	notes *notifier
}

// NewSQLite bootstraps the documents table and returns the store. The caller
// owns the db handle's lifetime.
func NewSQLite(ctx context.Context, db *sql.DB) (*SQLiteStore, error) {
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		return nil, fmt.Errorf("docstore: create documents table: %w", err)
	}
	return &SQLiteStore{db: db, notes: newNotifier()}, nil
}

// Read implements Store.
func (s *SQLiteStore) Read(ctx context.Context, kp KeyPath) (json.RawMessage, error) {
	if err := kp.Validate(); err != nil {
		return nil, err
	}
	var body []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT body FROM documents WHERE path = ?`, kp.String()).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotExist
	}
	if err != nil {
		return nil, fmt.Errorf("docstore: read %s: %w", kp, err)
	}
	return body, nil
}

// Write implements Store. Merge reads and rewrites the stored document in a
// single transaction; SQLite's single-writer locking makes that atomic.
func (s *SQLiteStore) Write(ctx context.Context, kp KeyPath, doc json.RawMessage, merge bool) error {
	if err := kp.Validate(); err != nil {
		return err
	}
	path := kp.String()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("docstore: begin write %s: %w", kp, err)
	}
	defer func() { _ = tx.Rollback() }()

	final := doc
	if merge {
		var stored []byte
		err := tx.QueryRowContext(ctx,
			`SELECT body FROM documents WHERE path = ?`, path).Scan(&stored)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			// nothing to merge over
		case err != nil:
			return fmt.Errorf("docstore: read for merge %s: %w", kp, err)
		default:
			if final, err = mergeDocuments(stored, doc); err != nil {
				return err
			}
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO documents (path, body, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`,
		path, []byte(final), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("docstore: write %s: %w", kp, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("docstore: commit write %s: %w", kp, err)
	}

	s.notes.publish(path, final)
	return nil
}

// Delete implements Store.
func (s *SQLiteStore) Delete(ctx context.Context, kp KeyPath) error {
	if err := kp.Validate(); err != nil {
		return err
	}
	path := kp.String()
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE path = ?`, path)
	if err != nil {
		return fmt.Errorf("docstore: delete %s: %w", kp, err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		s.notes.publish(path, nil)
	}
	return nil
}

// Subscribe implements Store.
func (s *SQLiteStore) Subscribe(ctx context.Context, kp KeyPath, onSnapshot SnapshotFunc, onError ErrorFunc) (UnsubscribeFunc, error) {
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
