// Package sqlite is the storage layer for every table in spec §3, built on
// modernc.org/sqlite (pure Go, no cgo) the way ehrlich-b-wingthing wires the
// same driver. Query shape and error handling follow the teacher's
// internal/storage/sqlite package: single *sql.DB, context-scoped calls,
// ON CONFLICT upserts, and wrapDBError turning raw driver errors into the
// project's perr taxonomy before they leave this package.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Store wraps a *sql.DB opened against a single SQLite file. Concurrent
// writers contend on SQLite's single-writer lock, so MaxOpenConns(1) keeps
// database/sql from handing out a second connection that would just block
// or fail with SQLITE_BUSY -- the same constraint the teacher's migrations
// call out explicitly around early rows.Close().
type Store struct {
	db *sql.DB
}

// Open creates (if needed) and migrates the SQLite file at path, returning
// a ready-to-use Store. An empty path opens an in-memory database, handy
// for tests.
func Open(ctx context.Context, path string) (*Store, error) {
	dsn := path
	if dsn == "" {
		dsn = ":memory:"
	}
	db, err := sql.Open("sqlite", dsn+"?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// OpenDB wraps an already-open *sql.DB, used by tests that want a shared
// in-memory handle across multiple Store-like helpers.
func OpenDB(ctx context.Context, db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle for callers (migrations, admin tooling)
// that need raw access outside the Store's query methods.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return wrapDBError("migrate", err)
	}
	return applyMigrations(ctx, s.db)
}

// WithTx runs fn inside a transaction, committing on nil error and rolling
// back otherwise -- mirrors the teacher's transaction helper used across
// internal/storage/sqlite's multi-statement writes (e.g. cluster + member
// inserts that must land together).
func (s *Store) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) (retErr error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapDBError("begin_tx", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
			return
		}
		if cerr := tx.Commit(); cerr != nil {
			retErr = wrapDBError("commit_tx", cerr)
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}
	return nil
}

func now() time.Time {
	return time.Now().UTC()
}
