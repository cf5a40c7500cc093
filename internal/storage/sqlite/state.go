package sqlite

import (
	"context"
	"database/sql"

	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/types"
)

// GetState reads a processing_state value, returning "" if the key has
// never been written (every key in types.State* defaults to its zero value
// on a fresh database).
func (s *Store) GetState(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM processing_state WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", wrapDBError("get_state", err)
	}
	return value, nil
}

// SetState writes a processing_state value.
func (s *Store) SetState(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO processing_state (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, now())
	if err != nil {
		return wrapDBError("set_state", err)
	}
	return nil
}

// ErrAlreadyRunning names the "another tick is already in progress" case.
// TryAcquireCronLock does not return it; it reports a held lock as
// (false, nil).
var ErrAlreadyRunning = sql.ErrTxDone

// TryAcquireCronLock implements spec §5's single-flight guarantee: a tick
// will not start while cron_in_progress is already "1". SQLite's
// single-writer semantics make the read-then-write atomic as long as it
// runs inside one transaction against the MaxOpenConns(1) connection, the
// same way the teacher serializes state transitions through a single
// locked connection rather than a separate advisory-lock primitive.
func (s *Store) TryAcquireCronLock(ctx context.Context) (bool, error) {
	acquired := false
	err := s.WithTx(ctx, func(tx *sql.Tx) error {
		var value string
		err := tx.QueryRowContext(ctx, `SELECT value FROM processing_state WHERE key = ?`, types.StateCronInProgress).Scan(&value)
		if err != nil && err != sql.ErrNoRows {
			return err
		}
		if value == "1" {
			return nil
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO processing_state (key, value, updated_at) VALUES (?, '1', ?)
			ON CONFLICT(key) DO UPDATE SET value = '1', updated_at = excluded.updated_at
		`, types.StateCronInProgress, now())
		if err != nil {
			return err
		}
		acquired = true
		return nil
	})
	if err != nil {
		return false, wrapDBError("try_acquire_cron_lock", err)
	}
	return acquired, nil
}

// ReleaseCronLock clears cron_in_progress, always called from a deferred
// orchestrator cleanup so a panicking phase never wedges the lock open.
func (s *Store) ReleaseCronLock(ctx context.Context) error {
	return s.SetState(ctx, types.StateCronInProgress, "0")
}

// IncrementCounter atomically bumps a processing_state counter key,
// storing the new value as text -- the binary filter's "defaulted" tally
// (spec §9 open question b) uses this to avoid a read-modify-write race
// against concurrent filter workers.
func (s *Store) IncrementCounter(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO processing_state (key, value, updated_at) VALUES (?, '1', ?)
		ON CONFLICT(key) DO UPDATE SET
			value = CAST(CAST(value AS INTEGER) + 1 AS TEXT),
			updated_at = excluded.updated_at
	`, key, now())
	if err != nil {
		return wrapDBError("increment_counter", err)
	}
	return nil
}
