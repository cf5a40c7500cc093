package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// applyMigrations runs the handful of schema changes that postdate the base
// CREATE TABLE IF NOT EXISTS block in schema.go. Each one follows the
// teacher's idempotent-migration shape (internal/storage/sqlite/migrations):
// check PRAGMA table_info before altering, so re-running against an
// already-migrated database is always a no-op.
func applyMigrations(ctx context.Context, db *sql.DB) error {
	if err := migrateGeoSignalsColumn(ctx, db); err != nil {
		return err
	}
	if err := migrateClusterVersionColumn(ctx, db); err != nil {
		return err
	}
	return nil
}

// migrateGeoSignalsColumn adds pain_records.geo_signals for databases
// created before geo-tagging (C11) existed, matching the column the base
// schema already declares for new databases.
func migrateGeoSignalsColumn(ctx context.Context, db *sql.DB) (retErr error) {
	exists, err := columnExists(ctx, db, "pain_records", "geo_signals")
	if err != nil {
		return wrapDBError("migrate_geo_signals", err)
	}
	if exists {
		return nil
	}
	if _, err := db.ExecContext(ctx, `ALTER TABLE pain_records ADD COLUMN geo_signals TEXT`); err != nil {
		return wrapDBError("migrate_geo_signals", err)
	}
	return nil
}

// migrateClusterVersionColumn adds pain_clusters.version for databases
// created before cluster re-synthesis (I5) tracked a monotonic version.
func migrateClusterVersionColumn(ctx context.Context, db *sql.DB) error {
	exists, err := columnExists(ctx, db, "pain_clusters", "version")
	if err != nil {
		return wrapDBError("migrate_cluster_version", err)
	}
	if exists {
		return nil
	}
	if _, err := db.ExecContext(ctx, `ALTER TABLE pain_clusters ADD COLUMN version INTEGER NOT NULL DEFAULT 0`); err != nil {
		return wrapDBError("migrate_cluster_version", err)
	}
	return nil
}

// columnExists walks PRAGMA table_info(table) the way the teacher's
// MigrateExternalRefColumn does, closing rows before returning so a single
// MaxOpenConns(1) connection is never left holding an open cursor across
// the subsequent ALTER TABLE.
func columnExists(ctx context.Context, db *sql.DB, table, column string) (found bool, retErr error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, err
	}
	defer func() {
		if rows != nil {
			if cerr := rows.Close(); cerr != nil {
				retErr = errors.Join(retErr, fmt.Errorf("close schema rows: %w", cerr))
			}
		}
	}()

	for rows.Next() {
		var (
			cid        int
			name       string
			ctype      string
			notnull    int
			dfltValue  sql.NullString
			pk         int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			return false, err
		}
		if name == column {
			found = true
			break
		}
	}
	if err := rows.Err(); err != nil {
		return false, err
	}
	return found, nil
}
