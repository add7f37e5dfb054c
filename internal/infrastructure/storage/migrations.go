package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
)

// migration represents a single schema migration.
type migration struct {
	Version    int
	Name       string
	Statements []string
}

// MigrationRunner applies pending schema migrations. The DDL sticks to
// types both sqlite and postgres accept; timestamps are stored as
// RFC 3339 text.
type MigrationRunner struct {
	db         *sql.DB
	dialect    Dialect
	migrations []migration
}

// NewMigrationRunner creates a runner with all registered migrations.
func NewMigrationRunner(db *sql.DB, dialect Dialect) *MigrationRunner {
	return &MigrationRunner{
		db:      db,
		dialect: dialect,
		migrations: []migration{
			{Version: 1, Name: "initial_schema", Statements: []string{
				`CREATE TABLE IF NOT EXISTS tracked_items (
					item_key    TEXT PRIMARY KEY,
					title       TEXT NOT NULL,
					description TEXT NOT NULL,
					status      TEXT NOT NULL,
					categories  TEXT NOT NULL,
					url         TEXT NOT NULL,
					first_seen  TEXT NOT NULL,
					last_seen   TEXT NOT NULL,
					history     TEXT NOT NULL,
					sources     TEXT NOT NULL
				)`,
				`CREATE TABLE IF NOT EXISTS store_meta (
					id         INTEGER PRIMARY KEY,
					last_scan  TEXT NOT NULL,
					scan_count INTEGER NOT NULL
				)`,
				`CREATE TABLE IF NOT EXISTS scan_history (
					scan_id      TEXT PRIMARY KEY,
					log_day      TEXT NOT NULL,
					scan_number  INTEGER NOT NULL,
					completed_at TEXT NOT NULL,
					payload      TEXT NOT NULL
				)`,
				`CREATE INDEX IF NOT EXISTS idx_scan_history_day ON scan_history (log_day)`,
			}},
		},
	}
}

// Run applies every migration that has not been recorded yet, in order.
func (r *MigrationRunner) Run(ctx context.Context) error {
	if r.dialect.Name == DialectSQLite {
		if _, err := r.db.ExecContext(ctx, "PRAGMA journal_mode = WAL"); err != nil {
			return fmt.Errorf("set WAL mode: %w", err)
		}
	}

	if _, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			name       TEXT NOT NULL,
			applied_at TEXT NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("create schema_migrations table: %w", err)
	}

	for _, m := range r.migrations {
		applied, err := r.isApplied(ctx, m.Version)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", m.Version, err)
		}
		if applied {
			continue
		}

		if err := r.apply(ctx, m); err != nil {
			return fmt.Errorf("apply migration %d (%s): %w", m.Version, m.Name, err)
		}
	}

	return nil
}

// Applied lists recorded migration versions in ascending order.
func (r *MigrationRunner) Applied(ctx context.Context) ([]int, error) {
	query, args, err := r.dialect.builder().
		Select("version").
		From("schema_migrations").
		OrderBy("version").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

func (r *MigrationRunner) isApplied(ctx context.Context, version int) (bool, error) {
	query, args, err := r.dialect.builder().
		Select("COUNT(*)").
		From("schema_migrations").
		Where(sq.Eq{"version": version}).
		ToSql()
	if err != nil {
		return false, err
	}

	var count int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *MigrationRunner) apply(ctx context.Context, m migration) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, stmt := range m.Statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}

	query, args, err := r.dialect.builder().
		Insert("schema_migrations").
		Columns("version", "name", "applied_at").
		Values(m.Version, m.Name, time.Now().UTC().Format(time.RFC3339Nano)).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("record migration: %w", err)
	}

	return tx.Commit()
}
