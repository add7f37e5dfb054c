package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/CRMbyRSM/hubspot-beta-tracker/internal/domain"
	"github.com/CRMbyRSM/hubspot-beta-tracker/internal/ports"
)

// Dialect names.
const (
	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"
)

// Dialect pairs a database/sql driver with its placeholder style.
type Dialect struct {
	Name        string
	Driver      string
	Placeholder sq.PlaceholderFormat
}

var (
	SQLite   = Dialect{Name: DialectSQLite, Driver: "sqlite3", Placeholder: sq.Question}
	Postgres = Dialect{Name: DialectPostgres, Driver: "pgx", Placeholder: sq.Dollar}
)

// DialectFor maps a storage driver name to its dialect.
func DialectFor(name string) (Dialect, error) {
	switch name {
	case DialectSQLite:
		return SQLite, nil
	case DialectPostgres:
		return Postgres, nil
	default:
		return Dialect{}, fmt.Errorf("unsupported sql dialect %q", name)
	}
}

func (d Dialect) builder() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(d.Placeholder)
}

const metaRowID = 1

// SQLStore persists items and history in a relational database.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
}

var (
	_ ports.ItemStore  = (*SQLStore)(nil)
	_ ports.HistoryLog = (*SQLStore)(nil)
)

// NewSQLStore wraps an already-migrated database.
func NewSQLStore(db *sql.DB, dialect Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: dialect}
}

// OpenSQLStore opens dsn with the dialect's driver and runs migrations.
// The driver must be registered by the caller.
func OpenSQLStore(ctx context.Context, dialect Dialect, dsn string) (*SQLStore, error) {
	db, err := sql.Open(dialect.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect.Name, err)
	}
	if dialect.Name == DialectSQLite {
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", dialect.Name, err)
	}
	if err := NewMigrationRunner(db, dialect).Run(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return NewSQLStore(db, dialect), nil
}

// Close releases the database handle.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// Load reads every tracked item plus scan metadata.
func (s *SQLStore) Load(ctx context.Context) (domain.StoreState, error) {
	state := domain.NewStoreState()

	query, args, err := s.dialect.builder().
		Select("last_scan", "scan_count").
		From("store_meta").
		Where(sq.Eq{"id": metaRowID}).
		ToSql()
	if err != nil {
		return state, fmt.Errorf("build meta query: %w", err)
	}

	var lastScan string
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&lastScan, &state.ScanCount)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return state, fmt.Errorf("query meta: %w", err)
	default:
		if state.LastScan, err = parseTime(lastScan); err != nil {
			return state, fmt.Errorf("parse last scan: %w", err)
		}
	}

	query, args, err = s.dialect.builder().
		Select("item_key", "title", "description", "status", "categories", "url",
			"first_seen", "last_seen", "history", "sources").
		From("tracked_items").
		ToSql()
	if err != nil {
		return state, fmt.Errorf("build items query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return state, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return state, err
		}
		state.Items[item.Key] = item
	}
	if err := rows.Err(); err != nil {
		return state, fmt.Errorf("rows iteration: %w", err)
	}

	return state, nil
}

// Save replaces the stored items and metadata in one transaction.
func (s *SQLStore) Save(ctx context.Context, state domain.StoreState) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	b := s.dialect.builder()

	if err := execBuilt(ctx, tx, b.Delete("tracked_items")); err != nil {
		return fmt.Errorf("clear items: %w", err)
	}

	for _, key := range state.SortedKeys() {
		item := state.Items[key]
		categories, err := json.Marshal(item.Categories)
		if err != nil {
			return fmt.Errorf("encode categories: %w", err)
		}
		history, err := json.Marshal(item.History)
		if err != nil {
			return fmt.Errorf("encode history: %w", err)
		}
		sources, err := json.Marshal(item.Sources)
		if err != nil {
			return fmt.Errorf("encode sources: %w", err)
		}

		insert := b.Insert("tracked_items").
			Columns("item_key", "title", "description", "status", "categories", "url",
				"first_seen", "last_seen", "history", "sources").
			Values(key, item.Title, item.Description, string(item.Status), string(categories), item.URL,
				formatTime(item.FirstSeen), formatTime(item.LastSeen), string(history), string(sources))
		if err := execBuilt(ctx, tx, insert); err != nil {
			return fmt.Errorf("insert item %s: %w", key, err)
		}
	}

	if err := execBuilt(ctx, tx, b.Delete("store_meta")); err != nil {
		return fmt.Errorf("clear meta: %w", err)
	}
	meta := b.Insert("store_meta").
		Columns("id", "last_scan", "scan_count").
		Values(metaRowID, formatTime(state.LastScan), state.ScanCount)
	if err := execBuilt(ctx, tx, meta); err != nil {
		return fmt.Errorf("insert meta: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Append records one snapshot under its completion day (UTC).
func (s *SQLStore) Append(ctx context.Context, snapshot domain.HistorySnapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	insert := s.dialect.builder().
		Insert("scan_history").
		Columns("scan_id", "log_day", "scan_number", "completed_at", "payload").
		Values(snapshot.ScanID, snapshot.CompletedAt.UTC().Format(dayLayout), snapshot.ScanNumber,
			formatTime(snapshot.CompletedAt), string(payload))
	if err := execBuilt(ctx, s.db, insert); err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

// Day returns the snapshots recorded on day, oldest first.
func (s *SQLStore) Day(ctx context.Context, day time.Time) ([]domain.HistorySnapshot, error) {
	query, args, err := s.dialect.builder().
		Select("payload").
		From("scan_history").
		Where(sq.Eq{"log_day": day.UTC().Format(dayLayout)}).
		OrderBy("scan_number", "completed_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build history query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	entries := []domain.HistorySnapshot{}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		var snap domain.HistorySnapshot
		if err := json.Unmarshal([]byte(payload), &snap); err != nil {
			return nil, fmt.Errorf("decode snapshot: %w", err)
		}
		entries = append(entries, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return entries, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func execBuilt(ctx context.Context, db execer, b sq.Sqlizer) error {
	query, args, err := b.ToSql()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, query, args...)
	return err
}

func scanItem(rows *sql.Rows) (*domain.TrackedItem, error) {
	var (
		item                         domain.TrackedItem
		status, firstSeen, lastSeen  string
		categories, history, sources string
	)
	if err := rows.Scan(&item.Key, &item.Title, &item.Description, &status, &categories, &item.URL,
		&firstSeen, &lastSeen, &history, &sources); err != nil {
		return nil, fmt.Errorf("scan item: %w", err)
	}
	item.Status = domain.Status(status)

	var err error
	if item.FirstSeen, err = parseTime(firstSeen); err != nil {
		return nil, fmt.Errorf("parse first seen of %s: %w", item.Key, err)
	}
	if item.LastSeen, err = parseTime(lastSeen); err != nil {
		return nil, fmt.Errorf("parse last seen of %s: %w", item.Key, err)
	}
	if err := json.Unmarshal([]byte(categories), &item.Categories); err != nil {
		return nil, fmt.Errorf("decode categories of %s: %w", item.Key, err)
	}
	if err := json.Unmarshal([]byte(history), &item.History); err != nil {
		return nil, fmt.Errorf("decode history of %s: %w", item.Key, err)
	}
	if err := json.Unmarshal([]byte(sources), &item.Sources); err != nil {
		return nil, fmt.Errorf("decode sources of %s: %w", item.Key, err)
	}
	return &item, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
