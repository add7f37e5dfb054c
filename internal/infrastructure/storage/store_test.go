package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CRMbyRSM/hubspot-beta-tracker/internal/domain"
	"github.com/CRMbyRSM/hubspot-beta-tracker/internal/ports"
)

type store interface {
	ports.ItemStore
	ports.HistoryLog
}

func openTestSQLStore(t *testing.T) *SQLStore {
	t.Helper()
	s, err := OpenSQLStore(context.Background(), SQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleState() domain.StoreState {
	seen := time.Date(2025, time.September, 3, 8, 30, 0, 0, time.UTC)
	live := seen.Add(48 * time.Hour)

	state := domain.NewStoreState()
	state.ScanCount = 4
	state.LastScan = live
	state.Items["breeze-agents-beta"] = &domain.TrackedItem{
		Key:         "breeze-agents-beta",
		Title:       "Breeze Agents Beta",
		Description: "Agents that act on CRM records.",
		Status:      domain.StatusLive,
		Categories:  []domain.Category{"ai", "crm"},
		URL:         "https://example.com/breeze",
		FirstSeen:   seen,
		LastSeen:    live,
		History: []domain.StatusEntry{
			{Status: domain.StatusPublicBeta, At: seen, Source: "feed"},
			{Status: domain.StatusLive, At: live, Source: "docs", PreviousStatus: domain.StatusPublicBeta},
		},
		Sources: []string{"docs", "feed"},
	}
	state.Items["quote-templates"] = &domain.TrackedItem{
		Key:         "quote-templates",
		Title:       "Quote Templates",
		Description: "",
		Status:      domain.StatusUpdate,
		Categories:  []domain.Category{domain.CategoryUncategorized},
		FirstSeen:   seen,
		LastSeen:    seen,
		History:     []domain.StatusEntry{{Status: domain.StatusUpdate, At: seen, Source: "feed"}},
		Sources:     []string{"feed"},
	}
	return state
}

func snapshot(id string, number int, at time.Time) domain.HistorySnapshot {
	return domain.HistorySnapshot{
		ScanID:      id,
		ScanNumber:  number,
		CompletedAt: at,
		Changes: domain.ChangeSet{
			New:           []domain.ItemRef{{Key: "k-" + id, Title: "Item " + id, Status: domain.StatusPublicBeta, Source: "feed"}},
			StatusChanges: []domain.StatusChange{},
			Updated:       []domain.DescriptionUpdate{},
		},
		Sources: []domain.SourceStats{{Name: "feed", Kind: "feed", Candidates: 1, Accepted: 1}},
	}
}

func eachStore(t *testing.T, fn func(t *testing.T, s store)) {
	t.Run("file", func(t *testing.T) {
		fn(t, NewFileStore(t.TempDir()))
	})
	t.Run("sqlite", func(t *testing.T) {
		fn(t, openTestSQLStore(t))
	})
}

func TestStoreLoadEmpty(t *testing.T) {
	eachStore(t, func(t *testing.T, s store) {
		state, err := s.Load(context.Background())
		require.NoError(t, err)
		assert.NotNil(t, state.Items)
		assert.Empty(t, state.Items)
		assert.Zero(t, state.ScanCount)
		assert.True(t, state.LastScan.IsZero())
	})
}

func TestStoreSaveLoadRoundtrip(t *testing.T) {
	eachStore(t, func(t *testing.T, s store) {
		ctx := context.Background()
		want := sampleState()

		require.NoError(t, s.Save(ctx, want))
		got, err := s.Load(ctx)
		require.NoError(t, err)

		assert.Equal(t, want.ScanCount, got.ScanCount)
		assert.True(t, want.LastScan.Equal(got.LastScan))
		require.Len(t, got.Items, 2)
		for key, item := range want.Items {
			assert.Equal(t, item, got.Items[key], key)
		}
	})
}

func TestStoreSaveOverwrites(t *testing.T) {
	eachStore(t, func(t *testing.T, s store) {
		ctx := context.Background()
		state := sampleState()
		require.NoError(t, s.Save(ctx, state))

		delete(state.Items, "quote-templates")
		state.ScanCount = 5
		require.NoError(t, s.Save(ctx, state))

		got, err := s.Load(ctx)
		require.NoError(t, err)
		assert.Len(t, got.Items, 1)
		assert.Contains(t, got.Items, "breeze-agents-beta")
		assert.Equal(t, 5, got.ScanCount)
	})
}

func TestHistoryAppendByDay(t *testing.T) {
	eachStore(t, func(t *testing.T, s store) {
		ctx := context.Background()
		day := time.Date(2025, time.October, 2, 0, 0, 0, 0, time.UTC)

		require.NoError(t, s.Append(ctx, snapshot("a", 1, day.Add(1*time.Hour))))
		require.NoError(t, s.Append(ctx, snapshot("b", 2, day.Add(7*time.Hour))))
		require.NoError(t, s.Append(ctx, snapshot("c", 3, day.Add(26*time.Hour))))

		got, err := s.Day(ctx, day.Add(12*time.Hour))
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "a", got[0].ScanID)
		assert.Equal(t, "b", got[1].ScanID)
		assert.Equal(t, "Item a", got[0].Changes.New[0].Title)

		next, err := s.Day(ctx, day.AddDate(0, 0, 1))
		require.NoError(t, err)
		require.Len(t, next, 1)
		assert.Equal(t, 3, next[0].ScanNumber)

		none, err := s.Day(ctx, day.AddDate(0, 0, -1))
		require.NoError(t, err)
		assert.Empty(t, none)
	})
}

func TestFileStoreLayout(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStore(dir)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, sampleState()))
	require.NoError(t, s.Append(ctx, snapshot("a", 1, time.Date(2025, time.October, 2, 23, 0, 0, 0, time.UTC))))

	assert.FileExists(t, filepath.Join(dir, "items.json"))
	assert.FileExists(t, filepath.Join(dir, "history", "2025-10-02.json"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp", "temp files must not survive a write")
	}
}

func TestFileStoreCorruptDocument(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "items.json"), []byte("{not json"), 0o644))

	_, err := NewFileStore(dir).Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode items")
}

func TestMigrationRunnerIdempotent(t *testing.T) {
	s := openTestSQLStore(t)
	ctx := context.Background()

	runner := NewMigrationRunner(s.db, SQLite)
	require.NoError(t, runner.Run(ctx))
	require.NoError(t, runner.Run(ctx))

	versions, err := runner.Applied(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, versions)
}

func TestDialectFor(t *testing.T) {
	d, err := DialectFor("postgres")
	require.NoError(t, err)
	assert.Equal(t, "pgx", d.Driver)

	query, _, err := d.builder().Select("payload").From("scan_history").Where("log_day = ?", "x").ToSql()
	require.NoError(t, err)
	assert.Equal(t, "SELECT payload FROM scan_history WHERE log_day = $1", query)

	_, err = DialectFor("oracle")
	require.Error(t, err)
}
