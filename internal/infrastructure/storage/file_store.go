package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/CRMbyRSM/hubspot-beta-tracker/internal/domain"
	"github.com/CRMbyRSM/hubspot-beta-tracker/internal/ports"
)

const (
	itemsFile  = "items.json"
	historyDir = "history"
	dayLayout  = "2006-01-02"
)

// FileStore keeps the item store and history log as JSON documents under
// one directory. Every write goes through a temp file and a rename so a
// crash never leaves a half-written document behind.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

var (
	_ ports.ItemStore  = (*FileStore)(nil)
	_ ports.HistoryLog = (*FileStore)(nil)
)

// NewFileStore roots the store at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Load returns the persisted state, or an empty one when nothing was saved yet.
func (s *FileStore) Load(ctx context.Context) (domain.StoreState, error) {
	if err := ctx.Err(); err != nil {
		return domain.StoreState{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(filepath.Join(s.dir, itemsFile))
	if errors.Is(err, os.ErrNotExist) {
		return domain.NewStoreState(), nil
	}
	if err != nil {
		return domain.StoreState{}, fmt.Errorf("read items: %w", err)
	}

	var state domain.StoreState
	if err := json.Unmarshal(raw, &state); err != nil {
		return domain.StoreState{}, fmt.Errorf("decode items: %w", err)
	}
	if state.Items == nil {
		state.Items = map[string]*domain.TrackedItem{}
	}
	return state, nil
}

// Save overwrites the item store document.
func (s *FileStore) Save(ctx context.Context, state domain.StoreState) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if state.Items == nil {
		state.Items = map[string]*domain.TrackedItem{}
	}

	raw, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode items: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := writeAtomic(filepath.Join(s.dir, itemsFile), raw); err != nil {
		return fmt.Errorf("write items: %w", err)
	}
	return nil
}

// Append adds snapshot to the document of its completion day (UTC).
func (s *FileStore) Append(ctx context.Context, snapshot domain.HistorySnapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.dayPath(snapshot.CompletedAt)
	entries, err := readDay(path)
	if err != nil {
		return err
	}
	entries = append(entries, snapshot)

	raw, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	if err := writeAtomic(path, raw); err != nil {
		return fmt.Errorf("write history: %w", err)
	}
	return nil
}

// Day returns the snapshots recorded on day, oldest first.
func (s *FileStore) Day(ctx context.Context, day time.Time) ([]domain.HistorySnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return readDay(s.dayPath(day))
}

func (s *FileStore) dayPath(t time.Time) string {
	return filepath.Join(s.dir, historyDir, t.UTC().Format(dayLayout)+".json")
}

func readDay(path string) ([]domain.HistorySnapshot, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return []domain.HistorySnapshot{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}

	var entries []domain.HistorySnapshot
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("decode history %s: %w", filepath.Base(path), err)
	}
	if entries == nil {
		entries = []domain.HistorySnapshot{}
	}
	return entries, nil
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}

	return os.Rename(tmpName, path)
}
