// Package file persists watcher state on the local filesystem: block
// cursors in a single JSON document and, when enabled, raw block payloads.
// Writes go to a temporary file first and are renamed into place, so a
// crash mid-write never corrupts existing state.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gabapcia/chainsentinel/internal/watcher"
)

// cursorsFileName is the document holding every network's last processed
// height.
const cursorsFileName = "block_cursors.json"

// cursorEntry is one network's persisted cursor.
type cursorEntry struct {
	LastProcessedHeight uint64 `json:"last_processed_height"`
	UpdatedAt           string `json:"updated_at"`
}

// Storage is a filesystem-backed watcher.CursorStorage and
// watcher.BlockStorage. Cursor state is cached in memory and written
// through on every save.
type Storage struct {
	dataDir string

	mu      sync.Mutex
	cursors map[string]cursorEntry
	clock   func() string
}

var (
	_ watcher.CursorStorage = (*Storage)(nil)
	_ watcher.BlockStorage  = (*Storage)(nil)
)

// New opens (or creates) the data directory and loads any existing cursor
// document.
func New(dataDir string) (*Storage, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, err
	}

	s := &Storage{
		dataDir: dataDir,
		cursors: make(map[string]cursorEntry),
		clock:   nowRFC3339,
	}

	data, err := os.ReadFile(filepath.Join(dataDir, cursorsFileName))
	switch {
	case errors.Is(err, os.ErrNotExist):
		return s, nil
	case err != nil:
		return nil, err
	}

	if err := json.Unmarshal(data, &s.cursors); err != nil {
		return nil, fmt.Errorf("corrupt cursor file: %w", err)
	}
	return s, nil
}

// SaveCursor records height as the network's last processed block and
// persists the whole document atomically via temp-file rename.
func (s *Storage) SaveCursor(ctx context.Context, network string, height uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	previous, ok := s.cursors[network]
	if ok && previous.LastProcessedHeight > height {
		// Cursors are monotonic; never move one backwards.
		return nil
	}

	s.cursors[network] = cursorEntry{
		LastProcessedHeight: height,
		UpdatedAt:           s.clock(),
	}

	data, err := json.MarshalIndent(s.cursors, "", "  ")
	if err != nil {
		return err
	}

	return atomicWrite(filepath.Join(s.dataDir, cursorsFileName), data)
}

// LoadCursor returns the network's last processed height, or
// watcher.ErrNoCursorFound when the network has never been observed.
func (s *Storage) LoadCursor(ctx context.Context, network string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.cursors[network]
	if !ok {
		return 0, watcher.ErrNoCursorFound
	}
	return entry.LastProcessedHeight, nil
}

// SaveBlock writes the raw block payload to
// <dataDir>/blocks/<network>/<height>.json.
func (s *Storage) SaveBlock(ctx context.Context, network string, height uint64, raw json.RawMessage) error {
	dir := filepath.Join(s.dataDir, "blocks", network)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	return atomicWrite(filepath.Join(dir, fmt.Sprintf("%d.json", height)), raw)
}

// atomicWrite persists data with the write-temp-then-rename pattern.
func atomicWrite(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}

	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}
