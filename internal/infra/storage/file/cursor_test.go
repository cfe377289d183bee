package file

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/gabapcia/chainsentinel/internal/watcher"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorage_Cursor(t *testing.T) {
	t.Run("load before any save returns ErrNoCursorFound", func(t *testing.T) {
		storage, err := New(t.TempDir())
		require.NoError(t, err)

		_, err = storage.LoadCursor(t.Context(), "ethereum")

		assert.ErrorIs(t, err, watcher.ErrNoCursorFound)
	})

	t.Run("save then load round-trips", func(t *testing.T) {
		storage, err := New(t.TempDir())
		require.NoError(t, err)

		require.NoError(t, storage.SaveCursor(t.Context(), "ethereum", 18000000))

		height, err := storage.LoadCursor(t.Context(), "ethereum")
		require.NoError(t, err)
		assert.Equal(t, uint64(18000000), height)
	})

	t.Run("cursors survive a restart", func(t *testing.T) {
		dir := t.TempDir()

		first, err := New(dir)
		require.NoError(t, err)
		require.NoError(t, first.SaveCursor(t.Context(), "ethereum", 42))
		require.NoError(t, first.SaveCursor(t.Context(), "stellar", 50000000))

		second, err := New(dir)
		require.NoError(t, err)

		height, err := second.LoadCursor(t.Context(), "ethereum")
		require.NoError(t, err)
		assert.Equal(t, uint64(42), height)

		height, err = second.LoadCursor(t.Context(), "stellar")
		require.NoError(t, err)
		assert.Equal(t, uint64(50000000), height)
	})

	t.Run("cursor is monotonic and never moves backwards", func(t *testing.T) {
		storage, err := New(t.TempDir())
		require.NoError(t, err)

		require.NoError(t, storage.SaveCursor(t.Context(), "ethereum", 100))
		require.NoError(t, storage.SaveCursor(t.Context(), "ethereum", 90))

		height, err := storage.LoadCursor(t.Context(), "ethereum")
		require.NoError(t, err)
		assert.Equal(t, uint64(100), height)
	})

	t.Run("writes leave no temporary file behind", func(t *testing.T) {
		dir := t.TempDir()
		storage, err := New(dir)
		require.NoError(t, err)

		require.NoError(t, storage.SaveCursor(t.Context(), "ethereum", 7))

		assert.FileExists(t, filepath.Join(dir, cursorsFileName))
		assert.NoFileExists(t, filepath.Join(dir, cursorsFileName+".tmp"))
	})

	t.Run("persisted document carries height and timestamp per network", func(t *testing.T) {
		dir := t.TempDir()
		storage, err := New(dir)
		require.NoError(t, err)
		storage.clock = func() string { return "2026-08-05T00:00:00Z" }

		require.NoError(t, storage.SaveCursor(t.Context(), "ethereum", 18000000))

		data, err := os.ReadFile(filepath.Join(dir, cursorsFileName))
		require.NoError(t, err)

		var doc map[string]cursorEntry
		require.NoError(t, json.Unmarshal(data, &doc))
		assert.Equal(t, cursorEntry{
			LastProcessedHeight: 18000000,
			UpdatedAt:           "2026-08-05T00:00:00Z",
		}, doc["ethereum"])
	})

	t.Run("corrupt cursor file fails loading", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, cursorsFileName), []byte("{broken"), 0o644))

		_, err := New(dir)

		assert.Error(t, err)
	})
}

func TestStorage_SaveBlock(t *testing.T) {
	t.Run("writes the raw payload under blocks/<network>/<height>.json", func(t *testing.T) {
		dir := t.TempDir()
		storage, err := New(dir)
		require.NoError(t, err)

		raw := json.RawMessage(`{"number":"0x112a880"}`)
		require.NoError(t, storage.SaveBlock(t.Context(), "ethereum", 18000000, raw))

		data, err := os.ReadFile(filepath.Join(dir, "blocks", "ethereum", "18000000.json"))
		require.NoError(t, err)
		assert.JSONEq(t, string(raw), string(data))
	})
}
