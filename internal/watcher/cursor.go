package watcher

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrNoCursorFound is returned by LoadCursor when no cursor has been saved
// yet for the requested network.
var ErrNoCursorFound = errors.New("no cursor found for network")

// CursorStorage persists the last fully processed block height per network.
// For a given network the stored height is monotonic non-decreasing: the
// watcher only saves after every block in a range has been filtered and
// dispatched.
type CursorStorage interface {
	// SaveCursor records height as the last processed block for the
	// network, overwriting any previous value.
	SaveCursor(ctx context.Context, network string, height uint64) error

	// LoadCursor returns the most recent height saved for the network, or
	// ErrNoCursorFound when the network has never been observed.
	LoadCursor(ctx context.Context, network string) (uint64, error)
}

// BlockStorage persists raw block payloads for networks configured with
// store_blocks. Failures are logged and never abort a tick.
type BlockStorage interface {
	SaveBlock(ctx context.Context, network string, height uint64, raw json.RawMessage) error
}

// nopCursor is the fallback cursor storage: nothing persists, and every
// network starts from the chain tip on each boot.
type nopCursor struct{}

var _ CursorStorage = nopCursor{}

func (nopCursor) SaveCursor(ctx context.Context, network string, height uint64) error {
	return nil
}

func (nopCursor) LoadCursor(ctx context.Context, network string) (uint64, error) {
	return 0, ErrNoCursorFound
}
