package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/gabapcia/chainsentinel/internal/watcher"

	"github.com/redis/go-redis/v9"
)

// cursorKeyPrefix is the namespace prefix for all block cursor keys.
const cursorKeyPrefix = "chainsentinel"

// cursorKey constructs the Redis key holding the last processed block
// height for a network. The format is:
//
//	"chainsentinel:cursor:<network>"
func cursorKey(network string) string {
	return fmt.Sprintf("%s:cursor:%s", cursorKeyPrefix, network)
}

// SaveCursor persists the last processed block height for a network. The
// key is stored without expiration so the watcher can resume after any
// amount of downtime (within the processing window).
func (c *client) SaveCursor(ctx context.Context, network string, height uint64) error {
	return c.conn.Set(ctx, cursorKey(network), strconv.FormatUint(height, 10), 0).Err()
}

// LoadCursor retrieves the last processed block height for a network,
// returning watcher.ErrNoCursorFound when the network was never observed.
func (c *client) LoadCursor(ctx context.Context, network string) (uint64, error) {
	val, err := c.conn.Get(ctx, cursorKey(network)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			err = watcher.ErrNoCursorFound
		}
		return 0, err
	}

	return strconv.ParseUint(val, 10, 64)
}

// Compile-time assertion to ensure client implements the CursorStorage interface.
var _ watcher.CursorStorage = new(client)
