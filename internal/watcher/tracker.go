package watcher

import (
	"context"
	"sync"

	"github.com/gabapcia/chainsentinel/internal/pkg/logger"
)

// tracker remembers the last height observed per network and flags
// discontinuities. A jump bigger than one block means the processing window
// clipped an outage and blocks were skipped for good.
type tracker struct {
	mu   sync.Mutex
	seen map[string]uint64
}

func newTracker() *tracker {
	return &tracker{seen: make(map[string]uint64)}
}

// track records height for the network, warning when heights were skipped
// since the previous observation.
func (t *tracker) track(ctx context.Context, network string, height uint64) {
	t.mu.Lock()
	last, ok := t.seen[network]
	t.seen[network] = height
	t.mu.Unlock()

	if ok && height > last+1 {
		logger.Warn(ctx, "skipped block heights; outage exceeded the processing window",
			"network", network,
			"last.height", last,
			"current.height", height,
			"skipped", height-last-1,
		)
	}
}
