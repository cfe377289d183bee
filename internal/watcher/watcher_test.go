package watcher

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/gabapcia/chainsentinel/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeChainClient serves a scripted chain tip and records fetched heights.
type fakeChainClient struct {
	latest    uint64
	latestErr error

	mu        sync.Mutex
	fetched   []uint64
	failAt    uint64
	fetchErr  error
	candidate model.MatchCandidate
}

func (f *fakeChainClient) LatestHeight(ctx context.Context) (uint64, error) {
	return f.latest, f.latestErr
}

func (f *fakeChainClient) FetchBlock(ctx context.Context, height uint64) (FetchedBlock, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.fetchErr != nil && height == f.failAt {
		return FetchedBlock{}, f.fetchErr
	}

	f.fetched = append(f.fetched, height)
	return FetchedBlock{
		Height:     height,
		Candidates: []model.MatchCandidate{f.candidate},
	}, nil
}

func (f *fakeChainClient) fetchedHeights() []uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]uint64(nil), f.fetched...)
}

// memoryCursor is an in-memory CursorStorage with optional failure injection.
type memoryCursor struct {
	mu      sync.Mutex
	heights map[string]uint64
	saveErr error
}

func newMemoryCursor() *memoryCursor {
	return &memoryCursor{heights: make(map[string]uint64)}
}

func (m *memoryCursor) SaveCursor(ctx context.Context, network string, height uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.saveErr != nil {
		return m.saveErr
	}
	m.heights[network] = height
	return nil
}

func (m *memoryCursor) LoadCursor(ctx context.Context, network string) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	height, ok := m.heights[network]
	if !ok {
		return 0, ErrNoCursorFound
	}
	return height, nil
}

func testNetwork() model.Network {
	return model.Network{
		Kind:               model.ChainKindEVM,
		Slug:               "ethereum",
		RPCURLs:            []model.RPCEndpoint{{URL: "https://rpc.invalid", Weight: 1}},
		BlockTimeMS:        12000,
		ConfirmationBlocks: 2,
		CronSchedule:       "@every 1m",
	}
}

// collectingProcessor appends processed block heights in call order.
type collectingProcessor struct {
	mu      sync.Mutex
	heights []uint64
	err     error
}

func (p *collectingProcessor) process(ctx context.Context, network model.Network, block FetchedBlock) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.err != nil {
		return p.err
	}
	p.heights = append(p.heights, block.Height)
	return nil
}

func newTickService(client ChainClient, cursor CursorStorage, processor BlockProcessor) *service {
	network := testNetwork()
	return New(
		[]model.Network{network},
		map[string]ChainClient{network.Slug: client},
		processor,
		WithCursorStorage(cursor),
	)
}

func TestService_Tick(t *testing.T) {
	t.Run("first observation processes only the newest safe block", func(t *testing.T) {
		client := &fakeChainClient{latest: 100}
		cursor := newMemoryCursor()
		processor := &collectingProcessor{}

		svc := newTickService(client, cursor, processor.process)
		svc.tick(t.Context(), testNetwork(), client, 10)

		assert.Equal(t, []uint64{98}, client.fetchedHeights())
		assert.Equal(t, []uint64{98}, processor.heights)

		saved, err := cursor.LoadCursor(t.Context(), "ethereum")
		require.NoError(t, err)
		assert.Equal(t, uint64(98), saved)
	})

	t.Run("subsequent tick processes the full range in ascending order", func(t *testing.T) {
		client := &fakeChainClient{latest: 105}
		cursor := newMemoryCursor()
		cursor.heights["ethereum"] = 98
		processor := &collectingProcessor{}

		svc := newTickService(client, cursor, processor.process)
		svc.tick(t.Context(), testNetwork(), client, 10)

		assert.Equal(t, []uint64{99, 100, 101, 102, 103}, processor.heights)

		saved, err := cursor.LoadCursor(t.Context(), "ethereum")
		require.NoError(t, err)
		assert.Equal(t, uint64(103), saved)
	})

	t.Run("cursor advances by exactly the processed range across consecutive ticks", func(t *testing.T) {
		client := &fakeChainClient{latest: 105}
		cursor := newMemoryCursor()
		cursor.heights["ethereum"] = 100
		processor := &collectingProcessor{}

		svc := newTickService(client, cursor, processor.process)
		svc.tick(t.Context(), testNetwork(), client, 10)

		first, err := cursor.LoadCursor(t.Context(), "ethereum")
		require.NoError(t, err)
		assert.Equal(t, uint64(103), first)
		assert.Len(t, processor.heights, int(first-100))

		client.latest = 110
		svc.tick(t.Context(), testNetwork(), client, 10)

		second, err := cursor.LoadCursor(t.Context(), "ethereum")
		require.NoError(t, err)
		assert.Equal(t, uint64(108), second)
		assert.Len(t, processor.heights, int(second-100))
	})

	t.Run("nothing to do when the cursor is at the safe tip", func(t *testing.T) {
		client := &fakeChainClient{latest: 100}
		cursor := newMemoryCursor()
		cursor.heights["ethereum"] = 98
		processor := &collectingProcessor{}

		svc := newTickService(client, cursor, processor.process)
		svc.tick(t.Context(), testNetwork(), client, 10)

		assert.Empty(t, client.fetchedHeights())
		assert.Empty(t, processor.heights)
	})

	t.Run("zero confirmation blocks makes the latest block immediately eligible", func(t *testing.T) {
		network := testNetwork()
		network.ConfirmationBlocks = 0

		client := &fakeChainClient{latest: 50}
		cursor := newMemoryCursor()
		cursor.heights["ethereum"] = 49
		processor := &collectingProcessor{}

		svc := New(
			[]model.Network{network},
			map[string]ChainClient{network.Slug: client},
			processor.process,
			WithCursorStorage(cursor),
		)
		svc.tick(t.Context(), network, client, 10)

		assert.Equal(t, []uint64{50}, processor.heights)
	})

	t.Run("outage longer than the window skips old blocks and jumps the cursor", func(t *testing.T) {
		client := &fakeChainClient{latest: 1000}
		cursor := newMemoryCursor()
		cursor.heights["ethereum"] = 900
		processor := &collectingProcessor{}

		svc := newTickService(client, cursor, processor.process)
		svc.tick(t.Context(), testNetwork(), client, 5)

		// safe latest 998, window 5 -> floor 994
		assert.Equal(t, []uint64{994, 995, 996, 997, 998}, processor.heights)

		saved, err := cursor.LoadCursor(t.Context(), "ethereum")
		require.NoError(t, err)
		assert.Equal(t, uint64(998), saved)
	})

	t.Run("fetch failure aborts the tick without advancing the cursor", func(t *testing.T) {
		client := &fakeChainClient{
			latest:   105,
			failAt:   101,
			fetchErr: errors.New("rpc unavailable"),
		}
		cursor := newMemoryCursor()
		cursor.heights["ethereum"] = 98
		processor := &collectingProcessor{}

		svc := newTickService(client, cursor, processor.process)
		svc.tick(t.Context(), testNetwork(), client, 10)

		assert.Equal(t, []uint64{99, 100}, processor.heights)

		saved, err := cursor.LoadCursor(t.Context(), "ethereum")
		require.NoError(t, err)
		assert.Equal(t, uint64(98), saved, "cursor must not move after a partial range")
	})

	t.Run("retry after an aborted tick re-derives the range", func(t *testing.T) {
		client := &fakeChainClient{
			latest:   105,
			failAt:   101,
			fetchErr: errors.New("rpc unavailable"),
		}
		cursor := newMemoryCursor()
		cursor.heights["ethereum"] = 98
		processor := &collectingProcessor{}

		svc := newTickService(client, cursor, processor.process)
		svc.tick(t.Context(), testNetwork(), client, 10)

		client.mu.Lock()
		client.fetchErr = nil
		client.mu.Unlock()

		svc.tick(t.Context(), testNetwork(), client, 10)

		assert.Equal(t, []uint64{99, 100, 99, 100, 101, 102, 103}, processor.heights)

		saved, err := cursor.LoadCursor(t.Context(), "ethereum")
		require.NoError(t, err)
		assert.Equal(t, uint64(103), saved)
	})

	t.Run("latest height failure aborts before any fetch", func(t *testing.T) {
		client := &fakeChainClient{latestErr: errors.New("down")}
		cursor := newMemoryCursor()
		processor := &collectingProcessor{}

		svc := newTickService(client, cursor, processor.process)
		svc.tick(t.Context(), testNetwork(), client, 10)

		assert.Empty(t, client.fetchedHeights())
	})

	t.Run("cursor save failure leaves the previous cursor intact", func(t *testing.T) {
		client := &fakeChainClient{latest: 102}
		cursor := newMemoryCursor()
		cursor.heights["ethereum"] = 98
		cursor.saveErr = errors.New("disk full")
		processor := &collectingProcessor{}

		svc := newTickService(client, cursor, processor.process)
		svc.tick(t.Context(), testNetwork(), client, 10)

		assert.Equal(t, []uint64{99, 100}, processor.heights)

		cursor.saveErr = nil
		saved, err := cursor.LoadCursor(t.Context(), "ethereum")
		require.NoError(t, err)
		assert.Equal(t, uint64(98), saved)
	})
}

func TestCronIntervalMS(t *testing.T) {
	t.Run("every-minute schedule", func(t *testing.T) {
		interval, err := cronIntervalMS("@every 1m")

		require.NoError(t, err)
		assert.Equal(t, uint64(60_000), interval)
	})

	t.Run("five-field schedule", func(t *testing.T) {
		interval, err := cronIntervalMS("* * * * *")

		require.NoError(t, err)
		assert.Equal(t, uint64(60_000), interval)
	})

	t.Run("six-field schedule with seconds", func(t *testing.T) {
		interval, err := cronIntervalMS("*/30 * * * * *")

		require.NoError(t, err)
		assert.Equal(t, uint64(30_000), interval)
	})

	t.Run("invalid schedule errors", func(t *testing.T) {
		_, err := cronIntervalMS("not a schedule")

		assert.Error(t, err)
	})
}

func TestNetwork_PastBlockWindow(t *testing.T) {
	t.Run("explicit max_past_blocks wins", func(t *testing.T) {
		network := testNetwork()
		network.MaxPastBlocks = 7

		assert.Equal(t, uint64(7), network.PastBlockWindow(60_000))
	})

	t.Run("default derives from cron interval, block time, and confirmations", func(t *testing.T) {
		network := testNetwork() // block time 12s, 2 confirmations

		// ceil(60000/12000) + 2 + 1 = 8
		assert.Equal(t, uint64(8), network.PastBlockWindow(60_000))
	})
}
