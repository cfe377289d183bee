package watcher

import (
	"context"
	"errors"

	"github.com/gabapcia/chainsentinel/internal/model"
	"github.com/gabapcia/chainsentinel/internal/pkg/logger"
)

// tick runs one block acquisition pass for a network:
//
//  1. Read the chain tip and back off by the confirmation depth.
//  2. Resume from the stored cursor; a network observed for the first time
//     processes only the newest safe block.
//  3. Clamp the range start to the processing window, skipping blocks an
//     outage pushed out of reach.
//  4. Fetch, decode, filter, and dispatch each block in ascending order,
//     awaiting dispatch completion per block.
//  5. Advance the cursor only after the whole range is done.
//
// Any fetch error aborts the tick without touching the cursor; the next
// tick re-derives the range and retries.
func (s *service) tick(ctx context.Context, network model.Network, client ChainClient, window uint64) {
	latest, err := client.LatestHeight(ctx)
	if err != nil {
		logger.Warn(ctx, "failed to read chain tip; tick aborted",
			"network", network.Slug,
			"error", err,
		)
		return
	}

	if latest < network.ConfirmationBlocks {
		return
	}
	safeLatest := latest - network.ConfirmationBlocks

	from, ok := s.rangeStart(ctx, network.Slug, safeLatest, window)
	if !ok {
		return
	}

	for height := from; height <= safeLatest; height++ {
		block, err := client.FetchBlock(ctx, height)
		if err != nil {
			logger.Warn(ctx, "block fetch failed; tick aborted, cursor not advanced",
				"network", network.Slug,
				"block.height", height,
				"error", err,
			)
			return
		}

		s.tracker.track(ctx, network.Slug, height)
		s.storeBlock(ctx, network, block)

		if err := s.process(ctx, network, block); err != nil {
			logger.Error(ctx, "block processing failed; tick aborted, cursor not advanced",
				"network", network.Slug,
				"block.height", height,
				"error", err,
			)
			return
		}
	}

	if err := s.cursors.SaveCursor(ctx, network.Slug, safeLatest); err != nil {
		// The next tick reprocesses the range, re-emitting notifications:
		// the documented source of at-least-once delivery.
		logger.Error(ctx, "failed to persist block cursor",
			"network", network.Slug,
			"block.height", safeLatest,
			"error", err,
		)
	}
}

// rangeStart derives the first height to process and reports whether there
// is anything to do.
func (s *service) rangeStart(ctx context.Context, network string, safeLatest, window uint64) (uint64, bool) {
	var from uint64

	last, err := s.cursors.LoadCursor(ctx, network)
	switch {
	case errors.Is(err, ErrNoCursorFound):
		// First observation: process only the newest safe block.
		from = safeLatest

	case err != nil:
		logger.Error(ctx, "failed to load block cursor; tick aborted",
			"network", network,
			"error", err,
		)
		return 0, false

	default:
		if last >= safeLatest {
			return 0, false
		}
		from = last + 1
	}

	var floor uint64
	if safeLatest+1 > window {
		floor = safeLatest + 1 - window
	}

	if from < floor {
		logger.Warn(ctx, "cursor is older than the processing window; skipping unreachable blocks",
			"network", network,
			"cursor.next", from,
			"window.start", floor,
			"skipped", floor-from,
		)
		from = floor
	}

	return from, true
}

// storeBlock persists the raw payload for networks that request it. Storage
// problems are logged and never abort the tick.
func (s *service) storeBlock(ctx context.Context, network model.Network, block FetchedBlock) {
	if s.blocks == nil || !network.StoreBlocks || len(block.Raw) == 0 {
		return
	}

	if err := s.blocks.SaveBlock(ctx, network.Slug, block.Height, block.Raw); err != nil {
		logger.Error(ctx, "failed to store raw block",
			"network", network.Slug,
			"block.height", block.Height,
			"error", err,
		)
	}
}
