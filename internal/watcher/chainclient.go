package watcher

import (
	"context"
	"encoding/json"

	"github.com/gabapcia/chainsentinel/internal/model"
)

// FetchedBlock is one acquired block, already decoded into the match
// candidates the filter engine consumes. Raw preserves the provider's block
// payload for networks that store blocks on disk.
type FetchedBlock struct {
	Height     uint64
	Raw        json.RawMessage
	Candidates []model.MatchCandidate
}

// ChainClient is the per-network capability set the watcher needs: read the
// chain tip and fetch-plus-decode single blocks. Implementations exist for
// EVM and Stellar networks.
//
// Any error is treated as transient: the tick aborts and the cursor is not
// advanced, so the next tick re-derives the range and retries.
type ChainClient interface {
	// LatestHeight returns the current chain tip (block number or ledger
	// sequence).
	LatestHeight(ctx context.Context) (uint64, error)

	// FetchBlock retrieves the block at the given height and decodes its
	// transactions, function calls, and events into match candidates.
	FetchBlock(ctx context.Context, height uint64) (FetchedBlock, error)
}
