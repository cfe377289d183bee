// Package model defines the configuration entities (networks, monitors,
// triggers) and the transient records that flow through the matching
// pipeline. Configuration entities are immutable after startup; candidates
// and matches live for a single block-processing pass.
package model

import (
	"github.com/gabapcia/chainsentinel/internal/pkg/validator"
)

// ChainKind identifies the protocol family of a network.
type ChainKind string

const (
	// ChainKindEVM covers Ethereum and EVM-compatible chains.
	ChainKindEVM ChainKind = "evm"

	// ChainKindStellar covers Stellar networks with Soroban smart contracts.
	ChainKindStellar ChainKind = "stellar"
)

// RPCEndpoint is one provider URL with a selection weight. Higher weights
// make an endpoint proportionally more likely to serve a request first.
type RPCEndpoint struct {
	URL    string `json:"url" validate:"required,url"`
	Weight uint64 `json:"weight"`
}

// Network describes one monitored chain: identity, protocol kind, RPC
// providers, and the pacing parameters that drive block acquisition.
type Network struct {
	Kind               ChainKind     `json:"network_type" validate:"required,oneof=evm stellar"`
	Slug               string        `json:"slug" validate:"required"`
	Name               string        `json:"name"`
	RPCURLs            []RPCEndpoint `json:"rpc_urls" validate:"required,min=1,dive"`
	ChainID            uint64        `json:"chain_id,omitempty"`
	NetworkPassphrase  string        `json:"network_passphrase,omitempty"`
	BlockTimeMS        uint64        `json:"block_time_ms" validate:"required,gt=0"`
	ConfirmationBlocks uint64        `json:"confirmation_blocks"`
	CronSchedule       string        `json:"cron_schedule" validate:"required"`
	MaxPastBlocks      uint64        `json:"max_past_blocks,omitempty"`
	StoreBlocks        bool          `json:"store_blocks,omitempty"`
}

// Validate checks the network definition against its declared constraints.
func (n Network) Validate() error {
	return validator.Validate(n)
}

// RecommendedPastBlocks derives the default processing window when
// max_past_blocks is not configured: enough blocks to cover one scheduler
// interval plus the confirmation buffer.
func (n Network) RecommendedPastBlocks(cronIntervalMS uint64) uint64 {
	blocksPerInterval := (cronIntervalMS + n.BlockTimeMS - 1) / n.BlockTimeMS
	return blocksPerInterval + n.ConfirmationBlocks + 1
}

// PastBlockWindow returns the configured max_past_blocks, falling back to the
// recommended default for the given scheduler interval.
func (n Network) PastBlockWindow(cronIntervalMS uint64) uint64 {
	if n.MaxPastBlocks > 0 {
		return n.MaxPastBlocks
	}
	return n.RecommendedPastBlocks(cronIntervalMS)
}
