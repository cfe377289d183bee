// Package evm implements the watcher.ChainClient interface for
// EVM-compatible networks. It reads blocks, receipts, and logs over
// JSON-RPC and decodes monitored contract interactions against their ABIs.
package evm

import (
	"context"
	"encoding/json"

	"github.com/gabapcia/chainsentinel/internal/model"
	"github.com/gabapcia/chainsentinel/internal/pkg/transport/jsonrpc"
	"github.com/gabapcia/chainsentinel/internal/pkg/types"
	"github.com/gabapcia/chainsentinel/internal/watcher"
)

// client implements watcher.ChainClient for EVM-based networks.
type client struct {
	conn  jsonrpc.Client
	index *contractIndex
}

// Ensure client implements the watcher.ChainClient interface at compile time.
var _ watcher.ChainClient = (*client)(nil)

// NewClient creates an EVM chain client over the given JSON-RPC connection.
// addresses is the union of every monitored address (with optional ABI) that
// targets this network; it drives function and event decoding.
func NewClient(conn jsonrpc.Client, addresses []model.AddressWithABI) (*client, error) {
	index, err := newContractIndex(addresses)
	if err != nil {
		return nil, err
	}

	return &client{
		conn:  conn,
		index: index,
	}, nil
}

// LatestHeight fetches the current block number from the node.
func (c *client) LatestHeight(ctx context.Context) (uint64, error) {
	data, err := c.conn.Fetch(ctx, "eth_blockNumber")
	if err != nil {
		return 0, err
	}

	var blockNumber types.Hex
	if err := json.Unmarshal(data, &blockNumber); err != nil {
		return 0, err
	}
	return blockNumber.Uint64(), nil
}

// getBlockByNumber retrieves a full block (with transaction objects) by
// height, returning both the parsed structure and the raw payload.
func (c *client) getBlockByNumber(ctx context.Context, height uint64) (BlockResponse, json.RawMessage, error) {
	raw, err := c.conn.Fetch(ctx, "eth_getBlockByNumber", types.HexFromUint64(height), true)
	if err != nil {
		return BlockResponse{}, nil, err
	}

	var block BlockResponse
	if err := json.Unmarshal(raw, &block); err != nil {
		return BlockResponse{}, nil, err
	}
	return block, raw, nil
}

// getTransactionReceipt retrieves the execution outcome of one transaction.
func (c *client) getTransactionReceipt(ctx context.Context, hash string) (ReceiptResponse, error) {
	data, err := c.conn.Fetch(ctx, "eth_getTransactionReceipt", hash)
	if err != nil {
		return ReceiptResponse{}, err
	}

	var receipt ReceiptResponse
	return receipt, json.Unmarshal(data, &receipt)
}

// getLogs retrieves the logs emitted by the monitored contracts within one
// block, in the order the node reports them.
func (c *client) getLogs(ctx context.Context, height uint64, addresses []string) ([]LogResponse, error) {
	filter := map[string]any{
		"fromBlock": types.HexFromUint64(height),
		"toBlock":   types.HexFromUint64(height),
		"address":   addresses,
	}

	data, err := c.conn.Fetch(ctx, "eth_getLogs", filter)
	if err != nil {
		return nil, err
	}

	var logs []LogResponse
	return logs, json.Unmarshal(data, &logs)
}

// FetchBlock acquires one block and decodes it into match candidates. Each
// transaction yields one candidate per decoded element (function call or
// event); a transaction with nothing to decode yields a single
// transaction-only candidate.
func (c *client) FetchBlock(ctx context.Context, height uint64) (watcher.FetchedBlock, error) {
	block, raw, err := c.getBlockByNumber(ctx, height)
	if err != nil {
		return watcher.FetchedBlock{}, err
	}

	var logs []LogResponse
	if monitored := c.index.addresses(); len(monitored) > 0 {
		logs, err = c.getLogs(ctx, height, monitored)
		if err != nil {
			return watcher.FetchedBlock{}, err
		}
	}

	logsByTx := make(map[string][]LogResponse)
	for _, log := range logs {
		logsByTx[log.TransactionHash] = append(logsByTx[log.TransactionHash], log)
	}

	var candidates []model.MatchCandidate
	for _, tx := range block.Transactions {
		receipt, err := c.getTransactionReceipt(ctx, tx.Hash)
		if err != nil {
			return watcher.FetchedBlock{}, err
		}

		candidates = append(candidates, c.decodeTransaction(ctx, height, tx, receipt, logsByTx[tx.Hash])...)
	}

	return watcher.FetchedBlock{
		Height:     height,
		Raw:        raw,
		Candidates: candidates,
	}, nil
}

// decodeTransaction expands one transaction into its candidates, assigning
// element indices in encounter order within the transaction.
func (c *client) decodeTransaction(ctx context.Context, height uint64, tx TransactionResponse, receipt ReceiptResponse, logs []LogResponse) []model.MatchCandidate {
	transaction := tx.toModelTransaction(receipt)

	var candidates []model.MatchCandidate

	if function := c.index.decodeFunctionCall(ctx, tx); function != nil {
		function.Index = 0
		candidates = append(candidates, model.MatchCandidate{
			Kind: model.ChainKindEVM,
			EVM: &model.EVMCandidate{
				BlockNumber:     height,
				Transaction:     transaction,
				ContractAddress: tx.To,
				Function:        function,
			},
		})
	}

	eventIndex := 0
	for _, log := range logs {
		event := c.index.decodeEventLog(ctx, log)
		if event == nil {
			continue
		}

		event.Index = eventIndex
		eventIndex++

		candidates = append(candidates, model.MatchCandidate{
			Kind: model.ChainKindEVM,
			EVM: &model.EVMCandidate{
				BlockNumber:     height,
				Transaction:     transaction,
				ContractAddress: log.Address,
				Event:           event,
			},
		})
	}

	if len(candidates) == 0 {
		candidates = append(candidates, model.MatchCandidate{
			Kind: model.ChainKindEVM,
			EVM: &model.EVMCandidate{
				BlockNumber: height,
				Transaction: transaction,
			},
		})
	}

	return candidates
}
