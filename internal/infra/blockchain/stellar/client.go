// Package stellar implements the watcher.ChainClient interface for Stellar
// networks with Soroban smart contracts. It reads ledgers, transactions, and
// contract events over the Soroban RPC API, requesting JSON-formatted XDR so
// invocation arguments decode without a local XDR library. Contract ABIs are
// not guaranteed to carry parameter names, so every decoded parameter is
// exposed positionally.
package stellar

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/gabapcia/chainsentinel/internal/model"
	"github.com/gabapcia/chainsentinel/internal/pkg/transport/jsonrpc"
	"github.com/gabapcia/chainsentinel/internal/pkg/types"
	"github.com/gabapcia/chainsentinel/internal/watcher"
)

// transactionPageLimit bounds one getTransactions page; a single ledger
// holds far fewer transactions.
const transactionPageLimit = 200

// client implements watcher.ChainClient for Stellar networks.
type client struct {
	conn      jsonrpc.Client
	contracts types.Set[string] // monitored contract ids, exact case
}

// Ensure client implements the watcher.ChainClient interface at compile time.
var _ watcher.ChainClient = (*client)(nil)

// NewClient creates a Stellar chain client over the given JSON-RPC
// connection. addresses is the union of every monitored contract id that
// targets this network; it scopes the contract event query.
func NewClient(conn jsonrpc.Client, addresses []model.AddressWithABI) *client {
	contracts := types.NewSet[string]()
	for _, entry := range addresses {
		contracts.Add(entry.Address)
	}

	return &client{
		conn:      conn,
		contracts: contracts,
	}
}

// LatestHeight fetches the latest closed ledger sequence.
func (c *client) LatestHeight(ctx context.Context) (uint64, error) {
	data, err := c.conn.Fetch(ctx, "getLatestLedger")
	if err != nil {
		return 0, err
	}

	var latest LatestLedgerResponse
	if err := json.Unmarshal(data, &latest); err != nil {
		return 0, err
	}
	return latest.Sequence, nil
}

// getLedger retrieves the raw ledger record at the given sequence.
func (c *client) getLedger(ctx context.Context, sequence uint64) (json.RawMessage, error) {
	data, err := c.conn.Fetch(ctx, "getLedgers", map[string]any{
		"startLedger": sequence,
		"pagination":  map[string]any{"limit": 1},
	})
	if err != nil {
		return nil, err
	}

	var ledgers LedgersResponse
	if err := json.Unmarshal(data, &ledgers); err != nil {
		return nil, err
	}

	if len(ledgers.Ledgers) == 0 {
		return nil, nil
	}
	return ledgers.Ledgers[0], nil
}

// getTransactions retrieves the transactions applied in the given ledger.
func (c *client) getTransactions(ctx context.Context, sequence uint64) ([]TransactionResponse, error) {
	data, err := c.conn.Fetch(ctx, "getTransactions", map[string]any{
		"startLedger": sequence,
		"xdrFormat":   "json",
		"pagination":  map[string]any{"limit": transactionPageLimit},
	})
	if err != nil {
		return nil, err
	}

	var page TransactionsResponse
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, err
	}

	// The page may spill into later ledgers; keep only the requested one.
	var transactions []TransactionResponse
	for _, tx := range page.Transactions {
		if tx.Ledger == sequence {
			transactions = append(transactions, tx)
		}
	}
	return transactions, nil
}

// getEvents retrieves the contract events emitted by monitored contracts in
// the given ledger, in the order the RPC reports them.
func (c *client) getEvents(ctx context.Context, sequence uint64) ([]EventResponse, error) {
	filter := map[string]any{"type": "contract"}
	if len(c.contracts) > 0 {
		filter["contractIds"] = c.contracts.ToSlice()
	}

	data, err := c.conn.Fetch(ctx, "getEvents", map[string]any{
		"startLedger": sequence,
		"endLedger":   sequence + 1,
		"filters":     []any{filter},
		"xdrFormat":   "json",
	})
	if err != nil {
		return nil, err
	}

	var page EventsResponse
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, err
	}

	var events []EventResponse
	for _, event := range page.Events {
		if event.Ledger == sequence {
			events = append(events, event)
		}
	}
	return events, nil
}

// FetchBlock acquires one ledger and decodes it into match candidates. Each
// transaction yields one candidate per decoded element (host function
// invocation or contract event); a transaction with nothing to decode
// yields a single transaction-only candidate.
func (c *client) FetchBlock(ctx context.Context, height uint64) (watcher.FetchedBlock, error) {
	raw, err := c.getLedger(ctx, height)
	if err != nil {
		return watcher.FetchedBlock{}, err
	}

	transactions, err := c.getTransactions(ctx, height)
	if err != nil {
		return watcher.FetchedBlock{}, err
	}

	var events []EventResponse
	if len(c.contracts) > 0 {
		events, err = c.getEvents(ctx, height)
		if err != nil {
			return watcher.FetchedBlock{}, err
		}
	}

	eventsByTx := make(map[string][]EventResponse)
	for _, event := range events {
		eventsByTx[event.TxHash] = append(eventsByTx[event.TxHash], event)
	}

	var candidates []model.MatchCandidate
	for _, tx := range transactions {
		candidates = append(candidates, c.decodeTransaction(height, tx, eventsByTx[tx.TxHash])...)
	}

	return watcher.FetchedBlock{
		Height:     height,
		Raw:        raw,
		Candidates: candidates,
	}, nil
}

// monitored reports whether the contract id belongs to a watched contract.
// Stellar addresses are case-significant strkeys and compare exactly.
func (c *client) monitored(contractID string) bool {
	if len(c.contracts) == 0 {
		return false
	}
	return c.contracts.Contains(strings.TrimSpace(contractID))
}

// decodeTransaction expands one transaction into its candidates, assigning
// element indices in encounter order within the transaction.
func (c *client) decodeTransaction(height uint64, tx TransactionResponse, events []EventResponse) []model.MatchCandidate {
	transaction := tx.toModelTransaction()

	var candidates []model.MatchCandidate

	functionIndex := 0
	for _, op := range tx.Envelope.Tx.Tx.Operations {
		invoke := op.Body.InvokeHostFunction
		if invoke == nil || invoke.HostFunction.InvokeContract == nil {
			continue
		}

		call := invoke.HostFunction.InvokeContract
		if !c.monitored(call.ContractAddress) {
			continue
		}

		function := call.decodeInvocation()
		function.Index = functionIndex
		functionIndex++

		candidates = append(candidates, model.MatchCandidate{
			Kind: model.ChainKindStellar,
			Stellar: &model.StellarCandidate{
				LedgerSequence:  height,
				Transaction:     transaction,
				ContractAddress: call.ContractAddress,
				Function:        function,
			},
		})
	}

	eventIndex := 0
	for _, entry := range events {
		event := entry.decodeEvent()
		event.Index = eventIndex
		eventIndex++

		candidates = append(candidates, model.MatchCandidate{
			Kind: model.ChainKindStellar,
			Stellar: &model.StellarCandidate{
				LedgerSequence:  height,
				Transaction:     transaction,
				ContractAddress: entry.ContractID,
				Event:           event,
			},
		})
	}

	if len(candidates) == 0 {
		candidates = append(candidates, model.MatchCandidate{
			Kind: model.ChainKindStellar,
			Stellar: &model.StellarCandidate{
				LedgerSequence: height,
				Transaction:    transaction,
			},
		})
	}

	return candidates
}
