package evm

import (
	"github.com/gabapcia/chainsentinel/internal/model"
	"github.com/gabapcia/chainsentinel/internal/pkg/types"
)

type (
	// TransactionResponse represents a raw transaction object returned by
	// the EVM JSON-RPC API. Only the fields the pipeline consumes are
	// declared; the rest of the payload is preserved in the raw block.
	TransactionResponse struct {
		Hash             string    `json:"hash"`
		From             string    `json:"from"`
		To               string    `json:"to"`
		Value            string    `json:"value"`
		Gas              types.Hex `json:"gas"`
		GasPrice         string    `json:"gasPrice"`
		Input            string    `json:"input"`
		BlockNumber      types.Hex `json:"blockNumber"`
		TransactionIndex types.Hex `json:"transactionIndex"`
	}

	// BlockResponse represents a block returned by eth_getBlockByNumber
	// with full transaction objects.
	BlockResponse struct {
		Hash         string                `json:"hash"`
		ParentHash   string                `json:"parentHash"`
		Number       types.Hex             `json:"number"`
		Timestamp    types.Hex             `json:"timestamp"`
		Transactions []TransactionResponse `json:"transactions"`
	}

	// ReceiptResponse carries the transaction outcome fields read from
	// eth_getTransactionReceipt.
	ReceiptResponse struct {
		TransactionHash   string    `json:"transactionHash"`
		Status            types.Hex `json:"status"`
		GasUsed           types.Hex `json:"gasUsed"`
		EffectiveGasPrice string    `json:"effectiveGasPrice"`
	}

	// LogResponse represents one entry returned by eth_getLogs.
	LogResponse struct {
		Address          string    `json:"address"`
		Topics           []string  `json:"topics"`
		Data             string    `json:"data"`
		BlockNumber      types.Hex `json:"blockNumber"`
		TransactionHash  string    `json:"transactionHash"`
		LogIndex         types.Hex `json:"logIndex"`
		TransactionIndex types.Hex `json:"transactionIndex"`
	}
)

// quantityToBigInt parses a 0x-prefixed quantity of arbitrary width.
// Missing fields decode as zero.
func quantityToBigInt(s string) types.BigInt {
	if s == "" {
		return types.BigInt{}
	}

	value, err := types.BigIntFromString(s)
	if err != nil {
		return types.BigInt{}
	}
	return value
}

// status converts the receipt status flag into the transaction outcome.
func (r ReceiptResponse) status() model.TransactionStatus {
	if r.Status.Uint64() == 1 {
		return model.TxStatusSuccess
	}
	return model.TxStatusFailure
}

// toModelTransaction normalizes the wire transaction into the candidate
// envelope, taking the outcome from the receipt. The receipt's effective gas
// price is used only when the transaction carries no gasPrice.
func (t TransactionResponse) toModelTransaction(receipt ReceiptResponse) model.EVMTransaction {
	gasPrice := t.GasPrice
	if gasPrice == "" {
		gasPrice = receipt.EffectiveGasPrice
	}

	return model.EVMTransaction{
		Hash:     t.Hash,
		From:     t.From,
		To:       t.To,
		Value:    quantityToBigInt(t.Value),
		Gas:      t.Gas.Uint64(),
		GasPrice: quantityToBigInt(gasPrice),
		Status:   receipt.status(),
	}
}
