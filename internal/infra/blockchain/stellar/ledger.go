package stellar

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gabapcia/chainsentinel/internal/model"
	"github.com/gabapcia/chainsentinel/internal/pkg/types"
)

type (
	// LatestLedgerResponse is the result of getLatestLedger.
	LatestLedgerResponse struct {
		Sequence uint64 `json:"sequence"`
	}

	// LedgersResponse is the result of getLedgers.
	LedgersResponse struct {
		Ledgers []json.RawMessage `json:"ledgers"`
	}

	// InvokeContractArgs is the JSON XDR form of a Soroban contract
	// invocation.
	InvokeContractArgs struct {
		ContractAddress string  `json:"contract_address"`
		FunctionName    string  `json:"function_name"`
		Args            []scVal `json:"args"`
	}

	// HostFunction wraps the invocable host function arms; only contract
	// invocations are decoded.
	HostFunction struct {
		InvokeContract *InvokeContractArgs `json:"invoke_contract,omitempty"`
	}

	// InvokeHostFunctionOp is the operation body arm carrying a host
	// function invocation.
	InvokeHostFunctionOp struct {
		HostFunction HostFunction `json:"host_function"`
	}

	// OperationBody declares the operation arms the decoder cares about.
	OperationBody struct {
		InvokeHostFunction *InvokeHostFunctionOp `json:"invoke_host_function,omitempty"`
	}

	// Operation is one transaction operation.
	Operation struct {
		Body OperationBody `json:"body"`
	}

	// TransactionEnvelope is the JSON XDR transaction envelope, trimmed to
	// the fields the pipeline consumes.
	TransactionEnvelope struct {
		Tx struct {
			Tx struct {
				SourceAccount string      `json:"source_account"`
				Fee           uint64      `json:"fee"`
				Operations    []Operation `json:"operations"`
			} `json:"tx"`
		} `json:"tx"`
	}

	// TransactionResponse is one entry of getTransactions with
	// xdrFormat "json".
	TransactionResponse struct {
		Status   string              `json:"status"`
		Ledger   uint64              `json:"ledger"`
		TxHash   string              `json:"txHash"`
		Envelope TransactionEnvelope `json:"envelopeJson"`
	}

	// TransactionsResponse is the result of getTransactions.
	TransactionsResponse struct {
		Transactions []TransactionResponse `json:"transactions"`
		Cursor       string                `json:"cursor,omitempty"`
	}

	// EventResponse is one entry of getEvents with xdrFormat "json".
	EventResponse struct {
		Ledger     uint64  `json:"ledger"`
		ContractID string  `json:"contractId"`
		TxHash     string  `json:"txHash"`
		Topics     []scVal `json:"topicJson"`
		Value      scVal   `json:"valueJson"`
	}

	// EventsResponse is the result of getEvents.
	EventsResponse struct {
		Events []EventResponse `json:"events"`
		Cursor string          `json:"cursor,omitempty"`
	}
)

// status maps the RPC status string onto the outcome model.
func (t TransactionResponse) status() model.TransactionStatus {
	if strings.EqualFold(t.Status, "SUCCESS") {
		return model.TxStatusSuccess
	}
	return model.TxStatusFailure
}

// toModelTransaction normalizes the envelope into the candidate's
// transaction record.
func (t TransactionResponse) toModelTransaction() model.StellarTransaction {
	return model.StellarTransaction{
		Hash:          t.TxHash,
		SourceAccount: t.Envelope.Tx.Tx.SourceAccount,
		Fee:           types.BigIntFromUint64(t.Envelope.Tx.Tx.Fee),
		Status:        t.status(),
	}
}

// positionalParams converts a value list into positionally named parameters.
func positionalParams(values []scVal) []model.DecodedParam {
	params := make([]model.DecodedParam, len(values))
	for i, value := range values {
		params[i] = model.DecodedParam{
			Name:  fmt.Sprintf("%d", i),
			Value: value.normalize(),
		}
	}
	return params
}

// signature assembles a readable signature from a name and the XDR type
// names of its arguments, e.g. "transfer(Address,Address,I128)".
func signature(name string, values []scVal) string {
	typeNames := make([]string, len(values))
	for i, value := range values {
		typeNames[i] = value.typeName()
	}
	return fmt.Sprintf("%s(%s)", name, strings.Join(typeNames, ","))
}

// decodeInvocation converts a contract invocation into a decoded function
// with positional parameters.
func (op InvokeContractArgs) decodeInvocation() *model.DecodedFunction {
	return &model.DecodedFunction{
		Signature: signature(op.FunctionName, op.Args),
		Params:    positionalParams(op.Args),
	}
}

// decodeEvent converts one contract event into a decoded event. The first
// topic names the event; the remaining topics and the data value become its
// positional parameters.
func (e EventResponse) decodeEvent() *model.DecodedEvent {
	name := "event"
	dataTopics := e.Topics
	if len(e.Topics) > 0 {
		if symbol := e.Topics[0].normalize(); symbol != "" {
			name = symbol
		}
		dataTopics = e.Topics[1:]
	}

	values := make([]scVal, 0, len(dataTopics)+1)
	values = append(values, dataTopics...)
	if len(e.Value) > 0 {
		values = append(values, e.Value)
	}

	return &model.DecodedEvent{
		Signature: signature(name, values),
		Params:    positionalParams(values),
	}
}
