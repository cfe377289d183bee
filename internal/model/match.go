package model

import (
	"github.com/gabapcia/chainsentinel/internal/pkg/types"
)

// DecodedParam is one decoded argument of a function call or event. EVM
// parameters carry their ABI-declared names; Stellar parameters are named by
// position ("0", "1", ...). Values are normalized strings: decimal for
// integers, lowercase 0x-hex for addresses and byte blobs, "true"/"false"
// for booleans.
type DecodedParam struct {
	Name    string `json:"name"`
	Value   string `json:"value"`
	Indexed bool   `json:"indexed,omitempty"`
}

// DecodedFunction is a contract function invocation decoded from a
// transaction. Index is the encounter order of decoded functions within the
// transaction, starting at zero.
type DecodedFunction struct {
	Signature string         `json:"signature"`
	Index     int            `json:"index"`
	Params    []DecodedParam `json:"params"`
}

// DecodedEvent is a contract event decoded from a transaction's logs.
// Index is the encounter order of decoded events within the transaction,
// starting at zero, pinned to the order the RPC returned them.
type DecodedEvent struct {
	Signature string         `json:"signature"`
	Index     int            `json:"index"`
	Params    []DecodedParam `json:"params"`
}

// EVMTransaction is the normalized transaction envelope for EVM candidates.
type EVMTransaction struct {
	Hash     string            `json:"hash"`
	From     string            `json:"from"`
	To       string            `json:"to,omitempty"`
	Value    types.BigInt      `json:"value"`
	Gas      uint64            `json:"gas"`
	GasPrice types.BigInt      `json:"gas_price"`
	Status   TransactionStatus `json:"status"`
}

// EVMCandidate is one EVM transaction paired with at most one decoded
// element (function call or event).
type EVMCandidate struct {
	BlockNumber     uint64           `json:"block_number"`
	Transaction     EVMTransaction   `json:"transaction"`
	ContractAddress string           `json:"contract_address,omitempty"`
	Function        *DecodedFunction `json:"function,omitempty"`
	Event           *DecodedEvent    `json:"event,omitempty"`
}

// StellarTransaction is the normalized transaction envelope for Stellar
// candidates. From/to/value semantics do not apply; the source account and
// fee stand in.
type StellarTransaction struct {
	Hash          string            `json:"hash"`
	SourceAccount string            `json:"source_account"`
	Fee           types.BigInt      `json:"fee"`
	Status        TransactionStatus `json:"status"`
}

// StellarCandidate is one Stellar transaction paired with at most one
// decoded element (host function invocation or contract event).
type StellarCandidate struct {
	LedgerSequence  uint64             `json:"ledger_sequence"`
	Transaction     StellarTransaction `json:"transaction"`
	ContractAddress string             `json:"contract_address,omitempty"`
	Function        *DecodedFunction   `json:"function,omitempty"`
	Event           *DecodedEvent      `json:"event,omitempty"`
}

// MatchCandidate is the chain-agnostic unit of filter evaluation: one
// transaction plus at most one decoded element. Exactly one of EVM or
// Stellar is set, matching Kind.
type MatchCandidate struct {
	Kind    ChainKind         `json:"kind"`
	EVM     *EVMCandidate     `json:"evm,omitempty"`
	Stellar *StellarCandidate `json:"stellar,omitempty"`
}

// Height returns the block number or ledger sequence the candidate came from.
func (c MatchCandidate) Height() uint64 {
	switch c.Kind {
	case ChainKindEVM:
		return c.EVM.BlockNumber
	case ChainKindStellar:
		return c.Stellar.LedgerSequence
	}
	return 0
}

// TransactionHash returns the hash of the candidate's transaction.
func (c MatchCandidate) TransactionHash() string {
	switch c.Kind {
	case ChainKindEVM:
		return c.EVM.Transaction.Hash
	case ChainKindStellar:
		return c.Stellar.Transaction.Hash
	}
	return ""
}

// TransactionStatus returns the execution outcome of the candidate's
// transaction.
func (c MatchCandidate) TransactionStatus() TransactionStatus {
	switch c.Kind {
	case ChainKindEVM:
		return c.EVM.Transaction.Status
	case ChainKindStellar:
		return c.Stellar.Transaction.Status
	}
	return TxStatusAny
}

// ContractAddress returns the address the decoded element belongs to, or the
// empty string for transaction-only candidates.
func (c MatchCandidate) ContractAddress() string {
	switch c.Kind {
	case ChainKindEVM:
		return c.EVM.ContractAddress
	case ChainKindStellar:
		return c.Stellar.ContractAddress
	}
	return ""
}

// Function returns the decoded function call, or nil.
func (c MatchCandidate) Function() *DecodedFunction {
	switch c.Kind {
	case ChainKindEVM:
		return c.EVM.Function
	case ChainKindStellar:
		return c.Stellar.Function
	}
	return nil
}

// Event returns the decoded event, or nil.
func (c MatchCandidate) Event() *DecodedEvent {
	switch c.Kind {
	case ChainKindEVM:
		return c.EVM.Event
	case ChainKindStellar:
		return c.Stellar.Event
	}
	return nil
}

// HasDecodedElement reports whether the candidate carries a decoded function
// call or event.
func (c MatchCandidate) HasDecodedElement() bool {
	return c.Function() != nil || c.Event() != nil
}

// ConditionKind names the predicate group that produced a match.
type ConditionKind string

const (
	ConditionKindTransaction ConditionKind = "transaction"
	ConditionKindFunction    ConditionKind = "function"
	ConditionKindEvent       ConditionKind = "event"
)

// MatchedCondition records which predicate fired: its group, its index in
// the monitor's declaration order, and the signature it matched (empty for
// transaction conditions).
type MatchedCondition struct {
	Kind      ConditionKind `json:"kind"`
	Index     int           `json:"index"`
	Signature string        `json:"signature,omitempty"`
}

// MonitorMatch is a candidate that satisfied a monitor's predicates. It is
// the payload handed to trigger dispatch and serialized to filter and
// notification scripts.
type MonitorMatch struct {
	MonitorName       string             `json:"monitor_name"`
	NetworkSlug       string             `json:"network_slug"`
	Candidate         MatchCandidate     `json:"candidate"`
	MatchedConditions []MatchedCondition `json:"matched_conditions"`
}
