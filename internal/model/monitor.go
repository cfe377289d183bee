package model

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gabapcia/chainsentinel/internal/pkg/validator"
)

// TransactionStatus constrains a transaction condition to a terminal
// execution outcome, or matches either with TxStatusAny.
type TransactionStatus string

const (
	TxStatusSuccess TransactionStatus = "success"
	TxStatusFailure TransactionStatus = "failure"
	TxStatusAny     TransactionStatus = "any"
)

// UnmarshalJSON accepts status values case-insensitively ("Success",
// "success", "SUCCESS" are equivalent).
func (s *TransactionStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch status := TransactionStatus(strings.ToLower(raw)); status {
	case TxStatusSuccess, TxStatusFailure, TxStatusAny:
		*s = status
		return nil
	default:
		return fmt.Errorf("unknown transaction status: %q", raw)
	}
}

// Matches reports whether the condition status accepts the observed outcome.
func (s TransactionStatus) Matches(observed TransactionStatus) bool {
	return s == TxStatusAny || s == observed
}

type (
	// TransactionCondition matches whole transactions by execution status
	// and an optional expression over transaction fields.
	TransactionCondition struct {
		Status     TransactionStatus `json:"status" validate:"required"`
		Expression string            `json:"expression,omitempty"`
	}

	// FunctionCondition matches decoded contract function calls by
	// signature and an optional expression over the call's parameters.
	FunctionCondition struct {
		Signature  string `json:"signature" validate:"required"`
		Expression string `json:"expression,omitempty"`
	}

	// EventCondition matches decoded contract events by signature and an
	// optional expression over the event's parameters.
	EventCondition struct {
		Signature  string `json:"signature" validate:"required"`
		Expression string `json:"expression,omitempty"`
	}

	// MatchConditions groups every predicate a monitor declares.
	MatchConditions struct {
		Functions    []FunctionCondition    `json:"functions" validate:"dive"`
		Events       []EventCondition       `json:"events" validate:"dive"`
		Transactions []TransactionCondition `json:"transactions" validate:"dive"`
	}
)

// IsEmpty reports whether the monitor declares no predicates at all, in which
// case every candidate on a targeted network matches.
func (m MatchConditions) IsEmpty() bool {
	return len(m.Functions) == 0 && len(m.Events) == 0 && len(m.Transactions) == 0
}

// AddressWithABI pairs a watched contract address with its optional ABI
// definition. The ABI is required to decode EVM function calls and events;
// Stellar contracts are decoded positionally and leave it nil.
type AddressWithABI struct {
	Address string          `json:"address" validate:"required"`
	ABI     json.RawMessage `json:"abi,omitempty"`
}

// TriggerCondition references an external filter script that gates matches
// after predicate evaluation. Scripts run in declared order; the first one
// that reports false discards the match.
type TriggerCondition struct {
	ScriptPath string   `json:"script_path" validate:"required"`
	Arguments  []string `json:"arguments,omitempty"`
	TimeoutMS  uint32   `json:"timeout_ms" validate:"required,gt=0"`
}

// Monitor declares what to watch and what to do on a match: the target
// networks, the address book, the predicate set, the filter-script gates,
// and the triggers to fire.
type Monitor struct {
	Name              string             `json:"name" validate:"required"`
	Networks          []string           `json:"networks" validate:"required,min=1"`
	Paused            bool               `json:"paused"`
	Addresses         []AddressWithABI   `json:"addresses" validate:"dive"`
	MatchConditions   MatchConditions    `json:"match_conditions"`
	TriggerConditions []TriggerCondition `json:"trigger_conditions" validate:"dive"`
	Triggers          []string           `json:"triggers"`
}

// Validate checks the monitor definition against its declared constraints.
func (m Monitor) Validate() error {
	return validator.Validate(m)
}

// WatchesNetwork reports whether slug is in the monitor's target set.
func (m Monitor) WatchesNetwork(slug string) bool {
	for _, network := range m.Networks {
		if network == slug {
			return true
		}
	}
	return false
}
