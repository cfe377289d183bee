package evm

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/big"
	"reflect"
	"strconv"
	"strings"

	"github.com/gabapcia/chainsentinel/internal/model"
	"github.com/gabapcia/chainsentinel/internal/pkg/logger"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// contractIndex holds the parsed ABIs of every monitored contract, keyed by
// lowercased address. Function selectors and event topic hashes resolve
// through the contract's own ABI, so two contracts may declare colliding
// selectors without interfering.
type contractIndex struct {
	contracts map[string]*abi.ABI
}

// newContractIndex parses the ABI of every monitored address that declares
// one. A monitor address without an ABI still participates in address
// matching, it just cannot be decoded.
func newContractIndex(addresses []model.AddressWithABI) (*contractIndex, error) {
	contracts := make(map[string]*abi.ABI)
	for _, entry := range addresses {
		if len(entry.ABI) == 0 {
			continue
		}

		key := strings.ToLower(entry.Address)
		if _, ok := contracts[key]; ok {
			continue
		}

		parsed, err := abi.JSON(strings.NewReader(string(entry.ABI)))
		if err != nil {
			return nil, fmt.Errorf("parsing ABI for %s: %w", entry.Address, err)
		}
		contracts[key] = &parsed
	}

	return &contractIndex{contracts: contracts}, nil
}

// addresses returns the monitored contract addresses that carry an ABI,
// which is exactly the address filter used for eth_getLogs.
func (ci *contractIndex) addresses() []string {
	out := make([]string, 0, len(ci.contracts))
	for address := range ci.contracts {
		out = append(out, address)
	}
	return out
}

// decodeFunctionCall matches the transaction input's 4-byte selector against
// the target contract's ABI and unpacks the call arguments. It returns nil
// when the target is not monitored or the selector is unknown.
func (ci *contractIndex) decodeFunctionCall(ctx context.Context, tx TransactionResponse) *model.DecodedFunction {
	contract, ok := ci.contracts[strings.ToLower(tx.To)]
	if !ok {
		return nil
	}

	input, err := hexutilDecode(tx.Input)
	if err != nil || len(input) < 4 {
		return nil
	}

	method, err := contract.MethodById(input[:4])
	if err != nil {
		// Unknown selector: the contract is monitored but this call is not
		// part of its declared interface.
		return nil
	}

	values, err := method.Inputs.Unpack(input[4:])
	if err != nil {
		logger.Warn(ctx, "failed to unpack function call arguments; candidate dropped",
			"transaction.hash", tx.Hash,
			"function.signature", method.Sig,
			"error", err,
		)
		return nil
	}

	params := make([]model.DecodedParam, len(method.Inputs))
	for i, arg := range method.Inputs {
		params[i] = model.DecodedParam{
			Name:  arg.Name,
			Value: formatValue(values[i]),
		}
	}

	return &model.DecodedFunction{
		Signature: method.Sig,
		Params:    params,
	}
}

// decodeEventLog matches topics[0] against the emitting contract's ABI and
// unpacks both indexed and non-indexed parameters, preserving the ABI
// declaration order.
func (ci *contractIndex) decodeEventLog(ctx context.Context, log LogResponse) *model.DecodedEvent {
	contract, ok := ci.contracts[strings.ToLower(log.Address)]
	if !ok || len(log.Topics) == 0 {
		return nil
	}

	event, err := contract.EventByID(common.HexToHash(log.Topics[0]))
	if err != nil {
		return nil
	}

	data, err := hexutilDecode(log.Data)
	if err != nil {
		logger.Warn(ctx, "malformed event log data; candidate dropped",
			"transaction.hash", log.TransactionHash,
			"event.signature", event.Sig,
			"error", err,
		)
		return nil
	}

	nonIndexed := make(map[string]any)
	if err := event.Inputs.UnpackIntoMap(nonIndexed, data); err != nil {
		logger.Warn(ctx, "failed to unpack event log data; candidate dropped",
			"transaction.hash", log.TransactionHash,
			"event.signature", event.Sig,
			"error", err,
		)
		return nil
	}

	var indexedArgs abi.Arguments
	for _, arg := range event.Inputs {
		if arg.Indexed {
			indexedArgs = append(indexedArgs, arg)
		}
	}

	indexed := make(map[string]any)
	if len(indexedArgs) > 0 {
		topics := make([]common.Hash, 0, len(log.Topics)-1)
		for _, topic := range log.Topics[1:] {
			topics = append(topics, common.HexToHash(topic))
		}

		if err := abi.ParseTopicsIntoMap(indexed, indexedArgs, topics); err != nil {
			logger.Warn(ctx, "failed to decode indexed event topics; candidate dropped",
				"transaction.hash", log.TransactionHash,
				"event.signature", event.Sig,
				"error", err,
			)
			return nil
		}
	}

	params := make([]model.DecodedParam, len(event.Inputs))
	for i, arg := range event.Inputs {
		source := nonIndexed
		if arg.Indexed {
			source = indexed
		}

		params[i] = model.DecodedParam{
			Name:    arg.Name,
			Value:   formatValue(source[arg.Name]),
			Indexed: arg.Indexed,
		}
	}

	return &model.DecodedEvent{
		Signature: event.Sig,
		Params:    params,
	}
}

// hexutilDecode decodes a 0x-prefixed hex blob, tolerating the bare "0x"
// empty payload.
func hexutilDecode(s string) ([]byte, error) {
	s = strings.TrimPrefix(s, "0x")
	if s == "" {
		return nil, nil
	}
	return hex.DecodeString(s)
}

// formatValue normalizes a decoded ABI value into the canonical string form
// the expression language and templates consume: decimal for integers,
// lowercase 0x-hex for addresses, hashes, and byte blobs.
func formatValue(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case *big.Int:
		return value.String()
	case common.Address:
		return strings.ToLower(value.Hex())
	case common.Hash:
		return strings.ToLower(value.Hex())
	case bool:
		return strconv.FormatBool(value)
	case string:
		return value
	case []byte:
		return "0x" + hex.EncodeToString(value)
	}

	// Fixed-size byte arrays (bytes32 and friends) arrive as [N]byte.
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Array && rv.Type().Elem().Kind() == reflect.Uint8 {
		buf := make([]byte, rv.Len())
		reflect.Copy(reflect.ValueOf(buf), rv)
		return "0x" + hex.EncodeToString(buf)
	}

	return fmt.Sprintf("%v", v)
}
