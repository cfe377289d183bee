package trigger

import (
	"testing"

	"github.com/gabapcia/chainsentinel/internal/model"
	"github.com/gabapcia/chainsentinel/internal/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	vars := map[string]string{
		"monitor_name": "large-transfers",
		"value":        "20000000000",
	}

	t.Run("substitutes known identifiers", func(t *testing.T) {
		out := Render("monitor ${monitor_name} saw ${value}", vars)

		assert.Equal(t, "monitor large-transfers saw 20000000000", out)
	})

	t.Run("unknown identifiers expand to the empty string", func(t *testing.T) {
		out := Render("before ${missing} after", vars)

		assert.Equal(t, "before  after", out)
	})

	t.Run("rendering is total for any template", func(t *testing.T) {
		templates := []string{
			"",
			"plain text",
			"${}",
			"${unclosed",
			"$notbraced",
			"${a}${b}${c}",
		}

		for _, template := range templates {
			assert.NotPanics(t, func() { Render(template, vars) })
		}
	})

	t.Run("bare dollar is left untouched", func(t *testing.T) {
		assert.Equal(t, "$value", Render("$value", vars))
	})
}

func evmMatch() model.MonitorMatch {
	value, _ := types.BigIntFromString("20000000000")
	return model.MonitorMatch{
		MonitorName: "large-transfers",
		NetworkSlug: "ethereum",
		Candidate: model.MatchCandidate{
			Kind: model.ChainKindEVM,
			EVM: &model.EVMCandidate{
				BlockNumber: 18000000,
				Transaction: model.EVMTransaction{
					Hash:   "0xhash",
					From:   "0xabcabcabcabcabcabcabcabcabcabcabcabcabca",
					To:     "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48",
					Value:  types.BigIntFromUint64(0),
					Status: model.TxStatusSuccess,
				},
				ContractAddress: "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48",
				Event: &model.DecodedEvent{
					Signature: "Transfer(address,address,uint256)",
					Index:     0,
					Params: []model.DecodedParam{
						{Name: "from", Value: "0xabcabcabcabcabcabcabcabcabcabcabcabcabca", Indexed: true},
						{Name: "to", Value: "0xdefdefdefdefdefdefdefdefdefdefdefdefdefd", Indexed: true},
						{Name: "value", Value: value.String()},
					},
				},
			},
		},
	}
}

func TestVariables_EVM(t *testing.T) {
	vars := Variables(evmMatch())

	t.Run("exposes the common variable set", func(t *testing.T) {
		assert.Equal(t, "large-transfers", vars["monitor_name"])
		assert.Equal(t, "0xhash", vars["transaction_hash"])
		assert.Equal(t, "ethereum", vars["network_slug"])
	})

	t.Run("exposes EVM transaction fields", func(t *testing.T) {
		assert.Equal(t, "0xabcabcabcabcabcabcabcabcabcabcabcabcabca", vars["transaction_from"])
		assert.Equal(t, "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48", vars["transaction_to"])
		assert.Equal(t, "0", vars["transaction_value"])
	})

	t.Run("exposes event parameters under indexed names", func(t *testing.T) {
		assert.Equal(t, "Transfer(address,address,uint256)", vars["event_0_signature"])
		assert.Equal(t, "20000000000", vars["event_0_value"])
		assert.Equal(t, "0xabcabcabcabcabcabcabcabcabcabcabcabcabca", vars["event_0_from"])
	})

	t.Run("renders the notification body end to end", func(t *testing.T) {
		body := Render("Transfer of ${event_0_value} from ${transaction_from}", vars)

		require.Equal(t, "Transfer of 20000000000 from 0xabcabcabcabcabcabcabcabcabcabcabcabcabca", body)
	})
}

func TestVariables_Stellar(t *testing.T) {
	match := model.MonitorMatch{
		MonitorName: "soroban-transfers",
		NetworkSlug: "stellar",
		Candidate: model.MatchCandidate{
			Kind: model.ChainKindStellar,
			Stellar: &model.StellarCandidate{
				LedgerSequence: 50000000,
				Transaction: model.StellarTransaction{
					Hash:          "feedface",
					SourceAccount: "GASOURCE",
					Fee:           types.BigIntFromUint64(100),
					Status:        model.TxStatusSuccess,
				},
				ContractAddress: "CA5TEST",
				Function: &model.DecodedFunction{
					Signature: "transfer(Address,Address,I128)",
					Index:     0,
					Params: []model.DecodedParam{
						{Name: "0", Value: "GA...X"},
						{Name: "1", Value: "GA...Y"},
						{Name: "2", Value: "2000"},
					},
				},
			},
		},
	}

	vars := Variables(match)

	t.Run("exposes positional function parameters", func(t *testing.T) {
		assert.Equal(t, "transfer(Address,Address,I128)", vars["function_0_signature"])
		assert.Equal(t, "2000", vars["function_0_2"])
	})

	t.Run("does not expose EVM-only transaction fields", func(t *testing.T) {
		_, ok := vars["transaction_from"]
		assert.False(t, ok)
		_, ok = vars["transaction_value"]
		assert.False(t, ok)
	})

	t.Run("webhook body carries the positional amount", func(t *testing.T) {
		body := Render("amount=${function_0_2}", vars)

		assert.Equal(t, "amount=2000", body)
	})
}
