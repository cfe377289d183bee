// Package filter evaluates monitor conditions against decoded match
// candidates. Predicate expressions are compiled once at startup; evaluation
// is pure CPU work and depends only on the monitor's predicates, the
// candidate's fields, and the monitor's address set.
package filter

import (
	"context"
	"strings"

	"github.com/gabapcia/chainsentinel/internal/model"
	"github.com/gabapcia/chainsentinel/internal/pkg/logger"
	"github.com/gabapcia/chainsentinel/internal/pkg/types"
)

// compiledPredicate is one monitor condition with its expression compiled.
// A condition whose expression failed to compile never matches.
type compiledPredicate struct {
	index      int
	status     model.TransactionStatus // transaction conditions only
	signature  string                  // function/event conditions, normalized
	expression *Expression
	broken     bool
}

// compiledMonitor caches everything the engine needs to evaluate one
// monitor without re-parsing configuration.
type compiledMonitor struct {
	monitor model.Monitor

	exactAddresses types.Set[string] // as configured (Stellar comparison)
	lowerAddresses types.Set[string] // lowercased (EVM comparison)

	transactions []compiledPredicate
	functions    []compiledPredicate
	events       []compiledPredicate
}

// Engine evaluates candidates against the configured monitors.
type Engine struct {
	monitors map[string]*compiledMonitor
	gate     *scriptGate
}

// normalizeSignature strips whitespace so "Transfer(address, uint256)" and
// "Transfer(address,uint256)" compare equal.
func normalizeSignature(signature string) string {
	return strings.ReplaceAll(signature, " ", "")
}

// NewEngine compiles every monitor's predicate expressions. Compilation
// failures are logged once here and mark the predicate as never matching.
func NewEngine(monitors []model.Monitor) *Engine {
	compiled := make(map[string]*compiledMonitor, len(monitors))

	for _, monitor := range monitors {
		cm := &compiledMonitor{
			monitor:        monitor,
			exactAddresses: types.NewSet[string](),
			lowerAddresses: types.NewSet[string](),
		}

		for _, address := range monitor.Addresses {
			cm.exactAddresses.Add(address.Address)
			cm.lowerAddresses.Add(strings.ToLower(address.Address))
		}

		for i, condition := range monitor.MatchConditions.Transactions {
			cm.transactions = append(cm.transactions, compilePredicate(monitor.Name, i, condition.Expression, compiledPredicate{
				index:  i,
				status: condition.Status,
			}))
		}
		for i, condition := range monitor.MatchConditions.Functions {
			cm.functions = append(cm.functions, compilePredicate(monitor.Name, i, condition.Expression, compiledPredicate{
				index:     i,
				signature: normalizeSignature(condition.Signature),
			}))
		}
		for i, condition := range monitor.MatchConditions.Events {
			cm.events = append(cm.events, compilePredicate(monitor.Name, i, condition.Expression, compiledPredicate{
				index:     i,
				signature: normalizeSignature(condition.Signature),
			}))
		}

		compiled[monitor.Name] = cm
	}

	return &Engine{
		monitors: compiled,
		gate:     newScriptGate(),
	}
}

// compilePredicate fills in the compiled expression, marking the predicate
// broken when the expression does not parse.
func compilePredicate(monitorName string, index int, source string, p compiledPredicate) compiledPredicate {
	expression, err := Compile(source)
	if err != nil {
		logger.Error(context.Background(), "monitor has a malformed condition expression; it will never match",
			"monitor", monitorName,
			"condition.index", index,
			"error", err,
		)
		p.broken = true
		return p
	}

	p.expression = expression
	return p
}

// addressAllowed applies the monitor's address gate to candidates carrying a
// decoded element. EVM hex addresses compare case-insensitively, Stellar
// addresses exactly. Transaction-only candidates carry no associated address
// and pass. An empty address book also passes.
func (cm *compiledMonitor) addressAllowed(candidate model.MatchCandidate) bool {
	address := candidate.ContractAddress()
	if address == "" || len(cm.exactAddresses) == 0 {
		return true
	}

	if candidate.Kind == model.ChainKindEVM {
		return cm.lowerAddresses.Contains(strings.ToLower(address))
	}
	return cm.exactAddresses.Contains(address)
}

// transactionParams exposes the transaction fields predicate expressions can
// reference.
func transactionParams(candidate model.MatchCandidate) map[string]string {
	params := map[string]string{
		"hash":   candidate.TransactionHash(),
		"status": string(candidate.TransactionStatus()),
	}

	switch candidate.Kind {
	case model.ChainKindEVM:
		tx := candidate.EVM.Transaction
		params["from"] = tx.From
		params["to"] = tx.To
		params["value"] = tx.Value.String()
		params["gas"] = types.BigIntFromUint64(tx.Gas).String()
		params["gas_price"] = tx.GasPrice.String()

	case model.ChainKindStellar:
		tx := candidate.Stellar.Transaction
		params["source_account"] = tx.SourceAccount
		params["fee"] = tx.Fee.String()
	}

	return params
}

// elementParams exposes the decoded element's parameters by name.
func elementParams(params []model.DecodedParam) map[string]string {
	out := make(map[string]string, len(params))
	for _, param := range params {
		out[param.Name] = param.Value
	}
	return out
}

// Match evaluates one candidate against one monitor. It applies the address
// gate, then the grouped predicate rule: the candidate matches when some
// transaction predicate accepts it (or none are declared) AND some
// function-or-event predicate accepts its decoded element (or none are
// declared). A monitor with no predicates at all matches every candidate.
//
// The returned MonitorMatch records which predicates fired. Script gates are
// applied separately via RunGates.
func (e *Engine) Match(monitorName, networkSlug string, candidate model.MatchCandidate) (model.MonitorMatch, bool) {
	cm, ok := e.monitors[monitorName]
	if !ok {
		return model.MonitorMatch{}, false
	}

	if !cm.addressAllowed(candidate) {
		return model.MonitorMatch{}, false
	}

	var matched []model.MatchedCondition

	txOK := len(cm.transactions) == 0
	if !txOK {
		params := transactionParams(candidate)
		for _, predicate := range cm.transactions {
			if predicate.broken || !predicate.status.Matches(candidate.TransactionStatus()) {
				continue
			}
			if predicate.expression.Evaluate(params) {
				matched = append(matched, model.MatchedCondition{
					Kind:  model.ConditionKindTransaction,
					Index: predicate.index,
				})
				txOK = true
				break
			}
		}
	}

	efDefined := len(cm.functions) > 0 || len(cm.events) > 0
	efOK := !efDefined
	if efDefined {
		if function := candidate.Function(); function != nil {
			if condition, ok := matchElement(cm.functions, function.Signature, function.Params); ok {
				condition.Kind = model.ConditionKindFunction
				matched = append(matched, condition)
				efOK = true
			}
		}

		if event := candidate.Event(); event != nil && !efOK {
			if condition, ok := matchElement(cm.events, event.Signature, event.Params); ok {
				condition.Kind = model.ConditionKindEvent
				matched = append(matched, condition)
				efOK = true
			}
		}
	}

	if !txOK || !efOK {
		return model.MonitorMatch{}, false
	}

	return model.MonitorMatch{
		MonitorName:       monitorName,
		NetworkSlug:       networkSlug,
		Candidate:         candidate,
		MatchedConditions: matched,
	}, true
}

// matchElement finds the first predicate whose signature and expression
// accept the decoded element.
func matchElement(predicates []compiledPredicate, signature string, params []model.DecodedParam) (model.MatchedCondition, bool) {
	normalized := normalizeSignature(signature)

	var values map[string]string
	for _, predicate := range predicates {
		if predicate.broken || predicate.signature != normalized {
			continue
		}

		if values == nil {
			values = elementParams(params)
		}
		if predicate.expression.Evaluate(values) {
			return model.MatchedCondition{
				Index:     predicate.index,
				Signature: signature,
			}, true
		}
	}

	return model.MatchedCondition{}, false
}

// RunGates executes the monitor's trigger-condition scripts in declared
// order against a match that already passed predicate evaluation. The first
// script reporting false (or failing) discards the match.
func (e *Engine) RunGates(ctx context.Context, match model.MonitorMatch) bool {
	cm, ok := e.monitors[match.MonitorName]
	if !ok {
		return false
	}
	return e.gate.run(ctx, cm.monitor.TriggerConditions, match)
}
