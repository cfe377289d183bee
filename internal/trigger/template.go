package trigger

import (
	"fmt"
	"regexp"

	"github.com/gabapcia/chainsentinel/internal/model"
)

// placeholderPattern matches ${identifier} substitution sites. Identifiers
// are the variable names derived from a monitor match.
var placeholderPattern = regexp.MustCompile(`\$\{([A-Za-z0-9_]+)\}`)

// Render substitutes every ${identifier} in template with its value from
// vars. Unknown identifiers expand to the empty string; rendering is total
// and never fails.
func Render(template string, vars map[string]string) string {
	return placeholderPattern.ReplaceAllStringFunc(template, func(placeholder string) string {
		name := placeholder[2 : len(placeholder)-1]
		return vars[name]
	})
}

// Variables derives the template variable set from a monitor match.
//
// Common variables: monitor_name, transaction_hash, and per decoded element
// function_<i>_signature / event_<i>_signature plus one variable per decoded
// parameter (function_<i>_<name>). EVM matches additionally expose
// transaction_from, transaction_to, and transaction_value; Stellar
// parameters are keyed by position.
func Variables(match model.MonitorMatch) map[string]string {
	vars := map[string]string{
		"monitor_name":     match.MonitorName,
		"network_slug":     match.NetworkSlug,
		"transaction_hash": match.Candidate.TransactionHash(),
	}

	if match.Candidate.Kind == model.ChainKindEVM {
		tx := match.Candidate.EVM.Transaction
		vars["transaction_from"] = tx.From
		vars["transaction_to"] = tx.To
		vars["transaction_value"] = tx.Value.String()
	}

	if function := match.Candidate.Function(); function != nil {
		prefix := fmt.Sprintf("function_%d", function.Index)
		vars[prefix+"_signature"] = function.Signature
		for _, param := range function.Params {
			vars[fmt.Sprintf("%s_%s", prefix, param.Name)] = param.Value
		}
	}

	if event := match.Candidate.Event(); event != nil {
		prefix := fmt.Sprintf("event_%d", event.Index)
		vars[prefix+"_signature"] = event.Signature
		for _, param := range event.Params {
			vars[fmt.Sprintf("%s_%s", prefix, param.Name)] = param.Value
		}
	}

	return vars
}
