package filter

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/gabapcia/chainsentinel/internal/model"
	"github.com/gabapcia/chainsentinel/internal/pkg/logger"
	"github.com/gabapcia/chainsentinel/internal/pkg/script"
)

// scriptInput is the JSON document written to a gate script's stdin.
type scriptInput struct {
	MonitorMatch model.MonitorMatch `json:"monitor_match"`
	Args         string             `json:"args"`
}

// scriptGate runs a monitor's trigger-condition scripts. Each script reads
// the match on stdin and reports its verdict as the last non-empty stdout
// line: "true" keeps the match, anything else (including a non-zero exit or
// a timeout) discards it.
type scriptGate struct{}

func newScriptGate() *scriptGate {
	return &scriptGate{}
}

// run applies the conditions in declared order and stops at the first
// rejection.
func (g *scriptGate) run(ctx context.Context, conditions []model.TriggerCondition, match model.MonitorMatch) bool {
	for _, condition := range conditions {
		if !g.runOne(ctx, condition, match) {
			return false
		}
	}
	return true
}

func (g *scriptGate) runOne(ctx context.Context, condition model.TriggerCondition, match model.MonitorMatch) bool {
	input, err := json.Marshal(scriptInput{
		MonitorMatch: match,
		Args:         strings.Join(condition.Arguments, " "),
	})
	if err != nil {
		logger.Error(ctx, "failed to encode match for filter script",
			"monitor", match.MonitorName,
			"script", condition.ScriptPath,
			"error", err,
		)
		return false
	}

	timeout := time.Duration(condition.TimeoutMS) * time.Millisecond
	result, err := script.Run(ctx, condition.ScriptPath, condition.Arguments, input, timeout)
	if err != nil {
		logger.Warn(ctx, "filter script failed; treating as a non-match",
			"monitor", match.MonitorName,
			"script", condition.ScriptPath,
			"error", err,
		)
		return false
	}

	verdict := result.LastLine()
	switch verdict {
	case "true":
		return true
	case "false":
		return false
	default:
		logger.Warn(ctx, "filter script produced no boolean verdict; treating as a non-match",
			"monitor", match.MonitorName,
			"script", condition.ScriptPath,
			"output", verdict,
		)
		return false
	}
}
