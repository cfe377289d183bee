package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gabapcia/chainsentinel/internal/model"
	"github.com/gabapcia/chainsentinel/internal/pkg/script"
)

// scriptNotifier hands the match to a local executable. The script receives
// the same stdin document as filter gate scripts; its exit status decides
// the outcome.
type scriptNotifier struct {
	cfg model.ScriptTriggerConfig
}

var _ Notifier = (*scriptNotifier)(nil)

func newScriptNotifier(cfg model.ScriptTriggerConfig) *scriptNotifier {
	return &scriptNotifier{cfg: cfg}
}

// scriptInput is the JSON document written to the script's stdin.
type scriptInput struct {
	MonitorMatch model.MonitorMatch `json:"monitor_match"`
	Args         string             `json:"args"`
}

func (n *scriptNotifier) Send(ctx context.Context, payload Payload) error {
	input, err := json.Marshal(scriptInput{
		MonitorMatch: payload.Match,
		Args:         strings.Join(n.cfg.Arguments, " "),
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTerminal, err)
	}

	timeout := time.Duration(n.cfg.TimeoutMS) * time.Millisecond
	if _, err := script.Run(ctx, n.cfg.ScriptPath, n.cfg.Arguments, input, timeout); err != nil {
		// Timeouts and non-zero exits alike may succeed on a later attempt.
		return fmt.Errorf("%w: %w", ErrRetryable, err)
	}
	return nil
}
