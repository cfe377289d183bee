// Package script runs external executables with a JSON document on stdin and
// captures their stdout. It is the common substrate for filter gate scripts
// and script-based notification sinks: spawn, write, close stdin, read, join,
// all bounded by a deadline.
package script

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

var (
	// ErrTimeout indicates the process exceeded its allotted execution time
	// and was killed.
	ErrTimeout = errors.New("script execution timed out")

	// ErrNonZeroExit indicates the process terminated with a non-zero status.
	ErrNonZeroExit = errors.New("script exited with non-zero status")
)

// Result carries the captured output of a finished script.
type Result struct {
	Stdout string // full standard output
	Stderr string // full standard error, kept for diagnostics
}

// LastLine returns the last non-empty line of stdout, trimmed of surrounding
// whitespace. Filter gate scripts report their verdict this way.
func (r Result) LastLine() string {
	lines := strings.Split(r.Stdout, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}

// Run executes the program at path with the given arguments, writing input to
// its stdin and closing the stream. Execution is bounded by timeout; on
// expiry the process is killed and ErrTimeout is returned. A non-zero exit
// status yields ErrNonZeroExit wrapped with the captured stderr.
func Run(ctx context.Context, path string, args []string, input []byte, timeout time.Duration) (Result, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stdin = bytes.NewReader(input)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// Bound how long Wait keeps reading pipes that descendants still hold
	// open once the process has exited or been killed.
	cmd.WaitDelay = 100 * time.Millisecond

	err := cmd.Run()
	result := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return result, fmt.Errorf("%w: %s", ErrTimeout, path)
		}

		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return result, fmt.Errorf("%w: code %d: %s", ErrNonZeroExit, exitErr.ExitCode(), strings.TrimSpace(result.Stderr))
		}
		return result, err
	}

	return result, nil
}
