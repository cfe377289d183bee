// Package trigger resolves a monitor match into its configured triggers,
// renders the notification templates, and drives delivery through the
// notifier sinks. Within one match triggers fire strictly in declared
// order; across matches dispatch runs concurrently up to a fan-out limit.
package trigger

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gabapcia/chainsentinel/internal/model"
	"github.com/gabapcia/chainsentinel/internal/notifier"
	"github.com/gabapcia/chainsentinel/internal/pkg/logger"
	"github.com/gabapcia/chainsentinel/internal/pkg/resilience/retry"
	"github.com/gabapcia/chainsentinel/internal/pkg/x/chflow"
	"github.com/gabapcia/chainsentinel/internal/repository"
)

// defaultFanOutLimit bounds how many matches are dispatched concurrently.
const defaultFanOutLimit = 32

// Dispatcher owns the trigger lookup table and one pre-built notifier per
// trigger. Notifications are attempted at least once; retryable failures
// are retried with backoff, terminal failures are logged and skipped.
// A delivery failure never propagates to the caller: the containing block
// still completes and the cursor still advances.
type Dispatcher struct {
	monitors *repository.MonitorRepository
	triggers *repository.TriggerRepository

	notifiers map[string]notifier.Notifier

	retry  retry.Retry
	fanOut chan struct{}
}

// config holds construction settings for the Dispatcher.
type config struct {
	fanOutLimit int
	retry       retry.Retry
}

// Option customizes the Dispatcher returned by NewDispatcher.
type Option func(*config)

// WithFanOutLimit overrides the concurrent-dispatch bound. Default: 32.
func WithFanOutLimit(n int) Option {
	return func(c *config) {
		c.fanOutLimit = n
	}
}

// WithRetry overrides the delivery retry policy. Default: 3 attempts with
// exponential backoff from 100ms capped at 10s.
func WithRetry(r retry.Retry) Option {
	return func(c *config) {
		c.retry = r
	}
}

// NewDispatcher builds a notifier for every registered trigger up front so
// that misconfigured sinks fail at startup, not at delivery time.
func NewDispatcher(monitors *repository.MonitorRepository, triggers *repository.TriggerRepository, factory *notifier.Factory, opts ...Option) (*Dispatcher, error) {
	cfg := config{
		fanOutLimit: defaultFanOutLimit,
		retry: retry.New(
			retry.WithAttempts(3),
			retry.WithDelay(100*time.Millisecond),
			retry.WithMaxDelay(10*time.Second),
		),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	notifiers := make(map[string]notifier.Notifier)
	for _, t := range triggers.All() {
		n, err := factory.For(t)
		if err != nil {
			return nil, err
		}
		notifiers[t.Name] = n
	}

	return &Dispatcher{
		monitors:  monitors,
		triggers:  triggers,
		notifiers: notifiers,
		retry:     cfg.retry,
		fanOut:    make(chan struct{}, cfg.fanOutLimit),
	}, nil
}

// DispatchAll delivers a block's matches concurrently, bounded by the
// fan-out limit, and blocks until every match reached a terminal outcome.
// The block watcher relies on this barrier before advancing the cursor.
func (d *Dispatcher) DispatchAll(ctx context.Context, matches []model.MonitorMatch) {
	var wg sync.WaitGroup
	for _, match := range matches {
		if ok := chflow.Send(ctx, d.fanOut, struct{}{}); !ok {
			break
		}

		wg.Add(1)
		go func(match model.MonitorMatch) {
			defer wg.Done()
			defer func() { <-d.fanOut }()

			d.Dispatch(ctx, match)
		}(match)
	}
	wg.Wait()
}

// Dispatch fires the match's triggers sequentially in the order the monitor
// declares them.
func (d *Dispatcher) Dispatch(ctx context.Context, match model.MonitorMatch) {
	monitor, ok := d.monitors.Get(match.MonitorName)
	if !ok {
		logger.Error(ctx, "match references unknown monitor", "monitor", match.MonitorName)
		return
	}

	vars := Variables(match)
	for _, name := range monitor.Triggers {
		d.fire(ctx, name, match, vars)
	}
}

// fire renders and delivers one trigger, retrying retryable failures.
func (d *Dispatcher) fire(ctx context.Context, name string, match model.MonitorMatch, vars map[string]string) {
	t, ok := d.triggers.Get(name)
	if !ok {
		logger.Error(ctx, "monitor references unknown trigger",
			"monitor", match.MonitorName,
			"trigger", name,
		)
		return
	}

	n, ok := d.notifiers[name]
	if !ok {
		return
	}

	payload := notifier.Payload{Match: match}
	if message := t.Message(); message != nil {
		payload.Title = Render(message.Title, vars)
		payload.Body = Render(message.Body, vars)
	}

	// Each sink bounds its own delivery attempt: the shared HTTP pool's
	// timeout for webhook-family sinks, the SMTP session timeout for email,
	// and the configured timeout_ms for scripts.
	err := d.retry.Execute(ctx, func() error {
		err := n.Send(ctx, payload)
		if err != nil && !errors.Is(err, notifier.ErrRetryable) {
			return retry.Unrecoverable(err)
		}
		return err
	})
	if err != nil {
		logger.Error(ctx, "notification delivery failed",
			"monitor", match.MonitorName,
			"trigger", name,
			"network", match.NetworkSlug,
			"transaction", match.Candidate.TransactionHash(),
			"error", err,
		)
	}
}
