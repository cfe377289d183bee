// Package notifier delivers rendered notifications to their configured
// sinks. Every sink implements the same contract: Send either succeeds,
// fails with ErrRetryable (worth another attempt), or fails with
// ErrTerminal (retrying cannot help). Classification is the notifier's job;
// the dispatcher owns the retry loop.
package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gabapcia/chainsentinel/internal/model"

	"github.com/hashicorp/go-retryablehttp"
)

var (
	// ErrRetryable marks a delivery failure that a later attempt may fix:
	// transport errors, timeouts, rate limiting, server-side errors.
	ErrRetryable = errors.New("retryable notification failure")

	// ErrTerminal marks a delivery failure that retrying cannot fix, such
	// as a rejected recipient or a client-side HTTP error.
	ErrTerminal = errors.New("terminal notification failure")

	// ErrUnsupportedTrigger is returned by the factory for a trigger whose
	// type has no notifier implementation.
	ErrUnsupportedTrigger = errors.New("unsupported trigger type")
)

// Payload is one rendered notification: the templated title and body plus
// the match that produced it (script sinks receive the match itself).
type Payload struct {
	Title string
	Body  string
	Match model.MonitorMatch
}

// Notifier sends one rendered payload to a single sink.
type Notifier interface {
	Send(ctx context.Context, payload Payload) error
}

// classifyStatus maps an HTTP response status onto the failure taxonomy:
// 2xx succeeds, 408/429/5xx are retryable, any other status is terminal.
func classifyStatus(status int) error {
	switch {
	case status >= http.StatusOK && status < http.StatusMultipleChoices:
		return nil
	case status == http.StatusRequestTimeout,
		status == http.StatusTooManyRequests,
		status >= http.StatusInternalServerError:
		return fmt.Errorf("%w: status %d", ErrRetryable, status)
	default:
		return fmt.Errorf("%w: status %d", ErrTerminal, status)
	}
}

// Factory builds notifiers for triggers, sharing one HTTP client pool across
// all webhook-family sinks.
type Factory struct {
	httpClient   *retryablehttp.Client
	emailTimeout time.Duration
}

// NewFactory creates a Factory. httpClient is shared by the Slack, Discord,
// Telegram, and Webhook sinks; emailTimeout bounds one SMTP session.
func NewFactory(httpClient *retryablehttp.Client, emailTimeout time.Duration) *Factory {
	return &Factory{
		httpClient:   httpClient,
		emailTimeout: emailTimeout,
	}
}

// For returns the notifier implementing the trigger's sink.
func (f *Factory) For(trigger model.Trigger) (Notifier, error) {
	switch trigger.Type {
	case model.TriggerTypeSlack:
		return newSlackNotifier(f.httpClient, *trigger.Slack), nil
	case model.TriggerTypeDiscord:
		return newDiscordNotifier(f.httpClient, *trigger.Discord), nil
	case model.TriggerTypeTelegram:
		return newTelegramNotifier(f.httpClient, *trigger.Telegram), nil
	case model.TriggerTypeWebhook:
		return newWebhookNotifier(f.httpClient, *trigger.Webhook), nil
	case model.TriggerTypeEmail:
		return newEmailNotifier(*trigger.Email, f.emailTimeout), nil
	case model.TriggerTypeScript:
		return newScriptNotifier(*trigger.Script), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedTrigger, trigger.Type)
	}
}

// postJSON is the shared delivery path for JSON webhook sinks: POST the
// document, classify the status, close the body.
func postJSON(ctx context.Context, client *retryablehttp.Client, url string, document any) error {
	body, err := json.Marshal(document)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTerminal, err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTerminal, err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRetryable, err)
	}
	defer res.Body.Close()

	return classifyStatus(res.StatusCode)
}
