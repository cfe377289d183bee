// Package jsonrpc provides a generic JSON-RPC 2.0 client implementation over HTTP.
// It multiplexes requests over a weighted set of provider endpoints, rotating to
// the next endpoint with exponential backoff when a provider misbehaves. It is
// suitable for interacting with any JSON-RPC-compatible service, such as
// blockchain nodes.
package jsonrpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/gabapcia/chainsentinel/internal/pkg/resilience/retry"

	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
)

var (
	// ErrProviderReturnedError indicates that the remote JSON-RPC server returned an error response.
	ErrProviderReturnedError = errors.New("provider error")

	// ErrProviderUnavailable indicates that every configured endpoint failed
	// to serve the request within the retry budget.
	ErrProviderUnavailable = errors.New("all provider endpoints unavailable")

	// ErrNoEndpoints is returned by NewClient when the endpoint list is empty.
	ErrNoEndpoints = errors.New("at least one provider endpoint is required")
)

// Endpoint is a single JSON-RPC provider URL with a selection weight.
// Higher weights make the endpoint proportionally more likely to be picked
// as the first candidate for a request.
type Endpoint struct {
	URL    string
	Weight uint64
}

// response represents a standard JSON-RPC 2.0 response.
type response struct {
	JsonRPC string `json:"jsonrpc"` // JSON-RPC protocol version (usually "2.0")
	Error   *struct {
		Code    int    `json:"code"`    // Error code defined by the JSON-RPC spec or custom server logic
		Message string `json:"message"` // Human-readable error message
	} `json:"error"`
	Result json.RawMessage `json:"result"` // Raw result payload returned by the server
}

// Err returns an error if the response includes a JSON-RPC error object.
// It wraps ErrProviderReturnedError with the provided error code and message.
func (r response) Err() error {
	if r.Error == nil {
		return nil
	}

	return fmt.Errorf("%w: [%d] - %s", ErrProviderReturnedError, r.Error.Code, r.Error.Message)
}

// Client defines the interface for a generic JSON-RPC client.
// It can be used to abstract the underlying implementation and facilitate mocking or testing.
type Client interface {
	// Fetch sends a JSON-RPC request with the given method name and parameters.
	// It returns the raw JSON result or an error if the request or response fails.
	Fetch(ctx context.Context, method string, params ...any) (json.RawMessage, error)
}

// client is the default implementation of the Client interface. Each request
// starts on a weighted-random endpoint; transport errors, HTTP 5xx, and
// rate-limit responses rotate the request to the next endpoint and back off
// exponentially before the next attempt.
type client struct {
	endpoints   []Endpoint
	totalWeight uint64

	httpClient *retryablehttp.Client
	retry      retry.Retry

	mu  sync.Mutex
	rnd *rand.Rand
}

// Compile-time assertion that client implements the Client interface.
var _ Client = (*client)(nil)

// weightedIndex picks the starting endpoint for a request, proportionally to
// the configured weights.
func (c *client) weightedIndex() int {
	c.mu.Lock()
	n := c.rnd.Uint64() % c.totalWeight
	c.mu.Unlock()

	for i, endpoint := range c.endpoints {
		if n < endpoint.Weight {
			return i
		}
		n -= endpoint.Weight
	}
	return 0
}

// isRetryableStatus reports whether an HTTP status code should rotate the
// request to another endpoint: request timeout, rate limiting, and any
// server-side failure.
func isRetryableStatus(code int) bool {
	return code == http.StatusRequestTimeout ||
		code == http.StatusTooManyRequests ||
		code >= http.StatusInternalServerError
}

// fetchFromEndpoint performs a single JSON-RPC exchange against one endpoint.
// Errors that further attempts cannot fix are wrapped with retry.Unrecoverable.
func (c *client) fetchFromEndpoint(ctx context.Context, endpoint Endpoint, body []byte) (json.RawMessage, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, endpoint.URL, body)
	if err != nil {
		return nil, retry.Unrecoverable(err)
	}

	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		err := fmt.Errorf("provider %s returned status %d", endpoint.URL, res.StatusCode)
		if !isRetryableStatus(res.StatusCode) {
			err = retry.Unrecoverable(err)
		}
		return nil, err
	}

	var data response
	if err := json.NewDecoder(res.Body).Decode(&data); err != nil {
		return nil, err
	}

	if err := data.Err(); err != nil {
		return nil, retry.Unrecoverable(err)
	}

	return data.Result, nil
}

// Fetch sends a JSON-RPC request to the provider pool with the given method
// and parameters. It returns the raw result as a json.RawMessage, or an error
// wrapping ErrProviderUnavailable once every attempt is exhausted. The `id`
// field in the request is generated as a UUID string.
func (c *client) Fetch(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	body, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      uuid.NewString(),
		"method":  method,
		"params":  params,
	})
	if err != nil {
		return nil, err
	}

	var (
		result  json.RawMessage
		start   = c.weightedIndex()
		attempt = 0
	)

	err = c.retry.Execute(ctx, func() error {
		endpoint := c.endpoints[(start+attempt)%len(c.endpoints)]
		attempt++

		data, err := c.fetchFromEndpoint(ctx, endpoint, body)
		if err != nil {
			return err
		}

		result = data
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrProviderReturnedError) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
	}

	return result, nil
}

// config holds construction settings for the client.
type config struct {
	retry retry.Retry
}

// Option customizes the client returned by NewClient.
type Option func(*config)

// WithRetry overrides the retry policy used to rotate across endpoints.
// The default is 4 attempts with exponential backoff from 100ms capped at 10s.
func WithRetry(r retry.Retry) Option {
	return func(c *config) {
		c.retry = r
	}
}

// NewClient constructs a Client that spreads JSON-RPC requests over the given
// endpoints using the provided HTTP client. Endpoints with a zero weight are
// given weight one so they are never starved.
func NewClient(httpClient *retryablehttp.Client, endpoints []Endpoint, opts ...Option) (*client, error) {
	if len(endpoints) == 0 {
		return nil, ErrNoEndpoints
	}

	cfg := config{
		retry: retry.New(
			retry.WithAttempts(4),
			retry.WithDelay(100*time.Millisecond),
			retry.WithMaxDelay(10*time.Second),
		),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	var totalWeight uint64
	normalized := make([]Endpoint, len(endpoints))
	for i, endpoint := range endpoints {
		if endpoint.Weight == 0 {
			endpoint.Weight = 1
		}
		normalized[i] = endpoint
		totalWeight += endpoint.Weight
	}

	return &client{
		endpoints:   normalized,
		totalWeight: totalWeight,
		httpClient:  httpClient,
		retry:       cfg.retry,
		rnd:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}
