package jsonrpc

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gabapcia/chainsentinel/internal/pkg/resilience/retry"
	transporthttp "github.com/gabapcia/chainsentinel/internal/pkg/transport/http"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry() retry.Retry {
	return retry.New(
		retry.WithAttempts(4),
		retry.WithDelay(time.Millisecond),
		retry.WithMaxDelay(5*time.Millisecond),
	)
}

func newTestClient(t *testing.T, endpoints []Endpoint) Client {
	t.Helper()

	client, err := NewClient(transporthttp.NewClient(), endpoints, WithRetry(fastRetry()))
	require.NoError(t, err)
	return client
}

func rpcHandler(t *testing.T, result string) http.HandlerFunc {
	t.Helper()

	return func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "2.0", req["jsonrpc"])
		assert.NotEmpty(t, req["id"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","result":` + result + `}`))
	}
}

func TestNewClient(t *testing.T) {
	t.Run("rejects an empty endpoint list", func(t *testing.T) {
		_, err := NewClient(transporthttp.NewClient(), nil)

		assert.ErrorIs(t, err, ErrNoEndpoints)
	})
}

func TestClient_Fetch(t *testing.T) {
	t.Run("returns the raw result on success", func(t *testing.T) {
		server := httptest.NewServer(rpcHandler(t, `"0x112a880"`))
		defer server.Close()

		client := newTestClient(t, []Endpoint{{URL: server.URL, Weight: 1}})

		result, err := client.Fetch(t.Context(), "eth_blockNumber")

		require.NoError(t, err)
		assert.JSONEq(t, `"0x112a880"`, string(result))
	})

	t.Run("rotates to the next endpoint on server errors", func(t *testing.T) {
		var failing atomic.Int32
		broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			failing.Add(1)
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer broken.Close()

		healthy := httptest.NewServer(rpcHandler(t, `"0x1"`))
		defer healthy.Close()

		client := newTestClient(t, []Endpoint{
			{URL: broken.URL, Weight: 1},
			{URL: healthy.URL, Weight: 1},
		})

		result, err := client.Fetch(t.Context(), "eth_blockNumber")

		require.NoError(t, err)
		assert.JSONEq(t, `"0x1"`, string(result))
		assert.LessOrEqual(t, failing.Load(), int32(1))
	})

	t.Run("rotates on rate limiting", func(t *testing.T) {
		limited := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer limited.Close()

		healthy := httptest.NewServer(rpcHandler(t, `"0x2"`))
		defer healthy.Close()

		client := newTestClient(t, []Endpoint{
			{URL: limited.URL, Weight: 1},
			{URL: healthy.URL, Weight: 1},
		})

		result, err := client.Fetch(t.Context(), "eth_blockNumber")

		require.NoError(t, err)
		assert.JSONEq(t, `"0x2"`, string(result))
	})

	t.Run("exhausting every endpoint surfaces ErrProviderUnavailable", func(t *testing.T) {
		var hits atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		client := newTestClient(t, []Endpoint{{URL: server.URL, Weight: 1}})

		_, err := client.Fetch(t.Context(), "eth_blockNumber")

		assert.ErrorIs(t, err, ErrProviderUnavailable)
		assert.Equal(t, int32(4), hits.Load())
	})

	t.Run("a JSON-RPC error response is terminal", func(t *testing.T) {
		var hits atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"jsonrpc":"2.0","error":{"code":-32601,"message":"method not found"}}`))
		}))
		defer server.Close()

		client := newTestClient(t, []Endpoint{{URL: server.URL, Weight: 1}})

		_, err := client.Fetch(t.Context(), "no_such_method")

		assert.ErrorIs(t, err, ErrProviderReturnedError)
		assert.Equal(t, int32(1), hits.Load())
	})

	t.Run("a non-retryable HTTP status stops immediately", func(t *testing.T) {
		var hits atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer server.Close()

		client := newTestClient(t, []Endpoint{{URL: server.URL, Weight: 1}})

		_, err := client.Fetch(t.Context(), "eth_blockNumber")

		assert.Error(t, err)
		assert.Equal(t, int32(1), hits.Load())
	})
}
