package notifier

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"

	"github.com/gabapcia/chainsentinel/internal/model"

	"github.com/hashicorp/go-retryablehttp"
)

// signatureHeader carries the HMAC-SHA256 signature of the request body when
// the trigger configures a secret.
const signatureHeader = "X-Signature"

// webhookNotifier delivers the rendered body to an arbitrary HTTP endpoint.
// Unlike the vendor sinks the payload is sent as-is, text/plain by default;
// configured headers may override the content type.
type webhookNotifier struct {
	httpClient *retryablehttp.Client
	cfg        model.WebhookTriggerConfig
}

var _ Notifier = (*webhookNotifier)(nil)

func newWebhookNotifier(httpClient *retryablehttp.Client, cfg model.WebhookTriggerConfig) *webhookNotifier {
	return &webhookNotifier{
		httpClient: httpClient,
		cfg:        cfg,
	}
}

// sign computes the hex HMAC-SHA256 of body under the configured secret.
func (n *webhookNotifier) sign(body []byte) string {
	mac := hmac.New(sha256.New, []byte(n.cfg.Secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func (n *webhookNotifier) Send(ctx context.Context, payload Payload) error {
	method := n.cfg.Method
	if method == "" {
		method = http.MethodPost
	}

	body := []byte(payload.Body)
	req, err := retryablehttp.NewRequestWithContext(ctx, method, n.cfg.URL, body)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTerminal, err)
	}

	req.Header.Set("Content-Type", "text/plain")
	for key, value := range n.cfg.Headers {
		req.Header.Set(key, value)
	}
	if n.cfg.Secret != "" {
		req.Header.Set(signatureHeader, "sha256="+n.sign(body))
	}

	res, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRetryable, err)
	}
	defer res.Body.Close()

	return classifyStatus(res.StatusCode)
}
