package notifier

import (
	"context"
	"fmt"

	"github.com/gabapcia/chainsentinel/internal/model"

	"github.com/hashicorp/go-retryablehttp"
)

// slackNotifier posts rendered messages to a Slack incoming webhook.
type slackNotifier struct {
	httpClient *retryablehttp.Client
	cfg        model.SlackTriggerConfig
}

var _ Notifier = (*slackNotifier)(nil)

func newSlackNotifier(httpClient *retryablehttp.Client, cfg model.SlackTriggerConfig) *slackNotifier {
	return &slackNotifier{
		httpClient: httpClient,
		cfg:        cfg,
	}
}

// slackMessage is the incoming-webhook ingestion format.
type slackMessage struct {
	Text string `json:"text"`
}

func (n *slackNotifier) Send(ctx context.Context, payload Payload) error {
	text := payload.Body
	if payload.Title != "" {
		text = fmt.Sprintf("*%s*\n\n%s", payload.Title, payload.Body)
	}

	return postJSON(ctx, n.httpClient, n.cfg.SlackURL, slackMessage{Text: text})
}
