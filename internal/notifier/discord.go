package notifier

import (
	"context"
	"fmt"

	"github.com/gabapcia/chainsentinel/internal/model"

	"github.com/hashicorp/go-retryablehttp"
)

// discordNotifier posts rendered messages to a Discord webhook.
type discordNotifier struct {
	httpClient *retryablehttp.Client
	cfg        model.DiscordTriggerConfig
}

var _ Notifier = (*discordNotifier)(nil)

func newDiscordNotifier(httpClient *retryablehttp.Client, cfg model.DiscordTriggerConfig) *discordNotifier {
	return &discordNotifier{
		httpClient: httpClient,
		cfg:        cfg,
	}
}

// discordMessage is the webhook ingestion format.
type discordMessage struct {
	Content string `json:"content"`
}

func (n *discordNotifier) Send(ctx context.Context, payload Payload) error {
	content := payload.Body
	if payload.Title != "" {
		content = fmt.Sprintf("**%s**\n\n%s", payload.Title, payload.Body)
	}

	return postJSON(ctx, n.httpClient, n.cfg.DiscordURL, discordMessage{Content: content})
}
