package notifier

import (
	"context"
	"fmt"

	"github.com/gabapcia/chainsentinel/internal/model"

	"github.com/hashicorp/go-retryablehttp"
)

// telegramNotifier sends rendered messages through the Telegram bot API.
type telegramNotifier struct {
	httpClient *retryablehttp.Client
	cfg        model.TelegramTriggerConfig
}

var _ Notifier = (*telegramNotifier)(nil)

func newTelegramNotifier(httpClient *retryablehttp.Client, cfg model.TelegramTriggerConfig) *telegramNotifier {
	return &telegramNotifier{
		httpClient: httpClient,
		cfg:        cfg,
	}
}

// telegramMessage is the sendMessage request body.
type telegramMessage struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

func (n *telegramNotifier) Send(ctx context.Context, payload Payload) error {
	text := payload.Body
	if payload.Title != "" {
		text = fmt.Sprintf("<b>%s</b>\n\n%s", payload.Title, payload.Body)
	}

	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", n.cfg.Token)
	return postJSON(ctx, n.httpClient, url, telegramMessage{
		ChatID:                n.cfg.ChatID,
		Text:                  text,
		ParseMode:             "HTML",
		DisableWebPagePreview: n.cfg.DisableWebPreview,
	})
}
