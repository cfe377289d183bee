package model

import (
	"encoding/json"
	"fmt"

	"github.com/gabapcia/chainsentinel/internal/pkg/validator"
)

// TriggerType enumerates the supported notification sinks.
type TriggerType string

const (
	TriggerTypeSlack    TriggerType = "slack"
	TriggerTypeEmail    TriggerType = "email"
	TriggerTypeWebhook  TriggerType = "webhook"
	TriggerTypeTelegram TriggerType = "telegram"
	TriggerTypeDiscord  TriggerType = "discord"
	TriggerTypeScript   TriggerType = "script"
)

// NotificationMessage carries the renderable parts of a notification:
// a title (or subject) template and a body template. Both use
// ${identifier} substitution.
type NotificationMessage struct {
	Title string `json:"title"`
	Body  string `json:"body" validate:"required"`
}

type (
	// SlackTriggerConfig posts the rendered message to a Slack incoming
	// webhook.
	SlackTriggerConfig struct {
		SlackURL string              `json:"slack_url" validate:"required,url"`
		Message  NotificationMessage `json:"message" validate:"required"`
	}

	// EmailTriggerConfig delivers the rendered message over SMTP. Port 465
	// uses implicit TLS; any other port negotiates STARTTLS.
	EmailTriggerConfig struct {
		Host       string              `json:"host" validate:"required"`
		Port       uint16              `json:"port,omitempty"`
		Username   string              `json:"username" validate:"required"`
		Password   string              `json:"password" validate:"required"`
		Sender     string              `json:"sender" validate:"required,email"`
		Recipients []string            `json:"recipients" validate:"required,min=1,dive,email"`
		Message    NotificationMessage `json:"message" validate:"required"`
	}

	// WebhookTriggerConfig sends the rendered body to an arbitrary HTTP
	// endpoint. When a secret is set, the request carries an HMAC-SHA256
	// signature header over the body.
	WebhookTriggerConfig struct {
		URL     string              `json:"url" validate:"required,url"`
		Method  string              `json:"method,omitempty"`
		Secret  string              `json:"secret,omitempty"`
		Headers map[string]string   `json:"headers,omitempty"`
		Message NotificationMessage `json:"message" validate:"required"`
	}

	// TelegramTriggerConfig sends the rendered message through the Telegram
	// bot API.
	TelegramTriggerConfig struct {
		Token             string              `json:"token" validate:"required"`
		ChatID            string              `json:"chat_id" validate:"required"`
		DisableWebPreview bool                `json:"disable_web_preview,omitempty"`
		Message           NotificationMessage `json:"message" validate:"required"`
	}

	// DiscordTriggerConfig posts the rendered message to a Discord webhook.
	DiscordTriggerConfig struct {
		DiscordURL string              `json:"discord_url" validate:"required,url"`
		Message    NotificationMessage `json:"message" validate:"required"`
	}

	// ScriptTriggerConfig runs a local executable with the match on stdin.
	ScriptTriggerConfig struct {
		ScriptPath string   `json:"script_path" validate:"required"`
		Arguments  []string `json:"arguments,omitempty"`
		TimeoutMS  uint32   `json:"timeout_ms" validate:"required,gt=0"`
	}
)

// Trigger is a named notification destination. Exactly one of the typed
// config fields is populated, matching Type.
type Trigger struct {
	Name string      `json:"name"`
	Type TriggerType `json:"trigger_type"`

	Slack    *SlackTriggerConfig    `json:"-"`
	Email    *EmailTriggerConfig    `json:"-"`
	Webhook  *WebhookTriggerConfig  `json:"-"`
	Telegram *TelegramTriggerConfig `json:"-"`
	Discord  *DiscordTriggerConfig  `json:"-"`
	Script   *ScriptTriggerConfig   `json:"-"`
}

// Message returns the trigger's renderable message templates, or nil for
// sinks that do not render (script triggers receive the raw match).
func (t Trigger) Message() *NotificationMessage {
	switch t.Type {
	case TriggerTypeSlack:
		return &t.Slack.Message
	case TriggerTypeEmail:
		return &t.Email.Message
	case TriggerTypeWebhook:
		return &t.Webhook.Message
	case TriggerTypeTelegram:
		return &t.Telegram.Message
	case TriggerTypeDiscord:
		return &t.Discord.Message
	}
	return nil
}

// triggerEnvelope mirrors the on-disk trigger JSON: a discriminator plus a
// type-specific config object.
type triggerEnvelope struct {
	Name        string          `json:"name"`
	TriggerType TriggerType     `json:"trigger_type"`
	Config      json.RawMessage `json:"config"`
}

// UnmarshalJSON decodes the {name, trigger_type, config} envelope and
// populates the config field that matches the declared type.
func (t *Trigger) UnmarshalJSON(data []byte) error {
	var envelope triggerEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return err
	}

	t.Name = envelope.Name
	t.Type = envelope.TriggerType

	var target any
	switch envelope.TriggerType {
	case TriggerTypeSlack:
		t.Slack = new(SlackTriggerConfig)
		target = t.Slack
	case TriggerTypeEmail:
		t.Email = new(EmailTriggerConfig)
		target = t.Email
	case TriggerTypeWebhook:
		t.Webhook = new(WebhookTriggerConfig)
		target = t.Webhook
	case TriggerTypeTelegram:
		t.Telegram = new(TelegramTriggerConfig)
		target = t.Telegram
	case TriggerTypeDiscord:
		t.Discord = new(DiscordTriggerConfig)
		target = t.Discord
	case TriggerTypeScript:
		t.Script = new(ScriptTriggerConfig)
		target = t.Script
	default:
		return fmt.Errorf("unknown trigger type: %q", envelope.TriggerType)
	}

	if len(envelope.Config) == 0 {
		return fmt.Errorf("trigger %q is missing its config object", envelope.Name)
	}
	return json.Unmarshal(envelope.Config, target)
}

// MarshalJSON re-encodes the trigger into its envelope form.
func (t Trigger) MarshalJSON() ([]byte, error) {
	var cfg any
	switch t.Type {
	case TriggerTypeSlack:
		cfg = t.Slack
	case TriggerTypeEmail:
		cfg = t.Email
	case TriggerTypeWebhook:
		cfg = t.Webhook
	case TriggerTypeTelegram:
		cfg = t.Telegram
	case TriggerTypeDiscord:
		cfg = t.Discord
	case TriggerTypeScript:
		cfg = t.Script
	}

	raw, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}

	return json.Marshal(triggerEnvelope{
		Name:        t.Name,
		TriggerType: t.Type,
		Config:      raw,
	})
}

// Validate checks that the trigger carries a config matching its type and
// that the config satisfies its declared constraints.
func (t Trigger) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("trigger name is required")
	}

	var cfg any
	switch t.Type {
	case TriggerTypeSlack:
		cfg = t.Slack
	case TriggerTypeEmail:
		cfg = t.Email
	case TriggerTypeWebhook:
		cfg = t.Webhook
	case TriggerTypeTelegram:
		cfg = t.Telegram
	case TriggerTypeDiscord:
		cfg = t.Discord
	case TriggerTypeScript:
		cfg = t.Script
	default:
		return fmt.Errorf("trigger %q has unknown type %q", t.Name, t.Type)
	}

	if cfg == nil {
		return fmt.Errorf("trigger %q is missing its %s config", t.Name, t.Type)
	}
	return validator.Validate(cfg)
}
