// Package notify sends run summaries and failure alerts to a Slack
// incoming webhook.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/zongseung/energyrag/config"
	"github.com/zongseung/energyrag/log"
)

// Notifier delivers short text notifications. Implementations must be
// safe to call with a failed run's summary; delivery failure is the
// caller's to log, not to escalate.
type Notifier interface {
	Send(ctx context.Context, text string) error
}

type message struct {
	Text      string `json:"text"`
	Username  string `json:"username"`
	IconEmoji string `json:"icon_emoji"`
}

// Slack posts to an incoming-webhook URL.
type Slack struct {
	client     *resty.Client
	webhookURL string
	username   string
}

var _ Notifier = (*Slack)(nil)

// NewSlack creates a webhook notifier.
func NewSlack(cfg config.SlackConfig) *Slack {
	return &Slack{
		client:     resty.New().SetTimeout(10 * time.Second),
		webhookURL: cfg.WebhookURL,
		username:   cfg.Username,
	}
}

// Send posts the text. On a non-200 response it posts one fixed
// fallback alert and then reports the original failure to the caller.
func (s *Slack) Send(ctx context.Context, text string) error {
	resp, err := s.post(ctx, text)
	if err != nil {
		return err
	}
	if resp.StatusCode() != 200 {
		// Best effort: let the channel know delivery is broken.
		s.post(ctx, "slack notification delivery failed")
		return fmt.Errorf("slack webhook returned %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}

func (s *Slack) post(ctx context.Context, text string) (*resty.Response, error) {
	return s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(message{Text: text, Username: s.username, IconEmoji: ":robot_face:"}).
		Post(s.webhookURL)
}

// Nop discards notifications; used when no webhook is configured.
type Nop struct{}

var _ Notifier = (*Nop)(nil)

// Send does nothing.
func (Nop) Send(ctx context.Context, text string) error { return nil }

// LogOnly writes notifications to the logger; useful for dry runs.
type LogOnly struct {
	Logger log.Logger
}

var _ Notifier = (*LogOnly)(nil)

// Send logs the text at info level.
func (l LogOnly) Send(ctx context.Context, text string) error {
	l.Logger.Info("[NOTIFY] %s", text)
	return nil
}
