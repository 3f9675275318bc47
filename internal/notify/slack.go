package notify

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"
)

// Slack posts the report to a channel with a bot token.
type Slack struct {
	client  *slack.Client
	channel string
}

var _ Notifier = (*Slack)(nil)

// NewSlack creates a Slack notifier. Extra options are passed to the client.
func NewSlack(token, channel string, opts ...slack.Option) *Slack {
	return &Slack{
		client:  slack.New(token, opts...),
		channel: channel,
	}
}

// Name implements Notifier.
func (s *Slack) Name() string { return "slack" }

// Notify posts report as a plain text message.
func (s *Slack) Notify(ctx context.Context, report string) error {
	if _, _, err := s.client.PostMessageContext(ctx, s.channel, slack.MsgOptionText(report, false)); err != nil {
		return fmt.Errorf("posting to %s: %w", s.channel, err)
	}

	return nil
}
