// Package slack posts log-channel notifications through the Slack Web API.
package slack

import (
	"context"
	"errors"
	"fmt"

	"github.com/slack-go/slack"

	"github.com/eastbay-carpool/tokenbot/internal/ports/out/notifier"
)

// Notifier is a Slack chat.postMessage implementation of notifier.Notifier.
type Notifier struct {
	defaultToken string
}

// NewNotifier constructs a notifier with the process-wide bot token.
// A per-organization token in the Target overrides it.
func NewNotifier(defaultToken string) *Notifier {
	return &Notifier{defaultToken: defaultToken}
}

func (n *Notifier) Send(ctx context.Context, t notifier.Target, msg notifier.Message) error {
	token := t.Token
	if token == "" {
		token = n.defaultToken
	}
	if token == "" {
		return errors.New("no bot token configured")
	}
	if t.Channel == "" {
		return errors.New("no log channel configured")
	}

	opts := []slack.MsgOption{
		slack.MsgOptionText(msg.Text, false),
		slack.MsgOptionAsUser(true),
	}
	if len(msg.Attachments) > 0 {
		opts = append(opts, slack.MsgOptionAttachments(toSlackAttachments(msg.Attachments)...))
	}

	api := slack.New(token)
	if _, _, err := api.PostMessageContext(ctx, "#"+t.Channel, opts...); err != nil {
		return fmt.Errorf("post to #%s: %w", t.Channel, err)
	}
	return nil
}

func toSlackAttachments(in []notifier.Attachment) []slack.Attachment {
	out := make([]slack.Attachment, 0, len(in))
	for _, a := range in {
		fields := make([]slack.AttachmentField, 0, len(a.Fields))
		for _, f := range a.Fields {
			fields = append(fields, slack.AttachmentField{
				Title: f.Title,
				Value: f.Value,
				Short: f.Short,
			})
		}
		out = append(out, slack.Attachment{
			Title:  a.Title,
			Text:   a.Text,
			Fields: fields,
		})
	}
	return out
}
