package redisbus

import (
	"context"
	"fmt"

	"orderflow/internal/core/application/notification"
	"orderflow/internal/core/ports"
)

var _ ports.NotificationPort = (*Notifier)(nil)

// Notifier publishes each notification on the recipient's channel, e.g.
// orderflow:notify:user:<id> or orderflow:notify:admins. Push gateways and
// websocket fan-out subscribe to those channels.
type Notifier struct {
	client publisher
}

func NewNotifier(client publisher) *Notifier {
	return &Notifier{client: client}
}

func NotificationChannel(to notification.Recipient) string {
	return key("notify", string(to))
}

func (n *Notifier) Notify(ctx context.Context, to notification.Recipient, msg notification.Notification) error {
	payload, err := notification.Encode(msg)
	if err != nil {
		return err
	}
	if err := n.client.Publish(ctx, NotificationChannel(to), payload).Err(); err != nil {
		return fmt.Errorf("publish notification to %s: %w", to, err)
	}
	return nil
}
