// Package events fans committed domain events out to the event bus and to
// the notification channel.
package events

import (
	"context"

	"orderflow/internal/core/application/notification"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/core/ports"

	"github.com/rs/zerolog"
)

// Dispatcher publishes events and sends the notifications derived from them.
// Failures are logged and swallowed: the write that produced the events has
// already committed.
type Dispatcher struct {
	publisher ports.EventPublisher
	notifier  ports.NotificationPort
	log       zerolog.Logger
}

func NewDispatcher(publisher ports.EventPublisher, notifier ports.NotificationPort, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{publisher: publisher, notifier: notifier, log: log}
}

// Dispatch handles events pulled from o after its write committed.
func (d *Dispatcher) Dispatch(ctx context.Context, o *order.Order, events []order.Event) {
	if len(events) == 0 {
		return
	}

	if d.publisher != nil {
		if err := d.publisher.Publish(ctx, events...); err != nil {
			d.log.Warn().Err(err).
				Str("order_id", o.ID().String()).
				Int("events", len(events)).
				Msg("publish domain events")
		}
	}

	if d.notifier == nil {
		return
	}
	for _, e := range events {
		for _, m := range notification.ForEvent(o, e) {
			if err := d.notifier.Notify(ctx, m.To, m.Notification); err != nil {
				d.log.Warn().Err(err).
					Str("order_id", o.ID().String()).
					Str("recipient", string(m.To)).
					Str("intent", string(m.Notification.Intent.Kind())).
					Msg("send notification")
			}
		}
	}
}
