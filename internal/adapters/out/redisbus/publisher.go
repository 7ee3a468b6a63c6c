package redisbus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/core/ports"

	"github.com/google/uuid"
	"go.uber.org/multierr"
)

var _ ports.EventPublisher = (*EventPublisher)(nil)

// EventsChannel carries every committed domain event.
var EventsChannel = key("events")

// Envelope wraps an event for consumers outside the process.
type Envelope struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	OrderID    string          `json:"orderId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Payload    json.RawMessage `json:"payload"`
}

type EventPublisher struct {
	client publisher
}

func NewEventPublisher(client publisher) *EventPublisher {
	return &EventPublisher{client: client}
}

// Publish sends events in order. A failing event does not stop the rest.
func (p *EventPublisher) Publish(ctx context.Context, events ...order.Event) error {
	var result error
	for _, e := range events {
		data, err := encodeEvent(e)
		if err != nil {
			result = multierr.Append(result, err)
			continue
		}
		if err := p.client.Publish(ctx, EventsChannel, data).Err(); err != nil {
			result = multierr.Append(result, fmt.Errorf("publish %s: %w", e.EventName(), err))
		}
	}
	return result
}

func encodeEvent(e order.Event) ([]byte, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", e.EventName(), err)
	}
	return json.Marshal(Envelope{
		ID:         uuid.NewString(),
		Name:       e.EventName(),
		OrderID:    e.AggregateID().String(),
		OccurredAt: e.OccurredAt(),
		Payload:    payload,
	})
}
