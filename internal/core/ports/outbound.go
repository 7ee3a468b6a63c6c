package ports

import (
	"context"
	"errors"
	"time"

	"orderflow/internal/core/application/notification"
	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
)

// NotificationPort delivers push or in-app messages. Callers log failures and
// never fail the write that triggered the message.
type NotificationPort interface {
	Notify(ctx context.Context, to notification.Recipient, n notification.Notification) error
}

// EventPublisher forwards committed domain events to other services.
type EventPublisher interface {
	Publish(ctx context.Context, events ...order.Event) error
}

type SettlementStatus int

const (
	SettlementUnknown SettlementStatus = iota
	SettlementSettled
	SettlementFailed
)

func (s SettlementStatus) String() string {
	switch s {
	case SettlementSettled:
		return "settled"
	case SettlementFailed:
		return "failed"
	case SettlementUnknown:
	}
	return "unknown"
}

// SettlementResult is the payment provider's answer. Reason explains a failure.
type SettlementResult struct {
	Status    SettlementStatus
	Reference string
	Reason    string
}

// ErrSettlementInProgress is returned by a PaymentPort while another caller
// is settling the same order. Nothing was paid by the call that got it.
var ErrSettlementInProgress = errors.New("refund settlement already in progress")

// PaymentPort moves money back to the customer. Refund must be idempotent per
// order: repeating a settled refund returns the same result.
type PaymentPort interface {
	Refund(ctx context.Context, orderID kernel.UUID, amount kernel.Money) (SettlementResult, error)
}

// Clock is the injected time source.
type Clock interface {
	Now() time.Time
}
