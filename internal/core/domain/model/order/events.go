package order

import (
	"time"

	"orderflow/internal/core/domain/model/kernel"
)

// Event is a fact recorded by the aggregate during a mutation. Events are
// pulled and published only after the write that produced them commits.
type Event interface {
	EventName() string
	AggregateID() kernel.UUID
	OccurredAt() time.Time
}

type eventMeta struct {
	OrderID kernel.UUID `json:"orderId"`
	At      time.Time   `json:"at"`
}

func (m eventMeta) AggregateID() kernel.UUID { return m.OrderID }
func (m eventMeta) OccurredAt() time.Time    { return m.At }

type OrderPlaced struct {
	eventMeta
	CustomerID kernel.UUID  `json:"customerId"`
	VendorID   kernel.UUID  `json:"vendorId"`
	Category   Category     `json:"category"`
	Total      kernel.Money `json:"total"`
}

func (OrderPlaced) EventName() string { return "order.placed" }

type StatusChanged struct {
	eventMeta
	From      Status       `json:"from"`
	To        Status       `json:"to"`
	ActorRole Role         `json:"actorRole"`
	ActorID   *kernel.UUID `json:"actorId,omitempty"`
	Reason    string       `json:"reason,omitempty"`
}

func (StatusChanged) EventName() string { return "order.status_changed" }

type DeliveryRequested struct {
	eventMeta
	CourierID kernel.UUID `json:"courierId"`
	Round     int         `json:"round"`
	ExpiresAt time.Time   `json:"expiresAt"`
}

func (DeliveryRequested) EventName() string { return "dispatch.request_sent" }

type DeliveryRequestClosed struct {
	eventMeta
	CourierID kernel.UUID   `json:"courierId"`
	Status    RequestStatus `json:"status"`
	Reason    ClosedReason  `json:"reason,omitempty"`
}

func (DeliveryRequestClosed) EventName() string { return "dispatch.request_closed" }

type CourierAssigned struct {
	eventMeta
	CourierID kernel.UUID `json:"courierId"`
	Manual    bool        `json:"manual"`
}

func (CourierAssigned) EventName() string { return "dispatch.courier_assigned" }

type CourierReleased struct {
	eventMeta
	CourierID kernel.UUID `json:"courierId"`
	Reason    string      `json:"reason"`
}

func (CourierReleased) EventName() string { return "dispatch.courier_released" }

type DispatchExhausted struct {
	eventMeta
	Rounds int `json:"rounds"`
}

func (DispatchExhausted) EventName() string { return "dispatch.exhausted" }

type HandoverConfirmed struct {
	eventMeta
	Phase     HandoverPhase `json:"phase"`
	CourierID kernel.UUID   `json:"courierId"`
}

func (HandoverConfirmed) EventName() string { return "handover.confirmed" }

type RefundRequestedEvent struct {
	eventMeta
	Amount kernel.Money `json:"amount"`
	Reason string       `json:"reason"`
}

func (RefundRequestedEvent) EventName() string { return "refund.requested" }

type RefundApprovalRecorded struct {
	eventMeta
	Party    ApprovalParty `json:"party"`
	Decision Approval      `json:"decision"`
}

func (RefundApprovalRecorded) EventName() string { return "refund.approval_recorded" }

type RefundDecided struct {
	eventMeta
	Status RefundStatus `json:"status"`
}

func (RefundDecided) EventName() string { return "refund.decided" }

type RefundSettled struct {
	eventMeta
	Amount kernel.Money `json:"amount"`
}

func (RefundSettled) EventName() string { return "refund.settled" }

type RefundSettlementFailed struct {
	eventMeta
	Attempt int    `json:"attempt"`
	Reason  string `json:"reason"`
}

func (RefundSettlementFailed) EventName() string { return "refund.settlement_failed" }

// RuleTriggered is recorded when an advisory workflow rule comes due.
type RuleTriggered struct {
	eventMeta
	Rule   string `json:"rule"`
	Status Status `json:"status"`
}

func (RuleTriggered) EventName() string { return "workflow.rule_triggered" }
