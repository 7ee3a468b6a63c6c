// Package notification describes what the core asks client apps to show.
//
// A Notification carries a title, a body and an Intent. Intents form a closed
// set of navigation targets; every consumer switches over them exhaustively.
package notification

import (
	"time"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
)

type Kind string

const (
	KindOrderDetails   Kind = "order_details"
	KindDeliveryOffer  Kind = "delivery_offer"
	KindOfferWithdrawn Kind = "offer_withdrawn"
	KindOrderTracking  Kind = "order_tracking"
	KindRefundReview   Kind = "refund_review"
	KindDispatchQueue  Kind = "dispatch_queue"
)

// Intent is where the app navigates when the notification is opened. Only
// the types in this package implement it.
type Intent interface {
	Kind() Kind
	TargetOrder() kernel.UUID
	sealed()
}

// OrderDetails opens the order screen.
type OrderDetails struct {
	OrderID kernel.UUID
	Status  order.Status
}

// DeliveryOffer opens the accept/reject screen of a delivery request.
type DeliveryOffer struct {
	OrderID   kernel.UUID
	Round     int
	ExpiresAt time.Time
}

// OfferWithdrawn tells a courier that its request is gone.
type OfferWithdrawn struct {
	OrderID kernel.UUID
	Reason  order.ClosedReason
}

// OrderTracking opens the live map of an assigned order.
type OrderTracking struct {
	OrderID   kernel.UUID
	CourierID kernel.UUID
}

// RefundReview opens the approval screen for one party.
type RefundReview struct {
	OrderID kernel.UUID
	Party   order.ApprovalParty
	Amount  kernel.Money
}

// DispatchQueue opens the admin queue of orders nobody accepted.
type DispatchQueue struct {
	OrderID kernel.UUID
	Rounds  int
}

func (OrderDetails) Kind() Kind   { return KindOrderDetails }
func (DeliveryOffer) Kind() Kind  { return KindDeliveryOffer }
func (OfferWithdrawn) Kind() Kind { return KindOfferWithdrawn }
func (OrderTracking) Kind() Kind  { return KindOrderTracking }
func (RefundReview) Kind() Kind   { return KindRefundReview }
func (DispatchQueue) Kind() Kind  { return KindDispatchQueue }

func (i OrderDetails) TargetOrder() kernel.UUID   { return i.OrderID }
func (i DeliveryOffer) TargetOrder() kernel.UUID  { return i.OrderID }
func (i OfferWithdrawn) TargetOrder() kernel.UUID { return i.OrderID }
func (i OrderTracking) TargetOrder() kernel.UUID  { return i.OrderID }
func (i RefundReview) TargetOrder() kernel.UUID   { return i.OrderID }
func (i DispatchQueue) TargetOrder() kernel.UUID  { return i.OrderID }

func (OrderDetails) sealed()   {}
func (DeliveryOffer) sealed()  {}
func (OfferWithdrawn) sealed() {}
func (OrderTracking) sealed()  {}
func (RefundReview) sealed()   {}
func (DispatchQueue) sealed()  {}

// Recipient addresses a single user or the admin group.
type Recipient string

// Admins is every platform admin.
const Admins Recipient = "admins"

func User(id kernel.UUID) Recipient {
	return Recipient("user:" + id.String())
}

// Notification is one message for one recipient.
type Notification struct {
	Title     string
	Body      string
	Intent    Intent
	CreatedAt time.Time
}
