package notification

import (
	"fmt"

	"orderflow/internal/core/domain/model/order"
)

// Message is a notification together with its recipient.
type Message struct {
	To           Recipient
	Notification Notification
}

// ForEvent derives the messages a committed event should produce. o is the
// order as committed by the write that recorded e.
func ForEvent(o *order.Order, e order.Event) []Message {
	at := e.OccurredAt()
	customer := User(o.CustomerID())
	vendor := User(o.VendorID())
	details := OrderDetails{OrderID: o.ID(), Status: o.Status()}

	msg := func(to Recipient, title, body string, intent Intent) Message {
		return Message{To: to, Notification: Notification{Title: title, Body: body, Intent: intent, CreatedAt: at}}
	}

	switch ev := e.(type) {
	case order.DeliveryRequested:
		return []Message{msg(User(ev.CourierID), "New delivery request",
			fmt.Sprintf("Order %s is waiting for a courier", o.ID()),
			DeliveryOffer{OrderID: o.ID(), Round: ev.Round, ExpiresAt: ev.ExpiresAt})}

	case order.DeliveryRequestClosed:
		switch ev.Reason {
		case order.ClosedSuperseded, order.ClosedCancelled:
			if ev.Status != order.RequestExpired {
				return nil
			}
			return []Message{msg(User(ev.CourierID), "Request withdrawn",
				"This delivery is no longer available",
				OfferWithdrawn{OrderID: o.ID(), Reason: ev.Reason})}
		case order.ClosedNone, order.ClosedTimeout, order.ClosedReleased, order.ClosedManual:
		}
		return nil

	case order.CourierAssigned:
		tracking := OrderTracking{OrderID: o.ID(), CourierID: ev.CourierID}
		out := []Message{
			msg(customer, "Courier on the way", "A courier accepted your order", tracking),
			msg(vendor, "Courier assigned", "A courier is coming to pick up the order", details),
		}
		if ev.Manual {
			out = append(out, msg(User(ev.CourierID), "Order assigned to you", "An admin assigned you an order", tracking))
		}
		return out

	case order.CourierReleased:
		return []Message{msg(vendor, "Courier released", "The order is being offered again", details)}

	case order.DispatchExhausted:
		return []Message{msg(Admins, "Nobody accepted an order",
			fmt.Sprintf("Order %s needs manual assignment after %d rounds", o.ID(), ev.Rounds),
			DispatchQueue{OrderID: o.ID(), Rounds: ev.Rounds})}

	case order.StatusChanged:
		return []Message{msg(customer, "Order update", "Your order is now "+ev.To.String(),
			OrderDetails{OrderID: o.ID(), Status: ev.To})}

	case order.HandoverConfirmed:
		if ev.Phase == order.PhasePickup {
			return []Message{msg(customer, "Order picked up", "Your order is with the courier",
				OrderTracking{OrderID: o.ID(), CourierID: ev.CourierID})}
		}
		return nil

	case order.RefundRequestedEvent:
		return []Message{
			msg(vendor, "Refund requested", "Refund of "+ev.Amount.String()+" needs your review",
				RefundReview{OrderID: o.ID(), Party: order.PartyVendor, Amount: ev.Amount}),
			msg(Admins, "Refund requested", "Refund of "+ev.Amount.String()+" needs platform review",
				RefundReview{OrderID: o.ID(), Party: order.PartyAdmin, Amount: ev.Amount}),
		}

	case order.RefundSettled:
		return []Message{msg(customer, "Refund sent", ev.Amount.String()+" is on its way back to you", details)}

	case order.RefundSettlementFailed:
		return []Message{msg(Admins, "Refund settlement failed",
			fmt.Sprintf("Attempt %d failed: %s", ev.Attempt, ev.Reason), details)}

	case order.RuleTriggered:
		body := fmt.Sprintf("Order has been %s for a while (%s)", ev.Status, ev.Rule)
		return []Message{msg(vendor, "Order needs attention", body, details), msg(Admins, "Order needs attention", body, details)}
	}
	return nil
}
