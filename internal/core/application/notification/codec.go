package notification

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
)

var ErrUnknownIntent = errors.New("unknown notification intent")

// wire is the JSON shape pushed to client apps.
type wire struct {
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	CreatedAt time.Time  `json:"createdAt"`
	Intent    wireIntent `json:"intent"`
}

type wireIntent struct {
	Type      Kind         `json:"type"`
	OrderID   kernel.UUID  `json:"orderId"`
	Status    string       `json:"status,omitempty"`
	Round     int          `json:"round,omitempty"`
	ExpiresAt *time.Time   `json:"expiresAt,omitempty"`
	Reason    string       `json:"reason,omitempty"`
	CourierID *kernel.UUID `json:"courierId,omitempty"`
	Party     string       `json:"party,omitempty"`
	Amount    *wireAmount  `json:"amount,omitempty"`
	Rounds    int          `json:"rounds,omitempty"`
}

type wireAmount struct {
	Minor    int64  `json:"minor"`
	Currency string `json:"currency"`
	Display  string `json:"display"`
}

// Encode renders n as JSON.
func Encode(n Notification) ([]byte, error) {
	wi, err := encodeIntent(n.Intent)
	if err != nil {
		return nil, err
	}
	return json.Marshal(wire{Title: n.Title, Body: n.Body, CreatedAt: n.CreatedAt, Intent: wi})
}

func encodeIntent(i Intent) (wireIntent, error) {
	switch v := i.(type) {
	case OrderDetails:
		return wireIntent{Type: KindOrderDetails, OrderID: v.OrderID, Status: v.Status.String()}, nil
	case DeliveryOffer:
		expires := v.ExpiresAt
		return wireIntent{Type: KindDeliveryOffer, OrderID: v.OrderID, Round: v.Round, ExpiresAt: &expires}, nil
	case OfferWithdrawn:
		return wireIntent{Type: KindOfferWithdrawn, OrderID: v.OrderID, Reason: string(v.Reason)}, nil
	case OrderTracking:
		courierID := v.CourierID
		return wireIntent{Type: KindOrderTracking, OrderID: v.OrderID, CourierID: &courierID}, nil
	case RefundReview:
		return wireIntent{
			Type:    KindRefundReview,
			OrderID: v.OrderID,
			Party:   v.Party.String(),
			Amount: &wireAmount{
				Minor:    v.Amount.Amount(),
				Currency: v.Amount.Currency(),
				Display:  v.Amount.Decimal().StringFixed(2),
			},
		}, nil
	case DispatchQueue:
		return wireIntent{Type: KindDispatchQueue, OrderID: v.OrderID, Rounds: v.Rounds}, nil
	case nil:
		return wireIntent{}, fmt.Errorf("%w: nil", ErrUnknownIntent)
	}
	return wireIntent{}, fmt.Errorf("%w: %T", ErrUnknownIntent, i)
}

// Decode parses what Encode produced.
func Decode(data []byte) (Notification, error) {
	var w wire
	if err := json.Unmarshal(data, &w); err != nil {
		return Notification{}, fmt.Errorf("decode notification: %w", err)
	}
	intent, err := decodeIntent(w.Intent)
	if err != nil {
		return Notification{}, err
	}
	return Notification{Title: w.Title, Body: w.Body, CreatedAt: w.CreatedAt, Intent: intent}, nil
}

func decodeIntent(w wireIntent) (Intent, error) {
	switch w.Type {
	case KindOrderDetails:
		status, err := order.ParseStatus(w.Status)
		if err != nil {
			return nil, err
		}
		return OrderDetails{OrderID: w.OrderID, Status: status}, nil
	case KindDeliveryOffer:
		if w.ExpiresAt == nil {
			return nil, fmt.Errorf("%w: delivery offer without expiry", ErrUnknownIntent)
		}
		return DeliveryOffer{OrderID: w.OrderID, Round: w.Round, ExpiresAt: *w.ExpiresAt}, nil
	case KindOfferWithdrawn:
		return OfferWithdrawn{OrderID: w.OrderID, Reason: order.ClosedReason(w.Reason)}, nil
	case KindOrderTracking:
		if w.CourierID == nil {
			return nil, fmt.Errorf("%w: tracking without courier", ErrUnknownIntent)
		}
		return OrderTracking{OrderID: w.OrderID, CourierID: *w.CourierID}, nil
	case KindRefundReview:
		party, err := order.ParseApprovalParty(w.Party)
		if err != nil {
			return nil, err
		}
		if w.Amount == nil {
			return nil, fmt.Errorf("%w: refund review without amount", ErrUnknownIntent)
		}
		amount, err := kernel.NewMoney(w.Amount.Minor, w.Amount.Currency)
		if err != nil {
			return nil, err
		}
		return RefundReview{OrderID: w.OrderID, Party: party, Amount: amount}, nil
	case KindDispatchQueue:
		return DispatchQueue{OrderID: w.OrderID, Rounds: w.Rounds}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownIntent, w.Type)
}

