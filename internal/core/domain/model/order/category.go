package order

import (
	"fmt"

	"orderflow/internal/pkg/errs"
)

// Category selects the lifecycle chain an order follows.
type Category int

const (
	CategoryUnknown Category = iota
	CategoryRetail
	CategoryRide
	CategoryFlight
)

func getCategoryStrings() map[Category]string {
	return map[Category]string{
		CategoryUnknown: "unknown",
		CategoryRetail:  "retail",
		CategoryRide:    "ride",
		CategoryFlight:  "flight",
	}
}

func (c Category) String() string {
	if str, ok := getCategoryStrings()[c]; ok {
		return str
	}
	return "unknown"
}

func (c Category) Validate() error {
	if c == CategoryUnknown || c.String() == "unknown" {
		return errs.NewValueIsInvalidErrorWithCause("category is invalid", fmt.Errorf("%d is not a valid category", c))
	}
	return nil
}

func ParseCategory(name string) (Category, error) {
	for c, str := range getCategoryStrings() {
		if str == name && c != CategoryUnknown {
			return c, nil
		}
	}
	return CategoryUnknown, errs.NewValueIsInvalidErrorWithCause("category is invalid", fmt.Errorf("%q is not a valid category", name))
}

func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// InitialStatus is the status a new order of this category starts in.
func (c Category) InitialStatus() Status {
	if c == CategoryRide {
		return RideRequested
	}
	return Pending
}

// AssignedStatus is the status an order enters when a courier wins it.
// Unknown means the category is never dispatched.
func (c Category) AssignedStatus() Status {
	switch c {
	case CategoryRetail:
		return OutForDelivery
	case CategoryRide:
		return RideAccepted
	case CategoryUnknown, CategoryFlight:
		return Unknown
	}
	return Unknown
}

// ReleaseStatus is where an order returns when its courier is released.
func (c Category) ReleaseStatus() Status {
	switch c {
	case CategoryRetail:
		return Preparing
	case CategoryRide:
		return RideRequested
	case CategoryUnknown, CategoryFlight:
		return Unknown
	}
	return Unknown
}

// pickupTarget is the status entered when the pickup code is verified.
// Retail orders stay Out for Delivery and only record the pickup.
func (c Category) pickupTarget() Status {
	if c == CategoryRide {
		return RideStarted
	}
	return Unknown
}

// deliveryTarget is the status entered when the delivery code is verified.
func (c Category) deliveryTarget() Status {
	switch c {
	case CategoryRetail:
		return Delivered
	case CategoryRide:
		return RideCompleted
	case CategoryUnknown, CategoryFlight:
		return Unknown
	}
	return Unknown
}

// isDispatchable reports whether an unassigned order in status s may be offered to couriers.
func (c Category) isDispatchable(s Status) bool {
	switch c {
	case CategoryRetail:
		return s == Confirmed || s == Preparing
	case CategoryRide:
		return s == RideRequested
	case CategoryUnknown, CategoryFlight:
		return false
	}
	return false
}

// PaymentMethod is how the customer pays. It only matters for refunds.
type PaymentMethod int

const (
	PaymentUnknown PaymentMethod = iota
	PaymentCash
	PaymentCard
	PaymentWallet
)

func getPaymentMethodStrings() map[PaymentMethod]string {
	return map[PaymentMethod]string{
		PaymentUnknown: "unknown",
		PaymentCash:    "cash",
		PaymentCard:    "card",
		PaymentWallet:  "wallet",
	}
}

func (p PaymentMethod) String() string {
	if str, ok := getPaymentMethodStrings()[p]; ok {
		return str
	}
	return "unknown"
}

func (p PaymentMethod) Validate() error {
	if p == PaymentUnknown || p.String() == "unknown" {
		return errs.NewValueIsInvalidErrorWithCause("payment method is invalid", fmt.Errorf("%d is not a valid payment method", p))
	}
	return nil
}

func ParsePaymentMethod(name string) (PaymentMethod, error) {
	for p, str := range getPaymentMethodStrings() {
		if str == name && p != PaymentUnknown {
			return p, nil
		}
	}
	return PaymentUnknown, errs.NewValueIsInvalidErrorWithCause("payment method is invalid", fmt.Errorf("%q is not a valid payment method", name))
}
