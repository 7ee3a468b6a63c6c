package order

import (
	"crypto/subtle"
	"fmt"
	"time"

	"orderflow/internal/pkg/errs"
)

// CodeLength is the number of decimal digits in a handover code.
const CodeLength = 4

// maxCodeAttempts bounds how often the delivery code is redrawn when it
// collides with the pickup code.
const maxCodeAttempts = 5

// CodeSource produces handover codes. Implementations must return CodeLength
// decimal digits.
type CodeSource interface {
	NewCode() (string, error)
}

// HandoverPhase names the physical handover being confirmed.
type HandoverPhase int

const (
	PhaseUnknown HandoverPhase = iota
	PhasePickup
	PhaseDelivery
)

func (p HandoverPhase) String() string {
	switch p {
	case PhasePickup:
		return "pickup"
	case PhaseDelivery:
		return "delivery"
	case PhaseUnknown:
	}
	return "unknown"
}

func (p HandoverPhase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func ParseHandoverPhase(name string) (HandoverPhase, error) {
	switch name {
	case "pickup":
		return PhasePickup, nil
	case "delivery":
		return PhaseDelivery, nil
	}
	return PhaseUnknown, errs.NewValueIsInvalidErrorWithCause("handover phase is invalid",
		fmt.Errorf("%q is neither pickup nor delivery", name))
}

// HandoverResult distinguishes a fresh confirmation from a repeated one.
type HandoverResult int

const (
	HandoverUnknown HandoverResult = iota
	HandoverVerified
	HandoverAlreadyVerified
)

// ensureCodes issues the pickup and delivery codes once.
func (o *Order) ensureCodes(codes CodeSource) error {
	if o.pickupCode != "" {
		return nil
	}
	if codes == nil {
		return errs.NewValueIsRequiredError("code source")
	}
	pickup, err := drawCode(codes)
	if err != nil {
		return err
	}
	var delivery string
	for range maxCodeAttempts {
		if delivery, err = drawCode(codes); err != nil {
			return err
		}
		if delivery != pickup {
			break
		}
	}
	o.pickupCode = pickup
	o.deliveryCode = delivery
	o.touch()
	return nil
}

func drawCode(codes CodeSource) (string, error) {
	code, err := codes.NewCode()
	if err != nil {
		return "", fmt.Errorf("generate handover code: %w", err)
	}
	if !isValidCode(code) {
		return "", errs.NewValueIsInvalidErrorWithCause("handover code",
			fmt.Errorf("expected %d digits", CodeLength))
	}
	return code, nil
}

func isValidCode(code string) bool {
	if len(code) != CodeLength {
		return false
	}
	for _, c := range code {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// VerifyHandover checks a supplied code for the given phase.
//
// Retail pickup records the pickup and keeps the order Out for Delivery; the
// vendor may confirm it as well as the courier. Retail delivery requires the
// pickup first and moves the order to Delivered. Ride pickup starts the ride
// and ride delivery completes it.
//
// Verifying a phase that is already confirmed returns HandoverAlreadyVerified
// and changes nothing. Codes are compared in constant time.
func (o *Order) VerifyHandover(phase HandoverPhase, code string, actor Actor, now time.Time) (HandoverResult, error) {
	if err := o.Validate(); err != nil {
		return HandoverUnknown, err
	}
	if err := actor.Validate(); err != nil {
		return HandoverUnknown, err
	}
	if phase != PhasePickup && phase != PhaseDelivery {
		return HandoverUnknown, errs.NewValueIsInvalidError("handover phase")
	}
	if o.category == CategoryFlight || !o.requiresDelivery {
		return HandoverUnknown, ErrHandoverNotApplicable
	}
	if o.pickupCode == "" || o.assignedCourierID == nil {
		return HandoverUnknown, ErrHandoverNotReady
	}
	if err := o.authorizeHandover(phase, actor); err != nil {
		return HandoverUnknown, err
	}

	expected := o.pickupCode
	marker := &o.pickedUpAt
	target := o.category.pickupTarget()
	required := o.category.AssignedStatus()
	if phase == PhaseDelivery {
		expected = o.deliveryCode
		marker = &o.deliveryConfirmedAt
		target = o.category.deliveryTarget()
		required = OutForDelivery
		if o.category == CategoryRide {
			required = RideStarted
		}
	}

	if subtle.ConstantTimeCompare([]byte(code), []byte(expected)) != 1 {
		return HandoverUnknown, ErrCodeMismatch
	}
	if *marker != nil {
		return HandoverAlreadyVerified, nil
	}
	if phase == PhaseDelivery && o.pickedUpAt == nil {
		return HandoverUnknown, ErrPickupNotConfirmed
	}
	if o.status != required {
		return HandoverUnknown, newTransitionError(o.category, o.status, target,
			fmt.Sprintf("%s handover requires %s", phase, required))
	}

	*marker = &now
	if target != Unknown {
		if _, err := o.checkTransition(target, actor); err != nil {
			*marker = nil
			return HandoverUnknown, err
		}
		o.applyTransition(target, actor, phase.String()+" code verified", now)
	}
	o.record(HandoverConfirmed{eventMeta: o.meta(now), Phase: phase, CourierID: *o.assignedCourierID})
	o.touch()

	return HandoverVerified, nil
}

func (o *Order) authorizeHandover(phase HandoverPhase, actor Actor) error {
	switch actor.Role() {
	case RoleAdmin:
		return nil
	case RoleCourier:
		if o.IsAssignedTo(actor.ID()) {
			return nil
		}
	case RoleVendor:
		if phase == PhasePickup && o.category == CategoryRetail && actor.ID().IsEqual(o.vendorID) {
			return nil
		}
	case RoleUnknown, RoleCustomer, RoleSystem:
	}
	return newAuthorizationError(actor, "confirm the "+phase.String()+" handover")
}
