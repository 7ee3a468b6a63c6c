package order

import (
	"errors"
	"fmt"
)

var (
	// ErrOrderIsNotConstructed is returned when an Order instance was not created through
	// NewOrder or Restore.
	ErrOrderIsNotConstructed = errors.New("Order must be created via NewOrder or Restore")

	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrUnauthorizedActor  = errors.New("actor is not allowed to perform this operation")
	ErrAlreadyAssigned    = errors.New("order is already assigned to another courier")
	ErrCodeMismatch       = errors.New("handover code does not match")
	ErrDispatchExhausted  = errors.New("dispatch exhausted, manual assignment required")
	ErrDispatchNotAllowed = errors.New("order cannot be dispatched in its current state")
	ErrNotAssigned        = errors.New("order has no assigned courier")

	ErrRequestNotFound        = errors.New("no delivery request for this courier")
	ErrRequestAlreadyTerminal = errors.New("delivery request is no longer pending")

	ErrHandoverNotApplicable = errors.New("handover codes do not apply to this order")
	ErrHandoverNotReady      = errors.New("handover codes are issued once a courier is assigned")
	ErrPickupNotConfirmed    = errors.New("pickup must be confirmed before delivery")

	ErrRefundNotAllowed     = errors.New("refund cannot be requested in the current status")
	ErrRefundAlreadyExists  = errors.New("a refund was already requested for this order")
	ErrRefundNotFound       = errors.New("no refund was requested for this order")
	ErrReviewPeriodExpired  = errors.New("review period has expired")
	ErrApprovalConflict     = errors.New("party already recorded a different decision")
	ErrRefundNotApproved    = errors.New("refund is not approved")
	ErrReviewPeriodNotValid = errors.New("review period can only be extended forward")

	ErrLocationNotAccepted = errors.New("driver location is only accepted while the courier holds the order")
)

// TransitionError reports an edge the status machine refused. It unwraps to
// ErrInvalidTransition.
type TransitionError struct {
	Category Category
	From     Status
	To       Status
	Detail   string
}

func newTransitionError(c Category, from, to Status, detail string) *TransitionError {
	return &TransitionError{Category: c, From: from, To: to, Detail: detail}
}

func (e *TransitionError) Error() string {
	msg := fmt.Sprintf("%s: %s order cannot move from %s to %s", ErrInvalidTransition, e.Category, e.From, e.To)
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	return msg
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// AuthorizationError reports an actor whose role or identity does not fit the
// operation. It unwraps to ErrUnauthorizedActor.
type AuthorizationError struct {
	Actor     Actor
	Operation string
}

func newAuthorizationError(actor Actor, operation string) *AuthorizationError {
	return &AuthorizationError{Actor: actor, Operation: operation}
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("%s: %s cannot %s", ErrUnauthorizedActor, e.Actor, e.Operation)
}

func (e *AuthorizationError) Unwrap() error {
	return ErrUnauthorizedActor
}
