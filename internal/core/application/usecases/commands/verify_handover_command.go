package commands

import (
	"errors"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/pkg/errs"
	"orderflow/internal/pkg/guard"
)

var ErrVerifyHandoverCommandIsNotConstructed = errors.New(
	"VerifyHandoverCommand must be created via NewVerifyHandoverCommand constructor",
)

// VerifyHandoverCommand carries a 4-digit code typed in at pickup or at the
// door. The code format is checked here; whether it matches is the order's
// decision.
type VerifyHandoverCommand struct {
	orderID kernel.UUID
	phase   order.HandoverPhase
	code    string
	actor   order.Actor

	guard guard.ConstructorGuard
}

func NewVerifyHandoverCommand(
	orderID kernel.UUID,
	phase order.HandoverPhase,
	code string,
	actor order.Actor,
) (VerifyHandoverCommand, error) {
	var err error
	if phase != order.PhasePickup && phase != order.PhaseDelivery {
		err = errs.NewValueIsInvalidError("handover phase")
	}
	if !isCodeFormat(code) {
		err = errors.Join(err, errs.NewValueIsInvalidError("handover code must be 4 digits"))
	}
	if err = errors.Join(err, orderID.Validate(), actor.Validate()); err != nil {
		return VerifyHandoverCommand{}, err
	}
	return VerifyHandoverCommand{
		orderID: orderID,
		phase:   phase,
		code:    code,
		actor:   actor,
		guard:   guard.NewConstructorGuard(),
	}, nil
}

func (c VerifyHandoverCommand) Validate() error {
	return c.guard.Validate(ErrVerifyHandoverCommandIsNotConstructed)
}

func (c VerifyHandoverCommand) OrderID() kernel.UUID       { return c.orderID }
func (c VerifyHandoverCommand) Phase() order.HandoverPhase { return c.phase }
func (c VerifyHandoverCommand) Code() string               { return c.code }
func (c VerifyHandoverCommand) Actor() order.Actor         { return c.actor }

func isCodeFormat(code string) bool {
	if len(code) != order.CodeLength {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
