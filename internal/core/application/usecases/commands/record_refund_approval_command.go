package commands

import (
	"errors"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/pkg/errs"
	"orderflow/internal/pkg/guard"
)

var ErrRecordRefundApprovalCommandIsNotConstructed = errors.New(
	"RecordRefundApprovalCommand must be created via NewRecordRefundApprovalCommand constructor",
)

// RecordRefundApprovalCommand is one party's approve or reject.
type RecordRefundApprovalCommand struct {
	orderID  kernel.UUID
	party    order.ApprovalParty
	decision order.Approval
	actor    order.Actor

	guard guard.ConstructorGuard
}

func NewRecordRefundApprovalCommand(
	orderID kernel.UUID,
	party order.ApprovalParty,
	decision order.Approval,
	actor order.Actor,
) (RecordRefundApprovalCommand, error) {
	var err error
	if party != order.PartyVendor && party != order.PartyAdmin {
		err = errs.NewValueIsInvalidError("approval party")
	}
	if decision != order.ApprovalApproved && decision != order.ApprovalRejected {
		err = errors.Join(err, errs.NewValueIsInvalidError("approval decision"))
	}
	if err = errors.Join(err, orderID.Validate(), actor.Validate()); err != nil {
		return RecordRefundApprovalCommand{}, err
	}
	return RecordRefundApprovalCommand{
		orderID:  orderID,
		party:    party,
		decision: decision,
		actor:    actor,
		guard:    guard.NewConstructorGuard(),
	}, nil
}

func (c RecordRefundApprovalCommand) Validate() error {
	return c.guard.Validate(ErrRecordRefundApprovalCommandIsNotConstructed)
}

func (c RecordRefundApprovalCommand) OrderID() kernel.UUID       { return c.orderID }
func (c RecordRefundApprovalCommand) Party() order.ApprovalParty { return c.party }
func (c RecordRefundApprovalCommand) Decision() order.Approval   { return c.decision }
func (c RecordRefundApprovalCommand) Actor() order.Actor         { return c.actor }
