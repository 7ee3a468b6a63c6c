package commands

import (
	"errors"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/pkg/guard"
)

var ErrChangeStatusCommandIsNotConstructed = errors.New(
	"ChangeStatusCommand must be created via NewChangeStatusCommand constructor",
)

// ChangeStatusCommand moves an order along an unmanaged edge of the status
// machine on behalf of an actor.
type ChangeStatusCommand struct { //nolint:recvcheck //using for validation
	orderID kernel.UUID
	target  order.Status
	actor   order.Actor
	reason  string

	guard guard.ConstructorGuard
}

func NewChangeStatusCommand(orderID kernel.UUID, target order.Status, actor order.Actor, reason string) (ChangeStatusCommand, error) {
	cmd := ChangeStatusCommand{reason: reason, guard: guard.NewConstructorGuard()}
	if err := errors.Join(
		cmd.setOrderID(orderID),
		cmd.setTarget(target),
		cmd.setActor(actor),
	); err != nil {
		return ChangeStatusCommand{}, err
	}
	return cmd, nil
}

func (c ChangeStatusCommand) Validate() error {
	return c.guard.Validate(ErrChangeStatusCommandIsNotConstructed)
}

func (c ChangeStatusCommand) OrderID() kernel.UUID { return c.orderID }
func (c ChangeStatusCommand) Target() order.Status { return c.target }
func (c ChangeStatusCommand) Actor() order.Actor   { return c.actor }
func (c ChangeStatusCommand) Reason() string       { return c.reason }

func (c *ChangeStatusCommand) setOrderID(id kernel.UUID) error {
	if err := id.Validate(); err != nil {
		return err
	}
	c.orderID = id
	return nil
}

func (c *ChangeStatusCommand) setTarget(target order.Status) error {
	if err := target.Validate(); err != nil {
		return err
	}
	c.target = target
	return nil
}

func (c *ChangeStatusCommand) setActor(actor order.Actor) error {
	if err := actor.Validate(); err != nil {
		return err
	}
	c.actor = actor
	return nil
}
