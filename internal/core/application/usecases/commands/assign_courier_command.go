package commands

import (
	"errors"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/pkg/guard"
)

var ErrAssignCourierCommandIsNotConstructed = errors.New(
	"AssignCourierCommand must be created via NewAssignCourierCommand constructor",
)

// AssignCourierCommand is an admin binding a courier to an order by hand,
// typically after dispatch was exhausted.
type AssignCourierCommand struct {
	orderID   kernel.UUID
	courierID kernel.UUID
	actor     order.Actor

	guard guard.ConstructorGuard
}

func NewAssignCourierCommand(orderID, courierID kernel.UUID, actor order.Actor) (AssignCourierCommand, error) {
	if err := errors.Join(orderID.Validate(), courierID.Validate(), actor.Validate()); err != nil {
		return AssignCourierCommand{}, err
	}
	return AssignCourierCommand{
		orderID:   orderID,
		courierID: courierID,
		actor:     actor,
		guard:     guard.NewConstructorGuard(),
	}, nil
}

// Validate ensures the command was created through the constructor.
// Returns ErrAssignCourierCommandIsNotConstructed if validation fails.
func (c AssignCourierCommand) Validate() error {
	return c.guard.Validate(ErrAssignCourierCommandIsNotConstructed)
}

func (c AssignCourierCommand) OrderID() kernel.UUID   { return c.orderID }
func (c AssignCourierCommand) CourierID() kernel.UUID { return c.courierID }
func (c AssignCourierCommand) Actor() order.Actor     { return c.actor }
