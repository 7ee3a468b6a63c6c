package commands

import (
	"errors"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/pkg/guard"
)

var ErrRespondDeliveryRequestCommandIsNotConstructed = errors.New(
	"RespondDeliveryRequestCommand must be created via NewRespondDeliveryRequestCommand constructor",
)

// RespondDeliveryRequestCommand is a courier's accept or reject of its
// delivery request.
type RespondDeliveryRequestCommand struct {
	orderID   kernel.UUID
	courierID kernel.UUID
	decision  order.Decision

	guard guard.ConstructorGuard
}

func NewRespondDeliveryRequestCommand(
	orderID, courierID kernel.UUID,
	decision order.Decision,
) (RespondDeliveryRequestCommand, error) {
	if err := errors.Join(orderID.Validate(), courierID.Validate(), decision.Validate()); err != nil {
		return RespondDeliveryRequestCommand{}, err
	}
	return RespondDeliveryRequestCommand{
		orderID:   orderID,
		courierID: courierID,
		decision:  decision,
		guard:     guard.NewConstructorGuard(),
	}, nil
}

func (c RespondDeliveryRequestCommand) Validate() error {
	return c.guard.Validate(ErrRespondDeliveryRequestCommandIsNotConstructed)
}

func (c RespondDeliveryRequestCommand) OrderID() kernel.UUID     { return c.orderID }
func (c RespondDeliveryRequestCommand) CourierID() kernel.UUID   { return c.courierID }
func (c RespondDeliveryRequestCommand) Decision() order.Decision { return c.decision }
