package commands

import (
	"errors"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/pkg/guard"
)

var ErrBroadcastDeliveryCommandIsNotConstructed = errors.New(
	"BroadcastDeliveryCommand must be created via NewBroadcastDeliveryCommand constructor",
)

// BroadcastDeliveryCommand runs the next dispatch step for one order: expire
// stale requests, then either offer the order to a new round of couriers or
// mark dispatch exhausted.
type BroadcastDeliveryCommand struct {
	orderID kernel.UUID

	guard guard.ConstructorGuard
}

func NewBroadcastDeliveryCommand(orderID kernel.UUID) (BroadcastDeliveryCommand, error) {
	if err := orderID.Validate(); err != nil {
		return BroadcastDeliveryCommand{}, err
	}
	return BroadcastDeliveryCommand{orderID: orderID, guard: guard.NewConstructorGuard()}, nil
}

func (c BroadcastDeliveryCommand) Validate() error {
	return c.guard.Validate(ErrBroadcastDeliveryCommandIsNotConstructed)
}

func (c BroadcastDeliveryCommand) OrderID() kernel.UUID {
	return c.orderID
}
