package commands

import (
	"errors"
	"strings"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/pkg/errs"
	"orderflow/internal/pkg/guard"
)

var ErrCancelOrderCommandIsNotConstructed = errors.New(
	"CancelOrderCommand must be created via NewCancelOrderCommand constructor",
)

// CancelOrderCommand ends an order. Any pending delivery request is closed in
// the same write.
type CancelOrderCommand struct {
	orderID kernel.UUID
	actor   order.Actor
	reason  string

	guard guard.ConstructorGuard
}

func NewCancelOrderCommand(orderID kernel.UUID, actor order.Actor, reason string) (CancelOrderCommand, error) {
	var err error
	if strings.TrimSpace(reason) == "" {
		err = errs.NewValueIsRequiredError("reason")
	}
	if err = errors.Join(err, orderID.Validate(), actor.Validate()); err != nil {
		return CancelOrderCommand{}, err
	}
	return CancelOrderCommand{orderID: orderID, actor: actor, reason: reason, guard: guard.NewConstructorGuard()}, nil
}

func (c CancelOrderCommand) Validate() error {
	return c.guard.Validate(ErrCancelOrderCommandIsNotConstructed)
}

func (c CancelOrderCommand) OrderID() kernel.UUID { return c.orderID }
func (c CancelOrderCommand) Actor() order.Actor   { return c.actor }
func (c CancelOrderCommand) Reason() string       { return c.reason }
