package commands

import (
	"errors"
	"strings"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/pkg/errs"
	"orderflow/internal/pkg/guard"
)

var ErrReleaseCourierCommandIsNotConstructed = errors.New(
	"ReleaseCourierCommand must be created via NewReleaseCourierCommand constructor",
)

// ReleaseCourierCommand unbinds the assigned courier before pickup so the
// order can be offered again.
type ReleaseCourierCommand struct {
	orderID kernel.UUID
	actor   order.Actor
	reason  string

	guard guard.ConstructorGuard
}

func NewReleaseCourierCommand(orderID kernel.UUID, actor order.Actor, reason string) (ReleaseCourierCommand, error) {
	var err error
	if strings.TrimSpace(reason) == "" {
		err = errs.NewValueIsRequiredError("reason")
	}
	if err = errors.Join(err, orderID.Validate(), actor.Validate()); err != nil {
		return ReleaseCourierCommand{}, err
	}
	return ReleaseCourierCommand{orderID: orderID, actor: actor, reason: reason, guard: guard.NewConstructorGuard()}, nil
}

func (c ReleaseCourierCommand) Validate() error {
	return c.guard.Validate(ErrReleaseCourierCommandIsNotConstructed)
}

func (c ReleaseCourierCommand) OrderID() kernel.UUID { return c.orderID }
func (c ReleaseCourierCommand) Actor() order.Actor   { return c.actor }
func (c ReleaseCourierCommand) Reason() string       { return c.reason }
