package commands

import (
	"errors"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/pkg/errs"
	"orderflow/internal/pkg/guard"
)

var ErrCreateOrderCommandIsNotConstructed = errors.New(
	"CreateOrderCommand must be created via NewCreateOrderCommand constructor",
)

// CreateOrderCommand places a new order for a customer.
//
// Example:
//
//	cmd, err := NewCreateOrderCommand(kernel.NewUUID(), order.Placement{
//	    CustomerID:       customerID,
//	    VendorID:         vendorID,
//	    Category:         order.CategoryRetail,
//	    Items:            items,
//	    DeliveryFee:      fee,
//	    PaymentMethod:    order.PaymentCard,
//	    RequiresDelivery: true,
//	})
type CreateOrderCommand struct { //nolint:recvcheck //using for validation
	orderID   kernel.UUID
	placement order.Placement

	guard guard.ConstructorGuard
}

// NewCreateOrderCommand checks the identifiers and that at least one item is
// present. Item and money validation happens in the aggregate.
func NewCreateOrderCommand(orderID kernel.UUID, placement order.Placement) (CreateOrderCommand, error) {
	cmd := CreateOrderCommand{guard: guard.NewConstructorGuard()}

	if err := errors.Join(
		cmd.setOrderID(orderID),
		cmd.setPlacement(placement),
	); err != nil {
		return CreateOrderCommand{}, err
	}
	return cmd, nil
}

func (c CreateOrderCommand) Validate() error {
	return c.guard.Validate(ErrCreateOrderCommandIsNotConstructed)
}

func (c CreateOrderCommand) OrderID() kernel.UUID {
	return c.orderID
}

func (c CreateOrderCommand) Placement() order.Placement {
	p := c.placement
	p.Items = append([]order.Item(nil), c.placement.Items...)
	return p
}

func (c *CreateOrderCommand) setOrderID(orderID kernel.UUID) error {
	if err := orderID.Validate(); err != nil {
		return err
	}
	c.orderID = orderID
	return nil
}

func (c *CreateOrderCommand) setPlacement(p order.Placement) error {
	var err error
	if len(p.Items) == 0 {
		err = errs.NewValueIsRequiredError("items")
	}
	if err = errors.Join(err, p.CustomerID.Validate(), p.VendorID.Validate(), p.Category.Validate()); err != nil {
		return err
	}
	c.placement = p
	c.placement.Items = append([]order.Item(nil), p.Items...)
	return nil
}
