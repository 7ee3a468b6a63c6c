package commands

import (
	"context"

	"orderflow/internal/core/domain/model/courier"
	"orderflow/internal/core/ports"
)

// CreateCourierCommandHandler registers couriers. New couriers are Active and
// Offline until their app reports them online.
type CreateCourierCommandHandler struct {
	couriers ports.CourierRepository
}

func NewCreateCourierCommandHandler(couriers ports.CourierRepository) *CreateCourierCommandHandler {
	return &CreateCourierCommandHandler{couriers: couriers}
}

func (h *CreateCourierCommandHandler) Handle(ctx context.Context, cmd CreateCourierCommand) (*courier.Courier, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	c, err := courier.NewCourier(cmd.CourierID(), cmd.Name(), cmd.Mode(), cmd.TeamVendorID())
	if err != nil {
		return nil, err
	}
	if err = h.couriers.Add(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}
