package commands

import (
	"context"
	"errors"

	"orderflow/internal/core/domain/model/courier"
	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/ports"
	"orderflow/internal/pkg/guard"
)

var ErrSetCourierAvailabilityCommandIsNotConstructed = errors.New(
	"SetCourierAvailabilityCommand must be created via NewSetCourierAvailabilityCommand constructor",
)

// SetCourierAvailabilityCommand flips a courier online or offline.
type SetCourierAvailabilityCommand struct {
	courierID    kernel.UUID
	availability courier.Availability

	guard guard.ConstructorGuard
}

func NewSetCourierAvailabilityCommand(courierID kernel.UUID, availability courier.Availability) (SetCourierAvailabilityCommand, error) {
	if err := errors.Join(courierID.Validate(), availability.Validate()); err != nil {
		return SetCourierAvailabilityCommand{}, err
	}
	return SetCourierAvailabilityCommand{
		courierID:    courierID,
		availability: availability,
		guard:        guard.NewConstructorGuard(),
	}, nil
}

func (c SetCourierAvailabilityCommand) Validate() error {
	return c.guard.Validate(ErrSetCourierAvailabilityCommandIsNotConstructed)
}

func (c SetCourierAvailabilityCommand) CourierID() kernel.UUID             { return c.courierID }
func (c SetCourierAvailabilityCommand) Availability() courier.Availability { return c.availability }

type SetCourierAvailabilityCommandHandler struct {
	couriers ports.CourierRepository
	clock    ports.Clock
}

func NewSetCourierAvailabilityCommandHandler(couriers ports.CourierRepository, clock ports.Clock) *SetCourierAvailabilityCommandHandler {
	return &SetCourierAvailabilityCommandHandler{couriers: couriers, clock: clock}
}

// Handle refuses to bring a suspended or inactive courier online.
func (h *SetCourierAvailabilityCommandHandler) Handle(ctx context.Context, cmd SetCourierAvailabilityCommand) (*courier.Courier, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	c, err := h.couriers.Get(ctx, cmd.CourierID())
	if err != nil {
		return nil, err
	}

	now := h.clock.Now()
	if cmd.Availability() == courier.Online {
		err = c.GoOnline(now)
	} else {
		err = c.GoOffline(now)
	}
	if err != nil {
		return nil, err
	}

	if err = h.couriers.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}
