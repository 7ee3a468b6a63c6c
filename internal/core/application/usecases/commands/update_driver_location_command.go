package commands

import (
	"context"
	"errors"
	"time"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/pkg/errs"
	"orderflow/internal/pkg/guard"
)

var ErrUpdateDriverLocationCommandIsNotConstructed = errors.New(
	"UpdateDriverLocationCommand must be created via NewUpdateDriverLocationCommand constructor",
)

// UpdateDriverLocationCommand is a position report from the assigned
// courier's device. ReportedAt is the device time of the fix.
type UpdateDriverLocationCommand struct {
	orderID    kernel.UUID
	courierID  kernel.UUID
	location   kernel.Location
	reportedAt time.Time

	guard guard.ConstructorGuard
}

func NewUpdateDriverLocationCommand(
	orderID, courierID kernel.UUID,
	location kernel.Location,
	reportedAt time.Time,
) (UpdateDriverLocationCommand, error) {
	var err error
	if reportedAt.IsZero() {
		err = errs.NewValueIsRequiredError("reported at")
	}
	if err = errors.Join(err, orderID.Validate(), courierID.Validate(), location.Validate()); err != nil {
		return UpdateDriverLocationCommand{}, err
	}
	return UpdateDriverLocationCommand{
		orderID:    orderID,
		courierID:  courierID,
		location:   location,
		reportedAt: reportedAt,
		guard:      guard.NewConstructorGuard(),
	}, nil
}

func (c UpdateDriverLocationCommand) Validate() error {
	return c.guard.Validate(ErrUpdateDriverLocationCommandIsNotConstructed)
}

// UpdateDriverLocationCommandHandler stores the last known position. Stale
// reports are dropped without a write.
type UpdateDriverLocationCommandHandler struct {
	updater *OrderUpdater
}

func NewUpdateDriverLocationCommandHandler(updater *OrderUpdater) *UpdateDriverLocationCommandHandler {
	return &UpdateDriverLocationCommandHandler{updater: updater}
}

func (h *UpdateDriverLocationCommandHandler) Handle(ctx context.Context, cmd UpdateDriverLocationCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}
	_, err := h.updater.Update(ctx, cmd.orderID, "driver_location", func(o *order.Order) error {
		return o.UpdateDriverLocation(cmd.courierID, cmd.location, cmd.reportedAt)
	})
	return err
}
