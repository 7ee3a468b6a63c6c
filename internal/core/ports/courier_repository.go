// Package ports defines the contracts between the core and its adapters.
package ports

import (
	"context"

	"orderflow/internal/core/domain/model/courier"
	"orderflow/internal/core/domain/model/kernel"
)

// CourierRepository persists courier aggregates.
type CourierRepository interface {
	// Add persists a new courier.
	Add(ctx context.Context, courier *courier.Courier) error

	// Update persists changes to an existing courier.
	Update(ctx context.Context, courier *courier.Courier) error

	// Get returns *errs.ObjectNotFoundError when the courier does not exist.
	Get(ctx context.Context, id kernel.UUID) (*courier.Courier, error)

	// ListAvailable returns Active, Online couriers whose service mode covers
	// mode. Team membership is not filtered here.
	//
	// Example:
	//   riders, err := repo.ListAvailable(ctx, courier.ModeRide)
	//   if err != nil {
	//       return fmt.Errorf("list riders: %w", err)
	//   }
	ListAvailable(ctx context.Context, mode courier.ServiceMode) ([]*courier.Courier, error)
}
