// Package queries contains read operations for retrieving system state.
// Queries read straight from the tables and return flat read models.
package queries

import (
	"errors"
	"time"

	"orderflow/internal/core/domain/model/courier"
	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/pkg/guard"
)

var (
	ErrGetAllCouriersQueryIsNotConstructed = errors.New(
		"GetAllCouriersQuery must be created via NewGetAllCouriersQuery constructor",
	)
)

// GetAllCouriersQuery lists the courier roster, optionally only those online.
//
// Example:
//
//	query := NewGetAllCouriersQuery(true)
//	couriers, err := NewGetAllCouriersQueryHandler(db).Handle(ctx, query)
//	if err != nil {
//	    return fmt.Errorf("failed to retrieve couriers: %w", err)
//	}
type GetAllCouriersQuery struct {
	onlineOnly bool
	guard      guard.ConstructorGuard
}

func NewGetAllCouriersQuery(onlineOnly bool) GetAllCouriersQuery {
	return GetAllCouriersQuery{onlineOnly: onlineOnly, guard: guard.NewConstructorGuard()}
}

func (q GetAllCouriersQuery) OnlineOnly() bool {
	return q.onlineOnly
}

// Validate returns ErrGetAllCouriersQueryIsNotConstructed for a zero value.
func (q GetAllCouriersQuery) Validate() error {
	return q.guard.Validate(ErrGetAllCouriersQueryIsNotConstructed)
}

// GetAllCouriersQueryResponse is one roster line.
type GetAllCouriersQueryResponse struct {
	ID           kernel.UUID
	Name         string
	Status       courier.Status
	Availability courier.Availability
	Mode         courier.ServiceMode
	TeamVendorID *kernel.UUID
	LastSeenAt   *time.Time
}
