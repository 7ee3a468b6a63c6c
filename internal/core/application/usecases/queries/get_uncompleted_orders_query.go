package queries

import (
	"errors"
	"time"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/pkg/guard"
)

var (
	ErrGetUncompletedOrdersQueryIsNotConstructed = errors.New(
		"GetUncompletedOrdersQuery must be created via NewGetUncompletedOrdersQuery constructor",
	)
)

// GetUncompletedOrdersQuery lists orders that have not reached a terminal
// status. Statuses narrows the result; VendorID limits it to one vendor.
//
// Example:
//
//	query, err := NewGetUncompletedOrdersQuery(&vendorID, order.Pending, order.Confirmed)
//	if err != nil {
//	    return err
//	}
//	orders, err := NewGetUncompletedOrdersQueryHandler(db).Handle(ctx, query)
type GetUncompletedOrdersQuery struct {
	vendorID *kernel.UUID
	statuses []order.Status
	guard    guard.ConstructorGuard
}

func NewGetUncompletedOrdersQuery(vendorID *kernel.UUID, statuses ...order.Status) (GetUncompletedOrdersQuery, error) {
	if vendorID != nil {
		if err := vendorID.Validate(); err != nil {
			return GetUncompletedOrdersQuery{}, err
		}
		id := *vendorID
		vendorID = &id
	}
	for _, s := range statuses {
		if err := s.Validate(); err != nil {
			return GetUncompletedOrdersQuery{}, err
		}
	}
	return GetUncompletedOrdersQuery{
		vendorID: vendorID,
		statuses: append([]order.Status(nil), statuses...),
		guard:    guard.NewConstructorGuard(),
	}, nil
}

func (q GetUncompletedOrdersQuery) VendorID() *kernel.UUID {
	return q.vendorID
}

func (q GetUncompletedOrdersQuery) Statuses() []order.Status {
	return append([]order.Status(nil), q.statuses...)
}

// Validate returns ErrGetUncompletedOrdersQueryIsNotConstructed for a zero value.
func (q GetUncompletedOrdersQuery) Validate() error {
	return q.guard.Validate(ErrGetUncompletedOrdersQueryIsNotConstructed)
}

// GetUncompletedOrdersQueryResponse is one line of the open order board.
type GetUncompletedOrdersQueryResponse struct {
	ID                kernel.UUID
	VendorID          kernel.UUID
	Category          order.Category
	Status            order.Status
	Total             kernel.Money
	AssignedCourierID *kernel.UUID
	CreatedAt         time.Time
}
