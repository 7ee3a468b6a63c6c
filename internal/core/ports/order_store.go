package ports

import (
	"context"
	"slices"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
)

// OrderStore is durable keyed storage for orders with optimistic concurrency.
// Every write of an existing order goes through CompareAndSwap.
type OrderStore interface {
	// Get returns *errs.ObjectNotFoundError when the order does not exist.
	Get(ctx context.Context, id kernel.UUID) (*order.Order, error)

	// Create stores a new order at version 1 and marks it committed.
	Create(ctx context.Context, o *order.Order) error

	// CompareAndSwap replaces the stored order only if its version still equals
	// expectedVersion. On success the order is marked committed at
	// expectedVersion+1; otherwise *errs.VersionConflictError is returned and
	// nothing is written.
	CompareAndSwap(ctx context.Context, o *order.Order, expectedVersion int64) error

	// ListNonTerminal pages through orders not in a terminal status, ordered
	// by id. Pass the last id of the previous page as after.
	ListNonTerminal(ctx context.Context, after *kernel.UUID, limit int) ([]*order.Order, error)

	// Subscribe streams committed orders matching filter until ctx is done.
	// The channel is closed when the subscription ends. Slow consumers may
	// miss intermediate versions but always see a later one.
	Subscribe(ctx context.Context, filter OrderFilter) (<-chan *order.Order, error)
}

// OrderFilter narrows a subscription. Empty fields match everything.
type OrderFilter struct {
	OrderIDs   []kernel.UUID
	CustomerID *kernel.UUID
	VendorID   *kernel.UUID
	CourierID  *kernel.UUID
	Statuses   []order.Status
}

func (f OrderFilter) Matches(o *order.Order) bool {
	if len(f.OrderIDs) > 0 && !slices.ContainsFunc(f.OrderIDs, o.ID().IsEqual) {
		return false
	}
	if f.CustomerID != nil && !f.CustomerID.IsEqual(o.CustomerID()) {
		return false
	}
	if f.VendorID != nil && !f.VendorID.IsEqual(o.VendorID()) {
		return false
	}
	if f.CourierID != nil && !o.IsAssignedTo(*f.CourierID) && !slices.ContainsFunc(o.PendingCouriers(), f.CourierID.IsEqual) {
		return false
	}
	if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, o.Status()) {
		return false
	}
	return true
}
