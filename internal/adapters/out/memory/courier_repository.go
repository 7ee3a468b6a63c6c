package memory

import (
	"context"
	"sync"

	"orderflow/internal/core/domain/model/courier"
	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/ports"
	"orderflow/internal/pkg/errs"
)

var _ ports.CourierRepository = (*CourierRepository)(nil)

// CourierRepository stores copies so callers never share a courier.
type CourierRepository struct {
	mu       sync.RWMutex
	couriers map[string]*courier.Courier
	order    []kernel.UUID
}

func NewCourierRepository() *CourierRepository {
	return &CourierRepository{couriers: make(map[string]*courier.Courier)}
}

func (r *CourierRepository) Add(_ context.Context, c *courier.Courier) error {
	if err := c.Validate(); err != nil {
		return err
	}
	cp, err := copyCourier(c)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	key := c.ID().String()
	if _, ok := r.couriers[key]; ok {
		return errs.NewValueIsInvalidError("courier already exists")
	}
	r.couriers[key] = cp
	r.order = append(r.order, c.ID())
	return nil
}

func (r *CourierRepository) Update(_ context.Context, c *courier.Courier) error {
	if err := c.Validate(); err != nil {
		return err
	}
	cp, err := copyCourier(c)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	key := c.ID().String()
	if _, ok := r.couriers[key]; !ok {
		return errs.NewObjectNotFoundError("courier", c.ID())
	}
	r.couriers[key] = cp
	return nil
}

func (r *CourierRepository) Get(_ context.Context, id kernel.UUID) (*courier.Courier, error) {
	r.mu.RLock()
	c, ok := r.couriers[id.String()]
	r.mu.RUnlock()
	if !ok {
		return nil, errs.NewObjectNotFoundError("courier", id)
	}
	return copyCourier(c)
}

func (r *CourierRepository) ListAvailable(_ context.Context, mode courier.ServiceMode) ([]*courier.Courier, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*courier.Courier
	for _, id := range r.order {
		c := r.couriers[id.String()]
		if c.Status() != courier.StatusActive || c.Availability() != courier.Online {
			continue
		}
		if c.Mode() != mode && c.Mode() != courier.ModeBoth {
			continue
		}
		cp, err := copyCourier(c)
		if err != nil {
			return nil, err
		}
		result = append(result, cp)
	}
	return result, nil
}

func copyCourier(c *courier.Courier) (*courier.Courier, error) {
	return courier.RestoreCourier(c.ID(), c.Name(), c.Status(), c.Availability(), c.Mode(), c.TeamVendorID(), c.LastSeenAt())
}
