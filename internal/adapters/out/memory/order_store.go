// Package memory holds process-local adapters for tests and single-node runs.
// All of them enforce the same contracts as the Postgres adapters.
package memory

import (
	"context"
	"slices"
	"strings"
	"sync"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/core/ports"
	"orderflow/internal/pkg/errs"
)

var _ ports.OrderStore = (*OrderStore)(nil)

// OrderStore keeps order snapshots in a map guarded by a mutex. The version
// check and the write happen under one lock, which is what makes
// CompareAndSwap atomic.
type OrderStore struct {
	mu     sync.RWMutex
	orders map[string]order.State
	subs   map[int]*subscriber
	nextID int
}

type subscriber struct {
	filter ports.OrderFilter
	ch     chan *order.Order
}

func NewOrderStore() *OrderStore {
	return &OrderStore{
		orders: make(map[string]order.State),
		subs:   make(map[int]*subscriber),
	}
}

func (s *OrderStore) Get(_ context.Context, id kernel.UUID) (*order.Order, error) {
	s.mu.RLock()
	state, ok := s.orders[id.String()]
	s.mu.RUnlock()
	if !ok {
		return nil, errs.NewObjectNotFoundError("order", id)
	}
	return order.Restore(state)
}

func (s *OrderStore) Create(_ context.Context, o *order.Order) error {
	if err := o.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := o.ID().String()
	if _, ok := s.orders[key]; ok {
		return errs.NewVersionConflictError("order", o.ID(), 0)
	}
	state := o.State()
	state.Version = 1
	s.orders[key] = state
	o.MarkCommitted(1)
	s.publish(state)
	return nil
}

func (s *OrderStore) CompareAndSwap(_ context.Context, o *order.Order, expectedVersion int64) error {
	if err := o.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := o.ID().String()
	current, ok := s.orders[key]
	if !ok {
		return errs.NewObjectNotFoundError("order", o.ID())
	}
	if current.Version != expectedVersion {
		return errs.NewVersionConflictError("order", o.ID(), expectedVersion)
	}

	state := o.State()
	state.Version = expectedVersion + 1
	s.orders[key] = state
	o.MarkCommitted(state.Version)
	s.publish(state)
	return nil
}

func (s *OrderStore) ListNonTerminal(_ context.Context, after *kernel.UUID, limit int) ([]*order.Order, error) {
	s.mu.RLock()
	states := make([]order.State, 0, len(s.orders))
	for _, st := range s.orders {
		if st.Status.IsTerminal() {
			continue
		}
		if after != nil && st.ID.String() <= after.String() {
			continue
		}
		states = append(states, st)
	}
	s.mu.RUnlock()

	slices.SortFunc(states, func(a, b order.State) int {
		return strings.Compare(a.ID.String(), b.ID.String())
	})
	if limit > 0 && len(states) > limit {
		states = states[:limit]
	}

	result := make([]*order.Order, 0, len(states))
	for _, st := range states {
		o, err := order.Restore(st)
		if err != nil {
			return nil, err
		}
		result = append(result, o)
	}
	return result, nil
}

// Subscribe delivers the latest committed snapshot per write. A subscriber
// that falls behind has its pending snapshot replaced by the newer one.
func (s *OrderStore) Subscribe(ctx context.Context, filter ports.OrderFilter) (<-chan *order.Order, error) {
	sub := &subscriber{filter: filter, ch: make(chan *order.Order, 1)}

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = sub
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs, id)
		close(sub.ch)
		s.mu.Unlock()
	}()

	return sub.ch, nil
}

// publish runs under the write lock.
func (s *OrderStore) publish(state order.State) {
	if len(s.subs) == 0 {
		return
	}
	for _, sub := range s.subs {
		o, err := order.Restore(state)
		if err != nil || !sub.filter.Matches(o) {
			continue
		}
		select {
		case sub.ch <- o:
		default:
			select {
			case <-sub.ch:
			default:
			}
			sub.ch <- o
		}
	}
}
