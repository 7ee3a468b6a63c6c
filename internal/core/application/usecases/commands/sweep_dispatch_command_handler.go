package commands

import (
	"context"
	"errors"
	"fmt"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/core/ports"

	"go.uber.org/multierr"
)

// DefaultPageSize is how many orders a periodic handler loads per page.
const DefaultPageSize = 100

// SweepResult summarizes one dispatch sweep.
type SweepResult struct {
	Scanned   int
	Advanced  int
	Offered   int
	Expired   int
	Exhausted int
	Idle      int
}

// SweepDispatchCommandHandler advances every open dispatch whose round
// deadline or request timeouts have passed. It is driven by the scheduler.
type SweepDispatchCommandHandler struct {
	store     ports.OrderStore
	broadcast *BroadcastDeliveryCommandHandler
	policy    order.DispatchPolicy
	clock     ports.Clock
	pageSize  int
}

func NewSweepDispatchCommandHandler(
	store ports.OrderStore,
	broadcast *BroadcastDeliveryCommandHandler,
	policy order.DispatchPolicy,
	clock ports.Clock,
	pageSize int,
) *SweepDispatchCommandHandler {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &SweepDispatchCommandHandler{
		store:     store,
		broadcast: broadcast,
		policy:    policy,
		clock:     clock,
		pageSize:  pageSize,
	}
}

// Handle visits all non-terminal orders. A failing order does not stop the
// sweep; all failures are returned together.
func (h *SweepDispatchCommandHandler) Handle(ctx context.Context) (SweepResult, error) {
	var (
		res    SweepResult
		result error
		after  *kernel.UUID
	)

	for {
		if err := ctx.Err(); err != nil {
			return res, multierr.Append(result, err)
		}
		page, err := h.store.ListNonTerminal(ctx, after, h.pageSize)
		if err != nil {
			return res, multierr.Append(result, fmt.Errorf("list orders: %w", err))
		}

		for _, o := range page {
			res.Scanned++
			if !h.isDue(o) {
				continue
			}
			res.Advanced++

			cmd, err := NewBroadcastDeliveryCommand(o.ID())
			if err != nil {
				result = multierr.Append(result, err)
				continue
			}
			step, err := h.broadcast.Handle(ctx, cmd)
			switch {
			case errors.Is(err, ErrNoCandidates):
				res.Idle++
			case errors.Is(err, order.ErrDispatchExhausted):
			case err != nil:
				result = multierr.Append(result, fmt.Errorf("order %s: %w", o.ID(), err))
				continue
			}
			res.Offered += len(step.Offered)
			res.Expired += len(step.Expired)
			if step.Exhausted {
				res.Exhausted++
			}
		}

		if len(page) < h.pageSize {
			return res, result
		}
		last := page[len(page)-1].ID()
		after = &last
	}
}

// isDue reports whether a broadcast pass would change the order. It works on
// a copy so the stored snapshot stays untouched.
func (h *SweepDispatchCommandHandler) isDue(o *order.Order) bool {
	if !o.Dispatch().IsOpen() || o.Dispatch().Exhausted() {
		return false
	}
	now := h.clock.Now()
	probe := o.Clone()
	if len(probe.ExpireStaleRequests(now)) > 0 {
		return true
	}
	return probe.NextDispatchStep(now, h.policy).Action != order.DispatchNone
}
