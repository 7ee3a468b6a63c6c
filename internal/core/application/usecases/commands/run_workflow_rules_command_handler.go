package commands

import (
	"context"
	"fmt"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/core/domain/services"
	"orderflow/internal/core/ports"

	"go.uber.org/multierr"
)

// RulesResult counts what one scheduler tick did.
type RulesResult struct {
	Scanned int
	Changed int
	Fired   map[string]int
}

// RunWorkflowRulesCommandHandler evaluates time-based rules over every
// non-terminal order.
//
// Rules are first evaluated on a copy; only orders where something would fire
// are written, and the write re-evaluates against the fresh state.
type RunWorkflowRulesCommandHandler struct {
	store    ports.OrderStore
	updater  *OrderUpdater
	rules    services.RuleSet
	clock    ports.Clock
	pageSize int
}

func NewRunWorkflowRulesCommandHandler(
	store ports.OrderStore,
	updater *OrderUpdater,
	rules services.RuleSet,
	clock ports.Clock,
	pageSize int,
) *RunWorkflowRulesCommandHandler {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &RunWorkflowRulesCommandHandler{store: store, updater: updater, rules: rules, clock: clock, pageSize: pageSize}
}

func (h *RunWorkflowRulesCommandHandler) Handle(ctx context.Context) (RulesResult, error) {
	var (
		res    = RulesResult{Fired: map[string]int{}}
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
			fired, err := h.apply(ctx, o)
			if err != nil {
				result = multierr.Append(result, fmt.Errorf("order %s: %w", o.ID(), err))
				continue
			}
			if len(fired) > 0 {
				res.Changed++
			}
			for _, name := range fired {
				res.Fired[name]++
			}
		}

		if len(page) < h.pageSize {
			return res, result
		}
		last := page[len(page)-1].ID()
		after = &last
	}
}

func (h *RunWorkflowRulesCommandHandler) apply(ctx context.Context, o *order.Order) ([]string, error) {
	now := h.clock.Now()
	probe := o.Clone()
	fired, err := h.rules.Evaluate(probe, now)
	if err != nil {
		return nil, err
	}
	if len(fired) == 0 || !probe.HasChanges() {
		return nil, nil
	}

	_, err = h.updater.Update(ctx, o.ID(), "workflow_rules", func(fresh *order.Order) error {
		var err error
		fired, err = h.rules.Evaluate(fresh, h.clock.Now())
		return err
	})
	if err != nil {
		return nil, err
	}
	return fired, nil
}
