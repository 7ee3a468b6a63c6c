package commands

import (
	"errors"
	"strings"
	"time"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/pkg/errs"
	"orderflow/internal/pkg/guard"
)

var (
	ErrRequestRefundCommandIsNotConstructed = errors.New(
		"RequestRefundCommand must be created via NewRequestRefundCommand constructor",
	)
	ErrExtendReviewPeriodCommandIsNotConstructed = errors.New(
		"ExtendReviewPeriodCommand must be created via NewExtendReviewPeriodCommand constructor",
	)
)

// RequestRefundCommand opens a refund for a delivered order within its
// review period.
type RequestRefundCommand struct {
	orderID kernel.UUID
	actor   order.Actor
	reason  string

	guard guard.ConstructorGuard
}

func NewRequestRefundCommand(orderID kernel.UUID, actor order.Actor, reason string) (RequestRefundCommand, error) {
	var err error
	if strings.TrimSpace(reason) == "" {
		err = errs.NewValueIsRequiredError("reason")
	}
	if err = errors.Join(err, orderID.Validate(), actor.Validate()); err != nil {
		return RequestRefundCommand{}, err
	}
	return RequestRefundCommand{orderID: orderID, actor: actor, reason: reason, guard: guard.NewConstructorGuard()}, nil
}

func (c RequestRefundCommand) Validate() error {
	return c.guard.Validate(ErrRequestRefundCommandIsNotConstructed)
}

func (c RequestRefundCommand) OrderID() kernel.UUID { return c.orderID }
func (c RequestRefundCommand) Actor() order.Actor   { return c.actor }
func (c RequestRefundCommand) Reason() string       { return c.reason }

// ExtendReviewPeriodCommand pushes the refund deadline of one order to until.
type ExtendReviewPeriodCommand struct {
	orderID kernel.UUID
	actor   order.Actor
	until   time.Time

	guard guard.ConstructorGuard
}

func NewExtendReviewPeriodCommand(orderID kernel.UUID, actor order.Actor, until time.Time) (ExtendReviewPeriodCommand, error) {
	var err error
	if until.IsZero() {
		err = errs.NewValueIsRequiredError("until")
	}
	if err = errors.Join(err, orderID.Validate(), actor.Validate()); err != nil {
		return ExtendReviewPeriodCommand{}, err
	}
	return ExtendReviewPeriodCommand{orderID: orderID, actor: actor, until: until, guard: guard.NewConstructorGuard()}, nil
}

func (c ExtendReviewPeriodCommand) Validate() error {
	return c.guard.Validate(ErrExtendReviewPeriodCommandIsNotConstructed)
}

func (c ExtendReviewPeriodCommand) OrderID() kernel.UUID { return c.orderID }
func (c ExtendReviewPeriodCommand) Actor() order.Actor   { return c.actor }
func (c ExtendReviewPeriodCommand) Until() time.Time     { return c.until }
