package order_test

import (
	"testing"
	"time"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const reviewWindow = 48 * time.Hour

// requestedRefund returns a delivered order with a refund waiting for decisions.
func requestedRefund(t *testing.T) *order.Order {
	t.Helper()
	o := deliveredOrder(t)
	require.NoError(t, o.RequestRefund(customerOf(t, o), "items missing", reviewWindow, baseTime.Add(time.Hour)))
	o.PullEvents()
	return o
}

func TestOrder_RequestRefund(t *testing.T) {
	t.Run("should open a refund for the order total", func(t *testing.T) {
		o := deliveredOrder(t)

		err := o.RequestRefund(customerOf(t, o), "items missing", reviewWindow, baseTime.Add(time.Hour))

		require.NoError(t, err)
		assert.Equal(t, order.RefundRequested, o.Status())
		r := o.Refund()
		require.NotNil(t, r)
		assert.Equal(t, order.RefundStatusRequested, r.Status)
		assert.Equal(t, order.ApprovalPending, r.Vendor)
		assert.Equal(t, order.ApprovalPending, r.Admin)
		assert.True(t, r.Amount.IsEqual(o.Total()))
		assert.Contains(t, eventNames(o.PullEvents()), "refund.requested")
	})

	t.Run("should refuse orders that were not delivered", func(t *testing.T) {
		o := preparingOrder(t)

		err := o.RequestRefund(customerOf(t, o), "late", reviewWindow, baseTime)

		require.ErrorIs(t, err, order.ErrRefundNotAllowed)
	})

	t.Run("should refuse after the review window", func(t *testing.T) {
		o := deliveredOrder(t)

		err := o.RequestRefund(customerOf(t, o), "late", reviewWindow, baseTime.Add(72*time.Hour))

		require.ErrorIs(t, err, order.ErrReviewPeriodExpired)
		assert.Nil(t, o.Refund())
	})

	t.Run("should honour an extended review period", func(t *testing.T) {
		o := deliveredOrder(t)
		require.NoError(t, o.ExtendReviewPeriod(vendorOf(t, o), baseTime.Add(96*time.Hour), reviewWindow, baseTime.Add(time.Hour)))

		err := o.RequestRefund(customerOf(t, o), "late", reviewWindow, baseTime.Add(72*time.Hour))

		require.NoError(t, err)
	})

	t.Run("should allow only one refund", func(t *testing.T) {
		o := requestedRefund(t)

		err := o.RequestRefund(admin(t), "again", reviewWindow, baseTime.Add(2*time.Hour))

		require.ErrorIs(t, err, order.ErrRefundAlreadyExists)
	})

	t.Run("should refuse another customer", func(t *testing.T) {
		o := deliveredOrder(t)

		err := o.RequestRefund(actor(t, kernel.NewUUID(), order.RoleCustomer), "x", reviewWindow, baseTime.Add(time.Hour))

		require.ErrorIs(t, err, order.ErrUnauthorizedActor)
	})
}

func TestOrder_ExtendReviewPeriod(t *testing.T) {
	t.Run("should only move forward", func(t *testing.T) {
		o := deliveredOrder(t)
		now := baseTime.Add(time.Hour)

		err := o.ExtendReviewPeriod(admin(t), baseTime.Add(24*time.Hour), reviewWindow, now)

		require.ErrorIs(t, err, order.ErrReviewPeriodNotValid)
		assert.Nil(t, o.ReviewExtendedUntil())
	})

	t.Run("should refuse customers", func(t *testing.T) {
		o := deliveredOrder(t)

		err := o.ExtendReviewPeriod(customerOf(t, o), baseTime.Add(96*time.Hour), reviewWindow, baseTime)

		require.ErrorIs(t, err, order.ErrUnauthorizedActor)
	})
}

func TestOrder_RecordApproval(t *testing.T) {
	now := baseTime.Add(2 * time.Hour)

	t.Run("should approve once both parties approved", func(t *testing.T) {
		o := requestedRefund(t)

		require.NoError(t, o.RecordApproval(order.PartyVendor, order.ApprovalApproved, vendorOf(t, o), now))
		assert.Equal(t, order.RefundStatusRequested, o.Refund().Status)
		assert.Equal(t, order.RefundRequested, o.Status())

		require.NoError(t, o.RecordApproval(order.PartyAdmin, order.ApprovalApproved, admin(t), now))

		assert.Equal(t, order.RefundStatusApproved, o.Refund().Status)
		assert.Equal(t, order.RefundApproved, o.Status())
		assert.True(t, o.NeedsSettlement())
	})

	t.Run("should short-circuit on a rejection in either order", func(t *testing.T) {
		first := requestedRefund(t)
		require.NoError(t, first.RecordApproval(order.PartyVendor, order.ApprovalRejected, vendorOf(t, first), now))
		require.NoError(t, first.RecordApproval(order.PartyAdmin, order.ApprovalApproved, admin(t), now))

		second := requestedRefund(t)
		require.NoError(t, second.RecordApproval(order.PartyAdmin, order.ApprovalApproved, admin(t), now))
		require.NoError(t, second.RecordApproval(order.PartyVendor, order.ApprovalRejected, vendorOf(t, second), now))

		for _, o := range []*order.Order{first, second} {
			assert.Equal(t, order.RefundStatusRejected, o.Refund().Status)
			assert.Equal(t, order.RefundRejected, o.Status())
			assert.False(t, o.NeedsSettlement())
		}
		assert.Equal(t, order.ApprovalApproved, first.Refund().Admin)
	})

	t.Run("should be idempotent for a repeated decision", func(t *testing.T) {
		once := requestedRefund(t)
		twice := once.Clone()
		v := vendorOf(t, once)

		require.NoError(t, once.RecordApproval(order.PartyVendor, order.ApprovalApproved, v, now))
		require.NoError(t, twice.RecordApproval(order.PartyVendor, order.ApprovalApproved, v, now))
		require.NoError(t, twice.RecordApproval(order.PartyVendor, order.ApprovalApproved, v, now.Add(time.Minute)))

		assert.Equal(t, once.State(), twice.State())
	})

	t.Run("should refuse a changed decision", func(t *testing.T) {
		o := requestedRefund(t)
		require.NoError(t, o.RecordApproval(order.PartyAdmin, order.ApprovalApproved, admin(t), now))

		err := o.RecordApproval(order.PartyAdmin, order.ApprovalRejected, admin(t), now)

		require.ErrorIs(t, err, order.ErrApprovalConflict)
	})

	t.Run("should check who decides for which party", func(t *testing.T) {
		o := requestedRefund(t)

		require.ErrorIs(t, o.RecordApproval(order.PartyVendor, order.ApprovalApproved, admin(t), now), order.ErrUnauthorizedActor)
		require.ErrorIs(t, o.RecordApproval(order.PartyAdmin, order.ApprovalApproved, vendorOf(t, o), now), order.ErrUnauthorizedActor)
		stranger := actor(t, kernel.NewUUID(), order.RoleVendor)
		require.ErrorIs(t, o.RecordApproval(order.PartyVendor, order.ApprovalApproved, stranger, now), order.ErrUnauthorizedActor)
	})

	t.Run("should fail without a refund", func(t *testing.T) {
		o := deliveredOrder(t)

		require.ErrorIs(t, o.RecordApproval(order.PartyAdmin, order.ApprovalApproved, admin(t), now), order.ErrRefundNotFound)
	})
}

func TestOrder_Settlement(t *testing.T) {
	approved := func(t *testing.T) *order.Order {
		o := requestedRefund(t)
		now := baseTime.Add(2 * time.Hour)
		require.NoError(t, o.RecordApproval(order.PartyVendor, order.ApprovalApproved, vendorOf(t, o), now))
		require.NoError(t, o.RecordApproval(order.PartyAdmin, order.ApprovalApproved, admin(t), now))
		return o
	}

	t.Run("should move an approved refund to Refunded", func(t *testing.T) {
		o := approved(t)

		require.NoError(t, o.MarkRefunded(baseTime.Add(3*time.Hour)))

		assert.Equal(t, order.Refunded, o.Status())
		assert.Equal(t, order.RefundStatusRefunded, o.Refund().Status)
		require.NoError(t, o.MarkRefunded(baseTime.Add(4*time.Hour)))
	})

	t.Run("should keep the refund approved after a failed attempt", func(t *testing.T) {
		o := approved(t)

		require.NoError(t, o.RecordSettlementFailure("gateway timeout", baseTime.Add(3*time.Hour)))

		r := o.Refund()
		assert.Equal(t, 1, r.SettlementAttempts)
		assert.Equal(t, "gateway timeout", r.LastSettlementError)
		assert.True(t, o.NeedsSettlement())
	})

	t.Run("should refuse to settle before approval", func(t *testing.T) {
		o := requestedRefund(t)

		require.ErrorIs(t, o.MarkRefunded(baseTime), order.ErrRefundNotApproved)
	})
}
