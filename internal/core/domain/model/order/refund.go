package order

import (
	"fmt"
	"time"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/pkg/errs"
)

// RefundStatus is the overall state of a refund request.
type RefundStatus int

const (
	RefundStatusUnknown RefundStatus = iota
	RefundStatusRequested
	RefundStatusApproved
	RefundStatusRejected
	RefundStatusRefunded
)

func getRefundStatusStrings() map[RefundStatus]string {
	return map[RefundStatus]string{
		RefundStatusUnknown:   "Unknown",
		RefundStatusRequested: "Requested",
		RefundStatusApproved:  "Approved",
		RefundStatusRejected:  "Rejected",
		RefundStatusRefunded:  "Refunded",
	}
}

func (s RefundStatus) String() string {
	if str, ok := getRefundStatusStrings()[s]; ok {
		return str
	}
	return "Unknown"
}

func (s RefundStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func ParseRefundStatus(name string) (RefundStatus, error) {
	for s, str := range getRefundStatusStrings() {
		if str == name && s != RefundStatusUnknown {
			return s, nil
		}
	}
	return RefundStatusUnknown, errs.NewValueIsInvalidErrorWithCause("refund status is invalid",
		fmt.Errorf("%q is not a valid refund status", name))
}

// Approval is one party's decision on a refund.
type Approval int

const (
	ApprovalUnknown Approval = iota
	ApprovalPending
	ApprovalApproved
	ApprovalRejected
)

func getApprovalStrings() map[Approval]string {
	return map[Approval]string{
		ApprovalUnknown:  "Unknown",
		ApprovalPending:  "Pending",
		ApprovalApproved: "Approved",
		ApprovalRejected: "Rejected",
	}
}

func (a Approval) String() string {
	if str, ok := getApprovalStrings()[a]; ok {
		return str
	}
	return "Unknown"
}

func (a Approval) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func ParseApproval(name string) (Approval, error) {
	for a, str := range getApprovalStrings() {
		if str == name && a != ApprovalUnknown {
			return a, nil
		}
	}
	return ApprovalUnknown, errs.NewValueIsInvalidErrorWithCause("approval is invalid",
		fmt.Errorf("%q is not a valid approval", name))
}

// ApprovalParty is who must sign off a refund.
type ApprovalParty int

const (
	PartyUnknown ApprovalParty = iota
	PartyVendor
	PartyAdmin
)

func (p ApprovalParty) String() string {
	switch p {
	case PartyVendor:
		return "vendor"
	case PartyAdmin:
		return "admin"
	case PartyUnknown:
	}
	return "unknown"
}

func (p ApprovalParty) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func ParseApprovalParty(name string) (ApprovalParty, error) {
	switch name {
	case "vendor":
		return PartyVendor, nil
	case "admin":
		return PartyAdmin, nil
	}
	return PartyUnknown, errs.NewValueIsInvalidErrorWithCause("approval party is invalid",
		fmt.Errorf("%q is neither vendor nor admin", name))
}

// RefundInfo holds the two independent approvals and the overall status.
type RefundInfo struct {
	Status              RefundStatus
	Vendor              Approval
	Admin               Approval
	Reason              string
	Amount              kernel.Money
	RequestedAt         time.Time
	RequestedBy         Role
	DecidedAt           *time.Time
	SettledAt           *time.Time
	SettlementAttempts  int
	LastSettlementError string
}

func (r *RefundInfo) clone() *RefundInfo {
	if r == nil {
		return nil
	}
	c := *r
	c.DecidedAt = cloneTime(r.DecidedAt)
	c.SettledAt = cloneTime(r.SettledAt)
	return &c
}

func (r *RefundInfo) approval(party ApprovalParty) *Approval {
	if party == PartyVendor {
		return &r.Vendor
	}
	return &r.Admin
}

// ReviewDeadline is the last moment a refund may be requested, or false when
// the order was never delivered.
func (o *Order) ReviewDeadline(window time.Duration) (time.Time, bool) {
	deliveredAt, ok := o.EnteredAt(Delivered)
	if !ok {
		return time.Time{}, false
	}
	deadline := deliveredAt.Add(window)
	if o.reviewExtendedUntil != nil && o.reviewExtendedUntil.After(deadline) {
		deadline = *o.reviewExtendedUntil
	}
	return deadline, true
}

// RequestRefund opens a refund for the order total. Only one refund may ever
// be requested per order.
func (o *Order) RequestRefund(actor Actor, reason string, window time.Duration, now time.Time) error {
	if err := o.Validate(); err != nil {
		return err
	}
	if err := actor.Validate(); err != nil {
		return err
	}
	if isBlank(reason) {
		return errs.NewValueIsRequiredError("reason")
	}
	if o.refund != nil {
		return ErrRefundAlreadyExists
	}
	if o.status != Delivered && o.status != Completed {
		return fmt.Errorf("%w: order is %s", ErrRefundNotAllowed, o.status)
	}
	if _, err := o.checkTransition(RefundRequested, actor); err != nil {
		return err
	}
	deadline, ok := o.ReviewDeadline(window)
	if !ok {
		return fmt.Errorf("%w: order was never delivered", ErrRefundNotAllowed)
	}
	if now.After(deadline) {
		return fmt.Errorf("%w: deadline was %s", ErrReviewPeriodExpired, deadline.Format(time.RFC3339))
	}

	o.refund = &RefundInfo{
		Status:      RefundStatusRequested,
		Vendor:      ApprovalPending,
		Admin:       ApprovalPending,
		Reason:      reason,
		Amount:      o.total,
		RequestedAt: now,
		RequestedBy: actor.Role(),
	}
	o.applyTransition(RefundRequested, actor, reason, now)
	o.record(RefundRequestedEvent{eventMeta: o.meta(now), Amount: o.total, Reason: reason})

	return nil
}

// ExtendReviewPeriod moves the refund deadline forward. It never shortens it.
func (o *Order) ExtendReviewPeriod(actor Actor, until time.Time, window time.Duration, now time.Time) error {
	if err := o.Validate(); err != nil {
		return err
	}
	if err := actor.Validate(); err != nil {
		return err
	}
	if actor.Role() != RoleAdmin && actor.Role() != RoleVendor {
		return newAuthorizationError(actor, "extend the review period")
	}
	if err := o.authorize(actor, "extend the review period"); err != nil {
		return err
	}
	if o.refund != nil || (o.status != Delivered && o.status != Completed) {
		return fmt.Errorf("%w: order is %s", ErrRefundNotAllowed, o.status)
	}
	current, _ := o.ReviewDeadline(window)
	if !until.After(now) || !until.After(current) {
		return ErrReviewPeriodNotValid
	}
	o.reviewExtendedUntil = &until
	o.touch()
	return nil
}

// RecordApproval stores one party's decision.
//
// Recording the same decision twice is a no-op. A rejection from either party
// makes the refund Rejected at once and that is final: a later approval by the
// other party is recorded but changes nothing. The refund becomes Approved
// only once both parties approved.
func (o *Order) RecordApproval(party ApprovalParty, decision Approval, actor Actor, now time.Time) error {
	if err := o.Validate(); err != nil {
		return err
	}
	if err := actor.Validate(); err != nil {
		return err
	}
	if o.refund == nil {
		return ErrRefundNotFound
	}
	if decision != ApprovalApproved && decision != ApprovalRejected {
		return errs.NewValueIsInvalidErrorWithCause("decision", fmt.Errorf("%s is not a decision", decision))
	}
	switch party {
	case PartyVendor:
		if actor.Role() != RoleVendor || !actor.ID().IsEqual(o.vendorID) {
			return newAuthorizationError(actor, "decide a refund for the vendor")
		}
	case PartyAdmin:
		if actor.Role() != RoleAdmin {
			return newAuthorizationError(actor, "decide a refund for the platform")
		}
	case PartyUnknown:
		return errs.NewValueIsInvalidError("approval party")
	}

	current := o.refund.approval(party)
	if *current == decision {
		return nil
	}
	if *current != ApprovalPending {
		return fmt.Errorf("%w: %s already %s", ErrApprovalConflict, party, *current)
	}

	*current = decision
	o.record(RefundApprovalRecorded{eventMeta: o.meta(now), Party: party, Decision: decision})
	o.touch()

	if o.refund.Status != RefundStatusRequested {
		return nil
	}
	switch {
	case decision == ApprovalRejected:
		o.decideRefund(RefundStatusRejected, RefundRejected, "refund rejected by "+party.String(), now)
	case o.refund.Vendor == ApprovalApproved && o.refund.Admin == ApprovalApproved:
		o.decideRefund(RefundStatusApproved, RefundApproved, "refund approved", now)
	}
	return nil
}

func (o *Order) decideRefund(status RefundStatus, to Status, reason string, now time.Time) {
	o.refund.Status = status
	o.refund.DecidedAt = &now
	o.applyTransition(to, SystemActor(), reason, now)
	o.record(RefundDecided{eventMeta: o.meta(now), Status: status})
}

// NeedsSettlement reports whether an approved refund is waiting for payment.
func (o *Order) NeedsSettlement() bool {
	return o.refund != nil && o.refund.Status == RefundStatusApproved
}

// MarkRefunded completes an approved refund once the payment provider settled
// it. Marking an already refunded order is a no-op.
func (o *Order) MarkRefunded(now time.Time) error {
	if err := o.Validate(); err != nil {
		return err
	}
	if o.refund == nil {
		return ErrRefundNotFound
	}
	if o.refund.Status == RefundStatusRefunded {
		return nil
	}
	if o.refund.Status != RefundStatusApproved {
		return ErrRefundNotApproved
	}
	o.refund.Status = RefundStatusRefunded
	o.refund.SettledAt = &now
	o.refund.LastSettlementError = ""
	o.applyTransition(Refunded, SystemActor(), "refund settled", now)
	o.record(RefundSettled{eventMeta: o.meta(now), Amount: o.refund.Amount})
	return nil
}

// RecordSettlementFailure keeps the refund Approved so it is retried.
func (o *Order) RecordSettlementFailure(reason string, now time.Time) error {
	if err := o.Validate(); err != nil {
		return err
	}
	if !o.NeedsSettlement() {
		return ErrRefundNotApproved
	}
	o.refund.SettlementAttempts++
	o.refund.LastSettlementError = reason
	o.record(RefundSettlementFailed{eventMeta: o.meta(now), Attempt: o.refund.SettlementAttempts, Reason: reason})
	o.touch()
	return nil
}
