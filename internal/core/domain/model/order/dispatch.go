package order

import (
	"fmt"
	"time"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/pkg/errs"
)

// RequestStatus is the sub-state of one courier's delivery request.
type RequestStatus int

const (
	RequestUnknown RequestStatus = iota
	RequestPending
	RequestAccepted
	RequestRejected
	RequestExpired
	// RequestLostRace marks a courier that accepted after another courier won.
	RequestLostRace
	// RequestReleased marks an accepted request given up before pickup.
	RequestReleased
)

func getRequestStatusStrings() map[RequestStatus]string {
	return map[RequestStatus]string{
		RequestUnknown:  "unknown",
		RequestPending:  "pending",
		RequestAccepted: "accepted",
		RequestRejected: "rejected",
		RequestExpired:  "expired",
		RequestLostRace: "lost_race",
		RequestReleased: "released",
	}
}

func (s RequestStatus) String() string {
	if str, ok := getRequestStatusStrings()[s]; ok {
		return str
	}
	return "unknown"
}

func ParseRequestStatus(name string) (RequestStatus, error) {
	for s, str := range getRequestStatusStrings() {
		if str == name && s != RequestUnknown {
			return s, nil
		}
	}
	return RequestUnknown, errs.NewValueIsInvalidErrorWithCause("request status is invalid",
		fmt.Errorf("%q is not a valid request status", name))
}

func (s RequestStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ClosedReason tells why a request left pending without a courier answer,
// or how an accepted request ended.
type ClosedReason string

const (
	ClosedNone       ClosedReason = ""
	ClosedTimeout    ClosedReason = "timeout"
	ClosedSuperseded ClosedReason = "superseded"
	ClosedCancelled  ClosedReason = "cancelled"
	ClosedReleased   ClosedReason = "released"
	ClosedManual     ClosedReason = "manual"
)

// Decision is a courier's answer to a delivery request.
type Decision int

const (
	DecisionUnknown Decision = iota
	DecisionAccept
	DecisionReject
)

func ParseDecision(name string) (Decision, error) {
	switch name {
	case "accept":
		return DecisionAccept, nil
	case "reject":
		return DecisionReject, nil
	}
	return DecisionUnknown, errs.NewValueIsInvalidErrorWithCause("decision is invalid",
		fmt.Errorf("%q is neither accept nor reject", name))
}

func (d Decision) Validate() error {
	if d != DecisionAccept && d != DecisionReject {
		return errs.NewValueIsInvalidErrorWithCause("decision is invalid", fmt.Errorf("%d is not a valid decision", d))
	}
	return nil
}

// Scope is the courier population a dispatch round is offered to.
type Scope string

const (
	ScopeTeam Scope = "team"
	ScopeAll  Scope = "all"
)

// DeliveryRequest is one courier's opportunity window. Entries are never
// removed and never return to pending.
type DeliveryRequest struct {
	CourierID    kernel.UUID
	Status       RequestStatus
	Round        int
	RequestedAt  time.Time
	ExpiresAt    time.Time
	RespondedAt  *time.Time
	ClosedAt     *time.Time
	ClosedReason ClosedReason
}

func (r DeliveryRequest) IsPending() bool {
	return r.Status == RequestPending
}

// DispatchState tracks rounds of broadcasting for the current assignment
// attempt. It is reset when a courier is released.
type DispatchState struct {
	StartedAt     *time.Time
	Round         int
	Scope         Scope
	RoundDeadline *time.Time
	ExhaustedAt   *time.Time
}

func (d DispatchState) IsOpen() bool {
	return d.StartedAt != nil
}

func (d DispatchState) Exhausted() bool {
	return d.ExhaustedAt != nil
}

func (d DispatchState) clone() DispatchState {
	return DispatchState{
		StartedAt:     cloneTime(d.StartedAt),
		Round:         d.Round,
		Scope:         d.Scope,
		RoundDeadline: cloneTime(d.RoundDeadline),
		ExhaustedAt:   cloneTime(d.ExhaustedAt),
	}
}

// DispatchPolicy bounds how long and how widely an order is offered.
type DispatchPolicy struct {
	// RequestTTL is how long a single courier may answer.
	RequestTTL time.Duration
	// TeamGracePeriod is how long the vendor's own team is offered the order
	// alone. Zero offers everyone from the first round.
	TeamGracePeriod time.Duration
	MaxRounds       int
	// Deadline is measured from the first round. Zero disables it.
	Deadline  time.Duration
	MaxFanOut int
}

func (p DispatchPolicy) Validate() error {
	if p.RequestTTL <= 0 {
		return errs.NewValueIsOutOfRangeError("request ttl", p.RequestTTL, "1ns", "unbounded")
	}
	if p.MaxRounds <= 0 {
		return errs.NewValueIsOutOfRangeError("max rounds", p.MaxRounds, 1, "unbounded")
	}
	if p.TeamGracePeriod < 0 || p.Deadline < 0 || p.MaxFanOut < 0 {
		return errs.NewValueIsInvalidError("dispatch policy durations and fan-out must not be negative")
	}
	return nil
}

// DispatchAction is what the sweep should do next for an order.
type DispatchAction int

const (
	DispatchNone DispatchAction = iota
	DispatchBroadcast
	DispatchExhaust
)

type DispatchStep struct {
	Action DispatchAction
	Scope  Scope
}

// Outcome is the result of a courier's answer. Only OutcomeAccepted and
// OutcomeRejected mean the answer took effect as given.
type Outcome int

const (
	OutcomeUnknown Outcome = iota
	OutcomeAccepted
	OutcomeRejected
	OutcomeLostRace
	OutcomeExpired
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAccepted:
		return "accepted"
	case OutcomeRejected:
		return "rejected"
	case OutcomeLostRace:
		return "lost_race"
	case OutcomeExpired:
		return "expired"
	case OutcomeUnknown:
	}
	return "unknown"
}

// CanDispatch reports whether the order is waiting for a courier.
func (o *Order) CanDispatch() bool {
	return o.requiresDelivery && o.assignedCourierID == nil && o.category.isDispatchable(o.status)
}

// OpenDispatch marks the order as awaiting a courier so the sweep picks it up.
// Opening an already open dispatch is a no-op.
func (o *Order) OpenDispatch(now time.Time) error {
	if err := o.Validate(); err != nil {
		return err
	}
	if !o.CanDispatch() {
		return fmt.Errorf("%w: %s order in %s", ErrDispatchNotAllowed, o.category, o.status)
	}
	if o.dispatch.IsOpen() {
		return nil
	}
	o.dispatch = DispatchState{StartedAt: &now}
	o.touch()
	return nil
}

// NeedsDispatch reports whether the current round is over and another
// decision has to be made. A round is over when its deadline passed or when
// every courier it reached has answered.
func (o *Order) NeedsDispatch(now time.Time) bool {
	if !o.dispatch.IsOpen() || o.dispatch.Exhausted() || !o.CanDispatch() {
		return false
	}
	if o.dispatch.Round == 0 {
		return true
	}
	if o.dispatch.RoundDeadline != nil && !now.Before(*o.dispatch.RoundDeadline) {
		return true
	}

	offered := 0
	for _, r := range o.requests {
		if r.Round != o.dispatch.Round {
			continue
		}
		if r.IsPending() {
			return false
		}
		offered++
	}
	return offered > 0
}

// NextDispatchStep decides between another broadcast round and exhaustion.
func (o *Order) NextDispatchStep(now time.Time, policy DispatchPolicy) DispatchStep {
	if !o.NeedsDispatch(now) {
		return DispatchStep{Action: DispatchNone}
	}
	if o.dispatch.Round >= policy.MaxRounds {
		return DispatchStep{Action: DispatchExhaust}
	}
	if policy.Deadline > 0 && !now.Before(o.dispatch.StartedAt.Add(policy.Deadline)) {
		return DispatchStep{Action: DispatchExhaust}
	}
	if o.dispatch.Round == 0 && policy.TeamGracePeriod > 0 {
		return DispatchStep{Action: DispatchBroadcast, Scope: ScopeTeam}
	}
	return DispatchStep{Action: DispatchBroadcast, Scope: ScopeAll}
}

// Broadcast starts a new round and offers the order to the given couriers.
//
// Couriers that hold a pending request, already rejected, or were released
// from this order are skipped, and at most policy.MaxFanOut requests are
// created. A round with no courier left is still recorded so that rounds are
// paced by their deadline. Broadcast returns the couriers actually offered.
func (o *Order) Broadcast(candidates []kernel.UUID, scope Scope, policy DispatchPolicy, now time.Time) ([]kernel.UUID, error) {
	if err := o.Validate(); err != nil {
		return nil, err
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	if !o.CanDispatch() {
		return nil, fmt.Errorf("%w: %s order in %s", ErrDispatchNotAllowed, o.category, o.status)
	}
	if o.dispatch.Exhausted() {
		return nil, ErrDispatchExhausted
	}
	if !o.dispatch.IsOpen() {
		o.dispatch.StartedAt = &now
	}

	offered := make([]kernel.UUID, 0, len(candidates))
	for _, courierID := range candidates {
		if policy.MaxFanOut > 0 && len(offered) >= policy.MaxFanOut {
			break
		}
		if courierID.IsZero() || !o.isOfferable(courierID) || containsUUID(offered, courierID) {
			continue
		}
		offered = append(offered, courierID)
	}

	o.dispatch.Round++
	o.dispatch.Scope = scope
	deadline := now.Add(policy.RequestTTL)
	if scope == ScopeTeam && policy.TeamGracePeriod > 0 {
		deadline = now.Add(policy.TeamGracePeriod)
	}
	o.dispatch.RoundDeadline = &deadline

	expiresAt := now.Add(policy.RequestTTL)
	for _, courierID := range offered {
		o.requests = append(o.requests, DeliveryRequest{
			CourierID:   courierID,
			Status:      RequestPending,
			Round:       o.dispatch.Round,
			RequestedAt: now,
			ExpiresAt:   expiresAt,
		})
		o.record(DeliveryRequested{
			eventMeta: o.meta(now),
			CourierID: courierID,
			Round:     o.dispatch.Round,
			ExpiresAt: expiresAt,
		})
	}
	o.touch()

	return offered, nil
}

// Respond applies a courier's answer to its latest request. This is where the
// accept race is resolved: the store's compare-and-swap guarantees that only
// one accept is ever committed against an unassigned order, and a courier
// whose accept is replayed after losing finds its request superseded and gets
// OutcomeLostRace.
//
// Repeating an answer that already took effect is a no-op. A pending request
// past its expiry is closed as expired and reported with OutcomeExpired.
func (o *Order) Respond(courierID kernel.UUID, decision Decision, codes CodeSource, now time.Time) (Outcome, error) {
	if err := o.Validate(); err != nil {
		return OutcomeUnknown, err
	}
	if err := decision.Validate(); err != nil {
		return OutcomeUnknown, err
	}
	idx := o.latestRequest(courierID)
	if idx < 0 {
		return OutcomeUnknown, ErrRequestNotFound
	}
	r := &o.requests[idx]

	switch r.Status {
	case RequestAccepted:
		if decision == DecisionAccept && o.IsAssignedTo(courierID) {
			return OutcomeAccepted, nil
		}
		return OutcomeUnknown, ErrRequestAlreadyTerminal
	case RequestRejected:
		if decision == DecisionReject {
			return OutcomeRejected, nil
		}
		return OutcomeUnknown, ErrRequestAlreadyTerminal
	case RequestLostRace:
		if decision == DecisionAccept {
			return OutcomeLostRace, nil
		}
		return OutcomeUnknown, ErrRequestAlreadyTerminal
	case RequestExpired:
		// Only a request superseded by a live assignment lost the race.
		if decision == DecisionAccept && r.ClosedReason == ClosedSuperseded &&
			o.assignedCourierID != nil && !o.IsAssignedTo(courierID) {
			o.closeRequest(idx, RequestLostRace, ClosedSuperseded, now)
			r.RespondedAt = &now
			return OutcomeLostRace, nil
		}
		return OutcomeUnknown, ErrRequestAlreadyTerminal
	case RequestPending:
	case RequestUnknown, RequestReleased:
		return OutcomeUnknown, ErrRequestAlreadyTerminal
	}

	if !now.Before(r.ExpiresAt) {
		o.closeRequest(idx, RequestExpired, ClosedTimeout, now)
		return OutcomeExpired, nil
	}

	if decision == DecisionReject {
		r.RespondedAt = &now
		o.closeRequest(idx, RequestRejected, ClosedNone, now)
		return OutcomeRejected, nil
	}

	if o.assignedCourierID != nil {
		r.RespondedAt = &now
		o.closeRequest(idx, RequestLostRace, ClosedSuperseded, now)
		return OutcomeLostRace, nil
	}
	if !o.CanDispatch() {
		return OutcomeUnknown, fmt.Errorf("%w: %s order in %s", ErrDispatchNotAllowed, o.category, o.status)
	}

	courier, err := NewActor(courierID, RoleCourier)
	if err != nil {
		return OutcomeUnknown, err
	}
	target := o.category.AssignedStatus()
	if _, err = o.checkEdge(target, courier); err != nil {
		return OutcomeUnknown, err
	}
	if err = o.ensureCodes(codes); err != nil {
		return OutcomeUnknown, err
	}

	r.RespondedAt = &now
	o.closeRequest(idx, RequestAccepted, ClosedNone, now)
	o.assign(courierID, now)
	o.applyTransition(target, courier, "", now)
	o.record(CourierAssigned{eventMeta: o.meta(now), CourierID: courierID})

	return OutcomeAccepted, nil
}

// ExpireStaleRequests closes every pending request whose window has passed.
// Assignment is never touched. It returns the couriers whose requests expired.
func (o *Order) ExpireStaleRequests(now time.Time) []kernel.UUID {
	var expired []kernel.UUID
	for i := range o.requests {
		if o.requests[i].IsPending() && !now.Before(o.requests[i].ExpiresAt) {
			o.closeRequest(i, RequestExpired, ClosedTimeout, now)
			expired = append(expired, o.requests[i].CourierID)
		}
	}
	return expired
}

// MarkDispatchExhausted stops automatic rounds until an admin steps in.
func (o *Order) MarkDispatchExhausted(now time.Time) error {
	if err := o.Validate(); err != nil {
		return err
	}
	if o.dispatch.Exhausted() {
		return nil
	}
	if !o.CanDispatch() {
		return fmt.Errorf("%w: %s order in %s", ErrDispatchNotAllowed, o.category, o.status)
	}
	o.closePending(ClosedTimeout, now)
	o.dispatch.ExhaustedAt = &now
	o.record(DispatchExhausted{eventMeta: o.meta(now), Rounds: o.dispatch.Round})
	o.touch()
	return nil
}

// AssignManually binds a courier chosen by an admin, bypassing the race.
// Pending requests are superseded and the assignment is logged as an
// accepted request closed with ClosedManual.
func (o *Order) AssignManually(courierID kernel.UUID, actor Actor, codes CodeSource, now time.Time) error {
	if err := o.Validate(); err != nil {
		return err
	}
	if err := courierID.Validate(); err != nil {
		return err
	}
	if actor.Role() != RoleAdmin {
		return newAuthorizationError(actor, "assign a courier manually")
	}
	if o.assignedCourierID != nil {
		return ErrAlreadyAssigned
	}
	if !o.CanDispatch() {
		return fmt.Errorf("%w: %s order in %s", ErrDispatchNotAllowed, o.category, o.status)
	}
	target := o.category.AssignedStatus()
	if _, err := o.checkEdge(target, actor); err != nil {
		return err
	}
	if err := o.ensureCodes(codes); err != nil {
		return err
	}

	if !o.dispatch.IsOpen() {
		o.dispatch.StartedAt = &now
	}
	o.dispatch.ExhaustedAt = nil
	o.requests = append(o.requests, DeliveryRequest{
		CourierID:    courierID,
		Status:       RequestAccepted,
		Round:        o.dispatch.Round,
		RequestedAt:  now,
		ExpiresAt:    now,
		RespondedAt:  &now,
		ClosedAt:     &now,
		ClosedReason: ClosedManual,
	})
	o.assign(courierID, now)
	o.applyTransition(target, actor, "manual assignment", now)
	o.record(CourierAssigned{eventMeta: o.meta(now), CourierID: courierID, Manual: true})

	return nil
}

// ReleaseCourier unbinds the assigned courier before pickup and returns the
// order to dispatch. Handover codes are kept.
func (o *Order) ReleaseCourier(actor Actor, reason string, now time.Time) error {
	if err := o.Validate(); err != nil {
		return err
	}
	if err := actor.Validate(); err != nil {
		return err
	}
	if o.assignedCourierID == nil {
		return ErrNotAssigned
	}
	if actor.Role() != RoleAdmin && !(actor.Role() == RoleCourier && o.IsAssignedTo(actor.ID())) {
		return newAuthorizationError(actor, "release the courier")
	}
	if isBlank(reason) {
		return errs.NewValueIsRequiredError("reason")
	}
	target := o.category.ReleaseStatus()
	if o.pickedUpAt != nil {
		return newTransitionError(o.category, o.status, target, "courier already picked the order up")
	}
	if _, err := o.checkEdge(target, actor); err != nil {
		return err
	}

	courierID := *o.assignedCourierID
	for i := range o.requests {
		if o.requests[i].Status == RequestAccepted && o.requests[i].CourierID.IsEqual(courierID) {
			o.closeRequest(i, RequestReleased, ClosedReleased, now)
		}
	}
	o.assignedCourierID = nil
	o.driverLocation = nil
	o.dispatch = DispatchState{StartedAt: &now}
	o.applyTransition(target, actor, reason, now)
	o.record(CourierReleased{eventMeta: o.meta(now), CourierID: courierID, Reason: reason})

	return nil
}

// ReopenDispatch restarts rounds on an exhausted order.
func (o *Order) ReopenDispatch(actor Actor, now time.Time) error {
	if err := o.Validate(); err != nil {
		return err
	}
	if actor.Role() != RoleAdmin {
		return newAuthorizationError(actor, "reopen dispatch")
	}
	if !o.CanDispatch() {
		return fmt.Errorf("%w: %s order in %s", ErrDispatchNotAllowed, o.category, o.status)
	}
	if !o.dispatch.Exhausted() {
		return fmt.Errorf("%w: dispatch is not exhausted", ErrDispatchNotAllowed)
	}
	o.dispatch = DispatchState{StartedAt: &now}
	o.touch()
	return nil
}

// PendingCouriers returns the couriers holding a pending request.
func (o *Order) PendingCouriers() []kernel.UUID {
	var ids []kernel.UUID
	for _, r := range o.requests {
		if r.IsPending() {
			ids = append(ids, r.CourierID)
		}
	}
	return ids
}

func (o *Order) assign(courierID kernel.UUID, now time.Time) {
	id := courierID
	o.assignedCourierID = &id
	o.closePending(ClosedSuperseded, now)
}

// closePending expires every pending request with the given reason.
func (o *Order) closePending(reason ClosedReason, now time.Time) {
	for i := range o.requests {
		if o.requests[i].IsPending() {
			o.closeRequest(i, RequestExpired, reason, now)
		}
	}
}

func (o *Order) closeRequest(idx int, status RequestStatus, reason ClosedReason, now time.Time) {
	r := &o.requests[idx]
	r.Status = status
	r.ClosedReason = reason
	r.ClosedAt = &now
	o.record(DeliveryRequestClosed{
		eventMeta: o.meta(now),
		CourierID: r.CourierID,
		Status:    status,
		Reason:    reason,
	})
	o.touch()
}

func (o *Order) latestRequest(courierID kernel.UUID) int {
	for i := len(o.requests) - 1; i >= 0; i-- {
		if o.requests[i].CourierID.IsEqual(courierID) {
			return i
		}
	}
	return -1
}

func (o *Order) isOfferable(courierID kernel.UUID) bool {
	for _, r := range o.requests {
		if !r.CourierID.IsEqual(courierID) {
			continue
		}
		switch r.Status {
		case RequestPending, RequestRejected, RequestReleased, RequestAccepted:
			return false
		case RequestUnknown, RequestExpired, RequestLostRace:
		}
	}
	return true
}

func containsUUID(ids []kernel.UUID, id kernel.UUID) bool {
	for _, candidate := range ids {
		if candidate.IsEqual(id) {
			return true
		}
	}
	return false
}
