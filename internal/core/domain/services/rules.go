package services

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/pkg/errs"
)

// Rule names of the default rule set.
const (
	RulePendingAutoCancel     = "pending-auto-cancel"
	RuleRideRequestTimeout    = "ride-request-timeout"
	RuleDeliveredAutoComplete = "delivered-auto-complete"
	RuleRefundRejectedClose   = "refund-rejected-close"
	RulePreparingNudge        = "preparing-nudge"
)

// Rule is one time-based progression rule.
//
// An order matches when its category is listed (or Categories is empty), it
// is in From, it has been there for at least Delay and Condition (if any)
// holds. Auto-progressing rules move it to To as the system actor; advisory
// rules only record a notice once per status entry.
type Rule struct {
	Name         string
	Categories   []order.Category
	From         order.Status
	To           order.Status
	Delay        time.Duration
	AutoProgress bool
	Condition    func(o *order.Order) bool
	Reason       string
}

func (r Rule) Validate() error {
	var err error
	if r.Name == "" {
		err = errors.Join(err, errs.NewValueIsRequiredError("rule name"))
	}
	if r.Delay < 0 {
		err = errors.Join(err, errs.NewValueIsOutOfRangeError("rule delay", r.Delay, 0, "unbounded"))
	}
	if r.AutoProgress && r.To.Validate() != nil {
		err = errors.Join(err, errs.NewValueIsRequiredError("target status of "+r.Name))
	}
	return errors.Join(err, r.From.Validate())
}

// Matches reports whether the rule is due for o at now.
func (r Rule) Matches(o *order.Order, now time.Time) bool {
	if o.Status() != r.From {
		return false
	}
	if len(r.Categories) > 0 && !slices.Contains(r.Categories, o.Category()) {
		return false
	}
	if now.Sub(o.StatusSince()) < r.Delay {
		return false
	}
	return r.Condition == nil || r.Condition(o)
}

// Apply performs the rule on a matching order. It reports whether the order
// changed.
func (r Rule) Apply(o *order.Order, now time.Time) (bool, error) {
	if !r.AutoProgress {
		return o.RecordRuleNotice(r.Name, now), nil
	}

	reason := r.Reason
	if reason == "" {
		reason = r.Name
	}
	var err error
	if r.To == order.Cancelled {
		err = o.Cancel(order.SystemActor(), reason, now)
	} else {
		err = o.ChangeStatusWithReason(r.To, order.SystemActor(), reason, now)
	}
	if err != nil {
		return false, fmt.Errorf("rule %s: %w", r.Name, err)
	}
	return true, nil
}

// RuleDelays configures the default rule set.
type RuleDelays struct {
	PendingAutoCancel     time.Duration
	RideRequestTimeout    time.Duration
	DeliveredAutoComplete time.Duration
	PreparingNudge        time.Duration
}

func DefaultRuleDelays() RuleDelays {
	return RuleDelays{
		PendingAutoCancel:     15 * time.Minute,
		RideRequestTimeout:    10 * time.Minute,
		DeliveredAutoComplete: 72 * time.Hour,
		PreparingNudge:        45 * time.Minute,
	}
}

// RuleSet is the declarative list evaluated on every scheduler tick.
type RuleSet struct {
	rules []Rule
}

// NewRuleSet validates every rule.
func NewRuleSet(rules ...Rule) (RuleSet, error) {
	var err error
	for _, r := range rules {
		err = errors.Join(err, r.Validate())
	}
	if err != nil {
		return RuleSet{}, err
	}
	return RuleSet{rules: slices.Clone(rules)}, nil
}

// DefaultRules builds the marketplace's standard rules.
func DefaultRules(d RuleDelays) (RuleSet, error) {
	return NewRuleSet(
		Rule{
			Name:         RulePendingAutoCancel,
			Categories:   []order.Category{order.CategoryRetail, order.CategoryFlight},
			From:         order.Pending,
			To:           order.Cancelled,
			Delay:        d.PendingAutoCancel,
			AutoProgress: true,
			Reason:       "vendor did not confirm in time",
		},
		Rule{
			Name:         RuleRideRequestTimeout,
			Categories:   []order.Category{order.CategoryRide},
			From:         order.RideRequested,
			To:           order.Cancelled,
			Delay:        d.RideRequestTimeout,
			AutoProgress: true,
			Condition:    func(o *order.Order) bool { return o.AssignedCourierID() == nil },
			Reason:       "no rider accepted in time",
		},
		Rule{
			Name:         RuleDeliveredAutoComplete,
			From:         order.Delivered,
			To:           order.Completed,
			Delay:        d.DeliveredAutoComplete,
			AutoProgress: true,
			Condition:    func(o *order.Order) bool { return o.Refund() == nil },
		},
		Rule{
			Name:         RuleRefundRejectedClose,
			From:         order.RefundRejected,
			To:           order.Completed,
			AutoProgress: true,
		},
		Rule{
			Name:       RulePreparingNudge,
			Categories: []order.Category{order.CategoryRetail},
			From:       order.Preparing,
			Delay:      d.PreparingNudge,
			Condition: func(o *order.Order) bool {
				return o.RequiresDelivery() && o.AssignedCourierID() == nil
			},
		},
	)
}

func (rs RuleSet) Rules() []Rule {
	return slices.Clone(rs.rules)
}

// Evaluate applies the first due auto-progressing rule, then every due
// advisory rule. It returns the names of the rules that changed the order.
func (rs RuleSet) Evaluate(o *order.Order, now time.Time) ([]string, error) {
	var fired []string
	for _, r := range rs.rules {
		if !r.Matches(o, now) {
			continue
		}
		changed, err := r.Apply(o, now)
		if err != nil {
			return fired, err
		}
		if changed {
			fired = append(fired, r.Name)
		}
		if r.AutoProgress {
			break
		}
	}
	return fired, nil
}
