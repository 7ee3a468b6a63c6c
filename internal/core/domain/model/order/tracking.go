package order

import (
	"fmt"
	"time"

	"orderflow/internal/core/domain/model/kernel"
)

// UpdateDriverLocation stores the assigned courier's last position. Positions
// older than the stored one are dropped silently.
func (o *Order) UpdateDriverLocation(courierID kernel.UUID, location kernel.Location, at time.Time) error {
	if err := o.Validate(); err != nil {
		return err
	}
	if err := location.Validate(); err != nil {
		return err
	}
	if !o.IsAssignedTo(courierID) {
		return fmt.Errorf("%w: courier %s is not assigned", ErrLocationNotAccepted, courierID)
	}
	switch o.status {
	case OutForDelivery, RideAccepted, RideStarted:
	default:
		return fmt.Errorf("%w: order is %s", ErrLocationNotAccepted, o.status)
	}
	if o.driverLocation != nil && at.Before(o.driverLocation.UpdatedAt) {
		return nil
	}
	o.driverLocation = &DriverLocation{Location: location, UpdatedAt: at}
	o.touch()
	return nil
}

// RecordRuleNotice remembers that an advisory rule fired for the current
// status entry. It returns false when the rule already fired for it.
func (o *Order) RecordRuleNotice(rule string, now time.Time) bool {
	since := o.StatusSince()
	for _, n := range o.ruleNotices {
		if n.Rule == rule && n.StatusSince.Equal(since) {
			return false
		}
	}
	o.ruleNotices = append(o.ruleNotices, RuleNotice{Rule: rule, StatusSince: since})
	o.record(RuleTriggered{eventMeta: o.meta(now), Rule: rule, Status: o.status})
	o.touch()
	return true
}

func (o *Order) RuleNotices() []RuleNotice {
	return append([]RuleNotice(nil), o.ruleNotices...)
}
