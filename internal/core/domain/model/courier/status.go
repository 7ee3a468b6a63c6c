package courier

import (
	"fmt"

	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/pkg/errs"
)

// Status is the courier's account status.
type Status int

const (
	StatusUnknown Status = iota
	StatusActive
	StatusSuspended
	StatusInactive
)

func getStatusStrings() map[Status]string {
	return map[Status]string{
		StatusUnknown:   "Unknown",
		StatusActive:    "Active",
		StatusSuspended: "Suspended",
		StatusInactive:  "Inactive",
	}
}

func (s Status) String() string {
	if str, ok := getStatusStrings()[s]; ok {
		return str
	}
	return "Unknown"
}

func (s Status) Validate() error {
	if _, ok := getStatusStrings()[s]; !ok || s == StatusUnknown {
		return errs.NewValueIsInvalidErrorWithCause("courier status is invalid", fmt.Errorf("%d is not a valid status", s))
	}
	return nil
}

func ParseStatus(name string) (Status, error) {
	for s, str := range getStatusStrings() {
		if str == name && s != StatusUnknown {
			return s, nil
		}
	}
	return StatusUnknown, errs.NewValueIsInvalidErrorWithCause("courier status is invalid",
		fmt.Errorf("%q is not a valid status", name))
}

// Availability is toggled by the courier app.
type Availability int

const (
	AvailabilityUnknown Availability = iota
	Online
	Offline
)

func (a Availability) String() string {
	switch a {
	case Online:
		return "Online"
	case Offline:
		return "Offline"
	case AvailabilityUnknown:
	}
	return "Unknown"
}

func (a Availability) Validate() error {
	if a != Online && a != Offline {
		return errs.NewValueIsInvalidErrorWithCause("availability is invalid", fmt.Errorf("%d is not a valid availability", a))
	}
	return nil
}

func ParseAvailability(name string) (Availability, error) {
	switch name {
	case "Online":
		return Online, nil
	case "Offline":
		return Offline, nil
	}
	return AvailabilityUnknown, errs.NewValueIsInvalidErrorWithCause("availability is invalid",
		fmt.Errorf("%q is not a valid availability", name))
}

// ServiceMode is the kind of work a courier accepts.
type ServiceMode int

const (
	ModeUnknown ServiceMode = iota
	ModeDelivery
	ModeRide
	ModeBoth
)

func getModeStrings() map[ServiceMode]string {
	return map[ServiceMode]string{
		ModeUnknown:  "unknown",
		ModeDelivery: "delivery",
		ModeRide:     "ride",
		ModeBoth:     "both",
	}
}

func (m ServiceMode) String() string {
	if str, ok := getModeStrings()[m]; ok {
		return str
	}
	return "unknown"
}

func (m ServiceMode) Validate() error {
	if _, ok := getModeStrings()[m]; !ok || m == ModeUnknown {
		return errs.NewValueIsInvalidErrorWithCause("service mode is invalid", fmt.Errorf("%d is not a valid mode", m))
	}
	return nil
}

func ParseServiceMode(name string) (ServiceMode, error) {
	for m, str := range getModeStrings() {
		if str == name && m != ModeUnknown {
			return m, nil
		}
	}
	return ModeUnknown, errs.NewValueIsInvalidErrorWithCause("service mode is invalid",
		fmt.Errorf("%q is not a valid mode", name))
}

// Covers reports whether couriers in this mode take orders of the category.
// Flights are never dispatched.
func (m ServiceMode) Covers(category order.Category) bool {
	switch category {
	case order.CategoryRetail:
		return m == ModeDelivery || m == ModeBoth
	case order.CategoryRide:
		return m == ModeRide || m == ModeBoth
	case order.CategoryUnknown, order.CategoryFlight:
	}
	return false
}

// ModeFor returns the narrowest mode that covers category.
func ModeFor(category order.Category) ServiceMode {
	if category == order.CategoryRide {
		return ModeRide
	}
	return ModeDelivery
}
