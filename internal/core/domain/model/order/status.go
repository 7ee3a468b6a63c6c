package order

import (
	"fmt"

	"orderflow/internal/pkg/errs"
)

// Status represents the lifecycle state of an order.
//
// Statuses form one closed set shared by every category; the transition table
// in transitions.go decides which of them a given category can reach.
//
// Retail:
//
//	Pending ─> Confirmed ─> Preparing ─> Out for Delivery ─> Delivered ─> Completed
//	               │                       ▲        │             │            │
//	               └──── (dispatch) ───────┘        │             └─> Refund Requested <─┘
//	                          Preparing <─ (release)┘                   ├─> Refund Approved ─> Refunded
//	                                                                    └─> Refund Rejected ─> Completed
//
// Ride:
//
//	Ride Requested ──> Ride Accepted ──> Ride Started ──> Ride Completed
//
// Flight:
//
//	Pending ──> Ticket Issued ──> Flight Confirmed
//
// Cancelled is reachable from every non-terminal status.
type Status int

const (
	// Unknown represents an invalid or undefined status.
	// This value (0) helps catch uninitialized Status values.
	Unknown Status = iota

	// Pending is the initial status of retail and flight orders.
	Pending

	// Confirmed means the vendor accepted the order.
	Confirmed

	// Preparing means the vendor is preparing the goods.
	Preparing

	// OutForDelivery means a courier holds the order.
	OutForDelivery

	// Delivered means the delivery code was verified (or an admin forced it).
	Delivered

	// Completed is terminal for the retail chain.
	Completed

	// Cancelled is terminal and reachable from any non-terminal status.
	Cancelled

	// RefundRequested means a refund is waiting for vendor and admin decisions.
	RefundRequested

	// RefundApproved means both parties approved and settlement is pending.
	RefundApproved

	// RefundRejected means one of the parties rejected the refund.
	RefundRejected

	// Refunded is terminal: the payment provider settled the refund.
	Refunded

	// RideRequested is the initial status of ride orders.
	RideRequested

	// RideAccepted means a rider won the dispatch race.
	RideAccepted

	// RideStarted means the rider verified the pickup code.
	RideStarted

	// RideCompleted is terminal for the ride chain.
	RideCompleted

	// TicketIssued means the vendor issued the flight ticket.
	TicketIssued

	// FlightConfirmed is terminal for the flight chain.
	FlightConfirmed
)

// getStatusStrings returns a map of Status values to their string representations.
// All statuses are included for string conversion.
func getStatusStrings() map[Status]string {
	return map[Status]string{
		Unknown:         "Unknown",
		Pending:         "Pending",
		Confirmed:       "Confirmed",
		Preparing:       "Preparing",
		OutForDelivery:  "Out for Delivery",
		Delivered:       "Delivered",
		Completed:       "Completed",
		Cancelled:       "Cancelled",
		RefundRequested: "Refund Requested",
		RefundApproved:  "Refund Approved",
		RefundRejected:  "Refund Rejected",
		Refunded:        "Refunded",
		RideRequested:   "Ride Requested",
		RideAccepted:    "Ride Accepted",
		RideStarted:     "Ride Started",
		RideCompleted:   "Ride Completed",
		TicketIssued:    "Ticket Issued",
		FlightConfirmed: "Flight Confirmed",
	}
}

// getTerminalStatuses returns the statuses with no outgoing transitions.
func getTerminalStatuses() map[Status]struct{} {
	return map[Status]struct{}{
		Completed:       {},
		Cancelled:       {},
		Refunded:        {},
		RideCompleted:   {},
		FlightConfirmed: {},
	}
}

// Validate checks if the Status value is one of the declared statuses.
//
// Returns:
//   - nil if the status is valid
//   - error with details if the status is Unknown or out of range
func (s Status) Validate() error {
	if _, ok := getStatusStrings()[s]; !ok || s == Unknown {
		return errs.NewValueIsInvalidErrorWithCause("status is invalid", fmt.Errorf("%d is not a valid status", s))
	}
	return nil
}

// String returns the human-readable name of the status, e.g. "Out for Delivery".
// It is safe to call on invalid values and returns "Unknown" for them.
func (s Status) String() string {
	if str, ok := getStatusStrings()[s]; ok {
		return str
	}
	return "Unknown"
}

// IsTerminal reports whether the status ends the lifecycle.
func (s Status) IsTerminal() bool {
	_, ok := getTerminalStatuses()[s]
	return ok
}

// ParseStatus converts a stored name back to a Status.
//
// Example:
//
//	s, err := order.ParseStatus("Refund Requested")
//	if err != nil {
//	    // Handle corrupted row
//	}
func ParseStatus(name string) (Status, error) {
	for s, str := range getStatusStrings() {
		if str == name && s != Unknown {
			return s, nil
		}
	}
	return Unknown, errs.NewValueIsInvalidErrorWithCause("status is invalid", fmt.Errorf("%q is not a valid status", name))
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	parsed, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
