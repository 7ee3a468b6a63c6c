package courier

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/pkg/errs"
	"orderflow/internal/pkg/guard"
)

// Domain errors for courier operations.
var (
	// ErrNameIsRequired is returned when attempting to create a courier without a name.
	ErrNameIsRequired = errs.NewValueIsRequiredError("name")
	// ErrCourierIsNotConstructed is returned when using an improperly initialized Courier.
	ErrCourierIsNotConstructed = errors.New("Courier must be created via NewCourier constructor")
	// ErrCourierNotActive is returned when an inactive or suspended courier goes online.
	ErrCourierNotActive = errors.New("courier account is not active")
)

// Courier represents a delivery courier or ride rider registered on the
// marketplace. It is an aggregate root that holds the data dispatch needs to
// decide whether the courier may be offered an order.
//
// Key responsibilities:
//   - Managing courier identity (ID, name)
//   - Tracking account status (Active, Suspended, Inactive)
//   - Tracking availability (Online, Offline) as reported by the courier app
//   - Declaring which work the courier takes (delivery, ride or both)
//   - Recording membership of a vendor's private team
//
// Business rules:
//   - Courier must have a valid UUID and non-empty name
//   - Only Active couriers can go online
//   - Suspending or deactivating a courier takes them offline
//   - A courier with no team vendor belongs to the independent pool
//
// Example usage:
//
//	c, err := courier.NewCourier(kernel.NewUUID(), "Ada", courier.ModeBoth, nil)
//	if err != nil {
//	    // Handle construction error
//	}
//	_ = c.GoOnline(now)
type Courier struct {
	// id uniquely identifies the courier
	id kernel.UUID
	// name is the human-readable name of the courier
	name string
	// status is the account status managed by admins
	status Status
	// availability is toggled by the courier
	availability Availability
	// mode selects retail deliveries, rides or both
	mode ServiceMode
	// teamVendorID is set for members of a vendor's private fleet
	teamVendorID *kernel.UUID
	// lastSeenAt is when availability last changed
	lastSeenAt *time.Time
	// guard ensures the courier was properly constructed
	guard guard.ConstructorGuard
}

// NewCourier creates a new Active, Offline courier.
//
// Parameters:
//   - id: Unique identifier for the courier (must be valid UUID)
//   - name: Human-readable name (must be non-empty)
//   - mode: Work the courier takes (delivery, ride or both)
//   - teamVendorID: Vendor whose private team the courier belongs to, or nil
//
// Returns:
//   - *Courier: A courier ready to go online
//   - error: Validation error if any parameter is invalid (aggregated errors for multiple issues)
//
// Example:
//
//	vendorID := kernel.NewUUID()
//	c, err := courier.NewCourier(kernel.NewUUID(), "Bola", courier.ModeDelivery, &vendorID)
//	if err != nil {
//	    log.Fatal("Failed to create courier:", err)
//	}
func NewCourier(id kernel.UUID, name string, mode ServiceMode, teamVendorID *kernel.UUID) (*Courier, error) {
	c := &Courier{
		status:       StatusActive,
		availability: Offline,
		guard:        guard.NewConstructorGuard(),
	}

	if err := errors.Join(
		c.setID(id),
		c.setName(name),
		c.setMode(mode),
		c.setTeam(teamVendorID),
	); err != nil {
		return nil, err
	}

	return c, nil
}

// RestoreCourier reconstructs a Courier aggregate from persistent storage.
// Unlike NewCourier, which always starts Active and Offline, the restored
// courier keeps its persisted status and availability.
//
// Example:
//
//	c, err := courier.RestoreCourier(id, "Bola", courier.StatusActive, courier.Online,
//	    courier.ModeDelivery, nil, &lastSeen)
//	if err != nil {
//	    return fmt.Errorf("restoration failed: %w", err)
//	}
func RestoreCourier(
	id kernel.UUID,
	name string,
	status Status,
	availability Availability,
	mode ServiceMode,
	teamVendorID *kernel.UUID,
	lastSeenAt *time.Time,
) (*Courier, error) {
	c := &Courier{
		guard: guard.NewConstructorGuard(),
	}

	if err := errors.Join(
		c.setID(id),
		c.setName(name),
		c.setMode(mode),
		c.setTeam(teamVendorID),
		status.Validate(),
		availability.Validate(),
	); err != nil {
		return nil, err
	}
	c.status = status
	c.availability = availability
	if lastSeenAt != nil {
		seen := *lastSeenAt
		c.lastSeenAt = &seen
	}

	return c, nil
}

// IsEqual compares two couriers for equality based on their unique identifiers.
func (c *Courier) IsEqual(other *Courier) bool {
	if other == nil {
		return false
	}
	return c.id.IsEqual(other.id)
}

// Validate checks if the Courier was properly constructed using the NewCourier constructor.
// The zero value of Courier is invalid and will fail this validation.
func (c *Courier) Validate() error {
	if c == nil {
		return ErrCourierIsNotConstructed
	}
	return c.guard.Validate(ErrCourierIsNotConstructed)
}

func (c *Courier) ID() kernel.UUID {
	return c.id
}

func (c *Courier) Name() string {
	return c.name
}

func (c *Courier) Status() Status {
	return c.status
}

func (c *Courier) Availability() Availability {
	return c.availability
}

func (c *Courier) Mode() ServiceMode {
	return c.mode
}

// TeamVendorID returns the vendor whose private team the courier belongs to,
// or nil for independent couriers.
func (c *Courier) TeamVendorID() *kernel.UUID {
	if c.teamVendorID == nil {
		return nil
	}
	id := *c.teamVendorID
	return &id
}

func (c *Courier) LastSeenAt() *time.Time {
	if c.lastSeenAt == nil {
		return nil
	}
	seen := *c.lastSeenAt
	return &seen
}

// IsIndependent reports whether the courier belongs to the shared pool.
func (c *Courier) IsIndependent() bool {
	return c.teamVendorID == nil
}

// IsTeamMemberOf reports whether the courier is in vendorID's private team.
func (c *Courier) IsTeamMemberOf(vendorID kernel.UUID) bool {
	return c.teamVendorID != nil && c.teamVendorID.IsEqual(vendorID)
}

// CanServe reports whether the courier may be offered an order of the given
// category right now: Active, Online and in a matching service mode.
//
// Example:
//
//	if c.CanServe(order.CategoryRide) {
//	    candidates = append(candidates, c.ID())
//	}
func (c *Courier) CanServe(category order.Category) bool {
	return c.status == StatusActive && c.availability == Online && c.mode.Covers(category)
}

// GoOnline makes the courier available for dispatch.
//
// Returns:
//   - error: ErrCourierNotActive if the account is suspended or inactive
func (c *Courier) GoOnline(now time.Time) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.status != StatusActive {
		return fmt.Errorf("%w: courier is %s", ErrCourierNotActive, c.status)
	}
	c.availability = Online
	c.lastSeenAt = &now
	return nil
}

// GoOffline removes the courier from dispatch. Requests already sent stay
// open until they expire.
func (c *Courier) GoOffline(now time.Time) error {
	if err := c.Validate(); err != nil {
		return err
	}
	c.availability = Offline
	c.lastSeenAt = &now
	return nil
}

// ChangeStatus applies an admin decision on the account. Any status other
// than Active also takes the courier offline.
func (c *Courier) ChangeStatus(status Status) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := status.Validate(); err != nil {
		return err
	}
	c.status = status
	if status != StatusActive {
		c.availability = Offline
	}
	return nil
}

// ChangeMode switches the kind of work the courier accepts.
func (c *Courier) ChangeMode(mode ServiceMode) error {
	if err := c.Validate(); err != nil {
		return err
	}
	return c.setMode(mode)
}

func (c *Courier) setID(id kernel.UUID) error {
	if err := id.Validate(); err != nil {
		return err
	}
	c.id = id
	return nil
}

func (c *Courier) setName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrNameIsRequired
	}
	c.name = name
	return nil
}

func (c *Courier) setMode(mode ServiceMode) error {
	if err := mode.Validate(); err != nil {
		return err
	}
	c.mode = mode
	return nil
}

func (c *Courier) setTeam(teamVendorID *kernel.UUID) error {
	if teamVendorID == nil {
		c.teamVendorID = nil
		return nil
	}
	if err := teamVendorID.Validate(); err != nil {
		return errs.NewValueIsInvalidErrorWithCause("team vendor", err)
	}
	id := *teamVendorID
	c.teamVendorID = &id
	return nil
}
