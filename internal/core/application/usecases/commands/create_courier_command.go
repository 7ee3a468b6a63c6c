package commands

import (
	"errors"
	"strings"

	"orderflow/internal/core/domain/model/courier"
	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/pkg/guard"
)

var (
	ErrCreateCourierCommandIsNotConstructed = errors.New(
		"CreateCourierCommand must be created via NewCreateCourierCommand constructor",
	)
	ErrNameIsRequired = errors.New("name is required")
)

// CreateCourierCommand registers a courier. A nil team vendor puts the
// courier into the independent pool.
//
// Example:
//
//	cmd, err := NewCreateCourierCommand("Ada", courier.ModeDelivery, &vendorID)
//	if err != nil {
//	    return fmt.Errorf("invalid courier data: %w", err)
//	}
//	c, err := handler.Handle(ctx, cmd)
type CreateCourierCommand struct { //nolint:recvcheck //using for validation
	courierID    kernel.UUID
	name         string
	mode         courier.ServiceMode
	teamVendorID *kernel.UUID

	guard guard.ConstructorGuard
}

// NewCreateCourierCommand generates the courier id.
func NewCreateCourierCommand(name string, mode courier.ServiceMode, teamVendorID *kernel.UUID) (CreateCourierCommand, error) {
	command := CreateCourierCommand{
		guard: guard.NewConstructorGuard(),
	}

	if err := errors.Join(
		command.setCourierID(kernel.NewUUID()),
		command.setName(name),
		command.setMode(mode),
		command.setTeam(teamVendorID),
	); err != nil {
		return CreateCourierCommand{}, err
	}

	return command, nil
}

func (c CreateCourierCommand) Validate() error {
	return c.guard.Validate(ErrCreateCourierCommandIsNotConstructed)
}

func (c CreateCourierCommand) CourierID() kernel.UUID {
	return c.courierID
}

func (c CreateCourierCommand) Name() string {
	return c.name
}

func (c CreateCourierCommand) Mode() courier.ServiceMode {
	return c.mode
}

func (c CreateCourierCommand) TeamVendorID() *kernel.UUID {
	if c.teamVendorID == nil {
		return nil
	}
	id := *c.teamVendorID
	return &id
}

func (c *CreateCourierCommand) setCourierID(id kernel.UUID) error {
	if err := id.Validate(); err != nil {
		return err
	}

	c.courierID = id
	return nil
}

func (c *CreateCourierCommand) setName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrNameIsRequired
	}

	c.name = name
	return nil
}

func (c *CreateCourierCommand) setMode(mode courier.ServiceMode) error {
	if err := mode.Validate(); err != nil {
		return err
	}

	c.mode = mode
	return nil
}

func (c *CreateCourierCommand) setTeam(teamVendorID *kernel.UUID) error {
	if teamVendorID == nil {
		return nil
	}
	if err := teamVendorID.Validate(); err != nil {
		return err
	}

	id := *teamVendorID
	c.teamVendorID = &id
	return nil
}
