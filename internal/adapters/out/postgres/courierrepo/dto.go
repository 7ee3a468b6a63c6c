// Package courierrepo persists courier aggregates in Postgres.
package courierrepo

import (
	"errors"
	"time"

	"orderflow/internal/core/domain/model/courier"
	"orderflow/internal/core/domain/model/kernel"

	"github.com/google/uuid"
)

// CourierDTO represents a row of the couriers table. Enums are stored by name.
type CourierDTO struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Name         string     `gorm:"type:varchar(255);not null"`
	Status       string     `gorm:"type:varchar(16);not null"`
	Availability string     `gorm:"type:varchar(16);not null"`
	Mode         string     `gorm:"type:varchar(16);not null"`
	TeamVendorID *uuid.UUID `gorm:"type:uuid;index"`
	LastSeenAt   *time.Time
	CreatedAt    time.Time `gorm:"autoCreateTime:false"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime:false"`
}

func (CourierDTO) TableName() string {
	return "couriers"
}

func fromDomain(c *courier.Courier) CourierDTO {
	dto := CourierDTO{
		ID:           c.ID().Bytes(),
		Name:         c.Name(),
		Status:       c.Status().String(),
		Availability: c.Availability().String(),
		Mode:         c.Mode().String(),
		LastSeenAt:   c.LastSeenAt(),
	}
	if team := c.TeamVendorID(); team != nil {
		raw := team.Bytes()
		dto.TeamVendorID = &raw
	}
	return dto
}

func toDomain(dto CourierDTO) (*courier.Courier, error) {
	id, err := kernel.UUIDFromBytes(dto.ID[:])
	if err != nil {
		return nil, err
	}

	var team *kernel.UUID
	if dto.TeamVendorID != nil {
		vendorID, teamErr := kernel.UUIDFromBytes(dto.TeamVendorID[:])
		if teamErr != nil {
			return nil, teamErr
		}
		team = &vendorID
	}

	status, statusErr := courier.ParseStatus(dto.Status)
	availability, availabilityErr := courier.ParseAvailability(dto.Availability)
	mode, modeErr := courier.ParseServiceMode(dto.Mode)
	if err = errors.Join(statusErr, availabilityErr, modeErr); err != nil {
		return nil, err
	}

	return courier.RestoreCourier(id, dto.Name, status, availability, mode, team, dto.LastSeenAt)
}
