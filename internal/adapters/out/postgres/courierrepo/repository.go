package courierrepo

import (
	"context"
	"errors"

	"orderflow/internal/core/domain/model/courier"
	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/ports"
	"orderflow/internal/pkg/errs"

	"gorm.io/gorm"
)

var _ ports.CourierRepository = (*Repository)(nil)

// Repository implements ports.CourierRepository using GORM.
type Repository struct {
	db    *gorm.DB
	clock ports.Clock
}

func NewRepository(db *gorm.DB, clock ports.Clock) *Repository {
	return &Repository{db: db, clock: clock}
}

func (r *Repository) Add(ctx context.Context, c *courier.Courier) error {
	if err := c.Validate(); err != nil {
		return err
	}

	dto := fromDomain(c)
	dto.CreatedAt = r.clock.Now()
	dto.UpdatedAt = dto.CreatedAt
	return r.db.WithContext(ctx).Create(&dto).Error
}

func (r *Repository) Update(ctx context.Context, c *courier.Courier) error {
	if err := c.Validate(); err != nil {
		return err
	}

	dto := fromDomain(c)
	dto.UpdatedAt = r.clock.Now()
	result := r.db.WithContext(ctx).Model(&CourierDTO{}).
		Where("id = ?", dto.ID).
		Select("*").
		Omit("id", "created_at").
		Updates(&dto)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errs.NewObjectNotFoundError("courier", c.ID())
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, id kernel.UUID) (*courier.Courier, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}

	var dto CourierDTO
	if err := r.db.WithContext(ctx).First(&dto, "id = ?", id.Bytes()).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NewObjectNotFoundError("courier", id)
		}
		return nil, err
	}

	return toDomain(dto)
}

// ListAvailable returns Active, Online couriers serving mode, oldest first.
//
// Example:
//
//	riders, err := repo.ListAvailable(ctx, courier.ModeRide)
//	if err != nil {
//		return fmt.Errorf("list riders: %w", err)
//	}
func (r *Repository) ListAvailable(ctx context.Context, mode courier.ServiceMode) ([]*courier.Courier, error) {
	if err := mode.Validate(); err != nil {
		return nil, err
	}

	modes := []string{mode.String()}
	if mode != courier.ModeBoth {
		modes = append(modes, courier.ModeBoth.String())
	}

	var dtos []CourierDTO
	if err := r.db.WithContext(ctx).
		Where("status = ? AND availability = ?", courier.StatusActive.String(), courier.Online.String()).
		Where("mode IN ?", modes).
		Order("created_at, id").
		Find(&dtos).Error; err != nil {
		return nil, err
	}

	couriers := make([]*courier.Courier, 0, len(dtos))
	for _, dto := range dtos {
		c, err := toDomain(dto)
		if err != nil {
			return nil, err
		}
		couriers = append(couriers, c)
	}

	return couriers, nil
}
