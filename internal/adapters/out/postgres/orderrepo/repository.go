package orderrepo

import (
	"context"
	"errors"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/core/ports"
	"orderflow/internal/pkg/errs"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var _ ports.OrderStore = (*Repository)(nil)

// Repository implements ports.OrderStore on GORM. The version column guards
// every update: a write only lands if the row still has the version the
// caller read.
//
// On Postgres each commit also sends NOTIFY on ChangeChannel so subscribers on
// other instances see it through ListenForChanges. On other dialects
// subscribers are fed in-process after commit.
type Repository struct {
	db    *gorm.DB
	clock ports.Clock
	feed  *feed
}

func NewRepository(db *gorm.DB, clock ports.Clock) *Repository {
	return &Repository{db: db, clock: clock, feed: newFeed()}
}

func (r *Repository) Get(ctx context.Context, id kernel.UUID) (*order.Order, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}

	var dto OrderDTO
	if err := withChildren(r.db.WithContext(ctx)).First(&dto, "id = ?", id.Bytes()).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NewObjectNotFoundError("order", id)
		}
		return nil, err
	}

	return toDomain(dto)
}

func (r *Repository) Create(ctx context.Context, o *order.Order) error {
	if err := o.Validate(); err != nil {
		return err
	}

	dto := fromDomain(o.State())
	dto.Version = 1
	dto.UpdatedAt = r.clock.Now()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&OrderDTO{}).Where("id = ?", dto.ID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return errs.NewVersionConflictError("order", o.ID(), 0)
		}
		if err := tx.Create(&dto).Error; err != nil {
			return err
		}
		return r.notify(tx, o.ID())
	})
	if err != nil {
		return err
	}

	o.MarkCommitted(1)
	r.publishLocal(o)
	return nil
}

func (r *Repository) CompareAndSwap(ctx context.Context, o *order.Order, expectedVersion int64) error {
	if err := o.Validate(); err != nil {
		return err
	}

	dto := fromDomain(o.State())
	dto.Version = expectedVersion + 1
	dto.UpdatedAt = r.clock.Now()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&OrderDTO{}).
			Where("id = ? AND version = ?", dto.ID, expectedVersion).
			Select("*").
			Omit(clause.Associations, "id", "created_at").
			Updates(&dto)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&OrderDTO{}).Where("id = ?", dto.ID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return errs.NewObjectNotFoundError("order", o.ID())
			}
			return errs.NewVersionConflictError("order", o.ID(), expectedVersion)
		}

		// History rows are never rewritten, only appended.
		if len(dto.History) > 0 {
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&dto.History).Error; err != nil {
				return err
			}
		}
		if len(dto.Requests) > 0 {
			upsert := clause.OnConflict{
				Columns:   []clause.Column{{Name: "order_id"}, {Name: "seq"}},
				UpdateAll: true,
			}
			if err := tx.Clauses(upsert).Create(&dto.Requests).Error; err != nil {
				return err
			}
		}
		return r.notify(tx, o.ID())
	})
	if err != nil {
		return err
	}

	o.MarkCommitted(dto.Version)
	r.publishLocal(o)
	return nil
}

func (r *Repository) ListNonTerminal(ctx context.Context, after *kernel.UUID, limit int) ([]*order.Order, error) {
	q := withChildren(r.db.WithContext(ctx)).Where("terminal = ?", false).Order("id")
	if after != nil {
		q = q.Where("id > ?", after.Bytes())
	}
	if limit > 0 {
		q = q.Limit(limit)
	}

	var dtos []OrderDTO
	if err := q.Find(&dtos).Error; err != nil {
		return nil, err
	}

	orders := make([]*order.Order, 0, len(dtos))
	for _, dto := range dtos {
		o, err := toDomain(dto)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}

	return orders, nil
}

// Subscribe only sees changes from other instances while ListenForChanges runs.
func (r *Repository) Subscribe(ctx context.Context, filter ports.OrderFilter) (<-chan *order.Order, error) {
	return r.feed.subscribe(ctx, filter), nil
}

func (r *Repository) isPostgres() bool {
	return r.db.Dialector.Name() == "postgres"
}

func (r *Repository) notify(tx *gorm.DB, id kernel.UUID) error {
	if !r.isPostgres() {
		return nil
	}
	return tx.Exec("SELECT pg_notify(?, ?)", ChangeChannel, id.String()).Error
}

func (r *Repository) publishLocal(o *order.Order) {
	if r.isPostgres() {
		return
	}
	r.feed.publish(o)
}

func withChildren(db *gorm.DB) *gorm.DB {
	bySeq := func(db *gorm.DB) *gorm.DB { return db.Order("seq") }
	return db.Preload("History", bySeq).Preload("Requests", bySeq)
}
