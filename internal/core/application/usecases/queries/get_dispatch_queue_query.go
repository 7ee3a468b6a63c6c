package queries

import (
	"context"
	"errors"
	"time"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/pkg/guard"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrGetDispatchQueueQueryIsNotConstructed = errors.New(
		"GetDispatchQueueQuery must be created via NewGetDispatchQueueQuery constructor",
	)
)

// GetDispatchQueueQuery lists orders whose dispatch ran out of rounds without
// a courier. Admins work this queue by assigning manually or reopening.
type GetDispatchQueueQuery struct {
	guard guard.ConstructorGuard
}

func NewGetDispatchQueueQuery() GetDispatchQueueQuery {
	return GetDispatchQueueQuery{guard: guard.NewConstructorGuard()}
}

func (q GetDispatchQueueQuery) Validate() error {
	return q.guard.Validate(ErrGetDispatchQueueQueryIsNotConstructed)
}

type GetDispatchQueueQueryResponse struct {
	ID          kernel.UUID
	VendorID    kernel.UUID
	Category    order.Category
	Status      order.Status
	Rounds      int
	ExhaustedAt time.Time
}

type GetDispatchQueueQueryHandler struct {
	db *gorm.DB
}

func NewGetDispatchQueueQueryHandler(db *gorm.DB) GetDispatchQueueQueryHandler {
	return GetDispatchQueueQueryHandler{db: db}
}

// Handle returns the queue longest-waiting first. It reads the dispatch JSON
// column with Postgres operators.
func (h GetDispatchQueueQueryHandler) Handle(
	ctx context.Context,
	query GetDispatchQueueQuery,
) ([]GetDispatchQueueQueryResponse, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	rows, err := h.db.WithContext(ctx).Raw(`
		SELECT
			id,
			vendor_id,
			category,
			status,
			COALESCE((dispatch->>'round')::int, 0),
			(dispatch->>'exhaustedAt')::timestamptz AS exhausted_at
		FROM orders
		WHERE NOT terminal
			AND assigned_courier_id IS NULL
			AND dispatch->>'exhaustedAt' IS NOT NULL
		ORDER BY exhausted_at, id
	`).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	queue := make([]GetDispatchQueueQueryResponse, 0)
	for rows.Next() {
		var (
			resp             GetDispatchQueueQueryResponse
			id, vendorID     uuid.UUID
			category, status string
		)
		if err = rows.Scan(&id, &vendorID, &category, &status, &resp.Rounds, &resp.ExhaustedAt); err != nil {
			return nil, err
		}

		var idErr, vendorErr, categoryErr, statusErr error
		resp.ID, idErr = kernel.UUIDFromBytes(id[:])
		resp.VendorID, vendorErr = kernel.UUIDFromBytes(vendorID[:])
		resp.Category, categoryErr = order.ParseCategory(category)
		resp.Status, statusErr = order.ParseStatus(status)
		if err = errors.Join(idErr, vendorErr, categoryErr, statusErr); err != nil {
			return nil, err
		}
		resp.ExhaustedAt = resp.ExhaustedAt.In(time.UTC)

		queue = append(queue, resp)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return queue, nil
}
