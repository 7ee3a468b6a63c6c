package queries

import (
	"context"
	"errors"
	"time"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GetUncompletedOrdersQueryHandler reads the orders table directly.
type GetUncompletedOrdersQueryHandler struct {
	db *gorm.DB
}

func NewGetUncompletedOrdersQueryHandler(db *gorm.DB) GetUncompletedOrdersQueryHandler {
	return GetUncompletedOrdersQueryHandler{db: db}
}

// Handle returns non-terminal orders, oldest first.
func (h GetUncompletedOrdersQueryHandler) Handle(
	ctx context.Context,
	query GetUncompletedOrdersQuery,
) ([]GetUncompletedOrdersQueryResponse, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	q := h.db.WithContext(ctx).
		Table("orders").
		Select("id, vendor_id, category, status, currency, total_minor, assigned_courier_id, created_at").
		Where("terminal = ?", false).
		Order("created_at, id")
	if vendorID := query.VendorID(); vendorID != nil {
		q = q.Where("vendor_id = ?", vendorID.Bytes())
	}
	if statuses := query.Statuses(); len(statuses) > 0 {
		names := make([]string, 0, len(statuses))
		for _, s := range statuses {
			names = append(names, s.String())
		}
		q = q.Where("status IN ?", names)
	}

	rows, err := q.Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make([]GetUncompletedOrdersQueryResponse, 0)
	for rows.Next() {
		var (
			resp             GetUncompletedOrdersQueryResponse
			id, vendorID     uuid.UUID
			courierID        uuid.NullUUID
			category, status string
			currency         string
			totalMinor       int64
			createdAt        time.Time
		)
		err = rows.Scan(&id, &vendorID, &category, &status, &currency, &totalMinor, &courierID, &createdAt)
		if err != nil {
			return nil, err
		}

		var idErr, vendorErr, categoryErr, statusErr, totalErr error
		resp.ID, idErr = kernel.UUIDFromBytes(id[:])
		resp.VendorID, vendorErr = kernel.UUIDFromBytes(vendorID[:])
		resp.Category, categoryErr = order.ParseCategory(category)
		resp.Status, statusErr = order.ParseStatus(status)
		resp.Total, totalErr = kernel.NewMoney(totalMinor, currency)
		if err = errors.Join(idErr, vendorErr, categoryErr, statusErr, totalErr); err != nil {
			return nil, err
		}
		if courierID.Valid {
			assigned, courierErr := kernel.UUIDFromBytes(courierID.UUID[:])
			if courierErr != nil {
				return nil, courierErr
			}
			resp.AssignedCourierID = &assigned
		}
		resp.CreatedAt = createdAt.In(time.UTC)

		orders = append(orders, resp)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return orders, nil
}
