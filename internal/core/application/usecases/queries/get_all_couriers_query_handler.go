package queries

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"orderflow/internal/core/domain/model/courier"
	"orderflow/internal/core/domain/model/kernel"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GetAllCouriersQueryHandler reads the couriers table directly.
type GetAllCouriersQueryHandler struct {
	db *gorm.DB
}

func NewGetAllCouriersQueryHandler(db *gorm.DB) GetAllCouriersQueryHandler {
	return GetAllCouriersQueryHandler{db: db}
}

// Handle returns couriers sorted by name.
func (h GetAllCouriersQueryHandler) Handle(
	ctx context.Context,
	query GetAllCouriersQuery,
) ([]GetAllCouriersQueryResponse, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	q := h.db.WithContext(ctx).
		Table("couriers").
		Select("id, name, status, availability, mode, team_vendor_id, last_seen_at").
		Order("name, id")
	if query.OnlineOnly() {
		q = q.Where("status = ? AND availability = ?", courier.StatusActive.String(), courier.Online.String())
	}

	rows, err := q.Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	couriers := make([]GetAllCouriersQueryResponse, 0)
	for rows.Next() {
		var (
			resp                       GetAllCouriersQueryResponse
			id                         uuid.UUID
			team                       uuid.NullUUID
			status, availability, mode string
			lastSeen                   sql.NullTime
		)
		if err = rows.Scan(&id, &resp.Name, &status, &availability, &mode, &team, &lastSeen); err != nil {
			return nil, err
		}

		if resp.ID, err = kernel.UUIDFromBytes(id[:]); err != nil {
			return nil, err
		}
		if team.Valid {
			vendorID, teamErr := kernel.UUIDFromBytes(team.UUID[:])
			if teamErr != nil {
				return nil, teamErr
			}
			resp.TeamVendorID = &vendorID
		}
		if lastSeen.Valid {
			at := lastSeen.Time.In(time.UTC)
			resp.LastSeenAt = &at
		}

		var statusErr, availabilityErr, modeErr error
		resp.Status, statusErr = courier.ParseStatus(status)
		resp.Availability, availabilityErr = courier.ParseAvailability(availability)
		resp.Mode, modeErr = courier.ParseServiceMode(mode)
		if err = errors.Join(statusErr, availabilityErr, modeErr); err != nil {
			return nil, err
		}

		couriers = append(couriers, resp)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return couriers, nil
}
