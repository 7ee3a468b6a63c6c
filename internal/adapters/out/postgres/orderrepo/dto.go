// Package orderrepo persists order aggregates in Postgres.
//
// Scalar fields live in columns of the orders table. The status history and
// the delivery request ledger get their own tables keyed by (order_id, seq).
// Nested value objects that are always read with the order are stored as JSON.
package orderrepo

import (
	"errors"
	"fmt"
	"time"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"

	"github.com/google/uuid"
)

// OrderDTO represents a row of the orders table.
type OrderDTO struct {
	ID                  uuid.UUID  `gorm:"type:uuid;primaryKey"`
	CustomerID          uuid.UUID  `gorm:"type:uuid;index;not null"`
	VendorID            uuid.UUID  `gorm:"type:uuid;index;not null"`
	Category            string     `gorm:"type:varchar(16);not null"`
	Status              string     `gorm:"type:varchar(32);not null"`
	Terminal            bool       `gorm:"not null;index"`
	PaymentMethod       string     `gorm:"type:varchar(16);not null"`
	RequiresDelivery    bool       `gorm:"not null"`
	Currency            string     `gorm:"type:char(3);not null"`
	TotalMinor          int64      `gorm:"not null"`
	DeliveryFeeMinor    int64      `gorm:"not null"`
	AssignedCourierID   *uuid.UUID `gorm:"type:uuid;index"`
	PickupCode          string     `gorm:"type:varchar(4)"`
	DeliveryCode        string     `gorm:"type:varchar(4)"`
	PickedUpAt          *time.Time
	DeliveryConfirmedAt *time.Time
	ReviewExtendedUntil *time.Time

	Items          []ItemDTO          `gorm:"serializer:json;not null"`
	Dispatch       DispatchDTO        `gorm:"serializer:json;not null"`
	Refund         *RefundDTO         `gorm:"serializer:json"`
	DriverLocation *DriverLocationDTO `gorm:"serializer:json"`
	Cancellation   *CancellationDTO   `gorm:"serializer:json"`
	RuleNotices    []RuleNoticeDTO    `gorm:"serializer:json"`

	CreatedAt time.Time `gorm:"autoCreateTime:false"`
	UpdatedAt time.Time `gorm:"autoUpdateTime:false"`
	Version   int64     `gorm:"not null"`

	History  []StatusEntryDTO     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Requests []DeliveryRequestDTO `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

func (OrderDTO) TableName() string {
	return "orders"
}

// StatusEntryDTO is one row of the append-only status history.
type StatusEntryDTO struct {
	OrderID   uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Seq       int        `gorm:"primaryKey;autoIncrement:false"`
	Status    string     `gorm:"type:varchar(32);not null"`
	At        time.Time  `gorm:"not null"`
	ActorRole string     `gorm:"type:varchar(16);not null"`
	ActorID   *uuid.UUID `gorm:"type:uuid"`
	Reason    string
}

func (StatusEntryDTO) TableName() string {
	return "order_status_history"
}

// DeliveryRequestDTO is one row of the delivery request ledger.
type DeliveryRequestDTO struct {
	OrderID      uuid.UUID `gorm:"type:uuid;primaryKey"`
	Seq          int       `gorm:"primaryKey;autoIncrement:false"`
	CourierID    uuid.UUID `gorm:"type:uuid;not null;index"`
	Status       string    `gorm:"type:varchar(16);not null"`
	Round        int       `gorm:"not null"`
	RequestedAt  time.Time `gorm:"not null"`
	ExpiresAt    time.Time `gorm:"not null"`
	RespondedAt  *time.Time
	ClosedAt     *time.Time
	ClosedReason string `gorm:"type:varchar(16)"`
}

func (DeliveryRequestDTO) TableName() string {
	return "delivery_requests"
}

type ItemDTO struct {
	SKU       string `json:"sku"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitMinor int64  `json:"unitMinor"`
}

type DispatchDTO struct {
	StartedAt     *time.Time `json:"startedAt,omitempty"`
	Round         int        `json:"round"`
	Scope         string     `json:"scope,omitempty"`
	RoundDeadline *time.Time `json:"roundDeadline,omitempty"`
	ExhaustedAt   *time.Time `json:"exhaustedAt,omitempty"`
}

type RefundDTO struct {
	Status              string     `json:"status"`
	Vendor              string     `json:"vendor"`
	Admin               string     `json:"admin"`
	Reason              string     `json:"reason"`
	AmountMinor         int64      `json:"amountMinor"`
	RequestedAt         time.Time  `json:"requestedAt"`
	RequestedBy         string     `json:"requestedBy"`
	DecidedAt           *time.Time `json:"decidedAt,omitempty"`
	SettledAt           *time.Time `json:"settledAt,omitempty"`
	SettlementAttempts  int        `json:"settlementAttempts"`
	LastSettlementError string     `json:"lastSettlementError,omitempty"`
}

type DriverLocationDTO struct {
	Latitude  float64   `json:"lat"`
	Longitude float64   `json:"lng"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type CancellationDTO struct {
	By      string     `json:"by"`
	ActorID *uuid.UUID `json:"actorId,omitempty"`
	Reason  string     `json:"reason"`
	At      time.Time  `json:"at"`
}

type RuleNoticeDTO struct {
	Rule        string    `json:"rule"`
	StatusSince time.Time `json:"statusSince"`
}

// fromDomain maps a snapshot to its rows. All money of an order shares the
// order's currency.
func fromDomain(s order.State) OrderDTO {
	id := s.ID.Bytes()
	dto := OrderDTO{
		ID:                  id,
		CustomerID:          s.CustomerID.Bytes(),
		VendorID:            s.VendorID.Bytes(),
		Category:            s.Category.String(),
		Status:              s.Status.String(),
		Terminal:            s.Status.IsTerminal(),
		PaymentMethod:       s.PaymentMethod.String(),
		RequiresDelivery:    s.RequiresDelivery,
		Currency:            s.Total.Currency(),
		TotalMinor:          s.Total.Amount(),
		DeliveryFeeMinor:    s.DeliveryFee.Amount(),
		AssignedCourierID:   toRaw(s.AssignedCourierID),
		PickupCode:          s.PickupCode,
		DeliveryCode:        s.DeliveryCode,
		PickedUpAt:          s.PickedUpAt,
		DeliveryConfirmedAt: s.DeliveryConfirmedAt,
		ReviewExtendedUntil: s.ReviewExtendedUntil,
		Dispatch: DispatchDTO{
			StartedAt:     s.Dispatch.StartedAt,
			Round:         s.Dispatch.Round,
			Scope:         string(s.Dispatch.Scope),
			RoundDeadline: s.Dispatch.RoundDeadline,
			ExhaustedAt:   s.Dispatch.ExhaustedAt,
		},
		CreatedAt: s.CreatedAt,
		Version:   s.Version,
	}

	dto.Items = make([]ItemDTO, 0, len(s.Items))
	for _, it := range s.Items {
		dto.Items = append(dto.Items, ItemDTO{SKU: it.SKU, Name: it.Name, Quantity: it.Quantity, UnitMinor: it.UnitPrice.Amount()})
	}

	if r := s.Refund; r != nil {
		dto.Refund = &RefundDTO{
			Status:              r.Status.String(),
			Vendor:              r.Vendor.String(),
			Admin:               r.Admin.String(),
			Reason:              r.Reason,
			AmountMinor:         r.Amount.Amount(),
			RequestedAt:         r.RequestedAt,
			RequestedBy:         r.RequestedBy.String(),
			DecidedAt:           r.DecidedAt,
			SettledAt:           r.SettledAt,
			SettlementAttempts:  r.SettlementAttempts,
			LastSettlementError: r.LastSettlementError,
		}
	}
	if l := s.DriverLocation; l != nil {
		dto.DriverLocation = &DriverLocationDTO{
			Latitude:  l.Location.Latitude(),
			Longitude: l.Location.Longitude(),
			UpdatedAt: l.UpdatedAt,
		}
	}
	if c := s.Cancellation; c != nil {
		dto.Cancellation = &CancellationDTO{By: c.By.String(), ActorID: toRaw(c.ActorID), Reason: c.Reason, At: c.At}
	}
	for _, n := range s.RuleNotices {
		dto.RuleNotices = append(dto.RuleNotices, RuleNoticeDTO{Rule: n.Rule, StatusSince: n.StatusSince})
	}

	dto.History = make([]StatusEntryDTO, 0, len(s.History))
	for i, h := range s.History {
		dto.History = append(dto.History, StatusEntryDTO{
			OrderID:   id,
			Seq:       i,
			Status:    h.Status.String(),
			At:        h.At,
			ActorRole: h.ActorRole.String(),
			ActorID:   toRaw(h.ActorID),
			Reason:    h.Reason,
		})
	}

	dto.Requests = make([]DeliveryRequestDTO, 0, len(s.Requests))
	for i, r := range s.Requests {
		dto.Requests = append(dto.Requests, DeliveryRequestDTO{
			OrderID:      id,
			Seq:          i,
			CourierID:    r.CourierID.Bytes(),
			Status:       r.Status.String(),
			Round:        r.Round,
			RequestedAt:  r.RequestedAt,
			ExpiresAt:    r.ExpiresAt,
			RespondedAt:  r.RespondedAt,
			ClosedAt:     r.ClosedAt,
			ClosedReason: string(r.ClosedReason),
		})
	}

	return dto
}

// toDomain rebuilds the aggregate. History and Requests must be sorted by Seq.
func toDomain(dto OrderDTO) (*order.Order, error) {
	var (
		s   order.State
		err error
	)

	s.ID, err = kernel.UUIDFromBytes(dto.ID[:])
	if err != nil {
		return nil, err
	}
	s.CustomerID, err = kernel.UUIDFromBytes(dto.CustomerID[:])
	if err != nil {
		return nil, err
	}
	s.VendorID, err = kernel.UUIDFromBytes(dto.VendorID[:])
	if err != nil {
		return nil, err
	}
	if s.Category, err = order.ParseCategory(dto.Category); err != nil {
		return nil, err
	}
	if s.Status, err = order.ParseStatus(dto.Status); err != nil {
		return nil, err
	}
	if s.PaymentMethod, err = order.ParsePaymentMethod(dto.PaymentMethod); err != nil {
		return nil, err
	}
	money := func(minor int64) (kernel.Money, error) {
		return kernel.NewMoney(minor, dto.Currency)
	}
	if s.Total, err = money(dto.TotalMinor); err != nil {
		return nil, err
	}
	if s.DeliveryFee, err = money(dto.DeliveryFeeMinor); err != nil {
		return nil, err
	}
	if s.AssignedCourierID, err = fromRaw(dto.AssignedCourierID); err != nil {
		return nil, err
	}

	s.RequiresDelivery = dto.RequiresDelivery
	s.CreatedAt = dto.CreatedAt
	s.PickupCode = dto.PickupCode
	s.DeliveryCode = dto.DeliveryCode
	s.PickedUpAt = dto.PickedUpAt
	s.DeliveryConfirmedAt = dto.DeliveryConfirmedAt
	s.ReviewExtendedUntil = dto.ReviewExtendedUntil
	s.Version = dto.Version
	s.Dispatch = order.DispatchState{
		StartedAt:     dto.Dispatch.StartedAt,
		Round:         dto.Dispatch.Round,
		Scope:         order.Scope(dto.Dispatch.Scope),
		RoundDeadline: dto.Dispatch.RoundDeadline,
		ExhaustedAt:   dto.Dispatch.ExhaustedAt,
	}

	for _, it := range dto.Items {
		price, priceErr := money(it.UnitMinor)
		if priceErr != nil {
			return nil, fmt.Errorf("item %s: %w", it.SKU, priceErr)
		}
		s.Items = append(s.Items, order.Item{SKU: it.SKU, Name: it.Name, Quantity: it.Quantity, UnitPrice: price})
	}

	if s.Refund, err = refundToDomain(dto.Refund, money); err != nil {
		return nil, err
	}
	if l := dto.DriverLocation; l != nil {
		loc, locErr := kernel.NewLocation(l.Latitude, l.Longitude)
		if locErr != nil {
			return nil, locErr
		}
		s.DriverLocation = &order.DriverLocation{Location: loc, UpdatedAt: l.UpdatedAt}
	}
	if c := dto.Cancellation; c != nil {
		by, roleErr := order.ParseRole(c.By)
		actorID, idErr := fromRaw(c.ActorID)
		if err = errors.Join(roleErr, idErr); err != nil {
			return nil, err
		}
		s.Cancellation = &order.Cancellation{By: by, ActorID: actorID, Reason: c.Reason, At: c.At}
	}
	for _, n := range dto.RuleNotices {
		s.RuleNotices = append(s.RuleNotices, order.RuleNotice{Rule: n.Rule, StatusSince: n.StatusSince})
	}

	for _, h := range dto.History {
		status, statusErr := order.ParseStatus(h.Status)
		role, roleErr := order.ParseRole(h.ActorRole)
		actorID, idErr := fromRaw(h.ActorID)
		if err = errors.Join(statusErr, roleErr, idErr); err != nil {
			return nil, fmt.Errorf("history entry %d: %w", h.Seq, err)
		}
		s.History = append(s.History, order.StatusEntry{Status: status, At: h.At, ActorRole: role, ActorID: actorID, Reason: h.Reason})
	}

	for _, r := range dto.Requests {
		courierID, idErr := kernel.UUIDFromBytes(r.CourierID[:])
		status, statusErr := order.ParseRequestStatus(r.Status)
		if err = errors.Join(idErr, statusErr); err != nil {
			return nil, fmt.Errorf("delivery request %d: %w", r.Seq, err)
		}
		s.Requests = append(s.Requests, order.DeliveryRequest{
			CourierID:    courierID,
			Status:       status,
			Round:        r.Round,
			RequestedAt:  r.RequestedAt,
			ExpiresAt:    r.ExpiresAt,
			RespondedAt:  r.RespondedAt,
			ClosedAt:     r.ClosedAt,
			ClosedReason: order.ClosedReason(r.ClosedReason),
		})
	}

	return order.Restore(s)
}

func refundToDomain(r *RefundDTO, money func(int64) (kernel.Money, error)) (*order.RefundInfo, error) {
	if r == nil {
		return nil, nil
	}
	status, statusErr := order.ParseRefundStatus(r.Status)
	vendor, vendorErr := order.ParseApproval(r.Vendor)
	admin, adminErr := order.ParseApproval(r.Admin)
	by, roleErr := order.ParseRole(r.RequestedBy)
	amount, amountErr := money(r.AmountMinor)
	if err := errors.Join(statusErr, vendorErr, adminErr, roleErr, amountErr); err != nil {
		return nil, fmt.Errorf("refund: %w", err)
	}
	return &order.RefundInfo{
		Status:              status,
		Vendor:              vendor,
		Admin:               admin,
		Reason:              r.Reason,
		Amount:              amount,
		RequestedAt:         r.RequestedAt,
		RequestedBy:         by,
		DecidedAt:           r.DecidedAt,
		SettledAt:           r.SettledAt,
		SettlementAttempts:  r.SettlementAttempts,
		LastSettlementError: r.LastSettlementError,
	}, nil
}

func toRaw(id *kernel.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	raw := id.Bytes()
	return &raw
}

func fromRaw(raw *uuid.UUID) (*kernel.UUID, error) {
	if raw == nil {
		return nil, nil
	}
	id, err := kernel.UUIDFromBytes(raw[:])
	if err != nil {
		return nil, err
	}
	return &id, nil
}
