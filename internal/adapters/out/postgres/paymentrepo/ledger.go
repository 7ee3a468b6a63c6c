// Package paymentrepo records refund settlements so that repeating a refund
// for the same order never moves money twice.
package paymentrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/ports"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var _ ports.PaymentPort = (*Ledger)(nil)

// SettlementDTO is a row of refund_settlements. There is at most one per order.
type SettlementDTO struct {
	OrderID     uuid.UUID `gorm:"type:uuid;primaryKey"`
	Status      string    `gorm:"type:varchar(16);not null"`
	Reference   string    `gorm:"type:varchar(64);not null;default:''"`
	Reason      string    `gorm:"not null;default:''"`
	AmountMinor int64     `gorm:"not null"`
	Currency    string    `gorm:"type:char(3);not null"`
	Attempts    int       `gorm:"not null;default:0"`
	CreatedAt   time.Time `gorm:"autoCreateTime:false"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime:false"`
}

func (SettlementDTO) TableName() string {
	return "refund_settlements"
}

// statusClaimed marks a row whose provider call is running. It is never
// returned to callers.
const statusClaimed = "claimed"

// DefaultClaimTTL is how long a claim blocks other callers. A claim older than
// that is presumed abandoned by a crashed process and can be taken over.
const DefaultClaimTTL = 5 * time.Minute

// Ledger wraps a payment provider. A settled refund is answered from the
// table. Anything else is claimed first, then sent to the provider, and the
// outcome is recorded; only the caller holding the claim reaches the provider.
type Ledger struct {
	db       *gorm.DB
	provider ports.PaymentPort
	clock    ports.Clock
	claimTTL time.Duration
}

func NewLedger(db *gorm.DB, provider ports.PaymentPort, clock ports.Clock) *Ledger {
	return &Ledger{db: db, provider: provider, clock: clock, claimTTL: DefaultClaimTTL}
}

// Refund returns ports.ErrSettlementInProgress when another caller holds a
// live claim on the order.
func (l *Ledger) Refund(ctx context.Context, orderID kernel.UUID, amount kernel.Money) (ports.SettlementResult, error) {
	if err := errors.Join(orderID.Validate(), amount.Validate()); err != nil {
		return ports.SettlementResult{}, err
	}

	claimed, err := l.claim(ctx, orderID, amount)
	if err != nil {
		return ports.SettlementResult{}, err
	}
	if !claimed {
		return l.answerUnclaimed(ctx, orderID, amount)
	}

	res, err := l.provider.Refund(ctx, orderID, amount)
	// The claim must be resolved even when the caller has gone away.
	writeCtx := context.WithoutCancel(ctx)
	if err != nil {
		if relErr := l.release(writeCtx, orderID, err); relErr != nil {
			return ports.SettlementResult{}, errors.Join(err, relErr)
		}
		return ports.SettlementResult{}, err
	}

	err = l.db.WithContext(writeCtx).Model(&SettlementDTO{}).
		Where("order_id = ?", orderID.Bytes()).
		Updates(map[string]any{
			"status":     res.Status.String(),
			"reference":  res.Reference,
			"reason":     res.Reason,
			"attempts":   gorm.Expr("attempts + 1"),
			"updated_at": l.clock.Now(),
		}).Error
	if err != nil {
		return ports.SettlementResult{}, fmt.Errorf("record settlement for order %s: %w", orderID, err)
	}

	return res, nil
}

// claim reports whether this caller may call the provider. A new order gets
// a claimed row; an existing row is taken over when its last attempt did not
// settle and no live claim is held on it.
func (l *Ledger) claim(ctx context.Context, orderID kernel.UUID, amount kernel.Money) (bool, error) {
	now := l.clock.Now()
	row := SettlementDTO{
		OrderID:     orderID.Bytes(),
		Status:      statusClaimed,
		AmountMinor: amount.Amount(),
		Currency:    amount.Currency(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	res := l.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
	if res.Error != nil {
		return false, fmt.Errorf("claim settlement for order %s: %w", orderID, res.Error)
	}
	if res.RowsAffected == 1 {
		return true, nil
	}

	res = l.db.WithContext(ctx).Model(&SettlementDTO{}).
		Where("order_id = ?", orderID.Bytes()).
		Where("(status NOT IN ? OR (status = ? AND updated_at < ?))",
			[]string{ports.SettlementSettled.String(), statusClaimed}, statusClaimed, now.Add(-l.claimTTL)).
		Updates(map[string]any{
			"status":       statusClaimed,
			"amount_minor": amount.Amount(),
			"currency":     amount.Currency(),
			"updated_at":   now,
		})
	if res.Error != nil {
		return false, fmt.Errorf("claim settlement for order %s: %w", orderID, res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (l *Ledger) answerUnclaimed(ctx context.Context, orderID kernel.UUID, amount kernel.Money) (ports.SettlementResult, error) {
	prev, err := l.find(ctx, orderID)
	if err != nil {
		return ports.SettlementResult{}, err
	}
	if prev == nil || prev.Status != ports.SettlementSettled.String() {
		return ports.SettlementResult{}, fmt.Errorf("%w: order %s", ports.ErrSettlementInProgress, orderID)
	}
	if prev.AmountMinor != amount.Amount() || prev.Currency != amount.Currency() {
		return ports.SettlementResult{}, fmt.Errorf("order %s already refunded %d %s", orderID, prev.AmountMinor, prev.Currency)
	}
	return ports.SettlementResult{Status: ports.SettlementSettled, Reference: prev.Reference}, nil
}

// release gives the claim back after a provider error. The call is not
// counted as an attempt since the provider gave no answer.
func (l *Ledger) release(ctx context.Context, orderID kernel.UUID, cause error) error {
	err := l.db.WithContext(ctx).Model(&SettlementDTO{}).
		Where("order_id = ? AND status = ?", orderID.Bytes(), statusClaimed).
		Updates(map[string]any{
			"status":     ports.SettlementUnknown.String(),
			"reason":     cause.Error(),
			"updated_at": l.clock.Now(),
		}).Error
	if err != nil {
		return fmt.Errorf("release settlement claim for order %s: %w", orderID, err)
	}
	return nil
}

// Attempts returns how many provider answers were recorded for the order.
func (l *Ledger) Attempts(ctx context.Context, orderID kernel.UUID) (int, error) {
	row, err := l.find(ctx, orderID)
	if err != nil || row == nil {
		return 0, err
	}
	return row.Attempts, nil
}

func (l *Ledger) find(ctx context.Context, orderID kernel.UUID) (*SettlementDTO, error) {
	var row SettlementDTO
	err := l.db.WithContext(ctx).First(&row, "order_id = ?", orderID.Bytes()).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}
