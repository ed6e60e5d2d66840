package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/velara-labs/cryptomart-backend/pkg/enums"
)

// EscrowHold tracks the funds locked against a single order until release or refund.
// ReleasedAmount + RefundedAmount never exceeds Amount.
type EscrowHold struct {
	ID             uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        uuid.UUID              `gorm:"column:order_id;type:uuid;not null;uniqueIndex:ux_escrow_holds_order"`
	Amount         decimal.Decimal        `gorm:"column:amount;type:numeric(24,12);not null"`
	Currency       enums.Currency         `gorm:"column:currency;type:text;not null"`
	Status         enums.EscrowHoldStatus `gorm:"column:status;type:escrow_hold_status;not null;default:'held'"`
	ReleasedAmount decimal.Decimal        `gorm:"column:released_amount;type:numeric(24,12);not null;default:0"`
	RefundedAmount decimal.Decimal        `gorm:"column:refunded_amount;type:numeric(24,12);not null;default:0"`
	ReleasedAt     *time.Time             `gorm:"column:released_at"`
	RefundedAt     *time.Time             `gorm:"column:refunded_at"`
	CreatedAt      time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

// Remaining returns the portion of the hold that has not been disbursed yet.
func (h EscrowHold) Remaining() decimal.Decimal {
	return h.Amount.Sub(h.ReleasedAmount).Sub(h.RefundedAmount)
}
