package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/velara-labs/cryptomart-backend/pkg/enums"
)

// Order represents a digital-goods purchase settled in cryptocurrency.
type Order struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BuyerID       uuid.UUID           `gorm:"column:buyer_id;type:uuid;not null"`
	VendorID      uuid.UUID           `gorm:"column:vendor_id;type:uuid;not null"`
	ProductID     uuid.UUID           `gorm:"column:product_id;type:uuid;not null"`
	Quantity      int                 `gorm:"column:quantity;not null;default:1"`
	UnitPrice     decimal.Decimal     `gorm:"column:unit_price;type:numeric(24,12);not null"`
	TotalAmount   decimal.Decimal     `gorm:"column:total_amount;type:numeric(24,12);not null"`
	Currency      enums.Currency      `gorm:"column:currency;type:text;not null;default:'BTC'"`
	Status        enums.OrderStatus   `gorm:"column:status;type:order_status;not null;default:'pending_payment'"`
	PaymentStatus enums.PaymentStatus `gorm:"column:payment_status;type:payment_status;not null;default:'unpaid'"`
	UseEscrow     bool                `gorm:"column:use_escrow;not null;default:true"`
	EscrowFee     decimal.Decimal     `gorm:"column:escrow_fee;type:numeric(24,12);not null;default:0"`

	DisputeOpened   bool       `gorm:"column:dispute_opened;not null;default:false"`
	DisputeReason   *string    `gorm:"column:dispute_reason"`
	DisputeOpenedAt *time.Time `gorm:"column:dispute_opened_at"`

	ConfirmedAt      *time.Time `gorm:"column:confirmed_at"`
	PaymentExpiresAt *time.Time `gorm:"column:payment_expires_at"`
	DeliveredAt      *time.Time `gorm:"column:delivered_at"`
	CancelledAt      *time.Time `gorm:"column:cancelled_at"`
	RefundedAt       *time.Time `gorm:"column:refunded_at"`

	Version int `gorm:"column:version;not null;default:1"`

	EscrowHold *EscrowHold `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Dispute    *Dispute    `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
