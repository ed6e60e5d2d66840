package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/velara-labs/cryptomart-backend/pkg/enums"
)

// Listing is a vendor-submitted product awaiting moderation before it appears
// in the public catalog.
type Listing struct {
	ID              uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VendorID        uuid.UUID              `gorm:"column:vendor_id;type:uuid;not null"`
	Title           string                 `gorm:"column:title;not null"`
	Description     string                 `gorm:"column:description;not null;default:''"`
	Price           decimal.Decimal        `gorm:"column:price;type:numeric(24,12);not null"`
	Currency        enums.Currency         `gorm:"column:currency;type:text;not null;default:'BTC'"`
	Status          enums.ModerationStatus `gorm:"column:status;type:moderation_status;not null;default:'pending'"`
	AdminNotes      *string                `gorm:"column:admin_notes"`
	RejectionReason *string                `gorm:"column:rejection_reason"`
	ReviewedBy      *uuid.UUID             `gorm:"column:reviewed_by;type:uuid"`
	ReviewedAt      *time.Time             `gorm:"column:reviewed_at"`
	Version         int                    `gorm:"column:version;not null;default:1"`
	CreatedAt       time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}
