package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/velara-labs/cryptomart-backend/pkg/enums"
)

// Dispute is the buyer-opened challenge on an order. Once a resolution is
// written the row is immutable.
type Dispute struct {
	ID         uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID    uuid.UUID                `gorm:"column:order_id;type:uuid;not null;uniqueIndex:ux_disputes_order"`
	OpenedBy   uuid.UUID                `gorm:"column:opened_by;type:uuid;not null"`
	Reason     string                   `gorm:"column:reason;not null"`
	Status     enums.DisputeStatus      `gorm:"column:status;type:dispute_status;not null;default:'open'"`
	Resolution *enums.DisputeResolution `gorm:"column:resolution;type:dispute_resolution"`
	BuyerShare *decimal.Decimal         `gorm:"column:buyer_share;type:numeric(5,4)"`
	AdminNotes *string                  `gorm:"column:admin_notes"`
	ReviewedBy *uuid.UUID               `gorm:"column:reviewed_by;type:uuid"`
	ReviewedAt *time.Time               `gorm:"column:reviewed_at"`
	CreatedAt  time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}

// IsResolved reports whether an admin decision has already been recorded.
func (d Dispute) IsResolved() bool {
	return d.Resolution != nil
}
