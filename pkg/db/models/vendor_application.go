package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/velara-labs/cryptomart-backend/pkg/enums"
)

// VendorApplication is a prospective vendor's request to sell on the
// marketplace, reviewed through the shared moderation workflow.
type VendorApplication struct {
	ID              uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ApplicantID     uuid.UUID              `gorm:"column:applicant_id;type:uuid;not null"`
	ShopName        string                 `gorm:"column:shop_name;not null"`
	Pitch           string                 `gorm:"column:pitch;not null;default:''"`
	Status          enums.ModerationStatus `gorm:"column:status;type:moderation_status;not null;default:'pending'"`
	AdminNotes      *string                `gorm:"column:admin_notes"`
	RejectionReason *string                `gorm:"column:rejection_reason"`
	ReviewedBy      *uuid.UUID             `gorm:"column:reviewed_by;type:uuid"`
	ReviewedAt      *time.Time             `gorm:"column:reviewed_at"`
	Version         int                    `gorm:"column:version;not null;default:1"`
	CreatedAt       time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}
