package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/velara-labs/cryptomart-backend/pkg/enums"
)

// User is a platform account: buyer, vendor, or admin.
type User struct {
	ID           uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Email        string         `gorm:"column:email;not null;uniqueIndex:ux_users_email"`
	PasswordHash string         `gorm:"column:password_hash;not null"`
	DisplayName  string         `gorm:"column:display_name;not null;default:''"`
	Role         enums.UserRole `gorm:"column:role;type:user_role;not null;default:'buyer'"`
	LastLoginAt  *time.Time     `gorm:"column:last_login_at"`
	CreatedAt    time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
