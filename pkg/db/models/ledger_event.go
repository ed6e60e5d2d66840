package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/velara-labs/cryptomart-backend/pkg/enums"
)

// LedgerEvent records an immutable money-movement event tied to an escrow hold.
type LedgerEvent struct {
	ID          uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID     uuid.UUID             `gorm:"column:order_id;type:uuid;not null"`
	HoldID      uuid.UUID             `gorm:"column:hold_id;type:uuid;not null"`
	ActorUserID uuid.UUID             `gorm:"column:actor_user_id;type:uuid;not null"`
	Type        enums.LedgerEventType `gorm:"column:type;type:ledger_event_type;not null"`
	Amount      decimal.Decimal       `gorm:"column:amount;type:numeric(24,12);not null"`
	Currency    enums.Currency        `gorm:"column:currency;type:text;not null"`
	Metadata    json.RawMessage       `gorm:"column:metadata;type:jsonb"`
	CreatedAt   time.Time             `gorm:"column:created_at;autoCreateTime"`
}
