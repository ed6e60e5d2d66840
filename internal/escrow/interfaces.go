package escrow

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/velara-labs/cryptomart-backend/pkg/db/models"
)

// Repository defines persistence operations for escrow holds and the ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateHold(ctx context.Context, hold *models.EscrowHold) (*models.EscrowHold, error)
	FindHoldByOrder(ctx context.Context, orderID uuid.UUID) (*models.EscrowHold, error)
	FindHoldByOrderForUpdate(ctx context.Context, orderID uuid.UUID) (*models.EscrowHold, error)
	UpdateHold(ctx context.Context, holdID uuid.UUID, updates map[string]any) error
	InsertLedgerEvent(ctx context.Context, event *models.LedgerEvent) error
	ListLedgerEventsByOrder(ctx context.Context, orderID uuid.UUID) ([]models.LedgerEvent, error)
}
