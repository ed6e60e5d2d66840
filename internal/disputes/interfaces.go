package disputes

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/velara-labs/cryptomart-backend/pkg/db/models"
	"github.com/velara-labs/cryptomart-backend/pkg/pagination"
)

// Repository defines persistence operations for dispute rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByOrderForUpdate(ctx context.Context, orderID uuid.UUID) (*models.Dispute, error)
	Update(ctx context.Context, disputeID uuid.UUID, updates map[string]any) error
	ListOpen(ctx context.Context, params pagination.Params) (*DisputeList, error)
}

// DisputeSummary exposes the queue fields admins triage on.
type DisputeSummary struct {
	ID        uuid.UUID `json:"id"`
	OrderID   uuid.UUID `json:"order_id"`
	OpenedBy  uuid.UUID `json:"opened_by"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

// DisputeList wraps the paginated queue plus the next page cursor.
type DisputeList struct {
	Disputes   []DisputeSummary `json:"disputes"`
	NextCursor string           `json:"next_cursor,omitempty"`
}
