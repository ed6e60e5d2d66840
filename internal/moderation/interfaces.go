package moderation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/velara-labs/cryptomart-backend/pkg/enums"
	"github.com/velara-labs/cryptomart-backend/pkg/pagination"
)

// Item is the kind-agnostic view of a row in the moderation queue. OwnerID is
// the listing's vendor or the application's applicant.
type Item struct {
	ID        uuid.UUID              `json:"id"`
	Kind      enums.ModerationKind   `json:"kind"`
	OwnerID   uuid.UUID              `json:"owner_id"`
	Title     string                 `json:"title"`
	Snippet   string                 `json:"snippet,omitempty"`
	Status    enums.ModerationStatus `json:"status"`
	Version   int                    `json:"version"`
	CreatedAt time.Time              `json:"created_at"`
}

// QueueList wraps a page of pending items plus the next page cursor.
type QueueList struct {
	Items      []Item `json:"items"`
	NextCursor string `json:"next_cursor,omitempty"`
}

// Repository persists moderation decisions against the two reviewed tables.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, kind enums.ModerationKind, itemID uuid.UUID) (*Item, error)
	// ApplyDecision runs the update guarded by the row version and reports
	// how many rows matched. Zero rows means a concurrent writer won.
	ApplyDecision(ctx context.Context, kind enums.ModerationKind, itemID uuid.UUID, version int, updates map[string]any) (int64, error)
	ListPending(ctx context.Context, kind enums.ModerationKind, params pagination.Params) (*QueueList, error)
}
