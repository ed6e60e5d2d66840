package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/velara-labs/cryptomart-backend/pkg/db/models"
	"github.com/velara-labs/cryptomart-backend/pkg/enums"
)

// AdminOrderFilters describe the inputs supported by the admin orders list.
type AdminOrderFilters struct {
	Status        *enums.OrderStatus
	PaymentStatus *enums.PaymentStatus
	Currency      *enums.Currency
	Disputed      *bool
	DateFrom      *time.Time
	DateTo        *time.Time
}

// OrderSummary exposes the aggregated fields returned in order lists.
type OrderSummary struct {
	ID            uuid.UUID           `json:"id"`
	BuyerID       uuid.UUID           `json:"buyer_id"`
	VendorID      uuid.UUID           `json:"vendor_id"`
	TotalAmount   decimal.Decimal     `json:"total_amount"`
	Currency      enums.Currency      `json:"currency"`
	Status        enums.OrderStatus   `json:"status"`
	PaymentStatus enums.PaymentStatus `json:"payment_status"`
	UseEscrow     bool                `json:"use_escrow"`
	DisputeOpened bool                `json:"dispute_opened"`
	CreatedAt     time.Time           `json:"created_at"`
}

// OrderList wraps the paginated orders plus the next page cursor.
type OrderList struct {
	Orders     []OrderSummary `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

// OrderDetail bundles the order (hold and dispute preloaded) with its money trail.
type OrderDetail struct {
	Order  models.Order         `json:"order"`
	Ledger []models.LedgerEvent `json:"ledger,omitempty"`
}

func summarize(order models.Order) OrderSummary {
	return OrderSummary{
		ID:            order.ID,
		BuyerID:       order.BuyerID,
		VendorID:      order.VendorID,
		TotalAmount:   order.TotalAmount,
		Currency:      order.Currency,
		Status:        order.Status,
		PaymentStatus: order.PaymentStatus,
		UseEscrow:     order.UseEscrow,
		DisputeOpened: order.DisputeOpened,
		CreatedAt:     order.CreatedAt,
	}
}
