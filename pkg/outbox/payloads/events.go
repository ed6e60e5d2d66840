package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/velara-labs/cryptomart-backend/pkg/enums"
)

// OrderPaidEvent is emitted when payment for an order settles on-chain.
type OrderPaidEvent struct {
	OrderID     uuid.UUID       `json:"order_id"`
	BuyerID     uuid.UUID       `json:"buyer_id"`
	VendorID    uuid.UUID       `json:"vendor_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Currency    enums.Currency  `json:"currency"`
	PaidAt      time.Time       `json:"paid_at"`
}

// OrderConfirmedEvent signals buyer confirmation and the escrow release it triggered.
type OrderConfirmedEvent struct {
	OrderID        uuid.UUID       `json:"order_id"`
	BuyerID        uuid.UUID       `json:"buyer_id"`
	VendorID       uuid.UUID       `json:"vendor_id"`
	ReleasedAmount decimal.Decimal `json:"released_amount"`
	Currency       enums.Currency  `json:"currency"`
	ConfirmedAt    time.Time       `json:"confirmed_at"`
}

// OrderRefundedEvent signals a full refund back to the buyer.
type OrderRefundedEvent struct {
	OrderID        uuid.UUID       `json:"order_id"`
	BuyerID        uuid.UUID       `json:"buyer_id"`
	VendorID       uuid.UUID       `json:"vendor_id"`
	RefundedAmount decimal.Decimal `json:"refunded_amount"`
	Currency       enums.Currency  `json:"currency"`
	Reason         string          `json:"reason,omitempty"`
	RefundedAt     time.Time       `json:"refunded_at"`
}

// OrderCancelledEvent is emitted when an order is cancelled before escrow funding.
type OrderCancelledEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	BuyerID     uuid.UUID `json:"buyer_id"`
	VendorID    uuid.UUID `json:"vendor_id"`
	Reason      string    `json:"reason,omitempty"`
	CancelledAt time.Time `json:"cancelled_at"`
}

// OrderStatusChangedEvent reports any admin-driven status transition.
type OrderStatusChangedEvent struct {
	OrderID    uuid.UUID         `json:"order_id"`
	FromStatus enums.OrderStatus `json:"from_status"`
	ToStatus   enums.OrderStatus `json:"to_status"`
	ChangedAt  time.Time         `json:"changed_at"`
}

// OrderExpiredEvent is emitted by the cron sweep when a payment window lapses.
type OrderExpiredEvent struct {
	OrderID   uuid.UUID `json:"order_id"`
	BuyerID   uuid.UUID `json:"buyer_id"`
	VendorID  uuid.UUID `json:"vendor_id"`
	ExpiredAt time.Time `json:"expired_at"`
}

// DisputeOpenedEvent signals a buyer challenge on a held order.
type DisputeOpenedEvent struct {
	DisputeID uuid.UUID `json:"dispute_id"`
	OrderID   uuid.UUID `json:"order_id"`
	OpenedBy  uuid.UUID `json:"opened_by"`
	Reason    string    `json:"reason"`
	OpenedAt  time.Time `json:"opened_at"`
}

// DisputeResolvedEvent carries the admin decision and resulting split.
type DisputeResolvedEvent struct {
	DisputeID    uuid.UUID               `json:"dispute_id"`
	OrderID      uuid.UUID               `json:"order_id"`
	Resolution   enums.DisputeResolution `json:"resolution"`
	BuyerShare   *decimal.Decimal        `json:"buyer_share,omitempty"`
	BuyerAmount  decimal.Decimal         `json:"buyer_amount"`
	VendorAmount decimal.Decimal         `json:"vendor_amount"`
	Currency     enums.Currency          `json:"currency"`
	ResolvedBy   uuid.UUID               `json:"resolved_by"`
	ResolvedAt   time.Time               `json:"resolved_at"`
}

// EscrowReleasedEvent is emitted when held funds are disbursed to the vendor.
type EscrowReleasedEvent struct {
	HoldID   uuid.UUID       `json:"hold_id"`
	OrderID  uuid.UUID       `json:"order_id"`
	Amount   decimal.Decimal `json:"amount"`
	Currency enums.Currency  `json:"currency"`
}

// EscrowRefundedEvent is emitted when held funds are returned to the buyer.
type EscrowRefundedEvent struct {
	HoldID   uuid.UUID       `json:"hold_id"`
	OrderID  uuid.UUID       `json:"order_id"`
	Amount   decimal.Decimal `json:"amount"`
	Currency enums.Currency  `json:"currency"`
}

// EscrowSplitEvent is emitted on a partial-refund resolution.
type EscrowSplitEvent struct {
	HoldID       uuid.UUID       `json:"hold_id"`
	OrderID      uuid.UUID       `json:"order_id"`
	BuyerAmount  decimal.Decimal `json:"buyer_amount"`
	VendorAmount decimal.Decimal `json:"vendor_amount"`
	Currency     enums.Currency  `json:"currency"`
}

// ListingApprovedEvent signals a listing passed moderation.
type ListingApprovedEvent struct {
	ListingID  uuid.UUID `json:"listing_id"`
	VendorID   uuid.UUID `json:"vendor_id"`
	ReviewedBy uuid.UUID `json:"reviewed_by"`
	ReviewedAt time.Time `json:"reviewed_at"`
}

// ListingRejectedEvent carries the rejection reason back to the vendor.
type ListingRejectedEvent struct {
	ListingID  uuid.UUID `json:"listing_id"`
	VendorID   uuid.UUID `json:"vendor_id"`
	Reason     string    `json:"reason"`
	ReviewedBy uuid.UUID `json:"reviewed_by"`
	ReviewedAt time.Time `json:"reviewed_at"`
}

// ApplicationApprovedEvent signals a vendor application was accepted.
type ApplicationApprovedEvent struct {
	ApplicationID uuid.UUID `json:"application_id"`
	ApplicantID   uuid.UUID `json:"applicant_id"`
	ReviewedBy    uuid.UUID `json:"reviewed_by"`
	ReviewedAt    time.Time `json:"reviewed_at"`
}

// ApplicationRejectedEvent carries the rejection reason back to the applicant.
type ApplicationRejectedEvent struct {
	ApplicationID uuid.UUID `json:"application_id"`
	ApplicantID   uuid.UUID `json:"applicant_id"`
	Reason        string    `json:"reason"`
	ReviewedBy    uuid.UUID `json:"reviewed_by"`
	ReviewedAt    time.Time `json:"reviewed_at"`
}

// ModerationReopenedEvent is emitted when an admin sends a decided item back to review.
type ModerationReopenedEvent struct {
	Kind       enums.ModerationKind `json:"kind"`
	ItemID     uuid.UUID            `json:"item_id"`
	ReopenedBy uuid.UUID            `json:"reopened_by"`
	ReopenedAt time.Time            `json:"reopened_at"`
}
