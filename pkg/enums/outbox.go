package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateOrder             OutboxAggregateType = "order"
	AggregateEscrowHold        OutboxAggregateType = "escrow_hold"
	AggregateDispute           OutboxAggregateType = "dispute"
	AggregateListing           OutboxAggregateType = "listing"
	AggregateVendorApplication OutboxAggregateType = "vendor_application"
	AggregateLedgerEvent       OutboxAggregateType = "ledger_event"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregateEscrowHold,
	AggregateDispute,
	AggregateListing,
	AggregateVendorApplication,
	AggregateLedgerEvent,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventOrderPaid           OutboxEventType = "order_paid"
	EventOrderConfirmed      OutboxEventType = "order_confirmed"
	EventOrderRefunded       OutboxEventType = "order_refunded"
	EventOrderCancelled      OutboxEventType = "order_cancelled"
	EventOrderStatusChanged  OutboxEventType = "order_status_changed"
	EventOrderExpired        OutboxEventType = "order_expired"
	EventDisputeOpened       OutboxEventType = "dispute_opened"
	EventDisputeResolved     OutboxEventType = "dispute_resolved"
	EventEscrowReleased      OutboxEventType = "escrow_released"
	EventEscrowRefunded      OutboxEventType = "escrow_refunded"
	EventEscrowSplit         OutboxEventType = "escrow_split"
	EventListingApproved     OutboxEventType = "listing_approved"
	EventListingRejected     OutboxEventType = "listing_rejected"
	EventApplicationApproved OutboxEventType = "application_approved"
	EventApplicationRejected OutboxEventType = "application_rejected"
	EventModerationReopened  OutboxEventType = "moderation_reopened"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderPaid,
	EventOrderConfirmed,
	EventOrderRefunded,
	EventOrderCancelled,
	EventOrderStatusChanged,
	EventOrderExpired,
	EventDisputeOpened,
	EventDisputeResolved,
	EventEscrowReleased,
	EventEscrowRefunded,
	EventEscrowSplit,
	EventListingApproved,
	EventListingRejected,
	EventApplicationApproved,
	EventApplicationRejected,
	EventModerationReopened,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
