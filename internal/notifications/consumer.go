package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/velara-labs/cryptomart-backend/pkg/db/models"
	"github.com/velara-labs/cryptomart-backend/pkg/enums"
	"github.com/velara-labs/cryptomart-backend/pkg/logger"
	"github.com/velara-labs/cryptomart-backend/pkg/outbox"
	"github.com/velara-labs/cryptomart-backend/pkg/outbox/idempotency"
	"github.com/velara-labs/cryptomart-backend/pkg/outbox/payloads"
)

type repository interface {
	Create(ctx context.Context, notification *models.Notification) error
}

type orderReader interface {
	FindByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
}

// Consumer turns published domain events into in-app notification rows for
// the buyer or vendor the event concerns.
type Consumer struct {
	name         string
	repo         repository
	orders       orderReader
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	logg         *logger.Logger
}

// NewConsumer builds a notification consumer bound to one subscription. The
// name scopes the idempotency keys, so each subscription needs its own.
func NewConsumer(name string, repo repository, orders orderReader, subscription *pubsub.Subscriber, manager *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	if name == "" {
		return nil, fmt.Errorf("consumer name required")
	}
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if orders == nil {
		return nil, fmt.Errorf("order reader required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		name:         name,
		repo:         repo,
		orders:       orders,
		subscription: subscription,
		idempotency:  manager,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := enums.OutboxEventType(msg.Attributes["event_type"])
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
		"consumer":   c.name,
	})

	if !notifiable(eventType) {
		return processResult{ack: true}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, c.name, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	if err := c.handle(ctx, eventType, envelope.Data); err != nil {
		c.logg.Error(logCtx, "notification handling failed", err)
		_ = c.idempotency.Delete(ctx, c.name, eventID)
		return processResult{nack: true}
	}
	return processResult{ack: true}
}

func notifiable(eventType enums.OutboxEventType) bool {
	switch eventType {
	case enums.EventOrderPaid, enums.EventOrderConfirmed, enums.EventOrderRefunded,
		enums.EventOrderCancelled, enums.EventOrderExpired,
		enums.EventDisputeOpened, enums.EventDisputeResolved,
		enums.EventListingApproved, enums.EventListingRejected,
		enums.EventApplicationApproved, enums.EventApplicationRejected:
		return true
	default:
		return false
	}
}

func (c *Consumer) handle(ctx context.Context, eventType enums.OutboxEventType, data json.RawMessage) error {
	switch eventType {
	case enums.EventOrderPaid:
		var p payloads.OrderPaidEvent
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		return c.notify(ctx, p.VendorID, enums.NotificationTypeOrderUpdate,
			"Order paid",
			fmt.Sprintf("Order %s is paid: %s %s is held in escrow.", shortID(p.OrderID), p.TotalAmount, p.Currency),
			orderLink(p.OrderID))
	case enums.EventOrderConfirmed:
		var p payloads.OrderConfirmedEvent
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		return c.notify(ctx, p.VendorID, enums.NotificationTypeOrderUpdate,
			"Escrow released",
			fmt.Sprintf("Order %s was confirmed: %s %s released to you.", shortID(p.OrderID), p.ReleasedAmount, p.Currency),
			orderLink(p.OrderID))
	case enums.EventOrderRefunded:
		var p payloads.OrderRefundedEvent
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		return c.notify(ctx, p.BuyerID, enums.NotificationTypeOrderUpdate,
			"Order refunded",
			fmt.Sprintf("Order %s was refunded: %s %s returned to you.", shortID(p.OrderID), p.RefundedAmount, p.Currency),
			orderLink(p.OrderID))
	case enums.EventOrderCancelled:
		var p payloads.OrderCancelledEvent
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		return c.notify(ctx, p.BuyerID, enums.NotificationTypeOrderUpdate,
			"Order cancelled",
			fmt.Sprintf("Order %s was cancelled.", shortID(p.OrderID)),
			orderLink(p.OrderID))
	case enums.EventOrderExpired:
		var p payloads.OrderExpiredEvent
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		return c.notify(ctx, p.BuyerID, enums.NotificationTypeOrderUpdate,
			"Payment window expired",
			fmt.Sprintf("Order %s was cancelled because payment did not arrive in time.", shortID(p.OrderID)),
			orderLink(p.OrderID))
	case enums.EventDisputeOpened:
		var p payloads.DisputeOpenedEvent
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		order, err := c.orders.FindByID(ctx, p.OrderID)
		if err != nil {
			return err
		}
		return c.notify(ctx, order.VendorID, enums.NotificationTypeDisputeUpdate,
			"Dispute opened",
			fmt.Sprintf("The buyer opened a dispute on order %s: %s", shortID(p.OrderID), p.Reason),
			orderLink(p.OrderID))
	case enums.EventDisputeResolved:
		var p payloads.DisputeResolvedEvent
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		return c.notifyDisputeResolved(ctx, p)
	case enums.EventListingApproved:
		var p payloads.ListingApprovedEvent
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		return c.notify(ctx, p.VendorID, enums.NotificationTypeModerationUpdate,
			"Listing approved",
			fmt.Sprintf("Listing %s passed review and is now live.", shortID(p.ListingID)),
			listingLink(p.ListingID))
	case enums.EventListingRejected:
		var p payloads.ListingRejectedEvent
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		return c.notify(ctx, p.VendorID, enums.NotificationTypeModerationUpdate,
			"Listing rejected",
			fmt.Sprintf("Listing %s was rejected. Reason: %s", shortID(p.ListingID), p.Reason),
			listingLink(p.ListingID))
	case enums.EventApplicationApproved:
		var p payloads.ApplicationApprovedEvent
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		return c.notify(ctx, p.ApplicantID, enums.NotificationTypeModerationUpdate,
			"Vendor application approved",
			"Your vendor application was approved. You can start listing products.",
			stringPtr("/vendor/onboarding"))
	case enums.EventApplicationRejected:
		var p payloads.ApplicationRejectedEvent
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		return c.notify(ctx, p.ApplicantID, enums.NotificationTypeModerationUpdate,
			"Vendor application rejected",
			fmt.Sprintf("Your vendor application was rejected. Reason: %s", p.Reason),
			stringPtr("/vendor/onboarding"))
	default:
		return nil
	}
}

func (c *Consumer) notifyDisputeResolved(ctx context.Context, p payloads.DisputeResolvedEvent) error {
	order, err := c.orders.FindByID(ctx, p.OrderID)
	if err != nil {
		return err
	}
	buyerMsg := fmt.Sprintf("The dispute on order %s was resolved (%s). You receive %s %s.",
		shortID(p.OrderID), p.Resolution, p.BuyerAmount, p.Currency)
	vendorMsg := fmt.Sprintf("The dispute on order %s was resolved (%s). You receive %s %s.",
		shortID(p.OrderID), p.Resolution, p.VendorAmount, p.Currency)
	if err := c.notify(ctx, order.BuyerID, enums.NotificationTypeDisputeUpdate, "Dispute resolved", buyerMsg, orderLink(p.OrderID)); err != nil {
		return err
	}
	return c.notify(ctx, order.VendorID, enums.NotificationTypeDisputeUpdate, "Dispute resolved", vendorMsg, orderLink(p.OrderID))
}

func (c *Consumer) notify(ctx context.Context, userID uuid.UUID, kind enums.NotificationType, title, message string, link *string) error {
	if userID == uuid.Nil {
		return fmt.Errorf("recipient user id missing")
	}
	return c.repo.Create(ctx, &models.Notification{
		UserID:  userID,
		Type:    kind,
		Title:   title,
		Message: message,
		Link:    link,
	})
}

func orderLink(orderID uuid.UUID) *string {
	return stringPtr(fmt.Sprintf("/orders/%s", orderID))
}

func listingLink(listingID uuid.UUID) *string {
	return stringPtr(fmt.Sprintf("/listings/%s", listingID))
}

func shortID(id uuid.UUID) string {
	return id.String()[:8]
}

func stringPtr(value string) *string {
	return &value
}
