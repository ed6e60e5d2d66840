package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/velara-labs/cryptomart-backend/internal/escrow"
	"github.com/velara-labs/cryptomart-backend/pkg/db/models"
	"github.com/velara-labs/cryptomart-backend/pkg/enums"
	pkgerrors "github.com/velara-labs/cryptomart-backend/pkg/errors"
	"github.com/velara-labs/cryptomart-backend/pkg/outbox"
	"github.com/velara-labs/cryptomart-backend/pkg/outbox/payloads"
	"github.com/velara-labs/cryptomart-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Actor identifies the user driving an order transition.
type Actor struct {
	UserID uuid.UUID
	Role   string
}

// Service defines order lifecycle operations.
type Service interface {
	Confirm(ctx context.Context, orderID uuid.UUID, actor Actor) error
	MarkDisputed(ctx context.Context, orderID uuid.UUID, reason string, actor Actor) error
	Refund(ctx context.Context, orderID uuid.UUID, actor Actor) error
	MarkPaid(ctx context.Context, orderID uuid.UUID) error
	UpdateStatus(ctx context.Context, orderID uuid.UUID, target enums.OrderStatus, actor Actor) error
	ExpireUnpaid(ctx context.Context, now time.Time, limit int) (int, error)
	GetDetail(ctx context.Context, orderID uuid.UUID) (*OrderDetail, error)
	ListAdmin(ctx context.Context, params pagination.Params, filters AdminOrderFilters) (*OrderList, error)
	ListForBuyer(ctx context.Context, buyerID uuid.UUID, params pagination.Params) (*OrderList, error)
	ListForVendor(ctx context.Context, vendorID uuid.UUID, params pagination.Params) (*OrderList, error)
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
	escrow escrow.Service
}

// NewService builds the order lifecycle service.
func NewService(repo Repository, tx txRunner, outboxSvc outboxPublisher, escrowSvc escrow.Service) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if escrowSvc == nil {
		return nil, fmt.Errorf("escrow service required")
	}
	return &service{
		repo:   repo,
		tx:     tx,
		outbox: outboxSvc,
		escrow: escrowSvc,
	}, nil
}

// adminTransitions lists the status changes UpdateStatus accepts.
var adminTransitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusProcessing: {enums.OrderStatusPaid, enums.OrderStatusConfirmed},
	enums.OrderStatusDelivered:  {enums.OrderStatusProcessing, enums.OrderStatusConfirmed},
}

// Confirm releases the full hold to the vendor and marks the order confirmed.
// Only valid from paid with escrow in use.
func (s *service) Confirm(ctx context.Context, orderID uuid.UUID, actor Actor) error {
	if orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if actor.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.lockOrder(ctx, repo, orderID)
		if err != nil {
			return err
		}
		if !order.UseEscrow {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order does not use escrow")
		}
		if order.Status != enums.OrderStatusPaid {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order can only be confirmed from paid")
		}

		movement, err := s.escrow.Release(ctx, tx, order.ID, escrow.Actor{UserID: actor.UserID, Role: actor.Role})
		if err != nil {
			return err
		}

		now := time.Now()
		updates := map[string]any{
			"status":       enums.OrderStatusConfirmed,
			"confirmed_at": now,
		}
		if err := repo.Update(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderConfirmed,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         actorRef(actor),
			Data: payloads.OrderConfirmedEvent{
				OrderID:        order.ID,
				BuyerID:        order.BuyerID,
				VendorID:       order.VendorID,
				ReleasedAmount: movement.Amount,
				Currency:       order.Currency,
				ConfirmedAt:    now,
			},
		})
	})
}

// MarkDisputed opens a dispute on a paid or confirmed order. Re-opening with
// the same reason is a no-op; a resolved dispute can never be reopened.
func (s *service) MarkDisputed(ctx context.Context, orderID uuid.UUID, reason string, actor Actor) error {
	if orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "dispute reason required")
	}
	if actor.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.lockOrder(ctx, repo, orderID)
		if err != nil {
			return err
		}

		existing, err := repo.FindDisputeByOrder(ctx, order.ID)
		if err != nil && err != gorm.ErrRecordNotFound {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load dispute")
		}
		if existing != nil {
			if existing.IsResolved() {
				return pkgerrors.New(pkgerrors.CodeConflict, "dispute already resolved")
			}
			if existing.Reason == reason {
				return nil
			}
			return pkgerrors.New(pkgerrors.CodeConflict, "dispute already open with a different reason")
		}

		switch order.Status {
		case enums.OrderStatusPaid, enums.OrderStatusConfirmed:
		default:
			return pkgerrors.New(pkgerrors.CodeStateConflict, "dispute can only be opened from paid or confirmed")
		}

		now := time.Now()
		dispute := &models.Dispute{
			OrderID:  order.ID,
			OpenedBy: actor.UserID,
			Reason:   reason,
			Status:   enums.DisputeStatusOpen,
		}
		if _, err := repo.CreateDispute(ctx, dispute); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create dispute")
		}

		updates := map[string]any{
			"status":            enums.OrderStatusDisputed,
			"dispute_opened":    true,
			"dispute_reason":    reason,
			"dispute_opened_at": now,
		}
		if err := repo.Update(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventDisputeOpened,
			AggregateType: enums.AggregateDispute,
			AggregateID:   dispute.ID,
			Version:       1,
			Actor:         actorRef(actor),
			Data: payloads.DisputeOpenedEvent{
				DisputeID: dispute.ID,
				OrderID:   order.ID,
				OpenedBy:  actor.UserID,
				Reason:    reason,
				OpenedAt:  now,
			},
		})
	})
}

// Refund returns the full hold to the buyer while it is still held. Orders
// awaiting payment are refunded without a fund movement.
func (s *service) Refund(ctx context.Context, orderID uuid.UUID, actor Actor) error {
	if orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if actor.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.lockOrder(ctx, repo, orderID)
		if err != nil {
			return err
		}

		var refunded *escrow.Movement
		switch order.Status {
		case enums.OrderStatusPendingPayment:
			// nothing funded yet
		case enums.OrderStatusPaid:
			if order.UseEscrow {
				refunded, err = s.escrow.Refund(ctx, tx, order.ID, escrow.Actor{UserID: actor.UserID, Role: actor.Role})
				if err != nil {
					return err
				}
			}
		default:
			return pkgerrors.New(pkgerrors.CodeStateConflict, "escrow already released")
		}

		now := time.Now()
		updates := map[string]any{
			"status":      enums.OrderStatusRefunded,
			"refunded_at": now,
		}
		if err := repo.Update(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
		}

		amount := order.TotalAmount
		if refunded != nil {
			amount = refunded.Amount
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderRefunded,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         actorRef(actor),
			Data: payloads.OrderRefundedEvent{
				OrderID:        order.ID,
				BuyerID:        order.BuyerID,
				VendorID:       order.VendorID,
				RefundedAmount: amount,
				Currency:       order.Currency,
				RefundedAt:     now,
			},
		})
	})
}

// MarkPaid records on-chain settlement: pending_payment becomes paid and the
// escrow hold is funded when the order uses escrow.
func (s *service) MarkPaid(ctx context.Context, orderID uuid.UUID) error {
	if orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.lockOrder(ctx, repo, orderID)
		if err != nil {
			return err
		}
		if order.Status != enums.OrderStatusPendingPayment {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not awaiting payment")
		}

		if order.UseEscrow {
			if _, err := s.escrow.Fund(ctx, tx, order); err != nil {
				return err
			}
		}

		now := time.Now()
		updates := map[string]any{
			"status":         enums.OrderStatusPaid,
			"payment_status": enums.PaymentStatusPaid,
		}
		if err := repo.Update(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPaid,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Data: payloads.OrderPaidEvent{
				OrderID:     order.ID,
				BuyerID:     order.BuyerID,
				VendorID:    order.VendorID,
				TotalAmount: order.TotalAmount,
				Currency:    order.Currency,
				PaidAt:      now,
			},
		})
	})
}

// UpdateStatus applies the admin-driven processing/delivered transitions.
func (s *service) UpdateStatus(ctx context.Context, orderID uuid.UUID, target enums.OrderStatus, actor Actor) error {
	if orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !target.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}
	if actor.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	allowedFrom, ok := adminTransitions[target]
	if !ok {
		return pkgerrors.New(pkgerrors.CodeValidation, "status cannot be set directly")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.lockOrder(ctx, repo, orderID)
		if err != nil {
			return err
		}
		if order.Status == target {
			return nil
		}
		if !statusIn(order.Status, allowedFrom) {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("cannot move order from %s to %s", order.Status, target))
		}

		updates := map[string]any{"status": target}
		now := time.Now()
		if target == enums.OrderStatusDelivered {
			updates["delivered_at"] = now
		}
		if err := repo.Update(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         actorRef(actor),
			Data: payloads.OrderStatusChangedEvent{
				OrderID:    order.ID,
				FromStatus: order.Status,
				ToStatus:   target,
				ChangedAt:  now,
			},
		})
	})
}

// ExpireUnpaid cancels orders whose payment window lapsed before now. Each
// order is swept in its own transaction so one failure does not poison the
// batch. Returns the number of orders expired.
func (s *service) ExpireUnpaid(ctx context.Context, now time.Time, limit int) (int, error) {
	ids, err := s.repo.FindExpiredPendingIDs(ctx, now, limit)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find expired orders")
	}

	expired := 0
	for _, id := range ids {
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			order, err := s.lockOrder(ctx, repo, id)
			if err != nil {
				return err
			}
			// another worker may have swept or a payment may have landed
			if order.Status != enums.OrderStatusPendingPayment {
				return nil
			}
			if order.PaymentExpiresAt == nil || order.PaymentExpiresAt.After(now) {
				return nil
			}

			updates := map[string]any{
				"status":         enums.OrderStatusCancelled,
				"payment_status": enums.PaymentStatusExpired,
				"cancelled_at":   now,
			}
			if err := repo.Update(ctx, order.ID, updates); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
			}

			expired++
			return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventOrderExpired,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Version:       1,
				Data: payloads.OrderExpiredEvent{
					OrderID:   order.ID,
					BuyerID:   order.BuyerID,
					VendorID:  order.VendorID,
					ExpiredAt: now,
				},
			})
		})
		if err != nil {
			return expired, err
		}
	}
	return expired, nil
}

func (s *service) GetDetail(ctx context.Context, orderID uuid.UUID) (*OrderDetail, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindDetail(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	ledger, err := s.escrow.LedgerForOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return &OrderDetail{Order: *order, Ledger: ledger}, nil
}

func (s *service) ListAdmin(ctx context.Context, params pagination.Params, filters AdminOrderFilters) (*OrderList, error) {
	if err := validateCursor(params); err != nil {
		return nil, err
	}
	list, err := s.repo.ListAdmin(ctx, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return list, nil
}

func (s *service) ListForBuyer(ctx context.Context, buyerID uuid.UUID, params pagination.Params) (*OrderList, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if err := validateCursor(params); err != nil {
		return nil, err
	}
	list, err := s.repo.ListByBuyer(ctx, buyerID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list buyer orders")
	}
	return list, nil
}

func (s *service) ListForVendor(ctx context.Context, vendorID uuid.UUID, params pagination.Params) (*OrderList, error) {
	if vendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if err := validateCursor(params); err != nil {
		return nil, err
	}
	list, err := s.repo.ListByVendor(ctx, vendorID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list vendor orders")
	}
	return list, nil
}

// Client-supplied cursors are validated here so a malformed one reads as bad
// input, not a storage failure.
func validateCursor(params pagination.Params) error {
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	return nil
}

func (s *service) lockOrder(ctx context.Context, repo Repository, orderID uuid.UUID) (*models.Order, error) {
	order, err := repo.FindByIDForUpdate(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func statusIn(status enums.OrderStatus, set []enums.OrderStatus) bool {
	for _, candidate := range set {
		if candidate == status {
			return true
		}
	}
	return false
}

func actorRef(actor Actor) *outbox.ActorRef {
	return &outbox.ActorRef{UserID: actor.UserID, Role: actor.Role}
}
