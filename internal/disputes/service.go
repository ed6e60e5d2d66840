package disputes

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/velara-labs/cryptomart-backend/internal/escrow"
	"github.com/velara-labs/cryptomart-backend/internal/orders"
	"github.com/velara-labs/cryptomart-backend/pkg/enums"
	pkgerrors "github.com/velara-labs/cryptomart-backend/pkg/errors"
	"github.com/velara-labs/cryptomart-backend/pkg/metrics"
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

// ResolveInput carries an admin's dispute decision.
type ResolveInput struct {
	OrderID    uuid.UUID
	Resolution enums.DisputeResolution
	BuyerShare *decimal.Decimal
	AdminNotes *string
	ActorID    uuid.UUID
	ActorRole  string
}

// Service resolves disputes and serves the admin queue.
type Service interface {
	Resolve(ctx context.Context, input ResolveInput) error
	ListOpen(ctx context.Context, params pagination.Params) (*DisputeList, error)
}

type service struct {
	repo    Repository
	orders  orders.Repository
	escrow  escrow.Service
	tx      txRunner
	outbox  outboxPublisher
	metrics *metrics.AdminActionMetrics
}

// NewService builds the dispute resolution service.
func NewService(repo Repository, ordersRepo orders.Repository, escrowSvc escrow.Service, tx txRunner, outboxSvc outboxPublisher, admin *metrics.AdminActionMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("disputes repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if escrowSvc == nil {
		return nil, fmt.Errorf("escrow service required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:    repo,
		orders:  ordersRepo,
		escrow:  escrowSvc,
		tx:      tx,
		outbox:  outboxSvc,
		metrics: admin,
	}, nil
}

// Resolve applies the admin decision atomically: the fund movement, the
// dispute record, and the order status change all commit together or not at
// all. A second call for the same order fails with CONFLICT.
func (s *service) Resolve(ctx context.Context, input ResolveInput) error {
	if input.OrderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !input.Resolution.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid resolution")
	}
	if input.ActorID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.Resolution == enums.DisputeResolutionPartialRefund {
		if input.BuyerShare == nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "buyer_share required for partial refund")
		}
		if input.BuyerShare.LessThanOrEqual(decimal.Zero) || input.BuyerShare.GreaterThanOrEqual(decimal.NewFromInt(1)) {
			return pkgerrors.New(pkgerrors.CodeValidation, "buyer_share must be between 0 and 1 exclusive")
		}
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ordersRepo := s.orders.WithTx(tx)
		repo := s.repo.WithTx(tx)

		order, err := ordersRepo.FindByIDForUpdate(ctx, input.OrderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.Status != enums.OrderStatusDisputed {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not disputed")
		}

		dispute, err := repo.FindByOrderForUpdate(ctx, input.OrderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "dispute not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load dispute")
		}
		if dispute.IsResolved() {
			return pkgerrors.New(pkgerrors.CodeConflict, "dispute already resolved")
		}

		actor := escrow.Actor{UserID: input.ActorID, Role: input.ActorRole}
		now := time.Now()

		var (
			buyerAmount  = decimal.Zero
			vendorAmount = decimal.Zero
			orderUpdates map[string]any
		)
		switch {
		case !order.UseEscrow:
			// Direct-settlement orders carry no hold; the resolution only
			// moves the order status.
			switch input.Resolution {
			case enums.DisputeResolutionBuyerWins:
				orderUpdates = map[string]any{
					"status":      enums.OrderStatusRefunded,
					"refunded_at": now,
				}
			case enums.DisputeResolutionVendorWins:
				orderUpdates = map[string]any{
					"status":       enums.OrderStatusDelivered,
					"delivered_at": now,
				}
			case enums.DisputeResolutionPartialRefund:
				return pkgerrors.New(pkgerrors.CodeStateConflict, "partial refund requires an escrow hold")
			}

		case input.Resolution == enums.DisputeResolutionBuyerWins:
			movement, err := s.escrow.Refund(ctx, tx, order.ID, actor)
			if err != nil {
				return err
			}
			buyerAmount = movement.Amount
			vendorAmount = decimal.Zero
			orderUpdates = map[string]any{
				"status":      enums.OrderStatusRefunded,
				"refunded_at": now,
			}

		case input.Resolution == enums.DisputeResolutionVendorWins:
			movement, err := s.escrow.Release(ctx, tx, order.ID, actor)
			if err != nil {
				return err
			}
			buyerAmount = decimal.Zero
			vendorAmount = movement.Amount
			orderUpdates = map[string]any{
				"status":       enums.OrderStatusDelivered,
				"delivered_at": now,
			}

		case input.Resolution == enums.DisputeResolutionPartialRefund:
			split, err := s.escrow.Split(ctx, tx, order.ID, *input.BuyerShare, actor)
			if err != nil {
				return err
			}
			buyerAmount = split.BuyerAmount
			vendorAmount = split.VendorAmount
			orderUpdates = map[string]any{
				"status":      enums.OrderStatusRefunded,
				"refunded_at": now,
			}
		}

		resolution := input.Resolution
		disputeUpdates := map[string]any{
			"status":      enums.DisputeStatusResolved,
			"resolution":  resolution,
			"reviewed_by": input.ActorID,
			"reviewed_at": now,
		}
		if input.BuyerShare != nil {
			disputeUpdates["buyer_share"] = *input.BuyerShare
		}
		if input.AdminNotes != nil && strings.TrimSpace(*input.AdminNotes) != "" {
			disputeUpdates["admin_notes"] = strings.TrimSpace(*input.AdminNotes)
		}
		if err := repo.Update(ctx, dispute.ID, disputeUpdates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update dispute")
		}
		if err := ordersRepo.Update(ctx, order.ID, orderUpdates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventDisputeResolved,
			AggregateType: enums.AggregateDispute,
			AggregateID:   dispute.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: input.ActorID, Role: input.ActorRole},
			Data: payloads.DisputeResolvedEvent{
				DisputeID:    dispute.ID,
				OrderID:      order.ID,
				Resolution:   resolution,
				BuyerShare:   input.BuyerShare,
				BuyerAmount:  buyerAmount,
				VendorAmount: vendorAmount,
				Currency:     order.Currency,
				ResolvedBy:   input.ActorID,
				ResolvedAt:   now,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return err
		}

		if s.metrics != nil {
			s.metrics.IncDisputeResolution(resolution.String())
		}
		return nil
	})
}

func (s *service) ListOpen(ctx context.Context, params pagination.Params) (*DisputeList, error) {
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	list, err := s.repo.ListOpen(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list open disputes")
	}
	return list, nil
}
