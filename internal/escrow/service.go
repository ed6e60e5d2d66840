package escrow

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/velara-labs/cryptomart-backend/pkg/db/models"
	"github.com/velara-labs/cryptomart-backend/pkg/enums"
	pkgerrors "github.com/velara-labs/cryptomart-backend/pkg/errors"
	"github.com/velara-labs/cryptomart-backend/pkg/metrics"
	"github.com/velara-labs/cryptomart-backend/pkg/outbox"
	"github.com/velara-labs/cryptomart-backend/pkg/outbox/payloads"
)

// amountScale matches the numeric(24,12) columns.
const amountScale = 12

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Actor identifies who triggered a fund movement.
type Actor struct {
	UserID uuid.UUID
	Role   string
}

// Movement reports a single full disbursement.
type Movement struct {
	HoldID   uuid.UUID
	OrderID  uuid.UUID
	Amount   decimal.Decimal
	Currency enums.Currency
}

// SplitResult reports a partial-refund disbursement.
type SplitResult struct {
	HoldID       uuid.UUID
	OrderID      uuid.UUID
	BuyerAmount  decimal.Decimal
	VendorAmount decimal.Decimal
	Currency     enums.Currency
}

// Service moves escrowed funds. Every mutation requires the caller's
// transaction; the hold row is locked so each hold is disbursed at most once.
type Service interface {
	Fund(ctx context.Context, tx *gorm.DB, order *models.Order) (*models.EscrowHold, error)
	Release(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, actor Actor) (*Movement, error)
	Refund(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, actor Actor) (*Movement, error)
	Split(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, buyerShare decimal.Decimal, actor Actor) (*SplitResult, error)
	LedgerForOrder(ctx context.Context, orderID uuid.UUID) ([]models.LedgerEvent, error)
}

type service struct {
	repo    Repository
	outbox  outboxPublisher
	metrics *metrics.AdminActionMetrics
}

// NewService builds the escrow ledger service.
func NewService(repo Repository, outboxSvc outboxPublisher, admin *metrics.AdminActionMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("escrow repository required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:    repo,
		outbox:  outboxSvc,
		metrics: admin,
	}, nil
}

// Fund creates the hold for a freshly paid order and writes the funding
// ledger row. Caller holds the order row lock.
func (s *service) Fund(ctx context.Context, tx *gorm.DB, order *models.Order) (*models.EscrowHold, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction required")
	}
	if order == nil || order.ID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order required")
	}
	if !order.UseEscrow {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order does not use escrow")
	}

	repo := s.repo.WithTx(tx)
	hold := &models.EscrowHold{
		OrderID:  order.ID,
		Amount:   order.TotalAmount,
		Currency: order.Currency,
		Status:   enums.EscrowHoldStatusHeld,
	}
	if _, err := repo.CreateHold(ctx, hold); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create escrow hold")
	}

	ledger := &models.LedgerEvent{
		OrderID:     order.ID,
		HoldID:      hold.ID,
		ActorUserID: order.BuyerID,
		Type:        enums.LedgerEventEscrowFunded,
		Amount:      hold.Amount,
		Currency:    hold.Currency,
	}
	if err := repo.InsertLedgerEvent(ctx, ledger); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write funding ledger event")
	}
	return hold, nil
}

func (s *service) Release(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, actor Actor) (*Movement, error) {
	return s.disburse(ctx, tx, orderID, actor, enums.EscrowHoldStatusReleased)
}

func (s *service) Refund(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, actor Actor) (*Movement, error) {
	return s.disburse(ctx, tx, orderID, actor, enums.EscrowHoldStatusRefunded)
}

func (s *service) disburse(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, actor Actor, target enums.EscrowHoldStatus) (*Movement, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction required")
	}
	repo := s.repo.WithTx(tx)

	hold, err := s.lockHeldHold(ctx, repo, orderID)
	if err != nil {
		return nil, err
	}

	amount := hold.Remaining()
	now := time.Now()
	updates := map[string]any{
		"status": target,
	}
	var (
		ledgerType enums.LedgerEventType
		eventType  enums.OutboxEventType
		movement   string
	)
	switch target {
	case enums.EscrowHoldStatusReleased:
		updates["released_amount"] = hold.ReleasedAmount.Add(amount)
		updates["released_at"] = now
		ledgerType = enums.LedgerEventEscrowReleased
		eventType = enums.EventEscrowReleased
		movement = "release"
	case enums.EscrowHoldStatusRefunded:
		updates["refunded_amount"] = hold.RefundedAmount.Add(amount)
		updates["refunded_at"] = now
		ledgerType = enums.LedgerEventEscrowRefunded
		eventType = enums.EventEscrowRefunded
		movement = "refund"
	default:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "unsupported disbursement")
	}

	if err := repo.UpdateHold(ctx, hold.ID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update escrow hold")
	}

	ledger := &models.LedgerEvent{
		OrderID:     hold.OrderID,
		HoldID:      hold.ID,
		ActorUserID: actor.UserID,
		Type:        ledgerType,
		Amount:      amount,
		Currency:    hold.Currency,
	}
	if err := repo.InsertLedgerEvent(ctx, ledger); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write ledger event")
	}

	event := outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateEscrowHold,
		AggregateID:   hold.ID,
		Version:       1,
		Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: actor.Role},
		Data: payloads.EscrowReleasedEvent{
			HoldID:   hold.ID,
			OrderID:  hold.OrderID,
			Amount:   amount,
			Currency: hold.Currency,
		},
	}
	if target == enums.EscrowHoldStatusRefunded {
		event.Data = payloads.EscrowRefundedEvent{
			HoldID:   hold.ID,
			OrderID:  hold.OrderID,
			Amount:   amount,
			Currency: hold.Currency,
		}
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.ObserveEscrowMovement(movement, hold.Currency.String(), amount)
	}

	return &Movement{
		HoldID:   hold.ID,
		OrderID:  hold.OrderID,
		Amount:   amount,
		Currency: hold.Currency,
	}, nil
}

// Split disburses buyerShare of the hold back to the buyer and the remainder
// to the vendor. The vendor leg absorbs any rounding dust so the two legs
// always sum to the held amount exactly.
func (s *service) Split(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, buyerShare decimal.Decimal, actor Actor) (*SplitResult, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction required")
	}
	if buyerShare.LessThanOrEqual(decimal.Zero) || buyerShare.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer share must be between 0 and 1 exclusive")
	}
	repo := s.repo.WithTx(tx)

	hold, err := s.lockHeldHold(ctx, repo, orderID)
	if err != nil {
		return nil, err
	}

	total := hold.Remaining()
	buyerAmount := total.Mul(buyerShare).Round(amountScale)
	vendorAmount := total.Sub(buyerAmount)
	now := time.Now()

	updates := map[string]any{
		"status":          enums.EscrowHoldStatusPartiallyRefunded,
		"released_amount": hold.ReleasedAmount.Add(vendorAmount),
		"refunded_amount": hold.RefundedAmount.Add(buyerAmount),
		"released_at":     now,
		"refunded_at":     now,
	}
	if err := repo.UpdateHold(ctx, hold.ID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update escrow hold")
	}

	ledger := &models.LedgerEvent{
		OrderID:     hold.OrderID,
		HoldID:      hold.ID,
		ActorUserID: actor.UserID,
		Type:        enums.LedgerEventEscrowSplit,
		Amount:      total,
		Currency:    hold.Currency,
		Metadata:    splitMetadata(buyerAmount, vendorAmount, buyerShare),
	}
	if err := repo.InsertLedgerEvent(ctx, ledger); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write ledger event")
	}

	event := outbox.DomainEvent{
		EventType:     enums.EventEscrowSplit,
		AggregateType: enums.AggregateEscrowHold,
		AggregateID:   hold.ID,
		Version:       1,
		Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: actor.Role},
		Data: payloads.EscrowSplitEvent{
			HoldID:       hold.ID,
			OrderID:      hold.OrderID,
			BuyerAmount:  buyerAmount,
			VendorAmount: vendorAmount,
			Currency:     hold.Currency,
		},
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.ObserveEscrowMovement("split_refund", hold.Currency.String(), buyerAmount)
		s.metrics.ObserveEscrowMovement("split_release", hold.Currency.String(), vendorAmount)
	}

	return &SplitResult{
		HoldID:       hold.ID,
		OrderID:      hold.OrderID,
		BuyerAmount:  buyerAmount,
		VendorAmount: vendorAmount,
		Currency:     hold.Currency,
	}, nil
}

func (s *service) LedgerForOrder(ctx context.Context, orderID uuid.UUID) ([]models.LedgerEvent, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	rows, err := s.repo.ListLedgerEventsByOrder(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list ledger events")
	}
	return rows, nil
}

func (s *service) lockHeldHold(ctx context.Context, repo Repository, orderID uuid.UUID) (*models.EscrowHold, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	hold, err := repo.FindHoldByOrderForUpdate(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "escrow hold not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load escrow hold")
	}
	if hold.Status != enums.EscrowHoldStatusHeld {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "escrow hold already disbursed")
	}
	return hold, nil
}

func splitMetadata(buyerAmount, vendorAmount, buyerShare decimal.Decimal) []byte {
	return []byte(fmt.Sprintf(
		`{"buyer_amount":%q,"vendor_amount":%q,"buyer_share":%q}`,
		buyerAmount.String(), vendorAmount.String(), buyerShare.String(),
	))
}
