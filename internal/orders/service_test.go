package orders

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/velara-labs/cryptomart-backend/internal/escrow"
	"github.com/velara-labs/cryptomart-backend/pkg/db/models"
	"github.com/velara-labs/cryptomart-backend/pkg/enums"
	pkgerrors "github.com/velara-labs/cryptomart-backend/pkg/errors"
	"github.com/velara-labs/cryptomart-backend/pkg/outbox"
	"github.com/velara-labs/cryptomart-backend/pkg/pagination"
)

type stubOrdersRepo struct {
	order        *models.Order
	orderUpdates map[string]any
	dispute      *models.Dispute
	created      *models.Dispute
	expiredIDs   []uuid.UUID
}

func (s *stubOrdersRepo) WithTx(tx *gorm.DB) Repository {
	return s
}

func (s *stubOrdersRepo) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	panic("not implemented")
}

func (s *stubOrdersRepo) FindByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	return s.FindByIDForUpdate(ctx, orderID)
}

func (s *stubOrdersRepo) FindByIDForUpdate(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if s.order == nil || s.order.ID != orderID {
		return nil, gorm.ErrRecordNotFound
	}
	return s.order, nil
}

func (s *stubOrdersRepo) FindDetail(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	return s.FindByIDForUpdate(ctx, orderID)
}

func (s *stubOrdersRepo) Update(ctx context.Context, orderID uuid.UUID, updates map[string]any) error {
	s.orderUpdates = updates
	return nil
}

func (s *stubOrdersRepo) CreateDispute(ctx context.Context, dispute *models.Dispute) (*models.Dispute, error) {
	if dispute.ID == uuid.Nil {
		dispute.ID = uuid.New()
	}
	s.created = dispute
	return dispute, nil
}

func (s *stubOrdersRepo) FindDisputeByOrder(ctx context.Context, orderID uuid.UUID) (*models.Dispute, error) {
	if s.dispute == nil || s.dispute.OrderID != orderID {
		return nil, gorm.ErrRecordNotFound
	}
	return s.dispute, nil
}

func (s *stubOrdersRepo) ListAdmin(ctx context.Context, params pagination.Params, filters AdminOrderFilters) (*OrderList, error) {
	return &OrderList{}, nil
}

func (s *stubOrdersRepo) ListByBuyer(ctx context.Context, buyerID uuid.UUID, params pagination.Params) (*OrderList, error) {
	return &OrderList{}, nil
}

func (s *stubOrdersRepo) ListByVendor(ctx context.Context, vendorID uuid.UUID, params pagination.Params) (*OrderList, error) {
	return &OrderList{}, nil
}

func (s *stubOrdersRepo) FindExpiredPendingIDs(ctx context.Context, cutoff time.Time, limit int) ([]uuid.UUID, error) {
	return s.expiredIDs, nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type stubOutbox struct {
	events []outbox.DomainEvent
}

func (s *stubOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

type stubEscrow struct {
	releaseCalls int
	refundCalls  int
	fundCalls    int
	releaseErr   error
	refundErr    error
	amount       decimal.Decimal
}

func (s *stubEscrow) Fund(ctx context.Context, tx *gorm.DB, order *models.Order) (*models.EscrowHold, error) {
	s.fundCalls++
	return &models.EscrowHold{
		ID:       uuid.New(),
		OrderID:  order.ID,
		Amount:   order.TotalAmount,
		Currency: order.Currency,
		Status:   enums.EscrowHoldStatusHeld,
	}, nil
}

func (s *stubEscrow) Release(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, actor escrow.Actor) (*escrow.Movement, error) {
	s.releaseCalls++
	if s.releaseErr != nil {
		return nil, s.releaseErr
	}
	return &escrow.Movement{OrderID: orderID, Amount: s.amount, Currency: enums.CurrencyBTC}, nil
}

func (s *stubEscrow) Refund(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, actor escrow.Actor) (*escrow.Movement, error) {
	s.refundCalls++
	if s.refundErr != nil {
		return nil, s.refundErr
	}
	return &escrow.Movement{OrderID: orderID, Amount: s.amount, Currency: enums.CurrencyBTC}, nil
}

func (s *stubEscrow) Split(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, buyerShare decimal.Decimal, actor escrow.Actor) (*escrow.SplitResult, error) {
	panic("not implemented")
}

func (s *stubEscrow) LedgerForOrder(ctx context.Context, orderID uuid.UUID) ([]models.LedgerEvent, error) {
	return nil, nil
}

func paidOrder() *models.Order {
	return &models.Order{
		ID:          uuid.New(),
		BuyerID:     uuid.New(),
		VendorID:    uuid.New(),
		TotalAmount: decimal.RequireFromString("0.4"),
		Currency:    enums.CurrencyBTC,
		Status:      enums.OrderStatusPaid,
		UseEscrow:   true,
	}
}

func newOrdersService(t *testing.T, repo Repository, ob outboxPublisher, esc escrow.Service) Service {
	t.Helper()
	svc, err := NewService(repo, stubTxRunner{}, ob, esc)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func assertCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	var appErr *pkgerrors.Error
	if !errors.As(err, &appErr) || appErr.Code() != code {
		t.Fatalf("expected %s, got %v", code, err)
	}
}

func TestConfirmReleasesHoldAndSetsConfirmed(t *testing.T) {
	order := paidOrder()
	repo := &stubOrdersRepo{order: order}
	ob := &stubOutbox{}
	esc := &stubEscrow{amount: order.TotalAmount}
	svc := newOrdersService(t, repo, ob, esc)

	if err := svc.Confirm(context.Background(), order.ID, Actor{UserID: uuid.New(), Role: "buyer"}); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if esc.releaseCalls != 1 {
		t.Fatalf("expected one release call, got %d", esc.releaseCalls)
	}
	if repo.orderUpdates["status"] != enums.OrderStatusConfirmed {
		t.Fatalf("unexpected status %v", repo.orderUpdates["status"])
	}
	if repo.orderUpdates["confirmed_at"] == nil {
		t.Fatal("confirmed_at not set")
	}
	if len(ob.events) != 1 || ob.events[0].EventType != enums.EventOrderConfirmed {
		t.Fatalf("unexpected events %+v", ob.events)
	}
}

func TestConfirmRejectsWrongState(t *testing.T) {
	order := paidOrder()
	order.Status = enums.OrderStatusPendingPayment
	repo := &stubOrdersRepo{order: order}
	svc := newOrdersService(t, repo, &stubOutbox{}, &stubEscrow{})

	err := svc.Confirm(context.Background(), order.ID, Actor{UserID: uuid.New()})
	assertCode(t, err, pkgerrors.CodeStateConflict)
}

func TestConfirmSurfacesEscrowConflict(t *testing.T) {
	order := paidOrder()
	repo := &stubOrdersRepo{order: order}
	esc := &stubEscrow{releaseErr: pkgerrors.New(pkgerrors.CodeStateConflict, "escrow hold already disbursed")}
	svc := newOrdersService(t, repo, &stubOutbox{}, esc)

	err := svc.Confirm(context.Background(), order.ID, Actor{UserID: uuid.New()})
	assertCode(t, err, pkgerrors.CodeStateConflict)
	if repo.orderUpdates != nil {
		t.Fatalf("order must not be updated when release fails: %+v", repo.orderUpdates)
	}
}

func TestMarkDisputedCreatesDispute(t *testing.T) {
	order := paidOrder()
	repo := &stubOrdersRepo{order: order}
	ob := &stubOutbox{}
	svc := newOrdersService(t, repo, ob, &stubEscrow{})

	buyer := uuid.New()
	if err := svc.MarkDisputed(context.Background(), order.ID, "item not delivered", Actor{UserID: buyer, Role: "buyer"}); err != nil {
		t.Fatalf("MarkDisputed: %v", err)
	}
	if repo.created == nil || repo.created.Reason != "item not delivered" {
		t.Fatalf("dispute not created: %+v", repo.created)
	}
	if repo.orderUpdates["status"] != enums.OrderStatusDisputed {
		t.Fatalf("unexpected status %v", repo.orderUpdates["status"])
	}
	if len(ob.events) != 1 || ob.events[0].EventType != enums.EventDisputeOpened {
		t.Fatalf("unexpected events %+v", ob.events)
	}
}

func TestMarkDisputedIdempotentSameReason(t *testing.T) {
	order := paidOrder()
	order.Status = enums.OrderStatusDisputed
	repo := &stubOrdersRepo{
		order: order,
		dispute: &models.Dispute{
			ID:      uuid.New(),
			OrderID: order.ID,
			Reason:  "item not delivered",
			Status:  enums.DisputeStatusOpen,
		},
	}
	ob := &stubOutbox{}
	svc := newOrdersService(t, repo, ob, &stubEscrow{})

	if err := svc.MarkDisputed(context.Background(), order.ID, "item not delivered", Actor{UserID: uuid.New()}); err != nil {
		t.Fatalf("MarkDisputed: %v", err)
	}
	if repo.created != nil {
		t.Fatal("no new dispute row expected")
	}
	if len(ob.events) != 0 {
		t.Fatalf("no events expected, got %+v", ob.events)
	}
}

func TestMarkDisputedConflictWhenResolved(t *testing.T) {
	order := paidOrder()
	order.Status = enums.OrderStatusRefunded
	resolution := enums.DisputeResolutionBuyerWins
	repo := &stubOrdersRepo{
		order: order,
		dispute: &models.Dispute{
			ID:         uuid.New(),
			OrderID:    order.ID,
			Reason:     "item not delivered",
			Status:     enums.DisputeStatusResolved,
			Resolution: &resolution,
		},
	}
	svc := newOrdersService(t, repo, &stubOutbox{}, &stubEscrow{})

	err := svc.MarkDisputed(context.Background(), order.ID, "item not delivered", Actor{UserID: uuid.New()})
	assertCode(t, err, pkgerrors.CodeConflict)
}

func TestMarkDisputedRequiresReason(t *testing.T) {
	svc := newOrdersService(t, &stubOrdersRepo{}, &stubOutbox{}, &stubEscrow{})
	err := svc.MarkDisputed(context.Background(), uuid.New(), "  ", Actor{UserID: uuid.New()})
	assertCode(t, err, pkgerrors.CodeValidation)
}

func TestRefundFromPaidMovesFunds(t *testing.T) {
	order := paidOrder()
	repo := &stubOrdersRepo{order: order}
	ob := &stubOutbox{}
	esc := &stubEscrow{amount: order.TotalAmount}
	svc := newOrdersService(t, repo, ob, esc)

	if err := svc.Refund(context.Background(), order.ID, Actor{UserID: uuid.New(), Role: "admin"}); err != nil {
		t.Fatalf("Refund: %v", err)
	}
	if esc.refundCalls != 1 {
		t.Fatalf("expected one refund call, got %d", esc.refundCalls)
	}
	if repo.orderUpdates["status"] != enums.OrderStatusRefunded {
		t.Fatalf("unexpected status %v", repo.orderUpdates["status"])
	}
	if len(ob.events) != 1 || ob.events[0].EventType != enums.EventOrderRefunded {
		t.Fatalf("unexpected events %+v", ob.events)
	}
}

func TestRefundFromPendingPaymentSkipsEscrow(t *testing.T) {
	order := paidOrder()
	order.Status = enums.OrderStatusPendingPayment
	repo := &stubOrdersRepo{order: order}
	esc := &stubEscrow{}
	svc := newOrdersService(t, repo, &stubOutbox{}, esc)

	if err := svc.Refund(context.Background(), order.ID, Actor{UserID: uuid.New()}); err != nil {
		t.Fatalf("Refund: %v", err)
	}
	if esc.refundCalls != 0 {
		t.Fatal("no fund movement expected before payment")
	}
	if repo.orderUpdates["status"] != enums.OrderStatusRefunded {
		t.Fatalf("unexpected status %v", repo.orderUpdates["status"])
	}
}

func TestRefundAfterReleaseFails(t *testing.T) {
	order := paidOrder()
	order.Status = enums.OrderStatusConfirmed
	repo := &stubOrdersRepo{order: order}
	svc := newOrdersService(t, repo, &stubOutbox{}, &stubEscrow{})

	err := svc.Refund(context.Background(), order.ID, Actor{UserID: uuid.New()})
	assertCode(t, err, pkgerrors.CodeStateConflict)
}

func TestMarkPaidFundsEscrow(t *testing.T) {
	order := paidOrder()
	order.Status = enums.OrderStatusPendingPayment
	order.PaymentStatus = enums.PaymentStatusUnpaid
	repo := &stubOrdersRepo{order: order}
	ob := &stubOutbox{}
	esc := &stubEscrow{}
	svc := newOrdersService(t, repo, ob, esc)

	if err := svc.MarkPaid(context.Background(), order.ID); err != nil {
		t.Fatalf("MarkPaid: %v", err)
	}
	if esc.fundCalls != 1 {
		t.Fatalf("expected hold funding, got %d calls", esc.fundCalls)
	}
	if repo.orderUpdates["status"] != enums.OrderStatusPaid {
		t.Fatalf("unexpected status %v", repo.orderUpdates["status"])
	}
	if repo.orderUpdates["payment_status"] != enums.PaymentStatusPaid {
		t.Fatalf("unexpected payment status %v", repo.orderUpdates["payment_status"])
	}
	if len(ob.events) != 1 || ob.events[0].EventType != enums.EventOrderPaid {
		t.Fatalf("unexpected events %+v", ob.events)
	}
}

func TestMarkPaidRejectsNonPending(t *testing.T) {
	order := paidOrder()
	repo := &stubOrdersRepo{order: order}
	svc := newOrdersService(t, repo, &stubOutbox{}, &stubEscrow{})

	err := svc.MarkPaid(context.Background(), order.ID)
	assertCode(t, err, pkgerrors.CodeStateConflict)
}

func TestUpdateStatusValidTransition(t *testing.T) {
	order := paidOrder()
	order.Status = enums.OrderStatusConfirmed
	repo := &stubOrdersRepo{order: order}
	ob := &stubOutbox{}
	svc := newOrdersService(t, repo, ob, &stubEscrow{})

	if err := svc.UpdateStatus(context.Background(), order.ID, enums.OrderStatusProcessing, Actor{UserID: uuid.New(), Role: "admin"}); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if repo.orderUpdates["status"] != enums.OrderStatusProcessing {
		t.Fatalf("unexpected status %v", repo.orderUpdates["status"])
	}
	if len(ob.events) != 1 || ob.events[0].EventType != enums.EventOrderStatusChanged {
		t.Fatalf("unexpected events %+v", ob.events)
	}
}

func TestUpdateStatusRejectsInvalidTransition(t *testing.T) {
	order := paidOrder()
	order.Status = enums.OrderStatusPendingPayment
	repo := &stubOrdersRepo{order: order}
	svc := newOrdersService(t, repo, &stubOutbox{}, &stubEscrow{})

	err := svc.UpdateStatus(context.Background(), order.ID, enums.OrderStatusDelivered, Actor{UserID: uuid.New()})
	assertCode(t, err, pkgerrors.CodeStateConflict)
}

func TestUpdateStatusRejectsDirectTerminalStates(t *testing.T) {
	order := paidOrder()
	repo := &stubOrdersRepo{order: order}
	svc := newOrdersService(t, repo, &stubOutbox{}, &stubEscrow{})

	for _, target := range []enums.OrderStatus{
		enums.OrderStatusRefunded,
		enums.OrderStatusCancelled,
		enums.OrderStatusDisputed,
		enums.OrderStatusPaid,
	} {
		err := svc.UpdateStatus(context.Background(), order.ID, target, Actor{UserID: uuid.New()})
		assertCode(t, err, pkgerrors.CodeValidation)
	}
}

func TestExpireUnpaidSweepsLapsedOrders(t *testing.T) {
	now := time.Now()
	expired := now.Add(-time.Hour)
	order := paidOrder()
	order.Status = enums.OrderStatusPendingPayment
	order.PaymentExpiresAt = &expired
	repo := &stubOrdersRepo{order: order, expiredIDs: []uuid.UUID{order.ID}}
	ob := &stubOutbox{}
	svc := newOrdersService(t, repo, ob, &stubEscrow{})

	count, err := svc.ExpireUnpaid(context.Background(), now, 50)
	if err != nil {
		t.Fatalf("ExpireUnpaid: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 expired order, got %d", count)
	}
	if repo.orderUpdates["status"] != enums.OrderStatusCancelled {
		t.Fatalf("unexpected status %v", repo.orderUpdates["status"])
	}
	if repo.orderUpdates["payment_status"] != enums.PaymentStatusExpired {
		t.Fatalf("unexpected payment status %v", repo.orderUpdates["payment_status"])
	}
	if len(ob.events) != 1 || ob.events[0].EventType != enums.EventOrderExpired {
		t.Fatalf("unexpected events %+v", ob.events)
	}
}

func TestExpireUnpaidSkipsOrdersPaidInFlight(t *testing.T) {
	now := time.Now()
	order := paidOrder() // already paid by the time the sweep locks it
	repo := &stubOrdersRepo{order: order, expiredIDs: []uuid.UUID{order.ID}}
	svc := newOrdersService(t, repo, &stubOutbox{}, &stubEscrow{})

	count, err := svc.ExpireUnpaid(context.Background(), now, 50)
	if err != nil {
		t.Fatalf("ExpireUnpaid: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 expired orders, got %d", count)
	}
	if repo.orderUpdates != nil {
		t.Fatalf("no update expected, got %+v", repo.orderUpdates)
	}
}

func TestOrderNotFound(t *testing.T) {
	svc := newOrdersService(t, &stubOrdersRepo{}, &stubOutbox{}, &stubEscrow{})
	err := svc.Confirm(context.Background(), uuid.New(), Actor{UserID: uuid.New()})
	assertCode(t, err, pkgerrors.CodeNotFound)
}

func TestListsRejectMalformedCursor(t *testing.T) {
	svc := newOrdersService(t, &stubOrdersRepo{}, &stubOutbox{}, &stubEscrow{})
	bad := pagination.Params{Cursor: "!!not-base64!!"}

	_, err := svc.ListAdmin(context.Background(), bad, AdminOrderFilters{})
	assertCode(t, err, pkgerrors.CodeValidation)

	_, err = svc.ListForBuyer(context.Background(), uuid.New(), bad)
	assertCode(t, err, pkgerrors.CodeValidation)

	_, err = svc.ListForVendor(context.Background(), uuid.New(), bad)
	assertCode(t, err, pkgerrors.CodeValidation)
}
