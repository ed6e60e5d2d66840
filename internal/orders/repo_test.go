package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/velara-labs/cryptomart-backend/pkg/db/models"
	"github.com/velara-labs/cryptomart-backend/pkg/enums"
	"github.com/velara-labs/cryptomart-backend/pkg/pagination"
)

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	ordersTable := `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  buyer_id TEXT NOT NULL,
  vendor_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  quantity INTEGER NOT NULL DEFAULT 1,
  unit_price TEXT NOT NULL,
  total_amount TEXT NOT NULL,
  currency TEXT NOT NULL DEFAULT 'BTC',
  status TEXT NOT NULL DEFAULT 'pending_payment',
  payment_status TEXT NOT NULL DEFAULT 'unpaid',
  use_escrow INTEGER NOT NULL DEFAULT 1,
  escrow_fee TEXT NOT NULL DEFAULT '0',
  dispute_opened INTEGER NOT NULL DEFAULT 0,
  dispute_reason TEXT,
  dispute_opened_at DATETIME,
  confirmed_at DATETIME,
  payment_expires_at DATETIME,
  delivered_at DATETIME,
  cancelled_at DATETIME,
  refunded_at DATETIME,
  version INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`
	escrowHolds := `
CREATE TABLE IF NOT EXISTS escrow_holds (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL UNIQUE,
  amount TEXT NOT NULL,
  currency TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'held',
  released_amount TEXT NOT NULL DEFAULT '0',
  refunded_amount TEXT NOT NULL DEFAULT '0',
  released_at DATETIME,
  refunded_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	disputes := `
CREATE TABLE IF NOT EXISTS disputes (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL UNIQUE,
  opened_by TEXT NOT NULL,
  reason TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'open',
  resolution TEXT,
  buyer_share TEXT,
  admin_notes TEXT,
  reviewed_by TEXT,
  reviewed_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	for _, stmt := range []string{ordersTable, escrowHolds, disputes} {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func seedOrder(t *testing.T, db *gorm.DB, mutate func(*models.Order)) *models.Order {
	t.Helper()
	order := &models.Order{
		ID:          uuid.New(),
		BuyerID:     uuid.New(),
		VendorID:    uuid.New(),
		ProductID:   uuid.New(),
		Quantity:    1,
		UnitPrice:   decimal.RequireFromString("0.1"),
		TotalAmount: decimal.RequireFromString("0.1"),
		Currency:    enums.CurrencyBTC,
		Status:      enums.OrderStatusPendingPayment,
		UseEscrow:   true,
	}
	if mutate != nil {
		mutate(order)
	}
	require.NoError(t, db.Create(order).Error)
	return order
}

func TestRepoFindAndUpdateOrder(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	order := seedOrder(t, db, nil)

	found, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, found.ID)
	assert.Equal(t, enums.OrderStatusPendingPayment, found.Status)
	assert.Equal(t, 1, found.Version)

	require.NoError(t, repo.Update(ctx, order.ID, map[string]any{
		"status": enums.OrderStatusPaid,
	}))

	found, err = repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPaid, found.Status)
	assert.Equal(t, 2, found.Version)
}

func TestRepoFindDetailPreloadsRelations(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	order := seedOrder(t, db, func(o *models.Order) {
		o.Status = enums.OrderStatusDisputed
	})
	hold := &models.EscrowHold{
		ID:       uuid.New(),
		OrderID:  order.ID,
		Amount:   order.TotalAmount,
		Currency: order.Currency,
		Status:   enums.EscrowHoldStatusHeld,
	}
	require.NoError(t, db.Create(hold).Error)
	dispute := &models.Dispute{
		ID:       uuid.New(),
		OrderID:  order.ID,
		OpenedBy: order.BuyerID,
		Reason:   "never arrived",
		Status:   enums.DisputeStatusOpen,
	}
	require.NoError(t, db.Create(dispute).Error)

	detail, err := repo.FindDetail(ctx, order.ID)
	require.NoError(t, err)
	require.NotNil(t, detail.EscrowHold)
	assert.Equal(t, hold.ID, detail.EscrowHold.ID)
	require.NotNil(t, detail.Dispute)
	assert.Equal(t, "never arrived", detail.Dispute.Reason)
}

func TestRepoListAdminFiltersAndCursor(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		createdAt := base.Add(time.Duration(i) * time.Minute)
		seedOrder(t, db, func(o *models.Order) {
			o.Status = enums.OrderStatusPaid
			o.CreatedAt = createdAt
		})
	}
	seedOrder(t, db, func(o *models.Order) {
		o.Status = enums.OrderStatusRefunded
		o.Currency = enums.CurrencyXMR
	})

	paid := enums.OrderStatusPaid
	page, err := repo.ListAdmin(ctx, pagination.Params{Limit: 2}, AdminOrderFilters{Status: &paid})
	require.NoError(t, err)
	require.Len(t, page.Orders, 2)
	require.NotEmpty(t, page.NextCursor)

	rest, err := repo.ListAdmin(ctx, pagination.Params{Limit: 2, Cursor: page.NextCursor}, AdminOrderFilters{Status: &paid})
	require.NoError(t, err)
	require.Len(t, rest.Orders, 1)
	assert.Empty(t, rest.NextCursor)

	seen := map[uuid.UUID]bool{}
	for _, o := range append(page.Orders, rest.Orders...) {
		assert.Equal(t, enums.OrderStatusPaid, o.Status)
		assert.False(t, seen[o.ID], "order %s returned twice", o.ID)
		seen[o.ID] = true
	}

	xmr := enums.CurrencyXMR
	byCurrency, err := repo.ListAdmin(ctx, pagination.Params{}, AdminOrderFilters{Currency: &xmr})
	require.NoError(t, err)
	require.Len(t, byCurrency.Orders, 1)
	assert.Equal(t, enums.CurrencyXMR, byCurrency.Orders[0].Currency)
}

func TestRepoListScopedToBuyerAndVendor(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	buyer := uuid.New()
	vendor := uuid.New()
	seedOrder(t, db, func(o *models.Order) { o.BuyerID = buyer })
	seedOrder(t, db, func(o *models.Order) { o.VendorID = vendor })
	seedOrder(t, db, nil)

	buyerList, err := repo.ListByBuyer(ctx, buyer, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, buyerList.Orders, 1)
	assert.Equal(t, buyer, buyerList.Orders[0].BuyerID)

	vendorList, err := repo.ListByVendor(ctx, vendor, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, vendorList.Orders, 1)
	assert.Equal(t, vendor, vendorList.Orders[0].VendorID)
}

func TestRepoFindExpiredPendingIDs(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	expired := seedOrder(t, db, func(o *models.Order) { o.PaymentExpiresAt = &past })
	seedOrder(t, db, func(o *models.Order) { o.PaymentExpiresAt = &future })
	seedOrder(t, db, func(o *models.Order) {
		o.Status = enums.OrderStatusPaid
		o.PaymentExpiresAt = &past
	})
	seedOrder(t, db, nil) // no expiry window

	ids, err := repo.FindExpiredPendingIDs(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, ids, 1)
	assert.Equal(t, expired.ID, ids[0])
}

func TestRepoDisputeRoundTrip(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	order := seedOrder(t, db, nil)

	_, err := repo.FindDisputeByOrder(ctx, order.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	created, err := repo.CreateDispute(ctx, &models.Dispute{
		ID:       uuid.New(),
		OrderID:  order.ID,
		OpenedBy: order.BuyerID,
		Reason:   "wrong item",
		Status:   enums.DisputeStatusOpen,
	})
	require.NoError(t, err)

	found, err := repo.FindDisputeByOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
	assert.False(t, found.IsResolved())
}
