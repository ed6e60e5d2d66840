package ledger

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
	pkgerrors "github.com/velara-labs/cryptomart-backend/pkg/errors"
	"github.com/velara-labs/cryptomart-backend/pkg/pagination"
)

func setupLedgerTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS ledger_events (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  hold_id TEXT NOT NULL,
  actor_user_id TEXT NOT NULL,
  type TEXT NOT NULL,
  amount TEXT NOT NULL,
  currency TEXT NOT NULL,
  metadata TEXT,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

func insertLedgerEvent(t *testing.T, db *gorm.DB, orderID uuid.UUID, kind enums.LedgerEventType, createdAt time.Time) models.LedgerEvent {
	t.Helper()
	row := models.LedgerEvent{
		ID:          uuid.New(),
		OrderID:     orderID,
		HoldID:      uuid.New(),
		ActorUserID: uuid.New(),
		Type:        kind,
		Amount:      decimal.RequireFromString("0.05"),
		Currency:    enums.CurrencyBTC,
		CreatedAt:   createdAt,
	}
	require.NoError(t, db.Create(&row).Error)
	return row
}

func TestListFiltersByOrderAndType(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)

	orderID := uuid.New()
	base := time.Now().Add(-time.Hour)
	funded := insertLedgerEvent(t, db, orderID, enums.LedgerEventEscrowFunded, base)
	insertLedgerEvent(t, db, orderID, enums.LedgerEventEscrowReleased, base.Add(time.Minute))
	insertLedgerEvent(t, db, uuid.New(), enums.LedgerEventEscrowFunded, base)

	kind := enums.LedgerEventEscrowFunded
	rows, next, err := repo.List(context.Background(), pagination.Params{Limit: 10}, Filters{OrderID: &orderID, Type: &kind})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Nil(t, next)
	assert.Equal(t, funded.ID, rows[0].ID)
}

func TestListPagesNewestFirst(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)

	orderID := uuid.New()
	base := time.Now().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		insertLedgerEvent(t, db, orderID, enums.LedgerEventEscrowFunded, base.Add(time.Duration(i)*time.Minute))
	}

	rows, next, err := repo.List(context.Background(), pagination.Params{Limit: 2}, Filters{})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.NotNil(t, next)
	assert.True(t, rows[0].CreatedAt.After(rows[1].CreatedAt))

	rows, next, err = repo.List(context.Background(), pagination.Params{Limit: 2, Cursor: pagination.EncodeCursor(*next)}, Filters{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Nil(t, next)
}

func TestServiceRejectsInvalidFilterValues(t *testing.T) {
	db := setupLedgerTestDB(t)
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)

	bad := enums.LedgerEventType("wire_transfer")
	_, err = svc.List(context.Background(), pagination.Params{}, Filters{Type: &bad})
	require.Error(t, err)

	badCurrency := enums.Currency("USD")
	_, err = svc.List(context.Background(), pagination.Params{}, Filters{Currency: &badCurrency})
	require.Error(t, err)
}

func TestServiceRejectsMalformedCursor(t *testing.T) {
	db := setupLedgerTestDB(t)
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)

	_, err = svc.List(context.Background(), pagination.Params{Cursor: "!!not-base64!!"}, Filters{})
	var appErr *pkgerrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, pkgerrors.CodeValidation, appErr.Code())
}
