package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/velara-labs/cryptomart-backend/pkg/db/models"
	"github.com/velara-labs/cryptomart-backend/pkg/enums"
)

func setupNotificationsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS notifications (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  type TEXT NOT NULL,
  title TEXT NOT NULL,
  message TEXT NOT NULL,
  link TEXT,
  read_at DATETIME,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

func insertNotification(t *testing.T, db *gorm.DB, userID uuid.UUID, createdAt time.Time, readAt *time.Time) models.Notification {
	t.Helper()
	row := models.Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Type:      enums.NotificationTypeOrderUpdate,
		Title:     "Order paid",
		Message:   "Order abc is paid.",
		ReadAt:    readAt,
		CreatedAt: createdAt,
	}
	require.NoError(t, db.Create(&row).Error)
	return row
}

func TestListPagesNewestFirst(t *testing.T) {
	db := setupNotificationsTestDB(t)
	repo := NewRepository(db)
	userID := uuid.New()

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		insertNotification(t, db, userID, base.Add(time.Duration(i)*time.Minute), nil)
	}
	insertNotification(t, db, uuid.New(), base, nil)

	rows, next, err := repo.List(context.Background(), listNotificationsParams{UserID: userID, Limit: 2})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.NotNil(t, next)
	assert.True(t, rows[0].CreatedAt.After(rows[1].CreatedAt))

	rows, next, err = repo.List(context.Background(), listNotificationsParams{UserID: userID, Limit: 2, Cursor: next})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Nil(t, next)
}

func TestListUnreadOnly(t *testing.T) {
	db := setupNotificationsTestDB(t)
	repo := NewRepository(db)
	userID := uuid.New()

	now := time.Now()
	insertNotification(t, db, userID, now.Add(-2*time.Minute), &now)
	unread := insertNotification(t, db, userID, now.Add(-time.Minute), nil)

	rows, _, err := repo.List(context.Background(), listNotificationsParams{UserID: userID, Limit: 10, UnreadOnly: true})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, unread.ID, rows[0].ID)
}

func TestMarkReadDistinguishesMissingFromAlreadyRead(t *testing.T) {
	db := setupNotificationsTestDB(t)
	repo := NewRepository(db)
	userID := uuid.New()

	row := insertNotification(t, db, userID, time.Now(), nil)

	mark, err := repo.MarkRead(context.Background(), userID, row.ID, time.Now())
	require.NoError(t, err)
	assert.True(t, mark.Found)
	assert.True(t, mark.Updated)

	mark, err = repo.MarkRead(context.Background(), userID, row.ID, time.Now())
	require.NoError(t, err)
	assert.True(t, mark.Found)
	assert.False(t, mark.Updated)

	mark, err = repo.MarkRead(context.Background(), userID, uuid.New(), time.Now())
	require.NoError(t, err)
	assert.False(t, mark.Found)
}

func TestMarkAllReadCountsRows(t *testing.T) {
	db := setupNotificationsTestDB(t)
	repo := NewRepository(db)
	userID := uuid.New()

	insertNotification(t, db, userID, time.Now().Add(-time.Minute), nil)
	insertNotification(t, db, userID, time.Now(), nil)

	count, err := repo.MarkAllRead(context.Background(), userID, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	count, err = repo.MarkAllRead(context.Background(), userID, time.Now())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestDeleteOlderThanKeepsUnread(t *testing.T) {
	db := setupNotificationsTestDB(t)
	repo := NewRepository(db)
	userID := uuid.New()

	old := time.Now().Add(-40 * 24 * time.Hour)
	readAt := old.Add(time.Hour)
	insertNotification(t, db, userID, old, &readAt)
	keptUnread := insertNotification(t, db, userID, old, nil)
	keptRecent := insertNotification(t, db, userID, time.Now(), &readAt)

	deleted, err := repo.DeleteOlderThan(context.Background(), nil, time.Now().Add(-30*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	var remaining []models.Notification
	require.NoError(t, db.Find(&remaining).Error)
	require.Len(t, remaining, 2)
	ids := []uuid.UUID{remaining[0].ID, remaining[1].ID}
	assert.Contains(t, ids, keptUnread.ID)
	assert.Contains(t, ids, keptRecent.ID)
}
