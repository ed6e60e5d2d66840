package escrow

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/velara-labs/cryptomart-backend/pkg/db/models"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an escrow repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateHold(ctx context.Context, hold *models.EscrowHold) (*models.EscrowHold, error) {
	if err := r.db.WithContext(ctx).Create(hold).Error; err != nil {
		return nil, err
	}
	return hold, nil
}

func (r *repository) FindHoldByOrder(ctx context.Context, orderID uuid.UUID) (*models.EscrowHold, error) {
	var hold models.EscrowHold
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		First(&hold).Error
	if err != nil {
		return nil, err
	}
	return &hold, nil
}

func (r *repository) FindHoldByOrderForUpdate(ctx context.Context, orderID uuid.UUID) (*models.EscrowHold, error) {
	var hold models.EscrowHold
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("order_id = ?", orderID).
		First(&hold).Error
	if err != nil {
		return nil, err
	}
	return &hold, nil
}

func (r *repository) UpdateHold(ctx context.Context, holdID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.EscrowHold{}).
		Where("id = ?", holdID).
		Updates(updates).Error
}

func (r *repository) InsertLedgerEvent(ctx context.Context, event *models.LedgerEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *repository) ListLedgerEventsByOrder(ctx context.Context, orderID uuid.UUID) ([]models.LedgerEvent, error) {
	var rows []models.LedgerEvent
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}
