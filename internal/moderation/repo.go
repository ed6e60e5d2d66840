package moderation

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/velara-labs/cryptomart-backend/pkg/db/models"
	"github.com/velara-labs/cryptomart-backend/pkg/enums"
	"github.com/velara-labs/cryptomart-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a moderation repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, kind enums.ModerationKind, itemID uuid.UUID) (*Item, error) {
	switch kind {
	case enums.ModerationKindListing:
		var listing models.Listing
		if err := r.db.WithContext(ctx).Where("id = ?", itemID).First(&listing).Error; err != nil {
			return nil, err
		}
		item := listingItem(listing)
		return &item, nil
	case enums.ModerationKindVendorApplication:
		var app models.VendorApplication
		if err := r.db.WithContext(ctx).Where("id = ?", itemID).First(&app).Error; err != nil {
			return nil, err
		}
		item := applicationItem(app)
		return &item, nil
	default:
		return nil, fmt.Errorf("unknown moderation kind %q", kind)
	}
}

func (r *repository) ApplyDecision(ctx context.Context, kind enums.ModerationKind, itemID uuid.UUID, version int, updates map[string]any) (int64, error) {
	model, err := kindModel(kind)
	if err != nil {
		return 0, err
	}
	updates["version"] = gorm.Expr("version + 1")
	result := r.db.WithContext(ctx).
		Model(model).
		Where("id = ? AND version = ?", itemID, version).
		Updates(updates)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *repository) ListPending(ctx context.Context, kind enums.ModerationKind, params pagination.Params) (*QueueList, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	model, err := kindModel(kind)
	if err != nil {
		return nil, err
	}

	qb := r.db.WithContext(ctx).
		Model(model).
		Where("status = ?", enums.ModerationStatusPending)
	if cursor != nil {
		qb = qb.Where("(created_at > ?) OR (created_at = ? AND id > ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}
	// Longest-waiting items surface first.
	qb = qb.Order("created_at ASC").
		Order("id ASC").
		Limit(pagination.LimitWithBuffer(params.Limit))

	pageSize := pagination.NormalizeLimit(params.Limit)
	var items []Item
	switch kind {
	case enums.ModerationKindListing:
		var rows []models.Listing
		if err := qb.Find(&rows).Error; err != nil {
			return nil, err
		}
		items = make([]Item, 0, len(rows))
		for _, row := range rows {
			items = append(items, listingItem(row))
		}
	case enums.ModerationKindVendorApplication:
		var rows []models.VendorApplication
		if err := qb.Find(&rows).Error; err != nil {
			return nil, err
		}
		items = make([]Item, 0, len(rows))
		for _, row := range rows {
			items = append(items, applicationItem(row))
		}
	}

	nextCursor := ""
	if len(items) > pageSize {
		items = items[:pageSize]
		last := items[len(items)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return &QueueList{Items: items, NextCursor: nextCursor}, nil
}

func kindModel(kind enums.ModerationKind) (any, error) {
	switch kind {
	case enums.ModerationKindListing:
		return &models.Listing{}, nil
	case enums.ModerationKindVendorApplication:
		return &models.VendorApplication{}, nil
	default:
		return nil, fmt.Errorf("unknown moderation kind %q", kind)
	}
}

func listingItem(listing models.Listing) Item {
	return Item{
		ID:        listing.ID,
		Kind:      enums.ModerationKindListing,
		OwnerID:   listing.VendorID,
		Title:     listing.Title,
		Snippet:   listing.Description,
		Status:    listing.Status,
		Version:   listing.Version,
		CreatedAt: listing.CreatedAt,
	}
}

func applicationItem(app models.VendorApplication) Item {
	return Item{
		ID:        app.ID,
		Kind:      enums.ModerationKindVendorApplication,
		OwnerID:   app.ApplicantID,
		Title:     app.ShopName,
		Snippet:   app.Pitch,
		Status:    app.Status,
		Version:   app.Version,
		CreatedAt: app.CreatedAt,
	}
}
