package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/wms/backend/internal/domain/inventory"
	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormAdjustmentRepository implements AdjustmentRepository using GORM.
// The ledger is append-only; there is no update or delete.
type GormAdjustmentRepository struct {
	db *gorm.DB
}

// NewGormAdjustmentRepository creates a new GormAdjustmentRepository
func NewGormAdjustmentRepository(db *gorm.DB) *GormAdjustmentRepository {
	return &GormAdjustmentRepository{db: db}
}

// Create appends one adjustment
func (r *GormAdjustmentRepository) Create(ctx context.Context, adjustment *inventory.InventoryAdjustment) error {
	return r.db.WithContext(ctx).Create(models.InventoryAdjustmentModelFromDomain(adjustment)).Error
}

// CreateBatch appends several adjustments
func (r *GormAdjustmentRepository) CreateBatch(ctx context.Context, adjustments []*inventory.InventoryAdjustment) error {
	if len(adjustments) == 0 {
		return nil
	}
	rows := make([]*models.InventoryAdjustmentModel, len(adjustments))
	for i, a := range adjustments {
		rows[i] = models.InventoryAdjustmentModelFromDomain(a)
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

// FindByItem lists adjustments of an inventory item, newest first
func (r *GormAdjustmentRepository) FindByItem(ctx context.Context, itemID uuid.UUID, filter shared.Filter) ([]inventory.InventoryAdjustment, error) {
	var rows []models.InventoryAdjustmentModel
	query := r.db.WithContext(ctx).
		Where("inventory_item_id = ?", itemID).
		Order("created_at DESC")
	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset((filter.Page - 1) * filter.PageSize).Limit(filter.PageSize)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	adjustments := make([]inventory.InventoryAdjustment, len(rows))
	for i := range rows {
		adjustments[i] = *rows[i].ToDomain()
	}
	return adjustments, nil
}

// CountByItem counts adjustments of an inventory item
func (r *GormAdjustmentRepository) CountByItem(ctx context.Context, itemID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.InventoryAdjustmentModel{}).
		Where("inventory_item_id = ?", itemID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Ensure GormAdjustmentRepository implements AdjustmentRepository
var _ inventory.AdjustmentRepository = (*GormAdjustmentRepository)(nil)
