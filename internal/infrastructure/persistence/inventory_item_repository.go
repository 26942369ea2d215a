package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/wms/backend/internal/domain/inventory"
	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const stockViewColumns = "inventory_items.*, products.name AS product_name, products.sku AS product_sku"

// GormInventoryItemRepository implements InventoryItemRepository using GORM
type GormInventoryItemRepository struct {
	db *gorm.DB
}

// NewGormInventoryItemRepository creates a new GormInventoryItemRepository
func NewGormInventoryItemRepository(db *gorm.DB) *GormInventoryItemRepository {
	return &GormInventoryItemRepository{db: db}
}

// FindByID finds an inventory item by its ID
func (r *GormInventoryItemRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.InventoryItem, error) {
	return r.findOne(r.db.WithContext(ctx), "id = ?", id)
}

// FindByIDForUpdate finds an inventory item and locks it
func (r *GormInventoryItemRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*inventory.InventoryItem, error) {
	return r.findOne(r.locked(ctx), "id = ?", id)
}

// FindByProductAndLocation finds the stock row for a product at a location
func (r *GormInventoryItemRepository) FindByProductAndLocation(ctx context.Context, productID uuid.UUID, location string) (*inventory.InventoryItem, error) {
	return r.findOne(r.db.WithContext(ctx), "product_id = ? AND location = ?", productID, location)
}

// FindByProductAndLocationForUpdate finds and locks the stock row for a product at a location
func (r *GormInventoryItemRepository) FindByProductAndLocationForUpdate(ctx context.Context, productID uuid.UUID, location string) (*inventory.InventoryItem, error) {
	return r.findOne(r.locked(ctx), "product_id = ? AND location = ?", productID, location)
}

// FindByProduct finds all stock rows of a product, ordered by location
func (r *GormInventoryItemRepository) FindByProduct(ctx context.Context, productID uuid.UUID) ([]inventory.InventoryItem, error) {
	return r.findMany(r.db.WithContext(ctx).Order("location ASC"), productID)
}

// FindByProductForUpdate finds and locks all stock rows of a product,
// largest quantity first
func (r *GormInventoryItemRepository) FindByProductForUpdate(ctx context.Context, productID uuid.UUID) ([]inventory.InventoryItem, error) {
	return r.findMany(r.locked(ctx).Order("quantity DESC").Order("location ASC"), productID)
}

func (r *GormInventoryItemRepository) locked(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"})
}

func (r *GormInventoryItemRepository) findOne(query *gorm.DB, cond string, args ...any) (*inventory.InventoryItem, error) {
	var model models.InventoryItemModel
	if err := query.Where(cond, args...).First(&model).Error; err != nil {
		return nil, translateError(err, "Inventory item")
	}
	return model.ToDomain(), nil
}

func (r *GormInventoryItemRepository) findMany(query *gorm.DB, productID uuid.UUID) ([]inventory.InventoryItem, error) {
	var itemModels []models.InventoryItemModel
	if err := query.Where("product_id = ?", productID).Find(&itemModels).Error; err != nil {
		return nil, err
	}
	items := make([]inventory.InventoryItem, len(itemModels))
	for i := range itemModels {
		items[i] = *itemModels[i].ToDomain()
	}
	return items, nil
}

// FindAll finds stock rows matching the filter, joined with product name and SKU
func (r *GormInventoryItemRepository) FindAll(ctx context.Context, filter shared.Filter) ([]inventory.StockView, error) {
	var rows []models.StockViewRow
	query := paginate(r.viewQuery(ctx, filter), filter, InventorySortFields, "inventory_items")
	if err := query.Select(stockViewColumns).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return toStockViews(rows), nil
}

// Count counts stock rows matching the filter
func (r *GormInventoryItemRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	if err := r.viewQuery(ctx, filter).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// FindViewByID finds one stock row joined with its product
func (r *GormInventoryItemRepository) FindViewByID(ctx context.Context, id uuid.UUID) (*inventory.StockView, error) {
	var rows []models.StockViewRow
	if err := r.viewQuery(ctx, shared.Filter{}).
		Where("inventory_items.id = ?", id).
		Select(stockViewColumns).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, shared.ErrNotFound
	}
	view := rows[0].ToDomain()
	return &view, nil
}

// FindLowStock finds all rows whose quantity is at or below threshold, lowest first
func (r *GormInventoryItemRepository) FindLowStock(ctx context.Context, threshold int) ([]inventory.StockView, error) {
	var rows []models.StockViewRow
	if err := r.viewQuery(ctx, shared.Filter{}).
		Where("inventory_items.quantity <= ?", threshold).
		Order("inventory_items.quantity ASC").
		Order("products.sku ASC").
		Select(stockViewColumns).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return toStockViews(rows), nil
}

// CountLowStock counts rows whose quantity is at or below threshold
func (r *GormInventoryItemRepository) CountLowStock(ctx context.Context, threshold int) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.InventoryItemModel{}).
		Where("quantity <= ?", threshold).
		Count(&count).Error
	return count, err
}

// SumQuantityByProduct returns the total quantity across locations per product
func (r *GormInventoryItemRepository) SumQuantityByProduct(ctx context.Context) (map[uuid.UUID]int, error) {
	var rows []struct {
		ProductID uuid.UUID
		Total     int
	}
	if err := r.db.WithContext(ctx).
		Model(&models.InventoryItemModel{}).
		Select("product_id, SUM(quantity) AS total").
		Group("product_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	totals := make(map[uuid.UUID]int, len(rows))
	for _, row := range rows {
		totals[row.ProductID] = row.Total
	}
	return totals, nil
}

// Save creates or updates an inventory item
func (r *GormInventoryItemRepository) Save(ctx context.Context, item *inventory.InventoryItem) error {
	model := models.InventoryItemModelFromDomain(item)
	return translateError(r.db.WithContext(ctx).Save(model).Error, "Inventory for this product and location")
}

func (r *GormInventoryItemRepository) viewQuery(ctx context.Context, filter shared.Filter) *gorm.DB {
	query := r.db.WithContext(ctx).
		Model(&models.InventoryItemModel{}).
		Joins("JOIN products ON products.id = inventory_items.product_id")

	if filter.Search != "" {
		pattern := likePattern(filter.Search)
		query = query.Where("LOWER(products.name) LIKE ? OR LOWER(products.sku) LIKE ? OR LOWER(inventory_items.location) LIKE ?",
			pattern, pattern, pattern)
	}
	for key, value := range filter.Filters {
		switch key {
		case "product_id":
			query = query.Where("inventory_items.product_id = ?", value)
		case "location":
			query = query.Where("inventory_items.location = ?", value)
		case "min_quantity":
			query = query.Where("inventory_items.quantity >= ?", value)
		}
	}
	return query
}

func toStockViews(rows []models.StockViewRow) []inventory.StockView {
	views := make([]inventory.StockView, len(rows))
	for i := range rows {
		views[i] = rows[i].ToDomain()
	}
	return views
}

// Ensure GormInventoryItemRepository implements InventoryItemRepository
var _ inventory.InventoryItemRepository = (*GormInventoryItemRepository)(nil)
