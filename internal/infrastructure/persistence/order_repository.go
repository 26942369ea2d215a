package persistence

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/domain/trade"
	"github.com/wms/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormOrderRepository implements OrderRepository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// FindByID finds an order with its items
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*trade.Order, error) {
	return r.findOne(r.db.WithContext(ctx), "id = ?", id)
}

// FindByIDForUpdate finds an order with its items and locks the order row
func (r *GormOrderRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*trade.Order, error) {
	return r.findOne(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE", Table: clause.Table{Name: "orders"}}), "id = ?", id)
}

// FindByShopifyOrderID finds an order by its storefront identifier
func (r *GormOrderRepository) FindByShopifyOrderID(ctx context.Context, shopifyOrderID string) (*trade.Order, error) {
	return r.findOne(r.db.WithContext(ctx), "shopify_order_id = ?", shopifyOrderID)
}

func (r *GormOrderRepository) findOne(query *gorm.DB, cond string, args ...any) (*trade.Order, error) {
	var model models.OrderModel
	err := query.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Where(cond, args...).
		First(&model).Error
	if err != nil {
		return nil, translateError(err, "Order")
	}
	return model.ToDomain(), nil
}

// FindAll finds orders matching the filter, with their items
func (r *GormOrderRepository) FindAll(ctx context.Context, filter shared.Filter) ([]trade.Order, error) {
	var orderModels []models.OrderModel
	query := paginate(r.applyFilter(r.db.WithContext(ctx).Model(&models.OrderModel{}), filter), filter, OrderSortFields, "")
	if err := query.Preload("Items").Find(&orderModels).Error; err != nil {
		return nil, err
	}
	orders := make([]trade.Order, len(orderModels))
	for i := range orderModels {
		orders[i] = *orderModels[i].ToDomain()
	}
	return orders, nil
}

// Count counts orders matching the filter
func (r *GormOrderRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	if err := r.applyFilter(r.db.WithContext(ctx).Model(&models.OrderModel{}), filter).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Save creates or updates an order and replaces its items
func (r *GormOrderRepository) Save(ctx context.Context, order *trade.Order) error {
	model := models.OrderModelFromDomain(order)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(model).Error; err != nil {
			return translateError(err, "Order with this storefront ID")
		}

		// Delete lines no longer on the order
		keep := make([]uuid.UUID, len(model.Items))
		for i := range model.Items {
			keep[i] = model.Items[i].ID
		}
		stale := tx.Where("order_id = ?", model.ID)
		if len(keep) > 0 {
			stale = stale.Where("id NOT IN ?", keep)
		}
		if err := stale.Delete(&models.OrderItemModel{}).Error; err != nil {
			return err
		}

		for i := range model.Items {
			if err := tx.Save(&model.Items[i]).Error; err != nil {
				return translateError(err, "Order line")
			}
		}
		return nil
	})
}

// Delete removes an order and its items
func (r *GormOrderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", id).Delete(&models.OrderItemModel{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.OrderModel{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// CountItemsByProduct counts order lines that reference a product
func (r *GormOrderRepository) CountItemsByProduct(ctx context.Context, productID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.OrderItemModel{}).
		Where("product_id = ?", productID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// applyFilter applies search and key filters without pagination
func (r *GormOrderRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" {
		query = query.Where("LOWER(shopify_order_id) LIKE ? OR LOWER(tracking_number) LIKE ?",
			likePattern(filter.Search), likePattern(filter.Search))
	}
	for key, value := range filter.Filters {
		switch key {
		case "status":
			if s := fmt.Sprint(value); s != "" {
				query = query.Where("status = ?", s)
			}
		case "user_id":
			query = query.Where("user_id = ?", value)
		}
	}
	return query
}

// Ensure GormOrderRepository implements OrderRepository
var _ trade.OrderRepository = (*GormOrderRepository)(nil)
