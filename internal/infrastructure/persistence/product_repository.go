package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/wms/backend/internal/domain/catalog"
	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormProductRepository implements ProductRepository using GORM
type GormProductRepository struct {
	db *gorm.DB
}

// NewGormProductRepository creates a new GormProductRepository
func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// FindByID finds a product by its ID
func (r *GormProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	return r.findOne(r.db.WithContext(ctx), "id = ?", id)
}

// FindByIDForUpdate finds a product and locks its row
func (r *GormProductRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	return r.findOne(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), "id = ?", id)
}

// FindBySKU finds a product by its SKU
func (r *GormProductRepository) FindBySKU(ctx context.Context, sku string) (*catalog.Product, error) {
	return r.findOne(r.db.WithContext(ctx), "sku = ?", sku)
}

// FindByShopifyID finds a product by its storefront identifier
func (r *GormProductRepository) FindByShopifyID(ctx context.Context, shopifyProductID string) (*catalog.Product, error) {
	return r.findOne(r.db.WithContext(ctx), "shopify_product_id = ?", shopifyProductID)
}

func (r *GormProductRepository) findOne(query *gorm.DB, cond string, args ...any) (*catalog.Product, error) {
	var model models.ProductModel
	if err := query.Where(cond, args...).First(&model).Error; err != nil {
		return nil, translateError(err, "Product")
	}
	return model.ToDomain(), nil
}

// FindByIDs finds multiple products by their IDs
func (r *GormProductRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]catalog.Product, error) {
	if len(ids) == 0 {
		return []catalog.Product{}, nil
	}
	var productModels []models.ProductModel
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&productModels).Error; err != nil {
		return nil, err
	}
	return toDomainProducts(productModels), nil
}

// FindAll finds all products matching the filter
func (r *GormProductRepository) FindAll(ctx context.Context, filter shared.Filter) ([]catalog.Product, error) {
	var productModels []models.ProductModel
	query := paginate(r.applyFilter(r.db.WithContext(ctx).Model(&models.ProductModel{}), filter), filter, ProductSortFields, "")
	if err := query.Find(&productModels).Error; err != nil {
		return nil, err
	}
	return toDomainProducts(productModels), nil
}

// Count counts products matching the filter
func (r *GormProductRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	if err := r.applyFilter(r.db.WithContext(ctx).Model(&models.ProductModel{}), filter).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ListAll returns every product, ordered by SKU
func (r *GormProductRepository) ListAll(ctx context.Context) ([]catalog.Product, error) {
	var productModels []models.ProductModel
	if err := r.db.WithContext(ctx).Order("sku ASC").Find(&productModels).Error; err != nil {
		return nil, err
	}
	return toDomainProducts(productModels), nil
}

// Save creates or updates a product
func (r *GormProductRepository) Save(ctx context.Context, product *catalog.Product) error {
	model := models.ProductModelFromDomain(product)
	return translateError(r.db.WithContext(ctx).Save(model).Error, "Product with this SKU, barcode or storefront ID")
}

// Delete deletes a product together with its stock rows and their adjustment history
func (r *GormProductRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		itemIDs := tx.Model(&models.InventoryItemModel{}).Select("id").Where("product_id = ?", id)
		if err := tx.Where("inventory_item_id IN (?)", itemIDs).Delete(&models.InventoryAdjustmentModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("product_id = ?", id).Delete(&models.InventoryItemModel{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.ProductModel{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// ExistsBySKU checks if another product already uses the SKU
func (r *GormProductRepository) ExistsBySKU(ctx context.Context, sku string, excludeID *uuid.UUID) (bool, error) {
	return r.exists(ctx, "sku = ?", sku, excludeID)
}

// ExistsByBarcode checks if another product already uses the barcode
func (r *GormProductRepository) ExistsByBarcode(ctx context.Context, barcode string, excludeID *uuid.UUID) (bool, error) {
	return r.exists(ctx, "barcode = ?", barcode, excludeID)
}

func (r *GormProductRepository) exists(ctx context.Context, cond, value string, excludeID *uuid.UUID) (bool, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&models.ProductModel{}).Where(cond, value)
	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// applyFilter applies search and key filters without pagination
func (r *GormProductRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" {
		pattern := likePattern(filter.Search)
		query = query.Where("LOWER(name) LIKE ? OR LOWER(sku) LIKE ?", pattern, pattern)
	}
	for key, value := range filter.Filters {
		s, ok := value.(string)
		if !ok || s == "" {
			continue
		}
		switch key {
		case "name":
			query = query.Where("LOWER(name) LIKE ?", likePattern(s))
		case "sku":
			query = query.Where("LOWER(sku) LIKE ?", likePattern(s))
		}
	}
	return query
}

func toDomainProducts(productModels []models.ProductModel) []catalog.Product {
	products := make([]catalog.Product, len(productModels))
	for i := range productModels {
		products[i] = *productModels[i].ToDomain()
	}
	return products
}

// Ensure GormProductRepository implements ProductRepository
var _ catalog.ProductRepository = (*GormProductRepository)(nil)
