package catalog

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/wms/backend/internal/application/unitofwork"
	"github.com/wms/backend/internal/domain/catalog"
	"github.com/wms/backend/internal/domain/integration"
	"github.com/wms/backend/internal/domain/inventory"
	"github.com/wms/backend/internal/domain/shared"
	"go.uber.org/zap"
)

const serviceName = "Shopify"

// ProductService handles product-related business operations.
// When a storefront is configured, every local change is mirrored to it inside
// the same unit of work; a remote failure rolls the local change back.
type ProductService struct {
	uow            unitofwork.TransactionScope
	productRepo    catalog.ProductRepository
	inventoryRepo  inventory.InventoryItemRepository
	catalog        integration.CatalogProvider
	syncLocker     integration.SyncLocker
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewProductService creates a new ProductService
func NewProductService(
	uow unitofwork.TransactionScope,
	productRepo catalog.ProductRepository,
	inventoryRepo inventory.InventoryItemRepository,
	logger *zap.Logger,
) *ProductService {
	return &ProductService{
		uow:           uow,
		productRepo:   productRepo,
		inventoryRepo: inventoryRepo,
		logger:        logger,
	}
}

// SetCatalogProvider sets the storefront products are mirrored to.
// A nil provider keeps product CRUD local.
func (s *ProductService) SetCatalogProvider(provider integration.CatalogProvider) {
	s.catalog = provider
}

// SetSyncLocker sets the guard that keeps synchronizations single-flight
func (s *ProductService) SetSyncLocker(locker integration.SyncLocker) {
	s.syncLocker = locker
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *ProductService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// Create creates a product locally and on the storefront
func (s *ProductService) Create(ctx context.Context, req CreateProductRequest) (*ProductResponse, error) {
	product, err := catalog.NewProduct(req.Name, req.SKU, req.Price)
	if err != nil {
		return nil, err
	}
	if err := product.Update(product.Name, req.Description); err != nil {
		return nil, err
	}
	if err := product.SetBarcode(req.Barcode); err != nil {
		return nil, err
	}
	if req.WeightKg != nil {
		if err := product.SetWeight(*req.WeightKg); err != nil {
			return nil, err
		}
	}

	var (
		remoteID string
		events   unitofwork.Events
	)
	err = s.uow.Execute(ctx, func(repos unitofwork.TransactionalRepositories) error {
		if err := ensureUnique(ctx, repos.ProductRepo(), product, nil); err != nil {
			return err
		}
		if err := repos.ProductRepo().Save(ctx, product); err != nil {
			return err
		}
		if s.catalog == nil {
			events.Collect(product)
			return nil
		}

		// Mirror to the storefront before commit
		id, err := s.catalog.CreateProduct(ctx, toProductInput(product))
		if err != nil {
			s.logger.Error("Remote product creation failed", zap.String("sku", product.SKU), zap.Error(err))
			return integration.ToDomainError(serviceName, err)
		}
		remoteID = id
		product.LinkRemote(id)
		if err := repos.ProductRepo().Save(ctx, product); err != nil {
			return err
		}
		events.Collect(product)
		return nil
	})
	if err != nil {
		if remoteID != "" {
			s.compensateRemoteCreate(ctx, remoteID, product.SKU)
		}
		return nil, err
	}

	events.Publish(ctx, s.eventPublisher, s.logger)
	s.logger.Info("Product created",
		zap.String("product_id", product.ID.String()),
		zap.String("sku", product.SKU),
		zap.String("shopify_product_id", remoteID))

	resp := ToProductResponse(product)
	return &resp, nil
}

// Update changes product fields and pushes them to the storefront when linked
func (s *ProductService) Update(ctx context.Context, id uuid.UUID, req UpdateProductRequest) (*ProductResponse, error) {
	var product *catalog.Product
	err := s.uow.Execute(ctx, func(repos unitofwork.TransactionalRepositories) error {
		var err error
		product, err = repos.ProductRepo().FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := applyUpdate(product, req); err != nil {
			return err
		}
		if err := ensureUnique(ctx, repos.ProductRepo(), product, &product.ID); err != nil {
			return err
		}
		if err := repos.ProductRepo().Save(ctx, product); err != nil {
			return err
		}

		if s.catalog == nil || !product.IsLinked() {
			return nil
		}
		if err := s.catalog.UpdateProduct(ctx, product.RemoteID(), toProductInput(product)); err != nil {
			s.logger.Error("Remote product update failed",
				zap.String("product_id", product.ID.String()),
				zap.String("shopify_product_id", product.RemoteID()),
				zap.Error(err))
			return integration.ToDomainError(serviceName, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Product updated", zap.String("product_id", product.ID.String()))
	resp := ToProductResponse(product)
	return &resp, nil
}

// Delete removes a product together with its stock rows and ledger.
// Products referenced by orders cannot be deleted.
func (s *ProductService) Delete(ctx context.Context, id uuid.UUID) error {
	var events unitofwork.Events
	err := s.uow.Execute(ctx, func(repos unitofwork.TransactionalRepositories) error {
		product, err := repos.ProductRepo().FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}

		// Check if any order line still references the product
		refs, err := repos.OrderRepo().CountItemsByProduct(ctx, id)
		if err != nil {
			return err
		}
		if refs > 0 {
			return shared.NewDomainError(shared.CodeInvalidState, "Product is referenced by orders and cannot be deleted").
				WithDetail("order_items", refs)
		}

		product.MarkDeleted()
		if err := repos.ProductRepo().Delete(ctx, id); err != nil {
			return err
		}

		if s.catalog != nil && product.IsLinked() {
			err := s.catalog.DeleteProduct(ctx, product.RemoteID())
			if err != nil && !errors.Is(err, integration.ErrPlatformNotFound) {
				s.logger.Error("Remote product deletion failed",
					zap.String("product_id", id.String()),
					zap.String("shopify_product_id", product.RemoteID()),
					zap.Error(err))
				return integration.ToDomainError(serviceName, err)
			}
		}
		events.Collect(product)
		return nil
	})
	if err != nil {
		return err
	}

	events.Publish(ctx, s.eventPublisher, s.logger)
	s.logger.Info("Product deleted", zap.String("product_id", id.String()))
	return nil
}

// GetByID retrieves a product by ID
func (s *ProductService) GetByID(ctx context.Context, id uuid.UUID) (*ProductResponse, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToProductResponse(product)
	return &resp, nil
}

// List retrieves a page of products
func (s *ProductService) List(ctx context.Context, filter ProductListFilter) (*shared.Paginated[ProductResponse], error) {
	f := shared.Filter{
		Page:     filter.Page,
		PageSize: filter.PageSize,
		OrderBy:  filter.OrderBy,
		OrderDir: filter.OrderDir,
		Search:   strings.TrimSpace(filter.Search),
		Filters:  make(map[string]interface{}),
	}
	if name := strings.TrimSpace(filter.Name); name != "" {
		f.Filters["name"] = name
	}
	if sku := strings.TrimSpace(filter.SKU); sku != "" {
		f.Filters["sku"] = sku
	}
	f = f.Normalize()

	products, err := s.productRepo.FindAll(ctx, f)
	if err != nil {
		return nil, err
	}
	total, err := s.productRepo.Count(ctx, f)
	if err != nil {
		return nil, err
	}

	page := shared.NewPaginated(ToProductResponses(products), total, f.Page, f.PageSize)
	return &page, nil
}

// GetInventory returns the stock of a product across locations
func (s *ProductService) GetInventory(ctx context.Context, id uuid.UUID) (*ProductInventoryResponse, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	items, err := s.inventoryRepo.FindByProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToProductInventoryResponse(product, items)
	return &resp, nil
}

// SyncWithExternal reconciles the local catalog with the storefront.
// Remote products are matched by remote ID and then by SKU; unmatched remote
// products are imported and unlinked local products are published.
// Each product is handled independently and failures are collected.
func (s *ProductService) SyncWithExternal(ctx context.Context) (*integration.SyncResult, error) {
	if s.catalog == nil {
		return nil, integration.ToDomainError(serviceName, integration.ErrPlatformNotConfigured)
	}
	if s.syncLocker != nil {
		release, err := s.syncLocker.Acquire(ctx, integration.SyncLockProducts)
		if err != nil {
			return nil, integration.ToDomainError(serviceName, err)
		}
		defer release()
	}

	remote, err := s.catalog.ListProducts(ctx)
	if err != nil {
		s.logger.Error("Listing remote products failed", zap.Error(err))
		return nil, integration.ToDomainError(serviceName, err)
	}
	local, err := s.productRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	byRemoteID := make(map[string]*catalog.Product, len(local))
	bySKU := make(map[string]*catalog.Product, len(local))
	for i := range local {
		p := &local[i]
		if p.IsLinked() {
			byRemoteID[p.RemoteID()] = p
		}
		bySKU[strings.ToLower(p.SKU)] = p
	}

	result := integration.NewSyncResult()
	matched := make(map[uuid.UUID]bool, len(local))

	for _, rp := range remote {
		product, ok := byRemoteID[rp.ID]
		if !ok && rp.SKU != "" {
			if candidate, found := bySKU[strings.ToLower(rp.SKU)]; found && !candidate.IsLinked() {
				product, ok = candidate, true
			}
		}

		if !ok {
			created, err := s.importRemote(ctx, rp)
			if err != nil {
				result.Fail(itemKey(rp.SKU, rp.ID), errorCode(err), err.Error())
				continue
			}
			matched[created.ID] = true
			result.Created()
			continue
		}

		matched[product.ID] = true
		changed, err := s.refreshFromRemote(ctx, product, rp)
		if err != nil {
			result.Fail(itemKey(rp.SKU, rp.ID), errorCode(err), err.Error())
			continue
		}
		if changed {
			result.Updated()
		} else {
			result.Skipped()
		}
	}

	// Publish local products the storefront does not know yet
	for i := range local {
		p := &local[i]
		if matched[p.ID] || p.IsLinked() {
			continue
		}
		if err := s.publishLocal(ctx, p); err != nil {
			result.Fail(p.SKU, errorCode(err), err.Error())
			continue
		}
		result.Created()
	}

	result.Finish()
	s.logger.Info("Product sync finished",
		zap.String("status", string(result.Status)),
		zap.Int("created", result.CreatedCount),
		zap.Int("updated", result.UpdatedCount),
		zap.Int("failed", result.FailedCount))
	return result, nil
}

func (s *ProductService) importRemote(ctx context.Context, rp integration.RemoteProduct) (*catalog.Product, error) {
	sku := rp.SKU
	if strings.TrimSpace(sku) == "" {
		return nil, shared.NewDomainError(shared.CodeValidation, "Remote product has no SKU")
	}
	product, err := catalog.NewProduct(rp.Title, sku, rp.Price)
	if err != nil {
		return nil, err
	}
	if err := product.Update(product.Name, rp.Description); err != nil {
		return nil, err
	}
	if err := product.SetBarcode(rp.Barcode); err != nil {
		return nil, err
	}
	if err := product.SetWeight(rp.WeightKg); err != nil {
		return nil, err
	}
	product.LinkRemote(rp.ID)

	if err := ensureUnique(ctx, s.productRepo, product, nil); err != nil {
		return nil, err
	}
	if err := s.productRepo.Save(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

func (s *ProductService) refreshFromRemote(ctx context.Context, product *catalog.Product, rp integration.RemoteProduct) (bool, error) {
	changed := !product.IsLinked()
	product.LinkRemote(rp.ID)

	if (rp.Title != "" && rp.Title != product.Name) || rp.Description != product.Description {
		name := product.Name
		if rp.Title != "" {
			name = rp.Title
		}
		if err := product.Update(name, rp.Description); err != nil {
			return false, err
		}
		changed = true
	}
	if rp.Price.IsPositive() && !rp.Price.Round(2).Equal(product.Price) {
		if err := product.SetPrice(rp.Price); err != nil {
			return false, err
		}
		changed = true
	}
	if !rp.WeightKg.IsNegative() && !rp.WeightKg.Equal(product.WeightKg) {
		if err := product.SetWeight(rp.WeightKg); err != nil {
			return false, err
		}
		changed = true
	}
	if rp.Barcode != "" && (product.Barcode == nil || *product.Barcode != rp.Barcode) {
		if err := product.SetBarcode(rp.Barcode); err != nil {
			return false, err
		}
		if err := ensureUnique(ctx, s.productRepo, product, &product.ID); err != nil {
			return false, err
		}
		changed = true
	}

	if !changed {
		return false, nil
	}
	return true, s.productRepo.Save(ctx, product)
}

func (s *ProductService) publishLocal(ctx context.Context, product *catalog.Product) error {
	remoteID, err := s.catalog.CreateProduct(ctx, toProductInput(product))
	if err != nil {
		return integration.ToDomainError(serviceName, err)
	}
	product.LinkRemote(remoteID)
	if err := s.productRepo.Save(ctx, product); err != nil {
		s.compensateRemoteCreate(ctx, remoteID, product.SKU)
		return err
	}
	return nil
}

// compensateRemoteCreate removes a remote product whose local twin was not committed
func (s *ProductService) compensateRemoteCreate(ctx context.Context, remoteID, sku string) {
	if err := s.catalog.DeleteProduct(ctx, remoteID); err != nil && !errors.Is(err, integration.ErrPlatformNotFound) {
		s.logger.Error("Failed to remove orphaned remote product",
			zap.String("shopify_product_id", remoteID),
			zap.String("sku", sku),
			zap.Error(err))
		return
	}
	s.logger.Warn("Removed remote product after local failure",
		zap.String("shopify_product_id", remoteID),
		zap.String("sku", sku))
}

func applyUpdate(product *catalog.Product, req UpdateProductRequest) error {
	if req.Name != nil || req.Description != nil {
		name, description := product.Name, product.Description
		if req.Name != nil {
			name = *req.Name
		}
		if req.Description != nil {
			description = *req.Description
		}
		if err := product.Update(name, description); err != nil {
			return err
		}
	}
	if req.SKU != nil {
		if err := product.SetSKU(*req.SKU); err != nil {
			return err
		}
	}
	if req.Barcode != nil {
		if err := product.SetBarcode(*req.Barcode); err != nil {
			return err
		}
	}
	if req.Price != nil {
		if err := product.SetPrice(*req.Price); err != nil {
			return err
		}
	}
	if req.WeightKg != nil {
		if err := product.SetWeight(*req.WeightKg); err != nil {
			return err
		}
	}
	return nil
}

func ensureUnique(ctx context.Context, repo catalog.ProductRepository, product *catalog.Product, excludeID *uuid.UUID) error {
	exists, err := repo.ExistsBySKU(ctx, product.SKU, excludeID)
	if err != nil {
		return err
	}
	if exists {
		return shared.NewDomainError(shared.CodeAlreadyExists, "Product with this SKU already exists").
			WithDetail("sku", product.SKU)
	}
	if product.Barcode != nil {
		exists, err = repo.ExistsByBarcode(ctx, *product.Barcode, excludeID)
		if err != nil {
			return err
		}
		if exists {
			return shared.NewDomainError(shared.CodeAlreadyExists, "Product with this barcode already exists").
				WithDetail("barcode", *product.Barcode)
		}
	}
	return nil
}

func toProductInput(p *catalog.Product) integration.ProductInput {
	input := integration.ProductInput{
		Title:       p.Name,
		SKU:         p.SKU,
		Description: p.Description,
		Price:       p.Price,
		WeightKg:    p.WeightKg,
	}
	if p.Barcode != nil {
		input.Barcode = *p.Barcode
	}
	return input
}

func itemKey(sku, remoteID string) string {
	if sku != "" {
		return sku
	}
	return remoteID
}

func errorCode(err error) string {
	var de *shared.DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return shared.CodeInternal
}
