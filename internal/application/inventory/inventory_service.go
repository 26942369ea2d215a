package inventory

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wms/backend/internal/application/unitofwork"
	"github.com/wms/backend/internal/domain/catalog"
	"github.com/wms/backend/internal/domain/integration"
	"github.com/wms/backend/internal/domain/inventory"
	"github.com/wms/backend/internal/domain/shared"
	"go.uber.org/zap"
)

const catalogServiceName = "Shopify"

// StockExporter renders stock rows as a downloadable document
type StockExporter interface {
	ContentType() string
	Extension() string
	WriteStock(w io.Writer, rows []inventory.StockView) error
}

// InventoryService handles stock levels and the adjustment ledger.
// Every quantity change runs in one transaction that locks the affected rows
// and appends the matching adjustment.
type InventoryService struct {
	uow            unitofwork.TransactionScope
	inventoryRepo  inventory.InventoryItemRepository
	adjustmentRepo inventory.AdjustmentRepository
	productRepo    catalog.ProductRepository
	eventPublisher shared.EventPublisher
	catalog        integration.CatalogProvider
	syncLocker     integration.SyncLocker
	exporter       StockExporter
	logger         *zap.Logger
}

// NewInventoryService creates a new InventoryService
func NewInventoryService(
	uow unitofwork.TransactionScope,
	inventoryRepo inventory.InventoryItemRepository,
	adjustmentRepo inventory.AdjustmentRepository,
	productRepo catalog.ProductRepository,
	logger *zap.Logger,
) *InventoryService {
	return &InventoryService{
		uow:            uow,
		inventoryRepo:  inventoryRepo,
		adjustmentRepo: adjustmentRepo,
		productRepo:    productRepo,
		logger:         logger,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *InventoryService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetCatalogProvider sets the storefront used by SyncWithExternal
func (s *InventoryService) SetCatalogProvider(provider integration.CatalogProvider) {
	s.catalog = provider
}

// SetSyncLocker sets the guard that keeps synchronizations single-flight
func (s *InventoryService) SetSyncLocker(locker integration.SyncLocker) {
	s.syncLocker = locker
}

// SetExporter sets the renderer used by Export
func (s *InventoryService) SetExporter(exporter StockExporter) {
	s.exporter = exporter
}

// List returns a page of stock rows with their product identity
func (s *InventoryService) List(ctx context.Context, filter ListFilter) (*shared.Paginated[StockResponse], error) {
	f := shared.Filter{
		Page:     filter.Page,
		PageSize: filter.PageSize,
		OrderBy:  filter.OrderBy,
		OrderDir: filter.OrderDir,
		Search:   strings.TrimSpace(filter.Search),
		Filters:  make(map[string]interface{}),
	}
	if filter.ProductID != nil {
		f.Filters["product_id"] = *filter.ProductID
	}
	if loc := strings.TrimSpace(filter.Location); loc != "" {
		f.Filters["location"] = loc
	}
	if filter.MinQuantity != nil {
		f.Filters["min_quantity"] = *filter.MinQuantity
	}
	f = f.Normalize()

	views, err := s.inventoryRepo.FindAll(ctx, f)
	if err != nil {
		return nil, err
	}
	total, err := s.inventoryRepo.Count(ctx, f)
	if err != nil {
		return nil, err
	}

	page := shared.NewPaginated(ToStockViewResponses(views), total, f.Page, f.PageSize)
	return &page, nil
}

// GetByID returns one stock row
func (s *InventoryService) GetByID(ctx context.Context, id uuid.UUID) (*StockResponse, error) {
	view, err := s.inventoryRepo.FindViewByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToStockViewResponse(view)
	return &resp, nil
}

// GetLowStock returns every row at or below the threshold, lowest first
func (s *InventoryService) GetLowStock(ctx context.Context, threshold int) ([]StockResponse, error) {
	if threshold < 0 {
		return nil, shared.NewDomainError(shared.CodeValidation, "Threshold cannot be negative")
	}
	views, err := s.inventoryRepo.FindLowStock(ctx, threshold)
	if err != nil {
		return nil, err
	}
	return ToStockViewResponses(views), nil
}

// ListAdjustments returns the ledger of a stock row, newest first
func (s *InventoryService) ListAdjustments(ctx context.Context, itemID uuid.UUID, page, pageSize int) (*shared.Paginated[AdjustmentResponse], error) {
	if _, err := s.inventoryRepo.FindByID(ctx, itemID); err != nil {
		return nil, err
	}
	f := shared.Filter{Page: page, PageSize: pageSize}.Normalize()

	adjustments, err := s.adjustmentRepo.FindByItem(ctx, itemID, f)
	if err != nil {
		return nil, err
	}
	total, err := s.adjustmentRepo.CountByItem(ctx, itemID)
	if err != nil {
		return nil, err
	}

	result := shared.NewPaginated(ToAdjustmentResponses(adjustments), total, f.Page, f.PageSize)
	return &result, nil
}

// Create opens a stock row for a product at a location.
// A positive initial quantity is recorded as an adjustment.
func (s *InventoryService) Create(ctx context.Context, req CreateRequest, userID uuid.UUID) (*StockResponse, error) {
	if req.InitialQuantity < 0 {
		return nil, shared.NewDomainError(shared.CodeValidation, "Initial quantity cannot be negative")
	}

	item, err := inventory.NewInventoryItem(req.ProductID, req.Location)
	if err != nil {
		return nil, err
	}

	var events unitofwork.Events
	err = s.uow.Execute(ctx, func(repos unitofwork.TransactionalRepositories) error {
		if _, err := repos.ProductRepo().FindByID(ctx, req.ProductID); err != nil {
			return err
		}
		if _, err := repos.InventoryRepo().FindByProductAndLocation(ctx, req.ProductID, item.Location); err == nil {
			return shared.NewDomainError(shared.CodeAlreadyExists, "Inventory for this product and location already exists").
				WithDetail("location", item.Location)
		} else if !shared.IsCode(err, shared.CodeNotFound) {
			return err
		}

		if req.InitialQuantity == 0 {
			return repos.InventoryRepo().Save(ctx, item)
		}

		adjustment, err := item.Adjust(req.InitialQuantity, inventory.ReasonInitialStock, userID)
		if err != nil {
			return err
		}
		if err := repos.InventoryRepo().Save(ctx, item); err != nil {
			return err
		}
		if err := repos.AdjustmentRepo().Create(ctx, adjustment); err != nil {
			return err
		}
		events.Collect(item)
		return nil
	})
	if err != nil {
		return nil, err
	}

	events.Publish(ctx, s.eventPublisher, s.logger)
	s.logger.Info("Inventory item created",
		zap.String("inventory_item_id", item.ID.String()),
		zap.String("product_id", item.ProductID.String()),
		zap.String("location", item.Location),
		zap.Int("quantity", item.Quantity))

	resp := ToStockResponse(item)
	return &resp, nil
}

// Adjust applies a signed quantity change to a stock row.
// A change that would take the quantity below zero fails with
// INVALID_ADJUSTMENT and leaves both the row and the ledger untouched.
func (s *InventoryService) Adjust(ctx context.Context, req AdjustRequest, userID uuid.UUID) (*AdjustResult, error) {
	var (
		item       *inventory.InventoryItem
		adjustment *inventory.InventoryAdjustment
		events     unitofwork.Events
	)
	err := s.uow.Execute(ctx, func(repos unitofwork.TransactionalRepositories) error {
		var err error
		item, err = repos.InventoryRepo().FindByIDForUpdate(ctx, req.InventoryItemID)
		if err != nil {
			return err
		}
		adjustment, err = item.Adjust(req.QuantityChange, req.Reason, userID)
		if err != nil {
			return err
		}
		if err := repos.InventoryRepo().Save(ctx, item); err != nil {
			return err
		}
		if err := repos.AdjustmentRepo().Create(ctx, adjustment); err != nil {
			return err
		}
		events.Collect(item)
		return nil
	})
	if err != nil {
		return nil, err
	}

	events.Publish(ctx, s.eventPublisher, s.logger)
	s.logger.Info("Inventory adjusted",
		zap.String("inventory_item_id", item.ID.String()),
		zap.Int("quantity_change", adjustment.QuantityChange),
		zap.Int("new_quantity", item.Quantity),
		zap.String("user_id", userID.String()))

	return &AdjustResult{
		Item:       ToStockResponse(item),
		Adjustment: ToAdjustmentResponse(adjustment),
	}, nil
}

// Transfer moves stock of one product between two existing locations.
// Both rows are locked in id order so that opposite transfers cannot deadlock.
func (s *InventoryService) Transfer(ctx context.Context, req TransferRequest, userID uuid.UUID) (*TransferResult, error) {
	fromLocation := strings.TrimSpace(req.FromLocation)
	toLocation := strings.TrimSpace(req.ToLocation)
	if req.Quantity <= 0 {
		return nil, shared.NewDomainError(shared.CodeValidation, "Transfer quantity must be positive")
	}
	if fromLocation == "" || toLocation == "" {
		return nil, shared.NewDomainError(shared.CodeValidation, "Both locations are required")
	}
	if fromLocation == toLocation {
		return nil, shared.NewDomainError(shared.CodeValidation, "Source and destination locations must differ")
	}

	var (
		source, destination *inventory.InventoryItem
		events              unitofwork.Events
	)
	err := s.uow.Execute(ctx, func(repos unitofwork.TransactionalRepositories) error {
		repo := repos.InventoryRepo()

		// Resolve ids without locks, then lock in a stable order.
		src, err := repo.FindByProductAndLocation(ctx, req.ProductID, fromLocation)
		if err != nil {
			return notFoundAt(err, fromLocation)
		}
		dst, err := repo.FindByProductAndLocation(ctx, req.ProductID, toLocation)
		if err != nil {
			return notFoundAt(err, toLocation)
		}

		first, second := src.ID, dst.ID
		if strings.Compare(first.String(), second.String()) > 0 {
			first, second = second, first
		}
		locked := make(map[uuid.UUID]*inventory.InventoryItem, 2)
		for _, id := range []uuid.UUID{first, second} {
			row, err := repo.FindByIDForUpdate(ctx, id)
			if err != nil {
				return err
			}
			locked[id] = row
		}
		source, destination = locked[src.ID], locked[dst.ID]

		out, err := source.Withdraw(req.Quantity, inventory.TransferOutReason(toLocation), userID)
		if err != nil {
			return err
		}
		in, err := destination.Restock(req.Quantity, inventory.TransferInReason(fromLocation), userID)
		if err != nil {
			return err
		}

		if err := repo.Save(ctx, source); err != nil {
			return err
		}
		if err := repo.Save(ctx, destination); err != nil {
			return err
		}
		if err := repos.AdjustmentRepo().CreateBatch(ctx, []*inventory.InventoryAdjustment{out, in}); err != nil {
			return err
		}
		events.Collect(source, destination)
		return nil
	})
	if err != nil {
		return nil, err
	}

	events.Publish(ctx, s.eventPublisher, s.logger)
	s.logger.Info("Inventory transferred",
		zap.String("product_id", req.ProductID.String()),
		zap.String("from", fromLocation),
		zap.String("to", toLocation),
		zap.Int("quantity", req.Quantity))

	return &TransferResult{From: ToStockResponse(source), To: ToStockResponse(destination)}, nil
}

// Count reconciles a stock row with a physical count
func (s *InventoryService) Count(ctx context.Context, itemID uuid.UUID, req CountRequest, userID uuid.UUID) (*CountResult, error) {
	var (
		item       *inventory.InventoryItem
		adjustment *inventory.InventoryAdjustment
		events     unitofwork.Events
	)
	err := s.uow.Execute(ctx, func(repos unitofwork.TransactionalRepositories) error {
		var err error
		item, err = repos.InventoryRepo().FindByIDForUpdate(ctx, itemID)
		if err != nil {
			return err
		}
		adjustment, err = item.RecordCount(req.CountedQuantity, userID)
		if err != nil {
			return err
		}
		if err := repos.InventoryRepo().Save(ctx, item); err != nil {
			return err
		}
		if adjustment != nil {
			if err := repos.AdjustmentRepo().Create(ctx, adjustment); err != nil {
				return err
			}
		}
		events.Collect(item)
		return nil
	})
	if err != nil {
		return nil, err
	}

	events.Publish(ctx, s.eventPublisher, s.logger)

	result := &CountResult{Item: ToStockResponse(item)}
	if adjustment != nil {
		resp := ToAdjustmentResponse(adjustment)
		result.Adjustment = &resp
	}
	return result, nil
}

// SyncWithExternal pushes the total quantity of every linked product to the
// storefront. Failures of single products are collected and do not stop the run.
func (s *InventoryService) SyncWithExternal(ctx context.Context) (*integration.SyncResult, error) {
	if s.catalog == nil {
		return nil, integration.ToDomainError(catalogServiceName, integration.ErrPlatformNotConfigured)
	}
	if s.syncLocker != nil {
		release, err := s.syncLocker.Acquire(ctx, integration.SyncLockInventory)
		if err != nil {
			return nil, integration.ToDomainError(catalogServiceName, err)
		}
		defer release()
	}

	products, err := s.productRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	totals, err := s.inventoryRepo.SumQuantityByProduct(ctx)
	if err != nil {
		return nil, err
	}

	result := integration.NewSyncResult()
	for i := range products {
		product := &products[i]
		if !product.IsLinked() {
			result.Skipped()
			continue
		}
		available := totals[product.ID]
		if err := s.catalog.SetInventoryLevel(ctx, product.RemoteID(), available); err != nil {
			s.logger.Warn("Inventory level sync failed",
				zap.String("sku", product.SKU),
				zap.String("shopify_product_id", product.RemoteID()),
				zap.Error(err))
			de := integration.ToDomainError(catalogServiceName, err)
			result.Fail(product.SKU, errorCode(de), err.Error())
			continue
		}
		result.Updated()
	}
	result.Finish()

	s.logger.Info("Inventory sync finished",
		zap.String("status", string(result.Status)),
		zap.Int("total", result.TotalCount),
		zap.Int("failed", result.FailedCount))
	return result, nil
}

// Export renders every stock row with the configured exporter
func (s *InventoryService) Export(ctx context.Context) (*ExportFile, error) {
	if s.exporter == nil {
		return nil, shared.NewDomainError(shared.CodeInternal, "Stock export is not available")
	}

	var rows []inventory.StockView
	f := shared.Filter{Page: 1, PageSize: shared.MaxPageSize, OrderBy: "location", OrderDir: "asc"}.Normalize()
	for {
		page, err := s.inventoryRepo.FindAll(ctx, f)
		if err != nil {
			return nil, err
		}
		rows = append(rows, page...)
		if len(page) < f.PageSize {
			break
		}
		f.Page++
	}

	var buf bytes.Buffer
	if err := s.exporter.WriteStock(&buf, rows); err != nil {
		s.logger.Error("Stock export failed", zap.Error(err))
		return nil, shared.NewDomainError(shared.CodeInternal, "Failed to render stock export")
	}

	return &ExportFile{
		Filename:    fmt.Sprintf("inventory-%s.%s", time.Now().Format("20060102-150405"), s.exporter.Extension()),
		ContentType: s.exporter.ContentType(),
		Data:        buf.Bytes(),
	}, nil
}

func notFoundAt(err error, location string) error {
	if shared.IsCode(err, shared.CodeNotFound) {
		return shared.NewDomainError(shared.CodeNotFound, "No inventory for this product at "+location).
			WithDetail("location", location)
	}
	return err
}

func errorCode(err error) string {
	var de *shared.DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return shared.CodeInternal
}
