package trade

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wms/backend/internal/application/shipping"
	"github.com/wms/backend/internal/application/unitofwork"
	"github.com/wms/backend/internal/domain/integration"
	"github.com/wms/backend/internal/domain/inventory"
	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/domain/trade"
	"go.uber.org/zap"
)

const (
	storefrontName = "Shopify"
	carrierName    = "Sendle"
)

// LabelArchiver keeps a copy of a generated shipping label
type LabelArchiver interface {
	Archive(ctx context.Context, order *trade.Order) string
}

// ServiceConfig contains configuration for the order service
type ServiceConfig struct {
	// DefaultWeightKg is used per unit when a product has no weight
	DefaultWeightKg decimal.Decimal
	// Carrier is reported to the storefront when an order ships
	Carrier string
}

// DefaultServiceConfig returns default configuration
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		DefaultWeightKg: shipping.DefaultServiceConfig().DefaultWeightKg,
		Carrier:         carrierName,
	}
}

// OrderService handles the order lifecycle and its effect on stock
type OrderService struct {
	uow            unitofwork.TransactionScope
	orderRepo      trade.OrderRepository
	shipping       integration.ShippingProvider
	catalog        integration.CatalogProvider
	archiver       LabelArchiver
	syncLocker     integration.SyncLocker
	eventPublisher shared.EventPublisher
	config         ServiceConfig
	logger         *zap.Logger
}

// NewOrderService creates a new OrderService
func NewOrderService(uow unitofwork.TransactionScope, orderRepo trade.OrderRepository, config ServiceConfig, logger *zap.Logger) *OrderService {
	defaults := DefaultServiceConfig()
	if !config.DefaultWeightKg.IsPositive() {
		config.DefaultWeightKg = defaults.DefaultWeightKg
	}
	if config.Carrier == "" {
		config.Carrier = defaults.Carrier
	}
	return &OrderService{
		uow:       uow,
		orderRepo: orderRepo,
		config:    config,
		logger:    logger,
	}
}

// SetShippingProvider sets the carrier used for fulfillment labels
func (s *OrderService) SetShippingProvider(provider integration.ShippingProvider) {
	s.shipping = provider
}

// SetCatalogProvider sets the storefront used for order sync and fulfillment updates
func (s *OrderService) SetCatalogProvider(provider integration.CatalogProvider) {
	s.catalog = provider
}

// SetLabelArchiver sets the archiver for labels generated during fulfillment
func (s *OrderService) SetLabelArchiver(archiver LabelArchiver) {
	s.archiver = archiver
}

// SetSyncLocker sets the lock guarding order sync
func (s *OrderService) SetSyncLocker(locker integration.SyncLocker) {
	s.syncLocker = locker
}

// SetEventPublisher sets the event publisher for order events
func (s *OrderService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// lineSpec is a line to place on an order
type lineSpec struct {
	productID uuid.UUID
	quantity  int
	price     *decimal.Decimal
	location  string
}

// mergeLines folds lines for the same product into one, keeping the order of
// first appearance. Quantities add up and explicit prices collapse to their
// quantity-weighted mean.
func mergeLines(lines []lineSpec) ([]lineSpec, error) {
	merged := make([]lineSpec, 0, len(lines))
	index := make(map[uuid.UUID]int, len(lines))
	subtotals := make([]decimal.Decimal, 0, len(lines))
	folded := make([]bool, 0, len(lines))

	for _, l := range lines {
		if l.quantity < 1 {
			return nil, shared.NewDomainError(shared.CodeValidation, "Quantity must be at least 1").
				WithDetail("product_id", l.productID.String())
		}
		var subtotal decimal.Decimal
		if l.price != nil {
			subtotal = l.price.Mul(decimal.NewFromInt(int64(l.quantity)))
		}

		i, seen := index[l.productID]
		if !seen {
			index[l.productID] = len(merged)
			merged = append(merged, l)
			subtotals = append(subtotals, subtotal)
			folded = append(folded, false)
			continue
		}

		m := &merged[i]
		if (m.price == nil) != (l.price == nil) {
			return nil, shared.NewDomainError(shared.CodeValidation, "Lines for the same product must all set a price or none").
				WithDetail("product_id", l.productID.String())
		}
		if m.location != "" && l.location != "" && m.location != l.location {
			return nil, shared.NewDomainError(shared.CodeValidation, "Lines for the same product pin different locations").
				WithDetail("product_id", l.productID.String())
		}
		if m.location == "" {
			m.location = l.location
		}
		m.quantity += l.quantity
		subtotals[i] = subtotals[i].Add(subtotal)
		folded[i] = true
	}

	for i := range merged {
		if folded[i] && merged[i].price != nil {
			price := subtotals[i].Div(decimal.NewFromInt(int64(merged[i].quantity))).Round(2)
			merged[i].price = &price
		}
	}
	return merged, nil
}

// Create creates an order and takes its lines out of stock atomically.
// Nothing is written when any line cannot be covered.
func (s *OrderService) Create(ctx context.Context, req CreateOrderRequest, userID uuid.UUID) (*OrderResponse, error) {
	if len(req.Items) == 0 {
		return nil, shared.NewDomainError(shared.CodeValidation, "Order must have at least one item")
	}

	orderDate := time.Now()
	if req.OrderDate != nil {
		orderDate = *req.OrderDate
	}
	order, err := trade.NewOrder(req.ShopifyOrderID, userID, req.ShippingAddress, orderDate)
	if err != nil {
		return nil, err
	}

	lines := make([]lineSpec, len(req.Items))
	for i, item := range req.Items {
		lines[i] = lineSpec{
			productID: item.ProductID,
			quantity:  item.Quantity,
			price:     item.Price,
			location:  strings.TrimSpace(item.Location),
		}
	}

	lines, err = mergeLines(lines)
	if err != nil {
		return nil, err
	}

	var events unitofwork.Events
	err = s.uow.Execute(ctx, func(repos unitofwork.TransactionalRepositories) error {
		return s.placeOrder(ctx, repos, &events, order, lines, userID)
	})
	if err != nil {
		s.logger.Warn("Order creation failed",
			zap.String("shopify_order_id", order.ShopifyOrderID),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("Order created",
		zap.String("order_id", order.ID.String()),
		zap.String("shopify_order_id", order.ShopifyOrderID),
		zap.Int("items", len(order.Items)))
	events.Publish(ctx, s.eventPublisher, s.logger)

	resp := ToOrderResponse(order)
	return &resp, nil
}

// placeOrder adds the lines, withdraws their stock and saves the order
func (s *OrderService) placeOrder(ctx context.Context, repos unitofwork.TransactionalRepositories, events *unitofwork.Events, order *trade.Order, lines []lineSpec, userID uuid.UUID) error {
	if !order.IsLocal() {
		_, err := repos.OrderRepo().FindByShopifyOrderID(ctx, order.ShopifyOrderID)
		if err == nil {
			return shared.NewDomainError(shared.CodeAlreadyExists, "Order with this storefront ID already exists").
				WithDetail("shopify_order_id", order.ShopifyOrderID)
		}
		if !shared.IsCode(err, shared.CodeNotFound) {
			return err
		}
	}

	mover := newStockMover(repos, events, userID)
	reason := orderReason(order, "placed")
	for _, line := range lines {
		if err := s.addLine(ctx, repos, mover, order, line, reason); err != nil {
			return err
		}
	}

	order.MarkCreated()
	if err := repos.OrderRepo().Save(ctx, order); err != nil {
		return err
	}
	events.Collect(order)
	return nil
}

// addLine puts a new line on the order and withdraws its stock
func (s *OrderService) addLine(ctx context.Context, repos unitofwork.TransactionalRepositories, mover *stockMover, order *trade.Order, line lineSpec, reason string) error {
	product, err := repos.ProductRepo().FindByID(ctx, line.productID)
	if err != nil {
		if shared.IsCode(err, shared.CodeNotFound) {
			return shared.NewDomainError(shared.CodeNotFound, "Product not found").
				WithDetail("product_id", line.productID.String())
		}
		return err
	}

	price := product.Price
	if line.price != nil {
		price = *line.price
	}
	item, err := order.AddItem(product.ID, line.quantity, price)
	if err != nil {
		return err
	}

	row, err := mover.take(ctx, product.ID, line.quantity, nil, line.location, reason)
	if err != nil {
		return err
	}
	item.InventoryItemID = &row.ID
	return nil
}

// Update applies a partial change to a non-terminal order.
// Line quantity changes move stock by the difference; cancelling restocks every line.
func (s *OrderService) Update(ctx context.Context, id uuid.UUID, req UpdateOrderRequest, userID uuid.UUID) (*OrderResponse, error) {
	var target *trade.OrderStatus
	if req.Status != nil {
		status := trade.OrderStatus(strings.ToUpper(strings.TrimSpace(*req.Status)))
		if !status.IsValid() {
			return nil, shared.NewDomainError(shared.CodeValidation, "Unknown order status").
				WithDetail("status", *req.Status)
		}
		if status == trade.OrderStatusFulfilled {
			return nil, shared.NewDomainError(shared.CodeInvalidState, "Use the fulfillment endpoint to fulfill an order")
		}
		target = &status
	}

	var (
		order  *trade.Order
		events unitofwork.Events
	)
	err := s.uow.Execute(ctx, func(repos unitofwork.TransactionalRepositories) error {
		var err error
		order, err = repos.OrderRepo().FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !order.CanModify() {
			return shared.NewDomainError(shared.CodeInvalidState, "Order is "+order.Status.String()+" and can no longer be modified")
		}

		if req.ShippingAddress != nil {
			if err := order.SetShippingAddress(*req.ShippingAddress); err != nil {
				return err
			}
		}
		if req.TrackingNumber != nil {
			if err := order.SetTrackingNumber(*req.TrackingNumber); err != nil {
				return err
			}
		}

		mover := newStockMover(repos, &events, userID)
		reason := orderReason(order, "updated")
		for _, patch := range req.Items {
			if err := s.applyLinePatch(ctx, repos, mover, order, patch, reason); err != nil {
				return err
			}
		}
		if len(order.Items) == 0 {
			return shared.NewDomainError(shared.CodeValidation, "Order must keep at least one item")
		}

		if target != nil && *target != order.Status {
			if *target == trade.OrderStatusCancelled {
				if err := mover.restockAll(ctx, order, orderReason(order, "cancelled")); err != nil {
					return err
				}
				if err := order.Cancel(); err != nil {
					return err
				}
			} else if err := order.TransitionTo(*target); err != nil {
				return err
			}
		}

		if err := repos.OrderRepo().Save(ctx, order); err != nil {
			return err
		}
		events.Collect(order)
		return nil
	})
	if err != nil {
		s.logger.Warn("Order update failed", zap.String("order_id", id.String()), zap.Error(err))
		return nil, err
	}

	s.logger.Info("Order updated",
		zap.String("order_id", order.ID.String()),
		zap.String("status", order.Status.String()))
	events.Publish(ctx, s.eventPublisher, s.logger)

	resp := ToOrderResponse(order)
	return &resp, nil
}

func (s *OrderService) applyLinePatch(ctx context.Context, repos unitofwork.TransactionalRepositories, mover *stockMover, order *trade.Order, patch OrderLinePatch, reason string) error {
	if patch.Quantity < 0 {
		return shared.NewDomainError(shared.CodeValidation, "Quantity cannot be negative")
	}
	location := strings.TrimSpace(patch.Location)
	existing := order.GetItemByProduct(patch.ProductID)

	// Check if the line is new
	if existing == nil {
		if patch.Quantity == 0 {
			return shared.NewDomainError(shared.CodeNotFound, "Order has no line for this product").
				WithDetail("product_id", patch.ProductID.String())
		}
		return s.addLine(ctx, repos, mover, order, lineSpec{
			productID: patch.ProductID,
			quantity:  patch.Quantity,
			price:     patch.Price,
			location:  location,
		}, reason)
	}

	if patch.Quantity == 0 {
		removed, err := order.RemoveItem(patch.ProductID)
		if err != nil {
			return err
		}
		return mover.restock(ctx, removed, removed.Quantity, reason)
	}

	delta, err := order.UpdateItemQuantity(patch.ProductID, patch.Quantity)
	if err != nil {
		return err
	}
	item := existing
	switch {
	case delta > 0:
		if err := mover.extend(ctx, item, delta, location, reason); err != nil {
			return err
		}
	case delta < 0:
		if err := mover.restock(ctx, *item, -delta, reason); err != nil {
			return err
		}
	}

	if patch.Price != nil {
		if err := order.UpdateItemPrice(patch.ProductID, *patch.Price); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes an order and returns its stock.
// Cancelled orders were restocked when they were cancelled.
func (s *OrderService) Delete(ctx context.Context, id uuid.UUID, userID uuid.UUID) error {
	var events unitofwork.Events
	err := s.uow.Execute(ctx, func(repos unitofwork.TransactionalRepositories) error {
		order, err := repos.OrderRepo().FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}

		if order.Status != trade.OrderStatusCancelled {
			mover := newStockMover(repos, &events, userID)
			if err := mover.restockAll(ctx, order, orderReason(order, "deleted")); err != nil {
				return err
			}
		}

		order.MarkDeleted()
		if err := repos.OrderRepo().Delete(ctx, order.ID); err != nil {
			return err
		}
		events.Collect(order)
		return nil
	})
	if err != nil {
		s.logger.Warn("Order deletion failed", zap.String("order_id", id.String()), zap.Error(err))
		return err
	}

	s.logger.Info("Order deleted", zap.String("order_id", id.String()))
	events.Publish(ctx, s.eventPublisher, s.logger)
	return nil
}

// Fulfill ships an order: it books a label unless one exists, takes the lines
// out of stock and marks the order FULFILLED, all in one transaction.
// The storefront update, label archiving and events follow the commit.
func (s *OrderService) Fulfill(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*FulfillResponse, error) {
	if s.shipping == nil {
		return nil, integration.ToDomainError(carrierName, integration.ErrPlatformNotConfigured)
	}

	var (
		order    *trade.Order
		newLabel bool
		events   unitofwork.Events
	)
	err := s.uow.Execute(ctx, func(repos unitofwork.TransactionalRepositories) error {
		var err error
		order, err = repos.OrderRepo().FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := order.CanFulfill(); err != nil {
			return err
		}

		// Check stock for every line before booking a shipment
		mover := newStockMover(repos, &events, userID)
		rows := make([]*inventory.InventoryItem, len(order.Items))
		for i := range order.Items {
			item := &order.Items[i]
			row, err := mover.pick(ctx, item.ProductID, item.Quantity, item.InventoryItemID, "")
			if err != nil {
				return err
			}
			rows[i] = row
		}

		if !order.HasLabel() {
			parcel, err := shipping.BuildParcel(ctx, repos.ProductRepo(), order, s.config.DefaultWeightKg)
			if err != nil {
				return err
			}
			label, err := s.shipping.CreateLabel(ctx, integration.LabelRequest{
				IdempotencyKey: order.LabelKey(),
				Reference:      order.ShopifyOrderID,
				Receiver:       order.ShippingAddress,
				Parcel:         parcel,
			})
			if err != nil {
				s.logger.Error("Label generation failed during fulfillment",
					zap.String("order_id", order.ID.String()),
					zap.Error(err))
				return integration.ToDomainError(carrierName, err)
			}
			order.AttachLabel(label.TrackingNumber, label.ShipmentID, label.LabelURL)
			newLabel = true
		}
		if order.TrackingNumber == nil {
			return integration.ToDomainError(carrierName, integration.ErrPlatformInvalidResponse)
		}

		reason := orderReason(order, "fulfilled")
		for i := range order.Items {
			if err := mover.withdraw(ctx, rows[i], order.Items[i].Quantity, reason); err != nil {
				return err
			}
		}

		if err := order.Fulfill(*order.TrackingNumber, time.Now()); err != nil {
			return err
		}
		if err := repos.OrderRepo().Save(ctx, order); err != nil {
			return err
		}
		events.Collect(order)
		return nil
	})
	if err != nil {
		s.logger.Warn("Order fulfillment failed", zap.String("order_id", id.String()), zap.Error(err))
		return nil, err
	}

	log := s.logger.With(zap.String("order_id", order.ID.String()))
	log.Info("Order fulfilled", zap.String("tracking_number", *order.TrackingNumber))

	if s.catalog != nil && !order.IsLocal() {
		if err := s.catalog.MarkOrderFulfilled(ctx, order.ShopifyOrderID, *order.TrackingNumber, s.config.Carrier); err != nil {
			log.Warn("Failed to mark storefront order fulfilled",
				zap.String("shopify_order_id", order.ShopifyOrderID),
				zap.Error(err))
		}
	}

	resp := &FulfillResponse{OrderResponse: ToOrderResponse(order)}
	if newLabel && s.archiver != nil {
		resp.ArchivedLabelURL = s.archiver.Archive(ctx, order)
	}
	events.Publish(ctx, s.eventPublisher, s.logger)
	return resp, nil
}

// GetByID retrieves an order with its lines
func (s *OrderService) GetByID(ctx context.Context, id uuid.UUID) (*OrderResponse, error) {
	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToOrderResponse(order)
	return &resp, nil
}

// List retrieves a page of orders
func (s *OrderService) List(ctx context.Context, filter OrderListFilter) (*shared.Paginated[OrderResponse], error) {
	f := shared.Filter{
		Page:     filter.Page,
		PageSize: filter.PageSize,
		OrderBy:  filter.OrderBy,
		OrderDir: filter.OrderDir,
		Search:   strings.TrimSpace(filter.Search),
		Filters:  make(map[string]interface{}),
	}
	if filter.Status != "" {
		status := trade.OrderStatus(strings.ToUpper(strings.TrimSpace(filter.Status)))
		if !status.IsValid() {
			return nil, shared.NewDomainError(shared.CodeValidation, "Unknown order status").
				WithDetail("status", filter.Status)
		}
		f.Filters["status"] = status.String()
	}
	f = f.Normalize()

	orders, err := s.orderRepo.FindAll(ctx, f)
	if err != nil {
		return nil, err
	}
	total, err := s.orderRepo.Count(ctx, f)
	if err != nil {
		return nil, err
	}

	page := shared.NewPaginated(ToOrderResponses(orders), total, f.Page, f.PageSize)
	return &page, nil
}

func errorCode(err error) string {
	var de *shared.DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return shared.CodeInternal
}
