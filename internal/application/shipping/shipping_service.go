package shipping

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wms/backend/internal/application/unitofwork"
	"github.com/wms/backend/internal/domain/catalog"
	"github.com/wms/backend/internal/domain/integration"
	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/domain/shared/valueobject"
	"github.com/wms/backend/internal/domain/trade"
	"go.uber.org/zap"
)

const serviceName = "Sendle"

// ServiceConfig contains configuration for the shipping service
type ServiceConfig struct {
	// DefaultWeightKg is used per unit when a product has no weight
	DefaultWeightKg decimal.Decimal
}

// DefaultServiceConfig returns default configuration
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{DefaultWeightKg: decimal.RequireFromString("0.5")}
}

// ShippingService wraps the carrier for order-level shipping operations
type ShippingService struct {
	uow         unitofwork.TransactionScope
	orderRepo   trade.OrderRepository
	productRepo catalog.ProductRepository
	provider    integration.ShippingProvider
	archiver    *LabelArchiver
	config      ServiceConfig
	logger      *zap.Logger
}

// NewShippingService creates a new ShippingService.
// A nil provider makes every carrier call fail with EXTERNAL_SERVICE_ERROR.
func NewShippingService(
	uow unitofwork.TransactionScope,
	orderRepo trade.OrderRepository,
	productRepo catalog.ProductRepository,
	provider integration.ShippingProvider,
	config ServiceConfig,
	logger *zap.Logger,
) *ShippingService {
	if !config.DefaultWeightKg.IsPositive() {
		config.DefaultWeightKg = DefaultServiceConfig().DefaultWeightKg
	}
	return &ShippingService{
		uow:         uow,
		orderRepo:   orderRepo,
		productRepo: productRepo,
		provider:    provider,
		config:      config,
		logger:      logger,
	}
}

// SetLabelArchiver sets the archiver used to keep label copies
func (s *ShippingService) SetLabelArchiver(archiver *LabelArchiver) {
	s.archiver = archiver
}

// GenerateLabel books a shipment for the order and stores its label.
// An order that already has a label returns it unchanged.
func (s *ShippingService) GenerateLabel(ctx context.Context, orderID uuid.UUID) (*LabelResponse, error) {
	if s.provider == nil {
		return nil, integration.ToDomainError(serviceName, integration.ErrPlatformNotConfigured)
	}

	var (
		order  *trade.Order
		reused bool
	)
	err := s.uow.Execute(ctx, func(repos unitofwork.TransactionalRepositories) error {
		var err error
		order, err = repos.OrderRepo().FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if order.Status != trade.OrderStatusPending && order.Status != trade.OrderStatusProcessing {
			return shared.NewDomainError(shared.CodeInvalidState, "Labels can only be generated for pending or processing orders").
				WithDetail("status", order.Status.String())
		}
		if order.HasLabel() {
			reused = true
			return nil
		}

		parcel, err := s.parcelFor(ctx, repos.ProductRepo(), order)
		if err != nil {
			return err
		}

		label, err := s.provider.CreateLabel(ctx, integration.LabelRequest{
			IdempotencyKey: order.LabelKey(),
			Reference:      order.ShopifyOrderID,
			Receiver:       order.ShippingAddress,
			Parcel:         parcel,
		})
		if err != nil {
			s.logger.Error("Label generation failed", zap.String("order_id", order.ID.String()), zap.Error(err))
			return integration.ToDomainError(serviceName, err)
		}

		order.AttachLabel(label.TrackingNumber, label.ShipmentID, label.LabelURL)
		if order.Status == trade.OrderStatusPending {
			if err := order.TransitionTo(trade.OrderStatusProcessing); err != nil {
				return err
			}
		}
		return repos.OrderRepo().Save(ctx, order)
	})
	if err != nil {
		return nil, err
	}

	resp := &LabelResponse{
		OrderID:        order.ID,
		Status:         order.Status.String(),
		ShipmentID:     deref(order.ShipmentID),
		TrackingNumber: deref(order.TrackingNumber),
		LabelURL:       deref(order.LabelURL),
		Reused:         reused,
	}
	if !reused {
		s.logger.Info("Shipping label generated",
			zap.String("order_id", order.ID.String()),
			zap.String("tracking_number", resp.TrackingNumber))
		resp.ArchivedURL = s.archiver.Archive(ctx, order)
	}
	return resp, nil
}

// GetTracking returns the carrier tracking history of an order
func (s *ShippingService) GetTracking(ctx context.Context, orderID uuid.UUID) (*TrackingResponse, error) {
	if s.provider == nil {
		return nil, integration.ToDomainError(serviceName, integration.ErrPlatformNotConfigured)
	}
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.TrackingNumber == nil || *order.TrackingNumber == "" {
		return nil, shared.NewDomainError(shared.CodeNotFound, "Order has no tracking number")
	}

	info, err := s.provider.GetTracking(ctx, *order.TrackingNumber)
	if err != nil {
		s.logger.Warn("Tracking lookup failed", zap.String("order_id", orderID.String()), zap.Error(err))
		return nil, integration.ToDomainError(serviceName, err)
	}
	if info.Events == nil {
		info.Events = []integration.TrackingEvent{}
	}
	return &TrackingResponse{OrderID: order.ID, TrackingInfo: *info}, nil
}

// GetQuotes returns the carrier's shipping options for an order
func (s *ShippingService) GetQuotes(ctx context.Context, orderID uuid.UUID) (*QuoteResponse, error) {
	if s.provider == nil {
		return nil, integration.ToDomainError(serviceName, integration.ErrPlatformNotConfigured)
	}
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	parcel, err := s.parcelFor(ctx, s.productRepo, order)
	if err != nil {
		return nil, err
	}

	quotes, err := s.provider.GetQuotes(ctx, integration.QuoteRequest{Receiver: order.ShippingAddress, Parcel: parcel})
	if err != nil {
		s.logger.Warn("Quote lookup failed", zap.String("order_id", orderID.String()), zap.Error(err))
		return nil, integration.ToDomainError(serviceName, err)
	}
	if quotes == nil {
		quotes = []integration.Quote{}
	}
	return &QuoteResponse{OrderID: order.ID, WeightKg: parcel.WeightKg, Quotes: quotes}, nil
}

// ValidateAddress checks the address locally and then with the carrier
func (s *ShippingService) ValidateAddress(ctx context.Context, address valueobject.Address) (*integration.AddressValidation, error) {
	address = address.Normalize()
	if err := address.Validate(); err != nil {
		return nil, shared.NewDomainError(shared.CodeValidation, err.Error())
	}
	if s.provider == nil {
		return nil, integration.ToDomainError(serviceName, integration.ErrPlatformNotConfigured)
	}
	result, err := s.provider.ValidateAddress(ctx, address)
	if err != nil {
		return nil, integration.ToDomainError(serviceName, err)
	}
	return result, nil
}

// CancelShipment cancels the carrier shipment of an unfulfilled order
func (s *ShippingService) CancelShipment(ctx context.Context, orderID uuid.UUID) error {
	if s.provider == nil {
		return integration.ToDomainError(serviceName, integration.ErrPlatformNotConfigured)
	}
	return s.uow.Execute(ctx, func(repos unitofwork.TransactionalRepositories) error {
		order, err := repos.OrderRepo().FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if order.Status == trade.OrderStatusFulfilled {
			return shared.NewDomainError(shared.CodeInvalidState, "Shipments of fulfilled orders cannot be cancelled")
		}
		if order.ShipmentID == nil {
			return shared.NewDomainError(shared.CodeInvalidState, "Order has no shipment to cancel")
		}
		if err := s.provider.CancelShipment(ctx, *order.ShipmentID); err != nil {
			s.logger.Error("Shipment cancellation failed",
				zap.String("order_id", orderID.String()),
				zap.String("shipment_id", *order.ShipmentID),
				zap.Error(err))
			return integration.ToDomainError(serviceName, err)
		}
		order.ClearLabel()
		return repos.OrderRepo().Save(ctx, order)
	})
}

func (s *ShippingService) parcelFor(ctx context.Context, products catalog.ProductRepository, order *trade.Order) (integration.Parcel, error) {
	return BuildParcel(ctx, products, order, s.config.DefaultWeightKg)
}

// BuildParcel derives the parcel of an order from its lines and product weights
func BuildParcel(ctx context.Context, products catalog.ProductRepository, order *trade.Order, fallback decimal.Decimal) (integration.Parcel, error) {
	ids := make([]uuid.UUID, 0, len(order.Items))
	for _, item := range order.Items {
		ids = append(ids, item.ProductID)
	}
	weights := make(map[uuid.UUID]decimal.Decimal, len(ids))
	if len(ids) > 0 {
		found, err := products.FindByIDs(ctx, ids)
		if err != nil {
			return integration.Parcel{}, err
		}
		for _, p := range found {
			weights[p.ID] = p.WeightKg
		}
	}
	return integration.Parcel{
		WeightKg:    order.ParcelWeight(weights, fallback),
		Description: "Order " + order.ShopifyOrderID,
	}, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
