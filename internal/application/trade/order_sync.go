package trade

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/wms/backend/internal/application/unitofwork"
	"github.com/wms/backend/internal/domain/catalog"
	"github.com/wms/backend/internal/domain/integration"
	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/domain/trade"
	"go.uber.org/zap"
)

// SyncWithExternal pulls storefront orders. Unseen open orders are placed
// locally; known orders pick up cancellations and address changes.
// Each remote order is handled in its own transaction and failures do not stop the run.
func (s *OrderService) SyncWithExternal(ctx context.Context, userID uuid.UUID) (*integration.SyncResult, error) {
	if s.catalog == nil {
		return nil, integration.ToDomainError(storefrontName, integration.ErrPlatformNotConfigured)
	}
	if s.syncLocker != nil {
		release, err := s.syncLocker.Acquire(ctx, integration.SyncLockOrders)
		if err != nil {
			return nil, integration.ToDomainError(storefrontName, err)
		}
		defer release()
	}

	remote, err := s.catalog.ListOrders(ctx, time.Time{})
	if err != nil {
		s.logger.Error("Listing remote orders failed", zap.Error(err))
		return nil, integration.ToDomainError(storefrontName, err)
	}

	result := integration.NewSyncResult()
	for _, ro := range remote {
		existing, err := s.orderRepo.FindByShopifyOrderID(ctx, ro.ID)
		switch {
		case err == nil:
			changed, err := s.refreshFromRemote(ctx, existing.ID, ro, userID)
			if err != nil {
				result.Fail(ro.ID, errorCode(err), err.Error())
				continue
			}
			if changed {
				result.Updated()
			} else {
				result.Skipped()
			}

		case shared.IsCode(err, shared.CodeNotFound):
			if ro.Status != integration.RemoteOrderStatusOpen {
				result.Skipped()
				continue
			}
			if err := s.importRemote(ctx, ro, userID); err != nil {
				result.Fail(ro.ID, errorCode(err), err.Error())
				continue
			}
			result.Created()

		default:
			result.Fail(ro.ID, errorCode(err), err.Error())
		}
	}

	result.Finish()
	s.logger.Info("Order sync finished",
		zap.String("status", string(result.Status)),
		zap.Int("created", result.CreatedCount),
		zap.Int("updated", result.UpdatedCount),
		zap.Int("failed", result.FailedCount))
	return result, nil
}

// importRemote places an unseen storefront order through the regular create path
func (s *OrderService) importRemote(ctx context.Context, ro integration.RemoteOrder, userID uuid.UUID) error {
	if len(ro.Lines) == 0 {
		return shared.NewDomainError(shared.CodeValidation, "Remote order has no lines")
	}
	order, err := trade.NewOrder(ro.ID, userID, ro.ShippingAddress, ro.CreatedAt)
	if err != nil {
		return err
	}

	var events unitofwork.Events
	err = s.uow.Execute(ctx, func(repos unitofwork.TransactionalRepositories) error {
		lines := make([]lineSpec, 0, len(ro.Lines))
		for _, rl := range ro.Lines {
			product, err := resolveRemoteProduct(ctx, repos.ProductRepo(), rl)
			if err != nil {
				return err
			}
			price := rl.Price
			lines = append(lines, lineSpec{productID: product.ID, quantity: rl.Quantity, price: &price})
		}
		// The storefront may list one product on several lines
		merged, err := mergeLines(lines)
		if err != nil {
			return err
		}
		return s.placeOrder(ctx, repos, &events, order, merged, userID)
	})
	if err != nil {
		s.logger.Warn("Importing remote order failed", zap.String("shopify_order_id", ro.ID), zap.Error(err))
		return err
	}

	s.logger.Info("Remote order imported",
		zap.String("order_id", order.ID.String()),
		zap.String("shopify_order_id", ro.ID))
	events.Publish(ctx, s.eventPublisher, s.logger)
	return nil
}

// refreshFromRemote applies remote cancellation and address changes to a
// known order and reports whether anything changed.
func (s *OrderService) refreshFromRemote(ctx context.Context, id uuid.UUID, ro integration.RemoteOrder, userID uuid.UUID) (bool, error) {
	var (
		changed bool
		events  unitofwork.Events
	)
	err := s.uow.Execute(ctx, func(repos unitofwork.TransactionalRepositories) error {
		order, err := repos.OrderRepo().FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !order.CanModify() {
			return nil
		}

		if ro.Status == integration.RemoteOrderStatusCancelled {
			mover := newStockMover(repos, &events, userID)
			if err := mover.restockAll(ctx, order, orderReason(order, "cancelled")); err != nil {
				return err
			}
			if err := order.Cancel(); err != nil {
				return err
			}
			changed = true
		} else if address := ro.ShippingAddress.Normalize(); !address.IsEmpty() && address != order.ShippingAddress {
			if err := order.SetShippingAddress(address); err != nil {
				return err
			}
			changed = true
		}

		if !changed {
			return nil
		}
		if err := repos.OrderRepo().Save(ctx, order); err != nil {
			return err
		}
		events.Collect(order)
		return nil
	})
	if err != nil {
		return false, err
	}

	if changed {
		events.Publish(ctx, s.eventPublisher, s.logger)
	}
	return changed, nil
}

// resolveRemoteProduct finds the local product of a storefront line,
// first by remote product ID and then by SKU.
func resolveRemoteProduct(ctx context.Context, repo catalog.ProductRepository, rl integration.RemoteOrderLine) (*catalog.Product, error) {
	if rl.RemoteProductID != "" {
		product, err := repo.FindByShopifyID(ctx, rl.RemoteProductID)
		if err == nil {
			return product, nil
		}
		if !shared.IsCode(err, shared.CodeNotFound) {
			return nil, err
		}
	}
	if rl.SKU != "" {
		product, err := repo.FindBySKU(ctx, rl.SKU)
		if err == nil {
			return product, nil
		}
		if !shared.IsCode(err, shared.CodeNotFound) {
			return nil, err
		}
	}
	return nil, shared.NewDomainError(shared.CodeNotFound, "Order line references an unknown product").
		WithDetail("remote_product_id", rl.RemoteProductID).
		WithDetail("sku", rl.SKU)
}
