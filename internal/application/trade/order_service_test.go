package trade

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/wms/backend/internal/domain/catalog"
	"github.com/wms/backend/internal/domain/integration"
	"github.com/wms/backend/internal/domain/inventory"
	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/domain/shared/valueobject"
	"github.com/wms/backend/internal/domain/trade"
	"github.com/wms/backend/internal/infrastructure/persistence"
	"github.com/wms/backend/internal/infrastructure/persistence/models"
	"github.com/wms/backend/internal/infrastructure/persistence/persistencetest"
	"github.com/wms/backend/tests/testutil"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type orderFixture struct {
	db        *gorm.DB
	service   *OrderService
	publisher *testutil.RecordingPublisher
	userID    uuid.UUID
}

func newOrderFixture(t *testing.T) *orderFixture {
	t.Helper()
	db := persistencetest.NewDB(t)
	service := NewOrderService(
		persistence.NewGormTransactionScope(db),
		persistence.NewGormOrderRepository(db),
		DefaultServiceConfig(),
		zap.NewNop(),
	)
	publisher := testutil.NewRecordingPublisher()
	service.SetEventPublisher(publisher)
	return &orderFixture{db: db, service: service, publisher: publisher, userID: testutil.TestUserID()}
}

func (f *orderFixture) product(t *testing.T, sku string, price string) *catalog.Product {
	t.Helper()
	product, err := catalog.NewProduct("Product "+sku, sku, decimal.RequireFromString(price))
	require.NoError(t, err)
	require.NoError(t, persistence.NewGormProductRepository(f.db).Save(context.Background(), product))
	return product
}

func (f *orderFixture) stock(t *testing.T, productID uuid.UUID, location string, qty int) *inventory.InventoryItem {
	t.Helper()
	item, err := inventory.NewInventoryItem(productID, location)
	require.NoError(t, err)
	item.Quantity = qty
	require.NoError(t, persistence.NewGormInventoryItemRepository(f.db).Save(context.Background(), item))
	return item
}

func (f *orderFixture) quantity(t *testing.T, id uuid.UUID) int {
	t.Helper()
	item, err := persistence.NewGormInventoryItemRepository(f.db).FindByID(context.Background(), id)
	require.NoError(t, err)
	return item.Quantity
}

func (f *orderFixture) setQuantity(t *testing.T, id uuid.UUID, qty int) {
	t.Helper()
	require.NoError(t, f.db.Model(&models.InventoryItemModel{}).Where("id = ?", id).Update("quantity", qty).Error)
}

func (f *orderFixture) count(t *testing.T, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(model).Count(&n).Error)
	return n
}

func (f *orderFixture) status(t *testing.T, id uuid.UUID) trade.OrderStatus {
	t.Helper()
	order, err := persistence.NewGormOrderRepository(f.db).FindByID(context.Background(), id)
	require.NoError(t, err)
	return order.Status
}

func testAddress() valueobject.Address {
	return valueobject.Address{
		Name:     "Jane Citizen",
		Line1:    "1 George St",
		City:     "Sydney",
		State:    "NSW",
		Postcode: "2000",
		Country:  "au",
	}
}

func line(productID uuid.UUID, qty int) OrderLineRequest {
	return OrderLineRequest{ProductID: productID, Quantity: qty}
}

func TestOrderService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("takes stock and computes total", func(t *testing.T) {
		f := newOrderFixture(t)
		a := f.product(t, "A", "5.00")
		b := f.product(t, "B", "2.50")
		stockA := f.stock(t, a.ID, "A-01", 10)
		stockB := f.stock(t, b.ID, "B-01", 4)

		resp, err := f.service.Create(ctx, CreateOrderRequest{
			ShopifyOrderID:  "1001",
			ShippingAddress: testAddress(),
			Items:           []OrderLineRequest{line(a.ID, 3), line(b.ID, 4)},
		}, f.userID)
		require.NoError(t, err)

		assert.Equal(t, "25.00", resp.TotalAmount.StringFixed(2))
		assert.Equal(t, trade.OrderStatusPending.String(), resp.Status)
		assert.Equal(t, "AU", resp.ShippingAddress.Country)
		require.Len(t, resp.Items, 2)
		assert.Equal(t, stockA.ID, *resp.Items[0].InventoryItemID)
		assert.Equal(t, 7, f.quantity(t, stockA.ID))
		assert.Equal(t, 0, f.quantity(t, stockB.ID))
		assert.Equal(t, int64(2), f.count(t, &models.InventoryAdjustmentModel{}))
		assert.Equal(t, 1, f.publisher.CountByType(trade.EventTypeOrderCreated))
		assert.Equal(t, 2, f.publisher.CountByType(inventory.EventTypeInventoryAdjusted))
	})

	t.Run("over-stock order changes nothing", func(t *testing.T) {
		f := newOrderFixture(t)
		a := f.product(t, "A", "5.00")
		b := f.product(t, "B", "2.50")
		stockA := f.stock(t, a.ID, "A-01", 10)
		stockB := f.stock(t, b.ID, "B-01", 2)

		_, err := f.service.Create(ctx, CreateOrderRequest{
			ShippingAddress: testAddress(),
			Items:           []OrderLineRequest{line(a.ID, 3), line(b.ID, 3)},
		}, f.userID)
		require.Error(t, err)
		assert.True(t, errors.Is(err, shared.ErrInsufficientInventory))

		assert.Equal(t, int64(0), f.count(t, &models.OrderModel{}))
		assert.Equal(t, int64(0), f.count(t, &models.OrderItemModel{}))
		assert.Equal(t, int64(0), f.count(t, &models.InventoryAdjustmentModel{}))
		assert.Equal(t, 10, f.quantity(t, stockA.ID))
		assert.Equal(t, 2, f.quantity(t, stockB.ID))
		assert.Empty(t, f.publisher.Events())
	})

	t.Run("draws from the fullest row unless a location is pinned", func(t *testing.T) {
		f := newOrderFixture(t)
		a := f.product(t, "A", "1.00")
		big := f.stock(t, a.ID, "A-01", 10)
		small := f.stock(t, a.ID, "B-01", 3)

		_, err := f.service.Create(ctx, CreateOrderRequest{
			ShippingAddress: testAddress(),
			Items:           []OrderLineRequest{line(a.ID, 2)},
		}, f.userID)
		require.NoError(t, err)
		assert.Equal(t, 8, f.quantity(t, big.ID))

		pinned := line(a.ID, 3)
		pinned.Location = "B-01"
		_, err = f.service.Create(ctx, CreateOrderRequest{
			ShippingAddress: testAddress(),
			Items:           []OrderLineRequest{pinned},
		}, f.userID)
		require.NoError(t, err)
		assert.Equal(t, 0, f.quantity(t, small.ID))
		assert.Equal(t, 8, f.quantity(t, big.ID))
	})

	t.Run("repeated product lines become one line", func(t *testing.T) {
		f := newOrderFixture(t)
		a := f.product(t, "A", "5.00")
		stockA := f.stock(t, a.ID, "A-01", 10)

		resp, err := f.service.Create(ctx, CreateOrderRequest{
			ShippingAddress: testAddress(),
			Items:           []OrderLineRequest{line(a.ID, 2), line(a.ID, 3)},
		}, f.userID)
		require.NoError(t, err)

		require.Len(t, resp.Items, 1)
		assert.Equal(t, 5, resp.Items[0].Quantity)
		assert.Equal(t, "25.00", resp.TotalAmount.StringFixed(2))
		assert.Equal(t, 5, f.quantity(t, stockA.ID))
		assert.Equal(t, int64(1), f.count(t, &models.InventoryAdjustmentModel{}))
	})

	t.Run("repeated product lines are checked against stock together", func(t *testing.T) {
		f := newOrderFixture(t)
		a := f.product(t, "A", "5.00")
		stockA := f.stock(t, a.ID, "A-01", 10)

		_, err := f.service.Create(ctx, CreateOrderRequest{
			ShippingAddress: testAddress(),
			Items:           []OrderLineRequest{line(a.ID, 6), line(a.ID, 6)},
		}, f.userID)
		require.Error(t, err)
		assert.True(t, errors.Is(err, shared.ErrInsufficientInventory))
		assert.Equal(t, 10, f.quantity(t, stockA.ID))
		assert.Equal(t, int64(0), f.count(t, &models.OrderModel{}))
		assert.Equal(t, int64(0), f.count(t, &models.InventoryAdjustmentModel{}))
	})

	t.Run("repeated lines with explicit prices keep the total", func(t *testing.T) {
		f := newOrderFixture(t)
		a := f.product(t, "A", "5.00")
		f.stock(t, a.ID, "A-01", 10)
		four, six := decimal.RequireFromString("4.00"), decimal.RequireFromString("6.00")

		resp, err := f.service.Create(ctx, CreateOrderRequest{
			ShippingAddress: testAddress(),
			Items: []OrderLineRequest{
				{ProductID: a.ID, Quantity: 1, Price: &four},
				{ProductID: a.ID, Quantity: 1, Price: &six},
			},
		}, f.userID)
		require.NoError(t, err)
		require.Len(t, resp.Items, 1)
		assert.Equal(t, "5.00", resp.Items[0].Price.StringFixed(2))
		assert.Equal(t, "10.00", resp.TotalAmount.StringFixed(2))
	})

	t.Run("repeated lines pinning different locations", func(t *testing.T) {
		f := newOrderFixture(t)
		a := f.product(t, "A", "5.00")
		f.stock(t, a.ID, "A-01", 10)
		f.stock(t, a.ID, "B-01", 10)
		first, second := line(a.ID, 1), line(a.ID, 1)
		first.Location, second.Location = "A-01", "B-01"

		_, err := f.service.Create(ctx, CreateOrderRequest{
			ShippingAddress: testAddress(),
			Items:           []OrderLineRequest{first, second},
		}, f.userID)
		assert.True(t, shared.IsCode(err, shared.CodeValidation))
		assert.Equal(t, int64(0), f.count(t, &models.OrderModel{}))
	})

	t.Run("local orders get a generated storefront ID", func(t *testing.T) {
		f := newOrderFixture(t)
		a := f.product(t, "A", "1.00")
		f.stock(t, a.ID, "A-01", 5)

		resp, err := f.service.Create(ctx, CreateOrderRequest{
			ShippingAddress: testAddress(),
			Items:           []OrderLineRequest{line(a.ID, 1)},
		}, f.userID)
		require.NoError(t, err)
		assert.Equal(t, trade.LocalOrderPrefix+resp.ID.String(), resp.ShopifyOrderID)
	})

	t.Run("rejects duplicate storefront ID", func(t *testing.T) {
		f := newOrderFixture(t)
		a := f.product(t, "A", "1.00")
		f.stock(t, a.ID, "A-01", 5)
		req := CreateOrderRequest{ShopifyOrderID: "1001", ShippingAddress: testAddress(), Items: []OrderLineRequest{line(a.ID, 1)}}

		_, err := f.service.Create(ctx, req, f.userID)
		require.NoError(t, err)
		_, err = f.service.Create(ctx, req, f.userID)
		assert.True(t, shared.IsCode(err, shared.CodeAlreadyExists))
		assert.Equal(t, int64(1), f.count(t, &models.OrderModel{}))
	})

	t.Run("unknown product", func(t *testing.T) {
		f := newOrderFixture(t)
		_, err := f.service.Create(ctx, CreateOrderRequest{
			ShippingAddress: testAddress(),
			Items:           []OrderLineRequest{line(uuid.New(), 1)},
		}, f.userID)
		assert.True(t, shared.IsCode(err, shared.CodeNotFound))
	})

	t.Run("incomplete address", func(t *testing.T) {
		f := newOrderFixture(t)
		a := f.product(t, "A", "1.00")
		_, err := f.service.Create(ctx, CreateOrderRequest{
			ShippingAddress: valueobject.Address{Name: "Jane"},
			Items:           []OrderLineRequest{line(a.ID, 1)},
		}, f.userID)
		assert.True(t, shared.IsCode(err, shared.CodeValidation))
	})
}

func TestOrderService_Update(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*orderFixture, *OrderResponse, *catalog.Product, *catalog.Product, *inventory.InventoryItem, *inventory.InventoryItem) {
		f := newOrderFixture(t)
		a := f.product(t, "A", "5.00")
		b := f.product(t, "B", "2.50")
		stockA := f.stock(t, a.ID, "A-01", 10)
		stockB := f.stock(t, b.ID, "B-01", 10)
		order, err := f.service.Create(ctx, CreateOrderRequest{
			ShippingAddress: testAddress(),
			Items:           []OrderLineRequest{line(a.ID, 3)},
		}, f.userID)
		require.NoError(t, err)
		return f, order, a, b, stockA, stockB
	}

	t.Run("moves stock by the quantity difference", func(t *testing.T) {
		f, order, a, b, stockA, stockB := setup(t)

		price := decimal.RequireFromString("5.00")
		resp, err := f.service.Update(ctx, order.ID, UpdateOrderRequest{
			Items: []OrderLinePatch{
				{ProductID: a.ID, Quantity: 1},
				{ProductID: b.ID, Quantity: 4, Price: &price},
			},
		}, f.userID)
		require.NoError(t, err)

		assert.Equal(t, "25.00", resp.TotalAmount.StringFixed(2))
		assert.Equal(t, 9, f.quantity(t, stockA.ID))
		assert.Equal(t, 6, f.quantity(t, stockB.ID))

		resp, err = f.service.Update(ctx, order.ID, UpdateOrderRequest{
			Items: []OrderLinePatch{{ProductID: a.ID, Quantity: 5}},
		}, f.userID)
		require.NoError(t, err)
		assert.Equal(t, "45.00", resp.TotalAmount.StringFixed(2))
		assert.Equal(t, 5, f.quantity(t, stockA.ID))
	})

	t.Run("removing a line restocks it", func(t *testing.T) {
		f, order, a, b, stockA, stockB := setup(t)

		_, err := f.service.Update(ctx, order.ID, UpdateOrderRequest{
			Items: []OrderLinePatch{{ProductID: b.ID, Quantity: 2}, {ProductID: a.ID, Quantity: 0}},
		}, f.userID)
		require.NoError(t, err)
		assert.Equal(t, 10, f.quantity(t, stockA.ID))
		assert.Equal(t, 8, f.quantity(t, stockB.ID))
		assert.Equal(t, int64(1), f.count(t, &models.OrderItemModel{}))
	})

	t.Run("increase stays on the row the line draws from", func(t *testing.T) {
		f := newOrderFixture(t)
		a := f.product(t, "A", "5.00")
		first := f.stock(t, a.ID, "A-01", 10)
		other := f.stock(t, a.ID, "B-01", 4)
		order, err := f.service.Create(ctx, CreateOrderRequest{
			ShippingAddress: testAddress(),
			Items:           []OrderLineRequest{line(a.ID, 3)},
		}, f.userID)
		require.NoError(t, err)
		require.Equal(t, first.ID, *order.Items[0].InventoryItemID)

		f.setQuantity(t, first.ID, 1)
		f.setQuantity(t, other.ID, 9)

		_, err = f.service.Update(ctx, order.ID, UpdateOrderRequest{
			Items: []OrderLinePatch{{ProductID: a.ID, Quantity: 6}},
		}, f.userID)
		assert.True(t, shared.IsCode(err, shared.CodeInsufficientInventory))
		assert.Equal(t, 1, f.quantity(t, first.ID))
		assert.Equal(t, 9, f.quantity(t, other.ID))

		moved := OrderLinePatch{ProductID: a.ID, Quantity: 4, Location: "B-01"}
		_, err = f.service.Update(ctx, order.ID, UpdateOrderRequest{Items: []OrderLinePatch{moved}}, f.userID)
		assert.True(t, shared.IsCode(err, shared.CodeValidation))

		resp, err := f.service.Update(ctx, order.ID, UpdateOrderRequest{
			Items: []OrderLinePatch{{ProductID: a.ID, Quantity: 4}},
		}, f.userID)
		require.NoError(t, err)
		assert.Equal(t, first.ID, *resp.Items[0].InventoryItemID)
		assert.Equal(t, 0, f.quantity(t, first.ID))
		assert.Equal(t, 9, f.quantity(t, other.ID))

		require.NoError(t, f.service.Delete(ctx, order.ID, f.userID))
		assert.Equal(t, 4, f.quantity(t, first.ID))
		assert.Equal(t, 9, f.quantity(t, other.ID))
	})

	t.Run("cannot remove the last line", func(t *testing.T) {
		f, order, a, _, stockA, _ := setup(t)

		_, err := f.service.Update(ctx, order.ID, UpdateOrderRequest{
			Items: []OrderLinePatch{{ProductID: a.ID, Quantity: 0}},
		}, f.userID)
		assert.True(t, shared.IsCode(err, shared.CodeValidation))
		assert.Equal(t, 7, f.quantity(t, stockA.ID))
	})

	t.Run("increase beyond stock rolls back", func(t *testing.T) {
		f, order, a, _, stockA, _ := setup(t)

		_, err := f.service.Update(ctx, order.ID, UpdateOrderRequest{
			Items: []OrderLinePatch{{ProductID: a.ID, Quantity: 20}},
		}, f.userID)
		assert.True(t, shared.IsCode(err, shared.CodeInsufficientInventory))
		assert.Equal(t, 7, f.quantity(t, stockA.ID))
	})

	t.Run("cancel restocks and freezes the order", func(t *testing.T) {
		f, order, a, _, stockA, _ := setup(t)

		status := "cancelled"
		resp, err := f.service.Update(ctx, order.ID, UpdateOrderRequest{Status: &status}, f.userID)
		require.NoError(t, err)
		assert.Equal(t, trade.OrderStatusCancelled.String(), resp.Status)
		assert.Equal(t, 10, f.quantity(t, stockA.ID))
		assert.Equal(t, 1, f.publisher.CountByType(trade.EventTypeOrderCancelled))

		_, err = f.service.Update(ctx, order.ID, UpdateOrderRequest{
			Items: []OrderLinePatch{{ProductID: a.ID, Quantity: 1}},
		}, f.userID)
		assert.True(t, shared.IsCode(err, shared.CodeInvalidState))
	})

	t.Run("status rules", func(t *testing.T) {
		f, order, _, _, _, _ := setup(t)

		fulfilled := "FULFILLED"
		_, err := f.service.Update(ctx, order.ID, UpdateOrderRequest{Status: &fulfilled}, f.userID)
		assert.True(t, shared.IsCode(err, shared.CodeInvalidState))

		bogus := "SHIPPED_TO_MARS"
		_, err = f.service.Update(ctx, order.ID, UpdateOrderRequest{Status: &bogus}, f.userID)
		assert.True(t, shared.IsCode(err, shared.CodeValidation))

		processing := "PROCESSING"
		resp, err := f.service.Update(ctx, order.ID, UpdateOrderRequest{Status: &processing}, f.userID)
		require.NoError(t, err)
		assert.Equal(t, "PROCESSING", resp.Status)
	})

	t.Run("address and tracking number", func(t *testing.T) {
		f, order, _, _, _, _ := setup(t)

		address := testAddress()
		address.Line1 = "2 Pitt St"
		tracking := "TRK1"
		resp, err := f.service.Update(ctx, order.ID, UpdateOrderRequest{ShippingAddress: &address, TrackingNumber: &tracking}, f.userID)
		require.NoError(t, err)
		assert.Equal(t, "2 Pitt St", resp.ShippingAddress.Line1)
		assert.Equal(t, "TRK1", *resp.TrackingNumber)
	})

	t.Run("unknown order", func(t *testing.T) {
		f := newOrderFixture(t)
		_, err := f.service.Update(ctx, uuid.New(), UpdateOrderRequest{}, f.userID)
		assert.True(t, shared.IsCode(err, shared.CodeNotFound))
	})
}

func TestOrderService_Delete(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t)
	a := f.product(t, "A", "5.00")
	stockA := f.stock(t, a.ID, "A-01", 10)
	order, err := f.service.Create(ctx, CreateOrderRequest{
		ShippingAddress: testAddress(),
		Items:           []OrderLineRequest{line(a.ID, 4)},
	}, f.userID)
	require.NoError(t, err)
	require.Equal(t, 6, f.quantity(t, stockA.ID))

	require.NoError(t, f.service.Delete(ctx, order.ID, f.userID))
	assert.Equal(t, 10, f.quantity(t, stockA.ID))
	assert.Equal(t, int64(0), f.count(t, &models.OrderModel{}))
	assert.Equal(t, int64(0), f.count(t, &models.OrderItemModel{}))
	assert.Equal(t, 1, f.publisher.CountByType(trade.EventTypeOrderDeleted))

	err = f.service.Delete(ctx, order.ID, f.userID)
	assert.True(t, shared.IsCode(err, shared.CodeNotFound))
}

func TestOrderService_Fulfill(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T, onHand, ordered int) (*orderFixture, *OrderResponse, *inventory.InventoryItem, *testutil.MockShippingProvider) {
		f := newOrderFixture(t)
		a := f.product(t, "A", "5.00")
		stockA := f.stock(t, a.ID, "A-01", onHand)
		order, err := f.service.Create(ctx, CreateOrderRequest{
			ShopifyOrderID:  "1001",
			ShippingAddress: testAddress(),
			Items:           []OrderLineRequest{line(a.ID, ordered)},
		}, f.userID)
		require.NoError(t, err)
		carrier := new(testutil.MockShippingProvider)
		f.service.SetShippingProvider(carrier)
		return f, order, stockA, carrier
	}

	t.Run("books a label, takes stock and notifies the storefront", func(t *testing.T) {
		f, order, stockA, carrier := setup(t, 10, 3)
		carrier.On("CreateLabel", mock.Anything, mock.MatchedBy(func(req integration.LabelRequest) bool {
			return req.IdempotencyKey == order.ID.String() && req.Reference == "1001" && req.Parcel.WeightKg.Equal(decimal.RequireFromString("1.5"))
		})).Return(&integration.Label{ShipmentID: "S1", TrackingNumber: "TRK1", LabelURL: "https://labels/S1.pdf"}, nil).Once()

		storefront := new(testutil.MockCatalogProvider)
		storefront.On("MarkOrderFulfilled", mock.Anything, "1001", "TRK1", "Sendle").Return(nil).Once()
		f.service.SetCatalogProvider(storefront)

		archiver := &recordingArchiver{url: "https://bucket/labels/x.pdf"}
		f.service.SetLabelArchiver(archiver)

		resp, err := f.service.Fulfill(ctx, order.ID, f.userID)
		require.NoError(t, err)
		assert.Equal(t, trade.OrderStatusFulfilled.String(), resp.Status)
		assert.Equal(t, "TRK1", *resp.TrackingNumber)
		assert.NotNil(t, resp.FulfilledAt)
		assert.Equal(t, "https://bucket/labels/x.pdf", resp.ArchivedLabelURL)
		assert.Equal(t, 1, archiver.calls)
		assert.Equal(t, 4, f.quantity(t, stockA.ID))
		assert.Equal(t, 1, f.publisher.CountByType(trade.EventTypeOrderFulfilled))
		carrier.AssertExpectations(t)
		storefront.AssertExpectations(t)

		_, err = f.service.Fulfill(ctx, order.ID, f.userID)
		assert.True(t, shared.IsCode(err, shared.CodeInvalidState))
	})

	t.Run("stock depleted after creation", func(t *testing.T) {
		f, order, stockA, carrier := setup(t, 5, 3)
		f.setQuantity(t, stockA.ID, 1)

		_, err := f.service.Fulfill(ctx, order.ID, f.userID)
		require.Error(t, err)
		assert.True(t, shared.IsCode(err, shared.CodeInsufficientInventory))
		assert.Equal(t, trade.OrderStatusPending, f.status(t, order.ID))
		assert.Equal(t, 1, f.quantity(t, stockA.ID))
		carrier.AssertNotCalled(t, "CreateLabel", mock.Anything, mock.Anything)
	})

	t.Run("label failure rolls back", func(t *testing.T) {
		f, order, stockA, carrier := setup(t, 10, 3)
		carrier.On("CreateLabel", mock.Anything, mock.Anything).Return(nil, integration.ErrPlatformUnavailable)
		adjustments := f.count(t, &models.InventoryAdjustmentModel{})

		_, err := f.service.Fulfill(ctx, order.ID, f.userID)
		assert.True(t, shared.IsCode(err, shared.CodeExternalService))
		assert.Equal(t, trade.OrderStatusPending, f.status(t, order.ID))
		assert.Equal(t, 7, f.quantity(t, stockA.ID))
		assert.Equal(t, adjustments, f.count(t, &models.InventoryAdjustmentModel{}))
		assert.Zero(t, f.publisher.CountByType(trade.EventTypeOrderFulfilled))
	})

	t.Run("reuses an existing label", func(t *testing.T) {
		f, order, stockA, carrier := setup(t, 10, 3)
		repo := persistence.NewGormOrderRepository(f.db)
		stored, err := repo.FindByID(ctx, order.ID)
		require.NoError(t, err)
		stored.AttachLabel("TRK9", "S9", "https://labels/S9.pdf")
		require.NoError(t, repo.Save(ctx, stored))

		archiver := &recordingArchiver{}
		f.service.SetLabelArchiver(archiver)

		resp, err := f.service.Fulfill(ctx, order.ID, f.userID)
		require.NoError(t, err)
		assert.Equal(t, "TRK9", *resp.TrackingNumber)
		assert.Zero(t, archiver.calls)
		assert.Equal(t, 4, f.quantity(t, stockA.ID))
		carrier.AssertNotCalled(t, "CreateLabel", mock.Anything, mock.Anything)
	})

	t.Run("books a fresh label after a cancelled shipment", func(t *testing.T) {
		f, order, _, carrier := setup(t, 10, 3)
		repo := persistence.NewGormOrderRepository(f.db)
		stored, err := repo.FindByID(ctx, order.ID)
		require.NoError(t, err)
		stored.AttachLabel("TRK1", "S1", "https://labels/S1.pdf")
		stored.ClearLabel()
		require.NoError(t, repo.Save(ctx, stored))

		carrier.On("CreateLabel", mock.Anything, mock.MatchedBy(func(req integration.LabelRequest) bool {
			return req.IdempotencyKey == order.ID.String()+"-1"
		})).Return(&integration.Label{ShipmentID: "S2", TrackingNumber: "TRK2"}, nil).Once()

		resp, err := f.service.Fulfill(ctx, order.ID, f.userID)
		require.NoError(t, err)
		assert.Equal(t, "TRK2", *resp.TrackingNumber)
		carrier.AssertExpectations(t)
	})

	t.Run("storefront failure does not undo fulfillment", func(t *testing.T) {
		f, order, _, carrier := setup(t, 10, 3)
		carrier.On("CreateLabel", mock.Anything, mock.Anything).
			Return(&integration.Label{ShipmentID: "S1", TrackingNumber: "TRK1"}, nil)
		storefront := new(testutil.MockCatalogProvider)
		storefront.On("MarkOrderFulfilled", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(integration.ErrPlatformUnavailable)
		f.service.SetCatalogProvider(storefront)

		_, err := f.service.Fulfill(ctx, order.ID, f.userID)
		require.NoError(t, err)
		assert.Equal(t, trade.OrderStatusFulfilled, f.status(t, order.ID))
	})

	t.Run("carrier not configured", func(t *testing.T) {
		f := newOrderFixture(t)
		_, err := f.service.Fulfill(ctx, uuid.New(), f.userID)
		assert.True(t, shared.IsCode(err, shared.CodeExternalService))
	})
}

func TestOrderService_SyncWithExternal(t *testing.T) {
	ctx := context.Background()

	t.Run("imports once and ignores the second run", func(t *testing.T) {
		f := newOrderFixture(t)
		a := f.product(t, "A", "5.00")
		linked := f.product(t, "B", "2.00")
		linked.LinkRemote("gid-b")
		require.NoError(t, persistence.NewGormProductRepository(f.db).Save(ctx, linked))
		stockA := f.stock(t, a.ID, "A-01", 10)
		stockB := f.stock(t, linked.ID, "B-01", 10)

		remote := []integration.RemoteOrder{
			{
				ID: "2001", Status: integration.RemoteOrderStatusOpen, ShippingAddress: testAddress(),
				CreatedAt: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
				Lines: []integration.RemoteOrderLine{
					{SKU: "A", Quantity: 2, Price: decimal.RequireFromString("4.00")},
					{RemoteProductID: "gid-b", Quantity: 1, Price: decimal.RequireFromString("2.00")},
				},
			},
			{
				ID: "2002", Status: integration.RemoteOrderStatusOpen, ShippingAddress: testAddress(),
				Lines: []integration.RemoteOrderLine{{SKU: "UNKNOWN", Quantity: 1}},
			},
			{ID: "2003", Status: integration.RemoteOrderStatusFulfilled, ShippingAddress: testAddress()},
		}
		storefront := new(testutil.MockCatalogProvider)
		storefront.On("ListOrders", mock.Anything, time.Time{}).Return(remote, nil)
		f.service.SetCatalogProvider(storefront)
		locker := testutil.NewFakeSyncLocker()
		f.service.SetSyncLocker(locker)

		result, err := f.service.SyncWithExternal(ctx, f.userID)
		require.NoError(t, err)
		assert.Equal(t, integration.SyncStatusPartial, result.Status)
		assert.Equal(t, 1, result.CreatedCount)
		assert.Equal(t, 1, result.FailedCount)
		assert.Equal(t, 8, f.quantity(t, stockA.ID))
		assert.Equal(t, 9, f.quantity(t, stockB.ID))
		assert.Equal(t, []string{integration.SyncLockOrders}, locker.Released)

		imported, err := persistence.NewGormOrderRepository(f.db).FindByShopifyOrderID(ctx, "2001")
		require.NoError(t, err)
		assert.Equal(t, "10.00", imported.TotalAmount.StringFixed(2))

		orders := f.count(t, &models.OrderModel{})
		adjustments := f.count(t, &models.InventoryAdjustmentModel{})

		result, err = f.service.SyncWithExternal(ctx, f.userID)
		require.NoError(t, err)
		assert.Zero(t, result.CreatedCount)
		assert.Zero(t, result.UpdatedCount)
		assert.Equal(t, orders, f.count(t, &models.OrderModel{}))
		assert.Equal(t, adjustments, f.count(t, &models.InventoryAdjustmentModel{}))
		assert.Equal(t, 8, f.quantity(t, stockA.ID))
	})

	t.Run("product listed on several storefront lines", func(t *testing.T) {
		f := newOrderFixture(t)
		a := f.product(t, "A", "5.00")
		stockA := f.stock(t, a.ID, "A-01", 10)

		storefront := new(testutil.MockCatalogProvider)
		storefront.On("ListOrders", mock.Anything, mock.Anything).Return([]integration.RemoteOrder{
			{
				ID: "3001", Status: integration.RemoteOrderStatusOpen, ShippingAddress: testAddress(),
				Lines: []integration.RemoteOrderLine{
					{SKU: "A", Quantity: 2, Price: decimal.RequireFromString("4.00")},
					{SKU: "A", Quantity: 1, Price: decimal.RequireFromString("4.00")},
				},
			},
		}, nil)
		f.service.SetCatalogProvider(storefront)

		result, err := f.service.SyncWithExternal(ctx, f.userID)
		require.NoError(t, err)
		assert.Equal(t, 1, result.CreatedCount)
		assert.Zero(t, result.FailedCount)
		assert.Equal(t, 7, f.quantity(t, stockA.ID))

		imported, err := persistence.NewGormOrderRepository(f.db).FindByShopifyOrderID(ctx, "3001")
		require.NoError(t, err)
		require.Len(t, imported.Items, 1)
		assert.Equal(t, 3, imported.Items[0].Quantity)
		assert.Equal(t, "12.00", imported.TotalAmount.StringFixed(2))
	})

	t.Run("remote cancellation restocks the local order", func(t *testing.T) {
		f := newOrderFixture(t)
		a := f.product(t, "A", "5.00")
		stockA := f.stock(t, a.ID, "A-01", 10)
		order, err := f.service.Create(ctx, CreateOrderRequest{
			ShopifyOrderID:  "3001",
			ShippingAddress: testAddress(),
			Items:           []OrderLineRequest{line(a.ID, 4)},
		}, f.userID)
		require.NoError(t, err)

		storefront := new(testutil.MockCatalogProvider)
		storefront.On("ListOrders", mock.Anything, mock.Anything).Return([]integration.RemoteOrder{
			{ID: "3001", Status: integration.RemoteOrderStatusCancelled, ShippingAddress: testAddress()},
		}, nil)
		f.service.SetCatalogProvider(storefront)

		result, err := f.service.SyncWithExternal(ctx, f.userID)
		require.NoError(t, err)
		assert.Equal(t, 1, result.UpdatedCount)
		assert.Equal(t, trade.OrderStatusCancelled, f.status(t, order.ID))
		assert.Equal(t, 10, f.quantity(t, stockA.ID))
	})

	t.Run("held lock", func(t *testing.T) {
		f := newOrderFixture(t)
		f.service.SetCatalogProvider(new(testutil.MockCatalogProvider))
		f.service.SetSyncLocker(testutil.NewFakeSyncLocker(integration.SyncLockOrders))

		_, err := f.service.SyncWithExternal(ctx, f.userID)
		assert.True(t, shared.IsCode(err, shared.CodeInvalidState))
	})

	t.Run("storefront not configured", func(t *testing.T) {
		f := newOrderFixture(t)
		_, err := f.service.SyncWithExternal(ctx, f.userID)
		assert.True(t, shared.IsCode(err, shared.CodeExternalService))
	})
}

func TestOrderService_Queries(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t)
	a := f.product(t, "A", "5.00")
	f.stock(t, a.ID, "A-01", 10)
	for _, id := range []string{"4001", "4002"} {
		_, err := f.service.Create(ctx, CreateOrderRequest{ShopifyOrderID: id, ShippingAddress: testAddress(), Items: []OrderLineRequest{line(a.ID, 1)}}, f.userID)
		require.NoError(t, err)
	}

	page, err := f.service.List(ctx, OrderListFilter{Status: "pending", PageSize: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
	assert.Len(t, page.Items, 1)
	assert.Equal(t, 2, page.TotalPages)

	page, err = f.service.List(ctx, OrderListFilter{Search: "4002"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)

	got, err := f.service.GetByID(ctx, page.Items[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "4002", got.ShopifyOrderID)

	_, err = f.service.List(ctx, OrderListFilter{Status: "LOST"})
	assert.True(t, shared.IsCode(err, shared.CodeValidation))

	_, err = f.service.GetByID(ctx, uuid.New())
	assert.True(t, shared.IsCode(err, shared.CodeNotFound))
}

type recordingArchiver struct {
	url   string
	calls int
}

func (a *recordingArchiver) Archive(_ context.Context, _ *trade.Order) string {
	a.calls++
	return a.url
}
