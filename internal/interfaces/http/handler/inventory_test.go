package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	inventoryapp "github.com/wms/backend/internal/application/inventory"
	"github.com/wms/backend/internal/domain/identity"
	"github.com/wms/backend/internal/domain/integration"
	"github.com/wms/backend/internal/domain/shared"
)

type MockInventoryService struct {
	mock.Mock
}

func (m *MockInventoryService) List(ctx context.Context, filter inventoryapp.ListFilter) (*shared.Paginated[inventoryapp.StockResponse], error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.Paginated[inventoryapp.StockResponse]), args.Error(1)
}

func (m *MockInventoryService) GetByID(ctx context.Context, id uuid.UUID) (*inventoryapp.StockResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventoryapp.StockResponse), args.Error(1)
}

func (m *MockInventoryService) GetLowStock(ctx context.Context, threshold int) ([]inventoryapp.StockResponse, error) {
	args := m.Called(ctx, threshold)
	return args.Get(0).([]inventoryapp.StockResponse), args.Error(1)
}

func (m *MockInventoryService) ListAdjustments(ctx context.Context, itemID uuid.UUID, page, pageSize int) (*shared.Paginated[inventoryapp.AdjustmentResponse], error) {
	args := m.Called(ctx, itemID, page, pageSize)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.Paginated[inventoryapp.AdjustmentResponse]), args.Error(1)
}

func (m *MockInventoryService) Create(ctx context.Context, req inventoryapp.CreateRequest, userID uuid.UUID) (*inventoryapp.StockResponse, error) {
	args := m.Called(ctx, req, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventoryapp.StockResponse), args.Error(1)
}

func (m *MockInventoryService) Adjust(ctx context.Context, req inventoryapp.AdjustRequest, userID uuid.UUID) (*inventoryapp.AdjustResult, error) {
	args := m.Called(ctx, req, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventoryapp.AdjustResult), args.Error(1)
}

func (m *MockInventoryService) Transfer(ctx context.Context, req inventoryapp.TransferRequest, userID uuid.UUID) (*inventoryapp.TransferResult, error) {
	args := m.Called(ctx, req, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventoryapp.TransferResult), args.Error(1)
}

func (m *MockInventoryService) Count(ctx context.Context, itemID uuid.UUID, req inventoryapp.CountRequest, userID uuid.UUID) (*inventoryapp.CountResult, error) {
	args := m.Called(ctx, itemID, req, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventoryapp.CountResult), args.Error(1)
}

func (m *MockInventoryService) SyncWithExternal(ctx context.Context) (*integration.SyncResult, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.SyncResult), args.Error(1)
}

func (m *MockInventoryService) Export(ctx context.Context) (*inventoryapp.ExportFile, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventoryapp.ExportFile), args.Error(1)
}

func TestInventoryHandler_List(t *testing.T) {
	t.Run("passes filters", func(t *testing.T) {
		svc := new(MockInventoryService)
		h := NewInventoryHandler(svc)
		productID := uuid.New()
		page := shared.NewPaginated([]inventoryapp.StockResponse{{ProductID: productID, Location: "A1", Quantity: 4}}, 1, 1, 20)
		svc.On("List", mock.Anything, mock.MatchedBy(func(f inventoryapp.ListFilter) bool {
			return f.ProductID != nil && *f.ProductID == productID && f.Location == "A1" && f.Page == 1
		})).Return(&page, nil)

		c, w := newTestContext(t, http.MethodGet, "/api/v1/inventory?page=1&location=A1&productId="+productID.String(), nil)
		h.List(c)

		require.Equal(t, http.StatusOK, w.Code)
		env := decode(t, w)
		assert.Equal(t, int64(1), env.Total)
		svc.AssertExpectations(t)
	})

	t.Run("bad product id", func(t *testing.T) {
		svc := new(MockInventoryService)
		h := NewInventoryHandler(svc)

		c, w := newTestContext(t, http.MethodGet, "/api/v1/inventory?productId=xyz", nil)
		h.List(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		svc.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
	})

	t.Run("page size over limit", func(t *testing.T) {
		svc := new(MockInventoryService)
		h := NewInventoryHandler(svc)

		c, w := newTestContext(t, http.MethodGet, "/api/v1/inventory?pageSize=500", nil)
		h.List(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestInventoryHandler_LowStockThreshold(t *testing.T) {
	svc := new(MockInventoryService)
	h := NewInventoryHandler(svc)
	svc.On("GetLowStock", mock.Anything, inventoryapp.DefaultLowStockThreshold).Return([]inventoryapp.StockResponse{}, nil).Once()
	svc.On("GetLowStock", mock.Anything, 3).Return([]inventoryapp.StockResponse{{Quantity: 1}}, nil).Once()

	c, w := newTestContext(t, http.MethodGet, "/api/v1/inventory/low-stock", nil)
	h.LowStock(c)
	assert.Equal(t, http.StatusOK, w.Code)

	c, w = newTestContext(t, http.MethodGet, "/api/v1/inventory/low-stock?threshold=3", nil)
	h.LowStock(c)
	assert.Equal(t, http.StatusOK, w.Code)

	svc.AssertExpectations(t)
}

func TestInventoryHandler_Adjust(t *testing.T) {
	itemID := uuid.New()
	userID := uuid.New()

	t.Run("negative result rejected", func(t *testing.T) {
		svc := new(MockInventoryService)
		h := NewInventoryHandler(svc)
		req := inventoryapp.AdjustRequest{InventoryItemID: itemID, QuantityChange: -10, Reason: "damaged"}
		svc.On("Adjust", mock.Anything, req, userID).Return(nil, shared.ErrInvalidAdjustment)

		c, w := newTestContext(t, http.MethodPost, "/api/v1/inventory/adjust", req)
		authenticate(c, userID, identity.RoleWarehouseStaff)
		h.Adjust(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, shared.CodeInvalidAdjustment, decode(t, w).Error.Code)
	})

	t.Run("zero change fails validation", func(t *testing.T) {
		svc := new(MockInventoryService)
		h := NewInventoryHandler(svc)

		c, w := newTestContext(t, http.MethodPost, "/api/v1/inventory/adjust",
			map[string]any{"inventoryItemId": itemID, "quantityChange": 0, "reason": "noop"})
		authenticate(c, userID, identity.RoleWarehouseStaff)
		h.Adjust(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, shared.CodeValidation, decode(t, w).Error.Code)
		svc.AssertNotCalled(t, "Adjust", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("change beyond the limit fails validation", func(t *testing.T) {
		svc := new(MockInventoryService)
		h := NewInventoryHandler(svc)

		for _, change := range []int64{3_000_000_000, -3_000_000_000} {
			c, w := newTestContext(t, http.MethodPost, "/api/v1/inventory/adjust",
				map[string]any{"inventoryItemId": itemID, "quantityChange": change, "reason": "typo"})
			authenticate(c, userID, identity.RoleWarehouseStaff)
			h.Adjust(c)

			require.Equal(t, http.StatusBadRequest, w.Code)
			env := decode(t, w)
			assert.Equal(t, shared.CodeValidation, env.Error.Code)
			require.NotEmpty(t, env.Error.Fields)
			assert.Equal(t, "quantityChange", env.Error.Fields[0].Field)
		}
		svc.AssertNotCalled(t, "Adjust", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("success", func(t *testing.T) {
		svc := new(MockInventoryService)
		h := NewInventoryHandler(svc)
		req := inventoryapp.AdjustRequest{InventoryItemID: itemID, QuantityChange: -3, Reason: "sold"}
		svc.On("Adjust", mock.Anything, req, userID).Return(&inventoryapp.AdjustResult{
			Item: inventoryapp.StockResponse{ID: itemID, Quantity: 7},
		}, nil)

		c, w := newTestContext(t, http.MethodPost, "/api/v1/inventory/adjust", req)
		authenticate(c, userID, identity.RoleWarehouseStaff)
		h.Adjust(c)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"quantity":7`)
	})
}

func TestInventoryHandler_Transfer(t *testing.T) {
	svc := new(MockInventoryService)
	h := NewInventoryHandler(svc)
	userID := uuid.New()
	req := inventoryapp.TransferRequest{ProductID: uuid.New(), FromLocation: "A1", ToLocation: "B2", Quantity: 50}
	svc.On("Transfer", mock.Anything, req, userID).
		Return(nil, shared.NewDomainError(shared.CodeInsufficientInventory, "Insufficient inventory at A1"))

	c, w := newTestContext(t, http.MethodPost, "/api/v1/inventory/transfer", req)
	authenticate(c, userID, identity.RoleWarehouseManager)
	h.Transfer(c)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, shared.CodeInsufficientInventory, decode(t, w).Error.Code)
}

func TestInventoryHandler_QuantityLimits(t *testing.T) {
	userID, itemID := uuid.New(), uuid.New()

	t.Run("transfer", func(t *testing.T) {
		svc := new(MockInventoryService)
		h := NewInventoryHandler(svc)
		c, w := newTestContext(t, http.MethodPost, "/api/v1/inventory/transfer", map[string]any{
			"productId": uuid.New(), "fromLocation": "A1", "toLocation": "B2", "quantity": 1_000_001,
		})
		authenticate(c, userID, identity.RoleWarehouseManager)
		h.Transfer(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, shared.CodeValidation, decode(t, w).Error.Code)
		svc.AssertNotCalled(t, "Transfer", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("count", func(t *testing.T) {
		svc := new(MockInventoryService)
		h := NewInventoryHandler(svc)
		c, w := newTestContext(t, http.MethodPost, "/api/v1/inventory/"+itemID.String()+"/count",
			map[string]any{"countedQuantity": 5_000_000_000})
		c.Params = gin.Params{{Key: "id", Value: itemID.String()}}
		authenticate(c, userID, identity.RoleWarehouseStaff)
		h.Count(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, shared.CodeValidation, decode(t, w).Error.Code)
		svc.AssertNotCalled(t, "Count", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("low stock threshold", func(t *testing.T) {
		svc := new(MockInventoryService)
		h := NewInventoryHandler(svc)
		c, w := newTestContext(t, http.MethodGet, "/api/v1/inventory/low-stock?threshold=9999999999", nil)
		h.LowStock(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		svc.AssertNotCalled(t, "GetLowStock", mock.Anything, mock.Anything)
	})
}

func TestInventoryHandler_Count(t *testing.T) {
	svc := new(MockInventoryService)
	h := NewInventoryHandler(svc)
	userID, itemID := uuid.New(), uuid.New()
	req := inventoryapp.CountRequest{CountedQuantity: 12}
	svc.On("Count", mock.Anything, itemID, req, userID).Return(&inventoryapp.CountResult{
		Item: inventoryapp.StockResponse{ID: itemID, Quantity: 12},
	}, nil)

	c, w := newTestContext(t, http.MethodPost, "/api/v1/inventory/"+itemID.String()+"/count", req)
	c.Params = gin.Params{{Key: "id", Value: itemID.String()}}
	authenticate(c, userID, identity.RoleWarehouseStaff)
	h.Count(c)

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestInventoryHandler_Export(t *testing.T) {
	svc := new(MockInventoryService)
	h := NewInventoryHandler(svc)
	svc.On("Export", mock.Anything).Return(&inventoryapp.ExportFile{
		Filename:    "inventory-20260101.xlsx",
		ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		Data:        []byte("PK\x03\x04"),
	}, nil)

	c, w := newTestContext(t, http.MethodGet, "/api/v1/inventory/export", nil)
	h.Export(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="inventory-20260101.xlsx"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "PK\x03\x04", w.Body.String())
}

func TestInventoryHandler_SyncErrors(t *testing.T) {
	svc := new(MockInventoryService)
	h := NewInventoryHandler(svc)
	svc.On("SyncWithExternal", mock.Anything).Return(nil, errors.New("boom"))

	c, w := newTestContext(t, http.MethodPost, "/api/v1/inventory/sync", nil)
	h.Sync(c)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
