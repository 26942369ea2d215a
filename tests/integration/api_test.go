//go:build integration

package integration

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	catalogapp "github.com/wms/backend/internal/application/catalog"
	identityapp "github.com/wms/backend/internal/application/identity"
	inventoryapp "github.com/wms/backend/internal/application/inventory"
	shippingapp "github.com/wms/backend/internal/application/shipping"
	tradeapp "github.com/wms/backend/internal/application/trade"
	"github.com/wms/backend/internal/domain/identity"
	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/infrastructure/auth"
	"github.com/wms/backend/internal/infrastructure/cache"
	"github.com/wms/backend/internal/infrastructure/config"
	"github.com/wms/backend/internal/infrastructure/persistence"
	"github.com/wms/backend/internal/interfaces/http/handler"
	"github.com/wms/backend/internal/interfaces/http/middleware"
	"github.com/wms/backend/internal/interfaces/http/router"
	"github.com/wms/backend/tests/testutil"
	"go.uber.org/zap"
)

const adminPassword = "Adm1n-password"

// newAPI wires the HTTP engine the way cmd/server does, minus the vendors
func newAPI(t *testing.T) http.Handler {
	t.Helper()

	db := NewTestDB(t)
	log := zap.NewNop()
	uow := persistence.NewGormTransactionScope(db.DB)
	userRepo := persistence.NewGormUserRepository(db.DB)
	productRepo := persistence.NewGormProductRepository(db.DB)
	inventoryRepo := persistence.NewGormInventoryItemRepository(db.DB)
	adjustmentRepo := persistence.NewGormAdjustmentRepository(db.DB)
	orderRepo := persistence.NewGormOrderRepository(db.DB)

	admin, err := identity.NewUser("admin", "admin@example.com", adminPassword, identity.RoleAdmin)
	require.NoError(t, err)
	require.NoError(t, userRepo.Create(context.Background(), admin))

	authService := identityapp.NewAuthService(userRepo, auth.NewJWTService(config.JWTConfig{
		Secret:                 "api-integration-access-secret-0123456789",
		RefreshSecret:          "api-integration-refresh-secret-0123456789",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: 24 * time.Hour,
		Issuer:                 "wms-test",
		MaxRefreshCount:        5,
	}), auth.NewInMemoryTokenBlacklist(), identityapp.DefaultAuthServiceConfig(), log)

	locker := cache.NewInMemorySyncLocker()
	inventoryService := inventoryapp.NewInventoryService(uow, inventoryRepo, adjustmentRepo, productRepo, log)
	inventoryService.SetSyncLocker(locker)
	productService := catalogapp.NewProductService(uow, productRepo, inventoryRepo, log)
	productService.SetSyncLocker(locker)
	orderService := tradeapp.NewOrderService(uow, orderRepo, tradeapp.DefaultServiceConfig(), log)
	orderService.SetSyncLocker(locker)
	shippingService := shippingapp.NewShippingService(uow, orderRepo, productRepo, nil, shippingapp.DefaultServiceConfig(), log)

	middleware.SetupValidator()
	engine, err := router.NewEngine(router.EngineConfig{
		ServiceName: "wms-test",
		HTTP: config.HTTPConfig{
			MaxBodySize:      1 << 20,
			CORSAllowOrigins: []string{"http://localhost:3000"},
		},
	}, router.Dependencies{
		Handlers: router.Handlers{
			Auth:      handler.NewAuthHandler(authService),
			User:      handler.NewUserHandler(identityapp.NewUserService(userRepo, log)),
			Inventory: handler.NewInventoryHandler(inventoryService),
			Order:     handler.NewOrderHandler(orderService),
			Product:   handler.NewProductHandler(productService),
			Shipping:  handler.NewShippingHandler(shippingService),
			Health:    handler.NewHealthHandler(handler.PingFunc(db.SqlDB.PingContext), nil),
		},
		TokenValidator: authService,
		Logger:         log,
	})
	require.NoError(t, err)
	return engine
}

func TestAPI_StockAndOrderFlow(t *testing.T) {
	api := newAPI(t)

	w := testutil.PerformRequest(t, api, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = testutil.PerformRequest(t, api, http.MethodGet, "/api/v1/orders", nil, nil)
	testutil.AssertErrorResponse(t, w, http.StatusUnauthorized, shared.CodeUnauthorized)

	w = testutil.PerformRequest(t, api, http.MethodPost, "/api/v1/auth/login",
		identityapp.LoginRequest{Username: "admin", Password: adminPassword}, nil)
	testutil.AssertSuccessResponse(t, w, http.StatusOK)
	login := testutil.DecodeData[identityapp.LoginResponse](t, w)
	bearer := testutil.BearerHeader(login.AccessToken)

	w = testutil.PerformRequest(t, api, http.MethodPost, "/api/v1/products", catalogapp.CreateProductRequest{
		Name:  "Widget",
		SKU:   "WID-1",
		Price: decimal.RequireFromString("19.95"),
	}, bearer)
	testutil.AssertSuccessResponse(t, w, http.StatusCreated)
	product := testutil.DecodeData[catalogapp.ProductResponse](t, w)

	w = testutil.PerformRequest(t, api, http.MethodPost, "/api/v1/inventory", inventoryapp.CreateRequest{
		ProductID:       product.ID,
		Location:        "A-01",
		InitialQuantity: 5,
	}, bearer)
	testutil.AssertSuccessResponse(t, w, http.StatusCreated)
	row := testutil.DecodeData[inventoryapp.StockResponse](t, w)

	w = testutil.PerformRequest(t, api, http.MethodPost, "/api/v1/orders", tradeapp.CreateOrderRequest{
		ShippingAddress: testutil.SydneyAddress(),
		Items:           []tradeapp.OrderLineRequest{{ProductID: product.ID, Quantity: 2}},
	}, bearer)
	testutil.AssertSuccessResponse(t, w, http.StatusCreated)
	order := testutil.DecodeData[tradeapp.OrderResponse](t, w)
	assert.True(t, decimal.RequireFromString("39.90").Equal(order.TotalAmount))

	w = testutil.PerformRequest(t, api, http.MethodGet, "/api/v1/inventory/"+row.ID.String(), nil, bearer)
	testutil.AssertSuccessResponse(t, w, http.StatusOK)
	assert.Equal(t, 3, testutil.DecodeData[inventoryapp.StockResponse](t, w).Quantity)

	w = testutil.PerformRequest(t, api, http.MethodGet, "/api/v1/inventory/low-stock?threshold=5", nil, bearer)
	testutil.AssertSuccessResponse(t, w, http.StatusOK)
	low := testutil.DecodeData[[]inventoryapp.StockResponse](t, w)
	require.Len(t, low, 1)
	assert.Equal(t, row.ID, low[0].ID)

	w = testutil.PerformRequest(t, api, http.MethodPost, "/api/v1/orders", tradeapp.CreateOrderRequest{
		ShippingAddress: testutil.SydneyAddress(),
		Items:           []tradeapp.OrderLineRequest{{ProductID: product.ID, Quantity: 10}},
	}, bearer)
	testutil.AssertErrorResponse(t, w, http.StatusConflict, shared.CodeInsufficientInventory)

	w = testutil.PerformRequest(t, api, http.MethodGet, "/api/v1/orders", nil, bearer)
	env := testutil.AssertSuccessResponse(t, w, http.StatusOK)
	assert.EqualValues(t, 1, env.Total)

	w = testutil.PerformRequest(t, api, http.MethodPost, "/api/v1/orders/"+order.ID.String()+"/fulfill", nil, bearer)
	testutil.AssertErrorResponse(t, w, http.StatusBadGateway, shared.CodeExternalService)

	w = testutil.PerformRequest(t, api, http.MethodGet, "/api/v1/orders/"+uuid.NewString(), nil, bearer)
	testutil.AssertErrorResponse(t, w, http.StatusNotFound, shared.CodeNotFound)
}
