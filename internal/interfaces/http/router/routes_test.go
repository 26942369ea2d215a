package router

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	identityapp "github.com/wms/backend/internal/application/identity"
	inventoryapp "github.com/wms/backend/internal/application/inventory"
	"github.com/wms/backend/internal/domain/identity"
	"github.com/wms/backend/internal/domain/integration"
	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/infrastructure/auth"
	"github.com/wms/backend/internal/infrastructure/cache"
	"github.com/wms/backend/internal/infrastructure/config"
	"github.com/wms/backend/internal/interfaces/http/handler"
	"github.com/wms/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// tokenTable maps bearer tokens to roles
type tokenTable map[string]identity.Role

func (t tokenTable) ValidateAccessToken(_ context.Context, token string) (*auth.Claims, error) {
	role, ok := t[token]
	if !ok {
		return nil, shared.NewDomainError(shared.CodeTokenInvalid, "Invalid token")
	}
	return &auth.Claims{UserID: uuid.NewString(), Role: string(role), TokenType: auth.TokenTypeAccess}, nil
}

// The stubs embed the service interfaces; only the methods the tests reach
// are implemented.
type stubAuth struct{ handler.AuthService }

func (stubAuth) Login(context.Context, identityapp.LoginRequest) (*identityapp.LoginResponse, error) {
	return &identityapp.LoginResponse{}, nil
}

type stubInventory struct{ handler.InventoryService }

func (stubInventory) GetLowStock(context.Context, int) ([]inventoryapp.StockResponse, error) {
	return []inventoryapp.StockResponse{}, nil
}

func (stubInventory) SyncWithExternal(context.Context) (*integration.SyncResult, error) {
	return &integration.SyncResult{Status: integration.SyncStatusSuccess}, nil
}

type stubUsers struct{ handler.UserService }

func (stubUsers) ListUsers(context.Context, identityapp.UserListFilter) (shared.Paginated[identityapp.UserResponse], error) {
	return shared.NewPaginated([]identityapp.UserResponse{}, 0, 1, 20), nil
}

func newTestEngine(t *testing.T, httpCfg config.HTTPConfig, dbErr error) *gin.Engine {
	t.Helper()
	store := cache.NewInMemoryRateLimitStore(0)
	t.Cleanup(store.Close)

	engine, err := NewEngine(EngineConfig{ServiceName: "wms-test", HTTP: httpCfg}, Dependencies{
		Handlers: Handlers{
			Auth:      handler.NewAuthHandler(stubAuth{}),
			User:      handler.NewUserHandler(stubUsers{}),
			Inventory: handler.NewInventoryHandler(stubInventory{}),
			Order:     handler.NewOrderHandler(nil),
			Product:   handler.NewProductHandler(nil),
			Shipping:  handler.NewShippingHandler(nil),
			Health: handler.NewHealthHandler(handler.PingFunc(func(context.Context) error {
				return dbErr
			}), nil),
		},
		TokenValidator: tokenTable{
			"admin":    identity.RoleAdmin,
			"manager":  identity.RoleWarehouseManager,
			"staff":    identity.RoleWarehouseStaff,
			"readonly": identity.RoleReadOnly,
		},
		RateLimitStore: store,
		Logger:         zap.NewNop(),
	})
	require.NoError(t, err)
	return engine
}

func request(engine *gin.Engine, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set(middleware.AuthHeaderKey, middleware.BearerPrefix+token)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestEngine_Health(t *testing.T) {
	engine := newTestEngine(t, config.HTTPConfig{}, nil)
	w := request(engine, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))

	engine = newTestEngine(t, config.HTTPConfig{}, errors.New("db down"))
	assert.Equal(t, http.StatusServiceUnavailable, request(engine, http.MethodGet, "/health", "", "").Code)
}

func TestEngine_RoleMatrix(t *testing.T) {
	engine := newTestEngine(t, config.HTTPConfig{}, nil)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"no token", http.MethodGet, "/api/v1/inventory/low-stock", "", http.StatusUnauthorized},
		{"bad token", http.MethodGet, "/api/v1/inventory/low-stock", "forged", http.StatusUnauthorized},
		{"read only may read", http.MethodGet, "/api/v1/inventory/low-stock", "readonly", http.StatusOK},
		{"staff may not sync", http.MethodPost, "/api/v1/inventory/sync", "staff", http.StatusForbidden},
		{"manager may sync", http.MethodPost, "/api/v1/inventory/sync", "manager", http.StatusOK},
		{"read only may not adjust", http.MethodPost, "/api/v1/inventory/adjust", "readonly", http.StatusForbidden},
		{"staff may not create orders", http.MethodPost, "/api/v1/orders", "staff", http.StatusForbidden},
		{"read only may not fulfill", http.MethodPost, "/api/v1/orders/" + uuid.NewString() + "/fulfill", "readonly", http.StatusForbidden},
		{"staff may not delete products", http.MethodDelete, "/api/v1/products/" + uuid.NewString(), "staff", http.StatusForbidden},
		{"staff may not cancel shipments", http.MethodPost, "/api/v1/shipping/cancel/" + uuid.NewString(), "staff", http.StatusForbidden},
		{"manager may not list users", http.MethodGet, "/api/v1/users", "manager", http.StatusForbidden},
		{"admin lists users", http.MethodGet, "/api/v1/users", "admin", http.StatusOK},
		{"unknown route", http.MethodGet, "/api/v1/warehouses", "admin", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := request(engine, tt.method, tt.path, tt.token, "")
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestEngine_AuthRateLimit(t *testing.T) {
	engine := newTestEngine(t, config.HTTPConfig{
		AuthRateLimitEnabled:  true,
		AuthRateLimitRequests: 2,
		AuthRateLimitWindow:   time.Minute,
	}, nil)
	body := `{"username":"alice","password":"Secret123!"}`

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, request(engine, http.MethodPost, "/api/v1/auth/login", "", body).Code)
	}
	w := request(engine, http.MethodPost, "/api/v1/auth/login", "", body)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	// authenticated routes use a separate limiter
	assert.Equal(t, http.StatusOK, request(engine, http.MethodGet, "/api/v1/inventory/low-stock", "staff", "").Code)
}

func TestEngine_BodyLimit(t *testing.T) {
	engine := newTestEngine(t, config.HTTPConfig{MaxBodySize: 16}, nil)
	body := `{"username":"alice","password":"a-much-too-long-password"}`

	w := request(engine, http.MethodPost, "/api/v1/auth/login", "", body)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}
