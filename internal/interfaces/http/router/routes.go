package router

import (
	"github.com/gin-gonic/gin"
	"github.com/wms/backend/internal/domain/identity"
	"github.com/wms/backend/internal/infrastructure/cache"
	"github.com/wms/backend/internal/infrastructure/config"
	"github.com/wms/backend/internal/infrastructure/logger"
	"github.com/wms/backend/internal/infrastructure/telemetry"
	"github.com/wms/backend/internal/interfaces/http/handler"
	"github.com/wms/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

const healthPath = "/health"

// Handlers groups the HTTP handlers served by the engine
type Handlers struct {
	Auth      *handler.AuthHandler
	User      *handler.UserHandler
	Inventory *handler.InventoryHandler
	Order     *handler.OrderHandler
	Product   *handler.ProductHandler
	Shipping  *handler.ShippingHandler
	Health    *handler.HealthHandler
}

// EngineConfig holds the settings that shape the middleware chain
type EngineConfig struct {
	ServiceName      string
	TracingEnabled   bool
	ProfilingEnabled bool
	HTTP             config.HTTPConfig
}

// Dependencies are the collaborators of the middleware chain
type Dependencies struct {
	Handlers       Handlers
	TokenValidator middleware.TokenValidator
	RateLimitStore cache.RateLimitStore
	// MeterProvider may be nil, which disables HTTP metrics
	MeterProvider *telemetry.MeterProvider
	Logger        *zap.Logger
}

// NewEngine builds the gin engine with the global middleware chain, the
// health endpoint and every /api/v1 route
func NewEngine(cfg EngineConfig, deps Dependencies) (*gin.Engine, error) {
	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		return nil, err
	}

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsConfig.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}

	// Order matters: the request id feeds the logger and the span enricher,
	// and Recovery must wrap everything below it.
	engine.Use(
		middleware.RequestID(),
		logger.Recovery(deps.Logger),
		logger.GinMiddleware(deps.Logger, healthPath),
		middleware.Tracing(cfg.ServiceName, cfg.TracingEnabled),
		middleware.SpanEnricher(),
		middleware.Profiling(cfg.ProfilingEnabled, healthPath),
		middleware.HTTPMetrics(deps.MeterProvider, deps.Logger),
		middleware.Secure(),
		middleware.CORSWithConfig(corsConfig),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
	)

	engine.GET(healthPath, deps.Handlers.Health.Check)

	var apiMiddleware []gin.HandlerFunc
	if cfg.HTTP.RateLimitEnabled && deps.RateLimitStore != nil {
		apiMiddleware = append(apiMiddleware, middleware.RateLimit(deps.RateLimitStore, middleware.RateLimitConfig{
			Name:   "api",
			Limit:  cfg.HTTP.RateLimitRequests,
			Window: cfg.HTTP.RateLimitWindow,
		}, deps.Logger))
	}

	r := NewRouter(engine, WithAPIVersion("v1"), WithAPIMiddleware(apiMiddleware...))
	r.Register(publicAuthRoutes(cfg.HTTP, deps))
	r.Register(protectedRoutes(deps))
	r.Setup()

	return engine, nil
}

func publicAuthRoutes(cfg config.HTTPConfig, deps Dependencies) *DomainGroup {
	h := deps.Handlers.Auth
	g := NewDomainGroup("auth", "/auth")
	if cfg.AuthRateLimitEnabled && deps.RateLimitStore != nil {
		g.Use(middleware.RateLimit(deps.RateLimitStore, middleware.RateLimitConfig{
			Name:   "auth",
			Limit:  cfg.AuthRateLimitRequests,
			Window: cfg.AuthRateLimitWindow,
		}, deps.Logger))
	}

	g.POST("/login", h.Login).
		POST("/register", h.Register).
		POST("/refresh", h.RefreshToken).
		POST("/reset-password", h.RequestPasswordReset).
		POST("/reset-password/confirm", h.ConfirmPasswordReset)
	return g
}

func protectedRoutes(deps Dependencies) *DomainGroup {
	log := deps.Logger
	h := deps.Handlers
	managers := middleware.RequireRoles(log, identity.ManagerRoles...)
	operators := middleware.RequireRoles(log, identity.OperatorRoles...)
	admins := middleware.RequireRoles(log, identity.RoleAdmin)

	root := NewDomainGroup("protected", "").Use(middleware.JWTAuth(deps.TokenValidator, log))

	root.Group("session", "/auth").
		POST("/logout", h.Auth.Logout).
		POST("/change-password", h.Auth.ChangePassword).
		GET("/me", h.Auth.Me)

	root.Group("inventory", "/inventory").
		GET("", h.Inventory.List).
		GET("/low-stock", h.Inventory.LowStock).
		GET("/export", h.Inventory.Export).
		GET("/:id", h.Inventory.GetByID).
		GET("/:id/adjustments", h.Inventory.ListAdjustments).
		POST("", managers, h.Inventory.Create).
		POST("/adjust", operators, h.Inventory.Adjust).
		POST("/transfer", operators, h.Inventory.Transfer).
		POST("/sync", managers, h.Inventory.Sync).
		POST("/:id/count", operators, h.Inventory.Count)

	root.Group("orders", "/orders").
		GET("", h.Order.List).
		GET("/:id", h.Order.GetByID).
		POST("", managers, h.Order.Create).
		POST("/sync", managers, h.Order.Sync).
		PUT("/:id", managers, h.Order.Update).
		DELETE("/:id", managers, h.Order.Delete).
		POST("/:id/fulfill", operators, h.Order.Fulfill)

	root.Group("products", "/products").
		GET("", h.Product.List).
		GET("/:id", h.Product.GetByID).
		GET("/:id/inventory", h.Product.GetInventory).
		POST("", managers, h.Product.Create).
		POST("/sync", managers, h.Product.Sync).
		PUT("/:id", managers, h.Product.Update).
		DELETE("/:id", managers, h.Product.Delete)

	root.Group("shipping", "/shipping").
		POST("/label/:orderId", operators, h.Shipping.GenerateLabel).
		GET("/tracking/:orderId", h.Shipping.GetTracking).
		GET("/quote/:orderId", h.Shipping.GetQuotes).
		POST("/validate-address", operators, h.Shipping.ValidateAddress).
		POST("/cancel/:orderId", managers, h.Shipping.CancelShipment)

	root.Group("users", "/users").Use(admins).
		GET("", h.User.List).
		PUT("/:id/role", h.User.UpdateRole)

	return root
}
