package main

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	catalogapp "github.com/wms/backend/internal/application/catalog"
	identityapp "github.com/wms/backend/internal/application/identity"
	inventoryapp "github.com/wms/backend/internal/application/inventory"
	shippingapp "github.com/wms/backend/internal/application/shipping"
	tradeapp "github.com/wms/backend/internal/application/trade"
	"github.com/wms/backend/internal/domain/integration"
	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/infrastructure/auth"
	"github.com/wms/backend/internal/infrastructure/cache"
	"github.com/wms/backend/internal/infrastructure/config"
	"github.com/wms/backend/internal/infrastructure/ecommerce"
	"github.com/wms/backend/internal/infrastructure/event"
	"github.com/wms/backend/internal/infrastructure/export"
	"github.com/wms/backend/internal/infrastructure/mail"
	"github.com/wms/backend/internal/infrastructure/persistence"
	"github.com/wms/backend/internal/infrastructure/shipping"
	"github.com/wms/backend/internal/infrastructure/storage"
	"github.com/wms/backend/internal/infrastructure/telemetry"
	"github.com/wms/backend/internal/interfaces/http/handler"
	"github.com/wms/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
)

const rateLimitCleanupInterval = time.Minute

// application holds the wired services and what must be closed on exit
type application struct {
	handlers       router.Handlers
	authService    *identityapp.AuthService
	rateLimitStore cache.RateLimitStore
	closers        []func() error
}

func (a *application) close(log *zap.Logger) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Warn("Error during shutdown", zap.Error(err))
		}
	}
}

func cacheClient(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	return cache.NewRedisClient(ctx, cfg.Redis)
}

func buildApplication(
	_ context.Context,
	cfg *config.Config,
	db *persistence.Database,
	redisClient *redis.Client,
	tel *telemetryStack,
	log *zap.Logger,
) (*application, error) {
	app := &application{}

	// Coordination: Redis when configured, process memory otherwise
	var (
		blacklist  auth.TokenBlacklist
		syncLocker integration.SyncLocker
	)
	if redisClient != nil {
		blacklist = auth.NewRedisTokenBlacklist(redisClient)
		syncLocker = cache.NewRedisSyncLocker(redisClient, cache.DefaultSyncLockTTL, log)
		app.rateLimitStore = cache.NewRedisRateLimitStore(redisClient)
	} else {
		blacklist = auth.NewInMemoryTokenBlacklist()
		syncLocker = cache.NewInMemorySyncLocker()
		memStore := cache.NewInMemoryRateLimitStore(rateLimitCleanupInterval)
		app.closers = append(app.closers, func() error { memStore.Close(); return nil })
		app.rateLimitStore = memStore
	}

	// Repositories
	uow := persistence.NewGormTransactionScope(db.DB)
	userRepo := persistence.NewGormUserRepository(db.DB)
	productRepo := persistence.NewGormProductRepository(db.DB)
	inventoryRepo := persistence.NewGormInventoryItemRepository(db.DB)
	adjustmentRepo := persistence.NewGormAdjustmentRepository(db.DB)
	orderRepo := persistence.NewGormOrderRepository(db.DB)

	// Domain events go to Kafka when configured and are counted on the way
	var publisher shared.EventPublisher = event.NewLogPublisher(log)
	if cfg.Messaging.Enabled {
		kafkaPublisher, err := event.NewKafkaPublisher(cfg.Messaging, log)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, kafkaPublisher.Close)
		publisher = kafkaPublisher
	}
	if tel.meter.IsEnabled() {
		metrics, err := telemetry.NewBusinessMetrics(tel.meter.Meter("wms.business"), inventoryRepo,
			inventoryapp.DefaultLowStockThreshold, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create business metrics: %w", err)
		}
		app.closers = append(app.closers, metrics.Close)
		publisher = telemetry.NewMetricsPublisher(publisher, metrics)
	}

	// External services; left nil when disabled so services keep working locally
	var catalogProvider integration.CatalogProvider
	if cfg.Shopify.Enabled {
		adapter, err := ecommerce.NewShopifyAdapter(ecommerce.NewShopifyConfig(cfg.Shopify))
		if err != nil {
			return nil, fmt.Errorf("invalid Shopify configuration: %w", err)
		}
		catalogProvider = adapter
		log.Info("Shopify integration enabled", zap.String("shop", cfg.Shopify.ShopDomain))
	}

	var shippingProvider integration.ShippingProvider
	if cfg.Sendle.Enabled {
		adapter, err := shipping.NewSendleAdapter(shipping.NewSendleConfig(cfg.Sendle))
		if err != nil {
			return nil, fmt.Errorf("invalid Sendle configuration: %w", err)
		}
		shippingProvider = adapter
		log.Info("Sendle integration enabled", zap.String("base_url", cfg.Sendle.BaseURL))
	}

	var archiver *shippingapp.LabelArchiver
	if cfg.Storage.Enabled && shippingProvider != nil {
		store, err := storage.NewS3DocumentStore(&cfg.Storage, storage.WithLogger(log))
		if err != nil {
			return nil, fmt.Errorf("failed to create label store: %w", err)
		}
		archiver = shippingapp.NewLabelArchiver(shippingProvider, store, cfg.Storage.LabelPrefix, cfg.Storage.PresignTTL, log)
		log.Info("Label archiving enabled", zap.String("bucket", cfg.Storage.Bucket))
	}

	var mailer identityapp.PasswordResetMailer = mail.NewLogMailer(cfg.Mail.ResetURL, log)
	if cfg.Mail.Enabled {
		smtpMailer, err := mail.NewSMTPMailer(cfg.Mail, cfg.Auth.ResetTokenTTL, log)
		if err != nil {
			return nil, fmt.Errorf("invalid mail configuration: %w", err)
		}
		mailer = smtpMailer
	}

	// Application services
	authService := identityapp.NewAuthService(userRepo, auth.NewJWTService(cfg.JWT), blacklist,
		identityapp.AuthServiceConfig{
			MaxLoginAttempts: cfg.Auth.MaxLoginAttempts,
			LockDuration:     cfg.Auth.LockDuration,
			ResetTokenTTL:    cfg.Auth.ResetTokenTTL,
		}, log)
	authService.SetMailer(mailer)
	userService := identityapp.NewUserService(userRepo, log)

	inventoryService := inventoryapp.NewInventoryService(uow, inventoryRepo, adjustmentRepo, productRepo, log)
	inventoryService.SetEventPublisher(publisher)
	inventoryService.SetCatalogProvider(catalogProvider)
	inventoryService.SetSyncLocker(syncLocker)
	inventoryService.SetExporter(export.NewXLSXStockExporter())

	productService := catalogapp.NewProductService(uow, productRepo, inventoryRepo, log)
	productService.SetEventPublisher(publisher)
	productService.SetCatalogProvider(catalogProvider)
	productService.SetSyncLocker(syncLocker)

	defaultWeight := decimal.NewFromFloat(cfg.Sendle.DefaultWeightKg)
	orderService := tradeapp.NewOrderService(uow, orderRepo, tradeapp.ServiceConfig{DefaultWeightKg: defaultWeight}, log)
	orderService.SetEventPublisher(publisher)
	orderService.SetCatalogProvider(catalogProvider)
	orderService.SetShippingProvider(shippingProvider)
	orderService.SetSyncLocker(syncLocker)
	if archiver != nil {
		orderService.SetLabelArchiver(archiver)
	}

	shippingService := shippingapp.NewShippingService(uow, orderRepo, productRepo, shippingProvider,
		shippingapp.ServiceConfig{DefaultWeightKg: defaultWeight}, log)
	shippingService.SetLabelArchiver(archiver)

	app.authService = authService
	app.handlers = router.Handlers{
		Auth:      handler.NewAuthHandler(authService),
		User:      handler.NewUserHandler(userService),
		Inventory: handler.NewInventoryHandler(inventoryService),
		Order:     handler.NewOrderHandler(orderService),
		Product:   handler.NewProductHandler(productService),
		Shipping:  handler.NewShippingHandler(shippingService),
	}
	return app, nil
}
