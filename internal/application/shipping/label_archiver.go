package shipping

import (
	"context"
	"strings"
	"time"

	"github.com/wms/backend/internal/domain/integration"
	"github.com/wms/backend/internal/domain/trade"
	"go.uber.org/zap"
)

// LabelArchiver copies carrier label documents into the document store.
// Archiving is best effort: failures are logged and reported as an empty URL.
type LabelArchiver struct {
	provider integration.ShippingProvider
	store    integration.DocumentStore
	prefix   string
	urlTTL   time.Duration
	logger   *zap.Logger
}

// NewLabelArchiver creates a new LabelArchiver.
// A nil store disables archiving.
func NewLabelArchiver(provider integration.ShippingProvider, store integration.DocumentStore, prefix string, urlTTL time.Duration, logger *zap.Logger) *LabelArchiver {
	if urlTTL <= 0 {
		urlTTL = 24 * time.Hour
	}
	return &LabelArchiver{
		provider: provider,
		store:    store,
		prefix:   strings.Trim(prefix, "/"),
		urlTTL:   urlTTL,
		logger:   logger,
	}
}

// Key returns the object key of an order's label
func (a *LabelArchiver) Key(order *trade.Order) string {
	key := order.LabelKey() + ".pdf"
	if a.prefix != "" {
		key = a.prefix + "/" + key
	}
	return key
}

// Archive stores the order's label and returns a presigned download URL
func (a *LabelArchiver) Archive(ctx context.Context, order *trade.Order) string {
	if a == nil || a.store == nil || a.provider == nil || order.LabelURL == nil {
		return ""
	}

	log := a.logger.With(zap.String("order_id", order.ID.String()))

	body, err := a.provider.DownloadLabel(ctx, *order.LabelURL)
	if err != nil {
		log.Warn("Failed to download shipping label", zap.Error(err))
		return ""
	}

	key := a.Key(order)
	if err := a.store.Put(ctx, key, body, "application/pdf"); err != nil {
		log.Warn("Failed to archive shipping label", zap.String("key", key), zap.Error(err))
		return ""
	}

	url, err := a.store.PresignedURL(ctx, key, a.urlTTL)
	if err != nil {
		log.Warn("Failed to presign label URL", zap.String("key", key), zap.Error(err))
		return ""
	}

	log.Info("Shipping label archived", zap.String("key", key))
	return url
}
