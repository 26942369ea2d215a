package ecommerce

import (
	"errors"
	"strings"
	"time"

	"github.com/wms/backend/internal/infrastructure/config"
)

// ShopifyConfig holds configuration for the Shopify Admin REST API
type ShopifyConfig struct {
	// ShopDomain is the myshopify.com domain of the store
	ShopDomain string
	// AccessToken is the Admin API access token of the custom app
	AccessToken string
	// APIVersion is the dated Admin API version, e.g. 2024-01
	APIVersion string
	// LocationID is the inventory location whose levels are set
	LocationID string
	// BaseURL overrides https://{ShopDomain}
	BaseURL string
	// Timeout bounds every API call
	Timeout time.Duration
}

const (
	// DefaultShopifyAPIVersion is used when no version is configured
	DefaultShopifyAPIVersion = "2024-01"
	defaultShopifyTimeout    = 30 * time.Second
)

// Errors for Shopify configuration
var (
	ErrShopifyConfigMissingDomain      = errors.New("shopify: shop domain is required")
	ErrShopifyConfigMissingAccessToken = errors.New("shopify: access token is required")
	ErrShopifyConfigMissingLocation    = errors.New("shopify: location ID is required")
)

// NewShopifyConfig converts the application settings into adapter configuration
func NewShopifyConfig(cfg config.ShopifyConfig) *ShopifyConfig {
	c := &ShopifyConfig{
		ShopDomain:  strings.TrimSpace(cfg.ShopDomain),
		AccessToken: cfg.AccessToken,
		APIVersion:  cfg.APIVersion,
		LocationID:  cfg.LocationID,
		BaseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		Timeout:     cfg.Timeout,
	}
	if c.APIVersion == "" {
		c.APIVersion = DefaultShopifyAPIVersion
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultShopifyTimeout
	}
	return c
}

// Validate validates the Shopify configuration
func (c *ShopifyConfig) Validate() error {
	if c.ShopDomain == "" && c.BaseURL == "" {
		return ErrShopifyConfigMissingDomain
	}
	if c.AccessToken == "" {
		return ErrShopifyConfigMissingAccessToken
	}
	if c.LocationID == "" {
		return ErrShopifyConfigMissingLocation
	}
	return nil
}

// APIBaseURL returns the versioned Admin API root
func (c *ShopifyConfig) APIBaseURL() string {
	base := c.BaseURL
	if base == "" {
		base = "https://" + c.ShopDomain
	}
	return base + "/admin/api/" + c.APIVersion
}
