package shipping

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wms/backend/internal/domain/shared/valueobject"
	"github.com/wms/backend/internal/infrastructure/config"
)

// SendleConfig holds configuration for the Sendle API
type SendleConfig struct {
	SendleID string
	APIKey   string
	// BaseURL is https://api.sendle.com or https://sandbox.sendle.com
	BaseURL string
	Timeout time.Duration
	// Pickup is the warehouse address parcels are collected from
	Pickup valueobject.Address
	// DefaultWeightKg is used when a parcel has no weight
	DefaultWeightKg decimal.Decimal
}

const (
	defaultSendleBaseURL = "https://api.sendle.com"
	defaultSendleTimeout = 10 * time.Second
)

// Errors for Sendle configuration
var (
	ErrSendleConfigMissingCredentials = errors.New("sendle: sendle id and api key are required")
	ErrSendleConfigMissingPickup      = errors.New("sendle: pickup address is required")
)

// NewSendleConfig converts the application settings into adapter configuration
func NewSendleConfig(cfg config.SendleConfig) *SendleConfig {
	p := cfg.PickupAddress
	c := &SendleConfig{
		SendleID: strings.TrimSpace(cfg.SendleID),
		APIKey:   cfg.APIKey,
		BaseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		Timeout:  cfg.Timeout,
		Pickup: valueobject.Address{
			Name:     p.Name,
			Company:  p.Company,
			Line1:    p.Line1,
			Line2:    p.Line2,
			City:     p.City,
			State:    p.State,
			Postcode: p.Postcode,
			Country:  p.Country,
			Phone:    p.Phone,
			Email:    p.Email,
		}.Normalize(),
		DefaultWeightKg: decimal.NewFromFloat(cfg.DefaultWeightKg),
	}
	if c.BaseURL == "" {
		c.BaseURL = defaultSendleBaseURL
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultSendleTimeout
	}
	if c.Pickup.Country == "" {
		c.Pickup.Country = "AU"
	}
	if !c.DefaultWeightKg.IsPositive() {
		c.DefaultWeightKg = decimal.RequireFromString("0.5")
	}
	return c
}

// Validate validates the Sendle configuration
func (c *SendleConfig) Validate() error {
	if c.SendleID == "" || c.APIKey == "" {
		return ErrSendleConfigMissingCredentials
	}
	if c.Pickup.Line1 == "" || c.Pickup.City == "" || c.Pickup.Postcode == "" {
		return ErrSendleConfigMissingPickup
	}
	return nil
}
