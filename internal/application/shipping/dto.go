package shipping

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wms/backend/internal/domain/integration"
	"github.com/wms/backend/internal/domain/shared/valueobject"
)

// LabelResponse represents a generated shipping label in API responses
type LabelResponse struct {
	OrderID        uuid.UUID `json:"orderId"`
	Status         string    `json:"status"`
	ShipmentID     string    `json:"shipmentId"`
	TrackingNumber string    `json:"trackingNumber"`
	LabelURL       string    `json:"labelUrl"`
	ArchivedURL    string    `json:"archivedUrl,omitempty"`
	Reused         bool      `json:"reused"`
}

// TrackingResponse represents tracking information in API responses
type TrackingResponse struct {
	OrderID uuid.UUID `json:"orderId"`
	integration.TrackingInfo
}

// QuoteResponse represents shipping options for an order
type QuoteResponse struct {
	OrderID  uuid.UUID           `json:"orderId"`
	WeightKg decimal.Decimal     `json:"weightKg"`
	Quotes   []integration.Quote `json:"quotes"`
}

// ValidateAddressRequest represents an address to check with the carrier
type ValidateAddressRequest struct {
	Address valueobject.Address `json:"address" binding:"required"`
}
