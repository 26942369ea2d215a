package integration

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wms/backend/internal/domain/shared/valueobject"
)

// Parcel describes the package handed to the carrier
type Parcel struct {
	WeightKg    decimal.Decimal
	Description string
}

// LabelRequest asks the carrier for a shipment and its label.
// IdempotencyKey makes retries return the original shipment.
type LabelRequest struct {
	IdempotencyKey string
	Reference      string
	Receiver       valueobject.Address
	Parcel         Parcel
}

// Label is a booked carrier shipment
type Label struct {
	ShipmentID     string
	TrackingNumber string
	LabelURL       string
	TrackingURL    string
	Carrier        string
	Price          decimal.Decimal
	Currency       string
}

// TrackingEvent is one scan in a shipment's history
type TrackingEvent struct {
	Type        string    `json:"type"`
	Description string    `json:"description"`
	Location    string    `json:"location,omitempty"`
	OccurredAt  time.Time `json:"occurredAt"`
}

// TrackingInfo is the current state of a shipment
type TrackingInfo struct {
	TrackingNumber string          `json:"trackingNumber"`
	State          string          `json:"state"`
	Events         []TrackingEvent `json:"events"`
}

// QuoteRequest asks for prices to ship a parcel to an address
type QuoteRequest struct {
	Receiver valueobject.Address
	Parcel   Parcel
}

// Quote is one shipping option offered by the carrier
type Quote struct {
	Plan     string          `json:"plan"`
	Price    decimal.Decimal `json:"price"`
	Currency string          `json:"currency"`
	EtaDays  []int           `json:"etaDays,omitempty"`
}

// AddressValidation is the carrier's verdict on an address
type AddressValidation struct {
	Valid    bool     `json:"valid"`
	Messages []string `json:"messages,omitempty"`
}

// ShippingProvider is the port to the carrier
type ShippingProvider interface {
	// CreateLabel books a shipment and returns its label
	CreateLabel(ctx context.Context, req LabelRequest) (*Label, error)

	// GetTracking returns the tracking history of a shipment
	GetTracking(ctx context.Context, trackingNumber string) (*TrackingInfo, error)

	// GetQuotes returns the shipping options for a parcel
	GetQuotes(ctx context.Context, req QuoteRequest) ([]Quote, error)

	// ValidateAddress checks that the carrier can deliver to an address
	ValidateAddress(ctx context.Context, address valueobject.Address) (*AddressValidation, error)

	// CancelShipment cancels a booked shipment
	CancelShipment(ctx context.Context, shipmentID string) error

	// DownloadLabel fetches the label document of a shipment
	DownloadLabel(ctx context.Context, labelURL string) ([]byte, error)
}

// DocumentStore keeps durable copies of generated documents such as labels
type DocumentStore interface {
	// Put stores a document under key
	Put(ctx context.Context, key string, body []byte, contentType string) error

	// PresignedURL returns a time-limited download URL for key
	PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}
