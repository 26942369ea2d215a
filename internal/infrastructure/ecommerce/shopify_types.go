package ecommerce

import (
	"time"
)

// ---------------------------------------------------------------------------
// Product Types
// ---------------------------------------------------------------------------

// ShopifyProductEnvelope wraps a single product in requests and responses
type ShopifyProductEnvelope struct {
	Product ShopifyProduct `json:"product"`
}

// ShopifyProductListResponse is the response of GET /products.json
type ShopifyProductListResponse struct {
	Products []ShopifyProduct `json:"products"`
}

// ShopifyProduct represents a product resource
type ShopifyProduct struct {
	ID        int64            `json:"id,omitempty"`
	Title     string           `json:"title"`
	BodyHTML  string           `json:"body_html"`
	Status    string           `json:"status,omitempty"`
	Variants  []ShopifyVariant `json:"variants"`
	UpdatedAt *time.Time       `json:"updated_at,omitempty"`
}

// ShopifyVariant represents a product variant; the warehouse uses one variant per product
type ShopifyVariant struct {
	ID                  int64   `json:"id,omitempty"`
	SKU                 string  `json:"sku"`
	Barcode             string  `json:"barcode,omitempty"`
	Price               string  `json:"price"`
	Weight              float64 `json:"weight"`
	WeightUnit          string  `json:"weight_unit"`
	InventoryManagement string  `json:"inventory_management,omitempty"`
	InventoryItemID     int64   `json:"inventory_item_id,omitempty"`
}

// ---------------------------------------------------------------------------
// Order Types
// ---------------------------------------------------------------------------

// ShopifyOrderListResponse is the response of GET /orders.json
type ShopifyOrderListResponse struct {
	Orders []ShopifyOrder `json:"orders"`
}

// ShopifyOrder represents an order resource
type ShopifyOrder struct {
	ID                int64             `json:"id"`
	Name              string            `json:"name"`
	Email             string            `json:"email"`
	TotalPrice        string            `json:"total_price"`
	FinancialStatus   string            `json:"financial_status"`
	FulfillmentStatus *string           `json:"fulfillment_status"`
	CancelledAt       *time.Time        `json:"cancelled_at"`
	ClosedAt          *time.Time        `json:"closed_at"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
	ShippingAddress   *ShopifyAddress   `json:"shipping_address"`
	LineItems         []ShopifyLineItem `json:"line_items"`
}

// ShopifyAddress is a postal address on an order
type ShopifyAddress struct {
	Name         string `json:"name"`
	Company      string `json:"company"`
	Address1     string `json:"address1"`
	Address2     string `json:"address2"`
	City         string `json:"city"`
	Province     string `json:"province"`
	ProvinceCode string `json:"province_code"`
	Zip          string `json:"zip"`
	CountryCode  string `json:"country_code"`
	Phone        string `json:"phone"`
}

// ShopifyLineItem is one line of an order
type ShopifyLineItem struct {
	ID        int64  `json:"id"`
	ProductID *int64 `json:"product_id"`
	VariantID *int64 `json:"variant_id"`
	SKU       string `json:"sku"`
	Title     string `json:"title"`
	Quantity  int    `json:"quantity"`
	Price     string `json:"price"`
}

// ---------------------------------------------------------------------------
// Inventory and Fulfillment Types
// ---------------------------------------------------------------------------

// ShopifyInventoryLevelSetRequest is the body of POST /inventory_levels/set.json
type ShopifyInventoryLevelSetRequest struct {
	LocationID      int64 `json:"location_id"`
	InventoryItemID int64 `json:"inventory_item_id"`
	Available       int   `json:"available"`
}

// ShopifyFulfillmentOrderListResponse is the response of GET /orders/{id}/fulfillment_orders.json
type ShopifyFulfillmentOrderListResponse struct {
	FulfillmentOrders []ShopifyFulfillmentOrder `json:"fulfillment_orders"`
}

// ShopifyFulfillmentOrder groups the lines fulfilled from one location
type ShopifyFulfillmentOrder struct {
	ID     int64  `json:"id"`
	Status string `json:"status"`
}

// ShopifyFulfillmentRequest is the body of POST /fulfillments.json
type ShopifyFulfillmentRequest struct {
	Fulfillment ShopifyFulfillment `json:"fulfillment"`
}

// ShopifyFulfillment records a shipment against fulfillment orders
type ShopifyFulfillment struct {
	NotifyCustomer              bool                             `json:"notify_customer"`
	TrackingInfo                ShopifyTrackingInfo              `json:"tracking_info"`
	LineItemsByFulfillmentOrder []ShopifyFulfillmentOrderLineRef `json:"line_items_by_fulfillment_order"`
}

// ShopifyTrackingInfo carries the carrier and tracking number
type ShopifyTrackingInfo struct {
	Number  string `json:"number"`
	Company string `json:"company"`
}

// ShopifyFulfillmentOrderLineRef references a fulfillment order; no line list fulfills all of it
type ShopifyFulfillmentOrderLineRef struct {
	FulfillmentOrderID int64 `json:"fulfillment_order_id"`
}

// ShopifyErrorResponse is the error body returned on 4xx responses
type ShopifyErrorResponse struct {
	Errors any `json:"errors"`
}
