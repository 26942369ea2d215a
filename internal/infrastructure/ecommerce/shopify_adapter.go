package ecommerce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wms/backend/internal/domain/integration"
	"github.com/wms/backend/internal/domain/shared/valueobject"
	"github.com/wms/backend/internal/infrastructure/telemetry"
)

const (
	// maxShopifyResponseSize limits the response body size to prevent memory exhaustion
	maxShopifyResponseSize = 10 * 1024 * 1024
	// shopifyPageLimit is the largest page the Admin API serves
	shopifyPageLimit = 250
	// shopifyMaxPages bounds cursor pagination
	shopifyMaxPages = 200
)

var linkNextPattern = regexp.MustCompile(`<([^>]+)>;\s*rel="next"`)

// ShopifyAdapter implements integration.CatalogProvider against the Shopify Admin REST API
type ShopifyAdapter struct {
	config     *ShopifyConfig
	httpClient *http.Client
}

// NewShopifyAdapter creates a new Shopify adapter with the given configuration
func NewShopifyAdapter(config *ShopifyConfig) (*ShopifyAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &ShopifyAdapter{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
	}, nil
}

// ---------------------------------------------------------------------------
// Product Operations
// ---------------------------------------------------------------------------

// CreateProduct creates a single-variant product and returns its ID
func (a *ShopifyAdapter) CreateProduct(ctx context.Context, input integration.ProductInput) (string, error) {
	var resp ShopifyProductEnvelope
	if _, err := a.doRequest(ctx, http.MethodPost, "/products.json", toShopifyProduct(input, 0), &resp); err != nil {
		return "", err
	}
	if resp.Product.ID == 0 {
		return "", fmt.Errorf("%w: product id missing", integration.ErrPlatformInvalidResponse)
	}
	return strconv.FormatInt(resp.Product.ID, 10), nil
}

// UpdateProduct replaces title, description and the variant fields
func (a *ShopifyAdapter) UpdateProduct(ctx context.Context, remoteID string, input integration.ProductInput) error {
	productID, err := parseShopifyID(remoteID)
	if err != nil {
		return err
	}
	current, err := a.getProduct(ctx, productID)
	if err != nil {
		return err
	}
	var variantID int64
	if len(current.Variants) > 0 {
		variantID = current.Variants[0].ID
	}

	body := toShopifyProduct(input, variantID)
	body.Product.ID = productID
	_, err = a.doRequest(ctx, http.MethodPut, fmt.Sprintf("/products/%d.json", productID), body, nil)
	return err
}

// DeleteProduct removes a product
func (a *ShopifyAdapter) DeleteProduct(ctx context.Context, remoteID string) error {
	productID, err := parseShopifyID(remoteID)
	if err != nil {
		return err
	}
	_, err = a.doRequest(ctx, http.MethodDelete, fmt.Sprintf("/products/%d.json", productID), nil, nil)
	return err
}

// ListProducts pages through every product
func (a *ShopifyAdapter) ListProducts(ctx context.Context) ([]integration.RemoteProduct, error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(shopifyPageLimit))

	products := make([]integration.RemoteProduct, 0)
	err := a.paginate(ctx, "/products.json?"+query.Encode(), func(body []byte) error {
		var page ShopifyProductListResponse
		if err := json.Unmarshal(body, &page); err != nil {
			return fmt.Errorf("%w: %v", integration.ErrPlatformInvalidResponse, err)
		}
		for i := range page.Products {
			products = append(products, convertShopifyProduct(&page.Products[i]))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return products, nil
}

func (a *ShopifyAdapter) getProduct(ctx context.Context, productID int64) (*ShopifyProduct, error) {
	var resp ShopifyProductEnvelope
	if _, err := a.doRequest(ctx, http.MethodGet, fmt.Sprintf("/products/%d.json", productID), nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Product, nil
}

// ---------------------------------------------------------------------------
// Order Operations
// ---------------------------------------------------------------------------

// ListOrders returns orders of any status updated since the given time
func (a *ShopifyAdapter) ListOrders(ctx context.Context, since time.Time) ([]integration.RemoteOrder, error) {
	query := url.Values{}
	query.Set("status", "any")
	query.Set("limit", strconv.Itoa(shopifyPageLimit))
	if !since.IsZero() {
		query.Set("updated_at_min", since.UTC().Format(time.RFC3339))
	}

	orders := make([]integration.RemoteOrder, 0)
	err := a.paginate(ctx, "/orders.json?"+query.Encode(), func(body []byte) error {
		var page ShopifyOrderListResponse
		if err := json.Unmarshal(body, &page); err != nil {
			return fmt.Errorf("%w: %v", integration.ErrPlatformInvalidResponse, err)
		}
		for i := range page.Orders {
			orders = append(orders, convertShopifyOrder(&page.Orders[i]))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// MarkOrderFulfilled fulfills every open fulfillment order with the tracking details
func (a *ShopifyAdapter) MarkOrderFulfilled(ctx context.Context, remoteOrderID, trackingNumber, carrier string) error {
	orderID, err := parseShopifyID(remoteOrderID)
	if err != nil {
		return err
	}

	var list ShopifyFulfillmentOrderListResponse
	if _, err := a.doRequest(ctx, http.MethodGet, fmt.Sprintf("/orders/%d/fulfillment_orders.json", orderID), nil, &list); err != nil {
		return err
	}

	refs := make([]ShopifyFulfillmentOrderLineRef, 0, len(list.FulfillmentOrders))
	for _, fo := range list.FulfillmentOrders {
		if fo.Status == "open" || fo.Status == "in_progress" {
			refs = append(refs, ShopifyFulfillmentOrderLineRef{FulfillmentOrderID: fo.ID})
		}
	}
	if len(refs) == 0 {
		// Fulfilled on the storefront already
		return nil
	}

	body := ShopifyFulfillmentRequest{Fulfillment: ShopifyFulfillment{
		NotifyCustomer:              true,
		TrackingInfo:                ShopifyTrackingInfo{Number: trackingNumber, Company: carrier},
		LineItemsByFulfillmentOrder: refs,
	}}
	_, err = a.doRequest(ctx, http.MethodPost, "/fulfillments.json", body, nil)
	return err
}

// ---------------------------------------------------------------------------
// Inventory Operations
// ---------------------------------------------------------------------------

// SetInventoryLevel sets the available quantity of the product's variant at the configured location
func (a *ShopifyAdapter) SetInventoryLevel(ctx context.Context, remoteProductID string, available int) error {
	productID, err := parseShopifyID(remoteProductID)
	if err != nil {
		return err
	}
	locationID, err := parseShopifyID(a.config.LocationID)
	if err != nil {
		return err
	}

	product, err := a.getProduct(ctx, productID)
	if err != nil {
		return err
	}
	if len(product.Variants) == 0 || product.Variants[0].InventoryItemID == 0 {
		return fmt.Errorf("%w: product %d has no inventory item", integration.ErrPlatformInvalidResponse, productID)
	}

	body := ShopifyInventoryLevelSetRequest{
		LocationID:      locationID,
		InventoryItemID: product.Variants[0].InventoryItemID,
		Available:       available,
	}
	_, err = a.doRequest(ctx, http.MethodPost, "/inventory_levels/set.json", body, nil)
	return err
}

// ---------------------------------------------------------------------------
// Transport
// ---------------------------------------------------------------------------

// paginate follows Link rel="next" cursors, handing each page body to fn
func (a *ShopifyAdapter) paginate(ctx context.Context, path string, fn func(body []byte) error) error {
	next := path
	for page := 0; next != "" && page < shopifyMaxPages; page++ {
		header, err := a.doRequest(ctx, http.MethodGet, next, nil, fn)
		if err != nil {
			return err
		}
		next = nextPagePath(header.Get("Link"), a.config.APIBaseURL())
	}
	return nil
}

// doRequest performs an API call. out may be nil, a pointer to decode into,
// or a func([]byte) error receiving the raw body.
func (a *ShopifyAdapter) doRequest(ctx context.Context, method, path string, in any, out any) (_ http.Header, err error) {
	ctx, span := telemetry.StartClientSpan(ctx, "Shopify", method+" "+spanPath(path),
		telemetry.Attr("http.request.method", method))
	defer func() { telemetry.EndSpan(span, err) }()

	ctx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()

	var reader io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("shopify: failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.config.APIBaseURL()+path, reader)
	if err != nil {
		return nil, fmt.Errorf("shopify: failed to create request: %w", err)
	}
	req.Header.Set("X-Shopify-Access-Token", a.config.AccessToken)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrPlatformUnavailable, err)
	}
	defer resp.Body.Close()
	span.SetAttributes(telemetry.Attr("http.response.status_code", resp.StatusCode))

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxShopifyResponseSize))
	if err != nil {
		return nil, fmt.Errorf("shopify: failed to read response: %w", err)
	}

	if err := shopifyStatusError(resp.StatusCode, body); err != nil {
		return nil, err
	}

	switch target := out.(type) {
	case nil:
	case func([]byte) error:
		if err := target(body); err != nil {
			return nil, err
		}
	default:
		if err := json.Unmarshal(body, target); err != nil {
			return nil, fmt.Errorf("%w: %v", integration.ErrPlatformInvalidResponse, err)
		}
	}
	return resp.Header, nil
}

// spanPath drops the query string so cursors do not explode span cardinality
func spanPath(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		return path[:i]
	}
	return path
}

// shopifyStatusError maps HTTP status codes onto integration errors
func shopifyStatusError(status int, body []byte) error {
	if status < 400 {
		return nil
	}
	detail := shopifyErrorDetail(body)
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: HTTP %d", integration.ErrPlatformAuthFailed, status)
	case status == http.StatusNotFound:
		return fmt.Errorf("%w: HTTP %d", integration.ErrPlatformNotFound, status)
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: HTTP %d", integration.ErrPlatformRateLimited, status)
	case status == http.StatusUnprocessableEntity || status == http.StatusBadRequest:
		return fmt.Errorf("%w: %s", integration.ErrPlatformRejected, detail)
	case status >= 500:
		return fmt.Errorf("%w: HTTP %d", integration.ErrPlatformUnavailable, status)
	default:
		return fmt.Errorf("%w: HTTP %d %s", integration.ErrPlatformRequestFailed, status, detail)
	}
}

func shopifyErrorDetail(body []byte) string {
	var e ShopifyErrorResponse
	if err := json.Unmarshal(body, &e); err != nil || e.Errors == nil {
		return strings.TrimSpace(string(body))
	}
	raw, _ := json.Marshal(e.Errors)
	return string(raw)
}

// nextPagePath extracts the next page path relative to the API root
func nextPagePath(link, apiBase string) string {
	m := linkNextPattern.FindStringSubmatch(link)
	if m == nil {
		return ""
	}
	next, err := url.Parse(m[1])
	if err != nil {
		return ""
	}
	base, err := url.Parse(apiBase)
	if err != nil {
		return ""
	}
	path := strings.TrimPrefix(next.Path, base.Path)
	if next.RawQuery != "" {
		path += "?" + next.RawQuery
	}
	return path
}

// ---------------------------------------------------------------------------
// Conversion
// ---------------------------------------------------------------------------

func toShopifyProduct(input integration.ProductInput, variantID int64) ShopifyProductEnvelope {
	weight, _ := input.WeightKg.Float64()
	return ShopifyProductEnvelope{Product: ShopifyProduct{
		Title:    input.Title,
		BodyHTML: input.Description,
		Variants: []ShopifyVariant{{
			ID:                  variantID,
			SKU:                 input.SKU,
			Barcode:             input.Barcode,
			Price:               input.Price.StringFixed(2),
			Weight:              weight,
			WeightUnit:          "kg",
			InventoryManagement: "shopify",
		}},
	}}
}

func convertShopifyProduct(p *ShopifyProduct) integration.RemoteProduct {
	rp := integration.RemoteProduct{
		ID:          strconv.FormatInt(p.ID, 10),
		Title:       p.Title,
		Description: p.BodyHTML,
	}
	if p.UpdatedAt != nil {
		rp.UpdatedAt = *p.UpdatedAt
	}
	if len(p.Variants) > 0 {
		v := p.Variants[0]
		rp.SKU = v.SKU
		rp.Barcode = v.Barcode
		rp.Price = parseShopifyMoney(v.Price)
		rp.WeightKg = shopifyWeightKg(v.Weight, v.WeightUnit)
	}
	return rp
}

func convertShopifyOrder(o *ShopifyOrder) integration.RemoteOrder {
	ro := integration.RemoteOrder{
		ID:          strconv.FormatInt(o.ID, 10),
		Name:        o.Name,
		Status:      mapShopifyOrderStatus(o),
		TotalAmount: parseShopifyMoney(o.TotalPrice),
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
		Lines:       make([]integration.RemoteOrderLine, 0, len(o.LineItems)),
	}
	if o.ShippingAddress != nil {
		ro.ShippingAddress = convertShopifyAddress(o.ShippingAddress, o.Email)
	}
	for _, li := range o.LineItems {
		line := integration.RemoteOrderLine{
			SKU:      li.SKU,
			Title:    li.Title,
			Quantity: li.Quantity,
			Price:    parseShopifyMoney(li.Price),
		}
		if li.ProductID != nil {
			line.RemoteProductID = strconv.FormatInt(*li.ProductID, 10)
		}
		ro.Lines = append(ro.Lines, line)
	}
	return ro
}

func convertShopifyAddress(a *ShopifyAddress, email string) valueobject.Address {
	state := a.ProvinceCode
	if state == "" {
		state = a.Province
	}
	return valueobject.Address{
		Name:     a.Name,
		Company:  a.Company,
		Line1:    a.Address1,
		Line2:    a.Address2,
		City:     a.City,
		State:    state,
		Postcode: a.Zip,
		Country:  a.CountryCode,
		Phone:    a.Phone,
		Email:    email,
	}.Normalize()
}

// mapShopifyOrderStatus maps Shopify order state to the storefront status
func mapShopifyOrderStatus(o *ShopifyOrder) integration.RemoteOrderStatus {
	switch {
	case o.CancelledAt != nil:
		return integration.RemoteOrderStatusCancelled
	case o.FulfillmentStatus != nil && *o.FulfillmentStatus == "fulfilled":
		return integration.RemoteOrderStatusFulfilled
	default:
		return integration.RemoteOrderStatusOpen
	}
}

func shopifyWeightKg(weight float64, unit string) decimal.Decimal {
	w := decimal.NewFromFloat(weight)
	switch unit {
	case "g":
		return w.Div(decimal.NewFromInt(1000)).Round(3)
	case "lb":
		return w.Mul(decimal.RequireFromString("0.45359237")).Round(3)
	case "oz":
		return w.Mul(decimal.RequireFromString("0.028349523")).Round(3)
	default:
		return w.Round(3)
	}
}

func parseShopifyMoney(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func parseShopifyID(id string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(id), 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: invalid shopify id %q", integration.ErrPlatformRejected, id)
	}
	return n, nil
}

// Ensure ShopifyAdapter implements CatalogProvider interface
var _ integration.CatalogProvider = (*ShopifyAdapter)(nil)
